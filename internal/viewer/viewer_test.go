package viewer

import (
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/ichi0g0y/keepsake/internal/localdb"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	if localdb.DBClient != nil {
		_ = localdb.DBClient.Close()
		localdb.DBClient = nil
	}
	db, err := localdb.SetupDB(filepath.Join(t.TempDir(), "local.db"))
	if err != nil {
		t.Fatalf("SetupDB failed: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
		localdb.DBClient = nil
	})
}

func TestNewIdentifierFormat(t *testing.T) {
	orig := nowFunc
	nowFunc = func() time.Time { return time.UnixMilli(1700000000123) }
	t.Cleanup(func() { nowFunc = orig })

	id, err := NewIdentifier()
	if err != nil {
		t.Fatalf("NewIdentifier failed: %v", err)
	}
	if !regexp.MustCompile(`^user_1700000000123_[0-9a-z]{7}$`).MatchString(id) {
		t.Fatalf("unexpected identifier: %q", id)
	}

	other, err := NewIdentifier()
	if err != nil {
		t.Fatalf("NewIdentifier failed: %v", err)
	}
	if other == id {
		t.Fatalf("identifiers should differ: %q", id)
	}
}

func TestEnsure(t *testing.T) {
	setupTestDB(t)

	explicit := "  user_fixed  "
	got, err := Ensure(&explicit)
	if err != nil || got != "user_fixed" {
		t.Fatalf("explicit id should win: got=%q err=%v", got, err)
	}

	first, err := Ensure(nil)
	if err != nil || first == "" {
		t.Fatalf("Ensure failed: id=%q err=%v", first, err)
	}
	blank := " "
	second, err := Ensure(&blank)
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if second != first {
		t.Fatalf("stored id should be reused: got=%q want=%q", second, first)
	}
}

func TestEnsureWithoutDatabase(t *testing.T) {
	if localdb.DBClient != nil {
		_ = localdb.DBClient.Close()
		localdb.DBClient = nil
	}
	if _, err := Ensure(nil); err == nil {
		t.Fatalf("expected error without database")
	}
}
