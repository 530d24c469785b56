package localdb

import (
	"database/sql"
	"fmt"

	"github.com/ichi0g0y/keepsake/internal/shared/logger"
	"go.uber.org/zap"
)

// SetupViewerIdentityTable creates the single-row viewer_identity table.
func SetupViewerIdentityTable(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS viewer_identity (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			identifier TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		logger.Error("Failed to create viewer_identity table", zap.Error(err))
		return fmt.Errorf("failed to create viewer_identity table: %w", err)
	}
	return nil
}

// GetViewerIdentifier は保存済みの閲覧者IDを返す（未保存なら空文字）
func GetViewerIdentifier() (string, error) {
	db := GetDB()
	if db == nil {
		return "", ErrDatabaseNotInitialized
	}

	var id string
	err := db.QueryRow(`SELECT identifier FROM viewer_identity WHERE id = 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		logger.Error("Failed to get viewer identifier", zap.Error(err))
		return "", fmt.Errorf("failed to get viewer identifier: %w", err)
	}
	return id, nil
}

// SaveViewerIdentifier stores id unless one already exists and returns the stored value.
func SaveViewerIdentifier(id string) (string, error) {
	db := GetDB()
	if db == nil {
		return "", ErrDatabaseNotInitialized
	}

	if _, err := db.Exec(`INSERT OR IGNORE INTO viewer_identity (id, identifier) VALUES (1, ?)`, id); err != nil {
		logger.Error("Failed to save viewer identifier", zap.Error(err))
		return "", fmt.Errorf("failed to save viewer identifier: %w", err)
	}
	return GetViewerIdentifier()
}
