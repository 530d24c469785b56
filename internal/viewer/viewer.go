// Package viewer issues the anonymous identifier that progress is stored under.
package viewer

import (
	"fmt"
	"strings"
	"time"

	"github.com/ichi0g0y/keepsake/internal/localdb"
	"github.com/ichi0g0y/keepsake/internal/shared/logger"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const (
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idSuffix   = 7
)

// テストで差し替える
var nowFunc = time.Now

// NewIdentifier は user_<unix ms>_<7文字> 形式のIDを作る
func NewIdentifier() (string, error) {
	suffix, err := gonanoid.Generate(idAlphabet, idSuffix)
	if err != nil {
		return "", fmt.Errorf("failed to generate viewer identifier: %w", err)
	}
	return fmt.Sprintf("user_%d_%s", nowFunc().UnixMilli(), suffix), nil
}

// Ensure returns explicit when set, otherwise the stored identifier,
// generating and storing a new one on first use.
func Ensure(explicit *string) (string, error) {
	if explicit != nil {
		if id := strings.TrimSpace(*explicit); id != "" {
			return id, nil
		}
	}

	id, err := localdb.GetViewerIdentifier()
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	generated, err := NewIdentifier()
	if err != nil {
		return "", err
	}
	stored, err := localdb.SaveViewerIdentifier(generated)
	if err != nil {
		return "", err
	}
	logger.Info("Issued viewer identifier", zap.String("user_identifier", stored))
	return stored, nil
}
