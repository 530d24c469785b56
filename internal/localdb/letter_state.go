package localdb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ichi0g0y/keepsake/internal/shared/logger"
	"github.com/ichi0g0y/keepsake/internal/types"
	"go.uber.org/zap"
)

// LetterStateUpdate は更新するフィールドだけを指定する（nil は変更しない）
type LetterStateUpdate struct {
	IsOpened     *bool
	IsBookmarked *bool
	OpenedAt     *time.Time
}

// SetupLetterStateTable creates the user_letter_state table.
func SetupLetterStateTable(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS user_letter_state (
			user_identifier TEXT NOT NULL,
			letter_key TEXT NOT NULL,
			is_opened BOOLEAN NOT NULL DEFAULT false,
			is_bookmarked BOOLEAN NOT NULL DEFAULT false,
			opened_at TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_identifier, letter_key)
		)
	`); err != nil {
		logger.Error("Failed to create user_letter_state table", zap.Error(err))
		return fmt.Errorf("failed to create user_letter_state table: %w", err)
	}
	return nil
}

// GetLetterStates returns every stored letter state for a viewer.
func GetLetterStates(viewerID string) ([]types.LetterState, error) {
	db := GetDB()
	if db == nil {
		return []types.LetterState{}, ErrDatabaseNotInitialized
	}

	rows, err := db.Query(`
		SELECT user_identifier, letter_key, is_opened, is_bookmarked, opened_at, updated_at
		FROM user_letter_state
		WHERE user_identifier = ?
		ORDER BY letter_key
	`, viewerID)
	if err != nil {
		logger.Error("Failed to get letter states", zap.Error(err), zap.String("user_identifier", viewerID))
		return []types.LetterState{}, fmt.Errorf("failed to get letter states: %w", err)
	}
	defer rows.Close()

	states := []types.LetterState{}
	for rows.Next() {
		var s types.LetterState
		var openedAt, updatedAt sql.NullTime
		if err := rows.Scan(&s.ViewerID, &s.LetterKey, &s.IsOpened, &s.IsBookmarked, &openedAt, &updatedAt); err != nil {
			logger.Error("Failed to scan letter state", zap.Error(err))
			continue
		}
		if openedAt.Valid {
			t := openedAt.Time
			s.OpenedAt = &t
		}
		if updatedAt.Valid {
			s.UpdatedAt = updatedAt.Time
		}
		states = append(states, s)
	}

	return states, rows.Err()
}

// UpsertLetterState は指定したフィールドだけを更新する。
// opened_at は最初に開いた日時を保持する。
func UpsertLetterState(viewerID, letterKey string, update LetterStateUpdate, now time.Time) error {
	db := GetDB()
	if db == nil {
		return ErrDatabaseNotInitialized
	}

	var openedAt *time.Time
	if update.OpenedAt != nil {
		t := update.OpenedAt.UTC()
		openedAt = &t
	}

	_, err := db.Exec(`
		INSERT INTO user_letter_state (user_identifier, letter_key, is_opened, is_bookmarked, opened_at, updated_at)
		VALUES (?, ?, COALESCE(?, false), COALESCE(?, false), ?, ?)
		ON CONFLICT(user_identifier, letter_key) DO UPDATE SET
			is_opened = COALESCE(?, user_letter_state.is_opened),
			is_bookmarked = COALESCE(?, user_letter_state.is_bookmarked),
			opened_at = COALESCE(user_letter_state.opened_at, excluded.opened_at),
			updated_at = excluded.updated_at
	`,
		viewerID, letterKey, update.IsOpened, update.IsBookmarked, openedAt, now.UTC(),
		update.IsOpened, update.IsBookmarked,
	)
	if err != nil {
		logger.Error("Failed to upsert letter state", zap.Error(err),
			zap.String("user_identifier", viewerID), zap.String("letter_key", letterKey))
		return fmt.Errorf("failed to upsert letter state: %w", err)
	}
	return nil
}

// ToggleLetterBookmark はブックマークを反転し、反転後の値を返す
func ToggleLetterBookmark(viewerID, letterKey string, now time.Time) (bool, error) {
	db := GetDB()
	if db == nil {
		return false, ErrDatabaseNotInitialized
	}

	tx, err := db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO user_letter_state (user_identifier, letter_key, is_opened, is_bookmarked, updated_at)
		VALUES (?, ?, false, true, ?)
		ON CONFLICT(user_identifier, letter_key) DO UPDATE SET
			is_bookmarked = NOT user_letter_state.is_bookmarked,
			updated_at = excluded.updated_at
	`, viewerID, letterKey, now.UTC()); err != nil {
		logger.Error("Failed to toggle letter bookmark", zap.Error(err),
			zap.String("user_identifier", viewerID), zap.String("letter_key", letterKey))
		return false, fmt.Errorf("failed to toggle letter bookmark: %w", err)
	}

	var bookmarked bool
	if err := tx.QueryRow(`
		SELECT is_bookmarked FROM user_letter_state WHERE user_identifier = ? AND letter_key = ?
	`, viewerID, letterKey).Scan(&bookmarked); err != nil {
		return false, fmt.Errorf("failed to read letter bookmark: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit bookmark toggle: %w", err)
	}
	return bookmarked, nil
}
