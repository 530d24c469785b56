package localdb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ichi0g0y/keepsake/internal/shared/logger"
	"go.uber.org/zap"
)

// SetupVisitTables creates the user_visits table.
func SetupVisitTables(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS user_visits (
			user_identifier TEXT PRIMARY KEY,
			first_visit_at TIMESTAMP NOT NULL,
			session_started_at TIMESTAMP
		)
	`); err != nil {
		logger.Error("Failed to create user_visits table", zap.Error(err))
		return fmt.Errorf("failed to create user_visits table: %w", err)
	}
	return nil
}

// EnsureUserVisit は初回訪問日時を記録し、記録済みの日時を返す。
// 同時に呼ばれても INSERT OR IGNORE で最初の値が残る。
func EnsureUserVisit(viewerID string, now time.Time) (time.Time, error) {
	db := GetDB()
	if db == nil {
		return time.Time{}, ErrDatabaseNotInitialized
	}

	if _, err := db.Exec(`
		INSERT OR IGNORE INTO user_visits (user_identifier, first_visit_at, session_started_at)
		VALUES (?, ?, ?)
	`, viewerID, now.UTC(), now.UTC()); err != nil {
		logger.Error("Failed to insert user visit", zap.Error(err), zap.String("user_identifier", viewerID))
		return time.Time{}, fmt.Errorf("failed to insert user visit: %w", err)
	}

	var firstVisit time.Time
	if err := db.QueryRow(`SELECT first_visit_at FROM user_visits WHERE user_identifier = ?`, viewerID).Scan(&firstVisit); err != nil {
		logger.Error("Failed to get first visit", zap.Error(err), zap.String("user_identifier", viewerID))
		return time.Time{}, fmt.Errorf("failed to get first visit: %w", err)
	}

	return firstVisit, nil
}

// GetSessionStart returns the stored session start; ok is false when none is recorded.
func GetSessionStart(viewerID string) (time.Time, bool, error) {
	db := GetDB()
	if db == nil {
		return time.Time{}, false, ErrDatabaseNotInitialized
	}

	var started sql.NullTime
	err := db.QueryRow(`SELECT session_started_at FROM user_visits WHERE user_identifier = ?`, viewerID).Scan(&started)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		logger.Error("Failed to get session start", zap.Error(err), zap.String("user_identifier", viewerID))
		return time.Time{}, false, fmt.Errorf("failed to get session start: %w", err)
	}
	if !started.Valid {
		return time.Time{}, false, nil
	}
	return started.Time, true, nil
}

// SetSessionStart は時間ゲートの起点を更新する（訪問記録がなければ作成）
func SetSessionStart(viewerID string, at time.Time) error {
	db := GetDB()
	if db == nil {
		return ErrDatabaseNotInitialized
	}

	_, err := db.Exec(`
		INSERT INTO user_visits (user_identifier, first_visit_at, session_started_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_identifier) DO UPDATE SET
			session_started_at = excluded.session_started_at
	`, viewerID, at.UTC(), at.UTC())
	if err != nil {
		logger.Error("Failed to set session start", zap.Error(err), zap.String("user_identifier", viewerID))
		return fmt.Errorf("failed to set session start: %w", err)
	}
	return nil
}
