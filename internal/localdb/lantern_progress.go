package localdb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ichi0g0y/keepsake/internal/shared/logger"
	"go.uber.org/zap"
)

// LanternProgressRow はランタン開封の記録1件
type LanternProgressRow struct {
	ViewerID   string    `json:"user_identifier"`
	LanternID  string    `json:"lantern_id"`
	RevealKind string    `json:"reveal_kind"`
	OpenedAt   time.Time `json:"opened_at"`
}

// SetupLanternProgressTable creates the lantern_progress table.
func SetupLanternProgressTable(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS lantern_progress (
			user_identifier TEXT NOT NULL,
			lantern_id TEXT NOT NULL,
			reveal_kind TEXT NOT NULL,
			opened_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_identifier, lantern_id)
		)
	`); err != nil {
		logger.Error("Failed to create lantern_progress table", zap.Error(err))
		return fmt.Errorf("failed to create lantern_progress table: %w", err)
	}
	return nil
}

// AddLanternProgress は開封を記録する。既に記録済みなら何もしない。
func AddLanternProgress(viewerID, lanternID, revealKind string, at time.Time) (bool, error) {
	db := GetDB()
	if db == nil {
		return false, ErrDatabaseNotInitialized
	}

	res, err := db.Exec(`
		INSERT INTO lantern_progress (user_identifier, lantern_id, reveal_kind, opened_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_identifier, lantern_id) DO NOTHING
	`, viewerID, lanternID, revealKind, at.UTC())
	if err != nil {
		logger.Error("Failed to add lantern progress", zap.Error(err),
			zap.String("user_identifier", viewerID), zap.String("lantern_id", lanternID))
		return false, fmt.Errorf("failed to add lantern progress: %w", err)
	}

	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// GetLanternProgress returns the viewer's records ordered by open time.
func GetLanternProgress(viewerID string) ([]LanternProgressRow, error) {
	db := GetDB()
	if db == nil {
		return []LanternProgressRow{}, ErrDatabaseNotInitialized
	}

	rows, err := db.Query(`
		SELECT user_identifier, lantern_id, reveal_kind, opened_at
		FROM lantern_progress
		WHERE user_identifier = ?
		ORDER BY opened_at, lantern_id
	`, viewerID)
	if err != nil {
		logger.Error("Failed to get lantern progress", zap.Error(err), zap.String("user_identifier", viewerID))
		return []LanternProgressRow{}, fmt.Errorf("failed to get lantern progress: %w", err)
	}
	defer rows.Close()

	records := []LanternProgressRow{}
	for rows.Next() {
		var r LanternProgressRow
		var openedAt sql.NullTime
		if err := rows.Scan(&r.ViewerID, &r.LanternID, &r.RevealKind, &openedAt); err != nil {
			logger.Error("Failed to scan lantern progress", zap.Error(err))
			continue
		}
		if openedAt.Valid {
			r.OpenedAt = openedAt.Time
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ResetLanternProgress は記録を消して時間ゲートの起点を更新する
func ResetLanternProgress(viewerID string, sessionStart time.Time) error {
	db := GetDB()
	if db == nil {
		return ErrDatabaseNotInitialized
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM lantern_progress WHERE user_identifier = ?`, viewerID); err != nil {
		logger.Error("Failed to delete lantern progress", zap.Error(err), zap.String("user_identifier", viewerID))
		return fmt.Errorf("failed to delete lantern progress: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO user_visits (user_identifier, first_visit_at, session_started_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_identifier) DO UPDATE SET
			session_started_at = excluded.session_started_at
	`, viewerID, sessionStart.UTC(), sessionStart.UTC()); err != nil {
		logger.Error("Failed to reset session start", zap.Error(err), zap.String("user_identifier", viewerID))
		return fmt.Errorf("failed to reset session start: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit lantern progress reset: %w", err)
	}

	logger.Info("Lantern progress reset", zap.String("user_identifier", viewerID))
	return nil
}
