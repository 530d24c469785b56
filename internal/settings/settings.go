package settings

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ichi0g0y/keepsake/internal/gating"
	"github.com/ichi0g0y/keepsake/internal/letters"
	"github.com/ichi0g0y/keepsake/internal/shared/logger"
	"go.uber.org/zap"
)

type SettingType string

const (
	SettingTypeNormal SettingType = "normal"
	SettingTypeSecret SettingType = "secret"
)

type Setting struct {
	Key         string      `json:"key"`
	Value       string      `json:"value"`
	Type        SettingType `json:"type"`
	Required    bool        `json:"required"`
	Description string      `json:"description"`
	UpdatedAt   time.Time   `json:"updated_at"`
	HasValue    bool        `json:"has_value"`
}

type SettingsManager struct {
	db *sql.DB
}

func NewSettingsManager(db *sql.DB) *SettingsManager {
	return &SettingsManager{db: db}
}

// 設定の定義
var DefaultSettings = map[string]Setting{
	// ランタンの解放条件
	"LOCKED_LANTERN_DELAY_MS": {
		Key: "LOCKED_LANTERN_DELAY_MS", Value: "90000", Type: SettingTypeNormal, Required: false,
		Description: "Milliseconds after session start before locked lanterns appear",
	},
	"GOLDEN_OPEN_THRESHOLD": {
		Key: "GOLDEN_OPEN_THRESHOLD", Value: "3", Type: SettingTypeNormal, Required: false,
		Description: "Standard lanterns to open before golden lanterns appear",
	},
	"HIDDEN_OPEN_THRESHOLD": {
		Key: "HIDDEN_OPEN_THRESHOLD", Value: "5", Type: SettingTypeNormal, Required: false,
		Description: "Standard lanterns to open before hidden lanterns become interactable",
	},
	"REVELATION_OPEN_THRESHOLD": {
		Key: "REVELATION_OPEN_THRESHOLD", Value: "5", Type: SettingTypeNormal, Required: false,
		Description: "Standard lanterns to open before the revelation lantern appears",
	},

	// 次の層へ進むボタン
	"CONTINUE_MIN_OPENED": {
		Key: "CONTINUE_MIN_OPENED", Value: "2", Type: SettingTypeNormal, Required: false,
		Description: "Standard lanterns to open before continuing is allowed",
	},
	"CONTINUE_GOAL_OPENED": {
		Key: "CONTINUE_GOAL_OPENED", Value: "3", Type: SettingTypeNormal, Required: false,
		Description: "Standard lanterns that complete the layer",
	},
	"RESET_PROGRESS_ON_MOUNT": {
		Key: "RESET_PROGRESS_ON_MOUNT", Value: "false", Type: SettingTypeNormal, Required: false,
		Description: "Start every session with empty lantern progress",
	},

	// 手紙
	"LETTER_GRACE_DAYS": {
		Key: "LETTER_GRACE_DAYS", Value: "2", Type: SettingTypeNormal, Required: false,
		Description: "Days added to relative letter unlock offsets",
	},
	"TIMEZONE": {
		Key: "TIMEZONE", Value: "Local", Type: SettingTypeNormal, Required: false,
		Description: "Timezone used for letter unlock days",
	},

	// 動作設定
	"STILLNESS_TIMEOUT_MS": {
		Key: "STILLNESS_TIMEOUT_MS", Value: "25000", Type: SettingTypeNormal, Required: false,
		Description: "Idle milliseconds before the viewer is considered still",
	},
	"WATCH_INTERVAL_MS": {
		Key: "WATCH_INTERVAL_MS", Value: "1000", Type: SettingTypeNormal, Required: false,
		Description: "Milliseconds between time gate re-evaluations",
	},
}

// CRUD操作
func (sm *SettingsManager) GetSetting(key string) (string, error) {
	var value string
	err := sm.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		// デフォルト値を返す
		if defaultSetting, exists := DefaultSettings[key]; exists {
			return defaultSetting.Value, nil
		}
		return "", fmt.Errorf("setting not found: %s", key)
	}
	return value, err
}

func (sm *SettingsManager) SetSetting(key, value string) error {
	defaultSetting, exists := DefaultSettings[key]
	if !exists {
		return fmt.Errorf("unknown setting key: %s", key)
	}
	if err := ValidateSetting(key, value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	_, err := sm.db.Exec(`
		INSERT INTO settings (key, value, setting_type, is_required, description)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		key, value,
		string(defaultSetting.Type),
		defaultSetting.Required,
		defaultSetting.Description,
	)
	return err
}

func (sm *SettingsManager) GetAllSettings() (map[string]Setting, error) {
	rows, err := sm.db.Query(`
		SELECT key, value, setting_type, is_required, description, updated_at
		FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]Setting)
	for rows.Next() {
		var s Setting
		var settingType string
		var description sql.NullString
		if err := rows.Scan(&s.Key, &s.Value, &settingType, &s.Required, &description, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Type = SettingType(settingType)
		s.Description = description.String
		s.HasValue = s.Value != ""
		settings[s.Key] = s
	}

	// DBにない設定はデフォルト値で補完
	for key, defaultSetting := range DefaultSettings {
		if _, exists := settings[key]; !exists {
			settings[key] = defaultSetting
		}
	}

	return settings, nil
}

// GetInt は整数設定を読む。壊れた値はデフォルトに戻してログを残す。
func (sm *SettingsManager) GetInt(key string) int {
	raw, err := sm.GetSetting(key)
	if err == nil {
		if v, convErr := strconv.Atoi(raw); convErr == nil {
			return v
		}
	}
	fallback, _ := strconv.Atoi(DefaultSettings[key].Value)
	logger.Warn("Invalid integer setting, using default",
		zap.String("key", key), zap.String("value", raw), zap.Error(err))
	return fallback
}

func (sm *SettingsManager) GetBool(key string) bool {
	raw, err := sm.GetSetting(key)
	if err != nil {
		logger.Warn("Failed to read setting, using default", zap.String("key", key), zap.Error(err))
		raw = DefaultSettings[key].Value
	}
	return raw == "true"
}

func (sm *SettingsManager) getDuration(key string) time.Duration {
	return time.Duration(sm.GetInt(key)) * time.Millisecond
}

// GatingConfig はランタンの解放条件を設定から組み立てる
func (sm *SettingsManager) GatingConfig() gating.Config {
	return gating.Config{
		LockedDelay:         sm.getDuration("LOCKED_LANTERN_DELAY_MS"),
		GoldenThreshold:     sm.GetInt("GOLDEN_OPEN_THRESHOLD"),
		HiddenThreshold:     sm.GetInt("HIDDEN_OPEN_THRESHOLD"),
		RevelationThreshold: sm.GetInt("REVELATION_OPEN_THRESHOLD"),
		ContinueMinOpened:   sm.GetInt("CONTINUE_MIN_OPENED"),
		ContinueGoalOpened:  sm.GetInt("CONTINUE_GOAL_OPENED"),
	}
}

// Location returns the configured timezone, falling back to time.Local.
func (sm *SettingsManager) Location() *time.Location {
	name, _ := sm.GetSetting("TIMEZONE")
	if name == "" || name == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warn("Invalid timezone, using local time", zap.String("timezone", name), zap.Error(err))
		return time.Local
	}
	return loc
}

func (sm *SettingsManager) LetterCalculator() letters.Calculator {
	return letters.NewCalculator(sm.GetInt("LETTER_GRACE_DAYS"), sm.Location())
}

func (sm *SettingsManager) ResetOnMount() bool {
	return sm.GetBool("RESET_PROGRESS_ON_MOUNT")
}

func (sm *SettingsManager) StillnessTimeout() time.Duration {
	return sm.getDuration("STILLNESS_TIMEOUT_MS")
}

func (sm *SettingsManager) WatchInterval() time.Duration {
	return sm.getDuration("WATCH_INTERVAL_MS")
}

// 環境変数からの移行
func (sm *SettingsManager) MigrateFromEnv() error {
	logger.Info("Starting migration from environment variables")
	migrated := 0

	for key := range DefaultSettings {
		// 既にDB設定が存在する場合はスキップ
		var existingKey string
		if err := sm.db.QueryRow("SELECT key FROM settings WHERE key = ?", key).Scan(&existingKey); err == nil {
			continue
		}

		if envValue := os.Getenv(key); envValue != "" {
			if err := sm.SetSetting(key, envValue); err != nil {
				logger.Error("Failed to migrate setting", zap.String("key", key), zap.Error(err))
				return fmt.Errorf("failed to migrate %s: %w", key, err)
			}
			logger.Info("Migrated setting from environment", zap.String("key", key))
			migrated++
		}
	}

	if migrated > 0 {
		logger.Info("Migration completed", zap.Int("migrated_count", migrated))
	}
	return nil
}

// バリデーション
func ValidateSetting(key, value string) error {
	switch key {
	case "LOCKED_LANTERN_DELAY_MS", "GOLDEN_OPEN_THRESHOLD", "HIDDEN_OPEN_THRESHOLD",
		"REVELATION_OPEN_THRESHOLD", "CONTINUE_MIN_OPENED", "CONTINUE_GOAL_OPENED", "LETTER_GRACE_DAYS":
		if val, err := strconv.Atoi(value); err != nil || val < 0 {
			return fmt.Errorf("must be a non-negative integer")
		}
	case "STILLNESS_TIMEOUT_MS", "WATCH_INTERVAL_MS":
		if val, err := strconv.Atoi(value); err != nil || val < 100 {
			return fmt.Errorf("must be an integer of at least 100 milliseconds")
		}
	case "TIMEZONE":
		if value != "" && value != "Local" {
			if _, err := time.LoadLocation(value); err != nil {
				return fmt.Errorf("invalid timezone: %v", err)
			}
		}
	case "RESET_PROGRESS_ON_MOUNT":
		if value != "true" && value != "false" {
			return fmt.Errorf("must be 'true' or 'false'")
		}
	}
	return nil
}

// 初期設定のセットアップ
func (sm *SettingsManager) InitializeDefaultSettings() error {
	for key, setting := range DefaultSettings {
		var existingKey string
		if err := sm.db.QueryRow("SELECT key FROM settings WHERE key = ?", key).Scan(&existingKey); err == nil {
			continue
		}

		if err := sm.SetSetting(key, setting.Value); err != nil {
			return fmt.Errorf("failed to initialize setting %s: %w", key, err)
		}
	}
	return nil
}
