package env

import (
	"os"
	"strings"

	"github.com/ichi0g0y/keepsake/internal/shared/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// EnvValue は起動時に読み込む環境設定
type EnvValue struct {
	DebugMode   bool
	DataDir     string
	ViewerID    *string // 未設定なら保存済み/新規生成のIDを使う
	ContentPath string  // 空なら埋め込みカタログ
	Timezone    string
}

var Value EnvValue

// LoadEnv reads .env (if present) and then the process environment into Value.
// Variables already set in the environment win over .env entries.
func LoadEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			logger.Warn("Failed to load env file", zap.String("file", f), zap.Error(err))
		}
	}

	Value = EnvValue{
		DebugMode:   parseBool(os.Getenv("DEBUG_MODE")),
		DataDir:     os.Getenv("KEEPSAKE_DATA_DIR"),
		ContentPath: os.Getenv("KEEPSAKE_CONTENT"),
		Timezone:    os.Getenv("TIMEZONE"),
	}
	if id := strings.TrimSpace(os.Getenv("VIEWER_ID")); id != "" {
		Value.ViewerID = &id
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
