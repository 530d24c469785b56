package paths

import (
	"os"
	"path/filepath"
)

const dataDirEnv = "KEEPSAKE_DATA_DIR"

// GetDataDir は ~/.keepsake を返す（KEEPSAKE_DATA_DIRで上書き可能）
func GetDataDir() string {
	if dir := os.Getenv(dataDirEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".keepsake"
	}
	return filepath.Join(home, ".keepsake")
}

// GetDBPath returns the SQLite database path inside the data directory.
func GetDBPath() string {
	return filepath.Join(GetDataDir(), "local.db")
}

// EnsureDataDirs creates the data directory if it does not exist.
func EnsureDataDirs() error {
	return os.MkdirAll(GetDataDir(), 0o755)
}
