package version

import (
	"fmt"
	"runtime"
)

var (
	// Version はビルド時に -ldflags で設定する
	Version = "dev"

	// BuildNumber is set at build time (format: YYYYMMDD.HHMM).
	BuildNumber = "unknown"

	Commit = "unknown"
)

// Info はCLIの version コマンドで出力する内容
type Info struct {
	Version     string `json:"version"`
	BuildNumber string `json:"build_number"`
	Commit      string `json:"commit"`
	GoVersion   string `json:"go_version"`
}

func Get() Info {
	return Info{
		Version:     Version,
		BuildNumber: BuildNumber,
		Commit:      Commit,
		GoVersion:   runtime.Version(),
	}
}

// String returns a one-line version for logs.
func String() string {
	if BuildNumber != "unknown" {
		return fmt.Sprintf("keepsake v%s (build: %s, commit: %s)", Version, BuildNumber, Commit)
	}
	return fmt.Sprintf("keepsake v%s (commit: %s)", Version, Commit)
}
