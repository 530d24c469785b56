package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ichi0g0y/keepsake/internal/content"
	"github.com/ichi0g0y/keepsake/internal/env"
	"github.com/ichi0g0y/keepsake/internal/gating"
	"github.com/ichi0g0y/keepsake/internal/letters"
	"github.com/ichi0g0y/keepsake/internal/localdb"
	"github.com/ichi0g0y/keepsake/internal/progress"
	"github.com/ichi0g0y/keepsake/internal/settings"
	"github.com/ichi0g0y/keepsake/internal/shared/logger"
	"github.com/ichi0g0y/keepsake/internal/shared/paths"
	"github.com/ichi0g0y/keepsake/internal/types"
	"github.com/ichi0g0y/keepsake/internal/viewer"
	"go.uber.org/zap"
)

// app は1回のコマンド実行に必要なものをまとめる
type app struct {
	settings *settings.SettingsManager
	catalog  content.Catalog
	viewerID string
	calc     letters.Calculator

	engine   *gating.Engine
	store    progress.Store
	recorder *progress.Recorder
	session  *gating.Session
	letters  *progress.LetterStore

	now func() time.Time
}

type options struct {
	catalogPath string
	viewerID    string
}

func newApp(ctx context.Context, opts options) (*app, error) {
	if err := paths.EnsureDataDirs(); err != nil {
		return nil, fmt.Errorf("ensure data directories: %w", err)
	}
	db, err := localdb.SetupDB(paths.GetDBPath())
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}

	sm := settings.NewSettingsManager(db)
	if err := sm.MigrateFromEnv(); err != nil {
		logger.Warn("Failed to migrate settings from environment", zap.Error(err))
	}

	catalogPath := opts.catalogPath
	if catalogPath == "" {
		catalogPath = env.Value.ContentPath
	}
	catalog, err := content.Load(catalogPath)
	if err != nil {
		_ = localdb.Close()
		return nil, err
	}

	explicit := env.Value.ViewerID
	if opts.viewerID != "" {
		explicit = &opts.viewerID
	}
	viewerID, err := viewer.Ensure(explicit)
	if err != nil {
		_ = localdb.Close()
		return nil, fmt.Errorf("viewer identifier: %w", err)
	}

	a := &app{
		settings: sm,
		catalog:  catalog,
		viewerID: viewerID,
		calc:     letterCalculator(sm),
		now:      time.Now,
	}
	a.engine = gating.NewEngine(catalog.Lanterns, sm.GatingConfig(), gating.WithClock(func() time.Time { return a.now() }))
	a.store = progress.NewSQLiteStore()
	a.recorder = progress.NewRecorder(a.store, 0)
	a.letters = progress.NewLetterStore(a.calc)

	loaded := progress.Load(ctx, a.store, viewerID, a.now())
	a.session = gating.NewSession(a.engine, viewerID, loaded, a.recorder)
	if sm.ResetOnMount() {
		logger.Debug("Resetting progress on start", zap.String("user_identifier", viewerID))
		a.session.Reset(a.now())
	}

	logger.Debug("Session ready",
		zap.String("user_identifier", viewerID),
		zap.Int("opened", loaded.OpenedCount()),
		zap.Int("revealed", loaded.RevealedCount()))
	return a, nil
}

// letterCalculator は TIMEZONE 環境変数があれば設定より優先する
func letterCalculator(sm *settings.SettingsManager) letters.Calculator {
	calc := sm.LetterCalculator()
	if tz := env.Value.Timezone; tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			logger.Warn("Invalid TIMEZONE, using configured timezone", zap.String("timezone", tz), zap.Error(err))
			return calc
		}
		calc.Location = loc
	}
	return calc
}

// refreshProgress は別プロセスの書き込みをストアから読み直してセッションに取り込む。
// 未保存の開封はセッション側に残る。
func (a *app) refreshProgress(ctx context.Context) types.Progress {
	stored, err := a.store.LoadProgress(ctx, a.viewerID)
	if err != nil {
		logger.Warn("Failed to refresh progress, keeping session state",
			zap.String("user_identifier", a.viewerID), zap.Error(err))
		return a.session.Progress()
	}
	a.session.Merge(stored)
	return a.session.Progress()
}

// close は保留中の書き込みを流してからDBを閉じる
func (a *app) close() {
	a.recorder.Close()
	if err := localdb.Close(); err != nil {
		logger.Warn("Failed to close database", zap.Error(err))
	}
}
