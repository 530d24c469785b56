// Package progress persists lantern progress outside of the in-memory session.
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/ichi0g0y/keepsake/internal/localdb"
	"github.com/ichi0g0y/keepsake/internal/shared/logger"
	"github.com/ichi0g0y/keepsake/internal/types"
	"go.uber.org/zap"
)

// Store は進行状況の永続化先
type Store interface {
	LoadProgress(ctx context.Context, viewerID string) (types.Progress, error)
	SaveProgressDelta(ctx context.Context, viewerID, itemID string, kind types.RevealKind) error
	ResetProgress(ctx context.Context, viewerID string, sessionStart time.Time) error
}

// Load は保存済みの進行状況を読む。失敗したら新しい進行状況で始める。
func Load(ctx context.Context, store Store, viewerID string, now time.Time) types.Progress {
	if store == nil {
		return types.NewProgress(now)
	}
	p, err := store.LoadProgress(ctx, viewerID)
	if err != nil {
		logger.Warn("Failed to load progress, starting fresh",
			zap.String("user_identifier", viewerID), zap.Error(err))
		return types.NewProgress(now)
	}
	if p.OpenedStandardIDs == nil {
		p.OpenedStandardIDs = types.NewIDSet()
	}
	if p.RevealedSecretIDs == nil {
		p.RevealedSecretIDs = types.NewIDSet()
	}
	if p.SessionStart.IsZero() {
		p.SessionStart = now
	}
	return p
}

// SQLiteStore は localdb に保存する Store
type SQLiteStore struct {
	now func() time.Time
}

func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{now: time.Now}
}

func (s *SQLiteStore) LoadProgress(ctx context.Context, viewerID string) (types.Progress, error) {
	if err := ctx.Err(); err != nil {
		return types.Progress{}, err
	}

	start, ok, err := localdb.GetSessionStart(viewerID)
	if err != nil {
		return types.Progress{}, err
	}
	if !ok {
		// 初回訪問ならここで記録する
		if start, err = localdb.EnsureUserVisit(viewerID, s.now()); err != nil {
			return types.Progress{}, err
		}
	}

	rows, err := localdb.GetLanternProgress(viewerID)
	if err != nil {
		return types.Progress{}, err
	}

	p := types.NewProgress(start)
	for _, r := range rows {
		switch types.RevealKind(r.RevealKind) {
		case types.RevealOpened:
			p.OpenedStandardIDs.Add(r.LanternID)
		case types.RevealSecret:
			p.RevealedSecretIDs.Add(r.LanternID)
		default:
			logger.Warn("Skipping lantern progress with unknown reveal kind",
				zap.String("lantern_id", r.LanternID), zap.String("reveal_kind", r.RevealKind))
		}
	}
	return p, nil
}

func (s *SQLiteStore) SaveProgressDelta(ctx context.Context, viewerID, itemID string, kind types.RevealKind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := localdb.AddLanternProgress(viewerID, itemID, string(kind), s.now())
	return err
}

func (s *SQLiteStore) ResetProgress(ctx context.Context, viewerID string, sessionStart time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return localdb.ResetLanternProgress(viewerID, sessionStart)
}

// MemoryStore keeps progress per viewer in memory.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]types.Progress
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]types.Progress)}
}

func (m *MemoryStore) LoadProgress(_ context.Context, viewerID string) (types.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[viewerID]
	if !ok {
		return types.Progress{
			OpenedStandardIDs: types.NewIDSet(),
			RevealedSecretIDs: types.NewIDSet(),
		}, nil
	}
	return p.Clone(), nil
}

func (m *MemoryStore) SaveProgressDelta(_ context.Context, viewerID, itemID string, kind types.RevealKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[viewerID]
	if !ok {
		p = types.Progress{
			OpenedStandardIDs: types.NewIDSet(),
			RevealedSecretIDs: types.NewIDSet(),
		}
	}
	switch kind {
	case types.RevealOpened:
		p.OpenedStandardIDs.Add(itemID)
	case types.RevealSecret:
		p.RevealedSecretIDs.Add(itemID)
	}
	m.items[viewerID] = p
	return nil
}

func (m *MemoryStore) ResetProgress(_ context.Context, viewerID string, sessionStart time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[viewerID] = types.NewProgress(sessionStart)
	return nil
}
