package gating

import (
	"fmt"
	"sync"
	"time"

	"github.com/ichi0g0y/keepsake/internal/types"
)

var baseTime = time.Date(2025, 11, 22, 20, 0, 0, 0, time.UTC)

// fakeClock はテスト用の進められる時計
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// testCatalog は standard 5個と各種の秘密を決定論的に生成する
func testCatalog() []types.Lantern {
	lanterns := make([]types.Lantern, 0, 9)
	for i := 1; i <= 5; i++ {
		lanterns = append(lanterns, types.Lantern{
			ID:    fmt.Sprintf("std-%d", i),
			Kind:  types.KindStandard,
			Title: fmt.Sprintf("Standard %d", i),
		})
	}
	lanterns = append(lanterns,
		types.Lantern{ID: "locked-1", Kind: types.KindLocked, Title: "Locked", RevealEffect: types.EffectSkipLayer},
		types.Lantern{ID: "golden-1", Kind: types.KindGolden, Title: "Golden", Rule: types.UnlockRule{OpenedCountThreshold: types.Threshold(3)}},
		types.Lantern{ID: "hidden-1", Kind: types.KindHidden, Title: "Hidden", Rule: types.UnlockRule{OpenedCountThreshold: types.Threshold(4)}},
		types.Lantern{ID: "rev-1", Kind: types.KindRevelation, Title: "Revelation", Rule: types.UnlockRule{OpenedCountThreshold: types.Threshold(0)}},
	)
	return lanterns
}

type recordedDelta struct {
	viewerID string
	itemID   string
	kind     types.RevealKind
}

type recordingSink struct {
	mu     sync.Mutex
	deltas []recordedDelta
	resets []time.Time
}

func (s *recordingSink) RecordDelta(viewerID, itemID string, kind types.RevealKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deltas = append(s.deltas, recordedDelta{viewerID: viewerID, itemID: itemID, kind: kind})
}

func (s *recordingSink) RecordReset(_ string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets = append(s.resets, at)
}

func progressWith(opened []string, revealed []string, start time.Time) types.Progress {
	p := types.NewProgress(start)
	for _, id := range opened {
		p.OpenedStandardIDs.Add(id)
	}
	for _, id := range revealed {
		p.RevealedSecretIDs.Add(id)
	}
	return p
}
