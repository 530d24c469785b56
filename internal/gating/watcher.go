package gating

import (
	"context"
	"time"

	"github.com/ichi0g0y/keepsake/internal/types"
)

const defaultWatchInterval = time.Second

// ProgressFunc は毎回新しく進行状況を読み出す
type ProgressFunc func(ctx context.Context) types.Progress

// Change は前回の判定から表示/開封可否が変わったランタン
type Change struct {
	Previous Decision `json:"previous"`
	Current  Decision `json:"current"`
}

// Watcher は時間ゲートを定期的に再評価する。待機は判定の中ではなくタイマーで行う。
type Watcher struct {
	engine   *Engine
	interval time.Duration
	load     ProgressFunc
	last     map[string]Decision
}

func NewWatcher(engine *Engine, interval time.Duration, load ProgressFunc) *Watcher {
	if interval <= 0 {
		interval = defaultWatchInterval
	}
	return &Watcher{
		engine:   engine,
		interval: interval,
		load:     load,
	}
}

// Poll re-evaluates once and returns what changed since the previous poll.
// 初回は基準を記録するだけで変化は返さない。
func (w *Watcher) Poll(ctx context.Context) []Change {
	decisions := w.engine.DecideAll(w.load(ctx))

	if w.last == nil {
		w.last = make(map[string]Decision, len(decisions))
		for _, d := range decisions {
			w.last[d.ID] = d
		}
		return nil
	}

	var changes []Change
	for _, d := range decisions {
		prev, ok := w.last[d.ID]
		if ok && prev.Visible == d.Visible && prev.Interactable == d.Interactable {
			w.last[d.ID] = d
			continue
		}
		changes = append(changes, Change{Previous: prev, Current: d})
		w.last[d.ID] = d
	}
	return changes
}

// Run polls until ctx is cancelled, calling onChange for every non-empty diff.
func (w *Watcher) Run(ctx context.Context, onChange func([]Change)) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	emit := func() {
		if changes := w.Poll(ctx); len(changes) > 0 && onChange != nil {
			onChange(changes)
		}
	}

	emit()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			emit()
		}
	}
}
