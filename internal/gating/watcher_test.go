package gating

import (
	"context"
	"testing"
	"time"

	"github.com/ichi0g0y/keepsake/internal/types"
)

func TestWatcher_PollReportsTimeGate(t *testing.T) {
	clock := newFakeClock(baseTime)
	e := NewEngine(testCatalog(), DefaultConfig(), WithClock(clock.Now))
	p := types.NewProgress(baseTime)
	w := NewWatcher(e, time.Second, func(context.Context) types.Progress { return p })

	ctx := context.Background()
	if changes := w.Poll(ctx); changes != nil {
		t.Fatalf("first poll should only record a baseline: %+v", changes)
	}

	clock.Advance(30 * time.Second)
	if changes := w.Poll(ctx); len(changes) != 0 {
		t.Fatalf("nothing should change before the delay: %+v", changes)
	}

	clock.Advance(60 * time.Second)
	changes := w.Poll(ctx)
	if len(changes) != 1 {
		t.Fatalf("unexpected change count: got=%d want=1", len(changes))
	}
	if changes[0].Current.ID != "locked-1" || !changes[0].Current.Interactable || changes[0].Previous.Interactable {
		t.Fatalf("unexpected change: %+v", changes[0])
	}
}

func TestWatcher_ReadsFreshProgress(t *testing.T) {
	clock := newFakeClock(baseTime)
	e := NewEngine(testCatalog(), DefaultConfig(), WithClock(clock.Now))
	s := NewSession(e, "viewer", types.NewProgress(baseTime), nil)
	w := NewWatcher(e, time.Second, func(context.Context) types.Progress { return s.Progress() })

	ctx := context.Background()
	w.Poll(ctx)
	s.Open("std-1")
	s.Open("std-2")
	s.Open("std-3")

	changes := w.Poll(ctx)
	if len(changes) != 1 || changes[0].Current.ID != "golden-1" || !changes[0].Current.Visible {
		t.Fatalf("golden should appear after three opens: %+v", changes)
	}
}

func TestWatcher_RunStopsOnCancel(t *testing.T) {
	clock := newFakeClock(baseTime)
	e := NewEngine(testCatalog(), DefaultConfig(), WithClock(clock.Now))
	p := types.NewProgress(baseTime)
	w := NewWatcher(e, 5*time.Millisecond, func(context.Context) types.Progress { return p })

	ctx, cancel := context.WithCancel(context.Background())
	w.Poll(ctx)
	clock.Advance(2 * time.Minute)

	got := make(chan []Change, 1)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(c []Change) {
			select {
			case got <- c:
			default:
			}
		})
	}()

	select {
	case changes := <-got:
		if changes[0].Current.ID != "locked-1" {
			t.Fatalf("unexpected change: %+v", changes[0])
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not report the time gate")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("unexpected Run error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not stop after cancel")
	}
}
