package stillness

import (
	"sync"
	"testing"
	"time"
)

type events struct {
	mu    sync.Mutex
	still int
	moves []string
	ch    chan string
}

func newEvents() *events {
	return &events{ch: make(chan string, 16)}
}

func (e *events) onStill() {
	e.mu.Lock()
	e.still++
	e.mu.Unlock()
	e.ch <- "still"
}

func (e *events) onMove(kind string) {
	e.mu.Lock()
	e.moves = append(e.moves, kind)
	e.mu.Unlock()
	e.ch <- "move:" + kind
}

func (e *events) wait(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-e.ch:
		if got != want {
			t.Fatalf("unexpected event: got=%s want=%s", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", want)
	}
}

func (e *events) none(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case got := <-e.ch:
		t.Fatalf("unexpected event: %s", got)
	case <-time.After(d):
	}
}

func TestDetectorGoesStillAndMoves(t *testing.T) {
	ev := newEvents()
	d := NewDetector(20*time.Millisecond, ev.onStill, ev.onMove)
	d.Suppress = 0
	d.Start()
	t.Cleanup(d.Stop)

	ev.wait(t, "still")
	if !d.Still() {
		t.Fatalf("detector should be still")
	}

	d.Activity("keydown")
	ev.wait(t, "move:keydown")
	if d.Still() {
		t.Fatalf("activity should leave the still state")
	}

	ev.wait(t, "still")
}

func TestActivityDelaysStillness(t *testing.T) {
	ev := newEvents()
	d := NewDetector(80*time.Millisecond, ev.onStill, ev.onMove)
	d.Start()
	t.Cleanup(d.Stop)

	for i := 0; i < 4; i++ {
		time.Sleep(30 * time.Millisecond)
		d.Activity("mousemove")
	}
	if d.Still() {
		t.Fatalf("regular activity should keep the viewer active")
	}
	ev.wait(t, "still")
}

func TestSuppressWindowIgnoresActivity(t *testing.T) {
	ev := newEvents()
	base := time.Unix(1000, 0)
	var mu sync.Mutex
	now := base

	d := NewDetector(10*time.Millisecond, ev.onStill, ev.onMove)
	d.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	d.Start()
	t.Cleanup(d.Stop)

	ev.wait(t, "still")

	mu.Lock()
	now = base.Add(time.Second)
	mu.Unlock()
	d.Activity("click")
	if !d.Still() {
		t.Fatalf("activity inside the suppress window should be ignored")
	}

	mu.Lock()
	now = base.Add(3 * time.Second)
	mu.Unlock()
	d.Activity("click")
	ev.wait(t, "move:click")
}

func TestStopPreventsCallbacks(t *testing.T) {
	ev := newEvents()
	d := NewDetector(20*time.Millisecond, ev.onStill, ev.onMove)
	d.Start()
	d.Stop()

	ev.none(t, 60*time.Millisecond)
	d.Activity("keydown")
	ev.none(t, 40*time.Millisecond)
}

func TestDefaults(t *testing.T) {
	d := NewDetector(0, nil, nil)
	if d.Timeout != DefaultTimeout || d.Suppress != DefaultSuppress {
		t.Fatalf("unexpected defaults: timeout=%v suppress=%v", d.Timeout, d.Suppress)
	}
}
