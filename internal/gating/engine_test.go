package gating

import (
	"testing"
	"time"

	"github.com/ichi0g0y/keepsake/internal/types"
)

func TestEngine_StandardAlwaysOpen(t *testing.T) {
	e := NewEngine(testCatalog(), DefaultConfig(), WithClock(newFakeClock(baseTime).Now))
	item, _ := e.Lookup("std-1")
	p := types.NewProgress(baseTime)
	if !e.IsVisible(item, p) || !e.IsInteractable(item, p) {
		t.Fatalf("standard lantern should be visible and interactable")
	}
}

func TestEngine_LockedByTime(t *testing.T) {
	clock := newFakeClock(baseTime)
	e := NewEngine(testCatalog(), DefaultConfig(), WithClock(clock.Now))
	item, _ := e.Lookup("locked-1")
	p := types.NewProgress(baseTime)

	if !e.IsVisible(item, p) {
		t.Fatalf("locked lantern should always be visible")
	}
	if e.IsInteractable(item, p) {
		t.Fatalf("locked lantern should not be interactable at session start")
	}

	d := e.Decide(item, p)
	if !d.Locked || d.Placeholder != PlaceholderTimeLocked {
		t.Fatalf("unexpected decision before delay: %+v", d)
	}
	if d.UnlocksIn != 90*time.Second {
		t.Fatalf("unexpected UnlocksIn: got=%v want=%v", d.UnlocksIn, 90*time.Second)
	}

	clock.Advance(90*time.Second - time.Millisecond)
	if e.IsInteractable(item, p) {
		t.Fatalf("locked lantern opened before the delay elapsed")
	}

	clock.Advance(time.Millisecond)
	if !e.IsInteractable(item, p) {
		t.Fatalf("locked lantern should open once the delay elapsed")
	}
	if d := e.Decide(item, p); d.Locked || d.Placeholder != PlaceholderNone {
		t.Fatalf("unexpected decision after delay: %+v", d)
	}
}

func TestEngine_LockedPerItemThreshold(t *testing.T) {
	tests := []struct {
		name      string
		threshold *time.Duration
		elapsed   time.Duration
		expect    bool
	}{
		{name: "shorter than default", threshold: types.Delay(5 * time.Second), elapsed: 5 * time.Second, expect: true},
		{name: "explicit zero opens immediately", threshold: types.Delay(0), elapsed: 0, expect: true},
		{name: "negative clamps to zero", threshold: types.Delay(-time.Second), elapsed: 0, expect: true},
		{name: "nil uses default", threshold: nil, elapsed: 5 * time.Second, expect: false},
		{name: "longer than default", threshold: types.Delay(1000 * time.Hour), elapsed: 91 * time.Second, expect: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			clock := newFakeClock(baseTime)
			item := types.Lantern{ID: "quick", Kind: types.KindLocked, Rule: types.UnlockRule{TimeThreshold: tc.threshold}}
			e := NewEngine([]types.Lantern{item}, DefaultConfig(), WithClock(clock.Now))
			p := types.NewProgress(baseTime)

			clock.Advance(tc.elapsed)
			if got := e.IsInteractable(item, p); got != tc.expect {
				t.Fatalf("IsInteractable() got=%v want=%v", got, tc.expect)
			}
		})
	}
}

func TestEngine_GoldenThreshold(t *testing.T) {
	e := NewEngine(testCatalog(), DefaultConfig(), WithClock(newFakeClock(baseTime).Now))
	item, _ := e.Lookup("golden-1")

	tests := []struct {
		name   string
		opened []string
		expect bool
	}{
		{name: "none opened", opened: nil, expect: false},
		{name: "two opened", opened: []string{"std-1", "std-2"}, expect: false},
		{name: "three opened", opened: []string{"std-1", "std-2", "std-3"}, expect: true},
		{name: "five opened", opened: []string{"std-1", "std-2", "std-3", "std-4", "std-5"}, expect: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			p := progressWith(tc.opened, nil, baseTime)
			if got := e.IsVisible(item, p); got != tc.expect {
				t.Fatalf("IsVisible() = %v, want %v", got, tc.expect)
			}
			if got := e.IsInteractable(item, p); got != tc.expect {
				t.Fatalf("IsInteractable() = %v, want %v", got, tc.expect)
			}
		})
	}
}

func TestEngine_GoldenDefaultThresholdFromConfig(t *testing.T) {
	item := types.Lantern{ID: "g", Kind: types.KindGolden}
	cfg := DefaultConfig()
	cfg.GoldenThreshold = 1
	e := NewEngine([]types.Lantern{item}, cfg)

	if e.IsVisible(item, types.NewProgress(baseTime)) {
		t.Fatalf("golden should be hidden with zero opened")
	}
	if !e.IsVisible(item, progressWith([]string{"x"}, nil, baseTime)) {
		t.Fatalf("golden should use the configured default threshold")
	}
}

func TestEngine_HiddenPlaceholder(t *testing.T) {
	e := NewEngine(testCatalog(), DefaultConfig())
	item, _ := e.Lookup("hidden-1")

	d := e.Decide(item, progressWith([]string{"std-1"}, nil, baseTime))
	if d.Visible || d.Interactable {
		t.Fatalf("hidden should not be visible below threshold: %+v", d)
	}
	if d.Placeholder != PlaceholderHiddenUnrevealed {
		t.Fatalf("unexpected placeholder: got=%q want=%q", d.Placeholder, PlaceholderHiddenUnrevealed)
	}
	if d.OpensRemaining != 3 {
		t.Fatalf("unexpected OpensRemaining: got=%d want=3", d.OpensRemaining)
	}
	if got := d.DisplayTitle(item); got != UnknownTitle {
		t.Fatalf("hidden title should be masked: got=%q", got)
	}

	d = e.Decide(item, progressWith([]string{"std-1", "std-2", "std-3", "std-4"}, nil, baseTime))
	if !d.Visible || !d.Interactable || d.Placeholder != PlaceholderNone {
		t.Fatalf("hidden should be revealed at threshold: %+v", d)
	}
	if got := d.DisplayTitle(item); got != "Hidden" {
		t.Fatalf("unexpected title after reveal: got=%q", got)
	}
}

func TestEngine_RevelationRequiresAllSecrets(t *testing.T) {
	e := NewEngine(testCatalog(), DefaultConfig())
	item, _ := e.Lookup("rev-1")
	allOpened := []string{"std-1", "std-2", "std-3", "std-4", "std-5"}

	tests := []struct {
		name     string
		opened   []string
		revealed []string
		expect   bool
	}{
		{name: "nothing revealed", opened: allOpened, revealed: nil, expect: false},
		{name: "only locked revealed", opened: allOpened, revealed: []string{"locked-1"}, expect: false},
		{name: "only hidden revealed", opened: allOpened, revealed: []string{"hidden-1"}, expect: false},
		{name: "both revealed", opened: nil, revealed: []string{"locked-1", "hidden-1"}, expect: true},
		{name: "both revealed and many opened", opened: allOpened, revealed: []string{"locked-1", "hidden-1"}, expect: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			p := progressWith(tc.opened, tc.revealed, baseTime)
			if got := e.IsVisible(item, p); got != tc.expect {
				t.Fatalf("IsVisible() = %v, want %v", got, tc.expect)
			}
			if got := e.IsInteractable(item, p); got != tc.expect {
				t.Fatalf("IsInteractable() = %v, want %v", got, tc.expect)
			}
		})
	}
}

func TestEngine_RevelationCountGate(t *testing.T) {
	item := types.Lantern{ID: "rev", Kind: types.KindRevelation, Rule: types.UnlockRule{OpenedCountThreshold: types.Threshold(2)}}
	e := NewEngine([]types.Lantern{item}, DefaultConfig())

	// locked/hidden が存在しない場合は開封数だけで決まる
	if e.IsVisible(item, progressWith([]string{"a"}, nil, baseTime)) {
		t.Fatalf("revelation should respect the count threshold")
	}
	if !e.IsVisible(item, progressWith([]string{"a", "b"}, nil, baseTime)) {
		t.Fatalf("revelation should be visible once the count is reached")
	}
}

func TestEngine_UnknownKindFailsClosed(t *testing.T) {
	item := types.Lantern{ID: "odd", Kind: "sparkly"}
	e := NewEngine([]types.Lantern{item}, DefaultConfig())
	p := progressWith([]string{"a", "b", "c", "d", "e", "f"}, nil, baseTime)

	if e.IsVisible(item, p) || e.IsInteractable(item, p) {
		t.Fatalf("unknown kind must not be visible or interactable")
	}
	d := e.Decide(item, p)
	if d.Visible || d.Interactable || !d.Locked || d.Placeholder != PlaceholderUnknownKind {
		t.Fatalf("unexpected decision for unknown kind: %+v", d)
	}
}

func TestEngine_ThresholdMonotonic(t *testing.T) {
	e := NewEngine(testCatalog(), DefaultConfig())
	item, _ := e.Lookup("golden-1")
	p := types.NewProgress(baseTime)

	seen := false
	for _, id := range []string{"std-1", "std-2", "std-3", "std-4", "std-5"} {
		p.OpenedStandardIDs.Add(id)
		visible := e.IsVisible(item, p)
		if seen && !visible {
			t.Fatalf("golden became invisible again after %s", id)
		}
		seen = seen || visible
	}
	if !seen {
		t.Fatalf("golden never became visible")
	}
}

func TestEngine_DecideAllOrderAndDuplicates(t *testing.T) {
	catalog := append(testCatalog(), types.Lantern{ID: "std-1", Kind: types.KindGolden})
	e := NewEngine(catalog, DefaultConfig())

	decisions := e.DecideAll(types.NewProgress(baseTime))
	if len(decisions) != 9 {
		t.Fatalf("unexpected decision count: got=%d want=9", len(decisions))
	}
	if decisions[0].ID != "std-1" || !decisions[0].Interactable {
		t.Fatalf("first definition of a duplicate id should win: %+v", decisions[0])
	}
	if decisions[8].ID != "rev-1" {
		t.Fatalf("decisions should follow catalog order: last=%q", decisions[8].ID)
	}
}

func TestConfig_Normalize(t *testing.T) {
	cfg := Config{LockedDelay: -time.Second, GoldenThreshold: -1, ContinueMinOpened: 4, ContinueGoalOpened: 2}.normalize()
	if cfg.LockedDelay != 0 || cfg.GoldenThreshold != 0 {
		t.Fatalf("negative values should clamp to zero: %+v", cfg)
	}
	if cfg.ContinueGoalOpened != 4 {
		t.Fatalf("goal should not be below min: got=%d", cfg.ContinueGoalOpened)
	}
}
