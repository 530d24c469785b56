// Package gating decides which lanterns are visible and clickable for a viewer.
package gating

import (
	"time"

	"github.com/ichi0g0y/keepsake/internal/types"
)

// PlaceholderReason は表示できない/開けない理由
type PlaceholderReason string

const (
	PlaceholderNone             PlaceholderReason = ""
	PlaceholderTimeLocked       PlaceholderReason = "time_locked"
	PlaceholderHiddenUnrevealed PlaceholderReason = "hidden_unrevealed"
	PlaceholderNotYetVisible    PlaceholderReason = "not_yet_visible"
	PlaceholderUnknownKind      PlaceholderReason = "unknown_kind"
)

// UnknownTitle は未解放の hidden に表示するタイトル
const UnknownTitle = "?"

// Decision は1つのランタンに対する判定結果
type Decision struct {
	ID           string            `json:"id"`
	Visible      bool              `json:"visible"`
	Interactable bool              `json:"interactable"`
	Locked       bool              `json:"locked"`
	Placeholder  PlaceholderReason `json:"placeholder_reason,omitempty"`
	// OpensRemaining は閾値まであと何個 standard を開く必要があるか
	OpensRemaining int `json:"opens_remaining,omitempty"`
	// UnlocksIn は locked が開けるようになるまでの残り時間
	UnlocksIn time.Duration `json:"unlocks_in,omitempty"`
}

// DisplayTitle は placeholder の場合にタイトルを伏せる
func (d Decision) DisplayTitle(l types.Lantern) string {
	if d.Placeholder == PlaceholderHiddenUnrevealed {
		return UnknownTitle
	}
	return l.Title
}

// kindRule は種類ごとの判定。種類を増やすときはここに1つ追加する。
type kindRule struct {
	visible      func(e *Engine, item types.Lantern, p types.Progress, now time.Time) bool
	interactable func(e *Engine, item types.Lantern, p types.Progress, now time.Time) bool
	placeholder  PlaceholderReason
}

var kindRules = map[types.LanternKind]kindRule{
	types.KindStandard: {
		visible:      always,
		interactable: always,
	},
	types.KindLocked: {
		visible:      always,
		interactable: (*Engine).timeReached,
		placeholder:  PlaceholderTimeLocked,
	},
	types.KindGolden: {
		visible:      (*Engine).countReached,
		interactable: (*Engine).countReached,
		placeholder:  PlaceholderNotYetVisible,
	},
	types.KindHidden: {
		visible:      (*Engine).countReached,
		interactable: (*Engine).countReached,
		placeholder:  PlaceholderHiddenUnrevealed,
	},
	types.KindRevelation: {
		visible:      (*Engine).revelationReached,
		interactable: (*Engine).revelationReached,
		placeholder:  PlaceholderNotYetVisible,
	},
}

func always(*Engine, types.Lantern, types.Progress, time.Time) bool { return true }

// Engine は全ランタン集合と設定を持つ判定器。進行状況はキャッシュしない。
type Engine struct {
	cfg       Config
	lanterns  []types.Lantern
	byID      map[string]types.Lantern
	secretIDs []string // revelation の前提となる locked/hidden
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now (tests, replay).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine builds an engine over the full combined lantern set.
// lanterns は表示順を保持する。重複IDは先勝ち。
func NewEngine(lanterns []types.Lantern, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg.normalize(),
		lanterns: make([]types.Lantern, 0, len(lanterns)),
		byID:     make(map[string]types.Lantern, len(lanterns)),
		now:      time.Now,
	}
	for _, l := range lanterns {
		if _, dup := e.byID[l.ID]; dup {
			continue
		}
		e.byID[l.ID] = l
		e.lanterns = append(e.lanterns, l)
		if l.Kind == types.KindLocked || l.Kind == types.KindHidden {
			e.secretIDs = append(e.secretIDs, l.ID)
		}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Lanterns returns the catalog in input order.
func (e *Engine) Lanterns() []types.Lantern {
	out := make([]types.Lantern, len(e.lanterns))
	copy(out, e.lanterns)
	return out
}

// Lookup finds a lantern by id.
func (e *Engine) Lookup(id string) (types.Lantern, bool) {
	l, ok := e.byID[id]
	return l, ok
}

// Now は判定に使う現在時刻
func (e *Engine) Now() time.Time {
	return e.now()
}

// IsVisible は表示すべきかどうか。未知の種類は常に false。
func (e *Engine) IsVisible(item types.Lantern, p types.Progress) bool {
	rule, ok := kindRules[item.Kind]
	if !ok {
		return false
	}
	return rule.visible(e, item, p, e.now())
}

// IsInteractable は開けるかどうか。未知の種類は常に false。
func (e *Engine) IsInteractable(item types.Lantern, p types.Progress) bool {
	rule, ok := kindRules[item.Kind]
	if !ok {
		return false
	}
	now := e.now()
	return rule.visible(e, item, p, now) && rule.interactable(e, item, p, now)
}

// Decide evaluates every predicate for one lantern at a single instant.
func (e *Engine) Decide(item types.Lantern, p types.Progress) Decision {
	return e.decideAt(item, p, e.now())
}

// DecideAll はカタログ順に全ランタンを判定する
func (e *Engine) DecideAll(p types.Progress) []Decision {
	now := e.now()
	decisions := make([]Decision, 0, len(e.lanterns))
	for _, l := range e.lanterns {
		decisions = append(decisions, e.decideAt(l, p, now))
	}
	return decisions
}

func (e *Engine) decideAt(item types.Lantern, p types.Progress, now time.Time) Decision {
	d := Decision{ID: item.ID}
	rule, ok := kindRules[item.Kind]
	if !ok {
		d.Locked = true
		d.Placeholder = PlaceholderUnknownKind
		return d
	}

	d.Visible = rule.visible(e, item, p, now)
	d.Interactable = d.Visible && rule.interactable(e, item, p, now)
	if d.Interactable {
		return d
	}

	d.Locked = true
	d.Placeholder = rule.placeholder
	switch item.Kind {
	case types.KindLocked:
		d.UnlocksIn = e.lockDelay(item) - now.Sub(p.SessionStart)
		if d.UnlocksIn < 0 {
			d.UnlocksIn = 0
		}
	case types.KindGolden, types.KindHidden, types.KindRevelation:
		if remaining := e.threshold(item) - p.OpenedCount(); remaining > 0 {
			d.OpensRemaining = remaining
		}
	}
	return d
}

func (e *Engine) lockDelay(item types.Lantern) time.Duration {
	d := item.Rule.TimeThreshold
	if d == nil {
		return e.cfg.LockedDelay
	}
	if *d < 0 {
		return 0
	}
	return *d
}

func (e *Engine) threshold(item types.Lantern) int {
	if t := item.Rule.OpenedCountThreshold; t != nil {
		if *t < 0 {
			return 0
		}
		return *t
	}
	switch item.Kind {
	case types.KindGolden:
		return e.cfg.GoldenThreshold
	case types.KindHidden:
		return e.cfg.HiddenThreshold
	case types.KindRevelation:
		return e.cfg.RevelationThreshold
	}
	return 0
}

func (e *Engine) timeReached(item types.Lantern, p types.Progress, now time.Time) bool {
	return now.Sub(p.SessionStart) >= e.lockDelay(item)
}

func (e *Engine) countReached(item types.Lantern, p types.Progress, _ time.Time) bool {
	return p.OpenedCount() >= e.threshold(item)
}

// revelationReached は開封数の閾値と、全 locked/hidden の解放の両方を要求する
func (e *Engine) revelationReached(item types.Lantern, p types.Progress, now time.Time) bool {
	if !e.countReached(item, p, now) {
		return false
	}
	for _, id := range e.secretIDs {
		if !p.RevealedSecretIDs.Has(id) {
			return false
		}
	}
	return true
}
