package gating

import (
	"sync"
	"time"

	"github.com/ichi0g0y/keepsake/internal/atmosphere"
	"github.com/ichi0g0y/keepsake/internal/types"
)

// DeltaSink は開封の差分を外部ストアへ送る先。結果を待たない（fire-and-forget）。
type DeltaSink interface {
	RecordDelta(viewerID, itemID string, kind types.RevealKind)
	RecordReset(viewerID string, sessionStart time.Time)
}

type nopSink struct{}

func (nopSink) RecordDelta(string, string, types.RevealKind) {}
func (nopSink) RecordReset(string, time.Time)                {}

// RejectReason は開封が拒否された理由
type RejectReason string

const (
	RejectNone            RejectReason = ""
	RejectUnknownLantern  RejectReason = "unknown_lantern"
	RejectNotInteractable RejectReason = "not_interactable"
)

// OpenResult は Open の結果
type OpenResult struct {
	Lantern  types.Lantern `json:"lantern"`
	Accepted bool          `json:"accepted"`
	Reason   RejectReason  `json:"reason,omitempty"`
	// Recorded は今回初めて記録されたかどうか（再オープンでは false）
	Recorded bool             `json:"recorded"`
	Reveal   types.RevealKind `json:"reveal,omitempty"`
}

// ContinueState は次の層へ進むボタンの状態
type ContinueState struct {
	Enabled  bool `json:"enabled"`
	Complete bool `json:"complete"`
	Opened   int  `json:"opened"`
	Goal     int  `json:"goal"`
}

// Session は1人の閲覧者の進行状況を保持し、開封操作だけがそれを変更する。
type Session struct {
	mu       sync.Mutex
	engine   *Engine
	viewerID string
	progress types.Progress
	sink     DeltaSink
}

// NewSession starts a session from the given progress. A nil sink discards deltas.
func NewSession(engine *Engine, viewerID string, progress types.Progress, sink DeltaSink) *Session {
	if sink == nil {
		sink = nopSink{}
	}
	p := progress.Clone()
	if p.SessionStart.IsZero() {
		p.SessionStart = engine.Now()
	}
	return &Session{
		engine:   engine,
		viewerID: viewerID,
		progress: p,
		sink:     sink,
	}
}

func (s *Session) ViewerID() string {
	return s.viewerID
}

func (s *Session) Engine() *Engine {
	return s.engine
}

// Progress returns a copy of the current progress.
func (s *Session) Progress() types.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress.Clone()
}

// Merge は他のプロセスが保存した進行状況を取り込む。sink には送らない。
// stored の起点が新しければ外部でリセットされたとみなして置き換え、
// 古ければ（自分のリセットがまだ保存されていない）無視し、同じなら和集合をとる。
func (s *Session) Merge(stored types.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case stored.SessionStart.IsZero() || stored.SessionStart.Equal(s.progress.SessionStart):
	case stored.SessionStart.After(s.progress.SessionStart):
		s.progress = stored.Clone()
		return
	default:
		return
	}
	for id := range stored.OpenedStandardIDs {
		s.progress.OpenedStandardIDs.Add(id)
	}
	for id := range stored.RevealedSecretIDs {
		s.progress.RevealedSecretIDs.Add(id)
	}
}

// Open は開封を試みる。開けない場合は状態を変えずに拒否する。
func (s *Session) Open(id string) OpenResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.engine.Lookup(id)
	if !ok {
		return OpenResult{Reason: RejectUnknownLantern}
	}
	if !s.engine.IsInteractable(item, s.progress) {
		return OpenResult{Lantern: item, Reason: RejectNotInteractable}
	}

	result := OpenResult{Lantern: item, Accepted: true}
	switch {
	case item.Kind == types.KindStandard:
		result.Reveal = types.RevealOpened
		result.Recorded = s.progress.OpenedStandardIDs.Add(item.ID)
	case item.Kind.IsSecret():
		result.Reveal = types.RevealSecret
		result.Recorded = s.progress.RevealedSecretIDs.Add(item.ID)
	}

	if result.Recorded {
		s.sink.RecordDelta(s.viewerID, item.ID, result.Reveal)
	}
	return result
}

// Reset は進行状況を空にして時間ゲートの起点を now にする
func (s *Session) Reset(now time.Time) {
	s.mu.Lock()
	s.progress = types.NewProgress(now)
	s.mu.Unlock()
	s.sink.RecordReset(s.viewerID, now)
}

// Decisions evaluates all lanterns against the current progress.
func (s *Session) Decisions() []Decision {
	return s.engine.DecideAll(s.Progress())
}

// Atmosphere は解放済みの秘密の数から雰囲気を求める
func (s *Session) Atmosphere() atmosphere.Params {
	return atmosphere.Derive(s.Progress().RevealedCount())
}

// Continue reports whether the viewer opened enough standard lanterns to move on.
func (s *Session) Continue() ContinueState {
	opened := s.Progress().OpenedCount()
	cfg := s.engine.Config()
	return ContinueState{
		Enabled:  opened >= cfg.ContinueMinOpened,
		Complete: opened >= cfg.ContinueGoalOpened,
		Opened:   opened,
		Goal:     cfg.ContinueGoalOpened,
	}
}

// SkipUnlocked は skip-layer 効果を持つ秘密が解放済みかどうか
func (s *Session) SkipUnlocked() bool {
	p := s.Progress()
	for id := range p.RevealedSecretIDs {
		if l, ok := s.engine.Lookup(id); ok && l.RevealEffect == types.EffectSkipLayer {
			return true
		}
	}
	return false
}
