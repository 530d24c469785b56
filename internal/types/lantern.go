package types

import (
	"sort"
	"time"
)

// LanternKind はランタンの種類（解放ルールの種別）
type LanternKind string

const (
	KindStandard   LanternKind = "standard"
	KindLocked     LanternKind = "locked"
	KindGolden     LanternKind = "golden"
	KindHidden     LanternKind = "hidden"
	KindRevelation LanternKind = "revelation"
)

// IsSecret は開くと「秘密の解放」として数える種類かどうか
func (k LanternKind) IsSecret() bool {
	return k == KindLocked || k == KindHidden || k == KindRevelation
}

// EffectSkipLayer は解放すると次の層へのスキップを許可する演出
const EffectSkipLayer = "skip-layer"

// UnlockRule はランタンの解放条件。
// nil のフィールドはエンジン設定の既定値を使う。
type UnlockRule struct {
	OpenedCountThreshold *int           `json:"opened_count_threshold,omitempty"`
	TimeThreshold        *time.Duration `json:"time_threshold,omitempty"` // locked のみ。0なら即時
}

// Lantern は道の上に置かれる1つのコンテンツ
type Lantern struct {
	ID            string      `json:"id"`
	Kind          LanternKind `json:"kind"`
	Title         string      `json:"title"`
	Content       string      `json:"content"`
	Rule          UnlockRule  `json:"unlock_rule"`
	RevealMessage string      `json:"reveal_message,omitempty"`
	RevealEffect  string      `json:"reveal_effect,omitempty"`
}

// Threshold returns a pointer to n for use in UnlockRule literals.
func Threshold(n int) *int {
	return &n
}

// Delay returns a pointer to d for use in UnlockRule literals.
func Delay(d time.Duration) *time.Duration {
	return &d
}

// RevealKind は保存時の記録種別
type RevealKind string

const (
	RevealOpened RevealKind = "opened" // standard を開いた
	RevealSecret RevealKind = "secret" // locked/hidden/revelation を開いた
)

// IDSet is a set of lantern ids. Adding an existing id is a no-op.
type IDSet map[string]struct{}

func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add は追加されたら true を返す（既に存在する場合は false）
func (s IDSet) Add(id string) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

func (s IDSet) Len() int {
	return len(s)
}

// Sorted returns the ids in lexical order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Progress は閲覧者ごとの進行状況（セッション単位）
type Progress struct {
	OpenedStandardIDs IDSet     `json:"opened_standard_ids"`
	RevealedSecretIDs IDSet     `json:"revealed_secret_ids"`
	SessionStart      time.Time `json:"session_start"`
}

// NewProgress returns empty progress whose time-gate clock starts at now.
func NewProgress(now time.Time) Progress {
	return Progress{
		OpenedStandardIDs: IDSet{},
		RevealedSecretIDs: IDSet{},
		SessionStart:      now,
	}
}

// Clone はマップを複製したコピーを返す
func (p Progress) Clone() Progress {
	return Progress{
		OpenedStandardIDs: p.OpenedStandardIDs.Clone(),
		RevealedSecretIDs: p.RevealedSecretIDs.Clone(),
		SessionStart:      p.SessionStart,
	}
}

// OpenedCount は閾値判定に使う standard の開封数
func (p Progress) OpenedCount() int {
	return p.OpenedStandardIDs.Len()
}

// RevealedCount は解放済みの秘密の数
func (p Progress) RevealedCount() int {
	return p.RevealedSecretIDs.Len()
}
