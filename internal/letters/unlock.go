// Package letters computes when date-gated letters open for a viewer.
package letters

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ichi0g0y/keepsake/internal/types"
)

const (
	// DefaultGraceDays は relative 解放に足す猶予日数
	DefaultGraceDays = 2

	isoDateLayout = "2006-01-02"
	labelLayout   = "January 2, 2006"
)

// Status は1通の手紙の解放状態
type Status struct {
	Unlocked bool `json:"is_unlocked"`
	// DaysUntilUnlock は解放済み、または解放日を計算できない場合は nil
	DaysUntilUnlock *int       `json:"days_until_unlock"`
	UnlockDate      *time.Time `json:"unlock_date,omitempty"`
	UnlockDateLabel string     `json:"unlock_date_label"`
}

// Calculator は日単位（ローカル時刻）で解放を判定する
type Calculator struct {
	GraceDays int
	Location  *time.Location
}

// NewCalculator returns a calculator; a nil location means time.Local.
func NewCalculator(graceDays int, loc *time.Location) Calculator {
	if graceDays < 0 {
		graceDays = 0
	}
	return Calculator{GraceDays: graceDays, Location: loc}
}

func (c Calculator) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// startOfDay は時刻部分を落とした日付（ローカル）
func (c Calculator) startOfDay(t time.Time) time.Time {
	t = t.In(c.location())
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.location())
}

// UnlockDate は手紙の解放日を返す。計算できない場合は ok=false。
// firstVisit がゼロ値なら now を初回訪問とみなす。
func (c Calculator) UnlockDate(l types.Letter, firstVisit, now time.Time) (time.Time, bool) {
	switch l.UnlockType {
	case types.UnlockAbsolute:
		raw := strings.TrimSpace(l.UnlockDate)
		if len(raw) > len(isoDateLayout) {
			raw = raw[:len(isoDateLayout)]
		}
		// UTCの0時として解釈すると西側のタイムゾーンで1日ずれるのでローカル日付で読む
		d, err := time.ParseInLocation(isoDateLayout, raw, c.location())
		if err != nil {
			return time.Time{}, false
		}
		return d, true
	case types.UnlockRelative:
		offset, err := strconv.Atoi(strings.TrimSpace(l.UnlockDate))
		if err != nil {
			return time.Time{}, false
		}
		if firstVisit.IsZero() {
			firstVisit = now
		}
		return c.startOfDay(firstVisit).AddDate(0, 0, offset+c.GraceDays), true
	default:
		return time.Time{}, false
	}
}

// ValidUnlockDate reports whether the unlock date of l can be computed.
// absolute は YYYY-MM-DD（ゼロ埋め）、relative は整数の日数のみ受け付ける。
func ValidUnlockDate(l types.Letter) bool {
	_, ok := Calculator{Location: time.UTC}.UnlockDate(l, time.Time{}, time.Time{})
	return ok
}

// Evaluate returns the unlock status of l at now. Unknown unlock types and
// malformed dates stay locked without a countdown.
func (c Calculator) Evaluate(l types.Letter, firstVisit, now time.Time) Status {
	unlockDate, ok := c.UnlockDate(l, firstVisit, now)
	if !ok {
		return Status{}
	}

	today := c.startOfDay(now)
	status := Status{
		Unlocked:        !today.Before(unlockDate),
		UnlockDate:      &unlockDate,
		UnlockDateLabel: unlockDate.Format(labelLayout),
	}
	if days := daysBetween(today, unlockDate); !status.Unlocked && days > 0 {
		status.DaysUntilUnlock = &days
	}
	return status
}

// CanOpen は解放済みの手紙だけ開けるようにする
func (c Calculator) CanOpen(l types.Letter, firstVisit, now time.Time) bool {
	return c.Evaluate(l, firstVisit, now).Unlocked
}

// daysBetween は暦日の差（DSTの23/25時間の日に影響されない）
func daysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// Sort returns a copy ordered by PositionOrder; ties keep their input order.
func Sort(letters []types.Letter) []types.Letter {
	out := make([]types.Letter, len(letters))
	copy(out, letters)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PositionOrder < out[j].PositionOrder
	})
	return out
}

// Entry は表示用に手紙・解放状態・閲覧者の状態をまとめたもの
type Entry struct {
	Letter types.Letter      `json:"letter"`
	Status Status            `json:"status"`
	State  types.LetterState `json:"state"`
}

// Board は表示順に並べた手紙一覧を返す。ロック中の手紙も枠を保持する。
func (c Calculator) Board(letters []types.Letter, states map[string]types.LetterState, firstVisit, now time.Time) []Entry {
	sorted := Sort(letters)
	entries := make([]Entry, 0, len(sorted))
	for _, l := range sorted {
		state, ok := states[l.Key]
		if !ok {
			state = types.LetterState{LetterKey: l.Key}
		}
		entries = append(entries, Entry{
			Letter: l,
			Status: c.Evaluate(l, firstVisit, now),
			State:  state,
		})
	}
	return entries
}

// StatesByKey indexes letter states by letter key.
func StatesByKey(states []types.LetterState) map[string]types.LetterState {
	out := make(map[string]types.LetterState, len(states))
	for _, s := range states {
		out[s.LetterKey] = s
	}
	return out
}
