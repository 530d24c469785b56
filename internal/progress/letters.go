package progress

import (
	"errors"
	"time"

	"github.com/ichi0g0y/keepsake/internal/letters"
	"github.com/ichi0g0y/keepsake/internal/localdb"
	"github.com/ichi0g0y/keepsake/internal/types"
)

// ErrLetterLocked は解放前の手紙を開こうとしたときに返る
var ErrLetterLocked = errors.New("letter is still locked")

// LetterStore は手紙の既読・ブックマークを localdb に保存する
type LetterStore struct {
	calc letters.Calculator
	now  func() time.Time
}

func NewLetterStore(calc letters.Calculator) *LetterStore {
	return &LetterStore{calc: calc, now: time.Now}
}

// FirstVisit returns the viewer's first visit, recording it on the first call.
func (s *LetterStore) FirstVisit(viewerID string) (time.Time, error) {
	return localdb.EnsureUserVisit(viewerID, s.now())
}

func (s *LetterStore) LetterStates(viewerID string) (map[string]types.LetterState, error) {
	states, err := localdb.GetLetterStates(viewerID)
	if err != nil {
		return map[string]types.LetterState{}, err
	}
	return letters.StatesByKey(states), nil
}

// Board は表示順の手紙一覧を解放状態つきで返す
func (s *LetterStore) Board(viewerID string, all []types.Letter) ([]letters.Entry, error) {
	firstVisit, err := s.FirstVisit(viewerID)
	if err != nil {
		return nil, err
	}
	states, err := s.LetterStates(viewerID)
	if err != nil {
		return nil, err
	}
	return s.calc.Board(all, states, firstVisit, s.now()), nil
}

// MarkLetterOpened は解放済みの手紙だけ既読にする
func (s *LetterStore) MarkLetterOpened(viewerID string, l types.Letter) error {
	firstVisit, err := s.FirstVisit(viewerID)
	if err != nil {
		return err
	}
	now := s.now()
	if !s.calc.CanOpen(l, firstVisit, now) {
		return ErrLetterLocked
	}
	opened := true
	return localdb.UpsertLetterState(viewerID, l.Key, localdb.LetterStateUpdate{
		IsOpened: &opened,
		OpenedAt: &now,
	}, now)
}

func (s *LetterStore) ToggleBookmark(viewerID, letterKey string) (bool, error) {
	return localdb.ToggleLetterBookmark(viewerID, letterKey, s.now())
}
