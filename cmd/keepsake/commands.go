package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ichi0g0y/keepsake/internal/atmosphere"
	"github.com/ichi0g0y/keepsake/internal/gating"
	"github.com/ichi0g0y/keepsake/internal/letters"
	"github.com/ichi0g0y/keepsake/internal/progress"
	"github.com/ichi0g0y/keepsake/internal/roadpath"
	"github.com/ichi0g0y/keepsake/internal/shared/logger"
	"github.com/ichi0g0y/keepsake/internal/stillness"
	"github.com/ichi0g0y/keepsake/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	errUsage    = errors.New("usage")
	errRejected = errors.New("rejected")
)

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string, in io.Reader, out io.Writer) error
}

var commands = map[string]command{
	"walk":     {usage: "walk", run: runWalk},
	"open":     {usage: "open <lantern-id>", run: runOpen},
	"letters":  {usage: "letters", run: runLetters},
	"read":     {usage: "read <letter-key>", run: runRead},
	"bookmark": {usage: "bookmark <letter-key>", run: runBookmark},
	"reset":    {usage: "reset", run: runReset},
	"watch":    {usage: "watch", run: runWatch},
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// lanternView は道の上の1つのランタン。開けないものは本文を出さない。
type lanternView struct {
	roadpath.Position
	Kind     types.LanternKind `json:"kind"`
	Title    string            `json:"title"`
	Decision gating.Decision   `json:"decision"`
}

type walkView struct {
	ViewerID     string               `json:"user_identifier"`
	Lanterns     []lanternView        `json:"lanterns"`
	Opened       []string             `json:"opened"`
	Revealed     []string             `json:"revealed"`
	Atmosphere   atmosphere.Params    `json:"atmosphere"`
	Continue     gating.ContinueState `json:"continue"`
	SkipUnlocked bool                 `json:"skip_unlocked"`
}

func buildWalk(a *app) walkView {
	p := a.session.Progress()
	decisions := make(map[string]gating.Decision, len(a.catalog.Lanterns))
	for _, d := range a.engine.DecideAll(p) {
		decisions[d.ID] = d
	}

	placed := roadpath.Join(roadpath.Generate(a.catalog.Lanterns, a.viewerID), a.catalog.Lanterns)
	views := make([]lanternView, 0, len(placed))
	for _, pl := range placed {
		d := decisions[pl.ID]
		views = append(views, lanternView{
			Position: pl.Position,
			Kind:     pl.Lantern.Kind,
			Title:    d.DisplayTitle(pl.Lantern),
			Decision: d,
		})
	}

	return walkView{
		ViewerID:     a.viewerID,
		Lanterns:     views,
		Opened:       p.OpenedStandardIDs.Sorted(),
		Revealed:     p.RevealedSecretIDs.Sorted(),
		Atmosphere:   a.session.Atmosphere(),
		Continue:     a.session.Continue(),
		SkipUnlocked: a.session.SkipUnlocked(),
	}
}

func runWalk(_ context.Context, a *app, _ []string, _ io.Reader, out io.Writer) error {
	return writeJSON(out, buildWalk(a))
}

type openView struct {
	gating.OpenResult
	Atmosphere atmosphere.Params    `json:"atmosphere"`
	Continue   gating.ContinueState `json:"continue"`
}

func openLantern(a *app, id string) (openView, error) {
	result := a.session.Open(id)
	view := openView{
		OpenResult: result,
		Atmosphere: a.session.Atmosphere(),
		Continue:   a.session.Continue(),
	}
	if !result.Accepted {
		// 開けないランタンの本文は返さない
		view.Lantern = types.Lantern{ID: id}
		logger.Debug("Lantern open rejected", zap.String("id", id), zap.String("reason", string(result.Reason)))
		return view, errRejected
	}
	return view, nil
}

func runOpen(_ context.Context, a *app, args []string, _ io.Reader, out io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	view, err := openLantern(a, args[0])
	if werr := writeJSON(out, view); werr != nil {
		return werr
	}
	return err
}

type letterView struct {
	Key     string            `json:"letter_key"`
	Title   string            `json:"title"`
	Content string            `json:"content,omitempty"`
	Accent  string            `json:"accent,omitempty"`
	Status  letters.Status    `json:"status"`
	State   types.LetterState `json:"state"`
}

func toLetterView(e letters.Entry) letterView {
	v := letterView{
		Key:    e.Letter.Key,
		Title:  e.Letter.Title,
		Accent: e.Letter.Accent,
		Status: e.Status,
		State:  e.State,
	}
	if e.Status.Unlocked {
		v.Content = e.Letter.Content
	}
	return v
}

func runLetters(_ context.Context, a *app, _ []string, _ io.Reader, out io.Writer) error {
	board, err := a.letters.Board(a.viewerID, a.catalog.Letters)
	if err != nil {
		return err
	}
	views := make([]letterView, 0, len(board))
	for _, e := range board {
		views = append(views, toLetterView(e))
	}
	return writeJSON(out, views)
}

func findLetter(a *app, args []string) (types.Letter, error) {
	if len(args) != 1 {
		return types.Letter{}, errUsage
	}
	l, ok := a.catalog.Letter(args[0])
	if !ok {
		return types.Letter{}, fmt.Errorf("unknown letter: %s", args[0])
	}
	return l, nil
}

func runRead(_ context.Context, a *app, args []string, _ io.Reader, out io.Writer) error {
	l, err := findLetter(a, args)
	if err != nil {
		return err
	}
	if err := a.letters.MarkLetterOpened(a.viewerID, l); err != nil {
		if errors.Is(err, progress.ErrLetterLocked) {
			firstVisit, err := a.letters.FirstVisit(a.viewerID)
			if err != nil {
				// ゼロ値なら今日を初回訪問として数える
				logger.Warn("Failed to read first visit", zap.String("user_identifier", a.viewerID), zap.Error(err))
			}
			status := a.calc.Evaluate(l, firstVisit, a.now())
			_ = writeJSON(out, letterView{Key: l.Key, Title: l.Title, Accent: l.Accent, Status: status})
			return errRejected
		}
		return err
	}

	board, err := a.letters.Board(a.viewerID, []types.Letter{l})
	if err != nil {
		return err
	}
	return writeJSON(out, toLetterView(board[0]))
}

func runBookmark(_ context.Context, a *app, args []string, _ io.Reader, out io.Writer) error {
	l, err := findLetter(a, args)
	if err != nil {
		return err
	}
	on, err := a.letters.ToggleBookmark(a.viewerID, l.Key)
	if err != nil {
		return err
	}
	return writeJSON(out, map[string]any{"letter_key": l.Key, "is_bookmarked": on})
}

func runReset(_ context.Context, a *app, _ []string, _ io.Reader, out io.Writer) error {
	a.session.Reset(a.now())
	return writeJSON(out, buildWalk(a))
}

// watchEvent は watch の出力1行
type watchEvent struct {
	Event   string          `json:"event"`
	Changes []gating.Change `json:"changes,omitempty"`
	Open    *openView       `json:"open,omitempty"`
	Walk    *walkView       `json:"walk,omitempty"`
	Kind    string          `json:"kind,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type lineWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (w *lineWriter) emit(ev watchEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(ev); err != nil {
		logger.Warn("Failed to write watch event", zap.Error(err))
	}
}

// runWatch は標準入力の操作を受けながら時間ゲートと静止状態を通知する
func runWatch(ctx context.Context, a *app, _ []string, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	w := &lineWriter{enc: json.NewEncoder(out)}

	detector := stillness.NewDetector(a.settings.StillnessTimeout(),
		func() { w.emit(watchEvent{Event: "still"}) },
		func(kind string) { w.emit(watchEvent{Event: "move", Kind: kind}) },
	)
	detector.Start()
	defer detector.Stop()

	watcher := gating.NewWatcher(a.engine, a.settings.WatchInterval(), a.refreshProgress)
	watcher.Poll(ctx)

	g, gctx := errgroup.WithContext(ctx)
	defer func() {
		cancel()
		_ = g.Wait()
	}()
	g.Go(func() error {
		if err := watcher.Run(gctx, func(changes []gating.Change) {
			w.emit(watchEvent{Event: "changed", Changes: changes})
		}); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	walk := buildWalk(a)
	w.emit(watchEvent{Event: "walk", Walk: &walk})

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			detector.Activity(fields[0])
			if !handleWatchLine(ctx, a, w, fields) {
				return nil
			}
		}
	}
}

func handleWatchLine(ctx context.Context, a *app, w *lineWriter, fields []string) bool {
	switch fields[0] {
	case "quit", "exit":
		return false
	case "open":
		if len(fields) != 2 {
			w.emit(watchEvent{Event: "error", Error: "usage: open <lantern-id>"})
			return true
		}
		a.refreshProgress(ctx)
		view, _ := openLantern(a, fields[1])
		w.emit(watchEvent{Event: "open", Open: &view})
	case "walk":
		a.refreshProgress(ctx)
		walk := buildWalk(a)
		w.emit(watchEvent{Event: "walk", Walk: &walk})
	case "reset":
		a.session.Reset(a.now())
		walk := buildWalk(a)
		w.emit(watchEvent{Event: "walk", Walk: &walk})
	default:
		w.emit(watchEvent{Event: "error", Error: "unknown input: " + fields[0]})
	}
	return true
}
