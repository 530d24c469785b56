package progress

import (
	"context"
	"sync"
	"time"

	"github.com/ichi0g0y/keepsake/internal/shared/logger"
	"github.com/ichi0g0y/keepsake/internal/types"
	"go.uber.org/zap"
)

const defaultQueueSize = 64

type opKind int

const (
	opDelta opKind = iota
	opReset
)

type op struct {
	kind         opKind
	viewerID     string
	itemID       string
	reveal       types.RevealKind
	sessionStart time.Time
}

// Recorder は開封の差分を非同期でストアへ書き込む。
// 書き込みに失敗してもログを残して捨てる（メモリ上のセッションが正）。
type Recorder struct {
	store Store

	mu     sync.Mutex
	closed bool
	queue  chan op
	done   chan struct{}
}

// NewRecorder starts the writer goroutine. queueSize <= 0 uses the default.
func NewRecorder(store Store, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	r := &Recorder{
		store: store,
		queue: make(chan op, queueSize),
		done:  make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Recorder) RecordDelta(viewerID, itemID string, kind types.RevealKind) {
	r.enqueue(op{kind: opDelta, viewerID: viewerID, itemID: itemID, reveal: kind})
}

func (r *Recorder) RecordReset(viewerID string, sessionStart time.Time) {
	r.enqueue(op{kind: opReset, viewerID: viewerID, sessionStart: sessionStart})
}

func (r *Recorder) enqueue(o op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		logger.Warn("Recorder is closed, dropping progress write",
			zap.String("user_identifier", o.viewerID), zap.String("lantern_id", o.itemID))
		return
	}
	select {
	case r.queue <- o:
	default:
		logger.Warn("Progress queue is full, dropping write",
			zap.String("user_identifier", o.viewerID), zap.String("lantern_id", o.itemID))
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	ctx := context.Background()
	for o := range r.queue {
		var err error
		switch o.kind {
		case opDelta:
			err = r.store.SaveProgressDelta(ctx, o.viewerID, o.itemID, o.reveal)
		case opReset:
			err = r.store.ResetProgress(ctx, o.viewerID, o.sessionStart)
		}
		if err != nil {
			logger.Error("Failed to persist progress",
				zap.String("user_identifier", o.viewerID),
				zap.String("lantern_id", o.itemID),
				zap.Error(err))
		}
	}
}

// Close は残りの書き込みを流し切ってから戻る
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	<-r.done
}
