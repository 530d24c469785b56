// Package stillness reports when the viewer has stopped interacting.
package stillness

import (
	"sync"
	"time"

	"github.com/ichi0g0y/keepsake/internal/shared/logger"
	"go.uber.org/zap"
)

const (
	DefaultTimeout  = 25 * time.Second
	DefaultSuppress = 2 * time.Second
)

// Detector は一定時間操作がないと OnStill を呼び、その後の操作で OnMove を呼ぶ
type Detector struct {
	Timeout  time.Duration
	Suppress time.Duration // 静止直後の操作を無視する時間
	OnStill  func()
	OnMove   func(kind string)

	now func() time.Time

	mu            sync.Mutex
	timer         *time.Timer
	gen           uint64
	still         bool
	suppressUntil time.Time
	running       bool
}

func NewDetector(timeout time.Duration, onStill func(), onMove func(kind string)) *Detector {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Detector{
		Timeout:  timeout,
		Suppress: DefaultSuppress,
		OnStill:  onStill,
		OnMove:   onMove,
		now:      time.Now,
	}
}

// Start begins the idle timer. Calling Start twice restarts it.
func (d *Detector) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = true
	d.still = false
	d.suppressUntil = time.Time{}
	d.restartLocked()
}

func (d *Detector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Still reports whether the detector is currently in the still state.
func (d *Detector) Still() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.still
}

// Activity は操作を通知する。静止直後の抑制時間中は無視する。
func (d *Detector) Activity(kind string) {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	if !d.suppressUntil.IsZero() && d.now().Before(d.suppressUntil) {
		d.mu.Unlock()
		return
	}
	wasStill := d.still
	d.still = false
	d.restartLocked()
	onMove := d.OnMove
	d.mu.Unlock()

	if wasStill {
		logger.Debug("Activity while still", zap.String("kind", kind))
		if onMove != nil {
			onMove(kind)
		}
	}
}

func (d *Detector) restartLocked() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.Timeout, func() { d.fire(gen) })
}

func (d *Detector) fire(gen uint64) {
	d.mu.Lock()
	// 止めた後や再始動後の古いタイマーは無視する
	if !d.running || gen != d.gen || d.still {
		d.mu.Unlock()
		return
	}
	d.still = true
	d.suppressUntil = d.now().Add(d.Suppress)
	onStill := d.OnStill
	d.mu.Unlock()

	logger.Debug("Stillness detected", zap.Duration("timeout", d.Timeout))
	if onStill != nil {
		onStill()
	}
}
