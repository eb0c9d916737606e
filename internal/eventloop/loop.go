// Package eventloop implements the single-goroutine dispatch loop every
// tetherd component runs on.
//
// All state owned by the supplicant client, the host watcher and the tether
// coordinator is mutated only from functions dispatched by the loop, so none
// of it needs locking. Other goroutines (D-Bus signal readers, timers) hand
// work to the loop with Post.
//
// A function running on the loop may block on RunNested, which keeps
// dispatching queued work on the same goroutine until its quit channel is
// closed. Nested iterations may themselves nest.
package eventloop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrClosed is returned by Post after the loop has stopped.
var ErrClosed = errors.New("eventloop: loop closed")

// Loop is a FIFO dispatch loop.
type Loop struct {
	cfg    Config
	logger *slog.Logger
	events chan func()

	closeOnce sync.Once
	done      chan struct{}

	// depth and stop are only touched from the loop goroutine.
	depth int
	stop  <-chan struct{}
}

// New creates a new Loop. Config defaults are applied automatically.
func New(cfg Config, logger *slog.Logger) *Loop {
	cfg.ApplyDefaults()
	return &Loop{
		cfg:    cfg,
		logger: logger,
		events: make(chan func(), cfg.QueueSize),
		done:   make(chan struct{}),
	}
}

// Post queues fn for execution on the loop goroutine. It is safe for
// concurrent use and may be called from the loop goroutine itself.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}

	select {
	case l.events <- fn:
		return nil
	case <-l.done:
		return ErrClosed
	}
}

// Run dispatches queued functions until ctx is cancelled. Functions still
// queued when ctx is cancelled are dropped.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debug("event loop started", "component", "eventloop")
	defer l.close()
	l.stop = ctx.Done()

	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("event loop stopped", "component", "eventloop")
			return ctx.Err()
		case fn := <-l.events:
			fn()
		}
	}
}

// RunNested dispatches queued functions on the calling goroutine until quit
// is closed or the context passed to Run is cancelled. It must only be called from a function that
// is itself running on the loop.
func (l *Loop) RunNested(quit <-chan struct{}) {
	l.depth++
	defer func() { l.depth-- }()

	l.logger.Debug("nested loop entered",
		"component", "eventloop",
		"depth", l.depth,
	)

	for {
		// Quit wins over pending events.
		select {
		case <-quit:
			l.logger.Debug("nested loop left",
				"component", "eventloop",
				"depth", l.depth,
			)
			return
		case <-l.stop:
			return
		default:
		}

		select {
		case <-quit:
		case <-l.stop:
		case fn := <-l.events:
			fn()
		}
	}
}

// Depth reports how many nested iterations are currently running.
func (l *Loop) Depth() int {
	return l.depth
}

// Done is closed once the loop has stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) close() {
	l.closeOnce.Do(func() { close(l.done) })
}

// Timer is a one-shot alarm whose callback runs on the loop.
type Timer struct {
	t *time.Timer

	// stopped is only touched from the loop goroutine.
	stopped bool
	fired   bool
}

// AfterFunc posts fn to the loop once d has elapsed. Stop must be called
// from the loop goroutine.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	tm := &Timer{}
	tm.t = time.AfterFunc(d, func() {
		_ = l.Post(func() {
			if tm.stopped {
				return
			}
			tm.fired = true
			fn()
		})
	})
	return tm
}

// Stop cancels the timer. The callback never runs after Stop returns, even
// if the alarm already went off and its callback is still queued. Stop
// reports whether the callback was prevented from running.
func (tm *Timer) Stop() bool {
	if tm.stopped || tm.fired {
		return false
	}
	tm.stopped = true
	tm.t.Stop()
	return true
}

// Fired reports whether the callback has run.
func (tm *Timer) Fired() bool {
	return tm.fired
}
