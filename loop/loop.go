// Package loop formalizes the "ambient event loop" that spec.md
// mentions only abstractly (§1: "only the fact that one exists, and
// timers + I/O readiness callbacks arrive on it"; §5: single-threaded
// cooperative scheduling).
//
// This package does not model sockets — that remains the transfer
// engine's job (an external collaborator, spec.md §6). It models only
// the two things the dispatch engine and the TIMEOUT built-in handler
// need from a loop: posting work to run on the loop's goroutine, and
// arming one-shot timers.
//
// A production embedder driving a real socket layer (as the teacher's
// persistConn does, or as libsoup's GMainLoop does) supplies its own
// Loop; Reference exists so this module compiles, tests, and pumps
// Send to completion on its own.
package loop

import (
	"context"
	"sync"
	"time"
)

// TimerHandle is returned by ArmTimer. Stop cancels the timer; it is a
// no-op if the timer already fired. Invariant (spec.md §3): a TIMEOUT
// handler holds at most one live TimerHandle at a time — callers are
// responsible for calling Stop on the previous handle before arming a
// new one.
type TimerHandle interface {
	Stop() bool
}

// Loop is the minimal collaborator contract the engine needs from the
// ambient event loop.
type Loop interface {
	// Post schedules fn to run on the loop goroutine as soon as
	// possible. Used by the queue facade to deliver completion
	// callbacks and dispatch events asynchronously from Queue.
	Post(fn func())

	// ArmTimer schedules fn to run on the loop goroutine after d.
	ArmTimer(d time.Duration, fn func()) TimerHandle

	// Run pumps the loop until ctx is done or Stop is called.
	// Send uses Run, stopping it from the completion callback, to block
	// until a single message completes.
	Run(ctx context.Context) error

	// Stop causes a blocked Run to return.
	Stop()
}

// Reference is a minimal single-threaded cooperative Loop: the
// goroutine calling Run drains a work queue, and timers are armed with
// time.AfterFunc, which posts the timer's callback onto that queue when
// it fires. It exists for Send's synchronous pump and for unit tests;
// it is not a general-purpose replacement for a real reactor.
type Reference struct {
	mu      sync.Mutex
	posted  []func()
	wake    chan struct{}
	stopped bool
}

// NewReference returns a ready-to-use Reference loop.
func NewReference() *Reference {
	return &Reference{wake: make(chan struct{}, 1)}
}

var _ Loop = (*Reference)(nil)

func (l *Reference) Post(fn func()) {
	l.mu.Lock()
	l.posted = append(l.posted, fn)
	l.mu.Unlock()
	l.signal()
}

func (l *Reference) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

type referenceTimer struct {
	t *time.Timer
}

func (rt *referenceTimer) Stop() bool { return rt.t.Stop() }

func (l *Reference) ArmTimer(d time.Duration, fn func()) TimerHandle {
	t := time.AfterFunc(d, func() { l.Post(fn) })
	return &referenceTimer{t: t}
}

// Run drains posted work until ctx is cancelled or Stop is called.
// Each iteration runs the whole current backlog before waiting again,
// so a callback that posts more work (e.g. a requeue) is picked up
// without an extra wakeup round-trip.
func (l *Reference) Run(ctx context.Context) error {
	for {
		l.mu.Lock()
		batch := l.posted
		l.posted = nil
		stopped := l.stopped
		l.mu.Unlock()

		for _, fn := range batch {
			fn()
		}
		if stopped {
			l.mu.Lock()
			l.stopped = false
			l.mu.Unlock()
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Reference) Stop() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()
	l.signal()
}
