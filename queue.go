package httpmsg

import (
	"context"
	"sync"

	"github.com/sony/gobreaker"

	"github.com/badu/httpmsg/config"
	"github.com/badu/httpmsg/errclass"
)

// DefaultEngine is used by Queue/Send when a Message's own Engine
// field is nil, mirroring the teacher's Client.Transport /
// DefaultTransport split.
var DefaultEngine Engine

// Queue enqueues m for asynchronous completion: callback will be
// invoked with arg when m reaches FINISHED (or is cancelled), unless a
// handler requeues it first (spec.md §4.6).
//
// Precondition (spec.md §4.6): if the response buffer's ownership is
// UserOwned, queueing fails immediately — callback is invoked with
// error CANCELLED, the buffer cannot be written, and m never enters
// the active-request set.
func Queue(m *Message, callback CompletionFunc, arg any) {
	m.callback = callback
	m.callbackArg = arg

	if m.ResponseBuffer.Ownership == UserOwned {
		m.err = errclass.Error{Class: errclass.Cancelled, Phrase: "response buffer is user-owned; cannot queue"}
		if m.callback != nil {
			m.callback(m, m.callbackArg)
		}
		return
	}

	m.transition(StatusQueued)
	m.addToActiveSet()
	m.log.Info("queue", "method", m.Method, "spanID", m.SpanID)

	m.cfg.Loop.Post(func() {
		startTransfer(m)
	})
}

func startTransfer(m *Message) {
	if m.status != StatusQueued {
		// Message was cancelled or freed between Post and execution.
		return
	}
	m.transition(StatusConnecting)

	engine := m.Engine
	if engine == nil {
		engine = DefaultEngine
	}
	if engine == nil {
		m.SetHandlerError(0, "no transfer engine configured")
		m.IssueCallback()
		return
	}

	breaker := breakerFor(m)
	if breaker != nil {
		if _, err := breaker.Execute(func() (any, error) {
			return nil, doStart(m, engine)
		}); err != nil {
			if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
				m.SetErrorFull(0, "circuit open")
				m.err.Class = errclass.Transport
				m.IssueCallback()
			}
			return
		}
		return
	}
	_ = doStart(m, engine)
}

// doStart invokes the transfer engine and reports whether it
// succeeded, for the circuit breaker's benefit; failures already
// drove the Message to completion via IssueCallback.
func doStart(m *Message, engine Engine) error {
	m.transition(StatusSendingRequest)
	read, write, err := engine.StartRequest(m)
	if err != nil {
		m.SetHandlerError(0, err.Error())
		m.IssueCallback()
		return err
	}
	m.readHandle = read
	m.writeHandle = write
	m.transition(StatusReadingResponse)
	return nil
}

// breakers holds one *gobreaker.CircuitBreaker per endpoint key, only
// when Config.CircuitBreakerSettings enables the feature
// (SPEC_FULL.md §4.6). Disabled by default so spec.md's described
// queueing behavior is unchanged out of the box.
var breakers = struct {
	mu sync.Mutex
	m  map[string]*gobreaker.CircuitBreaker
}{m: make(map[string]*gobreaker.CircuitBreaker)}

func breakerFor(m *Message) *gobreaker.CircuitBreaker {
	settings := m.cfg.CircuitBreakerSettings
	if settings == nil {
		return nil
	}
	key := m.Context().Key()

	breakers.mu.Lock()
	defer breakers.mu.Unlock()
	if cb, ok := breakers.m[key]; ok {
		return cb
	}
	st := *settings
	st.Name = key
	if st.Timeout == 0 {
		st.Timeout = config.DefaultCircuitBreakerTimeout
	}
	cb := gobreaker.NewCircuitBreaker(st)
	breakers.m[key] = cb
	return cb
}

// Send is the synchronous facade (spec.md §4.6): it Queues m with a
// callback that stops the loop, and drives the Message's configured
// Loop until it does so (the Message reaches FINISHED, is cancelled,
// or a handler fails it), returning the final error class.
func Send(m *Message) errclass.Class {
	loopRef := m.cfg.Loop
	Queue(m, func(msg *Message, arg any) {
		loopRef.Stop()
	}, nil)

	_ = loopRef.Run(context.Background())
	return m.err.Class
}
