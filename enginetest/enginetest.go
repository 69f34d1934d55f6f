// Package enginetest provides an in-memory fake of the transfer-engine
// collaborators described by spec.md §6 (httpmsg.Engine,
// ConnectHandle, TransferHandle, Connection), so the dispatch/queue
// machinery and the builtin handlers can be exercised without a real
// socket layer.
//
// Grounded on the teacher's own tests/ package, which drives its
// persistConn state machine against an in-memory net.Pipe rather than
// a real listener; here the engine itself is faked rather than the
// transport, since this module's scope stops at the transfer-engine
// boundary (spec.md §1).
package enginetest

import (
	"sync"

	"github.com/badu/httpmsg"
)

// Response is one canned response the fake Engine will deliver for a
// single StartRequest call.
type Response struct {
	StatusCode int
	Headers    map[string][]string
	Body       []byte

	// Err, if set, makes StartRequest itself fail with this error
	// instead of delivering a response.
	Err error
}

// Engine is a scripted, in-memory httpmsg.Engine. Responses are queued
// per endpoint key with Enqueue and consumed in FIFO order; a Message
// whose endpoint key has no queued Response fails StartRequest with
// ErrNoScriptedResponse.
type Engine struct {
	mu             sync.Mutex
	queued         map[string][]Response
	startedAt      []string            // endpoint keys, in call order, for assertions
	requestHeaders []map[string]string // snapshot of RequestHeader at each StartRequest, first value per name
}

// New returns an empty Engine.
func New() *Engine {
	return &Engine{queued: make(map[string][]Response)}
}

// Enqueue appends resp to the FIFO queue for endpointKey.
func (e *Engine) Enqueue(endpointKey string, resp Response) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queued[endpointKey] = append(e.queued[endpointKey], resp)
}

// StartedKeys returns the endpoint keys StartRequest was called with,
// in call order.
func (e *Engine) StartedKeys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.startedAt))
	copy(out, e.startedAt)
	return out
}

// RequestHeaderAt returns the snapshot of the request headers (first
// value per name) observed at the i-th StartRequest call.
func (e *Engine) RequestHeaderAt(i int) map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requestHeaders[i]
}

// ErrNoScriptedResponse is returned from StartRequest when the
// Message's endpoint has no queued Response.
type ErrNoScriptedResponse struct{ Key string }

func (e *ErrNoScriptedResponse) Error() string {
	return "enginetest: no scripted response for endpoint " + e.Key
}

// StartRequest implements httpmsg.Engine. It returns immediately with
// no-op handles and posts the scripted lifecycle — PREPARE, response
// headers/status, HEADERS, DATA, DATA_SENT, FINISHED — onto the
// Message's configured Loop, so it is observed strictly after
// StartRequest's caller (httpmsg's doStart) has finished its own
// post-StartRequest status transition, the way a real asynchronous
// engine would deliver these events later rather than from within the
// call that initiated the connection.
func (e *Engine) StartRequest(msg *httpmsg.Message) (read, write httpmsg.TransferHandle, err error) {
	key := msg.Context().Key()

	headers := make(map[string]string)
	msg.RequestHeader.Foreach(func(name, value string) {
		if _, ok := headers[name]; !ok {
			headers[name] = value
		}
	})

	e.mu.Lock()
	e.startedAt = append(e.startedAt, key)
	e.requestHeaders = append(e.requestHeaders, headers)
	queue := e.queued[key]
	var resp Response
	var ok bool
	if len(queue) > 0 {
		resp, queue = queue[0], queue[1:]
		e.queued[key] = queue
		ok = true
	}
	e.mu.Unlock()

	if !ok {
		return nil, nil, &ErrNoScriptedResponse{Key: key}
	}
	if resp.Err != nil {
		return nil, nil, resp.Err
	}

	msg.Config().Loop.Post(func() {
		deliver(msg, resp)
	})

	return noopHandle{}, noopHandle{}, nil
}

// CancelConnect implements httpmsg.Engine; the fake never holds a
// pending connect once StartRequest has returned, so there is nothing
// to cancel.
func (e *Engine) CancelConnect(msg *httpmsg.Message) {}

func deliver(msg *httpmsg.Message, resp Response) {
	if httpmsg.RunHandlers(msg, httpmsg.EventPrepare) {
		return
	}

	msg.SetError(resp.StatusCode)
	for name, values := range resp.Headers {
		for _, v := range values {
			msg.ResponseHeader.Add(name, v)
		}
	}
	if httpmsg.RunHandlers(msg, httpmsg.EventHeaders) {
		return
	}

	msg.ResponseBuffer.Bytes = resp.Body
	if httpmsg.RunHandlers(msg, httpmsg.EventData) {
		return
	}
	if httpmsg.RunHandlers(msg, httpmsg.EventDataSent) {
		return
	}

	msg.MarkFinished()
	httpmsg.RunHandlers(msg, httpmsg.EventFinished)
}

// noopHandle satisfies httpmsg.ConnectHandle/TransferHandle/Connection
// with no-op, idempotent methods.
type noopHandle struct{}

func (noopHandle) CancelConnect() {}
func (noopHandle) Cancel()        {}
func (noopHandle) Release()       {}
