package httpmsg

import (
	"sync"

	"github.com/badu/httpmsg/config"
	"github.com/badu/httpmsg/endpoint"
	"github.com/badu/httpmsg/errclass"
	"github.com/badu/httpmsg/header"
	"github.com/badu/httpmsg/logx"
)

// Version is an HTTP protocol version (spec.md §3: "1.0 or 1.1").
type Version struct {
	Major, Minor int
}

// HTTP11 and HTTP10 are the only versions a Message may carry.
var (
	HTTP11 = Version{1, 1}
	HTTP10 = Version{1, 0}
)

// CompletionFunc is the user completion callback registered with
// Queue. It receives the Message it was registered for and the
// opaque argument passed to Queue.
type CompletionFunc func(msg *Message, arg any)

// Message holds one in-flight HTTP request/response pair: request and
// response buffers, headers, status, error, flags, HTTP version, and
// the owning endpoint context (spec.md §3).
//
// A Message has no stable ID; pointer identity suffices for identity
// comparisons. SpanID exists solely to correlate log lines for the
// same Message and is never used for lookup or equality.
type Message struct {
	Method  string
	Version Version

	ctx *endpoint.Context

	RequestHeader  *header.Map
	ResponseHeader *header.Map

	RequestBuffer  *Buffer
	ResponseBuffer *Buffer

	flags  Flags
	status Status
	err    errclass.Error

	connectHandle ConnectHandle
	readHandle    TransferHandle
	writeHandle   TransferHandle
	conn          Connection

	callback    CompletionFunc
	callbackArg any

	handlers []*Handler

	// redirectCount tracks how many times the redirect built-in
	// handler has RESENT this Message, to enforce
	// Config.MaxRedirects (SPEC_FULL.md §4.7).
	redirectCount int

	// Engine is the transfer subsystem driving this Message. Nil
	// means DefaultEngine (analogous to the teacher's
	// Client.Transport / DefaultTransport split).
	Engine Engine

	cfg    *config.Config
	log    logx.Logger
	SpanID string

	inActiveSet bool
}

// New returns a Message in StatusIdle with empty buffers and header
// maps, HTTP/1.1, and a retained reference to ctx. method defaults to
// "GET" when empty (spec.md §4.2).
func New(ctx *endpoint.Context, cfg *config.Config, method string) *Message {
	if method == "" {
		method = "GET"
	}
	if cfg == nil {
		cfg = config.New()
	}
	m := &Message{
		Method:         method,
		Version:        HTTP11,
		ctx:            ctx.Retain(),
		RequestHeader:  header.New(),
		ResponseHeader: header.New(),
		RequestBuffer:  &Buffer{Ownership: SystemOwned},
		ResponseBuffer: &Buffer{Ownership: SystemOwned},
		status:         StatusIdle,
		cfg:            cfg,
		log:            logx.Default(),
		SpanID:         logx.NewSpanID(),
	}
	return m
}

// NewFull additionally sets the request buffer from body.
func NewFull(ctx *endpoint.Context, cfg *config.Config, method string, body []byte) *Message {
	m := New(ctx, cfg, method)
	m.RequestBuffer.Bytes = body
	return m
}

// Config returns the Config this Message was constructed with.
func (m *Message) Config() *config.Config { return m.cfg }

// Status returns the current lifecycle state.
func (m *Message) Status() Status { return m.status }

// Error returns the current {code, class, phrase} triple.
func (m *Message) Error() errclass.Error { return m.err }

// Flags returns the current flag bitset.
func (m *Message) Flags() Flags { return m.flags }

// SetFlags replaces the flag bitset.
func (m *Message) SetFlags(f Flags) { m.flags = f }

// AddFlags ORs extra into the current flag bitset.
func (m *Message) AddFlags(extra Flags) { m.flags |= extra }

// Context returns the Message's current endpoint context.
func (m *Message) Context() *endpoint.Context { return m.ctx }

// SetContext releases the old endpoint context and retains newCtx (spec.md
// §6: "set releases old, retains new").
func (m *Message) SetContext(newCtx *endpoint.Context) {
	old := m.ctx
	m.ctx = newCtx.Retain()
	old.Release()
}

// SetError derives class and phrase from code using the Message's
// configured Classifier (spec.md §6 "set_error(code)").
func (m *Message) SetError(code int) {
	class, phrase := m.cfg.Classifier.Classify(code)
	m.err = errclass.Error{Code: code, Class: class, Phrase: phrase}
}

// SetErrorFull sets code and a caller-supplied phrase; class is still
// derived from the classifier (spec.md §6 "set_error_full").
func (m *Message) SetErrorFull(code int, phrase string) {
	class, _ := m.cfg.Classifier.Classify(code)
	m.err = errclass.Error{Code: code, Class: class, Phrase: phrase}
}

// SetHandlerError sets code and phrase with class forced to Handler
// (spec.md §6 "set_handler_error").
func (m *Message) SetHandlerError(code int, phrase string) {
	m.err = errclass.Error{Code: code, Class: errclass.Handler, Phrase: phrase}
}

// SetAuthError sets code and phrase with class forced to
// CantAuthenticate (or CantAuthenticateProxy), for the builtin
// auth/proxy-auth handlers (SPEC_FULL.md §4.7): credential exhaustion
// is an out-of-band condition the status-code Classifier cannot
// derive on its own.
func (m *Message) SetAuthError(code int, phrase string, proxy bool) {
	class := errclass.CantAuthenticate
	if proxy {
		class = errclass.CantAuthenticateProxy
	}
	m.err = errclass.Error{Code: code, Class: class, Phrase: phrase}
}

// MarkFinished transitions m to StatusFinished. It is the transfer
// engine's signal that no further bytes are coming for this Message,
// immediately preceding the FINISHED event (spec.md §6).
func (m *Message) MarkFinished() { m.transition(StatusFinished) }

// RedirectCount reports how many times the redirect built-in handler
// has RESENT this Message (SPEC_FULL.md §4.7).
func (m *Message) RedirectCount() int { return m.redirectCount }

// IncrementRedirectCount records one more followed redirect.
func (m *Message) IncrementRedirectCount() { m.redirectCount++ }

// transition moves the Message to s. It exists as a single choke
// point so invariants (spec.md §3) stay easy to audit.
func (m *Message) transition(s Status) {
	m.status = s
}

// activeRequests is the process-wide set of queued/in-flight
// Messages (spec.md §3 "owning connection"; §4.2 "removes msg from
// the process-wide set of active requests"). It is process-global,
// init-once, never-destroyed state per spec.md §5.
var activeRequests = struct {
	mu sync.Mutex
	m  map[*Message]struct{}
}{m: make(map[*Message]struct{})}

func (m *Message) addToActiveSet() {
	if m.inActiveSet {
		return
	}
	activeRequests.mu.Lock()
	activeRequests.m[m] = struct{}{}
	activeRequests.mu.Unlock()
	m.inActiveSet = true
}

func (m *Message) removeFromActiveSet() {
	if !m.inActiveSet {
		return
	}
	activeRequests.mu.Lock()
	delete(activeRequests.m, m)
	activeRequests.mu.Unlock()
	m.inActiveSet = false
}

// ActiveRequestCount reports the size of the process-wide active
// request set, for tests asserting spec.md §8's cleanup invariants.
func ActiveRequestCount() int {
	activeRequests.mu.Lock()
	defer activeRequests.mu.Unlock()
	return len(activeRequests.m)
}

// IsActive reports whether m is currently in the process-wide active
// request set.
func (m *Message) IsActive() bool {
	return m.inActiveSet
}

// Cleanup releases transient resources without destroying the
// Message (spec.md §4.2): cancels any outstanding read/write/connect
// handle, releases the connection, removes m from the active-request
// set. Headers and buffers are left intact. Cleanup is idempotent.
func (m *Message) Cleanup() {
	if m.connectHandle != nil {
		m.connectHandle.CancelConnect()
		m.connectHandle = nil
	}
	if m.readHandle != nil {
		m.readHandle.Cancel()
		m.readHandle = nil
	}
	if m.writeHandle != nil {
		m.writeHandle.Cancel()
		m.writeHandle = nil
	}
	if m.conn != nil {
		m.conn.Release()
		m.conn = nil
	}
	m.removeFromActiveSet()
}

// Free performs Cleanup, then releases the context reference, the
// request/response buffers iff SystemOwned, both header maps, and
// every handler attached to the Message (spec.md §4.2). Calling Free
// twice is undefined, matching spec.md §8.
func (m *Message) Free() {
	m.Cleanup()
	m.ctx.Release()
	m.ctx = nil
	m.RequestBuffer.free()
	m.ResponseBuffer.free()
	m.RequestHeader = nil
	m.ResponseHeader = nil
	for _, h := range m.handlers {
		h.destroy()
	}
	m.handlers = nil
}

// IssueCallback implements spec.md §4.3's ownership contract: Cleanup
// runs first so a callback that iterates the event loop cannot cause
// re-entrant I/O on this Message; then the completion callback (if
// any) is invoked; then, iff the Message's status is not QUEUED
// afterward (i.e. the callback did not requeue it), the Message is
// freed.
func (m *Message) IssueCallback() {
	m.Cleanup()
	if m.callback != nil {
		cb := m.callback
		arg := m.callbackArg
		cb(m, arg)
	}
	if m.status != StatusQueued {
		m.Free()
	}
}

// Cancel sets the error to CANCELLED and calls IssueCallback.
func (m *Message) Cancel() {
	m.err = errclass.Error{Code: 0, Class: errclass.Cancelled, Phrase: "cancelled"}
	m.IssueCallback()
}
