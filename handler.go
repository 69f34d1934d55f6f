package httpmsg

import (
	"github.com/badu/httpmsg/errclass"
	"github.com/badu/httpmsg/loop"
)

// Event is a lifecycle point at which the dispatch engine runs the
// handler pipeline (spec.md §3, §4.5). Events fire in state order:
// PREPARE before any HEADERS, HEADERS before any DATA, exactly one
// FINISHED (spec.md §5).
type Event int

const (
	EventPrepare Event = iota
	EventHeaders
	EventData
	EventDataSent
	EventFinished
)

func (e Event) String() string {
	switch e {
	case EventPrepare:
		return "PREPARE"
	case EventHeaders:
		return "HEADERS"
	case EventData:
		return "DATA"
	case EventDataSent:
		return "DATA_SENT"
	case EventFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// Phase positions a per-message Handler relative to the built-in
// globals (spec.md §3, §4.5): FIRST handlers run in the pre-phase
// pass, LAST handlers run in the post-phase pass; built-ins always
// run logically "in the middle".
type Phase int

const (
	PhaseFirst Phase = iota
	PhaseLast
)

// FilterKind tags which variant a Filter holds.
type FilterKind int

const (
	FilterAny FilterKind = iota
	FilterHeader
	FilterErrorCode
	FilterErrorClass
	FilterTimeout
)

// Filter is the tagged-union match condition a Handler is evaluated
// against (spec.md §3 "Handler", §9 "Tagged filter variant"). Exactly
// the field matching Kind is meaningful.
type Filter struct {
	Kind        FilterKind
	HeaderName  string
	ErrorCode   int
	ErrorClass  errclass.Class
	TimeoutSecs int
}

// AnyFilter matches every invocation of the handler's Event.
func AnyFilter() Filter { return Filter{Kind: FilterAny} }

// HeaderFilter matches when the response headers contain name.
func HeaderFilter(name string) Filter { return Filter{Kind: FilterHeader, HeaderName: name} }

// ErrorCodeFilter matches when the Message's error code equals code.
func ErrorCodeFilter(code int) Filter { return Filter{Kind: FilterErrorCode, ErrorCode: code} }

// ErrorClassFilter matches when the Message's error class equals class.
func ErrorClassFilter(class errclass.Class) Filter {
	return Filter{Kind: FilterErrorClass, ErrorClass: class}
}

// TimeoutFilter never matches from the normal pipeline (spec.md
// §4.5); it only fires via its own armed timer (spec.md §4.7).
func TimeoutFilter(seconds int) Filter {
	return Filter{Kind: FilterTimeout, TimeoutSecs: seconds}
}

// Result is what a Handler callback returns, interpreted by the
// dispatch engine (spec.md §4.5).
type Result int

const (
	// Continue proceeds to the next handler.
	Continue Result = iota
	// Stop halts the pipeline for this event. If the event is
	// FINISHED and the error class is not Informational, the
	// completion callback is invoked immediately.
	Stop
	// Kill invokes the completion callback immediately with the
	// Message's current error.
	Kill
	// Resend requeues the Message (if not already QUEUED) using the
	// saved completion callback, then stops the pipeline.
	Resend
	// Restart aborts the current pipeline pass and restarts
	// run_handlers from the top for the same event.
	Restart
)

// Callback is a handler's user- or built-in-supplied logic.
type Callback func(msg *Message, arg any) Result

// Handler is one entry in a Message's per-message handler list, or in
// the process-wide built-in table (spec.md §3 "Handler").
type Handler struct {
	Event    Event
	Phase    Phase
	Filter   Filter
	Callback Callback
	Arg      any
	Name     string

	msg   *Message // non-owning back-reference; nil for globals
	timer loop.TimerHandle
}

// destroy cancels h's timer (if any); the filter's strings need no
// explicit release. Per spec.md §3's invariant, a TIMEOUT handler holds at
// most one live timer, so there is at most one to cancel.
func (h *Handler) destroy() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}
