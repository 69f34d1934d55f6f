package httpmsg

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/badu/httpmsg/errclass"
)

// tracer emits one span per RunHandlers call when the process has an
// OpenTelemetry SDK configured (otel.SetTracerProvider); with the
// default no-op provider these calls cost a pointer comparison.
// Grounded in the retrieval pack's otel wiring
// (webitel-im-delivery-service) combined with the span-correlation
// convention from bassosimone-nop's NewSpanID.
var tracer = otel.Tracer("github.com/badu/httpmsg")

// RunHandlers fires the handler pipeline for event against m: the
// pre-phase (per-message FIRST handlers), the global pass (built-in
// handlers, fixed order), and the post-phase (per-message LAST
// handlers) — spec.md §4.5. It returns true iff it consumed the
// Message (invoked the completion callback, or issued a requeue).
func RunHandlers(m *Message, event Event) bool {
	_, span := tracer.Start(context.Background(), "httpmsg.dispatch",
		trace.WithAttributes(attribute.String("event", event.String())))
	defer span.End()

	restarts := 0
	for {
		outcome := runHandlersOnce(m, event)
		m.log.Debug("dispatchPass", "event", event.String(), "outcome", outcomeName(outcome), "spanID", m.SpanID)

		switch outcome {
		case Continue, Stop:
			if event == EventFinished && m.err.Class != errclass.Informational {
				m.IssueCallback()
				span.SetAttributes(attribute.Bool("consumed", true))
				return true
			}
			return false

		case Kill:
			m.IssueCallback()
			span.SetAttributes(attribute.Bool("consumed", true))
			return true

		case Resend:
			if m.status != StatusQueued {
				Queue(m, m.callback, m.callbackArg)
			}
			span.SetAttributes(attribute.Bool("consumed", true))
			return true

		case Restart:
			restarts++
			if restarts > m.cfg.MaxRestartsPerEvent {
				m.SetHandlerError(0, "handler pipeline exceeded restart limit")
				m.log.Info("dispatchRestartLimitExceeded", "event", event.String(), "spanID", m.SpanID)
				m.IssueCallback()
				span.SetAttributes(attribute.Bool("consumed", true))
				return true
			}
			continue
		}
	}
}

// runHandlersOnce runs a single pipeline pass: pre-phase FIRST, the
// global built-in table, then post-phase LAST, stopping at the first
// handler whose result is not Continue.
func runHandlersOnce(m *Message, event Event) Result {
	if r := runSubPass(m, snapshotPerMessage(m, event, PhaseFirst)); r != Continue {
		return r
	}
	if r := runSubPass(m, snapshotGlobals(event)); r != Continue {
		return r
	}
	if r := runSubPass(m, snapshotPerMessage(m, event, PhaseLast)); r != Continue {
		return r
	}
	return Continue
}

func runSubPass(m *Message, handlers []*Handler) Result {
	for _, h := range handlers {
		r := invokeIfMatch(m, h)
		if r != Continue {
			return r
		}
	}
	return Continue
}

// invokeIfMatch evaluates h's filter against m and, if it matches,
// invokes h.Callback. Per spec.md §4.5: if the handler returned
// something other than Resend but m ended up QUEUED anyway (a
// requeue issued through a side channel inside the callback), the
// engine treats the result as Resend.
func invokeIfMatch(m *Message, h *Handler) Result {
	if !matchFilter(m, h.Filter) {
		return Continue
	}
	result := h.Callback(m, h.Arg)
	if result != Resend && m.status == StatusQueued {
		return Resend
	}
	return result
}

func matchFilter(m *Message, f Filter) bool {
	switch f.Kind {
	case FilterAny:
		return true
	case FilterHeader:
		return m.ResponseHeader.Has(f.HeaderName)
	case FilterErrorCode:
		return m.err.Code == f.ErrorCode
	case FilterErrorClass:
		return m.err.Class == f.ErrorClass
	case FilterTimeout:
		// Never fires from the normal pipeline; only from its own
		// armed timer (spec.md §4.5, §4.7).
		return false
	default:
		return false
	}
}

func snapshotPerMessage(m *Message, event Event, phase Phase) []*Handler {
	var out []*Handler
	for _, h := range m.handlers {
		if h.Event == event && h.Phase == phase && h.Filter.Kind != FilterTimeout {
			out = append(out, h)
		}
	}
	return out
}

func snapshotGlobals(event Event) []*Handler {
	var out []*Handler
	for _, h := range globalHandlers {
		if h.Event == event {
			out = append(out, h)
		}
	}
	return out
}

func outcomeName(r Result) string {
	switch r {
	case Continue:
		return "CONTINUE"
	case Stop:
		return "STOP"
	case Kill:
		return "KILL"
	case Resend:
		return "RESEND"
	case Restart:
		return "RESTART"
	default:
		return "UNKNOWN"
	}
}
