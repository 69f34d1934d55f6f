package httpmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/badu/httpmsg/errclass"
)

func TestRunHandlersOrdersFirstGlobalLast(t *testing.T) {
	m := newTestMessage(t)
	defer func() { globalHandlers = nil }()

	var order []string
	m.AddHandler(EventHeaders, AnyFilter(), func(msg *Message, arg any) Result {
		order = append(order, "first")
		return Continue
	}, nil, AddHandlerOpts{Phase: PhaseFirst})

	RegisterGlobalHandler(&Handler{
		Event: EventHeaders,
		Filter: AnyFilter(),
		Callback: func(msg *Message, arg any) Result {
			order = append(order, "global")
			return Continue
		},
	})

	m.AddHandler(EventHeaders, AnyFilter(), func(msg *Message, arg any) Result {
		order = append(order, "last")
		return Continue
	}, nil, AddHandlerOpts{Phase: PhaseLast})

	RunHandlers(m, EventHeaders)

	assert.Equal(t, []string{"first", "global", "last"}, order)
}

func TestRunHandlersStopShortCircuitsRemainingHandlers(t *testing.T) {
	m := newTestMessage(t)
	defer func() { globalHandlers = nil }()

	var ran []string
	m.AddHandlerSimple(EventHeaders, AnyFilter(), func(msg *Message, arg any) Result {
		ran = append(ran, "a")
		return Stop
	}, nil)
	m.AddHandlerSimple(EventHeaders, AnyFilter(), func(msg *Message, arg any) Result {
		ran = append(ran, "b")
		return Continue
	}, nil)

	RunHandlers(m, EventHeaders)

	assert.Equal(t, []string{"a"}, ran)
}

func TestRunHandlersRestartCapBecomesHandlerKill(t *testing.T) {
	m := newTestMessage(t)
	m.addToActiveSet()
	m.cfg.MaxRestartsPerEvent = 2
	defer func() { globalHandlers = nil }()

	m.AddHandlerSimple(EventFinished, AnyFilter(), func(msg *Message, arg any) Result {
		return Restart
	}, nil)

	consumed := RunHandlers(m, EventFinished)

	assert.True(t, consumed)
	assert.Equal(t, errclass.Handler, m.Error().Class)
	assert.Equal(t, "handler pipeline exceeded restart limit", m.Error().Phrase)
}

func TestRunHandlersFinishedIssuesCallbackOnlyWhenNotInformational(t *testing.T) {
	m := newTestMessage(t)
	m.addToActiveSet()
	m.SetError(100) // Informational
	defer func() { globalHandlers = nil }()

	var called bool
	m.callback = func(msg *Message, arg any) { called = true }

	consumed := RunHandlers(m, EventFinished)

	assert.False(t, consumed)
	assert.False(t, called)

	m.SetError(200)
	consumed = RunHandlers(m, EventFinished)
	assert.True(t, consumed)
	assert.True(t, called)
}

func TestMatchFilterVariants(t *testing.T) {
	m := newTestMessage(t)
	m.ResponseHeader.Add("Location", "http://x/")
	m.SetErrorFull(401, "unauthorized")

	assert.True(t, matchFilter(m, AnyFilter()))
	assert.True(t, matchFilter(m, HeaderFilter("Location")))
	assert.False(t, matchFilter(m, HeaderFilter("Missing")))
	assert.True(t, matchFilter(m, ErrorCodeFilter(401)))
	assert.True(t, matchFilter(m, ErrorClassFilter(errclass.ClientError)))
	assert.False(t, matchFilter(m, TimeoutFilter(1)))
}
