package httpmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeoutSkipPrepareAfterSendingRequest(t *testing.T) {
	m := newTestMessage(t)
	h := &Handler{Event: EventPrepare}

	assert.False(t, timeoutSkip(m, h))

	m.transition(StatusSendingRequest)
	assert.True(t, timeoutSkip(m, h))
}

func TestTimeoutSkipHeadersOnceResponseHeadersArrive(t *testing.T) {
	m := newTestMessage(t)
	h := &Handler{Event: EventHeaders}
	m.transition(StatusReadingResponse)

	assert.False(t, timeoutSkip(m, h), "no response headers yet")

	m.ResponseHeader.Add("Content-Type", "text/plain")
	assert.True(t, timeoutSkip(m, h))
}

func TestTimeoutSkipDataSentGatesOnServerMessageHandler(t *testing.T) {
	m := newTestMessage(t)
	h := &Handler{Event: EventDataSent}

	assert.False(t, timeoutSkip(m, h))

	m.AddHandler(EventData, AnyFilter(), func(msg *Message, arg any) Result { return Continue }, nil, AddHandlerOpts{Name: "server-message"})
	assert.True(t, timeoutSkip(m, h))
	// Checking the gate must not remove the handler it inspects.
	assert.Equal(t, 1, len(m.handlers))
}

func TestFireTimeoutKillCancelsMessage(t *testing.T) {
	m := newTestMessage(t)
	m.addToActiveSet()
	h := &Handler{Event: EventPrepare, Callback: func(msg *Message, arg any) Result { return Kill }}

	fireTimeout(m, h)

	assert.Equal(t, "cancelled", m.Error().Phrase)
}
