package httpmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddHandlerArmsTimeoutAndListHandlerNames(t *testing.T) {
	m := newTestMessage(t)

	h := m.AddHandler(EventHeaders, TimeoutFilter(60), func(msg *Message, arg any) Result {
		return Kill
	}, nil, AddHandlerOpts{Name: "my-timeout"})

	t.Cleanup(h.destroy)

	require.NotNil(t, h.timer)
	assert.Equal(t, []string{"my-timeout"}, m.ListHandlerNames())
}

func TestRemoveHandlerByNameIsCaseInsensitive(t *testing.T) {
	m := newTestMessage(t)
	m.AddHandler(EventHeaders, AnyFilter(), func(msg *Message, arg any) Result { return Continue }, nil, AddHandlerOpts{Name: "Server-Message"})

	ok := m.RemoveHandlerByName("server-message")

	assert.True(t, ok)
	assert.Empty(t, m.handlers)
}

func TestRemoveHandlerByCallback(t *testing.T) {
	m := newTestMessage(t)
	cb := func(msg *Message, arg any) Result { return Continue }
	m.AddHandlerSimple(EventHeaders, AnyFilter(), cb, nil)

	assert.True(t, m.RemoveHandlerByCallback(cb))
	assert.Empty(t, m.handlers)
}

func TestRegisterGlobalHandlerRejectsOwnedHandler(t *testing.T) {
	m := newTestMessage(t)
	h := m.AddHandlerSimple(EventHeaders, AnyFilter(), func(msg *Message, arg any) Result { return Continue }, nil)

	assert.Panics(t, func() { RegisterGlobalHandler(h) })
}
