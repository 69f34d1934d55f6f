package httpmsg

import "strings"

// globalHandlers is the process-wide, fixed-order table of built-in
// handlers (redirect, auth, proxy-auth) — spec.md §3 "Handler
// registry", §9 "Process-wide handler table": "Represent as an
// immutable array built at initialization. It needs no locking under
// the single-threaded model." Built-ins register themselves here via
// RegisterGlobalHandler, from builtin.RegisterAll, which the host
// application calls once, so this package never imports builtin
// (which would cycle back).
var globalHandlers []*Handler

// RegisterGlobalHandler appends h to the process-wide built-in
// handler table, in the fixed order handlers are registered. h.msg
// must be nil: globals are not attached to any one Message.
func RegisterGlobalHandler(h *Handler) {
	if h.msg != nil {
		panic("httpmsg: a global handler must not have an owning message")
	}
	globalHandlers = append(globalHandlers, h)
}

// AddHandlerOpts is the full form of AddHandler (spec.md §6: "handler
// registration (full form with name and phase; shorthand defaulting
// name=absent, phase=LAST)").
type AddHandlerOpts struct {
	Name  string
	Phase Phase
}

// AddHandler attaches a per-message handler for event, matching
// filter, invoking cb with arg. If filter is a TIMEOUT filter, a
// one-shot timer of the configured duration is armed immediately
// against the Message's configured Loop (spec.md §4.4).
func (m *Message) AddHandler(event Event, filter Filter, cb Callback, arg any, opts AddHandlerOpts) *Handler {
	h := &Handler{
		Event:    event,
		Phase:    opts.Phase,
		Filter:   filter,
		Callback: cb,
		Arg:      arg,
		Name:     opts.Name,
		msg:      m,
	}
	m.handlers = append(m.handlers, h)
	if filter.Kind == FilterTimeout {
		m.armTimeout(h)
	}
	return h
}

// AddHandlerSimple is the shorthand form: no name, Phase defaults to
// PhaseLast (spec.md §6).
func (m *Message) AddHandlerSimple(event Event, filter Filter, cb Callback, arg any) *Handler {
	return m.AddHandler(event, filter, cb, arg, AddHandlerOpts{Phase: PhaseLast})
}

func (m *Message) armTimeout(h *Handler) {
	d := secondsToDuration(h.Filter.TimeoutSecs)
	h.timer = m.cfg.Loop.ArmTimer(d, func() {
		fireTimeout(m, h)
	})
}

// RemoveHandlerByName removes the first per-message handler whose
// Name matches name, ASCII case-insensitively (spec.md §4.4).
func (m *Message) RemoveHandlerByName(name string) bool {
	for i, h := range m.handlers {
		if h.Name != "" && strings.EqualFold(h.Name, name) {
			h.destroy()
			m.handlers = append(m.handlers[:i], m.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveHandlerByCallback removes the first per-message handler whose
// Callback pointer matches cb.
func (m *Message) RemoveHandlerByCallback(cb Callback) bool {
	return m.removeWhere(func(h *Handler) bool {
		return sameCallback(h.Callback, cb)
	})
}

// RemoveHandlerByCallbackAndArg removes the first per-message handler
// whose (Callback, Arg) pair matches.
func (m *Message) RemoveHandlerByCallbackAndArg(cb Callback, arg any) bool {
	return m.removeWhere(func(h *Handler) bool {
		return sameCallback(h.Callback, cb) && h.Arg == arg
	})
}

func (m *Message) removeWhere(match func(*Handler) bool) bool {
	for i, h := range m.handlers {
		if match(h) {
			h.destroy()
			m.handlers = append(m.handlers[:i], m.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// ListHandlerNames returns the names of named handlers in attachment
// order (spec.md §4.4 "list(msg)").
func (m *Message) ListHandlerNames() []string {
	var names []string
	for _, h := range m.handlers {
		if h.Name != "" {
			names = append(names, h.Name)
		}
	}
	return names
}
