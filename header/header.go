// Package header implements the case-insensitive, multi-valued header
// store shared by a Message's request and response sides.
//
// Adapted from the teacher's hdr package (itself a from-scratch port of
// net/http's textproto.MIMEHeader), generalized so that it can reject
// malformed field names/values at Add time instead of only at write time.
package header

import (
	"sort"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Map is an ordered, case-insensitive multi-valued header store.
//
// The zero value is not usable; construct with New.
type Map struct {
	// values holds, per canonical key, the sequence of values added
	// for that key, in insertion order.
	values map[string][]string

	// order records the order in which keys were first seen, so that
	// Foreach yields headers in a stable, deterministic sequence
	// instead of Go's randomized map iteration order.
	order []string
}

// New returns an empty Map ready for use.
func New() *Map {
	return &Map{values: make(map[string][]string)}
}

// canonicalKey canonicalizes a header name the way net/http's
// textproto.CanonicalMIMEHeaderKey does: first letter and the letter
// following each '-' are upper-cased, everything else lower-cased.
func canonicalKey(key string) string {
	if key == "" {
		return key
	}
	b := []byte(key)
	upper := true
	for i, c := range b {
		if upper && 'a' <= c && c <= 'z' {
			b[i] = c - ('a' - 'A')
		} else if !upper && 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
		upper = b[i] == '-'
	}
	return string(b)
}

// Add appends value to the sequence associated with name. Per the
// teacher's add_header behavior (spec.md §9 "add_header duplicate"): a
// new sequence is allocated only when none exists yet for name;
// otherwise the value is appended in place, preserving insertion order
// for subsequent Values/Foreach calls.
//
// Add silently rejects a name or value that fails RFC 7230 token /
// field-value validation; callers that need to know about rejection
// should validate with Valid before calling Add.
func (m *Map) Add(name, value string) {
	if !Valid(name, value) {
		return
	}
	key := canonicalKey(name)
	if _, ok := m.values[key]; !ok {
		m.order = append(m.order, key)
		m.values[key] = []string{value}
		return
	}
	m.values[key] = append(m.values[key], value)
}

// Valid reports whether name and value are syntactically valid as an
// HTTP header field name/value pair.
func Valid(name, value string) bool {
	return httpguts.ValidHeaderFieldName(name) && httpguts.ValidHeaderFieldValue(value)
}

// Remove drops every value associated with name.
func (m *Map) Remove(name string) {
	key := canonicalKey(name)
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// GetOne returns the first value associated with name, and whether one
// exists.
func (m *Map) GetOne(name string) (string, bool) {
	vs, ok := m.values[canonicalKey(name)]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// GetAll returns the full value sequence associated with name. The
// returned slice must not be mutated by the caller.
func (m *Map) GetAll(name string) []string {
	return m.values[canonicalKey(name)]
}

// Empty reports whether the map holds no headers at all.
func (m *Map) Empty() bool {
	return len(m.order) == 0
}

// Has reports whether name has at least one value.
func (m *Map) Has(name string) bool {
	vs, ok := m.values[canonicalKey(name)]
	return ok && len(vs) > 0
}

// Foreach calls fn once for every (name, value) pair, in name
// insertion order and, within a name, value insertion order.
func (m *Map) Foreach(fn func(name, value string)) {
	for _, key := range m.order {
		for _, v := range m.values[key] {
			fn(key, v)
		}
	}
}

// ForeachRemove calls fn for every (name, value) pair; whenever fn
// returns true that value is deleted. A name whose value sequence
// becomes empty is dropped entirely (invariant: a header map never
// maps a name to an empty sequence).
//
// This corrects the defect noted in spec.md §9
// ("foreach_remove_value_in_list bug surface"): the source mutated its
// local list head after removing a value but never wrote the updated
// head back into the hash entry, silently undoing the removal. Here
// the rebuilt sequence is written back to m.values before moving to
// the next key.
func (m *Map) ForeachRemove(fn func(name, value string) bool) {
	var emptied []string
	for _, key := range m.order {
		vs := m.values[key]
		kept := vs[:0:0]
		for _, v := range vs {
			if !fn(key, v) {
				kept = append(kept, v)
			}
		}
		if len(kept) == 0 {
			delete(m.values, key)
			emptied = append(emptied, key)
			continue
		}
		m.values[key] = kept
	}
	if len(emptied) == 0 {
		return
	}
	remaining := m.order[:0:0]
	for _, key := range m.order {
		drop := false
		for _, e := range emptied {
			if e == key {
				drop = true
				break
			}
		}
		if !drop {
			remaining = append(remaining, key)
		}
	}
	m.order = remaining
}

// Clear removes every header.
func (m *Map) Clear() {
	m.values = make(map[string][]string)
	m.order = nil
}

// Clone returns a deep copy of m.
func (m *Map) Clone() *Map {
	c := New()
	for _, key := range m.order {
		vs := m.values[key]
		vs2 := make([]string, len(vs))
		copy(vs2, vs)
		c.values[key] = vs2
		c.order = append(c.order, key)
	}
	return c
}

// sortedNames returns the header names in sorted order, for
// deterministic String output.
func (m *Map) sortedNames() []string {
	names := make([]string, len(m.order))
	copy(names, m.order)
	sort.Strings(names)
	return names
}

// String renders the header map in a debug-friendly "Name: value"
// form, sorted by name. It is not wire format and exists for logging.
func (m *Map) String() string {
	var b strings.Builder
	for _, name := range m.sortedNames() {
		for _, v := range m.values[name] {
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(v)
			b.WriteString("\n")
		}
	}
	return b.String()
}
