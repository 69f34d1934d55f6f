package header

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddGetRoundTrip(t *testing.T) {
	h := New()
	h.Add("X-Test", "v1")
	h.Add("x-test", "v2")

	one, ok := h.GetOne("X-Test")
	require.True(t, ok)
	assert.Equal(t, "v1", one)
	assert.Equal(t, []string{"v1", "v2"}, h.GetAll("x-TEST"))
}

func TestRemove(t *testing.T) {
	h := New()
	h.Add("Location", "http://example.test/a")
	h.Remove("location")

	_, ok := h.GetOne("Location")
	assert.False(t, ok)

	var seen []string
	h.Foreach(func(name, value string) { seen = append(seen, name) })
	assert.Empty(t, seen)
}

func TestForeachRemoveDropsEmptiedNames(t *testing.T) {
	h := New()
	h.Add("Set-Cookie", "a=1")
	h.Add("Set-Cookie", "b=2")
	h.Add("Etag", "\"x\"")

	h.ForeachRemove(func(name, value string) bool {
		return name == "Set-Cookie"
	})

	assert.False(t, h.Has("Set-Cookie"))
	v, ok := h.GetOne("Etag")
	assert.True(t, ok)
	assert.Equal(t, "\"x\"", v)

	var names []string
	h.Foreach(func(name, value string) { names = append(names, name) })
	assert.Equal(t, []string{"Etag"}, names)
}

func TestForeachRemovePartialWithinName(t *testing.T) {
	h := New()
	h.Add("Cache-Control", "no-cache")
	h.Add("Cache-Control", "no-store")

	h.ForeachRemove(func(name, value string) bool {
		return value == "no-cache"
	})

	assert.Equal(t, []string{"no-store"}, h.GetAll("Cache-Control"))
}

func TestAddRejectsMalformedValue(t *testing.T) {
	h := New()
	h.Add("X-Bad", "line1\r\nline2")
	_, ok := h.GetOne("X-Bad")
	assert.False(t, ok, "a CR/LF-smuggling value must not be stored")
}

func TestCloneIsIndependent(t *testing.T) {
	h := New()
	h.Add("A", "1")
	c := h.Clone()
	c.Add("A", "2")
	assert.Equal(t, []string{"1"}, h.GetAll("A"))
	assert.Equal(t, []string{"1", "2"}, c.GetAll("A"))
}
