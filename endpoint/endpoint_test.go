package endpoint

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestRetainReleaseBalance(t *testing.T) {
	ctx := New(mustURL(t, "http://example.test/a"))
	assert.Equal(t, 1, ctx.RefCount())

	ctx.Retain()
	assert.Equal(t, 2, ctx.RefCount())

	ctx.Release()
	assert.Equal(t, 1, ctx.RefCount())
}

func TestKeyIgnoresPathAndCredentials(t *testing.T) {
	a := New(mustURL(t, "http://user:pw@example.test/a?x=1"))
	b := New(mustURL(t, "http://example.test/b"))
	assert.Equal(t, a.Key(), b.Key())
}

func TestKeyDefaultPortByScheme(t *testing.T) {
	h := New(mustURL(t, "https://example.test/"))
	assert.Equal(t, "https://example.test:443", h.Key())
}

func TestReleaseBelowZeroPanics(t *testing.T) {
	ctx := New(mustURL(t, "http://example.test/"))
	ctx.Release()
	assert.Panics(t, func() { ctx.Release() })
}

func TestNilContextIsInert(t *testing.T) {
	var c *Context
	assert.Equal(t, 0, c.RefCount())
	assert.False(t, c.HasCredentials())
	assert.NotPanics(t, func() { c.Release() })
}
