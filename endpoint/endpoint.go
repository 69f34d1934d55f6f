// Package endpoint implements the reference-counted Endpoint Context
// described by spec.md §3: an opaque handle bundling a parsed URI with
// a connection-pool affinity key.
//
// URL parsing itself is treated as an external collaborator (spec.md
// §1/§6) — this package wraps the standard library's net/url rather
// than reimplementing RFC 3986 parsing the way the teacher's url
// subpackage does, since the teacher's fork exists to replace net/url
// itself, and nothing here needs a forked implementation.
package endpoint

import (
	"fmt"
	"net/url"
	"sync/atomic"
)

// Context is a shared, reference-counted handle bundling a parsed URI
// with the pool affinity key the transfer engine uses to decide
// whether two messages may share a connection.
//
// A Context is created with one live reference (refcount == 1). Every
// holder must call Retain when it takes a copy of the pointer and
// Release when it is done; the underlying resources are freed when
// the count reaches zero. Message.SetContext is the primary caller of
// Retain/Release: replacing a message's context releases the old
// reference and retains the new one (spec.md §3 "Endpoint Context").
type Context struct {
	uri  *url.URL
	refs int32

	// proxy is the endpoint context for a configured proxy, or nil.
	// The 407 Proxy-Authenticate built-in handler authenticates
	// against this endpoint rather than the message's own context.
	proxy *Context
}

// New wraps uri in a Context with one live reference.
func New(uri *url.URL) *Context {
	c := &Context{uri: uri, refs: 1}
	return c
}

// Retain increments the reference count and returns c, so call sites
// can write `msg.ctx = ctx.Retain()`.
func (c *Context) Retain() *Context {
	if c == nil {
		return nil
	}
	atomic.AddInt32(&c.refs, 1)
	return c
}

// Release decrements the reference count. It is idempotent-safe to
// call on a nil Context (a no-op), matching the teacher's convention
// of nil-tolerant methods on plain structs (e.g. *conn, *persistConn).
func (c *Context) Release() {
	if c == nil {
		return
	}
	if atomic.AddInt32(&c.refs, -1) < 0 {
		panic("endpoint: Context released more times than retained")
	}
}

// RefCount returns the current reference count, for tests asserting
// the "exactly one hold per message" invariant (spec.md §3).
func (c *Context) RefCount() int {
	if c == nil {
		return 0
	}
	return int(atomic.LoadInt32(&c.refs))
}

// URI returns the endpoint's parsed URI.
func (c *Context) URI() *url.URL {
	return c.uri
}

// Key returns the connection-pool / auth-cache affinity key for this
// endpoint: scheme://host:port, ignoring path, query, and credentials.
// Two endpoint contexts with the same Key may share a pooled
// connection and a cached Auth (spec.md §4.7).
func (c *Context) Key() string {
	if c == nil || c.uri == nil {
		return ""
	}
	host := c.uri.Hostname()
	port := c.uri.Port()
	if port == "" {
		port = defaultPort(c.uri.Scheme)
	}
	return fmt.Sprintf("%s://%s:%s", c.uri.Scheme, host, port)
}

func defaultPort(scheme string) string {
	switch scheme {
	case "https", "wss":
		return "443"
	default:
		return "80"
	}
}

// Proxy returns the endpoint context for this endpoint's configured
// proxy, or nil if requests to this endpoint go direct.
func (c *Context) Proxy() *Context {
	if c == nil {
		return nil
	}
	return c.proxy
}

// SetProxy assigns the proxy endpoint context, retaining it.
func (c *Context) SetProxy(proxy *Context) {
	if c == nil {
		return
	}
	if c.proxy != nil {
		c.proxy.Release()
	}
	c.proxy = proxy.Retain()
}

// HasCredentials reports whether the URI carries userinfo.
func (c *Context) HasCredentials() bool {
	return c != nil && c.uri != nil && c.uri.User != nil
}

// Credentials returns the URI's embedded user/password, if any
// (spec.md §8 scenario 4: "401 with credentials via URI"). ok is false
// when the URI carries no userinfo at all.
func (c *Context) Credentials() (user, password string, ok bool) {
	if !c.HasCredentials() {
		return "", "", false
	}
	password, _ = c.uri.User.Password()
	return c.uri.User.Username(), password, true
}
