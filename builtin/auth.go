// Package builtin implements the engine's process-wide handler table
// (spec.md §4.7): redirect-following, WWW-Authenticate/Proxy-Authenticate
// challenge handling. Each handler registers itself into httpmsg's
// global table via httpmsg.RegisterGlobalHandler from RegisterAll, in
// the fixed order libsoup itself runs them: redirect before auth,
// since a redirected request gets its own chance to challenge.
//
// Grounded on the teacher's cli/client.go Do loop (the redirect
// decision table, credential-copy-on-redirect rule) and on
// original_source/libsoup/soup-message.c's authenticate/restarted
// signal pair that this spec's HANDLER events distill.
package builtin

import (
	"net/url"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/badu/httpmsg"
	"github.com/badu/httpmsg/endpoint"
	"github.com/badu/httpmsg/header"
)

// Auth represents one negotiated authentication session for an
// endpoint (spec.md §4.7's "Auth cache" collaborator). Implementations
// live outside this package (e.g. Basic, Digest); builtin only caches
// and drives them.
type Auth interface {
	// Scheme is the auth scheme name this Auth handles ("Basic", "Digest", ...).
	Scheme() string
	// Init consumes a WWW-Authenticate/Proxy-Authenticate challenge
	// string for uri, returning an error if the challenge is
	// malformed or the scheme cannot be satisfied.
	Init(challenge string, uri *url.URL) error
	// Supersedes reports whether this Auth should replace prior in the
	// cache (e.g. a server rotated its realm/nonce).
	Supersedes(prior Auth) bool
	// Authorization renders the Authorization/Proxy-Authorization
	// header value for a subsequent request against the same endpoint.
	Authorization() string
}

// NewAuthFunc constructs an Auth for the named scheme, or (nil, false)
// if the scheme is unsupported. Host applications register their Auth
// implementations (Basic, Digest, NTLM, ...) by supplying this.
type NewAuthFunc func(scheme string) (Auth, bool)

var newAuth NewAuthFunc

// authCache holds one negotiated Auth per endpoint key. Sized from
// Config.AuthCacheSize at RegisterAll time; grounded on
// webitel-im-delivery-service's internal/service/peer_enricher.go,
// which bounds a similarly keyed cache with
// github.com/hashicorp/golang-lru/v2.
var authCache *lru.Cache[string, Auth]

// proxyAuthCache mirrors authCache for proxy credentials, keyed by the
// proxy endpoint rather than the destination endpoint.
var proxyAuthCache *lru.Cache[string, Auth]

// RegisterAll installs the built-in handlers into httpmsg's global
// table and sizes the Auth caches. cacheSize should come from
// Config.AuthCacheSize; newAuthFn supplies scheme implementations. Call
// once at process start, before any Message is queued (spec.md §9:
// "Represent as an immutable array built at initialization").
func RegisterAll(cacheSize int, newAuthFn NewAuthFunc) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	newAuth = newAuthFn
	authCache, _ = lru.New[string, Auth](cacheSize)
	proxyAuthCache, _ = lru.New[string, Auth](cacheSize)

	httpmsg.RegisterGlobalHandler(&httpmsg.Handler{
		Event:    httpmsg.EventHeaders,
		Filter:   httpmsg.HeaderFilter("Location"),
		Callback: handleRedirect,
		Name:     "builtin-redirect",
	})
	httpmsg.RegisterGlobalHandler(&httpmsg.Handler{
		Event:    httpmsg.EventHeaders,
		Filter:   httpmsg.ErrorCodeFilter(401),
		Callback: handleAuthenticate,
		Name:     "builtin-authenticate",
	})
	httpmsg.RegisterGlobalHandler(&httpmsg.Handler{
		Event:    httpmsg.EventHeaders,
		Filter:   httpmsg.ErrorCodeFilter(407),
		Callback: handleProxyAuthenticate,
		Name:     "builtin-proxy-authenticate",
	})
}

// handleAuthenticate implements spec.md §4.7's 401 handling: read the
// challenge, resolve credentials (URI userinfo, then
// Config.AuthCallback), check any cached prior Auth for the endpoint,
// and either stamp an Authorization header and RESEND, or RESTART with CANT_AUTHENTICATE so any handler that altered
// the error along the way gets re-evaluated against the final state.
func handleAuthenticate(msg *httpmsg.Message, _ any) httpmsg.Result {
	return authenticate(msg, msg.ResponseHeader, "Www-Authenticate", "Authorization", msg.Context(), authCache)
}

// handleProxyAuthenticate implements the 407 analogue, authenticating
// against the Message's proxy endpoint rather than its own.
func handleProxyAuthenticate(msg *httpmsg.Message, _ any) httpmsg.Result {
	proxy := msg.Context().Proxy()
	if proxy == nil {
		// Not part of spec.md §4.7's algorithm: no proxy is ever going
		// to appear by restarting, so this terminates immediately
		// rather than cycling through RunHandlers' restart cap.
		msg.SetAuthError(407, "proxy authentication required but no proxy endpoint configured", true)
		return httpmsg.Kill
	}
	return authenticate(msg, msg.ResponseHeader, "Proxy-Authenticate", "Proxy-Authorization", proxy, proxyAuthCache)
}

// authenticate follows spec.md §4.7's Authenticate/Proxy-Authenticate
// algorithm (mirroring original_source/libsoup/soup-message.c's
// authorize_handler, lines 489-549) step by step:
//  1. read the challenge header, RESTART if absent;
//  2. parse the scheme, RESTART if unrecognised;
//  3. if the endpoint URI has no userinfo and a process-wide
//     Config.AuthCallback is registered, invoke it to populate
//     credentials for this attempt (soup-message.c:523);
//  4. if there is still no user, fail and RESTART (soup-message.c:527);
//  5. initialize the Auth against the URI; if a prior Auth is cached
//     for this endpoint and the new one does not supersede it, fail
//     and RESTART (soup_auth_invalidates_prior, soup-message.c:536-542);
//  6. bind the new Auth to the cache and RESEND.
func authenticate(msg *httpmsg.Message, respHeader *header.Map, challengeHeader, authHeader string, ep *endpoint.Context, cache *lru.Cache[string, Auth]) httpmsg.Result {
	challenge, ok := respHeader.GetOne(challengeHeader)
	if !ok {
		restartAuthFailure(msg, authHeader, "no "+challengeHeader+" challenge header present")
		return httpmsg.Restart
	}

	scheme := challengeScheme(challenge)
	if newAuth == nil {
		restartAuthFailure(msg, authHeader, "Unknown authentication scheme required…")
		return httpmsg.Restart
	}
	a, ok := newAuth(scheme)
	if !ok {
		restartAuthFailure(msg, authHeader, "Unknown authentication scheme required…")
		return httpmsg.Restart
	}

	uri := ep.URI()
	_, _, hasUser := ep.Credentials()
	cfg := msg.Config()
	if !hasUser && cfg.AuthCallback != nil {
		if user, password, ok := cfg.AuthCallback(ep.Key()); ok {
			uri = withUserinfo(uri, user, password)
			hasUser = true
		}
	}
	if !hasUser {
		restartAuthFailure(msg, authHeader, "no credentials available to satisfy authentication challenge")
		return httpmsg.Restart
	}

	if err := a.Init(challenge, uri); err != nil {
		restartAuthFailure(msg, authHeader, "no credentials available to satisfy authentication challenge")
		return httpmsg.Restart
	}

	key := ep.Key()
	if prior, ok := cache.Get(key); ok && !a.Supersedes(prior) {
		restartAuthFailure(msg, authHeader, "no credentials available to satisfy authentication challenge")
		return httpmsg.Restart
	}

	cache.Add(key, a)
	msg.RequestHeader.Add(authHeader, a.Authorization())
	return httpmsg.Resend
}

// withUserinfo returns a shallow copy of uri with user/password set,
// leaving the endpoint's own URI untouched: AuthCallback-supplied
// credentials apply to this authentication attempt only, they are not
// persisted back onto the shared endpoint context.
func withUserinfo(uri *url.URL, user, password string) *url.URL {
	clone := *uri
	clone.User = url.UserPassword(user, password)
	return &clone
}

// restartAuthFailure records the failure and zeroes the error code so
// that the ERROR_CODE(401)/ERROR_CODE(407) filter which dispatched this
// handler no longer matches on the RESTART it triggers — per spec.md
// §8's pipeline invariant, "a handler that no longer matches after its
// own mutation is not re-invoked with stale filter state".
func restartAuthFailure(msg *httpmsg.Message, authHeader, phrase string) {
	proxy := authHeader == "Proxy-Authorization"
	msg.SetAuthError(0, phrase, proxy)
}

func challengeScheme(challenge string) string {
	challenge = strings.TrimSpace(challenge)
	if i := strings.IndexByte(challenge, ' '); i >= 0 {
		return challenge[:i]
	}
	return challenge
}
