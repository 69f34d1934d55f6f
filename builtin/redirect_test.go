package builtin_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badu/httpmsg"
	"github.com/badu/httpmsg/builtin"
	"github.com/badu/httpmsg/config"
	"github.com/badu/httpmsg/endpoint"
	"github.com/badu/httpmsg/enginetest"
	"github.com/badu/httpmsg/errclass"
)

// fakeBasicAuth is a minimal builtin.Auth for "Basic" challenges. It
// supersedes a prior cached Auth only when the challenge's realm
// changed, the way a real Basic/Digest implementation would treat a
// realm rotation as "the server wants a new credential".
type fakeBasicAuth struct {
	token string
	realm string
}

func (a *fakeBasicAuth) Scheme() string { return "Basic" }
func (a *fakeBasicAuth) Init(challenge string, uri *url.URL) error {
	a.token = "dGVzdDp0ZXN0"
	a.realm = challengeRealm(challenge)
	return nil
}
func (a *fakeBasicAuth) Supersedes(prior builtin.Auth) bool {
	p, ok := prior.(*fakeBasicAuth)
	if !ok {
		return true
	}
	return a.realm != p.realm
}
func (a *fakeBasicAuth) Authorization() string { return "Basic " + a.token }

func challengeRealm(challenge string) string {
	const marker = `realm="`
	i := strings.Index(challenge, marker)
	if i < 0 {
		return ""
	}
	rest := challenge[i+len(marker):]
	if j := strings.IndexByte(rest, '"'); j >= 0 {
		return rest[:j]
	}
	return rest
}

func newAuthFn(scheme string) (builtin.Auth, bool) {
	if scheme == "Basic" {
		return &fakeBasicAuth{}, true
	}
	return nil, false
}

// TestMain registers the built-in handler table once for the whole
// package, matching spec.md §9's "immutable array built at
// initialization": RegisterAll is not meant to be called per-test.
func TestMain(m *testing.M) {
	builtin.RegisterAll(8, newAuthFn)
	m.Run()
}

func newMessage(t *testing.T, engine *enginetest.Engine, rawURL string) *httpmsg.Message {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	cfg := config.New()
	ctx := endpoint.New(u)
	msg := httpmsg.New(ctx, cfg, "GET")
	msg.Engine = engine
	return msg
}

func TestRedirectFollowsLocationAndResends(t *testing.T) {
	engine := enginetest.New()
	msg := newMessage(t, engine, "http://example.com/old")

	engine.Enqueue("http://example.com:80", enginetest.Response{
		StatusCode: 302,
		Headers:    map[string][]string{"Location": {"http://example.com/new"}},
	})
	engine.Enqueue("http://example.com:80", enginetest.Response{
		StatusCode: 200,
		Body:       []byte("ok"),
	})

	class := httpmsg.Send(msg)

	assert.Equal(t, errclass.Success, class)
	assert.Equal(t, []string{"http://example.com:80", "http://example.com:80"}, engine.StartedKeys())
}

func TestRedirectHonorsNoRedirectFlag(t *testing.T) {
	engine := enginetest.New()
	msg := newMessage(t, engine, "http://example.com/old")
	msg.AddFlags(httpmsg.NoRedirect)

	engine.Enqueue("http://example.com:80", enginetest.Response{
		StatusCode: 302,
		Headers:    map[string][]string{"Location": {"http://example.com/new"}},
	})

	class := httpmsg.Send(msg)

	assert.Equal(t, errclass.Redirect, class)
	assert.Equal(t, []string{"http://example.com:80"}, engine.StartedKeys())
}

func TestRedirectStopsAfterMaxRedirects(t *testing.T) {
	engine := enginetest.New()
	u, err := url.Parse("http://example.com/loop")
	require.NoError(t, err)
	cfg := config.New()
	cfg.MaxRedirects = 2
	ctx := endpoint.New(u)
	msg := httpmsg.New(ctx, cfg, "GET")
	msg.Engine = engine

	for i := 0; i < 3; i++ {
		engine.Enqueue("http://example.com:80", enginetest.Response{
			StatusCode: 302,
			Headers:    map[string][]string{"Location": {"http://example.com/loop"}},
		})
	}

	class := httpmsg.Send(msg)

	assert.Equal(t, errclass.Handler, class)
	assert.LessOrEqual(t, len(engine.StartedKeys()), 3)
}

func TestRedirectDropsAuthorizationOnCrossHost(t *testing.T) {
	engine := enginetest.New()
	msg := newMessage(t, engine, "http://example.com/old")
	msg.RequestHeader.Add("Authorization", "Bearer secret")

	engine.Enqueue("http://example.com:80", enginetest.Response{
		StatusCode: 302,
		Headers:    map[string][]string{"Location": {"http://other.example/new"}},
	})
	engine.Enqueue("http://other.example:80", enginetest.Response{StatusCode: 200})

	_ = httpmsg.Send(msg)

	require.Len(t, engine.StartedKeys(), 2)
	_, ok := engine.RequestHeaderAt(1)["Authorization"]
	assert.False(t, ok)
}
