package builtin

import (
	"net/url"
	"strings"

	"github.com/badu/httpmsg"
	"github.com/badu/httpmsg/endpoint"
	"github.com/badu/httpmsg/errclass"
)

// methodGet and methodHead mirror the teacher's cli/utils.go
// redirectBehavior: 301/302/303 downgrade any non-GET/HEAD method to
// GET and drop the body; 307/308 preserve method and body.
const (
	methodGet  = "GET"
	methodHead = "HEAD"
)

// handleRedirect implements spec.md §4.7's 3xx handling, grounded on
// the teacher's cli/client.go Do loop and cli/utils.go's
// redirectBehavior/shouldCopyHeaderOnRedirect. NoRedirect suppresses
// it entirely; Config.MaxRedirects bounds how many hops a single
// Message will follow.
func handleRedirect(msg *httpmsg.Message, _ any) httpmsg.Result {
	if msg.Error().Class != errclass.Redirect {
		return httpmsg.Continue
	}
	if msg.Flags().Has(httpmsg.NoRedirect) {
		return httpmsg.Continue
	}

	loc, ok := msg.ResponseHeader.GetOne("Location")
	if !ok {
		// Observed in the wild for 308s served without a Location
		// header (teacher's cli/utils.go comment, Issue 17773): stop
		// here instead of failing the request.
		return httpmsg.Continue
	}

	oldURI := msg.Context().URI()
	dest, err := oldURI.Parse(loc)
	if err != nil {
		msg.SetHandlerError(0, "failed to parse Location header: "+err.Error())
		return httpmsg.Kill
	}

	newMethod, includeBody := redirectBehavior(msg.Method, msg.Error().Code)

	cfg := msg.Config()
	if msg.RedirectCount() >= cfg.MaxRedirects {
		msg.SetHandlerError(0, "stopped after too many redirects")
		return httpmsg.Kill
	}

	copyCredentialsIfSameHost(msg, oldURI, dest)
	newCtx := endpoint.New(dest)
	msg.SetContext(newCtx)
	newCtx.Release() // SetContext retained its own reference

	msg.Method = newMethod
	if !includeBody {
		msg.RequestBuffer.Bytes = nil
	}

	stripHopSensitiveHeaders(msg, oldURI, dest)
	msg.IncrementRedirectCount()

	return httpmsg.Resend
}

// redirectBehavior mirrors the teacher's cli/utils.go redirectBehavior,
// specialized to this engine's {method, status code} inputs (no
// ireq.GetBody/OutgoingLength collaborator exists here, so 307/308
// always resend the buffered body).
func redirectBehavior(method string, code int) (newMethod string, includeBody bool) {
	switch code {
	case 301, 302, 303:
		newMethod = method
		if method != methodGet && method != methodHead {
			newMethod = methodGet
		}
		return newMethod, false
	case 307, 308:
		return method, true
	default:
		return method, true
	}
}

// copyCredentialsIfSameHost ports shouldCopyHeaderOnRedirect's
// Authorization/WWW-Authenticate allowance for same-domain-or-subdomain
// redirects (teacher's cli/utils.go), applied here to the Authorization
// request header a prior auth handler may have stamped.
func copyCredentialsIfSameHost(msg *httpmsg.Message, oldURI, dest *url.URL) {
	if !isDomainOrSubdomain(strings.ToLower(dest.Host), strings.ToLower(oldURI.Host)) {
		msg.RequestHeader.Remove("Authorization")
	}
}

// stripHopSensitiveHeaders removes headers that must not silently
// cross to a different host on redirect (teacher's makeHeadersCopier
// intent, narrowed to what this engine threads through a redirect).
func stripHopSensitiveHeaders(msg *httpmsg.Message, oldURI, dest *url.URL) {
	if strings.EqualFold(oldURI.Host, dest.Host) {
		return
	}
	msg.RequestHeader.Remove("Cookie")
}

// isDomainOrSubdomain reports whether sub is parent or a subdomain of
// parent, ported from the teacher's cli/utils.go.
func isDomainOrSubdomain(sub, parent string) bool {
	if sub == parent {
		return true
	}
	if !strings.HasSuffix(sub, parent) {
		return false
	}
	return sub[len(sub)-len(parent)-1] == '.'
}
