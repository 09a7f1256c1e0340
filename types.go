package respondentgate

import (
	"net"
	"strings"
)

// AuthRequest carries everything the gate needs from one inbound
// authentication attempt. The web layer fills it from the HTTP request; the
// gate never sees the request itself.
type AuthRequest struct {
	// Segments are the raw code segments as submitted, canonicalized by the
	// gate before use.
	Segments []string
	// RemoteAddr is the peer network address ("host:port" or bare host).
	RemoteAddr string
	// ForwardedFor is the X-Forwarded-For header value, if any. Behind a
	// load balancer this carries the real client address.
	ForwardedFor string
	// AcceptLanguage is the Accept-Language header value, if any.
	AcceptLanguage string
	// URL is the request URL, used only for Welsh-domain detection.
	URL string
}

// Grant is a successful authentication outcome.
type Grant struct {
	// Token is the opaque encrypted bearer token, safe for use as a URL
	// query parameter.
	Token string
	// TransactionID is the claim set's transaction id, for correlation.
	TransactionID string
	// LanguageCode is the locale the claim set was built with.
	LanguageCode string
	// LaunchURL is the questionnaire session endpoint the caller should
	// redirect to.
	LaunchURL string
}

// clientIdentity resolves the rate-limiter key for a request: the first
// X-Forwarded-For hop when present, otherwise the remote address without
// its port. Shared NATs collapsing onto one identity is an accepted
// tradeoff.
func clientIdentity(req AuthRequest) string {
	if req.ForwardedFor != "" {
		first, _, _ := strings.Cut(req.ForwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(req.RemoteAddr); err == nil {
		return host
	}
	return req.RemoteAddr
}
