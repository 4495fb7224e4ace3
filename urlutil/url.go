// Package urlutil implements the normalized URL type used as the basis of
// pool-key derivation: a canonicalized, IDNA-normalized view of an HTTP(S)
// origin plus path/query/fragment.
package urlutil

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

// InvalidURLError reports a malformed URL: empty host, unknown scheme, or a
// non-integer port outside [1, 65535].
type InvalidURLError struct {
	Raw    string
	Reason string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid url %q: %s", e.Raw, e.Reason)
}

// URL is the normalized form of an HTTP(S) target: scheme lowercased, host
// IDNA-normalized and lowercased, port explicit or scheme-default, path
// always non-empty and "/"-prefixed.
type URL struct {
	Scheme   string // "http" or "https"
	Host     string // IDNA-normalized, lowercased, no port
	Port     int    // explicit or scheme-default
	Path     string // "/"+rest, never empty
	Query    string // without leading "?"
	Fragment string // without leading "#"; parsed but never sent on the wire

	// User/Password carry a proxy URL's userinfo, used only to build a
	// Proxy-Authorization header; never present on an origin
	// URL used for an actual request target.
	User     string
	Password string
}

// DefaultPort returns the scheme's default port.
func DefaultPort(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}

// Parse canonicalizes raw into a URL. Percent-encoding of reserved
// characters performed by net/url is idempotent, so re-canonicalizing an
// already-canonical URL is a no-op.
func Parse(raw string) (*URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &InvalidURLError{Raw: raw, Reason: err.Error()}
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, &InvalidURLError{Raw: raw, Reason: "unknown scheme " + u.Scheme}
	}
	host := u.Hostname()
	if host == "" {
		return nil, &InvalidURLError{Raw: raw, Reason: "empty host"}
	}
	normHost, err := idna.ToASCII(strings.ToLower(host))
	if err != nil {
		// Not every valid host is valid IDNA input (e.g. bracketed IPv6
		// literals); fall back to the lowercased literal in that case.
		normHost = strings.ToLower(host)
	}

	port := DefaultPort(scheme)
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return nil, &InvalidURLError{Raw: raw, Reason: "invalid port " + p}
		}
		port = n
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	out := &URL{
		Scheme:   scheme,
		Host:     normHost,
		Port:     port,
		Path:     path,
		Query:    u.RawQuery,
		Fragment: u.Fragment,
	}
	if u.User != nil {
		out.User = u.User.Username()
		out.Password, _ = u.User.Password()
	}
	return out, nil
}

// IsDefaultPort reports whether Port is the scheme's default, i.e. it can be
// omitted from the wire Host header.
func (u *URL) IsDefaultPort() bool {
	return u.Port == DefaultPort(u.Scheme)
}

// HostPort returns "host:port", always including the port. HostHeader uses
// it for non-default ports, and Origin for the origin string.
func (u *URL) HostPort() string {
	return u.Host + ":" + strconv.Itoa(u.Port)
}

// HostHeader returns the value to send in the Host header: host:port when
// Port is non-default, bare host otherwise.
func (u *URL) HostHeader() string {
	if u.IsDefaultPort() {
		return u.Host
	}
	return u.HostPort()
}

// RequestTarget returns the path?query suitable for an origin-form request
// line. The fragment is never included.
func (u *URL) RequestTarget() string {
	if u.Query == "" {
		return u.Path
	}
	return u.Path + "?" + u.Query
}

// AbsoluteRequestTarget returns scheme://host[:port]/path?query (the port
// is omitted when it is the scheme's default), the absolute-form
// request-target used for forward-proxied HTTP origins.
func (u *URL) AbsoluteRequestTarget() string {
	return u.Scheme + "://" + u.HostHeader() + u.RequestTarget()
}

// String renders the canonical URL, without the fragment.
func (u *URL) String() string {
	return u.AbsoluteRequestTarget()
}

// Origin returns the (scheme, host, port) triple as a string. Pool keys are
// derived from the URL's fields directly, not from this string.
func (u *URL) Origin() string {
	return u.Scheme + "://" + u.HostPort()
}

// WithPath returns a copy of u with Path/Query/Fragment replaced (an empty
// path becomes "/").
func (u *URL) WithPath(path, query, fragment string) *URL {
	cp := *u
	if path == "" {
		path = "/"
	}
	cp.Path = path
	cp.Query = query
	cp.Fragment = fragment
	return &cp
}

// ResolveReference resolves ref (which may be relative) against u and
// returns the normalized result, used for redirect Location handling.
func ResolveReference(base *URL, ref string) (*URL, error) {
	baseURL, err := url.Parse(base.String())
	if err != nil {
		return nil, &InvalidURLError{Raw: base.String(), Reason: err.Error()}
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return nil, &InvalidURLError{Raw: ref, Reason: err.Error()}
	}
	resolved := baseURL.ResolveReference(refURL)
	return Parse(resolved.String())
}
