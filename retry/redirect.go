package retry

import (
	"net/http"
	"strings"

	"github.com/urllib3/urllib3-go/header"
)

// CredentialHeadersOnMethodChange are headers dropped (alongside the body)
// whenever a redirect rewrites the method to GET — distinct from, and in
// addition to, the configurable host-change rule in StripHeadersForRedirect.
var CredentialHeadersOnMethodChange = []string{"Authorization", "Cookie", "Proxy-Authorization"}

// RewriteForRedirect applies the method-rewriting rule for a 3xx response,
// returning the new method, whether the body must be dropped, and whether
// CredentialHeadersOnMethodChange must be stripped.
//
//	303            -> GET, body dropped, credentials stripped
//	301/302        -> HEAD/GET unchanged; any other method becomes GET with
//	                   body and credentials dropped (matches requests/
//	                   urllib3's pragmatic deviation from RFC 7231's "MAY
//	                   change to GET")
//	307/308        -> method and body preserved unchanged
func RewriteForRedirect(status int, method string) (newMethod string, dropBody, stripCredentials bool) {
	switch status {
	case 303:
		return http.MethodGet, true, true
	case 301, 302:
		if method == http.MethodHead || method == http.MethodGet {
			return method, false, false
		}
		return http.MethodGet, true, true
	case 307, 308:
		return method, false, false
	default:
		return method, false, false
	}
}

// StripHeadersForRedirect removes the headers named in removeOnRedirect
// from h in place, but only when oldHost and newHost differ — same-host
// redirects keep credentials.
func StripHeadersForRedirect(h *header.Bag, oldHost, newHost string, removeOnRedirect map[string]bool) {
	if strings.EqualFold(oldHost, newHost) {
		return
	}
	for name := range removeOnRedirect {
		h.Del(name)
	}
}
