package urllib3

import (
	"encoding/base64"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/urllib3/urllib3-go/header"
	"github.com/urllib3/urllib3-go/internal/wire"
	"github.com/urllib3/urllib3-go/retry"
	"github.com/urllib3/urllib3-go/urlutil"
)

// Request is one HTTP request to be issued, before final header assembly.
type Request struct {
	Method  string
	URL     *urlutil.URL
	Headers *header.Bag // caller-supplied headers; nil is equivalent to empty
	Body    io.Reader
	// BodyLength is the known length of Body, or -1 if unknown (streamed,
	// forcing chunked framing).
	BodyLength int64

	// Timeout, if non-nil, overrides the Client's default timeout budget
	// for this request's attempts.
	Timeout *Timeout
	// Retries, if non-nil, overrides the Client's default retry policy for
	// this request.
	Retries *retry.Policy
}

// supportedEncodings lists the Accept-Encoding tokens this module can
// transparently decode (internal/compress's registered decoders).
var supportedEncodings = []string{"gzip", "deflate", "br", "zstd"}

const libraryIdentity = "urllib3-go/0.1"

// prepareHeaders builds the final header set for req: default headers at
// lowest precedence, then caller headers, then the facade's own
// computed defaults for anything still unset.
func prepareHeaders(req *Request, defaultHeaders *header.Bag, decodeContent bool, proxy *urlutil.URL) *header.Bag {
	h := header.NewBag()
	if defaultHeaders != nil {
		defaultHeaders.Each(func(name, value string) { h.Add(name, value) })
	}
	if req.Headers != nil {
		// A caller header replaces every default value of the same name.
		seen := map[string]bool{}
		req.Headers.Each(func(name, value string) {
			if !seen[name] {
				seen[name] = true
				h.Set(name, value)
			} else {
				h.Add(name, value)
			}
		})
	}

	if !h.Contains("Host") {
		h.Set("Host", req.URL.HostHeader())
	}
	if !h.Contains("User-Agent") {
		h.Set("User-Agent", libraryIdentity)
	}
	if decodeContent && !h.Contains("Accept-Encoding") {
		h.Set("Accept-Encoding", joinEncodings(supportedEncodings))
	}
	if proxy != nil && !h.Contains("Proxy-Authorization") {
		if auth := proxyBasicAuth(proxy); auth != "" {
			h.Set("Proxy-Authorization", auth)
		}
	}
	return h
}

func joinEncodings(tokens []string) string {
	out := ""
	for i, t := range tokens {
		if i > 0 {
			out += ", "
		}
		out += t
	}
	return out
}

// proxyBasicAuth builds a "Basic ..." header value from proxy's userinfo,
// or "" if the proxy URL carries none.
func proxyBasicAuth(proxy *urlutil.URL) string {
	if proxy.User == "" {
		return ""
	}
	cred := proxy.User
	if proxy.Password != "" {
		cred += ":" + proxy.Password
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(cred))
}

// ErrUnknownLengthBody is returned for a GET or HEAD request carrying a
// body of unknown length with no explicit Content-Length header: such a
// request is permitted, but it is never auto-chunked.
var ErrUnknownLengthBody = errors.New("urllib3: GET/HEAD body of unknown length requires an explicit Content-Length header")

// chooseFraming selects the request body's wire framing from the
// request's declared length.
func chooseFraming(req *Request) (wire.Framing, int64, error) {
	hasBody := req.Body != nil
	length := req.BodyLength
	if hasBody && length < 0 && (req.Method == "GET" || req.Method == "HEAD") {
		cl := ""
		if req.Headers != nil {
			cl = req.Headers.Get("Content-Length")
		}
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || n < 0 {
			return wire.FramingNone, 0, ErrUnknownLengthBody
		}
		return wire.FramingContentLength, n, nil
	}
	framing := wire.ChooseFraming(req.Method, hasBody, length)
	if framing != wire.FramingContentLength {
		length = 0
	}
	return framing, length, nil
}
