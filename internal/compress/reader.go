// Package compress implements the content-decoder chain: lazily
// initialized, sticky-error wrappers around gzip, deflate (zlib-or-raw),
// brotli and zstd, bounded by a decoder-chain cap and a total decoded-bytes
// cap so a malicious or misconfigured peer can't amplify a small response
// into unbounded CPU/memory use.
package compress

import (
	"fmt"
	"io"
	"strings"
)

// Reader is a decoder stage: a ReadCloser that lazily wraps an underlying
// body on first Read, exposing the wrapped body so stages can be chained.
type Reader interface {
	io.ReadCloser
	Underlying() io.ReadCloser
}

// ContentDecodingError is returned for an unrecognized Content-Encoding
// token.
type ContentDecodingError struct {
	Token string
}

func (e *ContentDecodingError) Error() string {
	return fmt.Sprintf("urllib3: unsupported content-encoding %q", e.Token)
}

// ErrTooManyEncodings is returned when the Content-Encoding header names
// more tokens than MaxChainLength.
var ErrTooManyEncodings = fmt.Errorf("urllib3: too many chained content-encodings")

// MaxChainLength is the default cap on the number of chained decoders
// applied to one response.
const MaxChainLength = 5

// NewReader wraps body with the single decoder named by token ("identity",
// "gzip", "deflate", "br", "zstd"). Returns (nil, *ContentDecodingError) for
// an unknown token. "identity" returns body unwrapped.
func NewReader(body io.ReadCloser, token string) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "", "identity":
		return body, nil
	case "gzip", "x-gzip":
		return NewGzipReader(body), nil
	case "deflate":
		return NewDeflateReader(body), nil
	case "br":
		return NewBrotliReader(body), nil
	case "zstd":
		return NewZstdReader(body), nil
	default:
		return nil, &ContentDecodingError{Token: token}
	}
}

// Chain parses a comma-separated Content-Encoding header value and wraps
// body with one decoder per token, applied in the reverse order the tokens
// were encoded in (i.e. the last-listed encoding is undone first). maxBytes,
// if > 0, caps the total number of decoded bytes a caller may read before
// getting a DecodeError.
func Chain(body io.ReadCloser, contentEncoding string, maxChain int, maxBytes int64) (io.ReadCloser, error) {
	if maxChain <= 0 {
		maxChain = MaxChainLength
	}
	tokens := splitTokens(contentEncoding)
	if len(tokens) > maxChain {
		return nil, ErrTooManyEncodings
	}
	out := body
	// Reverse order: Content-Encoding lists transforms in the order they
	// were applied by the server, e.g. "gzip, br" means gzip-then-br was
	// applied, so the client must undo br first. The last-listed token is
	// wrapped innermost, directly over the raw body.
	for i := len(tokens) - 1; i >= 0; i-- {
		r, err := NewReader(out, tokens[i])
		if err != nil {
			return nil, err
		}
		out = r
	}
	if maxBytes > 0 {
		out = &limitedReadCloser{ReadCloser: out, remaining: maxBytes}
	}
	return out, nil
}

func splitTokens(contentEncoding string) []string {
	if contentEncoding == "" {
		return nil
	}
	parts := strings.Split(contentEncoding, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || p == "identity" {
			continue
		}
		out = append(out, p)
	}
	return out
}
