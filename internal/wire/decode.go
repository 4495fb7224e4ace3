package wire

import (
	"io"

	"github.com/urllib3/urllib3-go/header"
	"github.com/urllib3/urllib3-go/internal/compress"
)

// DecodeOptions configures the content-decoder chain applied to a response
// body.
type DecodeOptions struct {
	MaxChainLength int   // 0 means compress.MaxChainLength
	MaxBytes       int64 // 0 means unbounded
}

// WrapContentDecoders applies the decoder chain named by the response's
// Content-Encoding header, in reverse order, honoring opts. Returns body
// unwrapped if Content-Encoding is absent or identity.
func WrapContentDecoders(body io.ReadCloser, h *header.Bag, opts DecodeOptions) (io.ReadCloser, error) {
	ce := h.GetCombined("Content-Encoding")
	if ce == "" {
		return body, nil
	}
	return compress.Chain(body, ce, opts.MaxChainLength, opts.MaxBytes)
}
