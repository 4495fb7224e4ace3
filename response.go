package urllib3

import (
	"bytes"
	"io"

	"github.com/urllib3/urllib3-go/header"
	"github.com/urllib3/urllib3-go/internal/bodystream"
	"github.com/urllib3/urllib3-go/retry"
)

// Response is the result of one successful attempt:
// status/headers are eagerly available, the body is a lazy stream unless
// WithPreloadContent(true) caused it to be fully read already.
type Response struct {
	Status     int
	Reason     string
	Version    string
	Headers    *header.Bag
	RequestURL string

	body *bodystream.Stream
	// preloaded holds the fully-read body when WithPreloadContent(true) is
	// in effect; Body()/Read read from this instead of the live stream.
	preloaded []byte
	isPreload bool

	History []retry.Event
}

// Body returns an io.ReadCloser over the response body: the live stream,
// or a reader over the preloaded bytes if WithPreloadContent(true) was set.
func (r *Response) Body() io.ReadCloser {
	if r.isPreload {
		return io.NopCloser(bytes.NewReader(r.preloaded))
	}
	return r.body
}

// Data returns the entire decoded body: the preloaded bytes, or a full
// drain of the live stream (releasing the connection on success).
func (r *Response) Data() ([]byte, error) {
	if r.isPreload {
		return r.preloaded, nil
	}
	if r.body == nil {
		return nil, nil
	}
	return r.body.ReadAll()
}

// Stream returns a pull iterator yielding decoded body segments of up to
// amt bytes, ending with (nil, io.EOF). The yielded slice is reused between
// calls. A preloaded body streams from memory and is restartable by calling
// Stream again; a live body is consumed as it is yielded.
func (r *Response) Stream(amt int) func() ([]byte, error) {
	if amt <= 0 {
		amt = 8 * 1024
	}
	if r.isPreload || r.body == nil {
		rd := bytes.NewReader(r.preloaded)
		buf := make([]byte, amt)
		return func() ([]byte, error) {
			n, err := rd.Read(buf)
			if n > 0 {
				return buf[:n], nil
			}
			if err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
	}
	return r.body.Iter(amt).Next
}

// ReadChunked reads decoded bytes from a chunked-framed body, failing with
// bodystream.ErrNotChunked for any other framing.
func (r *Response) ReadChunked(p []byte) (int, error) {
	if r.body == nil {
		return 0, bodystream.ErrNotChunked
	}
	return r.body.ReadChunked(p)
}

// Trailers returns trailer headers from a chunked body, once fully read.
func (r *Response) Trailers() *header.Bag {
	if r.body == nil {
		return nil
	}
	return r.body.Trailers()
}

// Release returns the underlying connection to its pool, first draining
// any unread body bytes (or discarding the connection if the body is too
// large to drain inline). A no-op once preloaded.
func (r *Response) Release() {
	if !r.isPreload && r.body != nil {
		r.body.Release()
	}
}

// Close abandons the body, marking its connection non-reusable.
func (r *Response) Close() error {
	if r.isPreload || r.body == nil {
		return nil
	}
	return r.body.Close()
}
