// Package bodystream implements the lazy, pull-based response body
// reader sitting on top of a framed connection byte source — length
// delimiting (content-length/chunked/close-delimited), content decoding,
// and the release-to-pool-on-EOF lifecycle.
package bodystream

import (
	"bufio"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/urllib3/urllib3-go/header"
	"github.com/urllib3/urllib3-go/internal/deadline"
	"github.com/urllib3/urllib3-go/internal/wire"
)

// ConnHandle is the subset of *internal/conn.Conn the body stream needs:
// refreshing the read deadline, and reporting the outcome of consuming the
// body so the connection can be returned to (or withheld from) its pool.
// *conn.Conn satisfies this structurally.
type ConnHandle interface {
	SetBodyReadDeadline(d *deadline.Deadline)
	MarkBodyComplete()
	MarkNonReusable()
	Close() error
}

// state tracks the stream's lifecycle across partial reads.
type state int

const (
	stateReading state = iota
	stateReleased
	stateClosed
)

// Stream is the response body: reads are lazy, honor the attempt's read
// deadline, and drive the connection's release/close decision.
type Stream struct {
	mu sync.Mutex

	conn    ConnHandle
	release func(reusable bool) // hands the connection back to its pool

	mode    wire.BodyMode
	framed  io.Reader     // length-delimited: LimitReader, ChunkedReader, or raw
	decoded io.ReadCloser // framed wrapped by the content-decoder chain
	chunked *wire.ChunkedReader

	deadline    *deadline.Deadline
	autoRelease bool

	state state
	err   error // sticky once set (ProtocolError or a read timeout)
}

// Options configures how a Stream frames and decodes one response body.
type Options struct {
	Mode          wire.BodyMode
	ContentLength int64
	Headers       *header.Bag
	DecodeContent bool
	DecodeOptions wire.DecodeOptions
	AutoRelease   bool
}

// New builds a Stream over raw (the connection's remaining, unparsed
// bytes), framing it per opts.Mode and wrapping it with content decoders if
// opts.DecodeContent. conn and release are used to implement the
// release-on-EOF/close-on-error lifecycle; release may be nil for a body
// the caller will always explicitly Close (e.g. CONNECT's own response).
func New(conn ConnHandle, release func(reusable bool), raw io.Reader, d *deadline.Deadline, opts Options) (*Stream, error) {
	s := &Stream{conn: conn, release: release, deadline: d, autoRelease: opts.AutoRelease, mode: opts.Mode}

	switch opts.Mode {
	case wire.BodyEmpty:
		s.framed = eofReader{}
	case wire.BodyContentLength:
		s.framed = io.LimitReader(raw, opts.ContentLength)
	case wire.BodyChunked:
		s.chunked = wire.NewChunkedReader(raw)
		s.framed = s.chunked
	case wire.BodyCloseDelimited:
		s.framed = raw
	default:
		return nil, errors.Errorf("urllib3: unknown body mode %d", opts.Mode)
	}

	decoded := io.NopCloser(s.framed)
	if opts.DecodeContent && opts.Headers != nil {
		wrapped, err := wire.WrapContentDecoders(decoded, opts.Headers, opts.DecodeOptions)
		if err != nil {
			return nil, err
		}
		decoded = wrapped
	}
	s.decoded = decoded
	return s, nil
}

// Trailers returns trailer headers parsed after a chunked body's terminal
// chunk. Only meaningful once Read has returned io.EOF; nil for non-chunked
// bodies.
func (s *Stream) Trailers() *header.Bag {
	if s.chunked == nil {
		return nil
	}
	return s.chunked.Trailers()
}

// Read implements io.Reader: reads decoded bytes, releasing or closing the
// connection automatically on EOF (per AutoRelease) and transitioning to
// CLOSED on any other error.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(p)
}

func (s *Stream) readLocked(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.state != stateReading {
		return 0, io.EOF
	}

	if s.conn != nil {
		s.conn.SetBodyReadDeadline(s.deadline)
	}
	n, err := s.decoded.Read(p)
	if err == nil {
		return n, nil
	}
	if err == io.EOF {
		// A close-delimited body only ends because the peer closed the
		// socket; that connection is dead, never pooled.
		s.finishLocked(s.mode != wire.BodyCloseDelimited)
		return n, io.EOF
	}

	s.err = err
	s.finishLocked(false)
	return n, err
}

// finishLocked transitions out of READING exactly once, marking the
// connection reusable (clean EOF) or not (any other terminal condition)
// before invoking release.
func (s *Stream) finishLocked(reusable bool) {
	if s.state != stateReading {
		return
	}
	if reusable {
		s.state = stateReleased
		if s.conn != nil {
			s.conn.MarkBodyComplete()
		}
	} else {
		s.state = stateClosed
		if s.conn != nil {
			s.conn.MarkNonReusable()
		}
	}
	if s.autoRelease && s.release != nil {
		s.release(reusable)
		s.release = nil
	}
}

// ErrNotChunked is returned by ReadChunked on a body that is not framed
// with chunked transfer encoding.
var ErrNotChunked = errors.New("urllib3: response is not chunked")

// ReadChunked is Read restricted to chunked-framed bodies: a caller that
// depends on observing the peer's chunk boundaries gets an explicit error
// instead of silently degrading when the response turns out to be
// length- or close-delimited.
func (s *Stream) ReadChunked(p []byte) (int, error) {
	if s.chunked == nil {
		return 0, ErrNotChunked
	}
	return s.Read(p)
}

// ChunkIter is a pull-based cursor over the decoded body, yielding segments
// of at most its configured size. The returned slice is reused between Next
// calls; callers that retain a segment must copy it.
type ChunkIter struct {
	s    *Stream
	buf  []byte
	done bool
}

// Iter returns a ChunkIter reading segments of up to amt bytes (a
// non-positive amt selects a default segment size).
func (s *Stream) Iter(amt int) *ChunkIter {
	if amt <= 0 {
		amt = 8 * 1024
	}
	return &ChunkIter{s: s, buf: make([]byte, amt)}
}

// Next returns the next body segment, or (nil, io.EOF) once the body is
// exhausted. Any other error is terminal and sticky via the Stream.
func (it *ChunkIter) Next() ([]byte, error) {
	if it.done {
		return nil, io.EOF
	}
	for {
		n, err := it.s.Read(it.buf)
		if err == io.EOF {
			it.done = true
			if n == 0 {
				return nil, io.EOF
			}
			return it.buf[:n], nil
		}
		if err != nil {
			it.done = true
			return nil, err
		}
		if n > 0 {
			return it.buf[:n], nil
		}
	}
}

// Read1 performs at most one underlying Read call:
// useful for callers that want to observe chunk/packet boundaries instead
// of Read's usual "fill p if possible" behavior. Since decoded is itself
// already a single io.Reader call per invocation here, Read1 is Read.
func (s *Stream) Read1(p []byte) (int, error) {
	return s.Read(p)
}

// ReadAll drains the entire body (like Read, but with no size limit), then
// releases/closes per the usual EOF rules.
func (s *Stream) ReadAll() ([]byte, error) {
	data, err := io.ReadAll(readerFunc(s.Read))
	if err != nil {
		return data, err
	}
	return data, nil
}

// Lines returns a *bufio.Scanner line iterator over the decoded body.
func (s *Stream) Lines() *bufio.Scanner {
	return bufio.NewScanner(readerFunc(s.Read))
}

// maxDrainBytes bounds how much of an unread body Release will absorb
// before giving up and discarding the connection instead of returning it
// to the pool mid-body.
const maxDrainBytes = 64 * 1024

// Release gives up the body without the caller having read it to EOF: a
// retried or redirected attempt that isn't going to finish reading this
// response. The remaining bytes are drained off the wire so the connection
// isn't handed back to the pool with another response's bytes still
// sitting unread on the socket; a body too large to drain within
// maxDrainBytes is discarded instead of drained.
func (s *Stream) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateReading {
		return
	}
	if s.conn != nil {
		s.conn.SetBodyReadDeadline(s.deadline)
	}
	_, err := io.CopyN(io.Discard, s.decoded, maxDrainBytes+1)
	reusable := err == io.EOF && s.mode != wire.BodyCloseDelimited

	if reusable {
		s.state = stateReleased
		if s.conn != nil {
			s.conn.MarkBodyComplete()
		}
	} else {
		s.state = stateClosed
		if s.conn != nil {
			s.conn.MarkNonReusable()
		}
	}
	if s.release != nil {
		s.release(reusable)
		s.release = nil
	}
}

// Close abandons the body and marks the connection non-reusable: the safe
// default for a body that is not going to be fully drained.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateClosed {
		return nil
	}
	s.state = stateClosed
	if s.conn != nil {
		s.conn.MarkNonReusable()
	}
	if s.release != nil {
		s.release(false)
		s.release = nil
	}
	return s.decoded.Close()
}

// eofReader is the body of a HEAD/1xx/204/304 response: always empty.
type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }

// readerFunc adapts a bound method value to io.Reader.
type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }
