package conn

import (
	"bufio"
	"time"

	"github.com/urllib3/urllib3-go/header"
	"github.com/urllib3/urllib3-go/internal/deadline"
	"github.com/urllib3/urllib3-go/internal/wire"
)

// streamAdapter presents a Stream as an io.Reader using whatever deadline
// was last set on it, so it can be wrapped in a bufio.Reader.
type streamAdapter struct {
	stream   Stream
	deadline time.Time
}

func (a *streamAdapter) Read(p []byte) (int, error) {
	return a.stream.Read(p, a.deadline)
}

// headReader wraps a Stream in a buffered reader used both for parsing
// response heads (status line + headers) and, afterward, as the raw source
// for the response body.
type headReader struct {
	adapter *streamAdapter
	br      *bufio.Reader
}

func newHeadReader(s Stream) *headReader {
	a := &streamAdapter{stream: s}
	return &headReader{adapter: a, br: bufio.NewReader(a)}
}

// SetDeadline updates the deadline applied to the next Read.
func (r *headReader) SetDeadline(t time.Time) {
	r.adapter.deadline = t
}

func (r *headReader) readHead(d *deadline.Deadline, maxHeaderBytes int) (*wire.StatusLine, *header.Bag, error) {
	r.SetDeadline(d.ReadDeadlineTime())
	sl, err := wire.ReadStatusLine(r.br)
	if err != nil {
		return nil, nil, err
	}
	h, err := wire.ReadHeaders(r.br, maxHeaderBytes)
	if err != nil {
		return nil, nil, err
	}
	return sl, h, nil
}

func (r *headReader) Read(p []byte) (int, error) {
	return r.br.Read(p)
}

// buffered reports the number of bytes already read into the buffer but not
// yet consumed by a caller — used by IsReusable to approximate "zero unread
// bytes available for read".
func (r *headReader) buffered() int {
	return r.br.Buffered()
}

// deadlineWriter presents a Stream as an io.Writer bound by the attempt's
// total deadline (there is no separate write-phase budget).
type deadlineWriter struct {
	stream   Stream
	deadline *deadline.Deadline
}

func (w *deadlineWriter) Write(p []byte) (int, error) {
	return w.stream.Write(p, w.deadline.TotalDeadlineTime())
}

func writeAll(s Stream, buf []byte, deadlineTime time.Time) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := s.Write(buf[total:], deadlineTime)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
