package wire

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urllib3/urllib3-go/header"
)

const defaultChunkWriteSize = 4096

func writeChunked(w io.Writer, body io.Reader, chunkSize int) error {
	if body == nil {
		_, err := io.WriteString(w, "0\r\n\r\n")
		return err
	}
	if chunkSize <= 0 {
		chunkSize = defaultChunkWriteSize
	}
	buf := make([]byte, chunkSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := fmt.Fprintf(w, "%x\r\n", n); werr != nil {
				return werr
			}
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			if _, werr := io.WriteString(w, "\r\n"); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "0\r\n\r\n")
	return err
}

// chunkedState tracks where the reader is in the framing grammar:
//
//	SIZE_LINE -> DATA(n) -> CRLF -> (SIZE_LINE | TRAILERS -> DONE)
type chunkedState int

const (
	stateSizeLine chunkedState = iota
	stateData
	stateCRLF
	stateTrailers
	stateDone
)

// MaxChunkSize bounds a single chunk's declared size, rejecting adversarial
// inputs that claim an enormous chunk.
const MaxChunkSize = 16 << 20 // 16 MiB

// ProtocolError reports malformed or unexpected-EOF wire framing.
type ProtocolError struct {
	Reason string
	Cause  error // underlying read error, if any
}

func (e *ProtocolError) Error() string {
	if e.Cause != nil {
		return "urllib3: protocol error: " + e.Reason + ": " + e.Cause.Error()
	}
	return "urllib3: protocol error: " + e.Reason
}

func (e *ProtocolError) Unwrap() error { return e.Cause }

// ChunkedReader is a lazy byte source that decodes chunked transfer framing.
// Trailer headers accumulated after the terminal 0-size chunk are only
// observable (via Trailers) once Read has returned io.EOF.
type ChunkedReader struct {
	br       *bufio.Reader
	state    chunkedState
	n        int64 // remaining bytes in the current chunk
	trailers *header.Bag
	err      error
}

// NewChunkedReader wraps r, which should produce exactly the bytes of one
// chunked-framed body and nothing past it: the reader buffers r, so bytes
// past the body may be read from r into that buffer and not returned.
func NewChunkedReader(r io.Reader) *ChunkedReader {
	return &ChunkedReader{br: bufio.NewReader(r), state: stateSizeLine, trailers: header.NewBag()}
}

// Trailers returns the parsed trailer headers. Only meaningful after Read
// has returned io.EOF.
func (c *ChunkedReader) Trailers() *header.Bag {
	return c.trailers
}

func (c *ChunkedReader) Read(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.read(p)
	if err != nil {
		c.err = err
	}
	return n, err
}

func (c *ChunkedReader) read(p []byte) (int, error) {
	for {
		switch c.state {
		case stateSizeLine:
			if err := c.readSizeLine(); err != nil {
				return 0, err
			}
			if c.n == 0 {
				c.state = stateTrailers
				continue
			}
			c.state = stateData
		case stateData:
			if len(p) == 0 {
				return 0, nil
			}
			toRead := int64(len(p))
			if toRead > c.n {
				toRead = c.n
			}
			n, err := c.br.Read(p[:toRead])
			c.n -= int64(n)
			if err != nil && err != io.EOF {
				return n, err
			}
			if err == io.EOF && c.n > 0 {
				return n, &ProtocolError{Reason: "unexpected EOF mid-chunk"}
			}
			if c.n == 0 {
				c.state = stateCRLF
			}
			if n > 0 {
				return n, nil
			}
		case stateCRLF:
			if err := c.discardCRLF(); err != nil {
				return 0, err
			}
			c.state = stateSizeLine
		case stateTrailers:
			if err := c.readTrailers(); err != nil {
				return 0, err
			}
			c.state = stateDone
		case stateDone:
			return 0, io.EOF
		}
	}
}

func (c *ChunkedReader) readLine() (string, error) {
	line, err := c.br.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			return "", &ProtocolError{Reason: "unexpected EOF reading chunk framing"}
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *ChunkedReader) readSizeLine() error {
	line, err := c.readLine()
	if err != nil {
		return err
	}
	// Chunk extensions (";name=value") are ignored.
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	size, err := strconv.ParseInt(line, 16, 64)
	if err != nil || size < 0 {
		return &ProtocolError{Reason: "invalid chunk size line " + strconv.Quote(line)}
	}
	if size > MaxChunkSize {
		return &ProtocolError{Reason: "chunk size exceeds maximum"}
	}
	c.n = size
	return nil
}

func (c *ChunkedReader) discardCRLF() error {
	line, err := c.readLine()
	if err != nil {
		return err
	}
	if line != "" {
		return &ProtocolError{Reason: "malformed chunk terminator"}
	}
	return nil
}

func (c *ChunkedReader) readTrailers() error {
	for {
		line, err := c.readLine()
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return &ProtocolError{Reason: "malformed trailer line"}
		}
		c.trailers.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
}
