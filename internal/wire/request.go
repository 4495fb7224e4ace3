// Package wire implements HTTP/1.1 request-line/header serialization,
// status-line/header parsing, chunked transfer framing, and the
// content-decoder chain that sits above internal/compress.
package wire

import (
	"fmt"
	"io"
	"strconv"

	"github.com/urllib3/urllib3-go/header"
	"golang.org/x/net/http/httpguts"
)

// Framing selects how a request body is put on the wire. Exactly one
// applies per request.
type Framing int

const (
	// FramingNone means no body at all: neither Content-Length nor
	// Transfer-Encoding is emitted (only legal for methods that allow a
	// bodyless request with no length marker, e.g. GET with no body).
	FramingNone Framing = iota
	// FramingContentLength emits Content-Length: N followed by exactly N
	// bytes.
	FramingContentLength
	// FramingChunked emits Transfer-Encoding: chunked and streams
	// chunk-framed data.
	FramingChunked
)

// noBodyMethods are methods for which an absent body (not even
// Content-Length: 0) is permitted when the caller passed no body at all.
var noBodyMethods = map[string]bool{
	"GET": true, "HEAD": true, "DELETE": true, "OPTIONS": true, "TRACE": true,
}

// ChooseFraming picks the body framing for method given a known length (< 0
// means unknown/streamed) and whether the caller passed a body at all.
func ChooseFraming(method string, hasBody bool, knownLength int64) Framing {
	if !hasBody {
		if noBodyMethods[method] {
			return FramingNone
		}
		return FramingContentLength // emits Content-Length: 0
	}
	if knownLength >= 0 {
		return FramingContentLength
	}
	return FramingChunked
}

// InvalidHeaderError reports a header name or value that cannot be placed
// on the wire.
type InvalidHeaderError struct {
	Name, Value string
	Reason      string
}

func (e *InvalidHeaderError) Error() string {
	return fmt.Sprintf("urllib3: invalid header %q=%q: %s", e.Name, e.Value, e.Reason)
}

// ValidateHeader rejects header names that are not valid tokens and values
// containing CR, LF, or NUL.
func ValidateHeader(name, value string) error {
	if !httpguts.ValidHeaderFieldName(name) {
		return &InvalidHeaderError{Name: name, Value: value, Reason: "invalid header field name"}
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return &InvalidHeaderError{Name: name, Value: value, Reason: "invalid header field value"}
	}
	return nil
}

// WriteRequestLine writes "METHOD<SP>TARGET<SP>HTTP/1.1\r\n".
func WriteRequestLine(w io.Writer, method, requestTarget string) error {
	_, err := fmt.Fprintf(w, "%s %s HTTP/1.1\r\n", method, requestTarget)
	return err
}

// WriteHeaders writes every (name, value) pair in bag's insertion order as
// separate header lines, validating each as it goes, then the terminating
// blank line.
func WriteHeaders(w io.Writer, bag *header.Bag) error {
	var outerErr error
	bag.Each(func(name, value string) {
		if outerErr != nil {
			return
		}
		if err := ValidateHeader(name, value); err != nil {
			outerErr = err
			return
		}
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", name, value); err != nil {
			outerErr = err
		}
	})
	if outerErr != nil {
		return outerErr
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

// PrepareFramingHeaders mutates bag to carry the Content-Length or
// Transfer-Encoding header implied by framing, removing whichever one does
// not apply. Call before WriteHeaders.
func PrepareFramingHeaders(bag *header.Bag, framing Framing, length int64) {
	bag.Del("Content-Length")
	bag.Del("Transfer-Encoding")
	switch framing {
	case FramingContentLength:
		bag.Set("Content-Length", strconv.FormatInt(length, 10))
	case FramingChunked:
		bag.Set("Transfer-Encoding", "chunked")
	case FramingNone:
		// Neither header is emitted.
	}
}

// WriteBody writes body to w according to framing. For FramingChunked, body
// is read in chunkSize pieces and each is emitted as a chunk; the final
// zero-length chunk terminates the stream. For FramingContentLength, exactly
// length bytes are copied. FramingNone writes nothing.
func WriteBody(w io.Writer, framing Framing, body io.Reader, length int64, chunkSize int) error {
	switch framing {
	case FramingNone:
		return nil
	case FramingContentLength:
		if body == nil {
			return nil
		}
		n, err := io.CopyN(w, body, length)
		if err != nil && err != io.EOF {
			return err
		}
		if n != length {
			return fmt.Errorf("urllib3: short body write: wrote %d of %d bytes", n, length)
		}
		return nil
	case FramingChunked:
		return writeChunked(w, body, chunkSize)
	default:
		return fmt.Errorf("urllib3: unknown framing %d", framing)
	}
}
