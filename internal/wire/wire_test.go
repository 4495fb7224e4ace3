package wire

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/urllib3/urllib3-go/header"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChooseFraming(t *testing.T) {
	assert.Equal(t, FramingNone, ChooseFraming("GET", false, -1))
	assert.Equal(t, FramingContentLength, ChooseFraming("POST", false, -1))
	assert.Equal(t, FramingContentLength, ChooseFraming("POST", true, 10))
	assert.Equal(t, FramingChunked, ChooseFraming("POST", true, -1))
}

func TestWriteRequestLineAndHeaders(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRequestLine(&buf, "GET", "/a/b?q=1"))
	h := header.NewBag()
	h.Add("Host", "example.com")
	h.Add("Accept", "*/*")
	require.NoError(t, WriteHeaders(&buf, h))

	out := buf.String()
	assert.Equal(t, "GET /a/b?q=1 HTTP/1.1\r\nHost: example.com\r\nAccept: */*\r\n\r\n", out)
}

func TestWriteHeadersRejectsCRLFInValue(t *testing.T) {
	var buf bytes.Buffer
	h := header.NewBag()
	h.Add("X-Evil", "a\r\nInjected: true")
	err := WriteHeaders(&buf, h)
	require.Error(t, err)
}

func TestChunkedRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeChunked(&buf, strings.NewReader("Hello World"), 5))

	cr := NewChunkedReader(&buf)
	out, err := io.ReadAll(cr)
	require.NoError(t, err)
	assert.Equal(t, "Hello World", string(out))
}

func TestChunkedReaderExactWireBytes(t *testing.T) {
	wire := "5\r\nHello\r\n6\r\n World\r\n0\r\n\r\n"
	cr := NewChunkedReader(strings.NewReader(wire))
	out, err := io.ReadAll(cr)
	require.NoError(t, err)
	assert.Equal(t, "Hello World", string(out))
}

func TestChunkedReaderTrailersAvailableAfterEOF(t *testing.T) {
	wire := "5\r\nHello\r\n0\r\nX-Trailer: done\r\n\r\n"
	cr := NewChunkedReader(strings.NewReader(wire))
	_, err := io.ReadAll(cr)
	require.NoError(t, err)
	assert.Equal(t, "done", cr.Trailers().Get("X-Trailer"))
}

func TestChunkedReaderRejectsOversizeChunk(t *testing.T) {
	wire := "FFFFFFFF\r\n"
	cr := NewChunkedReader(strings.NewReader(wire))
	_, err := io.ReadAll(cr)
	require.Error(t, err)
}

func TestReadStatusLine(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("HTTP/1.1 200 OK\r\n"))
	sl, err := ReadStatusLine(br)
	require.NoError(t, err)
	assert.Equal(t, 200, sl.Status)
	assert.Equal(t, "OK", sl.Reason)
}

func TestReadHeadersObsoleteFolding(t *testing.T) {
	raw := "X-Foo: bar\r\n baz\r\n\r\n"
	br := bufio.NewReader(strings.NewReader(raw))
	h, err := ReadHeaders(br, 0)
	require.NoError(t, err)
	assert.Equal(t, "bar baz", h.Get("X-Foo"))
}

func TestReadHeadersEnforcesMaxSize(t *testing.T) {
	raw := "X-Foo: " + strings.Repeat("a", 100) + "\r\n\r\n"
	br := bufio.NewReader(strings.NewReader(raw))
	_, err := ReadHeaders(br, 10)
	require.Error(t, err)
}

func TestDetermineBodyModePrecedence(t *testing.T) {
	h := header.NewBag()
	mode, _ := DetermineBodyMode("HEAD", 200, h)
	assert.Equal(t, BodyEmpty, mode)

	mode, _ = DetermineBodyMode("GET", 204, h)
	assert.Equal(t, BodyEmpty, mode)

	h2 := header.NewBag()
	h2.Set("Transfer-Encoding", "chunked")
	mode, _ = DetermineBodyMode("GET", 200, h2)
	assert.Equal(t, BodyChunked, mode)

	h3 := header.NewBag()
	h3.Set("Content-Length", "42")
	mode, n := DetermineBodyMode("GET", 200, h3)
	assert.Equal(t, BodyContentLength, mode)
	assert.EqualValues(t, 42, n)

	h4 := header.NewBag()
	mode, _ = DetermineBodyMode("GET", 200, h4)
	assert.Equal(t, BodyCloseDelimited, mode)
}
