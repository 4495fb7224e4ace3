package compress

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopCloser struct{ io.Reader }

func (nopCloser) Close() error { return nil }

func TestNewReaderIdentity(t *testing.T) {
	body := nopCloser{strings.NewReader("hello")}
	r, err := NewReader(body, "identity")
	require.NoError(t, err)
	b, _ := io.ReadAll(r)
	assert.Equal(t, "hello", string(b))
}

func TestNewReaderUnknownToken(t *testing.T) {
	_, err := NewReader(nopCloser{strings.NewReader("")}, "compress-xyz")
	require.Error(t, err)
	var cde *ContentDecodingError
	assert.ErrorAs(t, err, &cde)
}

func TestGzipRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, _ = gw.Write([]byte("Hello World"))
	_ = gw.Close()

	r := NewGzipReader(nopCloser{bytes.NewReader(buf.Bytes())})
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Hello World", string(out))
}

func TestChainReversesEncodingOrder(t *testing.T) {
	// "gzip, deflate" means the server applied gzip first and deflate
	// second, so the chain must undo deflate before gzip.
	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write([]byte("payload"))
	_ = gw.Close()

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, _ = zw.Write(gz.Bytes())
	_ = zw.Close()

	r, err := Chain(nopCloser{bytes.NewReader(buf.Bytes())}, "identity, gzip, deflate", 0, 0)
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(out))
}

func TestChainTooManyEncodings(t *testing.T) {
	_, err := Chain(nopCloser{strings.NewReader("")}, "gzip, gzip, gzip, gzip, gzip, gzip", 5, 0)
	assert.ErrorIs(t, err, ErrTooManyEncodings)
}

func TestLimitedReadCloserCapsBytes(t *testing.T) {
	body := nopCloser{strings.NewReader(strings.Repeat("a", 100))}
	chained, err := Chain(body, "", 0, 10)
	require.NoError(t, err)
	buf := make([]byte, 100)
	total := 0
	var lastErr error
	for {
		n, err := chained.Read(buf)
		total += n
		if err != nil {
			lastErr = err
			break
		}
	}
	assert.LessOrEqual(t, total, 10)
	var de *DecodeError
	assert.ErrorAs(t, lastErr, &de)
}

func TestLimitedReadCloserExactlyAtCapIsNotOverflow(t *testing.T) {
	body := nopCloser{strings.NewReader(strings.Repeat("a", 10))}
	chained, err := Chain(body, "", 0, 10)
	require.NoError(t, err)
	out, err := io.ReadAll(chained)
	require.NoError(t, err, "a body of exactly the cap's length must reach EOF cleanly")
	assert.Len(t, out, 10)
}

func TestDeflateZlibHeaderDetection(t *testing.T) {
	var buf bytes.Buffer
	// zlib-wrapped deflate: header bytes 0x78 0x9c are common.
	zw := zlib.NewWriter(&buf)
	_, _ = zw.Write([]byte("zlib wrapped"))
	_ = zw.Close()

	r := NewDeflateReader(nopCloser{bytes.NewReader(buf.Bytes())})
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "zlib wrapped", string(out))
}
