package compress

import (
	"bufio"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

// DeflateReader wraps a response body claiming Content-Encoding: deflate.
// Servers disagree about whether "deflate" means raw DEFLATE or zlib-wrapped
// DEFLATE (RFC 1950 vs RFC 1951); we try the zlib header first and fall
// back to raw DEFLATE if that fails.
type DeflateReader struct {
	Body io.ReadCloser
	dr   io.ReadCloser
	derr error
}

func NewDeflateReader(body io.ReadCloser) *DeflateReader {
	return &DeflateReader{Body: body}
}

func (d *DeflateReader) Read(p []byte) (n int, err error) {
	if d.derr != nil {
		return 0, d.derr
	}
	if d.dr == nil {
		if err := d.init(); err != nil {
			d.derr = err
			return 0, err
		}
	}
	return d.dr.Read(p)
}

func (d *DeflateReader) init() error {
	br := bufio.NewReader(d.Body)
	peek, err := br.Peek(2)
	if err == nil && isZlibHeader(peek) {
		zr, zerr := zlib.NewReader(br)
		if zerr == nil {
			d.dr = zr
			return nil
		}
	}
	d.dr = flate.NewReader(br)
	return nil
}

// isZlibHeader reports whether the first two bytes look like a valid zlib
// header: CMF/FLG such that (CMF*256+FLG) % 31 == 0, and the compression
// method nibble is 8 (deflate).
func isZlibHeader(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	cmf, flg := b[0], b[1]
	if cmf&0x0f != 8 {
		return false
	}
	return (uint16(cmf)*256+uint16(flg))%31 == 0
}

func (d *DeflateReader) Close() error {
	if d.dr != nil {
		_ = d.dr.Close()
	}
	return d.Body.Close()
}

func (d *DeflateReader) Underlying() io.ReadCloser { return d.Body }
