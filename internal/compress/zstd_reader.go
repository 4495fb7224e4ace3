package compress

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// ZstdReader wraps a response body so it can lazily construct a zstd
// decoder on the first call to Read.
type ZstdReader struct {
	Body io.ReadCloser
	zr   *zstd.Decoder
	zerr error
}

func NewZstdReader(body io.ReadCloser) *ZstdReader {
	return &ZstdReader{Body: body}
}

func (z *ZstdReader) Read(p []byte) (n int, err error) {
	if z.zerr != nil {
		return 0, z.zerr
	}
	if z.zr == nil {
		z.zr, err = zstd.NewReader(z.Body)
		if err != nil {
			z.zerr = err
			return 0, err
		}
	}
	return z.zr.Read(p)
}

func (z *ZstdReader) Close() error {
	if z.zr != nil {
		z.zr.Close()
	}
	return z.Body.Close()
}

func (z *ZstdReader) Underlying() io.ReadCloser { return z.Body }
