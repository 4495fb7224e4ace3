package compress

import (
	"io"

	"github.com/andybalholm/brotli"
)

// BrotliReader wraps a response body so it can lazily construct a brotli
// reader on the first call to Read.
type BrotliReader struct {
	Body io.ReadCloser
	br   io.Reader
	berr error
}

func NewBrotliReader(body io.ReadCloser) *BrotliReader {
	return &BrotliReader{Body: body}
}

func (b *BrotliReader) Read(p []byte) (n int, err error) {
	if b.berr != nil {
		return 0, b.berr
	}
	if b.br == nil {
		b.br = brotli.NewReader(b.Body)
	}
	return b.br.Read(p)
}

func (b *BrotliReader) Close() error {
	return b.Body.Close()
}

func (b *BrotliReader) Underlying() io.ReadCloser { return b.Body }
