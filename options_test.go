package urllib3

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/urllib3/urllib3-go/header"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	assert.Equal(t, 10, o.numPools)
	assert.Equal(t, 10, o.perOriginMaxSize)
	assert.False(t, o.block)
	assert.True(t, o.preloadContent)
	assert.True(t, o.decodeContent)
	assert.True(t, o.redirectEnabled)
	assert.NotNil(t, o.logger)
}

func TestOptionsApplyOverrides(t *testing.T) {
	o := defaultOptions()
	for _, opt := range []Option{
		WithNumPools(5),
		WithMaxSize(2),
		WithBlock(true),
		WithPreloadContent(false),
		WithDecodeContent(false),
		WithRedirect(false),
		WithMaxHeaderListSize(1024),
	} {
		opt(&o)
	}
	assert.Equal(t, 5, o.numPools)
	assert.Equal(t, 2, o.perOriginMaxSize)
	assert.True(t, o.block)
	assert.False(t, o.preloadContent)
	assert.False(t, o.decodeContent)
	assert.False(t, o.redirectEnabled)
	assert.Equal(t, 1024, o.maxHeaderListSize)
}

func TestWithLoggerNilFallsBackToNoop(t *testing.T) {
	o := defaultOptions()
	WithLogger(nil)(&o)
	assert.Equal(t, noopLogger{}, o.logger)
}

func TestWithDefaultHeadersAndProxyHeaders(t *testing.T) {
	o := defaultOptions()
	dh := header.NewBag()
	dh.Set("X-Default", "1")
	ph := header.NewBag()
	ph.Set("X-Proxy", "1")
	WithDefaultHeaders(dh)(&o)
	WithProxyHeaders(ph)(&o)
	assert.Equal(t, "1", o.defaultHeaders.Get("X-Default"))
	assert.Equal(t, "1", o.proxyHeaders.Get("X-Proxy"))
}

func TestWithTimeoutOverridesDefault(t *testing.T) {
	o := defaultOptions()
	custom := o.timeout
	custom.Connect = 2 * time.Second
	WithTimeout(custom)(&o)
	assert.Equal(t, 2*time.Second, o.timeout.Connect)
}
