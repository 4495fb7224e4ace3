package urllib3

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// The package-level convenience client: lazily created on first use,
// replaceable by the application, and closable at process shutdown. Embedders
// that must not share process-global connection state call DisableDefault
// once at startup and construct their own Clients.
var (
	defaultMu       sync.Mutex
	defaultClient   *Client
	defaultDisabled bool
)

// ErrNoDefaultClient is returned by the package-level request helpers after
// DisableDefault.
var ErrNoDefaultClient = errors.New("urllib3: default client disabled")

// Default returns the process-wide Client, creating it with default options
// on first use. Returns nil after DisableDefault.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultDisabled {
		return nil
	}
	if defaultClient == nil {
		defaultClient = New()
	}
	return defaultClient
}

// SetDefault replaces the process-wide Client. The previous default, if any,
// is returned so the caller can Close it; passing nil restores lazy creation
// on the next Default call. SetDefault re-enables the default after
// DisableDefault.
func SetDefault(c *Client) (previous *Client) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	previous = defaultClient
	defaultClient = c
	defaultDisabled = false
	return previous
}

// DisableDefault switches the library into no-global mode: Default returns
// nil and the package-level helpers fail with ErrNoDefaultClient. Any
// existing default is closed.
func DisableDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient != nil {
		defaultClient.Close()
		defaultClient = nil
	}
	defaultDisabled = true
}

// CloseDefault closes the process-wide Client's idle connections and clears
// it; intended for process shutdown. A later Default call creates a fresh
// one unless the default is disabled.
func CloseDefault() error {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		return nil
	}
	err := defaultClient.Close()
	defaultClient = nil
	return err
}

// Do issues req on the process-wide Client.
func Do(ctx context.Context, req *Request) (*Response, error) {
	c := Default()
	if c == nil {
		return nil, ErrNoDefaultClient
	}
	return c.Do(ctx, req)
}
