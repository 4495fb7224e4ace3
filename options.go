package urllib3

import (
	"net"
	"time"

	"github.com/urllib3/urllib3-go/header"
	"github.com/urllib3/urllib3-go/internal/conn"
	"github.com/urllib3/urllib3-go/internal/deadline"
	"github.com/urllib3/urllib3-go/internal/wire"
	"github.com/urllib3/urllib3-go/retry"
	"github.com/urllib3/urllib3-go/urlutil"
)

// Options is the construction-time configuration for a Client. Use
// New(opts...) with the With* functions below rather than constructing
// this directly — a functional-options builder so zero-value fields never
// need an explicit "unset" marker.
type Options struct {
	numPools          int
	perOriginMaxSize  int
	block             bool
	timeout           deadline.Timeout
	retries           retry.Policy
	proxy             *urlutil.URL
	proxyHeaders      *header.Bag
	useForwardHTTPS   bool
	tlsWrap           conn.TLSWrapper
	tlsKey            TLSKeyFields
	resolve           conn.Resolver
	dialNet           func(network, addr string, deadline time.Time) (net.Conn, error)
	defaultHeaders    *header.Bag
	preloadContent    bool
	decodeContent     bool
	redirectEnabled   bool
	maxHeaderListSize int
	decodeOpts        wire.DecodeOptions
	logger            Logger
}

// Option mutates an Options being built by New.
type Option func(*Options)

// Timeout is the connect/read/total budget applied to each attempt; see
// WithTimeout and Request.Timeout. Fields left at Unset() mean "no bound."
type Timeout = deadline.Timeout

// Unset returns the field value marking a Timeout phase as unbounded.
func Unset() time.Duration { return deadline.Unset() }

// TLSKeyFields are the TLS-affecting construction options that must fork the
// connection pool: two clients whose TLS collaborators would put different
// bytes on the wire for the same origin must never share a pooled
// connection, so every such option is folded into the pool key verbatim.
type TLSKeyFields struct {
	Fingerprint        string
	CABundleID         string
	ClientCertID       string
	MinVersion         string
	MaxVersion         string
	Ciphers            string
	VerifyMode         string
	ServerHostOverride string
	ContextIdentity    string
}

func defaultOptions() Options {
	return Options{
		numPools:         10,
		perOriginMaxSize: 10,
		block:            false,
		timeout:          deadline.DefaultTimeout,
		retries:          retry.DefaultPolicy(),
		preloadContent:   true,
		decodeContent:    true,
		redirectEnabled:  true,
		defaultHeaders:   header.NewBag(),
		logger:           noopLogger{},
	}
}

// WithNumPools sets the LRU capacity of per-origin pools.
func WithNumPools(n int) Option { return func(o *Options) { o.numPools = n } }

// WithMaxSize sets the per-origin idle connection capacity.
func WithMaxSize(n int) Option { return func(o *Options) { o.perOriginMaxSize = n } }

// WithBlock selects the overflow policy: wait for a free connection instead
// of discarding on return when the pool is full.
func WithBlock(block bool) Option { return func(o *Options) { o.block = block } }

// WithTimeout sets the default connect/read/total timeout budget.
func WithTimeout(t deadline.Timeout) Option { return func(o *Options) { o.timeout = t } }

// WithRetries sets the default retry/redirect policy.
func WithRetries(p retry.Policy) Option { return func(o *Options) { o.retries = p } }

// WithProxy routes every request through proxy.
func WithProxy(proxy *urlutil.URL) Option { return func(o *Options) { o.proxy = proxy } }

// WithProxyHeaders adds headers to the CONNECT/forward request only, never
// to the origin request itself.
func WithProxyHeaders(h *header.Bag) Option { return func(o *Options) { o.proxyHeaders = h } }

// WithForwardingForHTTPSProxy selects RouteForwardProxyTLS for an http
// target through an https proxy. Without it such a request is still
// forwarded in absolute form over TLS to the proxy: http targets are never
// CONNECT-tunneled, and https targets are always tunneled either way.
func WithForwardingForHTTPSProxy(enabled bool) Option {
	return func(o *Options) { o.useForwardHTTPS = enabled }
}

// WithTLSWrapper installs the external TLS collaborator.
func WithTLSWrapper(w conn.TLSWrapper) Option { return func(o *Options) { o.tlsWrap = w } }

// WithTLSKeyFields records the wrapper's wire-affecting TLS parameters so
// pool-key derivation can keep incompatible connections apart. A wrapper
// whose behavior varies by client cert, CA bundle, version bounds, or cipher
// config must describe that variance here.
func WithTLSKeyFields(f TLSKeyFields) Option { return func(o *Options) { o.tlsKey = f } }

// WithResolver installs the external DNS collaborator.
func WithResolver(r conn.Resolver) Option { return func(o *Options) { o.resolve = r } }

// WithDialNet overrides the raw TCP dialer; defaults to conn.DefaultDialNet.
func WithDialNet(d func(network, addr string, deadline time.Time) (net.Conn, error)) Option {
	return func(o *Options) { o.dialNet = d }
}

// WithDefaultHeaders merges h into every request at the lowest precedence.
func WithDefaultHeaders(h *header.Bag) Option { return func(o *Options) { o.defaultHeaders = h } }

// WithPreloadContent controls whether a response body is fully read into
// memory and the connection released before Do returns.
func WithPreloadContent(preload bool) Option {
	return func(o *Options) { o.preloadContent = preload }
}

// WithDecodeContent controls transparent Content-Encoding decoding.
func WithDecodeContent(decode bool) Option { return func(o *Options) { o.decodeContent = decode } }

// WithRedirect enables or disables following redirects entirely.
func WithRedirect(enabled bool) Option { return func(o *Options) { o.redirectEnabled = enabled } }

// WithMaxHeaderListSize caps aggregate response header bytes.
func WithMaxHeaderListSize(n int) Option { return func(o *Options) { o.maxHeaderListSize = n } }

// WithDecodeOptions configures the content-decoder chain's limits.
func WithDecodeOptions(d wire.DecodeOptions) Option {
	return func(o *Options) { o.decodeOpts = d }
}

// WithLogger installs a Logger; nil is equivalent to the default no-op.
func WithLogger(l Logger) Option {
	return func(o *Options) {
		if l == nil {
			l = noopLogger{}
		}
		o.logger = l
	}
}
