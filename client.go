// Package urllib3 is the request facade: it assembles headers, chooses
// body framing, and drives the pool manager / retry controller through one
// logical request, re-entering on retry or redirect.
package urllib3

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/urllib3/urllib3-go/header"
	"github.com/urllib3/urllib3-go/internal/bodystream"
	"github.com/urllib3/urllib3-go/internal/conn"
	"github.com/urllib3/urllib3-go/internal/deadline"
	"github.com/urllib3/urllib3-go/internal/pool"
	"github.com/urllib3/urllib3-go/internal/poolmanager"
	"github.com/urllib3/urllib3-go/internal/wire"
	"github.com/urllib3/urllib3-go/retry"
	"github.com/urllib3/urllib3-go/urlutil"
)

// Client is the entry point: one Client owns one pool manager and one
// default configuration. It is safe for concurrent use by multiple
// goroutines.
type Client struct {
	opts    Options
	manager *poolmanager.Manager

	// proxyDigest folds the configured proxy headers into pool-key
	// derivation: two clients tunneling through the same proxy with
	// different CONNECT headers must not share pooled tunnels.
	proxyDigest string
}

// New constructs a Client. Sensible defaults apply; override with With*
// options.
func New(opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.dialNet == nil {
		o.dialNet = conn.DefaultDialNet
	}
	manager := poolmanager.NewManager(o.numPools, o.perOriginMaxSize, o.block)
	manager.SetLogger(o.logger)
	return &Client{opts: o, manager: manager, proxyDigest: digestHeaders(o.proxyHeaders)}
}

// digestHeaders produces a stable opaque digest of h for pool-key
// derivation; "" for a nil or empty bag.
func digestHeaders(h *header.Bag) string {
	if h == nil || h.Len() == 0 {
		return ""
	}
	sum := sha256.New()
	h.Each(func(name, value string) {
		sum.Write([]byte(name))
		sum.Write([]byte{':'})
		sum.Write([]byte(value))
		sum.Write([]byte{'\n'})
	})
	return hex.EncodeToString(sum.Sum(nil)[:16])
}

// Close shuts down every per-origin pool, closing all idle connections.
func (c *Client) Close() error { return c.manager.Close() }

// Do issues req, following redirects and applying the retry policy until a
// final Response is obtained or the retry budget is exhausted. A
// Request-level Retries or Timeout overrides the Client's defaults for this
// one request.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	policy := c.opts.retries
	if req.Retries != nil {
		policy = *req.Retries
	}
	state := retry.New(policy)
	current := req
	replay, replayable := bufferBody(current)

	for {
		resp, err := c.attempt(ctx, current)
		if err != nil {
			decision, surfaced := c.decideError(state, current, err)
			if surfaced != nil {
				return nil, surfaced
			}
			switch decision.Action {
			case retry.ActionExhausted:
				return nil, NewMaxRetryError(current.URL.String(), decision.Next.History(), err, 0)
			case retry.ActionRetry:
				if !c.sleep(ctx, decision.Sleep) {
					return nil, ctx.Err()
				}
				state = decision.Next
				current = rewound(current, replay, replayable)
				continue
			default:
				return nil, err
			}
		}

		if c.opts.redirectEnabled {
			rd := state.DecideRedirect(current.Method, current.URL.String(), resp.Status)
			if rd.Action == retry.ActionRedirect {
				resp.Release()
				next, err := c.followRedirect(current, resp, policy)
				if err != nil {
					return nil, err
				}
				state = rd.Next
				current = next
				replay, replayable = bufferBody(current)
				continue
			}
			if rd.Action == retry.ActionExhausted {
				if policy.RaiseOnRedirect {
					resp.Release()
					return nil, NewMaxRetryError(current.URL.String(), rd.Next.History(), nil, resp.Status)
				}
				resp.History = rd.Next.History()
				return resp, nil
			}
		}

		sd := state.DecideStatus(current.Method, current.URL.String(), resp.Status, resp.Headers, time.Now())
		switch sd.Action {
		case retry.ActionRetry:
			resp.Release()
			if !c.sleep(ctx, sd.Sleep) {
				return nil, ctx.Err()
			}
			state = sd.Next
			current = rewound(current, replay, replayable)
			continue
		case retry.ActionExhausted:
			resp.History = sd.Next.History()
			if policy.RaiseOnStatus {
				err := &ResponseError{URL: current.URL.String(), Status: resp.Status, Response: resp}
				return nil, err
			}
			return resp, nil
		default:
			resp.History = state.History()
			return resp, nil
		}
	}
}

// attempt performs exactly one urlopen-style single request/response cycle.
func (c *Client) attempt(ctx context.Context, req *Request) (*Response, error) {
	route := poolmanager.Decide(req.URL, c.opts.proxy, c.opts.useForwardHTTPS)
	key := poolmanager.DeriveKey(req.URL, c.opts.proxy, c.proxyDigest, poolmanager.TLSKeyFields(c.opts.tlsKey))

	timeout := c.opts.timeout
	if req.Timeout != nil {
		timeout = *req.Timeout
	}

	// A blocking pool's wait for a free connection is bounded by the
	// connect budget: a saturated pool that frees nothing in that window is
	// an EmptyPoolError, not an indefinite hang.
	leaseCtx := ctx
	if c.opts.block && timeout.Connect >= 0 {
		var cancel context.CancelFunc
		leaseCtx, cancel = context.WithTimeout(ctx, timeout.Connect)
		defer cancel()
	}

	cn, isNew, err := c.manager.Lease(leaseCtx, key)
	if err != nil {
		if errors.Is(err, pool.ErrPoolClosed) || errors.Is(err, context.DeadlineExceeded) {
			return nil, &EmptyPoolError{URL: req.URL.String(), Cause: err}
		}
		return nil, err
	}

	d := timeout.Start(nil)

	if isNew {
		cn = conn.New(route.DialHost, route.DialPort, conn.Config{
			Resolve:           c.opts.resolve,
			DialNet:           c.opts.dialNet,
			TLSWrap:           c.opts.tlsWrap,
			FirstHopTLS:       route.DialTLS,
			ServerName:        route.DialHost,
			MaxHeaderListSize: c.opts.maxHeaderListSize,
		})
		if route.Kind == poolmanager.RouteTunnel {
			scheme := "https"
			if !route.TunnelTLS {
				scheme = "http"
			}
			if err := cn.SetTunnel(route.TunnelHost, route.TunnelPort, scheme, c.opts.proxyHeaders); err != nil {
				c.manager.Discard(key, cn)
				return nil, err
			}
		}
		if err := cn.Connect(d); err != nil {
			c.manager.Discard(key, cn)
			return nil, err
		}
		c.warnUnverified(req.URL, cn)
	}

	headers := prepareHeaders(req, c.opts.defaultHeaders, c.opts.decodeContent, c.opts.proxy)
	target := req.URL.RequestTarget()
	if route.Kind == poolmanager.RouteForwardProxy || route.Kind == poolmanager.RouteForwardProxyTLS {
		target = req.URL.AbsoluteRequestTarget()
	}

	framing, length, err := chooseFraming(req)
	if err != nil {
		c.manager.Release(key, cn)
		return nil, err
	}
	wire.PrepareFramingHeaders(headers, framing, length)

	if err := cn.SendRequest(d, req.Method, target, headers, req.Body, framing, length); err != nil {
		c.manager.Discard(key, cn)
		return nil, err
	}

	sl, respHeaders, err := cn.ReadResponseHead(d)
	if err != nil {
		c.manager.Discard(key, cn)
		return nil, err
	}

	mode, contentLen := wire.DetermineBodyMode(req.Method, sl.Status, respHeaders)
	releaseFn := func(reusable bool) {
		if reusable {
			c.manager.Release(key, cn)
		} else {
			c.manager.Discard(key, cn)
		}
	}

	bs, err := bodystream.New(cn, releaseFn, cn.BodyReader(), d, bodystream.Options{
		Mode:          mode,
		ContentLength: contentLen,
		Headers:       respHeaders,
		DecodeContent: c.opts.decodeContent,
		DecodeOptions: c.opts.decodeOpts,
		AutoRelease:   true,
	})
	if err != nil {
		c.manager.Discard(key, cn)
		return nil, err
	}

	resp := &Response{
		Status:     sl.Status,
		Reason:     sl.Reason,
		Version:    sl.Version,
		Headers:    respHeaders,
		RequestURL: req.URL.String(),
		body:       bs,
	}
	if c.opts.preloadContent {
		data, err := bs.ReadAll()
		if err != nil {
			return nil, err
		}
		resp.isPreload = true
		resp.preloaded = data
	}
	return resp, nil
}

// decideError classifies a failure from attempt into the retry decision
// matrix, or reports it as surfaced (not subject to retry):
// SSLError is never retried by default, and EmptyPoolError/InvalidURLError
// are reported as-is.
func (c *Client) decideError(state retry.State, req *Request, err error) (retry.Decision, error) {
	url := req.URL.String()
	if errors.Is(err, ErrUnknownLengthBody) {
		return retry.Decision{}, err
	}
	switch err.(type) {
	case *conn.ConnectError, *conn.ConnectTimeoutError:
		return state.DecideConnectError(req.Method, url, err), nil
	case *conn.SSLError:
		return retry.Decision{}, err
	case *conn.ProxyError:
		return retry.Decision{}, err
	case *deadline.ReadTimeoutError, *wire.ProtocolError:
		return state.DecideReadError(req.Method, url, err), nil
	case *EmptyPoolError, *InvalidURLError:
		return retry.Decision{}, err
	default:
		if te, ok := err.(interface{ Timeout() bool }); ok && te.Timeout() {
			return state.DecideReadError(req.Method, url, err), nil
		}
		return state.DecideOtherError(req.Method, url, err), nil
	}
}

// followRedirect resolves Location against current, applies method/body/
// header rewriting, and returns the next Request to attempt.
func (c *Client) followRedirect(current *Request, resp *Response, policy retry.Policy) (*Request, error) {
	loc := resp.Headers.Get("Location")
	if loc == "" {
		return nil, errors.Errorf("urllib3: redirect response missing Location header")
	}
	target, err := urlutil.ResolveReference(current.URL, loc)
	if err != nil {
		return nil, &InvalidURLError{Cause: err}
	}

	method, dropBody, stripCreds := retry.RewriteForRedirect(resp.Status, current.Method)
	headers := current.Headers.Clone()
	retry.StripHeadersForRedirect(headers, current.URL.Host, target.Host, policy.RemoveHeadersOnRedirect)
	if stripCreds {
		for _, name := range retry.CredentialHeadersOnMethodChange {
			headers.Del(name)
		}
	}

	out := &Request{Method: method, URL: target, Headers: headers, Body: current.Body, BodyLength: current.BodyLength, Timeout: current.Timeout, Retries: current.Retries}
	if dropBody {
		out.Body = nil
		out.BodyLength = -1
	}
	return out, nil
}

// warnUnverified logs rather than raises when an https request's
// certificate verification was disabled by the TLS collaborator: the
// connection is still usable, but silently skipping verification is the
// kind of thing an embedder needs visibility into.
func (c *Client) warnUnverified(u *urlutil.URL, cn *conn.Conn) {
	if u.Scheme == "https" && !cn.IsVerified() {
		c.opts.logger.Warnf("urllib3: certificate verification disabled for %s", u.String())
	}
}

func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// bufferBody buffers req.Body into memory up front so a retried or
// redirected attempt can replay it, when its length is known in advance.
// An unbounded/streamed body with unknown length cannot be safely
// replayed, so it is simply not retried with a body.
func bufferBody(req *Request) ([]byte, bool) {
	if req.Body == nil || req.BodyLength < 0 {
		return nil, false
	}
	data, err := io.ReadAll(io.LimitReader(req.Body, req.BodyLength))
	if err != nil {
		return nil, false
	}
	req.Body = bytes.NewReader(data)
	return data, true
}

// rewound returns a copy of req with Body reset to the start of replay, if
// replayable; otherwise it returns req with no body (the attempt already
// consumed whatever body existed and it cannot be safely resent).
func rewound(req *Request, replay []byte, replayable bool) *Request {
	out := *req
	if replayable {
		out.Body = bytes.NewReader(replay)
	} else {
		out.Body = nil
		out.BodyLength = -1
	}
	return &out
}
