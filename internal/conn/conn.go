package conn

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/urllib3/urllib3-go/header"
	"github.com/urllib3/urllib3-go/internal/deadline"
	"github.com/urllib3/urllib3-go/internal/wire"
)

// Kind is the routing variant a Conn was constructed for.
type Kind int

const (
	KindDirect Kind = iota
	KindForwardProxyConn
	KindTunneledConn
)

// state is the per-connection state machine.
type state int

const (
	stateNew state = iota
	stateConnecting
	stateIdle
	stateRequestSent
	stateResponseHead
	stateClosed
)

// ConnectError wraps a DNS or TCP-connect failure.
type ConnectError struct{ Cause error }

func (e *ConnectError) Error() string { return "urllib3: connect failed: " + e.Cause.Error() }
func (e *ConnectError) Unwrap() error { return e.Cause }

// ConnectTimeoutError is raised when the connect-phase deadline elapses.
type ConnectTimeoutError struct{}

func (e *ConnectTimeoutError) Error() string { return "urllib3: connect timeout" }

// ProxyError reports a CONNECT tunnel negotiation failure: a non-2xx
// response from the proxy, or a protocol error while reading it.
type ProxyError struct {
	Status int // 0 if the proxy response could not be parsed at all
	Reason string
	Cause  error
}

func (e *ProxyError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("urllib3: proxy CONNECT failed: %d %s", e.Status, e.Reason)
	}
	return "urllib3: proxy CONNECT failed: " + e.Cause.Error()
}
func (e *ProxyError) Unwrap() error { return e.Cause }

// SSLError reports a handshake or certificate-verification failure from the
// TLS collaborator.
type SSLError struct{ Cause error }

func (e *SSLError) Error() string { return "urllib3: tls error: " + e.Cause.Error() }
func (e *SSLError) Unwrap() error { return e.Cause }

// Config holds the collaborators and fixed parameters for one Conn.
type Config struct {
	Resolve    Resolver
	DialNet    func(network, addr string, deadline time.Time) (net.Conn, error)
	TLSWrap    TLSWrapper // required whenever any hop needs TLS
	ServerName string     // SNI / cert verification name for the peer
	ALPN       []string

	// FirstHopTLS selects whether the connection to the peer itself (the
	// origin, or the proxy for forwarded/tunneled routes) is TLS-wrapped.
	// A tunneled connection to an https origin through a plain-http proxy
	// has FirstHopTLS false and still needs TLSWrap for the inner hop.
	FirstHopTLS bool

	FamilyPref string // "tcp4", "tcp6", or "" for either

	MaxHeaderListSize int
}

// Conn owns one byte stream to one peer.
type Conn struct {
	mu sync.Mutex

	cfg      Config
	peerHost string
	peerPort int

	kind Kind

	tunnelHost    string
	tunnelPort    int
	tunnelScheme  string
	tunnelHeaders *header.Bag

	stream Stream
	reader *headReader // buffered reader wrapping stream, tracks unread bytes

	state state

	isVerified      bool
	proxyIsVerified bool
	hasTunnel       bool

	createdAt  time.Time
	lastUsedAt time.Time

	// forceClose is set when a send_request encountered a write error but a
	// response head was still read:
	// the connection must never be returned to the pool in that case.
	forceClose bool
}

// New constructs a Conn for a direct or forward-proxied connection to
// peerHost:peerPort.
func New(peerHost string, peerPort int, cfg Config) *Conn {
	return &Conn{peerHost: peerHost, peerPort: peerPort, cfg: cfg, state: stateNew, kind: KindDirect}
}

// SetTunnel marks the connection as CONNECT-tunneled to targetHost:targetPort
// (the inner origin); must be called before Connect.
func (c *Conn) SetTunnel(targetHost string, targetPort int, scheme string, headers *header.Bag) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateNew {
		return fmt.Errorf("urllib3: SetTunnel must precede Connect")
	}
	c.kind = KindTunneledConn
	c.tunnelHost = targetHost
	c.tunnelPort = targetPort
	c.tunnelScheme = scheme
	c.tunnelHeaders = headers
	return nil
}

// Connect performs DNS, TCP connect, optional TLS handshake to the peer; if
// tunneled, also negotiates CONNECT and then TLS to the inner target.
func (c *Conn) Connect(d *deadline.Deadline) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateNew {
		return fmt.Errorf("urllib3: Connect called out of order")
	}
	c.state = stateConnecting
	c.createdAt = time.Now()

	raw, err := c.dialRaw(c.peerHost, c.peerPort, d)
	if err != nil {
		c.state = stateClosed
		return err
	}

	toPeerScheme := "http"
	if c.cfg.FirstHopTLS {
		// For a tunneled connection this TLS-wraps the hop to the proxy
		// itself (an HTTPS proxy); the inner tunnel TLS wrap happens
		// separately below, to tunnelHost, once CONNECT succeeds.
		toPeerScheme = "https"
	}

	stream, err := c.maybeWrapTLS(raw, toPeerScheme, c.cfg.ServerName)
	if err != nil {
		raw.Close()
		c.state = stateClosed
		return err
	}
	c.stream = stream

	if c.kind == KindTunneledConn {
		if err := c.negotiateTunnel(d); err != nil {
			c.stream.Close()
			c.state = stateClosed
			return err
		}
		c.proxyIsVerified = c.isVerified
		c.isVerified = false

		if c.tunnelScheme == "https" {
			inner, err := c.maybeWrapTLS(AsNetConn(c.stream), "https", c.tunnelHost)
			if err != nil {
				c.stream.Close()
				c.state = stateClosed
				return err
			}
			c.stream = inner
			c.hasTunnel = true
		} else {
			c.hasTunnel = true
		}
	}

	c.reader = newHeadReader(c.stream)
	c.state = stateIdle
	c.lastUsedAt = time.Now()
	return nil
}

func (c *Conn) dialRaw(host string, port int, d *deadline.Deadline) (net.Conn, error) {
	addrs, err := c.resolve(host, port)
	if err != nil {
		return nil, &ConnectError{Cause: err}
	}
	deadlineTime := d.ConnectDeadlineTime()
	var lastErr error
	for _, a := range addrs {
		addr := net.JoinHostPort(a.IP.String(), strconv.Itoa(port))
		nc, err := c.cfg.DialNet("tcp", addr, deadlineTime)
		if err == nil {
			return nc, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no addresses resolved for %s", host)
	}
	if isTimeoutErr(lastErr) {
		return nil, &ConnectTimeoutError{}
	}
	return nil, &ConnectError{Cause: lastErr}
}

func (c *Conn) resolve(host string, port int) ([]net.IPAddr, error) {
	if c.cfg.Resolve != nil {
		return c.cfg.Resolve(host, port, c.cfg.FamilyPref)
	}
	ip := net.ParseIP(host)
	if ip != nil {
		return []net.IPAddr{{IP: ip}}, nil
	}
	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, err
	}
	out := make([]net.IPAddr, len(ips))
	for i, ip := range ips {
		out[i] = net.IPAddr{IP: ip}
	}
	return out, nil
}

func (c *Conn) maybeWrapTLS(raw net.Conn, scheme, serverName string) (Stream, error) {
	if scheme != "https" {
		return newNetStream(KindPlain, raw), nil
	}
	if c.cfg.TLSWrap == nil {
		return nil, &SSLError{Cause: fmt.Errorf("https requested but no TLS wrapper configured")}
	}
	s, verify, err := c.cfg.TLSWrap(raw, serverName, c.cfg.ALPN)
	if err != nil {
		return nil, &SSLError{Cause: err}
	}
	c.isVerified = verify.Verified
	return s, nil
}

// negotiateTunnel sends "CONNECT host:port HTTP/1.1" with any configured
// proxy headers and requires a 2xx response.
func (c *Conn) negotiateTunnel(d *deadline.Deadline) error {
	target := net.JoinHostPort(c.tunnelHost, strconv.Itoa(c.tunnelPort))
	h := header.NewBag()
	h.Set("Host", target)
	if c.tunnelHeaders != nil {
		c.tunnelHeaders.Each(func(name, value string) { h.Add(name, value) })
	}

	var sb strings.Builder
	sb.WriteString("CONNECT " + target + " HTTP/1.1\r\n")
	h.Each(func(name, value string) {
		sb.WriteString(name + ": " + value + "\r\n")
	})
	sb.WriteString("\r\n")

	if _, err := writeAll(c.stream, []byte(sb.String()), d.ConnectDeadlineTime()); err != nil {
		return &ProxyError{Cause: err}
	}

	r := newHeadReader(c.stream)
	sl, _, err := r.readHead(d, c.cfg.MaxHeaderListSize)
	if err != nil {
		return &ProxyError{Cause: err}
	}
	if sl.Status < 200 || sl.Status >= 300 {
		return &ProxyError{Status: sl.Status, Reason: sl.Reason}
	}
	return nil
}

// SendRequest writes one request frame. A write error (e.g. EPIPE) does
// not itself raise: the caller should still attempt
// ReadResponseHead, since the peer may have already returned a response
// (notably a 4xx) before fully reading the request.
func (c *Conn) SendRequest(d *deadline.Deadline, method, target string, h *header.Bag, body io.Reader, framing wire.Framing, length int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateIdle {
		return fmt.Errorf("urllib3: SendRequest called out of order")
	}

	w := &deadlineWriter{stream: c.stream, deadline: d}
	err := wire.WriteRequestLine(w, method, target)
	if err == nil {
		err = wire.WriteHeaders(w, h)
	}
	if err == nil {
		err = wire.WriteBody(w, framing, body, length, 0)
	}

	c.state = stateRequestSent
	if err != nil {
		c.forceClose = true
	}
	return nil // write failure does not raise here
}

// ReadResponseHead reads and parses the status line and headers. A
// read-deadline expiry surfaces as ReadTimeoutError rather than the framing
// error the parser saw.
func (c *Conn) ReadResponseHead(d *deadline.Deadline) (*wire.StatusLine, *header.Bag, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateRequestSent {
		return nil, nil, fmt.Errorf("urllib3: ReadResponseHead called out of order")
	}
	sl, h, err := c.reader.readHead(d, c.cfg.MaxHeaderListSize)
	if err != nil {
		c.state = stateClosed
		if isTimeoutChain(err) {
			return nil, nil, &deadline.ReadTimeoutError{Phase: "read"}
		}
		return nil, nil, err
	}
	c.state = stateResponseHead
	return sl, h, nil
}

// isTimeoutChain reports whether err or anything it wraps is a timeout.
func isTimeoutChain(err error) bool {
	for err != nil {
		if isTimeoutErr(err) {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// BodyReader returns a reader over the remaining, unparsed bytes on the
// connection so the response-stream layer can frame the body.
func (c *Conn) BodyReader() io.Reader {
	return c.reader
}

// SetBodyReadDeadline updates the deadline applied to the next BodyReader
// read, computed from d's read-phase budget.
func (c *Conn) SetBodyReadDeadline(d *deadline.Deadline) {
	c.reader.SetDeadline(d.ReadDeadlineTime())
}

// MarkBodyComplete transitions RESPONSE_HEAD -> IDLE once the full body has
// been consumed, making the connection eligible for return-to-pool.
func (c *Conn) MarkBodyComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateResponseHead {
		c.state = stateIdle
		c.lastUsedAt = time.Now()
	}
}

// MarkNonReusable forces the connection to be closed on its next Release
// even if it is otherwise IDLE (used for the early-response/broken-pipe
// case and any protocol violation detected outside Conn itself).
func (c *Conn) MarkNonReusable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forceClose = true
}

// IsReusable reports whether the connection may be returned to its pool:
// open, in IDLE state, with zero unread bytes buffered, and not flagged
// non-reusable.
func (c *Conn) IsReusable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateIdle || c.forceClose {
		return false
	}
	return c.reader == nil || c.reader.buffered() == 0
}

// Close is idempotent; a closed connection is never reusable.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateClosed {
		return nil
	}
	c.state = stateClosed
	if c.stream != nil {
		return c.stream.Close()
	}
	return nil
}

func (c *Conn) IsVerified() bool      { c.mu.Lock(); defer c.mu.Unlock(); return c.isVerified }
func (c *Conn) ProxyIsVerified() bool { c.mu.Lock(); defer c.mu.Unlock(); return c.proxyIsVerified }
func (c *Conn) HasTunnel() bool       { c.mu.Lock(); defer c.mu.Unlock(); return c.hasTunnel }
func (c *Conn) CreatedAt() time.Time  { return c.createdAt }
func (c *Conn) LastUsedAt() time.Time { c.mu.Lock(); defer c.mu.Unlock(); return c.lastUsedAt }

// Stream exposes the underlying byte-stream, used by the pool's health
// check.
func (c *Conn) Stream() Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream
}

func isTimeoutErr(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}
