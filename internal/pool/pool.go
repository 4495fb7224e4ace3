// Package pool implements a bounded per-origin idle-connection pool. Each
// Pool holds connections for exactly one origin; the manager layer
// (internal/poolmanager) owns the map from origin to Pool.
//
// A Pool tracks two things: a LIFO stack of idle, reusable connections, and
// a permit count bounding how many connections (idle or leased) may exist
// at once. Acquire either hands back the most recently released idle
// connection or, if under the cap, grants the caller a permit to dial a
// fresh one; once at the cap, a blocking pool waits for a return while a
// non-blocking pool always grants an overflow permit whose connection is
// discarded rather than pooled when it comes back, mirroring urllib3's
// blocking vs non-blocking HTTPConnectionPool.
package pool

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/urllib3/urllib3-go/internal/conn"
)

// ErrPoolClosed is returned once the pool has been shut down.
var ErrPoolClosed = errors.New("urllib3: connection pool closed")

// Logger receives diagnostic warnings for conditions a Pool recovers from
// on its own (a dropped idle connection discovered by a health check) and
// so never surfaces as an error. A nil Logger silences these warnings.
type Logger interface {
	Warnf(format string, v ...interface{})
}

// Pool is a bounded LIFO idle pool for one origin.
type Pool struct {
	maxSize  int
	blocking bool
	logger   Logger

	mu     sync.Mutex
	cond   *sync.Cond
	idle   []*conn.Conn // LIFO: idle[len-1] is most recently released
	leased int          // permits currently outstanding (idle + in-flight)
	closed bool
}

// New constructs a Pool bounding concurrent connections at maxSize. When
// blocking is true, Acquire waits for capacity at the cap; otherwise it
// grants an overflow permit.
func New(maxSize int, blocking bool) *Pool {
	p := &Pool{maxSize: maxSize, blocking: blocking}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// SetLogger installs l as the destination for this pool's diagnostic
// warnings.
func (p *Pool) SetLogger(l Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = l
}

func (p *Pool) warnf(format string, v ...interface{}) {
	if p.logger != nil {
		p.logger.Warnf(format, v...)
	}
}

// Acquire returns an idle connection if one is healthy and available. If
// none is available, it grants a permit and reports isNew so the caller
// dials a fresh connection (and must later call either Release or Discard
// on it). At capacity, a blocking pool waits until capacity frees or ctx is
// cancelled; a non-blocking pool grants an overflow permit instead — the
// connection is created anyway and discarded on return.
func (p *Pool) Acquire(ctx context.Context) (c *conn.Conn, isNew bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.blocking {
		stop := p.watchContext(ctx)
		defer stop()
	}

	for {
		if p.closed {
			return nil, false, ErrPoolClosed
		}

		for len(p.idle) > 0 {
			last := len(p.idle) - 1
			candidate := p.idle[last]
			p.idle = p.idle[:last]
			if p.healthy(candidate) {
				return candidate, false, nil
			}
			p.leased--
			candidate.Close()
		}

		if p.leased < p.maxSize || !p.blocking {
			p.leased++
			return nil, true, nil
		}
		if ctx != nil {
			select {
			case <-ctx.Done():
				return nil, false, ctx.Err()
			default:
			}
		}
		p.cond.Wait()
	}
}

// watchContext spawns a goroutine that wakes any Wait()-ing goroutines when
// ctx is cancelled; stop() must be called once the caller is done waiting.
func (p *Pool) watchContext(ctx context.Context) (stop func()) {
	if ctx == nil || ctx.Done() == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			p.mu.Lock()
			p.cond.Broadcast()
			p.mu.Unlock()
		case <-done:
		}
	}()
	return func() { close(done) }
}

func (p *Pool) healthy(c *conn.Conn) bool {
	if !c.IsReusable() {
		return false
	}
	s := c.Stream()
	if s == nil {
		return false
	}
	nc, ok := conn.RawConn(s)
	if !ok {
		return true
	}
	if isConnDropped(nc) {
		p.warnf("urllib3: idle connection to %s was dropped by the peer, discarding", s.PeerInfo().Addr)
		return false
	}
	return true
}

// Release returns a leased connection to the pool if it is reusable and
// there is idle room; otherwise it closes it. An overflow connection from a
// non-blocking pool lands in the full-idle branch and is discarded here.
// Either way the connection's permit is freed if the connection is
// discarded, or retained as an idle slot if kept.
func (p *Pool) Release(c *conn.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || !c.IsReusable() || len(p.idle) >= p.maxSize {
		c.Close()
		p.leased--
		p.cond.Broadcast()
		return
	}
	p.idle = append(p.idle, c)
	p.cond.Broadcast()
}

// Discard releases the permit for a connection that was never successfully
// established (a failed dial after Acquire reported isNew) or that must be
// dropped outright (a protocol violation).
func (p *Pool) Discard(c *conn.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c != nil {
		c.Close()
	}
	p.leased--
	p.cond.Broadcast()
}

// Len reports the number of currently idle connections.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// InUse reports the number of connections currently leased out (not idle).
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leased - len(p.idle)
}

// Close closes every idle connection and marks the pool closed; any
// goroutine blocked in Acquire wakes with ErrPoolClosed.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for _, c := range p.idle {
		c.Close()
	}
	p.idle = nil
	p.cond.Broadcast()
	return nil
}
