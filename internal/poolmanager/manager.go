package poolmanager

import (
	"container/list"
	"context"
	"sync"

	"github.com/urllib3/urllib3-go/internal/conn"
	"github.com/urllib3/urllib3-go/internal/pool"
)

// entry is the LRU's payload: a pool plus the key it was created for (needed
// to remove the right map entry on eviction).
type entry struct {
	key Key
	p   *pool.Pool
}

// Logger receives diagnostic warnings for conditions the Manager recovers
// from on its own, such as an LRU pool eviction closing idle connections
// out from under a still-warm origin. A nil Logger silences these warnings.
type Logger interface {
	Warnf(format string, v ...interface{})
}

// Manager is an LRU map from Key to per-origin Pool. Lookup
// moves the pool to the front; inserting past NumPools evicts and closes
// the least-recently-used pool.
type Manager struct {
	mu       sync.Mutex
	order    *list.List // front = most recently used
	elements map[Key]*list.Element

	numPools    int
	poolMaxSize int
	blocking    bool
	logger      Logger
}

// NewManager constructs a Manager capped at numPools origins, each pool
// bounded at poolMaxSize connections with the given overflow policy.
func NewManager(numPools, poolMaxSize int, blocking bool) *Manager {
	return &Manager{
		order:       list.New(),
		elements:    make(map[Key]*list.Element),
		numPools:    numPools,
		poolMaxSize: poolMaxSize,
		blocking:    blocking,
	}
}

// SetLogger installs l as the destination for this manager's diagnostic
// warnings, and for every pool it creates from now on.
func (m *Manager) SetLogger(l Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = l
}

func (m *Manager) warnf(format string, v ...interface{}) {
	if m.logger != nil {
		m.logger.Warnf(format, v...)
	}
}

// PoolFor returns the Pool for key, creating it (and evicting the LRU pool
// if at capacity) if it doesn't already exist.
func (m *Manager) PoolFor(key Key) *pool.Pool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.elements[key]; ok {
		m.order.MoveToFront(el)
		return el.Value.(*entry).p
	}

	p := pool.New(m.poolMaxSize, m.blocking)
	p.SetLogger(m.logger)
	el := m.order.PushFront(&entry{key: key, p: p})
	m.elements[key] = el

	if m.numPools > 0 && m.order.Len() > m.numPools {
		back := m.order.Back()
		evicted := back.Value.(*entry)
		m.order.Remove(back)
		delete(m.elements, evicted.key)
		m.warnf("urllib3: evicting LRU pool for %s (capacity %d origins reached)", evicted.key.String(), m.numPools)
		evicted.p.Close()
	}
	return p
}

// Lease obtains a connection for key: an idle one from its pool, or a
// permit to dial a fresh one (isNew true, conn nil).
func (m *Manager) Lease(ctx context.Context, key Key) (c *conn.Conn, isNew bool, err error) {
	return m.PoolFor(key).Acquire(ctx)
}

// existing returns key's pool without creating one or touching the LRU
// order: a return of a leased connection is not a "use" of the origin, and
// a pool evicted while the lease was out must not be resurrected by it.
func (m *Manager) existing(key Key) *pool.Pool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.elements[key]; ok {
		return el.Value.(*entry).p
	}
	return nil
}

// Release returns a connection to key's pool (or closes it, per Pool.Release
// semantics). If the pool was evicted while the connection was out on lease,
// the connection is closed instead of being returned.
func (m *Manager) Release(key Key, c *conn.Conn) {
	if p := m.existing(key); p != nil {
		p.Release(c)
		return
	}
	c.Close()
}

// Discard frees the permit for a connection that was never successfully
// established or must be dropped outright.
func (m *Manager) Discard(key Key, c *conn.Conn) {
	if p := m.existing(key); p != nil {
		p.Discard(c)
		return
	}
	if c != nil {
		c.Close()
	}
}

// NumPools reports how many distinct origin pools currently exist.
func (m *Manager) NumPools() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// Close shuts down every pool the manager owns.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for e := m.order.Front(); e != nil; e = e.Next() {
		e.Value.(*entry).p.Close()
	}
	m.order.Init()
	m.elements = make(map[Key]*list.Element)
	return nil
}
