package pool

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/urllib3/urllib3-go/internal/conn"
	"github.com/urllib3/urllib3-go/internal/deadline"
)

func newIdleConn(t *testing.T) *conn.Conn {
	t.Helper()
	client, server := net.Pipe()
	go func() {
		buf := make([]byte, 1)
		server.Read(buf)
		server.Close()
	}()
	cfg := conn.Config{
		Resolve: func(host string, port int, fam string) ([]net.IPAddr, error) {
			return []net.IPAddr{{IP: net.ParseIP("127.0.0.1")}}, nil
		},
		DialNet: func(network, addr string, deadline time.Time) (net.Conn, error) {
			return client, nil
		},
	}
	c := conn.New("example.com", 80, cfg)
	to := deadline.Timeout{Connect: deadline.Unset(), Read: deadline.Unset(), Total: deadline.Unset()}
	require.NoError(t, c.Connect(to.Start(nil)))
	return c
}

func TestAcquireNonBlockingOverflowsPastCapacity(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := New(2, false)
	defer p.Close()

	c1, isNew1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, isNew1)
	assert.Nil(t, c1)

	c2, isNew2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, isNew2)
	assert.Nil(t, c2)

	// At capacity a non-blocking pool still grants a permit: the caller
	// dials an overflow connection that will be discarded on return.
	c3, isNew3, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, isNew3)
	assert.Nil(t, c3)
}

func TestReleaseDiscardsOverflowWhenIdleFull(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := New(1, false)
	defer p.Close()

	_, _, err := p.Acquire(context.Background())
	require.NoError(t, err)
	_, _, err = p.Acquire(context.Background())
	require.NoError(t, err)

	kept := newIdleConn(t)
	p.Release(kept)
	require.Equal(t, 1, p.Len())

	overflow := newIdleConn(t)
	p.Release(overflow)
	assert.Equal(t, 1, p.Len(), "idle never grows past maxsize")
	assert.False(t, overflow.IsReusable(), "the overflow connection is closed, not pooled")
	assert.True(t, kept.IsReusable())
}

func TestReleaseThenAcquireReturnsIdle(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := New(1, false)
	defer p.Close()

	_, isNew, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, isNew)

	c := newIdleConn(t)
	defer c.Close() // still leased when the test ends; closing stops its pipe reader
	p.Release(c)
	assert.Equal(t, 1, p.Len())

	got, isNew2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, isNew2)
	assert.Same(t, c, got)
	assert.Equal(t, 0, p.Len())
}

func TestDiscardFreesPermit(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := New(1, false)
	defer p.Close()

	_, isNew, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, isNew)

	p.Discard(nil)

	_, isNew2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, isNew2)
}

func TestBlockingAcquireWaitsForRelease(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := New(1, true)
	defer p.Close()

	_, isNew, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, isNew)

	c := newIdleConn(t)
	defer c.Close() // still leased when the test ends; closing stops its pipe reader
	p.Release(c)

	got, _, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.Same(t, c, got)

	done := make(chan struct{})
	go func() {
		got2, isNew, err := p.Acquire(context.Background())
		assert.NoError(t, err)
		assert.False(t, isNew)
		assert.Same(t, c, got2)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond) // let the goroutine block in Acquire
	p.Release(c)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("blocking Acquire never woke up after Release")
	}
}

func TestBlockingAcquireRespectsContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := New(1, true)
	defer p.Close()

	_, isNew, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, isNew)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
