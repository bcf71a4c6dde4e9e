package conn

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantadb/quanta-go/config"
	"github.com/quantadb/quanta-go/dberr"
)

// fakeDialer hands out pipe-backed connections and records which hosts were
// dialed.
type fakeDialer struct {
	mu         sync.Mutex
	dialed     []string
	serverEnds []net.Conn
}

func (d *fakeDialer) dial(host string) (*Connection, error) {
	clientEnd, serverEnd := net.Pipe()
	d.mu.Lock()
	d.dialed = append(d.dialed, host)
	d.serverEnds = append(d.serverEnds, serverEnd)
	d.mu.Unlock()
	return New(clientEnd, host, testConfig()), nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dialed)
}

func (d *fakeDialer) dialedHosts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.dialed...)
}

func (d *fakeDialer) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, end := range d.serverEnds {
		_ = end.Close()
	}
}

func singleHost() (string, error) { return "node1:7000", nil }

func testPoolConfig() config.PoolConfig {
	return config.PoolConfig{
		MinConnections:      0,
		MaxConnections:      4,
		ConnectionTimeoutMs: 1000,
		IdleTimeoutMs:       60000,
		MaxLifetimeMs:       0,
	}
}

func TestPoolReusesIdleConnection(t *testing.T) {
	d := &fakeDialer{}
	defer d.close()
	p := NewPool(testPoolConfig(), d.dial)
	defer p.Close()

	ctx := context.Background()

	// Several sequential acquire/release cycles must reuse one connection
	var first *PooledConnection
	for i := 0; i < 5; i++ {
		pc, err := p.Acquire(ctx, singleHost)
		require.NoError(t, err)
		if first == nil {
			first = pc
		} else {
			assert.Same(t, first, pc, "idle connection must be reused")
		}
		p.Release(pc)
	}
	assert.Equal(t, 1, d.dialCount())
}

func TestPoolBlocksWhenExhausted(t *testing.T) {
	d := &fakeDialer{}
	defer d.close()
	cfg := testPoolConfig()
	cfg.MaxConnections = 1
	p := NewPool(cfg, d.dial)
	defer p.Close()

	pc, err := p.Acquire(context.Background(), singleHost)
	require.NoError(t, err)

	// Second acquire must block until the context expires
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = p.Acquire(ctx, singleHost)
	require.Error(t, err)
	assert.Equal(t, dberr.KindTimeout, dberr.KindOf(err))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	// After release the slot is free again
	p.Release(pc)
	pc2, err := p.Acquire(context.Background(), singleHost)
	require.NoError(t, err)
	p.Release(pc2)
}

func TestPoolUnblocksOnRelease(t *testing.T) {
	d := &fakeDialer{}
	defer d.close()
	cfg := testPoolConfig()
	cfg.MaxConnections = 1
	p := NewPool(cfg, d.dial)
	defer p.Close()

	pc, err := p.Acquire(context.Background(), singleHost)
	require.NoError(t, err)

	acquired := make(chan *PooledConnection, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		pc2, err := p.Acquire(ctx, singleHost)
		if err == nil {
			acquired <- pc2
		}
		close(acquired)
	}()

	time.Sleep(20 * time.Millisecond)
	p.Release(pc)

	pc2, ok := <-acquired
	require.True(t, ok, "waiting acquire must succeed after release")
	assert.Same(t, pc, pc2)
	p.Release(pc2)
}

func TestPoolEvictsUnusableOnRelease(t *testing.T) {
	d := &fakeDialer{}
	defer d.close()
	p := NewPool(testPoolConfig(), d.dial)
	defer p.Close()

	ctx := context.Background()
	pc, err := p.Acquire(ctx, singleHost)
	require.NoError(t, err)
	pc.markUnusable()
	p.Release(pc)

	pc2, err := p.Acquire(ctx, singleHost)
	require.NoError(t, err)
	assert.NotSame(t, pc, pc2, "unusable connection must not come back")
	assert.Equal(t, 2, d.dialCount())
	p.Release(pc2)
}

func TestPoolEvictsExpiredOnRelease(t *testing.T) {
	d := &fakeDialer{}
	defer d.close()
	cfg := testPoolConfig()
	cfg.MaxLifetimeMs = 10
	p := NewPool(cfg, d.dial)
	defer p.Close()

	ctx := context.Background()
	pc, err := p.Acquire(ctx, singleHost)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	p.Release(pc)

	pc2, err := p.Acquire(ctx, singleHost)
	require.NoError(t, err)
	assert.NotSame(t, pc, pc2, "connection past max lifetime must not come back")
	p.Release(pc2)
}

func TestPoolDiscardsIdleTimedOut(t *testing.T) {
	d := &fakeDialer{}
	defer d.close()
	cfg := testPoolConfig()
	cfg.IdleTimeoutMs = 10
	p := NewPool(cfg, d.dial)
	defer p.Close()

	ctx := context.Background()
	pc, err := p.Acquire(ctx, singleHost)
	require.NoError(t, err)
	p.Release(pc)

	time.Sleep(30 * time.Millisecond)

	pc2, err := p.Acquire(ctx, singleHost)
	require.NoError(t, err)
	assert.NotSame(t, pc, pc2, "idle-timed-out connection must not come back")
	p.Release(pc2)
}

func TestPoolWarm(t *testing.T) {
	d := &fakeDialer{}
	defer d.close()
	cfg := testPoolConfig()
	cfg.MinConnections = 3
	p := NewPool(cfg, d.dial)
	defer p.Close()

	opened := p.Warm(singleHost)
	assert.Equal(t, 3, opened)
	assert.Equal(t, 3, p.Stats().Idle)
	assert.Equal(t, 3, d.dialCount())
}

func TestPoolCloseRejectsAcquire(t *testing.T) {
	d := &fakeDialer{}
	defer d.close()
	p := NewPool(testPoolConfig(), d.dial)
	p.Close()

	_, err := p.Acquire(context.Background(), singleHost)
	require.Error(t, err)
	assert.Equal(t, dberr.KindInternal, dberr.KindOf(err))
}

func TestPoolStats(t *testing.T) {
	d := &fakeDialer{}
	defer d.close()
	p := NewPool(testPoolConfig(), d.dial)
	defer p.Close()

	ctx := context.Background()
	pc, err := p.Acquire(ctx, singleHost)
	require.NoError(t, err)

	stats := p.Stats()
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 0, stats.Idle)
	assert.Equal(t, 4, stats.Max)

	p.Release(pc)
	stats = p.Stats()
	assert.Equal(t, 0, stats.Active)
	assert.Equal(t, 1, stats.Idle)
}
