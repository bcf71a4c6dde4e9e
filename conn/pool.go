package conn

import (
	"context"
	"sync"
	"time"

	"github.com/quantadb/quanta-go/config"
	"github.com/quantadb/quanta-go/dberr"
)

// Dialer opens a new connection to a host. The default is Dial; custom
// dialers serve tests and alternative transports.
type Dialer func(host string) (*Connection, error)

// pickFunc selects the target host for a new connection.
type pickFunc func() (string, error)

// Pool owns a bounded set of connections. At most MaxConnections callers
// hold a connection at once; further Acquire calls block until a holder
// releases or the caller's context expires. Idle connections are reused
// before new ones are opened.
type Pool struct {
	cfg  config.PoolConfig
	dial Dialer

	// Counting semaphore over concurrent holders
	slots chan struct{}

	mu     sync.Mutex
	idle   []*PooledConnection
	closed bool
}

// NewPool creates a pool. No connections are opened until Warm or Acquire.
func NewPool(cfg config.PoolConfig, dial Dialer) *Pool {
	return &Pool{
		cfg:   cfg,
		dial:  dial,
		slots: make(chan struct{}, cfg.MaxConnections),
	}
}

// Warm eagerly opens MinConnections connections using pick for host choice.
// Dial failures are reported but do not abort the warmup; the pool works
// with whatever came up.
func (p *Pool) Warm(pick pickFunc) int {
	opened := 0
	for i := 0; i < p.cfg.MinConnections; i++ {
		host, err := pick()
		if err != nil {
			break
		}
		c, err := p.dial(host)
		if err != nil {
			connLogger.Warnw("pool warmup dial failed", "host", host, "err", err)
			continue
		}
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			_ = c.Close()
			break
		}
		p.idle = append(p.idle, newPooledConnection(c))
		p.mu.Unlock()
		opened++
	}
	return opened
}

// Acquire hands out a connection: a reusable idle one if present, a freshly
// dialed one while capacity remains, otherwise it blocks until a holder
// releases or ctx expires.
func (p *Pool) Acquire(ctx context.Context, pick pickFunc) (*PooledConnection, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, dberr.Timeout("pool acquire", p.cfg.ConnectionTimeoutMs)
	}

	pc, err := p.acquireLocked(pick)
	if err != nil {
		<-p.slots
		return nil, err
	}
	return pc, nil
}

func (p *Pool) acquireLocked(pick pickFunc) (*PooledConnection, error) {
	idleTimeout := time.Duration(p.cfg.IdleTimeoutMs) * time.Millisecond
	maxLifetime := time.Duration(p.cfg.MaxLifetimeMs) * time.Millisecond

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, dberr.Internal("pool", "acquire on closed pool")
	}

	// Newest idle connection first, discarding stale ones on the way
	for len(p.idle) > 0 {
		pc := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]

		if !pc.Usable() || pc.IsIdle(idleTimeout) || pc.IsExpired(maxLifetime) {
			_ = pc.Close()
			continue
		}
		p.mu.Unlock()
		pc.Touch()
		return pc, nil
	}
	p.mu.Unlock()

	host, err := pick()
	if err != nil {
		return nil, err
	}
	c, err := p.dial(host)
	if err != nil {
		return nil, err
	}
	return newPooledConnection(c), nil
}

// Release returns a connection to the pool. Unusable or lifetime-expired
// connections are closed instead of going back to idle.
func (p *Pool) Release(pc *PooledConnection) {
	defer func() { <-p.slots }()

	maxLifetime := time.Duration(p.cfg.MaxLifetimeMs) * time.Millisecond
	if !pc.Usable() || pc.IsExpired(maxLifetime) {
		_ = pc.Close()
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = pc.Close()
		return
	}
	pc.Touch()
	p.idle = append(p.idle, pc)
	p.mu.Unlock()
}

// Discard closes a connection instead of returning it, freeing its slot.
func (p *Pool) Discard(pc *PooledConnection) {
	_ = pc.Close()
	<-p.slots
}

// Close closes all idle connections and rejects further acquires. Held
// connections are closed as their holders release them.
func (p *Pool) Close() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.closed = true
	p.mu.Unlock()

	for _, pc := range idle {
		if err := pc.Close(); err != nil {
			connLogger.Warnw("failed to close pooled connection", "host", pc.Host(), "err", err)
		}
	}
}

// PoolStats is a point-in-time view of pool usage.
type PoolStats struct {
	Idle   int
	Active int
	Max    int
}

// Stats returns current pool usage numbers.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	idle := len(p.idle)
	p.mu.Unlock()
	return PoolStats{
		Idle:   idle,
		Active: len(p.slots),
		Max:    p.cfg.MaxConnections,
	}
}
