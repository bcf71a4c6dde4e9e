package conn

import (
	"sync"
	"time"

	"github.com/quantadb/quanta-go/metrics"
)

// PooledConnection is a Connection owned temporarily by a caller, tagged
// with creation and last-use times for idle and lifetime eviction.
type PooledConnection struct {
	*Connection

	createdAt time.Time

	mu       sync.Mutex
	lastUsed time.Time
}

func newPooledConnection(c *Connection) *PooledConnection {
	now := time.Now()
	metrics.RecordConnectionOpened(c.Host())
	return &PooledConnection{
		Connection: c,
		createdAt:  now,
		lastUsed:   now,
	}
}

// Close closes the underlying connection and counts the eviction.
func (p *PooledConnection) Close() error {
	metrics.RecordConnectionEvicted(p.Host())
	return p.Connection.Close()
}

// Touch records activity on the connection.
func (p *PooledConnection) Touch() {
	p.mu.Lock()
	p.lastUsed = time.Now()
	p.mu.Unlock()
}

// CreatedAt returns the time the connection was opened.
func (p *PooledConnection) CreatedAt() time.Time { return p.createdAt }

// LastUsed returns the time of the most recent activity.
func (p *PooledConnection) LastUsed() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastUsed
}

// IsIdle reports whether the connection has been unused longer than the
// idle timeout. A zero timeout disables idle eviction.
func (p *PooledConnection) IsIdle(idleTimeout time.Duration) bool {
	if idleTimeout <= 0 {
		return false
	}
	return time.Since(p.LastUsed()) > idleTimeout
}

// IsExpired reports whether the connection's total age exceeds the maximum
// lifetime. A zero lifetime disables lifetime eviction.
func (p *PooledConnection) IsExpired(maxLifetime time.Duration) bool {
	if maxLifetime <= 0 {
		return false
	}
	return time.Since(p.createdAt) > maxLifetime
}
