package conn

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/quantadb/quanta-go/config"
	"github.com/quantadb/quanta-go/dberr"
	"github.com/quantadb/quanta-go/logging"
)

var mgrLogger = logging.GetLogger("conn/manager")

// Manager owns the pool and all per-node health state. It decides which
// node a new connection targets (round-robin over healthy nodes) and
// excludes unhealthy nodes until a probe or an explicit mark recovers them.
type Manager struct {
	cfg    *config.ClientConfig
	pool   *Pool
	dial   Dialer
	health *xsync.MapOf[string, *NodeHealth]

	// Atomic counter for round robin
	nextHost atomic.Uint64

	stopped         atomic.Bool
	stopHealthCheck chan struct{}
}

// NewManager creates a manager for the configured hosts. Connections are
// opened lazily; call Warm to pre-open the configured minimum.
func NewManager(cfg *config.ClientConfig) *Manager {
	return NewManagerWithDialer(cfg, func(host string) (*Connection, error) {
		return Dial(host, cfg)
	})
}

// NewManagerWithDialer creates a manager using a custom dialer, for tests
// and alternative transports.
func NewManagerWithDialer(cfg *config.ClientConfig, dial Dialer) *Manager {
	m := &Manager{
		cfg:             cfg,
		dial:            dial,
		health:          xsync.NewMapOf[string, *NodeHealth](),
		stopHealthCheck: make(chan struct{}),
	}
	for _, host := range cfg.Hosts {
		m.health.Store(host, newNodeHealth(host))
	}
	m.pool = NewPool(cfg.Pool, func(host string) (*Connection, error) {
		c, err := dial(host)
		if err != nil {
			m.reportFailure(host)
			return nil, err
		}
		m.reportSuccess(host)
		return c, nil
	})
	if cfg.HealthCheckIntervalMs > 0 {
		go m.healthCheckLoop(time.Duration(cfg.HealthCheckIntervalMs) * time.Millisecond)
	}
	return m
}

// Warm pre-opens the configured minimum number of connections.
func (m *Manager) Warm() int {
	return m.pool.Warm(m.pickHost)
}

// --------------------------------------------------------------------------
// Node Choice
// --------------------------------------------------------------------------

// pickHost returns the next healthy host in round-robin order.
func (m *Manager) pickHost() (string, error) {
	healthy := m.healthyHosts()
	if len(healthy) == 0 {
		return "", dberr.Network("no healthy nodes available", nil)
	}
	idx := m.nextHost.Add(1)
	return healthy[(idx-1)%uint64(len(healthy))], nil
}

func (m *Manager) healthyHosts() []string {
	healthy := make([]string, 0, len(m.cfg.Hosts))
	for _, host := range m.cfg.Hosts {
		if h, ok := m.health.Load(host); ok && h.IsHealthy() {
			healthy = append(healthy, host)
		}
	}
	return healthy
}

// --------------------------------------------------------------------------
// Acquire / Release
// --------------------------------------------------------------------------

// Acquire hands out a connection to a healthy node, blocking bounded by ctx
// when the pool is exhausted.
func (m *Manager) Acquire(ctx context.Context) (*PooledConnection, error) {
	for {
		pc, err := m.pool.Acquire(ctx, m.pickHost)
		if err != nil {
			return nil, err
		}
		// An idle connection may target a node that turned unhealthy
		// while it sat in the pool
		if h, ok := m.health.Load(pc.Host()); ok && !h.IsHealthy() {
			if len(m.healthyHosts()) > 0 {
				m.pool.Discard(pc)
				continue
			}
		}
		return pc, nil
	}
}

// Release returns a connection after use. Connections to nodes that turned
// unhealthy finish their current operation and are then evicted rather than
// reused.
func (m *Manager) Release(pc *PooledConnection) {
	if h, ok := m.health.Load(pc.Host()); ok && !h.IsHealthy() {
		m.pool.Discard(pc)
		return
	}
	m.pool.Release(pc)
}

// ReportFailure records an operation failure attributable to a node.
func (m *Manager) ReportFailure(host string) { m.reportFailure(host) }

// ReportSuccess records a successful operation against a node.
func (m *Manager) ReportSuccess(host string) { m.reportSuccess(host) }

func (m *Manager) reportFailure(host string) {
	if h, ok := m.health.Load(host); ok {
		wasHealthy := h.IsHealthy()
		h.markFailure()
		if wasHealthy && !h.IsHealthy() {
			mgrLogger.Warnw("node marked unhealthy", "host", host)
		}
	}
}

func (m *Manager) reportSuccess(host string) {
	if h, ok := m.health.Load(host); ok {
		h.markHealthy()
	}
}

// --------------------------------------------------------------------------
// Health Checks
// --------------------------------------------------------------------------

// MarkNodeHealthy administratively resets a node to healthy.
func (m *Manager) MarkNodeHealthy(host string) {
	if h, ok := m.health.Load(host); ok {
		h.markHealthy()
	}
}

// MarkNodeUnhealthy administratively excludes a node from new connections.
func (m *Manager) MarkNodeUnhealthy(host string) {
	if h, ok := m.health.Load(host); ok {
		h.markUnhealthy()
	}
}

// NodeHealths returns a snapshot of every configured node's health.
func (m *Manager) NodeHealths() []NodeHealthInfo {
	infos := make([]NodeHealthInfo, 0, len(m.cfg.Hosts))
	for _, host := range m.cfg.Hosts {
		if h, ok := m.health.Load(host); ok {
			infos = append(infos, h.Snapshot())
		}
	}
	return infos
}

// HealthCheckAllNodes probes every configured node with a short-lived
// connection and updates its health state from the outcome.
func (m *Manager) HealthCheckAllNodes(ctx context.Context) []NodeHealthInfo {
	for _, host := range m.cfg.Hosts {
		if err := m.probe(ctx, host); err != nil {
			m.reportFailure(host)
		} else {
			m.reportSuccess(host)
		}
	}
	return m.NodeHealths()
}

func (m *Manager) probe(ctx context.Context, host string) error {
	c, err := m.dial(host)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.Ping(ctx)
}

func (m *Manager) healthCheckLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(),
				time.Duration(m.cfg.TimeoutMs)*time.Millisecond)
			m.HealthCheckAllNodes(ctx)
			cancel()
		case <-m.stopHealthCheck:
			return
		}
	}
}

// --------------------------------------------------------------------------
// Shutdown
// --------------------------------------------------------------------------

// Stats exposes pool usage for metrics and the CLI.
func (m *Manager) Stats() PoolStats { return m.pool.Stats() }

// Disconnect closes every reachable connection, stops background health
// checks and clears all health state.
func (m *Manager) Disconnect() {
	if !m.stopped.CompareAndSwap(false, true) {
		return
	}
	close(m.stopHealthCheck)
	m.pool.Close()
	m.health.Range(func(host string, h *NodeHealth) bool {
		m.health.Delete(host)
		return true
	})
	mgrLogger.Infow("disconnected", "hosts", len(m.cfg.Hosts))
}
