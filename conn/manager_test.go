package conn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantadb/quanta-go/dberr"
)

func threeHostConfig() []string {
	return []string{"node1:7000", "node2:7000", "node3:7000"}
}

func newTestManager(t *testing.T, hosts []string) (*Manager, *fakeDialer) {
	t.Helper()
	cfg := testConfig()
	cfg.Hosts = hosts
	cfg.Pool.MinConnections = 0
	cfg.Pool.MaxConnections = 8

	d := &fakeDialer{}
	t.Cleanup(d.close)

	m := NewManagerWithDialer(cfg, d.dial)
	t.Cleanup(m.Disconnect)
	return m, d
}

func TestManagerRoundRobin(t *testing.T) {
	m, d := newTestManager(t, threeHostConfig())
	ctx := context.Background()

	// Hold three connections at once so each acquire has to dial
	var held []*PooledConnection
	for i := 0; i < 3; i++ {
		pc, err := m.Acquire(ctx)
		require.NoError(t, err)
		held = append(held, pc)
	}
	for _, pc := range held {
		m.Release(pc)
	}

	hosts := d.dialedHosts()
	assert.ElementsMatch(t, threeHostConfig(), hosts,
		"new connections must spread across all healthy nodes")
}

func TestManagerExcludesUnhealthyNode(t *testing.T) {
	m, d := newTestManager(t, threeHostConfig())
	ctx := context.Background()

	m.MarkNodeUnhealthy("node2:7000")

	for i := 0; i < 50; i++ {
		pc, err := m.Acquire(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, "node2:7000", pc.Host(),
			"acquire must never hand out a connection to an unhealthy node")
		m.Release(pc)
	}

	for _, host := range d.dialedHosts() {
		assert.NotEqual(t, "node2:7000", host,
			"no connection may be opened to an unhealthy node")
	}
}

func TestManagerDiscardsIdleConnToNewlyUnhealthyNode(t *testing.T) {
	m, _ := newTestManager(t, threeHostConfig())
	ctx := context.Background()

	pc, err := m.Acquire(ctx)
	require.NoError(t, err)
	host := pc.Host()
	m.Release(pc)

	// The released connection sits idle; its node turning unhealthy must
	// keep it from being handed out again
	m.MarkNodeUnhealthy(host)
	pc2, err := m.Acquire(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, host, pc2.Host())
	m.Release(pc2)
}

func TestManagerReleaseEvictsUnhealthyNodeConn(t *testing.T) {
	m, _ := newTestManager(t, threeHostConfig())
	ctx := context.Background()

	pc, err := m.Acquire(ctx)
	require.NoError(t, err)

	// Node turns unhealthy while the connection is held; the in-flight
	// holder finishes, then the connection is evicted on release
	m.MarkNodeUnhealthy(pc.Host())
	m.Release(pc)

	assert.False(t, pc.Usable(), "connection to unhealthy node must be closed on release")
}

func TestManagerAllNodesUnhealthy(t *testing.T) {
	m, _ := newTestManager(t, threeHostConfig())

	for _, host := range threeHostConfig() {
		m.MarkNodeUnhealthy(host)
	}

	_, err := m.Acquire(context.Background())
	require.Error(t, err)
	assert.Equal(t, dberr.KindNetwork, dberr.KindOf(err))
}

func TestManagerFailureThreshold(t *testing.T) {
	m, _ := newTestManager(t, threeHostConfig())
	host := "node1:7000"

	// Below the threshold the node stays healthy
	m.ReportFailure(host)
	m.ReportFailure(host)
	h, ok := m.health.Load(host)
	require.True(t, ok)
	assert.True(t, h.IsHealthy())

	// The third consecutive failure trips it
	m.ReportFailure(host)
	assert.False(t, h.IsHealthy())

	info := h.Snapshot()
	assert.Equal(t, uint32(3), info.ConsecutiveFailures)
	assert.False(t, info.LastCheck.IsZero())

	// A success resets the streak and recovers the node
	m.ReportSuccess(host)
	assert.True(t, h.IsHealthy())
	assert.Equal(t, uint32(0), h.Snapshot().ConsecutiveFailures)
}

func TestManagerFailureStreakInterrupted(t *testing.T) {
	m, _ := newTestManager(t, threeHostConfig())
	host := "node1:7000"

	m.ReportFailure(host)
	m.ReportFailure(host)
	m.ReportSuccess(host)
	m.ReportFailure(host)
	m.ReportFailure(host)

	h, _ := m.health.Load(host)
	assert.True(t, h.IsHealthy(), "non-consecutive failures must not trip the threshold")
}

func TestManagerNodeHealths(t *testing.T) {
	m, _ := newTestManager(t, threeHostConfig())
	m.MarkNodeUnhealthy("node3:7000")

	infos := m.NodeHealths()
	require.Len(t, infos, 3)

	byHost := make(map[string]NodeHealthInfo)
	for _, info := range infos {
		byHost[info.Host] = info
	}
	assert.True(t, byHost["node1:7000"].Healthy)
	assert.True(t, byHost["node2:7000"].Healthy)
	assert.False(t, byHost["node3:7000"].Healthy)
}

func TestManagerDisconnect(t *testing.T) {
	m, _ := newTestManager(t, threeHostConfig())
	ctx := context.Background()

	pc, err := m.Acquire(ctx)
	require.NoError(t, err)
	m.Release(pc)

	m.Disconnect()
	assert.False(t, pc.Usable(), "idle connections must be closed on disconnect")

	_, err = m.Acquire(ctx)
	require.Error(t, err)

	// Disconnect is idempotent
	m.Disconnect()
}

func TestManagerWarm(t *testing.T) {
	m, d := newTestManager(t, threeHostConfig())
	cfgMin := 3
	m.cfg.Pool.MinConnections = cfgMin
	m.pool.cfg.MinConnections = cfgMin

	opened := m.Warm()
	assert.Equal(t, cfgMin, opened)
	assert.Equal(t, cfgMin, d.dialCount())
	assert.Equal(t, cfgMin, m.Stats().Idle)
}
