package conn

import (
	"sync"
	"time"
)

// failureThreshold is the number of consecutive failures after which a node
// is considered unhealthy.
const failureThreshold = 3

// NodeHealth tracks the health of a single cluster node. It is mutated only
// by the Manager, on probe outcomes and explicit mark calls.
type NodeHealth struct {
	mu                  sync.Mutex
	host                string
	healthy             bool
	lastCheck           time.Time
	consecutiveFailures uint32
}

func newNodeHealth(host string) *NodeHealth {
	return &NodeHealth{host: host, healthy: true}
}

// markHealthy resets the node to healthy and clears the failure streak.
func (h *NodeHealth) markHealthy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.healthy = true
	h.consecutiveFailures = 0
	h.lastCheck = time.Now()
}

// markFailure records a failed probe or operation. The node turns unhealthy
// once the failure streak reaches the threshold.
func (h *NodeHealth) markFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutiveFailures++
	h.lastCheck = time.Now()
	if h.consecutiveFailures >= failureThreshold {
		h.healthy = false
	}
}

// markUnhealthy forces the node unhealthy immediately.
func (h *NodeHealth) markUnhealthy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.healthy = false
	h.consecutiveFailures = failureThreshold
	h.lastCheck = time.Now()
}

// IsHealthy reports whether the node currently accepts new connections.
func (h *NodeHealth) IsHealthy() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.healthy
}

// NodeHealthInfo is an immutable snapshot of a node's health state.
type NodeHealthInfo struct {
	Host                string
	Healthy             bool
	LastCheck           time.Time
	ConsecutiveFailures uint32
}

// Snapshot returns a consistent copy of the current health state.
func (h *NodeHealth) Snapshot() NodeHealthInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return NodeHealthInfo{
		Host:                h.host,
		Healthy:             h.healthy,
		LastCheck:           h.lastCheck,
		ConsecutiveFailures: h.consecutiveFailures,
	}
}
