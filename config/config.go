package config

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Pool configuration struct
// --------------------------------------------------------------------------

// PoolConfig controls connection pool sizing and lifecycle.
type PoolConfig struct {
	// MinConnections is the number of connections opened eagerly per node
	MinConnections int
	// MaxConnections caps the pool size per node
	MaxConnections int
	// ConnectionTimeoutMs bounds a single dial attempt
	ConnectionTimeoutMs uint64
	// IdleTimeoutMs marks a connection idle when unused this long
	IdleTimeoutMs uint64
	// MaxLifetimeMs evicts a connection after this total age, 0 disables
	MaxLifetimeMs uint64
}

// DefaultPoolConfig returns the standard pool sizing.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MinConnections:      5,
		MaxConnections:      20,
		ConnectionTimeoutMs: 5000,
		IdleTimeoutMs:       60000,
		MaxLifetimeMs:       1800000,
	}
}

// Validate checks the pool configuration for consistency.
func (c *PoolConfig) Validate() error {
	if c.MinConnections < 0 {
		return fmt.Errorf("min connections must not be negative, got %d", c.MinConnections)
	}
	if c.MaxConnections < 1 {
		return fmt.Errorf("max connections must be at least 1, got %d", c.MaxConnections)
	}
	if c.MinConnections > c.MaxConnections {
		return fmt.Errorf("min connections (%d) exceeds max connections (%d)",
			c.MinConnections, c.MaxConnections)
	}
	return nil
}

// --------------------------------------------------------------------------
// Retry configuration struct
// --------------------------------------------------------------------------

// RetryConfig controls the exponential backoff of retried operations.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int
	// InitialBackoffMs is the delay before the first retry
	InitialBackoffMs uint64
	// MaxBackoffMs caps the delay between attempts
	MaxBackoffMs uint64
	// BackoffMultiplier scales the delay after every attempt
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the standard retry behavior: three retries
// with backoff growing from 100ms to at most 5s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoffMs:  100,
		MaxBackoffMs:      5000,
		BackoffMultiplier: 2.0,
	}
}

// NoRetry disables retries entirely, every error propagates immediately.
func NoRetry() RetryConfig {
	return RetryConfig{MaxRetries: 0, InitialBackoffMs: 0, MaxBackoffMs: 0, BackoffMultiplier: 1.0}
}

// AggressiveRetry retries often with short delays, for latency-sensitive
// callers talking to a nearby cluster.
func AggressiveRetry() RetryConfig {
	return RetryConfig{
		MaxRetries:        5,
		InitialBackoffMs:  50,
		MaxBackoffMs:      1000,
		BackoffMultiplier: 1.5,
	}
}

// ConservativeRetry retries rarely with long delays, for batch workloads
// that prefer backing off over hammering a struggling cluster.
func ConservativeRetry() RetryConfig {
	return RetryConfig{
		MaxRetries:        2,
		InitialBackoffMs:  1000,
		MaxBackoffMs:      30000,
		BackoffMultiplier: 3.0,
	}
}

// Validate checks the retry configuration for consistency.
func (c *RetryConfig) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	}
	if c.BackoffMultiplier < 1.0 {
		return fmt.Errorf("backoff multiplier must be at least 1.0, got %g", c.BackoffMultiplier)
	}
	if c.MaxBackoffMs != 0 && c.MaxBackoffMs < c.InitialBackoffMs {
		return fmt.Errorf("max backoff (%dms) below initial backoff (%dms)",
			c.MaxBackoffMs, c.InitialBackoffMs)
	}
	return nil
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters for the database client.
type ClientConfig struct {
	// Hosts are the cluster endpoints as "host:port"
	Hosts []string

	// TimeoutMs bounds a single request/response exchange
	TimeoutMs uint64

	// TLS settings
	UseTLS        bool
	TLSServerName string
	TLSSkipVerify bool

	// Compression settings
	CompressionEnabled   bool
	CompressionThreshold int

	// MaxMessageSize bounds a single encoded message in bytes
	MaxMessageSize int

	// HealthCheckIntervalMs is the period of background node pings, 0 disables
	HealthCheckIntervalMs uint64

	Pool  PoolConfig
	Retry RetryConfig

	// Logging configuration
	LogLevel string
}

// DefaultConfig returns a configuration for a single local node with
// standard pool and retry settings.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Hosts:                 []string{"localhost:7000"},
		TimeoutMs:             5000,
		CompressionEnabled:    false,
		CompressionThreshold:  1024,
		MaxMessageSize:        1 << 20,
		HealthCheckIntervalMs: 0,
		Pool:                  DefaultPoolConfig(),
		Retry:                 DefaultRetryConfig(),
		LogLevel:              "info",
	}
}

// Validate checks the whole configuration for consistency.
func (c *ClientConfig) Validate() error {
	if len(c.Hosts) == 0 {
		return fmt.Errorf("at least one host is required")
	}
	for _, h := range c.Hosts {
		if !strings.Contains(h, ":") {
			return fmt.Errorf("host %q is missing a port", h)
		}
	}
	if c.TimeoutMs == 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxMessageSize < 1 {
		return fmt.Errorf("max message size must be positive, got %d", c.MaxMessageSize)
	}
	if err := c.Pool.Validate(); err != nil {
		return fmt.Errorf("pool: %w", err)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General client settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d ms", c.TimeoutMs))
	addField("TLS", fmt.Sprintf("%t", c.UseTLS))
	addField("Compression", fmt.Sprintf("%t", c.CompressionEnabled))
	if c.CompressionEnabled {
		addField("Compression Threshold", fmt.Sprintf("%d bytes", c.CompressionThreshold))
	}
	addField("Max Message Size", fmt.Sprintf("%d bytes", c.MaxMessageSize))
	if c.HealthCheckIntervalMs > 0 {
		addField("Health Check Interval", fmt.Sprintf("%d ms", c.HealthCheckIntervalMs))
	}

	// Pool settings
	addSection("Connection Pool")
	addField("Min Connections", strconv.Itoa(c.Pool.MinConnections))
	addField("Max Connections", strconv.Itoa(c.Pool.MaxConnections))
	addField("Connection Timeout", fmt.Sprintf("%d ms", c.Pool.ConnectionTimeoutMs))
	addField("Idle Timeout", fmt.Sprintf("%d ms", c.Pool.IdleTimeoutMs))
	addField("Max Lifetime", fmt.Sprintf("%d ms", c.Pool.MaxLifetimeMs))

	// Retry settings
	addSection("Retry")
	addField("Max Retries", strconv.Itoa(c.Retry.MaxRetries))
	addField("Initial Backoff", fmt.Sprintf("%d ms", c.Retry.InitialBackoffMs))
	addField("Max Backoff", fmt.Sprintf("%d ms", c.Retry.MaxBackoffMs))
	addField("Backoff Multiplier", fmt.Sprintf("%g", c.Retry.BackoffMultiplier))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Hosts
	addSection("Hosts")
	for i, host := range c.Hosts {
		addField(strconv.Itoa(i), host)
	}

	return sb.String()
}
