package client

import (
	"context"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/quantadb/quanta-go/auth"
	"github.com/quantadb/quanta-go/config"
	"github.com/quantadb/quanta-go/conn"
	"github.com/quantadb/quanta-go/dberr"
	"github.com/quantadb/quanta-go/logging"
	"github.com/quantadb/quanta-go/metrics"
	"github.com/quantadb/quanta-go/protocol"
	"github.com/quantadb/quanta-go/retry"
)

var logger = logging.GetLogger("client")

// Client bundles the connection manager, auth manager and retry policy into
// the request/response primitive every typed operation is built on. A
// Client is safe for concurrent use.
type Client struct {
	cfg  *config.ClientConfig
	mgr  *conn.Manager
	auth *auth.Manager
}

// Connect validates the configuration, opens the initial connections and
// authenticates the session.
func Connect(cfg *config.ClientConfig, creds auth.Credentials) (*Client, error) {
	mgr := conn.NewManager(cfg)
	c, err := newClient(cfg, creds, mgr)
	if err != nil {
		mgr.Disconnect()
		return nil, err
	}
	return c, nil
}

// newClient wires a client onto an existing manager, used by Connect and by
// tests injecting a scripted transport.
func newClient(cfg *config.ClientConfig, creds auth.Credentials, mgr *conn.Manager) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, dberr.Internal("config", err.Error())
	}
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		return nil, dberr.Internal("config", err.Error())
	}

	authMgr, err := auth.NewManager(creds)
	if err != nil {
		return nil, err
	}

	c := &Client{cfg: cfg, mgr: mgr, auth: authMgr}

	if warmed := mgr.Warm(); warmed < cfg.Pool.MinConnections {
		logger.Warnw("pool warmup incomplete",
			"opened", warmed, "wanted", cfg.Pool.MinConnections)
	}

	// Authenticate eagerly so credential problems surface at connect time
	ctx, cancel := c.operationContext(context.Background())
	defer cancel()
	if err := c.withConnection(ctx, func(pc *conn.PooledConnection) error {
		_, authErr := c.auth.Authenticate(ctx, pc)
		return authErr
	}); err != nil {
		metrics.RecordAuth(false)
		return nil, err
	}
	metrics.RecordAuth(true)

	metrics.RegisterPoolGauges(
		func() float64 { return float64(c.mgr.Stats().Idle) },
		func() float64 { return float64(c.mgr.Stats().Active) },
	)

	logger.Infow("connected", "hosts", cfg.Hosts)
	return c, nil
}

// Data returns the typed data-operation surface.
func (c *Client) Data() *DataClient { return &DataClient{c: c} }

// Admin returns the cluster administration surface.
func (c *Client) Admin() *AdminClient { return &AdminClient{c: c} }

// Stats exposes current pool usage.
func (c *Client) Stats() conn.PoolStats { return c.mgr.Stats() }

// WriteMetrics dumps all client metrics in Prometheus text format.
func (c *Client) WriteMetrics(w io.Writer) { metrics.WritePrometheus(w) }

// HealthCheck probes every configured node and returns the resulting
// health states.
func (c *Client) HealthCheck(ctx context.Context) []conn.NodeHealthInfo {
	ctx, cancel := c.operationContext(ctx)
	defer cancel()
	return c.mgr.HealthCheckAllNodes(ctx)
}

// Disconnect logs the session out (best effort) and closes every
// connection.
func (c *Client) Disconnect() {
	ctx, cancel := c.operationContext(context.Background())
	defer cancel()

	err := c.withConnection(ctx, func(pc *conn.PooledConnection) error {
		return c.auth.Logout(ctx, pc)
	})
	if err != nil {
		logger.Warnw("logout failed during disconnect", "err", err)
	}
	c.mgr.Disconnect()
}

// --------------------------------------------------------------------------
// Request Primitive
// --------------------------------------------------------------------------

// operationContext applies the configured request timeout when the caller
// brought no deadline of their own.
func (c *Client) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutMs)*time.Millisecond)
}

// withConnection runs fn with an acquired connection, always returning the
// connection to the manager.
func (c *Client) withConnection(ctx context.Context, fn func(pc *conn.PooledConnection) error) error {
	pc, err := c.mgr.Acquire(ctx)
	if err != nil {
		return err
	}
	defer c.mgr.Release(pc)
	return fn(pc)
}

// do sends one operation through retry, pool, auth and codec, and decodes
// the typed response.
func (c *Client) do(ctx context.Context, req dataRequest) (*dataResponse, error) {
	ctx, cancel := c.operationContext(ctx)
	defer cancel()

	start := time.Now()
	attempts := 0
	resp, err := retry.Do(ctx, c.cfg.Retry, func(ctx context.Context) (*dataResponse, error) {
		attempts++
		if attempts > 1 {
			metrics.RecordRetry(req.Op)
		}
		return c.attempt(ctx, req)
	})
	metrics.RecordRequest(req.Op, time.Since(start), err)
	return resp, err
}

// attempt is one try of an operation on one connection.
func (c *Client) attempt(ctx context.Context, req dataRequest) (*dataResponse, error) {
	pc, err := c.mgr.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer c.mgr.Release(pc)

	resp, err := c.exchange(ctx, pc, req)
	if err != nil && dberr.IsRetryable(err) {
		c.mgr.ReportFailure(pc.Host())
	} else {
		c.mgr.ReportSuccess(pc.Host())
	}
	return resp, err
}

// exchange sends req on the given connection. Used by the request primitive
// and by transactions pinning their own connection.
func (c *Client) exchange(ctx context.Context, pc *conn.PooledConnection, req dataRequest) (*dataResponse, error) {
	token, err := c.auth.GetValidToken(ctx, pc)
	if err != nil {
		return nil, err
	}
	req.Signature = token.Signature

	payload, err := cbor.Marshal(&req)
	if err != nil {
		return nil, dberr.Serialization("failed to encode request", err)
	}

	msg, err := pc.SendRequest(ctx, protocol.MsgTData, payload)
	if err != nil {
		return nil, err
	}
	return decodeResponse(msg)
}
