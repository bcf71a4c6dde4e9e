package conn

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/quantadb/quanta-go/codec"
	"github.com/quantadb/quanta-go/config"
	"github.com/quantadb/quanta-go/dberr"
	"github.com/quantadb/quanta-go/logging"
	"github.com/quantadb/quanta-go/protocol"
	"github.com/quantadb/quanta-go/protocol/serializer"
)

var connLogger = logging.GetLogger("conn")

// Connection owns exactly one socket to one node. Requests are strictly
// request-then-response: SendRequest holds the connection for the full
// exchange and matches the response by sequence number.
type Connection struct {
	host     string
	nodeID   protocol.NodeID
	conn     net.Conn
	codec    *codec.Codec
	cfg      *config.ClientConfig
	features protocol.FeatureSet

	seq      atomic.Uint64
	unusable atomic.Bool

	// Serializes request/response exchanges on the socket
	mu sync.Mutex
}

// Dial opens, upgrades and negotiates a connection to host. The dial attempt
// is bounded by the pool's connection timeout.
func Dial(host string, cfg *config.ClientConfig) (*Connection, error) {
	timeout := time.Duration(cfg.Pool.ConnectionTimeoutMs) * time.Millisecond
	dialer := net.Dialer{Timeout: timeout}

	raw, err := dialer.Dial("tcp", host)
	if err != nil {
		return nil, classifyDialError(host, cfg.Pool.ConnectionTimeoutMs, err)
	}

	if tc, ok := raw.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	if cfg.UseTLS {
		serverName := cfg.TLSServerName
		if serverName == "" {
			serverName, _, _ = net.SplitHostPort(host)
		}
		tlsConn := tls.Client(raw, &tls.Config{
			ServerName:         serverName,
			InsecureSkipVerify: cfg.TLSSkipVerify,
		})
		_ = tlsConn.SetDeadline(time.Now().Add(timeout))
		if err := tlsConn.Handshake(); err != nil {
			_ = raw.Close()
			return nil, dberr.Network("tls handshake with "+host+" failed", err)
		}
		_ = tlsConn.SetDeadline(time.Time{})
		raw = tlsConn
	}

	c := New(raw, host, cfg)
	if err := c.Handshake(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// New wraps an established socket without negotiating. Callers normally use
// Dial; New exists for transports that perform their own setup.
func New(raw net.Conn, host string, cfg *config.ClientConfig) *Connection {
	cd := codec.NewWithSerializer(serializer.NewBinarySerializer(), cfg.MaxMessageSize)
	return &Connection{
		host:  host,
		conn:  raw,
		codec: cd,
		cfg:   cfg,
	}
}

// --------------------------------------------------------------------------
// Handshake
// --------------------------------------------------------------------------

// Handshake exchanges feature sets with the server and fixes the negotiated
// features for the connection's lifetime. Compression is enabled on the
// codec only when both sides support it and the configuration asks for it.
func (c *Connection) Handshake() error {
	supported := []protocol.Feature{protocol.FeatureHeartbeat}
	if c.cfg.CompressionEnabled {
		supported = append(supported, protocol.FeatureCompression)
	}
	transports := []protocol.Transport{protocol.TransportTCP}
	if c.cfg.UseTLS {
		transports = append(transports, protocol.TransportTLS)
	}

	offer, err := cbor.Marshal(&protocol.FeatureNegotiation{
		Version:    protocol.Version,
		Features:   supported,
		Transports: transports,
	})
	if err != nil {
		return dberr.Serialization("failed to encode negotiation offer", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(c.cfg.Pool.ConnectionTimeoutMs)*time.Millisecond)
	defer cancel()

	resp, err := c.SendRequest(ctx, protocol.MsgTClusterJoin, offer)
	if err != nil {
		return err
	}
	if resp.Type != protocol.MsgTClusterJoin {
		return dberr.Protocol("unexpected handshake response type " + resp.Type.String())
	}

	var answer protocol.FeatureNegotiation
	if err := cbor.Unmarshal(resp.Payload, &answer); err != nil {
		return dberr.Serialization("failed to decode negotiation answer", err)
	}
	if answer.Version != protocol.Version {
		return dberr.VersionMismatch(protocol.Version, answer.Version)
	}

	c.nodeID = resp.Sender
	c.features = protocol.NewFeatureSet(supported...).
		Intersect(protocol.NewFeatureSet(answer.Features...))

	if c.features.Has(protocol.FeatureCompression) {
		c.codec.EnableCompression(c.cfg.CompressionThreshold)
	} else {
		c.codec.DisableCompression()
	}

	connLogger.Debugw("connection established",
		"host", c.host, "node", c.nodeID, "compression", c.codec.CompressionEnabled())
	return nil
}

// --------------------------------------------------------------------------
// Messaging
// --------------------------------------------------------------------------

// Host returns the endpoint the connection was dialed to.
func (c *Connection) Host() string { return c.host }

// NodeID returns the server node id learned during the handshake.
func (c *Connection) NodeID() protocol.NodeID { return c.nodeID }

// Features returns the feature set negotiated at connect time.
func (c *Connection) Features() protocol.FeatureSet { return c.features }

// Usable reports whether the connection may serve further requests.
func (c *Connection) Usable() bool { return !c.unusable.Load() }

// markUnusable flags the connection for eviction on release.
func (c *Connection) markUnusable() { c.unusable.Store(true) }

// SendMessage writes one message to the socket.
func (c *Connection) SendMessage(msg *protocol.Message) error {
	if err := c.codec.WriteMessage(c.conn, msg); err != nil {
		c.markUnusable()
		return err
	}
	return nil
}

// ReceiveMessage reads one message from the socket.
func (c *Connection) ReceiveMessage() (*protocol.Message, error) {
	msg, err := c.codec.ReadMessage(c.conn)
	if err != nil {
		if dberr.KindOf(err) == dberr.KindNetwork {
			c.markUnusable()
		}
		return nil, err
	}
	return msg, nil
}

// SendRequest assigns the next sequence number, writes the request and waits
// for the response carrying the same sequence. The exchange is bounded by
// the context deadline; on timeout the connection is unusable because an
// unread response may still arrive on the wire.
func (c *Connection) SendRequest(ctx context.Context, msgType protocol.MessageType, payload []byte) (*protocol.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.Usable() {
		return nil, dberr.ConnectionLost(uint64(c.nodeID), errors.New("connection flagged unusable"))
	}

	seq := c.seq.Add(1)
	msg := protocol.NewMessage(msgType, protocol.ClientNodeID, c.nodeID, seq, payload)

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		deadline = time.Now().Add(time.Duration(c.cfg.TimeoutMs) * time.Millisecond)
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, dberr.Network("failed to set deadline", err)
	}
	defer c.conn.SetDeadline(time.Time{})

	if err := c.codec.WriteMessage(c.conn, msg); err != nil {
		c.markUnusable()
		return nil, c.classifyExchangeError("send", err)
	}

	resp, err := c.codec.ReadMessage(c.conn)
	if err != nil {
		c.markUnusable()
		return nil, c.classifyExchangeError("receive", err)
	}

	if resp.Sequence != seq {
		c.markUnusable()
		return nil, dberr.Protocol("response sequence mismatch")
	}
	return resp, nil
}

// Ping probes the node with a Ping message and expects a Pong.
func (c *Connection) Ping(ctx context.Context) error {
	resp, err := c.SendRequest(ctx, protocol.MsgTPing, nil)
	if err != nil {
		return err
	}
	if resp.Type != protocol.MsgTPong {
		return dberr.Protocol("unexpected ping response type " + resp.Type.String())
	}
	return nil
}

// Close closes the underlying socket.
func (c *Connection) Close() error {
	c.markUnusable()
	return c.conn.Close()
}

// --------------------------------------------------------------------------
// Error Classification
// --------------------------------------------------------------------------

// classifyExchangeError maps transport failures during a request/response
// exchange. Deadline overruns become operation timeouts, everything else
// stays as reported by the codec.
func (c *Connection) classifyExchangeError(op string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return dberr.Timeout(op, c.cfg.TimeoutMs)
	}
	return err
}

// classifyDialError maps a failed dial attempt. Timeouts and refusals get
// their own kinds so callers can distinguish a dead host from a slow one.
func classifyDialError(host string, timeoutMs uint64, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return dberr.ConnectionTimeout(host, timeoutMs)
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return dberr.ConnectionRefused(host)
	}
	return dberr.Network("failed to connect to "+host, err)
}
