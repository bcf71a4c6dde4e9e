package conn

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantadb/quanta-go/codec"
	"github.com/quantadb/quanta-go/config"
	"github.com/quantadb/quanta-go/dberr"
	"github.com/quantadb/quanta-go/protocol"
)

// testConfig returns a config with short timeouts suitable for unit tests.
func testConfig() *config.ClientConfig {
	cfg := config.DefaultConfig()
	cfg.TimeoutMs = 1000
	cfg.Pool.ConnectionTimeoutMs = 1000
	return cfg
}

// pipeConnection creates a client connection over an in-memory pipe and
// returns the server side for the test to script.
func pipeConnection(cfg *config.ClientConfig) (*Connection, net.Conn) {
	clientEnd, serverEnd := net.Pipe()
	return New(clientEnd, "testnode:7000", cfg), serverEnd
}

// serve handles exchanges on the server side of a pipe until it is closed.
// The handler maps each request to a response message.
func serve(t *testing.T, serverEnd net.Conn, handler func(*protocol.Message) *protocol.Message) {
	t.Helper()
	cd := codec.New()
	go func() {
		for {
			req, err := cd.ReadMessage(serverEnd)
			if err != nil {
				return
			}
			resp := handler(req)
			if resp == nil {
				continue
			}
			if err := cd.WriteMessage(serverEnd, resp); err != nil {
				return
			}
		}
	}()
}

func TestSendRequest(t *testing.T) {
	c, serverEnd := pipeConnection(testConfig())
	defer c.Close()

	serve(t, serverEnd, func(req *protocol.Message) *protocol.Message {
		return protocol.NewMessage(protocol.MsgTAck, 7, req.Sender, req.Sequence, []byte("ok"))
	})

	ctx := context.Background()
	resp, err := c.SendRequest(ctx, protocol.MsgTData, []byte("query"))
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgTAck, resp.Type)
	assert.Equal(t, []byte("ok"), resp.Payload)
	assert.True(t, c.Usable())

	// Sequence numbers are monotonic per connection
	resp2, err := c.SendRequest(ctx, protocol.MsgTData, nil)
	require.NoError(t, err)
	assert.Equal(t, resp.Sequence+1, resp2.Sequence)
}

func TestSendRequestSequenceMismatch(t *testing.T) {
	c, serverEnd := pipeConnection(testConfig())
	defer c.Close()

	serve(t, serverEnd, func(req *protocol.Message) *protocol.Message {
		return protocol.NewMessage(protocol.MsgTAck, 7, req.Sender, req.Sequence+100, nil)
	})

	_, err := c.SendRequest(context.Background(), protocol.MsgTData, nil)
	require.Error(t, err)
	assert.Equal(t, dberr.KindProtocol, dberr.KindOf(err))
	assert.False(t, c.Usable(), "mismatched response must make the connection unusable")
}

func TestSendRequestTimeout(t *testing.T) {
	c, serverEnd := pipeConnection(testConfig())
	defer c.Close()

	// Server swallows the request and never responds
	serve(t, serverEnd, func(req *protocol.Message) *protocol.Message {
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.SendRequest(ctx, protocol.MsgTData, nil)
	require.Error(t, err)
	assert.Equal(t, dberr.KindTimeout, dberr.KindOf(err))
	assert.False(t, c.Usable(), "timed-out connection must not be reused")
}

func TestSendRequestOnUnusableConnection(t *testing.T) {
	c, serverEnd := pipeConnection(testConfig())
	defer serverEnd.Close()

	c.markUnusable()
	_, err := c.SendRequest(context.Background(), protocol.MsgTData, nil)
	require.Error(t, err)
	assert.Equal(t, dberr.KindConnectionLost, dberr.KindOf(err))
}

func TestPing(t *testing.T) {
	c, serverEnd := pipeConnection(testConfig())
	defer c.Close()

	serve(t, serverEnd, func(req *protocol.Message) *protocol.Message {
		require.Equal(t, protocol.MsgTPing, req.Type)
		return protocol.NewMessage(protocol.MsgTPong, 7, req.Sender, req.Sequence, nil)
	})

	require.NoError(t, c.Ping(context.Background()))
}

func TestPingWrongResponseType(t *testing.T) {
	c, serverEnd := pipeConnection(testConfig())
	defer c.Close()

	serve(t, serverEnd, func(req *protocol.Message) *protocol.Message {
		return protocol.NewMessage(protocol.MsgTAck, 7, req.Sender, req.Sequence, nil)
	})

	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.Equal(t, dberr.KindProtocol, dberr.KindOf(err))
}

// --------------------------------------------------------------------------
// Handshake
// --------------------------------------------------------------------------

// serveHandshake answers the negotiation exchange with the given server offer.
func serveHandshake(t *testing.T, serverEnd net.Conn, answer protocol.FeatureNegotiation) {
	t.Helper()
	serve(t, serverEnd, func(req *protocol.Message) *protocol.Message {
		require.Equal(t, protocol.MsgTClusterJoin, req.Type)

		var offer protocol.FeatureNegotiation
		require.NoError(t, cbor.Unmarshal(req.Payload, &offer))
		require.Equal(t, protocol.Version, offer.Version)

		payload, err := cbor.Marshal(&answer)
		require.NoError(t, err)
		return protocol.NewMessage(protocol.MsgTClusterJoin, 7, req.Sender, req.Sequence, payload)
	})
}

func TestHandshakeNegotiatesFeatures(t *testing.T) {
	cfg := testConfig()
	cfg.CompressionEnabled = true
	c, serverEnd := pipeConnection(cfg)
	defer c.Close()

	serveHandshake(t, serverEnd, protocol.FeatureNegotiation{
		Version:    protocol.Version,
		Features:   []protocol.Feature{protocol.FeatureCompression, protocol.FeatureHeartbeat, protocol.FeatureStreaming},
		Transports: []protocol.Transport{protocol.TransportTCP},
	})

	require.NoError(t, c.Handshake())
	assert.Equal(t, protocol.NodeID(7), c.NodeID())
	assert.True(t, c.Features().Has(protocol.FeatureCompression))
	assert.True(t, c.Features().Has(protocol.FeatureHeartbeat))
	// Streaming was not offered by the client, the intersection drops it
	assert.False(t, c.Features().Has(protocol.FeatureStreaming))
}

func TestHandshakeWithoutServerCompression(t *testing.T) {
	cfg := testConfig()
	cfg.CompressionEnabled = true
	c, serverEnd := pipeConnection(cfg)
	defer c.Close()

	serveHandshake(t, serverEnd, protocol.FeatureNegotiation{
		Version:  protocol.Version,
		Features: []protocol.Feature{protocol.FeatureHeartbeat},
	})

	require.NoError(t, c.Handshake())
	assert.False(t, c.Features().Has(protocol.FeatureCompression))
}

func TestHandshakeVersionMismatch(t *testing.T) {
	c, serverEnd := pipeConnection(testConfig())
	defer c.Close()

	serveHandshake(t, serverEnd, protocol.FeatureNegotiation{
		Version: protocol.Version + 1,
	})

	err := c.Handshake()
	require.Error(t, err)
	assert.Equal(t, dberr.KindProtocolVersionMismatch, dberr.KindOf(err))
}
