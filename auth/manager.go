package auth

import (
	"context"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/quantadb/quanta-go/dberr"
	"github.com/quantadb/quanta-go/logging"
	"github.com/quantadb/quanta-go/protocol"
)

var logger = logging.GetLogger("auth")

// refreshWindow is how close to expiry a token may get before GetValidToken
// renews it proactively instead of risking a mid-request expiry.
const refreshWindow = 30 * time.Second

// Conn is the connection surface the manager needs. *conn.Connection and
// *conn.PooledConnection both satisfy it.
type Conn interface {
	SendRequest(ctx context.Context, msgType protocol.MessageType, payload []byte) (*protocol.Message, error)
	Host() string
}

// --------------------------------------------------------------------------
// Wire Payloads
// --------------------------------------------------------------------------

const (
	opAuthenticate = "authenticate"
	opRefresh      = "refresh"
	opLogout       = "logout"
)

// authRequest is the CBOR body of an auth operation, carried in a Data
// message.
type authRequest struct {
	Op          string `cbor:"op"`
	SessionID   string `cbor:"session"`
	Username    string `cbor:"user,omitempty"`
	Password    string `cbor:"pass,omitempty"`
	Certificate []byte `cbor:"cert,omitempty"`
	StaticToken string `cbor:"token,omitempty"`
	Signature   []byte `cbor:"sig,omitempty"`
}

// authResponse is the CBOR body of the server's answer.
type authResponse struct {
	OK          bool     `cbor:"ok"`
	Reason      string   `cbor:"reason,omitempty"`
	UserID      string   `cbor:"uid,omitempty"`
	Roles       []string `cbor:"roles,omitempty"`
	ExpiresAtMs int64    `cbor:"exp,omitempty"`
	Signature   []byte   `cbor:"sig,omitempty"`
}

// --------------------------------------------------------------------------
// Manager
// --------------------------------------------------------------------------

// Manager holds the credentials and the current token. All token state is
// replaced atomically under the mutex; concurrent re-authentication is
// collapsed through a singleflight group.
type Manager struct {
	creds     Credentials
	sessionID string

	mu    sync.RWMutex
	token *Token

	group singleflight.Group
}

// NewManager validates the credentials and creates a manager with a fresh
// session id.
func NewManager(creds Credentials) (*Manager, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		creds:     creds,
		sessionID: uuid.NewString(),
	}, nil
}

// SessionID returns the client session identifier sent with auth requests.
func (m *Manager) SessionID() string { return m.sessionID }

// Token returns the currently held token, which may be nil or expired.
func (m *Manager) Token() *Token {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Authenticate sends the credentials over c and stores the issued token.
func (m *Manager) Authenticate(ctx context.Context, c Conn) (*Token, error) {
	token, err := m.exchange(ctx, c, authRequest{
		Op:          opAuthenticate,
		SessionID:   m.sessionID,
		Username:    m.creds.Username,
		Password:    m.creds.Password,
		Certificate: m.creds.Certificate,
		StaticToken: m.creds.StaticToken,
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	logger.Debugw("authenticated", "host", c.Host(), "expiresAt", token.ExpiresAt)
	return token, nil
}

// GetValidToken returns the current token if it is valid, otherwise it
// re-authenticates transparently. Concurrent callers detecting expiry at
// the same time trigger exactly one authentication request.
func (m *Manager) GetValidToken(ctx context.Context, c Conn) (*Token, error) {
	m.mu.RLock()
	token := m.token
	m.mu.RUnlock()

	if token.Valid() && !token.ExpiresWithin(refreshWindow) {
		return token, nil
	}

	result, err, _ := m.group.Do("authenticate", func() (any, error) {
		// Another caller may have finished re-authenticating while this
		// one waited on the group
		m.mu.RLock()
		current := m.token
		m.mu.RUnlock()
		if current.Valid() && !current.ExpiresWithin(refreshWindow) {
			return current, nil
		}
		return m.Authenticate(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Token), nil
}

// RefreshToken proactively renews the current token before it expires. The
// old token's signature proves the session; the stored token is replaced,
// not mutated.
func (m *Manager) RefreshToken(ctx context.Context, c Conn) (*Token, error) {
	m.mu.RLock()
	current := m.token
	m.mu.RUnlock()

	if current == nil {
		return nil, dberr.TokenExpired("no token to refresh")
	}

	token, err := m.exchange(ctx, c, authRequest{
		Op:        opRefresh,
		SessionID: m.sessionID,
		Username:  m.creds.Username,
		Signature: current.Signature,
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	logger.Debugw("token refreshed", "host", c.Host(), "expiresAt", token.ExpiresAt)
	return token, nil
}

// Logout invalidates the session server-side and clears the token locally.
// The local token is cleared even when the server call fails, so subsequent
// GetValidToken calls re-authenticate from credentials.
func (m *Manager) Logout(ctx context.Context, c Conn) error {
	m.mu.Lock()
	current := m.token
	m.token = nil
	m.mu.Unlock()

	if current == nil {
		return nil
	}

	req := authRequest{
		Op:        opLogout,
		SessionID: m.sessionID,
		Username:  m.creds.Username,
		Signature: current.Signature,
	}
	if _, err := m.exchange(ctx, c, req); err != nil {
		return err
	}
	logger.Debugw("logged out", "host", c.Host())
	return nil
}

// --------------------------------------------------------------------------
// Wire Exchange
// --------------------------------------------------------------------------

// exchange performs one auth round trip and converts the response into a
// token or a structured error.
func (m *Manager) exchange(ctx context.Context, c Conn, req authRequest) (*Token, error) {
	payload, err := cbor.Marshal(&req)
	if err != nil {
		return nil, dberr.Serialization("failed to encode auth request", err)
	}

	msg, err := c.SendRequest(ctx, protocol.MsgTData, payload)
	if err != nil {
		return nil, err
	}
	if msg.Type == protocol.MsgTError {
		return nil, dberr.AuthenticationFailed(string(msg.Payload))
	}

	var resp authResponse
	if err := cbor.Unmarshal(msg.Payload, &resp); err != nil {
		return nil, dberr.Serialization("failed to decode auth response", err)
	}
	if !resp.OK {
		if resp.Reason == "" {
			return nil, dberr.InvalidCredentials()
		}
		return nil, dberr.AuthenticationFailed(resp.Reason)
	}

	if req.Op == opLogout {
		return nil, nil
	}
	return &Token{
		UserID:    resp.UserID,
		Roles:     resp.Roles,
		ExpiresAt: time.UnixMilli(resp.ExpiresAtMs),
		Signature: resp.Signature,
	}, nil
}
