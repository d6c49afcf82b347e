package rcon

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/gbone001/hall-frontline-pass/internal/model"
)

// State tracks the connection lifecycle. Failed and Closed are terminal; a
// new Client is needed to talk to the server again.
type State int

const (
	StateDisconnected State = iota
	StateHandshaking
	StateReady
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config holds the socket transport settings
type Config struct {
	Host     string
	Port     int
	Password string
	// Version is the protocol version stamped on every request envelope
	Version          int
	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
	ResponseTimeout  time.Duration
}

// DefaultConfig returns production defaults; the password and host still
// have to be supplied
func DefaultConfig() Config {
	return Config{
		Port:             28016,
		Version:          2,
		ConnectTimeout:   10 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		ResponseTimeout:  10 * time.Second,
	}
}

// Client owns one TCP connection to the game server console. Commands are
// serialized; the protocol allows a single request in flight per
// connection.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	conn      net.Conn
	state     State
	xorKey    []byte
	authToken string
	nextID    uint32
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		logger: logger,
		state:  StateDisconnected,
		nextID: 1,
	}
}

// State reports the current connection state
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dial connects to the server, retrieves the obscuring key and logs in.
// On any failure the client lands in the Failed state and must be
// discarded.
func (c *Client) Dial(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateDisconnected {
		return fmt.Errorf("%w: dial from state %s", model.ErrTransport, c.state)
	}

	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
	dialer := net.Dialer{Timeout: c.cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		c.state = StateFailed
		if isTimeout(err) {
			return fmt.Errorf("%w: connect %s: %v", model.ErrTimeout, addr, err)
		}
		return fmt.Errorf("%w: connect %s: %v", model.ErrTransport, addr, err)
	}
	c.conn = conn
	c.state = StateHandshaking
	c.logger.Debug("console connected", "addr", addr)

	if err := c.handshakeLocked(ctx); err != nil {
		c.failLocked()
		return fmt.Errorf("%w: handshake: %w", model.ErrAuth, err)
	}
	if err := c.loginLocked(ctx); err != nil {
		c.failLocked()
		return fmt.Errorf("%w: login: %w", model.ErrAuth, err)
	}

	c.state = StateReady
	c.logger.Debug("console session ready", "addr", addr)
	return nil
}

// handshakeLocked performs the ServerConnect exchange. The reply travels in
// plaintext and carries the base64 obscuring key for the rest of the
// session.
func (c *Client) handshakeLocked(ctx context.Context) error {
	resp, err := c.roundTripLocked(ctx, "ServerConnect", "", "", c.cfg.HandshakeTimeout)
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("server refused connect: %d %s", resp.StatusCode, resp.StatusMessage)
	}
	if resp.ContentBody == "" {
		return fmt.Errorf("%w: connect reply carries no key", model.ErrProtocol)
	}
	key, err := base64.StdEncoding.DecodeString(resp.ContentBody)
	if err != nil {
		return fmt.Errorf("%w: malformed key material: %v", model.ErrProtocol, err)
	}
	c.xorKey = key
	return nil
}

// loginLocked exchanges the password for the session auth token. It runs
// obscured with the key taken during the handshake.
func (c *Client) loginLocked(ctx context.Context) error {
	resp, err := c.roundTripLocked(ctx, "Login", "", c.cfg.Password, c.cfg.HandshakeTimeout)
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("server refused credentials: %d %s", resp.StatusCode, resp.StatusMessage)
	}
	if resp.ContentBody == "" {
		return fmt.Errorf("%w: login reply carries no token", model.ErrProtocol)
	}
	c.authToken = resp.ContentBody
	return nil
}

// Execute sends one named command and returns the decoded reply. Only a
// Ready client accepts commands; transport failures move it to Failed
// while a well-formed error reply leaves it usable.
func (c *Client) Execute(ctx context.Context, name string, content any) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateReady:
	case StateClosed:
		return nil, fmt.Errorf("%w: connection closed", model.ErrTransport)
	default:
		return nil, fmt.Errorf("%w: connection not ready (%s)", model.ErrTransport, c.state)
	}

	body, err := marshalContent(content)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s content: %v", model.ErrProtocol, name, err)
	}

	resp, err := c.roundTripLocked(ctx, name, c.authToken, body, c.cfg.ResponseTimeout)
	if err != nil {
		c.failLocked()
		return nil, err
	}
	if resp.StatusCode != 200 {
		return resp, fmt.Errorf("%w: %s rejected: %d %s", model.ErrTransport, name, resp.StatusCode, resp.StatusMessage)
	}
	return resp, nil
}

// roundTripLocked writes one frame and reads one frame under a shared
// deadline. Obscuring uses whatever key is currently held, so the
// pre-handshake exchange passes through untouched.
func (c *Client) roundTripLocked(ctx context.Context, name, token, content string, timeout time.Duration) (*Response, error) {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("%w: set deadline: %v", model.ErrTransport, err)
	}

	req := Request{
		AuthToken:   token,
		Version:     c.cfg.Version,
		Name:        name,
		ContentBody: content,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s request: %v", model.ErrProtocol, name, err)
	}

	id := c.nextID
	c.nextID++
	if err := EncodeFrame(c.conn, id, ObscureBytes(payload, c.xorKey)); err != nil {
		return nil, err
	}

	respID, respBody, err := DecodeFrame(c.conn)
	if err != nil {
		return nil, err
	}
	if respID != id {
		c.logger.Debug("response id mismatch", "sent", id, "received", respID)
	}
	return DecodeResponse(ObscureBytes(respBody, c.xorKey))
}

// Close tears the connection down. The client is terminal afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return nil
	}
	c.state = StateClosed
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) failLocked() {
	c.state = StateFailed
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func marshalContent(content any) (string, error) {
	switch v := content.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
