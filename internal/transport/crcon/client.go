package crcon

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gbone001/hall-frontline-pass/internal/model"
)

// Config holds the CRCON HTTP transport settings
type Config struct {
	// BaseURL may be given with or without the trailing /api segment
	BaseURL string
	// BearerToken is a static API token. When set it is preferred over
	// username/password until the server rejects it.
	BearerToken string
	Username    string
	Password    string
	VerifyTLS   bool
	Timeout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		VerifyTLS: true,
		Timeout:   10 * time.Second,
	}
}

// Client talks to a CRCON instance over its JSON API. A session token
// obtained by login is cached across calls; on a 401 the token is dropped
// and the call re-logs in and retries exactly once.
type Client struct {
	cfg        Config
	logger     *slog.Logger
	httpClient *http.Client

	mu           sync.Mutex
	token        string
	bearerFailed bool

	flight singleflight.Group
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	cfg.BaseURL = normalizeBaseURL(cfg.BaseURL)
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if !cfg.VerifyTLS {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		cfg:        cfg,
		logger:     logger,
		httpClient: httpClient,
	}
}

// normalizeBaseURL strips trailing slashes and ensures the /api segment
func normalizeBaseURL(u string) string {
	u = strings.TrimRight(u, "/")
	if !strings.HasSuffix(u, "/api") {
		u += "/api"
	}
	return u
}

func (c *Client) Kind() model.TransportKind {
	return model.TransportHTTP
}

// apiEnvelope is the standard CRCON response wrapper
type apiEnvelope struct {
	Result  json.RawMessage `json:"result"`
	Command string          `json:"command"`
	Failed  bool            `json:"failed"`
	Error   string          `json:"error"`
}

type addVipRequest struct {
	PlayerID    string `json:"player_id"`
	Description string `json:"description"`
	Expiration  string `json:"expiration,omitempty"`
}

// GrantVip issues add_vip for the order. The expiry travels in the
// dedicated expiration field, not in the description.
func (c *Client) GrantVip(ctx context.Context, order model.GrantOrder) (string, error) {
	desc := order.Description
	if desc == "" {
		desc = order.PlayerName
	}
	if desc == "" {
		desc = "VIP"
	}

	req := addVipRequest{
		PlayerID:    string(order.PlayerID),
		Description: desc,
	}
	if !order.ExpiresAtUTC.IsZero() {
		req.Expiration = order.ExpiresAtUTC.UTC().Format(time.RFC3339)
	}

	var env apiEnvelope
	if err := c.doAuthed(ctx, http.MethodPost, "/add_vip", req, &env); err != nil {
		return "", err
	}
	if env.Failed {
		return "", fmt.Errorf("%w: add_vip failed: %s", model.ErrTransport, env.Error)
	}

	c.logger.Info("crcon vip granted", "player_id", order.PlayerID, "expires_at", order.ExpiresAtUTC)
	return fmt.Sprintf("VIP added for %s", order.PlayerID), nil
}

// vipEntry is one row of the get_vip_ids result
type vipEntry struct {
	PlayerID   string  `json:"player_id"`
	Name       string  `json:"name"`
	Expiration *string `json:"vip_expiration"`
}

// QueryVip looks the player up in the server's VIP list. A player without
// VIP yields (nil, nil).
func (c *Client) QueryVip(ctx context.Context, playerID model.PlayerID) (*model.VipStatus, error) {
	var env apiEnvelope
	if err := c.doAuthed(ctx, http.MethodGet, "/get_vip_ids", nil, &env); err != nil {
		return nil, err
	}
	if env.Failed {
		return nil, fmt.Errorf("%w: get_vip_ids failed: %s", model.ErrTransport, env.Error)
	}

	var entries []vipEntry
	if err := json.Unmarshal(env.Result, &entries); err != nil {
		return nil, fmt.Errorf("%w: malformed get_vip_ids result: %v", model.ErrTransport, err)
	}

	for _, entry := range entries {
		if entry.PlayerID != string(playerID) {
			continue
		}
		status := &model.VipStatus{
			PlayerID: playerID,
			Name:     entry.Name,
		}
		if entry.Expiration != nil && *entry.Expiration != "" {
			expiry, err := parseExpiration(*entry.Expiration)
			if err != nil {
				return nil, fmt.Errorf("%w: malformed vip expiration %q: %v", model.ErrTransport, *entry.Expiration, err)
			}
			status.ExpiresAtUTC = &expiry
		}
		return status, nil
	}
	return nil, nil
}

// parseExpiration accepts RFC3339 as well as the zone-less ISO form some
// CRCON builds emit, which is taken as UTC
func parseExpiration(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

// doAuthed performs one authenticated API call. A 401 invalidates the
// token that was used, acquires a fresh session token and retries exactly
// once; a second 401 surfaces as an auth failure.
func (c *Client) doAuthed(ctx context.Context, method, path string, body, out any) error {
	token, isBearer, err := c.currentToken(ctx)
	if err != nil {
		return err
	}

	status, raw, err := c.do(ctx, method, path, body, token)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		c.invalidate(token, isBearer)
		c.logger.Warn("crcon rejected token, re-authenticating", "bearer", isBearer)

		token, err = c.loginOnce(ctx)
		if err != nil {
			return err
		}
		status, raw, err = c.do(ctx, method, path, body, token)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return fmt.Errorf("%w: credentials rejected after re-login", model.ErrAuth)
		}
	}

	if status >= 400 {
		return fmt.Errorf("%w: %s %s: HTTP %d: %s", model.ErrTransport, method, path, status, snippet(raw))
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: parse %s response: %v", model.ErrTransport, path, err)
		}
	}
	return nil
}

// currentToken picks the static bearer while it is still trusted, then the
// cached session token, and logs in only when neither is available
func (c *Client) currentToken(ctx context.Context) (string, bool, error) {
	c.mu.Lock()
	if c.cfg.BearerToken != "" && !c.bearerFailed {
		c.mu.Unlock()
		return c.cfg.BearerToken, true, nil
	}
	cached := c.token
	c.mu.Unlock()

	if cached != "" {
		return cached, false, nil
	}
	token, err := c.loginOnce(ctx)
	return token, false, err
}

func (c *Client) invalidate(token string, isBearer bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if isBearer {
		c.bearerFailed = true
		return
	}
	if c.token == token {
		c.token = ""
	}
}

// loginOnce collapses concurrent login needs into a single request
func (c *Client) loginOnce(ctx context.Context) (string, error) {
	v, err, _ := c.flight.Do("login", func() (any, error) {
		return c.login(ctx)
	})
	if err != nil {
		return "", err
	}
	token := v.(string)

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return token, nil
}

func (c *Client) login(ctx context.Context) (string, error) {
	if c.cfg.Username == "" || c.cfg.Password == "" {
		return "", fmt.Errorf("%w: no credentials configured", model.ErrAuth)
	}

	body := map[string]string{
		"username": c.cfg.Username,
		"password": c.cfg.Password,
	}
	status, raw, err := c.do(ctx, http.MethodPost, "/login", body, "")
	if err != nil {
		return "", err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return "", fmt.Errorf("%w: login rejected: HTTP %d", model.ErrAuth, status)
	}
	if status >= 400 {
		return "", fmt.Errorf("%w: login: HTTP %d: %s", model.ErrTransport, status, snippet(raw))
	}

	token, err := extractToken(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrAuth, err)
	}
	c.logger.Debug("crcon session established", "user", c.cfg.Username)
	return token, nil
}

// extractToken digs the session token out of the login response. Different
// CRCON builds use different key names and some nest the payload under
// result or data.
func extractToken(body []byte) (string, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("malformed login response: %v", err)
	}

	if token := tokenFrom(payload); token != "" {
		return token, nil
	}
	for _, nest := range []string{"result", "data"} {
		raw, ok := payload[nest]
		if !ok {
			continue
		}
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(raw, &inner); err != nil {
			continue
		}
		if token := tokenFrom(inner); token != "" {
			return token, nil
		}
	}
	return "", fmt.Errorf("login response carries no token")
}

func tokenFrom(m map[string]json.RawMessage) string {
	for _, key := range []string{"token", "jwt", "access_token", "accessToken"} {
		raw, ok := m[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

// do performs one HTTP exchange and returns the status plus raw body
func (c *Client) do(ctx context.Context, method, path string, body any, token string) (int, []byte, error) {
	url := c.cfg.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: marshal %s request: %v", model.ErrTransport, path, err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: build %s request: %v", model.ErrTransport, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return 0, nil, fmt.Errorf("%w: %s %s: %v", model.ErrTimeout, method, url, err)
		}
		return 0, nil, fmt.Errorf("%w: %s %s: %v", model.ErrTransport, method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read %s response: %v", model.ErrTransport, path, err)
	}
	return resp.StatusCode, raw, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
