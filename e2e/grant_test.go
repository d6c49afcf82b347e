package e2e_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gbone001/hall-frontline-pass/internal/api"
	"github.com/gbone001/hall-frontline-pass/internal/factory"
	"github.com/gbone001/hall-frontline-pass/internal/services/grant"
	"github.com/gbone001/hall-frontline-pass/internal/transport/crcon"
	"github.com/gbone001/hall-frontline-pass/internal/transport/rcon"
)

const (
	adminToken = "e2e-admin-token"
	crconToken = "e2e-crcon-token"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
	tokenFile  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(projectRoot, "bin", "fpass-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/fpass")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	// Create temp token file
	tokenFile := filepath.Join(t.TempDir(), "token")

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
		tokenFile:  tokenFile,
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token-file", r.tokenFile,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func (r *cliRunner) runWithToken(token string, args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token", token,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// fakeCrcon simulates the CRCON web API the HTTP transport talks to
type fakeCrcon struct {
	server *httptest.Server

	mu      sync.Mutex
	vips    map[string]fakeVipRow
	failAll bool
}

type fakeVipRow struct {
	description string
	expiration  string
}

func newFakeCrcon(t *testing.T) *fakeCrcon {
	t.Helper()

	f := &fakeCrcon{vips: make(map[string]fakeVipRow)}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeCrcon) url() string {
	return f.server.URL
}

func (f *fakeCrcon) breakBackend() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll = true
}

func (f *fakeCrcon) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Header.Get("Authorization") != "Bearer "+crconToken {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": "invalid token"}`))
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAll {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail": "backend exploded"}`))
		return
	}

	switch r.URL.Path {
	case "/api/add_vip":
		var req struct {
			PlayerID    string `json:"player_id"`
			Description string `json:"description"`
			Expiration  string `json:"expiration"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.vips[req.PlayerID] = fakeVipRow{description: req.Description, expiration: req.Expiration}
		_, _ = w.Write([]byte(`{"result": "SUCCESS", "command": "add_vip", "failed": false}`))

	case "/api/get_vip_ids":
		type row struct {
			PlayerID   string  `json:"player_id"`
			Name       string  `json:"name"`
			Expiration *string `json:"vip_expiration"`
		}
		rows := make([]row, 0, len(f.vips))
		for id, vip := range f.vips {
			expiration := vip.expiration
			rows = append(rows, row{PlayerID: id, Name: vip.description, Expiration: &expiration})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result":  rows,
			"command": "get_vip_ids",
			"failed":  false,
		})

	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail": "unknown endpoint"}`))
	}
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	addr     string
	shutdown func()
}

func startTestServer(t *testing.T, backend *fakeCrcon) *testServer {
	t.Helper()

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	// The socket transport points at a dead port; the web API backend
	// serves every grant unless a test breaks it
	app, err := factory.New(context.Background(), factory.Config{
		Logger:      logger,
		StorageType: factory.StorageTypeMemory,
		Rcon: rcon.Config{
			Host:             "127.0.0.1",
			Port:             1,
			Password:         "unused",
			Version:          2,
			ConnectTimeout:   time.Second,
			HandshakeTimeout: time.Second,
			ResponseTimeout:  time.Second,
		},
		CrconHTTP: &crcon.Config{
			BaseURL:     backend.url(),
			BearerToken: crconToken,
			VerifyTLS:   true,
			Timeout:     5 * time.Second,
		},
		Grant: grant.Config{
			DefaultDurationHours: 24,
			AttemptTimeout:       5 * time.Second,
		},
	})
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminToken), bcrypt.MinCost)
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		AdminTokenHash:  string(hash),
		GrantService:    app.GrantService,
		RegistryService: app.RegistryService,
		Limiter:         app.Limiter,
		StorageBackend:  factory.StorageTypeMemory,
	})

	serverCfg := api.DefaultServerConfig()
	serverCfg.Host = "127.0.0.1"
	serverCfg.Port = port
	serverCfg.ShutdownTimeout = 5 * time.Second
	server := api.NewServer(router, serverCfg, logger)

	// Start server
	go func() {
		if err := server.Start(); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to be ready
	serverURL := "http://" + server.Addr()
	waitForServer(t, serverURL+"/api/v1/health")

	return &testServer{
		addr: serverURL,
		shutdown: func() {
			_ = server.Shutdown(context.Background())
			_ = app.Close()
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing
type grantResponse struct {
	RequestID     string    `json:"request_id"`
	TransportUsed string    `json:"transport_used"`
	ExpiresAtUTC  time.Time `json:"expires_at_utc"`
	RawMessage    string    `json:"raw_message"`
	StatusLines   []string  `json:"status_lines"`
}

type linkResponse struct {
	OwnerID  string `json:"owner_id"`
	PlayerID string `json:"player_id"`
}

type vipResponse struct {
	PlayerID     string     `json:"player_id"`
	Name         string     `json:"name"`
	ExpiresAtUTC *time.Time `json:"expires_at_utc"`
}

type usageResponse struct {
	OperatorID string `json:"operator_id"`
	Count      int    `json:"count"`
	Limit      int    `json:"limit"`
}

type limitsResponse struct {
	Limit        int    `json:"limit"`
	ResetWeekday string `json:"reset_weekday"`
	ResetTime    string `json:"reset_time"`
	Timezone     string `json:"timezone"`
}

type durationResponse struct {
	Hours float64 `json:"hours"`
}

type healthResponse struct {
	Status         string `json:"status"`
	StorageBackend string `json:"storage_backend"`
}

func TestCLI_HealthCheck(t *testing.T) {
	backend := newFakeCrcon(t)
	ts := startTestServer(t, backend)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("health")
	require.NoError(t, err, "output: %s", output)

	var resp healthResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "memory", resp.StorageBackend)
}

func TestCLI_GrantFlow(t *testing.T) {
	backend := newFakeCrcon(t)
	ts := startTestServer(t, backend)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)
	playerID := "76561198000000001"

	// Grant VIP, linking the player to an owner account
	output, err := cli.runWithToken(adminToken, "grant",
		"--operator", "op-1",
		"--owner", "owner-1",
		"--player", playerID,
		"--comment", "event winner")
	require.NoError(t, err, "output: %s", output)

	var granted grantResponse
	require.NoError(t, json.Unmarshal([]byte(output), &granted))
	assert.Equal(t, "HTTP", granted.TransportUsed)
	assert.NotEmpty(t, granted.RequestID)
	assert.WithinDuration(t, time.Now().UTC().Add(24*time.Hour), granted.ExpiresAtUTC, time.Minute)

	// The VIP status query round-trips through the backend
	output, err = cli.runWithToken(adminToken, "vip", playerID)
	require.NoError(t, err, "output: %s", output)

	var vip vipResponse
	require.NoError(t, json.Unmarshal([]byte(output), &vip))
	assert.Equal(t, playerID, vip.PlayerID)
	require.NotNil(t, vip.ExpiresAtUTC)
	assert.WithinDuration(t, granted.ExpiresAtUTC, *vip.ExpiresAtUTC, time.Second)

	// The link was registered
	output, err = cli.runWithToken(adminToken, "link", "get", playerID)
	require.NoError(t, err, "output: %s", output)

	var link linkResponse
	require.NoError(t, json.Unmarshal([]byte(output), &link))
	assert.Equal(t, "owner-1", link.OwnerID)

	// One quota unit was spent
	output, err = cli.runWithToken(adminToken, "usage", "op-1")
	require.NoError(t, err, "output: %s", output)

	var usage usageResponse
	require.NoError(t, json.Unmarshal([]byte(output), &usage))
	assert.Equal(t, 1, usage.Count)
	assert.Equal(t, 5, usage.Limit)

	// A different owner cannot claim the same player id
	output, err = cli.runWithToken(adminToken, "grant",
		"--operator", "op-2",
		"--owner", "owner-2",
		"--player", playerID)
	assert.Error(t, err)
	assert.Contains(t, output, "DUPLICATE_PLAYER_ID")

	// Dropping the link frees the player id for a new owner
	output, err = cli.runWithToken(adminToken, "link", "delete", "owner-1")
	require.NoError(t, err, "output: %s", output)

	output, err = cli.runWithToken(adminToken, "grant",
		"--operator", "op-2",
		"--owner", "owner-2",
		"--player", playerID)
	require.NoError(t, err, "output: %s", output)
}

func TestCLI_LimitsAndDuration(t *testing.T) {
	backend := newFakeCrcon(t)
	ts := startTestServer(t, backend)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	// Tighten the weekly limit to one grant
	output, err := cli.runWithToken(adminToken, "limits", "set", "--limit", "1")
	require.NoError(t, err, "output: %s", output)

	var limits limitsResponse
	require.NoError(t, json.Unmarshal([]byte(output), &limits))
	assert.Equal(t, 1, limits.Limit)

	output, err = cli.runWithToken(adminToken, "grant",
		"--operator", "op-1", "--player", "76561198000000010")
	require.NoError(t, err, "output: %s", output)

	output, err = cli.runWithToken(adminToken, "grant",
		"--operator", "op-1", "--player", "76561198000000011")
	assert.Error(t, err)
	assert.Contains(t, output, "RATE_LIMITED")

	// Raise the default duration and check the next grant's expiry
	output, err = cli.runWithToken(adminToken, "duration", "set", "--hours", "48")
	require.NoError(t, err, "output: %s", output)

	var duration durationResponse
	require.NoError(t, json.Unmarshal([]byte(output), &duration))
	assert.Equal(t, 48.0, duration.Hours)

	output, err = cli.runWithToken(adminToken, "grant",
		"--operator", "op-2", "--player", "76561198000000012")
	require.NoError(t, err, "output: %s", output)

	var granted grantResponse
	require.NoError(t, json.Unmarshal([]byte(output), &granted))
	assert.WithinDuration(t, time.Now().UTC().Add(48*time.Hour), granted.ExpiresAtUTC, time.Minute)
}

func TestCLI_ErrorHandling(t *testing.T) {
	backend := newFakeCrcon(t)
	ts := startTestServer(t, backend)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	// Grant without a token
	output, err := cli.run("grant", "--operator", "op-1", "--player", "76561198000000020")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "unauthorized")

	// Saving the token makes later invocations pick it up from the file
	output, err = cli.run("token", adminToken)
	require.NoError(t, err, "output: %s", output)

	output, err = cli.run("usage", "op-1")
	require.NoError(t, err, "output: %s", output)

	// Status of a player nobody granted
	output, err = cli.runWithToken(adminToken, "vip", "76561198000000021")
	assert.Error(t, err)
	assert.Contains(t, output, "VIP_NOT_FOUND")

	// Every transport down: the failure names each attempt
	backend.breakBackend()
	output, err = cli.runWithToken(adminToken, "grant",
		"--operator", "op-1", "--player", "76561198000000022")
	assert.Error(t, err)
	assert.Contains(t, output, "GRANT_FAILED")
	assert.Contains(t, output, "HTTP")
	assert.Contains(t, output, "SOCKET")
}
