package crcon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gbone001/hall-frontline-pass/internal/model"
	"github.com/gbone001/hall-frontline-pass/internal/testutil"
)

// fakeCRCON scripts a minimal CRCON API: login mints tokens and the
// command endpoints accept whichever tokens are currently valid
type fakeCRCON struct {
	t *testing.T

	mu          sync.Mutex
	validTokens map[string]bool
	nextToken   int

	loginCalls  atomic.Int32
	addVipCalls atomic.Int32

	vipRows []map[string]any
}

func newFakeCRCON(t *testing.T) *fakeCRCON {
	return &fakeCRCON{t: t, validTokens: map[string]bool{}}
}

func (f *fakeCRCON) mintToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextToken++
	token := fmt.Sprintf("session-%d", f.nextToken)
	f.validTokens[token] = true
	return token
}

func (f *fakeCRCON) allow(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validTokens[token] = true
}

func (f *fakeCRCON) revoke(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.validTokens, token)
}

func (f *fakeCRCON) authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	if len(header) < 8 || header[:7] != "Bearer " {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validTokens[header[7:]]
}

func (f *fakeCRCON) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		f.loginCalls.Add(1)

		var creds map[string]string
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["username"] != "admin" || creds["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]any{"token": f.mintToken()})
	})

	mux.HandleFunc("POST /api/add_vip", func(w http.ResponseWriter, r *http.Request) {
		f.addVipCalls.Add(1)

		if !f.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]any{"result": true, "failed": false})
	})

	mux.HandleFunc("GET /api/get_vip_ids", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		rows := f.vipRows
		f.mu.Unlock()
		writeJSON(w, map[string]any{"result": rows, "failed": false})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, serverURL string, mutate func(*Config)) *Client {
	t.Helper()

	cfg := DefaultConfig()
	cfg.BaseURL = serverURL
	cfg.Username = "admin"
	cfg.Password = "secret"
	if mutate != nil {
		mutate(&cfg)
	}
	return NewClient(cfg, testutil.NopLogger())
}

func testOrder(playerID string) model.GrantOrder {
	return model.GrantOrder{
		PlayerID:     model.PlayerID(playerID),
		ExpiresAtUTC: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Description:  "FPass grant",
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://host:8010", "http://host:8010/api"},
		{"http://host:8010/", "http://host:8010/api"},
		{"http://host:8010/api", "http://host:8010/api"},
		{"http://host:8010/api/", "http://host:8010/api"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, normalizeBaseURL(tc.in), tc.in)
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"token key", `{"token":"abc"}`, "abc"},
		{"jwt key", `{"jwt":"abc"}`, "abc"},
		{"access_token key", `{"access_token":"abc"}`, "abc"},
		{"accessToken key", `{"accessToken":"abc"}`, "abc"},
		{"nested under result", `{"result":{"token":"abc"},"failed":false}`, "abc"},
		{"nested under data", `{"data":{"jwt":"abc"}}`, "abc"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := extractToken([]byte(tc.body))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("no token anywhere", func(t *testing.T) {
		_, err := extractToken([]byte(`{"result":true}`))
		assert.Error(t, err)
	})
}

func TestGrantVipLogsInAndGrants(t *testing.T) {
	fake := newFakeCRCON(t)
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := newTestClient(t, server.URL, nil)

	msg, err := client.GrantVip(context.Background(), testOrder("765611"))
	require.NoError(t, err)
	assert.Contains(t, msg, "765611")
	assert.Equal(t, int32(1), fake.loginCalls.Load())
	assert.Equal(t, int32(1), fake.addVipCalls.Load())
}

func TestGrantVipReusesCachedToken(t *testing.T) {
	fake := newFakeCRCON(t)
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := newTestClient(t, server.URL, nil)

	_, err := client.GrantVip(context.Background(), testOrder("p1"))
	require.NoError(t, err)
	_, err = client.GrantVip(context.Background(), testOrder("p2"))
	require.NoError(t, err)

	assert.Equal(t, int32(1), fake.loginCalls.Load())
	assert.Equal(t, int32(2), fake.addVipCalls.Load())
}

func TestGrantVipRetriesExactlyOnceOn401(t *testing.T) {
	fake := newFakeCRCON(t)
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := newTestClient(t, server.URL, nil)

	// Establish a session, then expire it server-side
	_, err := client.GrantVip(context.Background(), testOrder("warmup"))
	require.NoError(t, err)
	fake.revoke("session-1")
	fake.loginCalls.Store(0)
	fake.addVipCalls.Store(0)

	_, err = client.GrantVip(context.Background(), testOrder("p1"))
	require.NoError(t, err)

	assert.Equal(t, int32(1), fake.loginCalls.Load(), "exactly one re-login")
	assert.Equal(t, int32(2), fake.addVipCalls.Load(), "rejected attempt plus one retry")
}

func TestGrantVipGivesUpAfterSecond401(t *testing.T) {
	fake := newFakeCRCON(t)
	var addVipCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		fake.loginCalls.Add(1)
		writeJSON(w, map[string]any{"token": "always-rejected"})
	})
	mux.HandleFunc("POST /api/add_vip", func(w http.ResponseWriter, r *http.Request) {
		addVipCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL, nil)

	_, err := client.GrantVip(context.Background(), testOrder("p1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrAuth)
	assert.Equal(t, int32(2), addVipCalls.Load(), "no retry storm")
}

func TestConcurrentGrantsShareOneLogin(t *testing.T) {
	fake := newFakeCRCON(t)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		fake.loginCalls.Add(1)
		time.Sleep(50 * time.Millisecond)
		writeJSON(w, map[string]any{"token": fake.mintToken()})
	})
	mux.HandleFunc("POST /api/add_vip", func(w http.ResponseWriter, r *http.Request) {
		if !fake.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]any{"result": true, "failed": false})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL, nil)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.GrantVip(context.Background(), testOrder(fmt.Sprintf("p%d", i)))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "grant %d", i)
	}
	assert.Equal(t, int32(1), fake.loginCalls.Load(), "login shared across concurrent grants")
}

func TestStaticBearerPreferredOverLogin(t *testing.T) {
	fake := newFakeCRCON(t)
	fake.allow("static-token")
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := newTestClient(t, server.URL, func(cfg *Config) {
		cfg.BearerToken = "static-token"
	})

	_, err := client.GrantVip(context.Background(), testOrder("p1"))
	require.NoError(t, err)
	assert.Equal(t, int32(0), fake.loginCalls.Load(), "static bearer needs no login")
}

func TestRejectedBearerFallsBackToLoginAndStays(t *testing.T) {
	fake := newFakeCRCON(t)
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := newTestClient(t, server.URL, func(cfg *Config) {
		cfg.BearerToken = "revoked-token"
	})

	_, err := client.GrantVip(context.Background(), testOrder("p1"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.loginCalls.Load())
	assert.Equal(t, int32(2), fake.addVipCalls.Load(), "bearer attempt plus session retry")

	// The failed bearer stays out of rotation
	_, err = client.GrantVip(context.Background(), testOrder("p2"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.loginCalls.Load())
	assert.Equal(t, int32(3), fake.addVipCalls.Load())
}

func TestGrantVipSendsExpirationField(t *testing.T) {
	captured := make(chan addVipRequest, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"token": "tok"})
	})
	mux.HandleFunc("POST /api/add_vip", func(w http.ResponseWriter, r *http.Request) {
		var req addVipRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		captured <- req
		writeJSON(w, map[string]any{"result": true, "failed": false})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL, nil)

	order := testOrder("765611")
	order.PlayerName = "Sgt. Pepper"
	_, err := client.GrantVip(context.Background(), order)
	require.NoError(t, err)

	req := <-captured
	assert.Equal(t, "765611", req.PlayerID)
	assert.Equal(t, "FPass grant", req.Description)
	assert.Equal(t, "2026-03-14T12:00:00Z", req.Expiration)
}

func TestGrantVipFailedEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"token": "tok"})
	})
	mux.HandleFunc("POST /api/add_vip", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"result": nil, "failed": true, "error": "player not found"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL, nil)

	_, err := client.GrantVip(context.Background(), testOrder("nobody"))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrTransport)
	assert.Contains(t, err.Error(), "player not found")
}

func TestQueryVip(t *testing.T) {
	fake := newFakeCRCON(t)
	fake.vipRows = []map[string]any{
		{"player_id": "111", "name": "Alpha", "vip_expiration": "2026-03-14T12:00:00Z"},
		{"player_id": "222", "name": "Bravo", "vip_expiration": nil},
	}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := newTestClient(t, server.URL, nil)

	t.Run("found with expiry", func(t *testing.T) {
		status, err := client.QueryVip(context.Background(), "111")
		require.NoError(t, err)
		require.NotNil(t, status)
		assert.Equal(t, model.PlayerID("111"), status.PlayerID)
		assert.Equal(t, "Alpha", status.Name)
		require.NotNil(t, status.ExpiresAtUTC)
		assert.Equal(t, time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC), *status.ExpiresAtUTC)
	})

	t.Run("found without expiry", func(t *testing.T) {
		status, err := client.QueryVip(context.Background(), "222")
		require.NoError(t, err)
		require.NotNil(t, status)
		assert.Nil(t, status.ExpiresAtUTC)
	})

	t.Run("not found", func(t *testing.T) {
		status, err := client.QueryVip(context.Background(), "999")
		require.NoError(t, err)
		assert.Nil(t, status)
	})
}

func TestParseExpiration(t *testing.T) {
	ts, err := parseExpiration("2026-03-14T12:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), ts)

	ts, err = parseExpiration("2026-03-14T12:00:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC), ts)

	_, err = parseExpiration("not a timestamp")
	assert.Error(t, err)
}

func TestRequestTimeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		writeJSON(w, map[string]any{"token": "tok"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL, func(cfg *Config) {
		cfg.Timeout = 50 * time.Millisecond
	})

	_, err := client.GrantVip(context.Background(), testOrder("p1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrTimeout)
}

func TestTLSVerification(t *testing.T) {
	fake := newFakeCRCON(t)
	server := httptest.NewTLSServer(fake.handler())
	defer server.Close()

	t.Run("self-signed rejected by default", func(t *testing.T) {
		client := newTestClient(t, server.URL, nil)
		_, err := client.GrantVip(context.Background(), testOrder("p1"))
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrTransport)
	})

	t.Run("verification can be disabled", func(t *testing.T) {
		client := newTestClient(t, server.URL, func(cfg *Config) {
			cfg.VerifyTLS = false
		})
		_, err := client.GrantVip(context.Background(), testOrder("p1"))
		require.NoError(t, err)
	})
}
