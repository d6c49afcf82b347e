package factory

import (
	"context"
	"sync"
	"time"

	"github.com/gbone001/hall-frontline-pass/internal/dependencies/clock"
	"github.com/gbone001/hall-frontline-pass/internal/model"
	"github.com/gbone001/hall-frontline-pass/internal/services/grant"
	"github.com/gbone001/hall-frontline-pass/internal/services/ratelimit"
	"github.com/gbone001/hall-frontline-pass/internal/storage/memory"
	"github.com/gbone001/hall-frontline-pass/internal/testutil"
)

// ScriptedTransport is a grant.Transport whose outcome tests control
// directly. It records every order it receives.
type ScriptedTransport struct {
	kind model.TransportKind

	mu     sync.Mutex
	reply  string
	err    error
	orders []model.GrantOrder
}

func (t *ScriptedTransport) Kind() model.TransportKind {
	return t.kind
}

func (t *ScriptedTransport) GrantVip(_ context.Context, order model.GrantOrder) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.orders = append(t.orders, order)
	if t.err != nil {
		return "", t.err
	}
	return t.reply, nil
}

// Fail makes every subsequent grant attempt return err
func (t *ScriptedTransport) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
}

// Succeed makes every subsequent grant attempt return reply
func (t *ScriptedTransport) Succeed(reply string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = nil
	t.reply = reply
}

// Orders returns a copy of the orders received so far
func (t *ScriptedTransport) Orders() []model.GrantOrder {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]model.GrantOrder(nil), t.orders...)
}

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *clock.Mock
	HTTP      *ScriptedTransport
	Socket    *ScriptedTransport
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := clock.NewMock(time.Date(2026, 3, 18, 15, 0, 0, 0, time.UTC))

	httpTransport := &ScriptedTransport{kind: model.TransportHTTP, reply: "VIP added"}
	socketTransport := &ScriptedTransport{kind: model.TransportSocket, reply: "OK"}

	app := newWithDependencies(
		store,
		mockClock,
		[]grant.Transport{httpTransport, socketTransport},
		nil,
		grant.DefaultConfig(),
		ratelimit.DefaultConfig(),
		testutil.NopLogger(),
	)

	return &TestApp{
		App:       app,
		MockClock: mockClock,
		HTTP:      httpTransport,
		Socket:    socketTransport,
	}
}

// Restart rebuilds the App over the same storage and clock, the way a
// process restart would, and restores persisted limiter state
func (t *TestApp) Restart(ctx context.Context) error {
	app := newWithDependencies(
		t.Storage,
		t.MockClock,
		[]grant.Transport{t.HTTP, t.Socket},
		nil,
		grant.DefaultConfig(),
		ratelimit.DefaultConfig(),
		testutil.NopLogger(),
	)
	if err := app.Limiter.RestoreState(ctx); err != nil {
		return err
	}
	t.App = app
	return nil
}
