package app

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/aquaportal/pkg/dashboard"
	"github.com/shashiranjanraj/aquaportal/pkg/event"
	"github.com/shashiranjanraj/aquaportal/pkg/notification"
	"github.com/shashiranjanraj/aquaportal/pkg/orders"
	"github.com/shashiranjanraj/aquaportal/pkg/rbac"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
	"github.com/shashiranjanraj/aquaportal/pkg/testkit"
	"github.com/shashiranjanraj/aquaportal/pkg/ws"
)

var (
	mira = testkit.Account{
		Identity: session.Identity{ID: "u1", Name: "Mira", Email: "mira@example.com", Role: session.RoleUser},
		Password: "pw", Token: "tok-mira",
	}
	ravi = testkit.Account{
		Identity: session.Identity{ID: "s1", Name: "Ravi", Email: "ravi@example.com", Role: session.RoleSupplier},
		Password: "pw", Token: "tok-ravi",
	}
	ada = testkit.Account{
		Identity: session.Identity{ID: "a1", Name: "Ada", Email: "ada@example.com", Role: session.RoleAdmin},
		Password: "pw", Token: "tok-ada",
	}
)

func newApp(t *testing.T, p *testkit.Portal, persist session.Persister) *App {
	t.Helper()
	a := New(Options{
		APIBaseURL: p.APIURL(),
		EventsURL:  p.EventsURL(),
		Timeout:    2 * time.Second,
		Persister:  persist,
	})
	a.Channel.SetBackoff(10*time.Millisecond, 50*time.Millisecond)
	t.Cleanup(a.Close)
	return a
}

func newPortal(t *testing.T) *testkit.Portal {
	p := testkit.NewPortal(t)
	p.AddAccount(mira)
	p.AddAccount(ravi)
	p.AddAccount(ada)
	return p
}

func hasNotice(c *notification.Center, msg string) bool {
	for _, n := range c.Recent() {
		if n.Message == msg {
			return true
		}
	}
	return false
}

func TestSupplierFlow(t *testing.T) {
	p := newPortal(t)
	a := newApp(t, p, nil)
	ctx := context.Background()

	_, err := a.Session.Login(ctx, ravi.Identity.Email, "pw", "supplier")
	require.NoError(t, err)

	board, ok := BoardAs[*dashboard.SupplierBoard](a)
	require.True(t, ok, "supplier board mounted on login")
	assert.True(t, board.Loaded())
	assert.Equal(t, "s1", board.SupplierID())

	assert.True(t, rbac.Decide(a.Session.Current(), "/supplier-dashboard").Allow)
	d := rbac.Decide(a.Session.Current(), "/user-dashboard")
	assert.Equal(t, "/", d.Redirect)
	assert.True(t, d.Mismatch)

	require.Eventually(t, func() bool { return p.Connected(ravi.Token) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return len(p.Frames()) >= 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "identify", p.Frames()[0].Name)

	paid := orders.Order{ID: "o9", Quantity: 20, Status: orders.StatusPaid, User: orders.Party{ID: "u1"}}
	p.AddOrder(paid)
	p.Push(ravi.Token, event.NewOrder, map[string]any{"order": paid})

	require.Eventually(t, func() bool { return len(board.Incoming()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, hasNotice(a.Notices, "New order received: 20 litres"))

	require.NoError(t, board.Accept(ctx, "o9"))
	assert.Empty(t, board.Incoming())
	require.Len(t, board.Active(), 1)
	assert.Equal(t, "s1", board.Active()[0].SupplierID())

	require.NoError(t, board.Deliver(ctx, "o9"))
	assert.Len(t, board.Delivered(), 1)

	a.Session.Logout(ctx)
	assert.Nil(t, a.Board())
	assert.False(t, a.Channel.Connected())
	require.Eventually(t, func() bool { return p.Connected(ravi.Token) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestIdentityRacesSettleOnCurrentSession(t *testing.T) {
	p := newPortal(t)
	a := newApp(t, p, nil)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = a.Session.Login(ctx, mira.Identity.Email, "pw", "user")
		}()
		go func() {
			defer wg.Done()
			a.Session.Logout(ctx)
		}()
		wg.Wait()

		if a.Session.Current() == nil {
			assert.Nil(t, a.Board(), "round %d", i)
		} else {
			_, ok := BoardAs[*dashboard.UserBoard](a)
			assert.True(t, ok, "round %d", i)
		}
	}

	a.Session.Logout(ctx)
	assert.Nil(t, a.Board())
	require.Eventually(t, func() bool { return p.Connected(mira.Token) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRoleMismatchMountsNothing(t *testing.T) {
	p := newPortal(t)
	a := newApp(t, p, nil)

	_, err := a.Session.Login(context.Background(), mira.Identity.Email, "pw", "supplier")
	require.ErrorIs(t, err, session.ErrRoleMismatch)
	assert.EqualError(t, err, "You are not authorized to login as supplier")
	assert.Nil(t, a.Session.Current())
	assert.Nil(t, a.Board())
	assert.Equal(t, 0, p.Connected(mira.Token))
}

func TestUserEventsRefetch(t *testing.T) {
	p := newPortal(t)
	p.AddOrder(orders.Order{ID: "o1", Quantity: 10, Status: orders.StatusPaid, User: orders.Party{ID: "u1"}})
	a := newApp(t, p, nil)

	_, err := a.Session.Login(context.Background(), mira.Identity.Email, "pw", "user")
	require.NoError(t, err)
	board, ok := BoardAs[*dashboard.UserBoard](a)
	require.True(t, ok)
	require.Len(t, board.Active(), 1)
	require.Eventually(t, func() bool { return p.Connected(mira.Token) == 1 }, 2*time.Second, 10*time.Millisecond)

	before := p.Calls("GET /orders")
	p.Push(mira.Token, event.OrderAccepted, "o1")

	require.Eventually(t, func() bool { return p.Calls("GET /orders") > before }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, hasNotice(a.Notices, "Order o1 accepted by a supplier!"))
}

func TestForcedLogoutOnChannelAuthFailure(t *testing.T) {
	p := newPortal(t)
	a := newApp(t, p, nil)

	_, err := a.Session.Login(context.Background(), mira.Identity.Email, "pw", "user")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return p.Connected(mira.Token) == 1 }, 2*time.Second, 10*time.Millisecond)

	p.Push(mira.Token, "connect_error", map[string]string{"message": "Authentication error: jwt expired"})

	require.Eventually(t, func() bool { return a.Session.Current() == nil }, 2*time.Second, 10*time.Millisecond)
	assert.Nil(t, a.Board())
	assert.True(t, hasNotice(a.Notices, ws.ExpiredMessage))
}

func TestStartRestoresPersistedSession(t *testing.T) {
	p := newPortal(t)
	persist := session.NewMemoryPersister()
	ident := ada.Identity
	require.NoError(t, persist.Save(context.Background(), session.Snapshot{Token: ada.Token, Identity: &ident}))

	a := newApp(t, p, persist)
	a.Start(context.Background())

	board, ok := BoardAs[*dashboard.AdminBoard](a)
	require.True(t, ok)
	assert.Len(t, board.Users(), 1)
	assert.Len(t, board.Suppliers(), 1)
	assert.Equal(t, 1, p.Calls("GET /auth"))
}

func TestStartFailsClosedOnRevokedCredential(t *testing.T) {
	p := newPortal(t)
	p.Revoke(ada.Token)
	persist := session.NewMemoryPersister()
	ident := ada.Identity
	require.NoError(t, persist.Save(context.Background(), session.Snapshot{Token: ada.Token, Identity: &ident}))

	a := newApp(t, p, persist)
	a.Start(context.Background())

	assert.Nil(t, a.Session.Current())
	assert.Nil(t, a.Board())
	snap, err := persist.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestHandlerServesMetrics(t *testing.T) {
	a := New(Options{APIBaseURL: "http://127.0.0.1:1", EventsURL: "ws://127.0.0.1:1/ws"})
	t.Cleanup(a.Close)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "aquaportal_")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestWebUIBindsLoopbackByDefault(t *testing.T) {
	host, port, err := net.SplitHostPort(Addr())
	require.NoError(t, err)
	assert.True(t, net.ParseIP(host).IsLoopback(), "web UI bound to %q", host)
	assert.NotEmpty(t, port)
}
