package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/aquaportal/pkg/event"
	"github.com/shashiranjanraj/aquaportal/pkg/gateway"
	"github.com/shashiranjanraj/aquaportal/pkg/notification"
	"github.com/shashiranjanraj/aquaportal/pkg/orders"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
)

// ─── Feed ────────────────────────────────────────────────────────────────────

func TestFeedDiscardsOlderResultThatLandsLast(t *testing.T) {
	release := map[int]chan struct{}{1: make(chan struct{}), 2: make(chan struct{})}
	var mu sync.Mutex
	call := 0

	feed := NewFeed[string]("test", func(ctx context.Context) ([]string, error) {
		mu.Lock()
		call++
		n := call
		mu.Unlock()
		<-release[n]
		if n == 1 {
			return []string{"old"}, nil
		}
		return []string{"new"}, nil
	})

	errs := make(chan error, 2)
	go func() { errs <- feed.Refresh(context.Background()) }()
	require.Eventually(t, func() bool { mu.Lock(); defer mu.Unlock(); return call == 1 }, time.Second, time.Millisecond)
	go func() { errs <- feed.Refresh(context.Background()) }()
	require.Eventually(t, func() bool { mu.Lock(); defer mu.Unlock(); return call == 2 }, time.Second, time.Millisecond)

	close(release[2])
	require.NoError(t, <-errs)
	close(release[1])
	assert.ErrorIs(t, <-errs, ErrStale)

	assert.Equal(t, []string{"new"}, feed.Items())
	assert.EqualValues(t, 2, feed.Generation())
}

func TestFeedAppliesInOrderCompletion(t *testing.T) {
	n := 0
	feed := NewFeed[int]("test", func(context.Context) ([]int, error) { n++; return []int{n}, nil })

	require.NoError(t, feed.Refresh(context.Background()))
	require.NoError(t, feed.Refresh(context.Background()))
	assert.Equal(t, []int{2}, feed.Items())
	assert.True(t, feed.Loaded())
}

func TestFeedCloseCancelsInFlight(t *testing.T) {
	started := make(chan struct{})
	feed := NewFeed[int]("test", func(ctx context.Context) ([]int, error) {
		close(started)
		<-ctx.Done()
		return []int{1}, ctx.Err()
	})

	done := make(chan error, 1)
	go func() { done <- feed.Refresh(context.Background()) }()
	<-started
	feed.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("in-flight fetch was not cancelled")
	}
	assert.Empty(t, feed.Items())
	assert.ErrorIs(t, feed.Refresh(context.Background()), ErrClosed)
}

func TestFeedFailureKeepsCollection(t *testing.T) {
	fail := false
	feed := NewFeed[int]("test", func(context.Context) ([]int, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return []int{7}, nil
	})
	require.NoError(t, feed.Refresh(context.Background()))
	fail = true
	assert.Error(t, feed.Refresh(context.Background()))
	assert.Equal(t, []int{7}, feed.Items())
}

// ─── fake backend ────────────────────────────────────────────────────────────

type backend struct {
	mu       sync.Mutex
	orders   []orders.Order
	users    []session.Identity
	fetches  map[string]int
	failNext int // status for the next GET, 0 for none
}

func (b *backend) fetchCount(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetches[path]
}

func (b *backend) setStatus(id string, st orders.Status, supplier string) {
	for i := range b.orders {
		if b.orders[i].ID == id {
			b.orders[i].Status = st
			if supplier != "" {
				b.orders[i].Supplier = &orders.Party{ID: supplier}
			}
		}
	}
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r.Method == http.MethodGet {
		b.fetches[r.URL.Path]++
		if st := b.failNext; st != 0 {
			b.failNext = 0
			w.WriteHeader(st)
			return
		}
	}

	id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	switch {
	case r.Method == http.MethodGet && (r.URL.Path == "/orders" || r.URL.Path == "/suppliers/orders"):
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"orders": b.orders})
	case r.URL.Path == "/admin/orders":
		_ = json.NewEncoder(w).Encode(b.orders)
	case r.URL.Path == "/admin/users":
		_ = json.NewEncoder(w).Encode(b.users)
	case r.Method == http.MethodDelete:
		b.setStatus(id, orders.StatusCancelled, "")
	case strings.HasPrefix(r.URL.Path, "/suppliers/respond/"):
		var body struct{ Action string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Action == "accept" {
			b.setStatus(id, orders.StatusAccepted, "s1")
		} else {
			b.setStatus(id, orders.StatusRejected, "")
		}
	case strings.HasPrefix(r.URL.Path, "/suppliers/deliver/"):
		b.setStatus(id, orders.StatusDelivered, "")
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func setup(t *testing.T, seed []orders.Order) (*backend, Deps) {
	t.Helper()
	be := &backend{orders: seed, fetches: map[string]int{}}
	srv := httptest.NewServer(be)
	t.Cleanup(srv.Close)

	return be, Deps{
		Orders:  orders.NewService(gateway.New(srv.URL, time.Second)),
		Bus:     event.NewBus(),
		Notices: notification.NewCenter(),
	}
}

func lastNotice(c *notification.Center) notification.Notice {
	r := c.Recent()
	if len(r) == 0 {
		return notification.Notice{}
	}
	return r[len(r)-1]
}

func ids(list []orders.Order) []string {
	out := make([]string, len(list))
	for i, o := range list {
		out[i] = o.ID
	}
	return out
}

// ─── UserBoard ───────────────────────────────────────────────────────────────

func TestUserBoardViews(t *testing.T) {
	_, deps := setup(t, []orders.Order{
		{ID: "p", Status: orders.StatusPending},
		{ID: "a", Status: orders.StatusAccepted},
		{ID: "d", Status: orders.StatusDelivered},
		{ID: "c", Status: orders.StatusCancelled},
	})
	b := NewUserBoard(deps)
	defer b.Close()

	require.NoError(t, b.Load(context.Background()))
	assert.Equal(t, []string{"p", "a"}, ids(b.Active()))
	assert.Equal(t, []string{"d", "c"}, ids(b.History()))
}

func TestUserBoardEventForUnknownOrderStillRefetches(t *testing.T) {
	be, deps := setup(t, []orders.Order{{ID: "o1", Status: orders.StatusAccepted}})
	b := NewUserBoard(deps)
	defer b.Close()
	require.NoError(t, b.Load(context.Background()))

	assert.NotPanics(t, func() {
		deps.Bus.Fire(event.Event{Name: event.OrderDelivered, Data: json.RawMessage(`"not-here"`)})
	})
	assert.Eventually(t, func() bool { return be.fetchCount("/orders") == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Order not-here has been delivered!", lastNotice(deps.Notices).Message)
}

func TestUserBoardCancel(t *testing.T) {
	be, deps := setup(t, []orders.Order{
		{ID: "o1", Status: orders.StatusPending},
		{ID: "o2", Status: orders.StatusPending, PaymentStatus: orders.PaymentPaid},
	})
	b := NewUserBoard(deps)
	defer b.Close()
	require.NoError(t, b.Load(context.Background()))

	assert.ErrorIs(t, b.Cancel(context.Background(), "o2"), orders.ErrNotCancellable)
	assert.ErrorIs(t, b.Cancel(context.Background(), "zz"), ErrUnknownOrder)

	require.NoError(t, b.Cancel(context.Background(), "o1"))
	assert.Equal(t, "Order cancelled successfully", lastNotice(deps.Notices).Message)
	assert.Equal(t, 2, be.fetchCount("/orders"))
	assert.Equal(t, []string{"o1"}, ids(b.History()))
}

func TestUserBoardFetchFailure(t *testing.T) {
	be, deps := setup(t, []orders.Order{{ID: "o1", Status: orders.StatusPending}})
	b := NewUserBoard(deps)
	defer b.Close()
	require.NoError(t, b.Load(context.Background()))

	be.mu.Lock()
	be.failNext = http.StatusInternalServerError
	be.mu.Unlock()

	assert.Error(t, b.Refresh(context.Background()))
	n := lastNotice(deps.Notices)
	assert.Equal(t, notification.LevelError, n.Level)
	assert.Equal(t, "Could not refresh orders.", n.Message)
	assert.Equal(t, []string{"o1"}, ids(b.Orders()))
}

func TestUserBoardRejectedTokenNotice(t *testing.T) {
	be, deps := setup(t, []orders.Order{{ID: "o1", Status: orders.StatusPending}})
	b := NewUserBoard(deps)
	defer b.Close()
	require.NoError(t, b.Load(context.Background()))

	be.mu.Lock()
	be.failNext = http.StatusUnauthorized
	be.mu.Unlock()

	err := b.Refresh(context.Background())
	assert.True(t, gateway.IsUnauthorized(err))
	assert.Equal(t, RejectedMsg, lastNotice(deps.Notices).Message)
	assert.Equal(t, []string{"o1"}, ids(b.Orders()))
}

func TestClosedBoardIgnoresEvents(t *testing.T) {
	be, deps := setup(t, nil)
	b := NewUserBoard(deps)
	require.NoError(t, b.Load(context.Background()))
	b.Close()

	deps.Bus.Fire(event.Event{Name: event.OrderAccepted, Data: json.RawMessage(`"o1"`)})
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, be.fetchCount("/orders"))
}

// ─── SupplierBoard ───────────────────────────────────────────────────────────

func newOrderEvent(t *testing.T, o orders.Order) event.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{"order": o})
	require.NoError(t, err)
	return event.Event{Name: event.NewOrder, Data: raw}
}

func TestSupplierNewOrderPrependsPaidOnly(t *testing.T) {
	_, deps := setup(t, []orders.Order{{ID: "old", Status: orders.StatusPaid}})
	b := NewSupplierBoard(deps, "s1")
	defer b.Close()
	require.NoError(t, b.Load(context.Background()))

	deps.Bus.Fire(newOrderEvent(t, orders.Order{ID: "n1", Status: orders.StatusPaid, Quantity: 20}))
	deps.Bus.Fire(newOrderEvent(t, orders.Order{ID: "n1", Status: orders.StatusPaid, Quantity: 20}))
	deps.Bus.Fire(newOrderEvent(t, orders.Order{ID: "n2", Status: orders.StatusPending}))
	deps.Bus.Fire(event.Event{Name: event.NewOrder, Data: json.RawMessage(`{}`)})

	assert.Equal(t, []string{"n1", "old"}, ids(b.Incoming()))
	assert.Equal(t, "New order received: 20 litres", lastNotice(deps.Notices).Message)
}

func TestSupplierAcceptMovesOrderToActive(t *testing.T) {
	be, deps := setup(t, nil)
	b := NewSupplierBoard(deps, "s1")
	defer b.Close()
	require.NoError(t, b.Load(context.Background()))
	assert.Empty(t, b.Incoming())

	paid := orders.Order{ID: "o9", Status: orders.StatusPaid, Quantity: 10}
	be.mu.Lock()
	be.orders = append(be.orders, paid)
	be.mu.Unlock()

	deps.Bus.Fire(newOrderEvent(t, paid))
	require.Equal(t, []string{"o9"}, ids(b.Incoming()))
	assert.Equal(t, []orders.Action{orders.ActionAccept, orders.ActionReject}, b.Actions(b.Incoming()[0]))

	require.NoError(t, b.Accept(context.Background(), "o9"))
	assert.Empty(t, b.Incoming())
	assert.Equal(t, []string{"o9"}, ids(b.Active()))
	assert.Equal(t, "Order successfully accepted", lastNotice(deps.Notices).Message)

	assert.ErrorIs(t, b.Accept(context.Background(), "o9"), ErrNotOffered)

	require.NoError(t, b.Deliver(context.Background(), "o9"))
	assert.Equal(t, []string{"o9"}, ids(b.Delivered()))
	assert.Equal(t, "Order successfully Delivered", lastNotice(deps.Notices).Message)
}

func TestSupplierRejectAndCancelEvent(t *testing.T) {
	be, deps := setup(t, []orders.Order{{ID: "o1", Status: orders.StatusPaid}})
	b := NewSupplierBoard(deps, "s1")
	defer b.Close()
	require.NoError(t, b.Load(context.Background()))

	require.NoError(t, b.Reject(context.Background(), "o1"))
	assert.Equal(t, "You rejected order o1", lastNotice(deps.Notices).Message)
	assert.Empty(t, b.Incoming())

	deps.Bus.Fire(event.Event{Name: event.OrderCancelled, Data: json.RawMessage(`{"orderId":"o1"}`)})
	assert.Eventually(t, func() bool { return be.fetchCount("/suppliers/orders") == 3 }, time.Second, 5*time.Millisecond)
}

func TestSupplierDeliverRequiresAssignment(t *testing.T) {
	_, deps := setup(t, []orders.Order{
		{ID: "mine", Status: orders.StatusAccepted, Supplier: &orders.Party{ID: "s1"}},
		{ID: "theirs", Status: orders.StatusAccepted, Supplier: &orders.Party{ID: "s2"}},
	})
	b := NewSupplierBoard(deps, "s1")
	defer b.Close()
	require.NoError(t, b.Load(context.Background()))

	assert.ErrorIs(t, b.Deliver(context.Background(), "theirs"), ErrNotOffered)
	assert.ErrorIs(t, b.Deliver(context.Background(), "nope"), ErrUnknownOrder)
	assert.NoError(t, b.Deliver(context.Background(), "mine"))
}

// ─── AdminBoard ──────────────────────────────────────────────────────────────

func TestAdminBoard(t *testing.T) {
	be, deps := setup(t, []orders.Order{
		{ID: "p", Status: orders.StatusPending},
		{ID: "d", Status: orders.StatusDelivered},
		{ID: "c", Status: orders.StatusCancelled},
	})
	be.users = []session.Identity{
		{ID: "u1", Role: session.RoleUser},
		{ID: "s1", Role: session.RoleSupplier},
		{ID: "a1", Role: session.RoleAdmin},
	}
	b := NewAdminBoard(deps)
	defer b.Close()

	require.NoError(t, b.Load(context.Background()))
	assert.Len(t, b.Users(), 1)
	assert.Len(t, b.Suppliers(), 1)
	assert.Equal(t, []string{"d"}, ids(b.Completed()))
	assert.Equal(t, []string{"c"}, ids(b.Cancelled()))

	deps.Bus.Fire(event.Event{Name: event.OrderDelivered, Data: json.RawMessage(`"d"`)})
	assert.Eventually(t, func() bool { return be.fetchCount("/admin/orders") == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, be.fetchCount("/admin/users"))
}
