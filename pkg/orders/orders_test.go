package orders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/aquaportal/pkg/gateway"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
)

func ids(list []Order) []string {
	out := make([]string, len(list))
	for i, o := range list {
		out[i] = o.ID
	}
	return out
}

func TestUserViewsPartitionWithoutOverlap(t *testing.T) {
	all := []Order{
		{ID: "p", Status: StatusPending},
		{ID: "a", Status: StatusAccepted},
		{ID: "d", Status: StatusDelivered},
		{ID: "c", Status: StatusCancelled},
	}

	assert.Equal(t, []string{"p", "a"}, ids(Active(all)))
	assert.Equal(t, []string{"d", "c"}, ids(History(all)))

	// Every status lands in exactly one user view.
	for _, st := range Statuses {
		o := []Order{{ID: "x", Status: st}}
		assert.Equal(t, 1, len(Active(o))+len(History(o)), "status %s", st)
	}
}

func TestSupplierAndAdminViews(t *testing.T) {
	all := []Order{
		{ID: "pending", Status: StatusPending},
		{ID: "paid", Status: StatusPaid},
		{ID: "accepted", Status: StatusAccepted},
		{ID: "delivered", Status: StatusDelivered},
		{ID: "rejected", Status: StatusRejected},
		{ID: "cancelled", Status: StatusCancelled},
	}

	assert.Equal(t, []string{"paid"}, ids(Incoming(all)))
	assert.Equal(t, []string{"accepted"}, ids(Accepted(all)))
	assert.Equal(t, []string{"delivered"}, ids(Delivered(all)))
	assert.Equal(t, []string{"paid", "accepted", "delivered", "rejected"}, ids(Completed(all)))
	assert.Equal(t, []string{"cancelled"}, ids(Cancelled(all)))
	assert.NotNil(t, Incoming(nil))
}

func TestCanCancel(t *testing.T) {
	for _, st := range Statuses {
		want := st == StatusPending || st == StatusAccepted || st == StatusRejected
		assert.Equal(t, want, CanCancel(Order{Status: st}), "status %s unpaid", st)
		assert.False(t, CanCancel(Order{Status: st, PaymentStatus: PaymentPaid}), "status %s paid", st)
	}
	assert.Equal(t, []Action{ActionCancel}, UserActions(Order{Status: StatusPending}))
	assert.Empty(t, UserActions(Order{Status: StatusDelivered}))
}

func TestSupplierPolicy(t *testing.T) {
	me := &Party{ID: "s1"}
	other := &Party{ID: "s2"}

	assert.True(t, CanRespond(Order{Status: StatusPaid}))
	assert.True(t, CanRespond(Order{Status: StatusPending}))
	assert.False(t, CanRespond(Order{Status: StatusPaid, Supplier: other}))
	assert.False(t, CanRespond(Order{Status: StatusAccepted}))

	assert.True(t, CanDeliver(Order{Status: StatusAccepted, Supplier: me}, "s1"))
	assert.False(t, CanDeliver(Order{Status: StatusAccepted, Supplier: other}, "s1"))
	assert.False(t, CanDeliver(Order{Status: StatusDelivered, Supplier: me}, "s1"))
	assert.False(t, CanDeliver(Order{Status: StatusAccepted}, ""))

	assert.Equal(t, []Action{ActionAccept, ActionReject}, SupplierActions(Order{Status: StatusPaid}, "s1"))
	assert.Equal(t, []Action{ActionDeliver}, SupplierActions(Order{Status: StatusAccepted, Supplier: me}, "s1"))
}

func TestDecodeBackendShapes(t *testing.T) {
	raw := `[
		{"_id":"o1","quantity":20,"status":"Paid","userId":"u1","supplierId":null,"createdAt":"2024-05-01T10:00:00Z"},
		{"id":"o2","quantity":5,"status":"Accepted","paymentStatus":"paid",
		 "userId":{"_id":"u2","name":"Mira","email":"m@x.io"},
		 "supplierId":{"_id":"s1","name":"Ravi"},"location":{"lat":12.9,"lng":77.6}}
	]`
	var list []Order
	require.NoError(t, json.Unmarshal([]byte(raw), &list))
	require.Len(t, list, 2)

	assert.Equal(t, "o1", list[0].ID)
	assert.Equal(t, "u1", list[0].User.ID)
	assert.Nil(t, list[0].Supplier)
	assert.Equal(t, "Not assigned", list[0].Supplier.Label())
	assert.Equal(t, "unpaid", list[0].Payment())
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), list[0].CreatedAt)

	assert.Equal(t, "o2", list[1].ID)
	assert.Equal(t, "Mira", list[1].User.Label())
	assert.Equal(t, "s1", list[1].SupplierID())
	assert.True(t, list[1].Paid())
	require.NotNil(t, list[1].Location)
	assert.InDelta(t, 77.6, list[1].Location.Lng, 1e-9)
}

func TestFindView(t *testing.T) {
	assert.Equal(t, "history", FindView(UserViews, "history").Key)
	assert.Equal(t, "incoming", FindView(SupplierViews, "nope").Key)
}

func newService(t *testing.T, h http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewService(gateway.New(srv.URL, time.Second))
}

func TestServiceEndpoints(t *testing.T) {
	var calls []string
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/orders", "/suppliers/orders":
			_, _ = w.Write([]byte(`{"orders":[{"_id":"o1","status":"Pending"}]}`))
		case "/admin/orders":
			_, _ = w.Write([]byte(`[{"_id":"o1","status":"Cancelled"}]`))
		case "/admin/users":
			_, _ = w.Write([]byte(`[{"_id":"u1","role":"user"},{"_id":"s1","role":"supplier"}]`))
		case "/suppliers/respond/o1":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "reject", body["action"])
		}
	})
	ctx := context.Background()

	mine, err := svc.ListMine(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"o1"}, ids(mine))

	_, err = svc.SupplierOrders(ctx)
	require.NoError(t, err)

	all, err := svc.AdminOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, all[0].Status)

	users, err := svc.AdminUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, ByRole(users, session.RoleSupplier), 1)

	require.NoError(t, svc.Cancel(ctx, Order{ID: "o1", Status: StatusPending}))
	require.NoError(t, svc.Respond(ctx, "o1", ActionReject))
	require.NoError(t, svc.Deliver(ctx, "o1"))

	assert.Equal(t, []string{
		"GET /orders", "GET /suppliers/orders", "GET /admin/orders", "GET /admin/users",
		"DELETE /orders/o1", "POST /suppliers/respond/o1", "PUT /suppliers/deliver/o1",
	}, calls)
}

func TestCancelRefusedLocally(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
	})

	err := svc.Cancel(context.Background(), Order{ID: "o1", Status: StatusPending, PaymentStatus: PaymentPaid})
	assert.True(t, errors.Is(err, ErrNotCancellable))

	err = svc.Respond(context.Background(), "o1", ActionDeliver)
	assert.Error(t, err)
}
