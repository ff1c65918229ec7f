package dashboard

import (
	"context"
	"errors"

	"github.com/shashiranjanraj/aquaportal/pkg/event"
	"github.com/shashiranjanraj/aquaportal/pkg/orders"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
)

// AdminBoard shows every account and every order.
type AdminBoard struct {
	base
	users  *Feed[session.Identity]
	orders *Feed[orders.Order]
}

func NewAdminBoard(deps Deps) *AdminBoard {
	b := &AdminBoard{
		users:  NewFeed[session.Identity]("admin_users", deps.Orders.AdminUsers),
		orders: NewFeed[orders.Order]("admin_orders", deps.Orders.AdminOrders),
	}
	b.init(deps, "admin")

	for _, name := range []string{event.OrderAccepted, event.OrderDelivered, event.OrderCancelled, event.NewOrder} {
		b.listen(name, func(event.Event) {
			b.background(func(ctx context.Context) { _ = b.RefreshOrders(ctx) })
		})
	}
	return b
}

// Load fetches users and orders. Both are attempted even if one fails.
func (b *AdminBoard) Load(ctx context.Context) error {
	errUsers := refresh(ctx, b.users, b.deps.Notices, "Failed to fetch users")
	errOrders := b.RefreshOrders(ctx)
	return errors.Join(errUsers, errOrders)
}

func (b *AdminBoard) RefreshOrders(ctx context.Context) error {
	return refresh(ctx, b.orders, b.deps.Notices, "Failed to fetch orders")
}

func (b *AdminBoard) Users() []session.Identity {
	return orders.ByRole(b.users.Items(), session.RoleUser)
}

func (b *AdminBoard) Suppliers() []session.Identity {
	return orders.ByRole(b.users.Items(), session.RoleSupplier)
}

func (b *AdminBoard) Orders() []orders.Order    { return b.orders.Items() }
func (b *AdminBoard) Completed() []orders.Order { return orders.Completed(b.orders.Items()) }
func (b *AdminBoard) Cancelled() []orders.Order { return orders.Cancelled(b.orders.Items()) }
func (b *AdminBoard) Loaded() bool              { return b.orders.Loaded() }

func (b *AdminBoard) Close() {
	b.close()
	b.users.Close()
	b.orders.Close()
	b.wg.Wait()
}
