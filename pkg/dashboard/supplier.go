package dashboard

import (
	"context"
	"encoding/json"

	"github.com/shashiranjanraj/aquaportal/pkg/event"
	"github.com/shashiranjanraj/aquaportal/pkg/orders"
)

// SupplierBoard is a supplier's incoming/accepted/delivered work queue.
type SupplierBoard struct {
	base
	supplierID string
	feed       *Feed[orders.Order]
}

// NewSupplierBoard subscribes to order events for supplierID.
func NewSupplierBoard(deps Deps, supplierID string) *SupplierBoard {
	b := &SupplierBoard{
		supplierID: supplierID,
		feed:       NewFeed[orders.Order]("supplier_orders", deps.Orders.SupplierOrders),
	}
	b.init(deps, "supplier")

	b.listen(event.NewOrder, b.onNewOrder)
	b.listen(event.OrderCancelled, func(ev event.Event) {
		b.deps.Notices.Info("Order %s was cancelled.", event.OrderID(ev.Data))
		b.background(func(ctx context.Context) { _ = b.Refresh(ctx) })
	})
	return b
}

// onNewOrder prepends a paid order to the collection so it shows in Incoming
// before the next fetch. Orders already present are not duplicated.
func (b *SupplierBoard) onNewOrder(ev event.Event) {
	var payload struct {
		Order *orders.Order `json:"order"`
	}
	if err := json.Unmarshal(ev.Data, &payload); err != nil || payload.Order == nil {
		b.log.Debug("dashboard: newOrder without order payload", "error", err)
		return
	}
	o := *payload.Order
	if o.Status != orders.StatusPaid {
		return
	}

	added := false
	b.feed.Update(func(cur []orders.Order) []orders.Order {
		for _, c := range cur {
			if c.ID == o.ID {
				return cur
			}
		}
		added = true
		return append([]orders.Order{o}, cur...)
	})
	if added {
		b.deps.Notices.Info("New order received: %d litres", o.Quantity)
	}
}

func (b *SupplierBoard) Load(ctx context.Context) error { return b.Refresh(ctx) }

// Refresh re-fetches the collection.
func (b *SupplierBoard) Refresh(ctx context.Context) error {
	return refresh(ctx, b.feed, b.deps.Notices, "Failed to fetch orders")
}

func (b *SupplierBoard) Orders() []orders.Order    { return b.feed.Items() }
func (b *SupplierBoard) Incoming() []orders.Order  { return orders.Incoming(b.feed.Items()) }
func (b *SupplierBoard) Active() []orders.Order    { return orders.Accepted(b.feed.Items()) }
func (b *SupplierBoard) Delivered() []orders.Order { return orders.Delivered(b.feed.Items()) }
func (b *SupplierBoard) Loaded() bool              { return b.feed.Loaded() }
func (b *SupplierBoard) SupplierID() string        { return b.supplierID }

// Actions lists what this supplier may do with o.
func (b *SupplierBoard) Actions(o orders.Order) []orders.Action {
	return orders.SupplierActions(o, b.supplierID)
}

// Accept takes an incoming order.
func (b *SupplierBoard) Accept(ctx context.Context, id string) error {
	return b.respond(ctx, id, orders.ActionAccept)
}

// Reject declines an incoming order.
func (b *SupplierBoard) Reject(ctx context.Context, id string) error {
	return b.respond(ctx, id, orders.ActionReject)
}

func (b *SupplierBoard) respond(ctx context.Context, id string, action orders.Action) error {
	if o, ok := findOrder(b.feed, id); ok && !orders.CanRespond(o) {
		return ErrNotOffered
	}

	if err := b.deps.Orders.Respond(ctx, id, action); err != nil {
		b.deps.Notices.Error("Failed to %s order", action)
		return err
	}

	if action == orders.ActionAccept {
		b.deps.Notices.Success("Order successfully accepted")
	} else {
		b.deps.Notices.Info("You rejected order %s", id)
	}
	return b.Refresh(ctx)
}

// Deliver marks an accepted order delivered.
func (b *SupplierBoard) Deliver(ctx context.Context, id string) error {
	o, ok := findOrder(b.feed, id)
	if !ok {
		return ErrUnknownOrder
	}
	if !orders.CanDeliver(o, b.supplierID) {
		return ErrNotOffered
	}

	if err := b.deps.Orders.Deliver(ctx, id); err != nil {
		b.deps.Notices.Error("Failed to mark as delivered")
		return err
	}
	b.deps.Notices.Success("Order successfully Delivered")
	return b.Refresh(ctx)
}

func (b *SupplierBoard) Close() {
	b.close()
	b.feed.Close()
	b.wg.Wait()
}
