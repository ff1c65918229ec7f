package dashboard

import (
	"context"
	"errors"

	"github.com/shashiranjanraj/aquaportal/pkg/event"
	"github.com/shashiranjanraj/aquaportal/pkg/gateway"
	"github.com/shashiranjanraj/aquaportal/pkg/orders"
)

const refreshFailed = "Could not refresh orders."

// UserBoard is a customer's view of their own orders.
type UserBoard struct {
	base
	feed *Feed[orders.Order]
}

// NewUserBoard subscribes to order events. Call Load to fetch.
func NewUserBoard(deps Deps) *UserBoard {
	b := &UserBoard{feed: NewFeed[orders.Order]("user_orders", deps.Orders.ListMine)}
	b.init(deps, "user")

	b.listen(event.OrderAccepted, b.onEvent("Order %s accepted by a supplier!", true))
	b.listen(event.OrderDelivered, b.onEvent("Order %s has been delivered!", true))
	b.listen(event.OrderCancelled, b.onEvent("Order %s was cancelled.", false))
	return b
}

// onEvent shows a notice and re-fetches, whether or not the order is in the
// current collection.
func (b *UserBoard) onEvent(format string, success bool) event.Handler {
	return func(ev event.Event) {
		id := event.OrderID(ev.Data)
		if success {
			b.deps.Notices.Success(format, id)
		} else {
			b.deps.Notices.Info(format, id)
		}
		b.background(func(ctx context.Context) { _ = b.Refresh(ctx) })
	}
}

func (b *UserBoard) Load(ctx context.Context) error { return b.Refresh(ctx) }

// Refresh re-fetches the collection.
func (b *UserBoard) Refresh(ctx context.Context) error {
	return refresh(ctx, b.feed, b.deps.Notices, refreshFailed)
}

func (b *UserBoard) Orders() []orders.Order  { return b.feed.Items() }
func (b *UserBoard) Active() []orders.Order  { return orders.Active(b.feed.Items()) }
func (b *UserBoard) History() []orders.Order { return orders.History(b.feed.Items()) }
func (b *UserBoard) Loaded() bool            { return b.feed.Loaded() }

// Cancel cancels one of the user's orders and re-fetches on success.
func (b *UserBoard) Cancel(ctx context.Context, id string) error {
	o, ok := findOrder(b.feed, id)
	if !ok {
		return ErrUnknownOrder
	}

	err := b.deps.Orders.Cancel(ctx, o)
	switch {
	case errors.Is(err, orders.ErrNotCancellable):
		return err
	case err != nil:
		var gwErr *gateway.Error
		detail := err.Error()
		if errors.As(err, &gwErr) && gwErr.Message != "" {
			detail = gwErr.Message
		}
		b.deps.Notices.Error("Failed to cancel order: %s", detail)
		return err
	}

	b.deps.Notices.Success("Order cancelled successfully")
	return b.Refresh(ctx)
}

// Close unsubscribes, cancels in-flight fetches and waits for background
// refreshes.
func (b *UserBoard) Close() {
	b.close()
	b.feed.Close()
	b.wg.Wait()
}
