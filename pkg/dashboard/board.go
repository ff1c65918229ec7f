package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shashiranjanraj/aquaportal/pkg/collection"
	"github.com/shashiranjanraj/aquaportal/pkg/event"
	"github.com/shashiranjanraj/aquaportal/pkg/gateway"
	"github.com/shashiranjanraj/aquaportal/pkg/logger"
	"github.com/shashiranjanraj/aquaportal/pkg/notification"
	"github.com/shashiranjanraj/aquaportal/pkg/orders"
)

// ErrUnknownOrder is returned by an action on an order the board does not
// currently show.
var ErrUnknownOrder = errors.New("dashboard: order not in current view")

// ErrNotOffered is returned when the action is not offered for the order's
// current state.
var ErrNotOffered = errors.New("dashboard: action not available for this order")

// Deps are the shared components every board uses.
type Deps struct {
	Orders  *orders.Service
	Bus     *event.Bus
	Notices *notification.Center
}

// Board is what the application mounts for the logged-in role.
type Board interface {
	Load(ctx context.Context) error
	Close()
}

// base carries the event subscriptions and background refreshes a board owns.
type base struct {
	deps Deps
	log  *slog.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	unsubs []func()
	closed bool
}

func (b *base) init(deps Deps, name string) {
	b.deps = deps
	b.log = logger.Component("dashboard").With("board", name)
}

func (b *base) listen(name string, fn event.Handler) {
	off := b.deps.Bus.Listen(name, fn)
	b.mu.Lock()
	b.unsubs = append(b.unsubs, off)
	b.mu.Unlock()
}

// background runs fn off the event channel's reader goroutine.
func (b *base) background(fn func(ctx context.Context)) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		fn(context.Background())
	}()
}

func (b *base) close() {
	b.mu.Lock()
	b.closed = true
	unsubs := b.unsubs
	b.unsubs = nil
	b.mu.Unlock()

	for _, off := range unsubs {
		off()
	}
}

// RejectedMsg replaces a board's failure notice when the backend refused the
// session token.
const RejectedMsg = "Your session was rejected. Please log in again."

// refresh runs feed.Refresh and turns a real failure into an error notice.
// Stale and closed outcomes are silent.
func refresh[T any](ctx context.Context, feed *Feed[T], notices *notification.Center, failMsg string) error {
	err := feed.Refresh(ctx)
	if err == nil || errors.Is(err, ErrStale) || errors.Is(err, ErrClosed) {
		return nil
	}
	if gateway.IsUnauthorized(err) {
		failMsg = RejectedMsg
	}
	notices.Error("%s", failMsg)
	return err
}

func findOrder(feed *Feed[orders.Order], id string) (orders.Order, bool) {
	return collection.First(feed.Items(), func(o orders.Order) bool { return o.ID == id })
}
