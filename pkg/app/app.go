// Package app wires the portal together.
//
// One App is built per process. It owns every shared component (gateway,
// session store, event bus, notices, event channel, services) and mounts the
// dashboard board that matches the current identity:
//
//	a, err := app.Boot(ctx, true)
//	if err != nil { ... }
//	defer a.Close()
//
//	a.Routes(func(r *router.Router) { routes.RegisterWeb(r, a) })
//	return a.Serve(ctx)
package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shashiranjanraj/aquaportal/pkg/account"
	"github.com/shashiranjanraj/aquaportal/pkg/checkout"
	"github.com/shashiranjanraj/aquaportal/pkg/dashboard"
	"github.com/shashiranjanraj/aquaportal/pkg/event"
	"github.com/shashiranjanraj/aquaportal/pkg/gateway"
	"github.com/shashiranjanraj/aquaportal/pkg/geo"
	"github.com/shashiranjanraj/aquaportal/pkg/logger"
	"github.com/shashiranjanraj/aquaportal/pkg/notification"
	"github.com/shashiranjanraj/aquaportal/pkg/orders"
	"github.com/shashiranjanraj/aquaportal/pkg/router"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
	"github.com/shashiranjanraj/aquaportal/pkg/ws"
)

// Options are the inputs New needs. Boot fills them from config.
type Options struct {
	APIBaseURL    string
	EventsURL     string
	Timeout       time.Duration
	Persister     session.Persister
	Locator       geo.Locator
	RedirectDelay time.Duration

	// NoEvents keeps the event channel closed. One-shot CLI commands set it.
	NoEvents bool
}

// App is the application context.
type App struct {
	Gateway  *gateway.Client
	Session  *session.Store
	Bus      *event.Bus
	Notices  *notification.Center
	Channel  *ws.Channel
	Locator  geo.Locator
	Orders   *orders.Service
	Accounts *account.Service
	Checkout *checkout.Service

	log       *slog.Logger
	events    bool
	routesFns []func(*router.Router)
	offChange func()
	closers   []func() error

	// mountMu serializes mount; mounted is the session key of the board
	// currently mounted, or "" when anonymous.
	mountMu sync.Mutex
	mounted string

	mu    sync.Mutex
	board dashboard.Board
}

// New builds every component once. Nothing touches the network until Start.
func New(opts Options) *App {
	if opts.Persister == nil {
		opts.Persister = session.NewMemoryPersister()
	}
	if opts.Locator == nil {
		opts.Locator = geo.NewStatic(0, 0, false)
	}

	gw := gateway.New(opts.APIBaseURL, opts.Timeout)
	store := session.NewStore(session.NewRemote(gw), opts.Persister)
	gw.UseTokenSource(store)

	bus := event.NewBus()
	notices := notification.NewCenter()

	a := &App{
		Gateway:  gw,
		Session:  store,
		Bus:      bus,
		Notices:  notices,
		Channel:  ws.New(opts.EventsURL, store, bus, notices),
		Locator:  opts.Locator,
		Orders:   orders.NewService(gw),
		Accounts: account.NewService(gw, opts.Locator),
		Checkout: checkout.NewService(gw, opts.Locator, opts.RedirectDelay),
		log:      logger.Component("app"),
		events:   !opts.NoEvents,
	}
	a.offChange = store.OnChange(a.mount)
	return a
}

// Start restores the persisted session. A dropped session is logged, not
// returned: the portal simply starts anonymous.
func (a *App) Start(ctx context.Context) {
	if err := a.Session.Init(ctx); err != nil {
		a.log.Info("app: starting anonymous", "reason", err)
	}
}

// Routes registers a route callback used by Handler. Call it as often as
// needed; callbacks run in order.
func (a *App) Routes(fn func(*router.Router)) *App {
	a.routesFns = append(a.routesFns, fn)
	return a
}

// OnClose registers fn to run when the App closes.
func (a *App) OnClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close tears down the board, the event channel and any registered closers.
func (a *App) Close() {
	a.offChange()

	a.mountMu.Lock()
	a.mounted = ""
	a.swap(nil)
	a.Channel.Close()
	a.mountMu.Unlock()

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("app: close failed", "error", err)
		}
	}
}

// Board returns the mounted board, or nil when anonymous.
func (a *App) Board() dashboard.Board {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.board
}

// BoardAs returns the mounted board when it is a T.
func BoardAs[T dashboard.Board](a *App) (T, bool) {
	b, ok := a.Board().(T)
	return b, ok
}

// mount runs on every identity change: it replaces the board, (re)opens or
// closes the event channel and loads the new board. Changes can arrive out
// of order, so mount ignores its argument and applies the store's current
// state.
func (a *App) mount(*session.Identity) {
	a.mountMu.Lock()
	defer a.mountMu.Unlock()

	id := a.Session.Current()
	key := mountKey(id, a.Session.Token())
	if key == a.mounted {
		return
	}
	a.mounted = key

	if id == nil {
		a.swap(nil)
		a.Channel.Close()
		a.log.Info("app: identity cleared, board unmounted")
		return
	}

	deps := dashboard.Deps{Orders: a.Orders, Bus: a.Bus, Notices: a.Notices}

	var board dashboard.Board
	switch id.Role {
	case session.RoleUser:
		board = dashboard.NewUserBoard(deps)
	case session.RoleSupplier:
		board = dashboard.NewSupplierBoard(deps, id.ID)
	case session.RoleAdmin:
		board = dashboard.NewAdminBoard(deps)
	default:
		a.log.Warn("app: no board for role", "role", id.Role)
		a.swap(nil)
		a.Channel.Close()
		return
	}

	a.swap(board)
	if a.events {
		a.Channel.Open(id.ID)
	} else {
		a.Channel.Close()
	}
	a.log.Info("app: board mounted", "role", id.Role, "user_id", id.ID)

	if err := board.Load(context.Background()); err != nil {
		a.log.Warn("app: initial load failed", "role", id.Role, "error", err)
	}
}

func mountKey(id *session.Identity, token string) string {
	if id == nil {
		return ""
	}
	return string(id.Role) + "|" + id.ID + "|" + token
}

func (a *App) swap(next dashboard.Board) {
	a.mu.Lock()
	prev := a.board
	a.board = next
	a.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
}
