package orders

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shashiranjanraj/aquaportal/pkg/collection"
	"github.com/shashiranjanraj/aquaportal/pkg/gateway"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
)

// Service is the backend order API.
type Service struct {
	gw *gateway.Client
}

func NewService(gw *gateway.Client) *Service {
	return &Service{gw: gw}
}

type orderList struct {
	Orders []Order `json:"orders"`
}

func nonNil(list []Order) []Order {
	if list == nil {
		return []Order{}
	}
	return list
}

// ListMine returns the logged-in user's orders.
func (s *Service) ListMine(ctx context.Context) ([]Order, error) {
	var out orderList
	if err := s.gw.Get("/orders").Decode(&out).Send(ctx); err != nil {
		return nil, err
	}
	return nonNil(out.Orders), nil
}

// Cancel deletes o after checking CanCancel locally.
func (s *Service) Cancel(ctx context.Context, o Order) error {
	if !CanCancel(o) {
		return fmt.Errorf("%w: status %s, payment %s", ErrNotCancellable, o.Status, o.Payment())
	}
	return s.gw.Delete("/orders/" + url.PathEscape(o.ID)).
		Route("/orders/:id").
		Send(ctx)
}

// SupplierOrders returns orders visible to the logged-in supplier.
func (s *Service) SupplierOrders(ctx context.Context) ([]Order, error) {
	var out orderList
	if err := s.gw.Get("/suppliers/orders").Decode(&out).Send(ctx); err != nil {
		return nil, err
	}
	return nonNil(out.Orders), nil
}

// Respond accepts or rejects an order on behalf of the logged-in supplier.
func (s *Service) Respond(ctx context.Context, id string, action Action) error {
	if action != ActionAccept && action != ActionReject {
		return fmt.Errorf("orders: invalid response %q", action)
	}
	return s.gw.Post("/suppliers/respond/" + url.PathEscape(id)).
		Route("/suppliers/respond/:id").
		Body(map[string]string{"action": string(action)}).
		Send(ctx)
}

// Deliver marks an accepted order as delivered.
func (s *Service) Deliver(ctx context.Context, id string) error {
	return s.gw.Put("/suppliers/deliver/" + url.PathEscape(id)).
		Route("/suppliers/deliver/:id").
		Send(ctx)
}

// AdminUsers lists every account.
func (s *Service) AdminUsers(ctx context.Context) ([]session.Identity, error) {
	var out []session.Identity
	if err := s.gw.Get("/admin/users").Decode(&out).Send(ctx); err != nil {
		return nil, err
	}
	if out == nil {
		out = []session.Identity{}
	}
	return out, nil
}

// AdminOrders lists every order.
func (s *Service) AdminOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := s.gw.Get("/admin/orders").Decode(&out).Send(ctx); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

// ByRole filters accounts to one role.
func ByRole(users []session.Identity, role session.Role) []session.Identity {
	return collection.Filter(users, func(u session.Identity) bool { return u.Role == role })
}
