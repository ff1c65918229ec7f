// Package checkout starts the hosted payment flow and handles the return
// from it.
//
// Start asks the backend for a provider-hosted checkout URL; the caller sends
// the user there. After payment the provider redirects back to
// /payment-success?session_id=..., and Return waits briefly before pointing
// at the user dashboard. The client does not verify the payment itself; the
// backend promotes the order to Paid and the event channel reports it.
package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/shashiranjanraj/aquaportal/pkg/gateway"
	"github.com/shashiranjanraj/aquaportal/pkg/geo"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
	"github.com/shashiranjanraj/aquaportal/pkg/validate"
)

var (
	ErrMissingSession = errors.New("Missing session ID.")
	ErrQuantity       = errors.New("Quantity must be at least 1")
	ErrLocation       = errors.New("Location is required")
	ErrNoURL          = errors.New("checkout: backend returned no checkout url")
)

const (
	startFailed = "Failed to create payment session"

	// ReturnMessage is shown while the return page waits.
	ReturnMessage = "Payment verified successfully!"
	// DashboardRoute is where Return sends the user.
	DashboardRoute = "/user-dashboard"
)

// Form is the order a user wants to pay for.
type Form struct {
	Quantity int    `json:"quantity" validate:"gte=1"`
	Address  string `json:"address"`
	DateTime string `json:"dateTime"`
}

type sessionBody struct {
	Quantity  int       `json:"quantity"`
	Address   string    `json:"address"`
	Location  geo.Point `json:"location"`
	DateTime  string    `json:"dateTime"`
	UserID    string    `json:"userId"`
	UserEmail string    `json:"userEmail"`
}

// Service drives checkout.
type Service struct {
	gw      *gateway.Client
	locator geo.Locator
	delay   time.Duration
	sleep   func(context.Context, time.Duration) error
}

// NewService returns a checkout service. delay is how long Return waits.
func NewService(gw *gateway.Client, locator geo.Locator, delay time.Duration) *Service {
	return &Service{gw: gw, locator: locator, delay: delay, sleep: sleepCtx}
}

// Start creates a checkout session for who and returns the provider URL.
func (s *Service) Start(ctx context.Context, who session.Identity, f Form) (string, error) {
	p, err := s.locator.Locate(ctx)
	if err != nil {
		return "", ErrLocation
	}
	if validate.HasErrors(validate.Struct(f)) {
		return "", ErrQuantity
	}

	body := sessionBody{
		Quantity:  f.Quantity,
		Address:   f.Address,
		Location:  p,
		DateTime:  f.DateTime,
		UserID:    who.ID,
		UserEmail: who.Email,
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := s.gw.Post("/payments/create-checkout-session").Body(body).Decode(&out).Send(ctx); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", ErrNoURL
	}
	return out.URL, nil
}

// Return handles the provider's redirect back. It waits for the configured
// delay and returns the route to continue to.
func (s *Service) Return(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrMissingSession
	}
	if err := s.sleep(ctx, s.delay); err != nil {
		return "", err
	}
	return DashboardRoute, nil
}

// Delay is the wait Return applies; the web page uses it for its refresh.
func (s *Service) Delay() time.Duration { return s.delay }

// Message returns the text shown for a Start failure.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrLocation), errors.Is(err, ErrQuantity):
		return err.Error()
	}
	return gateway.Message(err, startFailed)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
