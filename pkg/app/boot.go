package app

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/aquaportal/config"
	"github.com/shashiranjanraj/aquaportal/pkg/cache"
	"github.com/shashiranjanraj/aquaportal/pkg/geo"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
)

// Boot loads config, builds the App and restores the saved session. events
// opens the push channel for the restored identity.
func Boot(ctx context.Context, events bool) (*App, error) {
	if err := config.Load(); err != nil {
		return nil, err
	}

	persister, closeFn, err := persisterFromConfig(ctx)
	if err != nil {
		return nil, err
	}

	a := New(Options{
		APIBaseURL:    config.APIBaseURL(),
		EventsURL:     config.EventsURL(),
		Timeout:       config.HTTPTimeout(),
		Persister:     persister,
		Locator:       geo.NewStatic(config.Coordinates()),
		RedirectDelay: config.PaymentRedirectDelay(),
		NoEvents:      !events,
	})
	if closeFn != nil {
		a.OnClose(closeFn)
	}

	a.Start(ctx)
	return a, nil
}

// persisterFromConfig picks the session driver. The returned func, when not
// nil, releases the driver's connection.
func persisterFromConfig(ctx context.Context) (session.Persister, func() error, error) {
	switch config.SessionDriver() {
	case "redis":
		store, err := cache.Connect(ctx, config.RedisAddr(), config.RedisPassword())
		if err != nil {
			return nil, nil, fmt.Errorf("app: session driver redis: %w", err)
		}
		return session.NewCachePersister(store, config.SessionProfile()), store.Close, nil
	default:
		return session.NewFilePersister(config.SessionFile()), nil, nil
	}
}
