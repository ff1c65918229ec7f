package app

// server.go bridges App to internal/server, which owns the listener.

import (
	"context"
	"net"

	"github.com/shashiranjanraj/aquaportal/config"
	"github.com/shashiranjanraj/aquaportal/internal/server"
)

// Addr is the web UI's listen address, APP_HOST:APP_PORT.
func Addr() string {
	return net.JoinHostPort(config.AppHost(), config.AppPort())
}

// Serve runs the web UI on Addr until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	return server.Run(ctx, Addr(), a.Handler())
}
