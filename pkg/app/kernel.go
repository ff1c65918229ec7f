package app

import (
	"net/http"

	"github.com/shashiranjanraj/aquaportal/pkg/metrics"
	"github.com/shashiranjanraj/aquaportal/pkg/middleware"
	"github.com/shashiranjanraj/aquaportal/pkg/reqid"
	"github.com/shashiranjanraj/aquaportal/pkg/router"
)

// Router builds the web UI router: global middleware, /metrics, then every
// callback registered with Routes.
func (a *App) Router() *router.Router {
	r := router.New()

	// Outermost first:
	//  1. metrics  - total latency
	//  2. recovery - panics become 500s
	//  3. reqid    - before anything logs
	//  4. logger   - per-request logger tagged with request_id
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)

	r.Get("/metrics", "metrics", metrics.Handler())

	for _, fn := range a.routesFns {
		fn(r)
	}
	return r
}

// Handler is Router().Handler().
func (a *App) Handler() http.Handler {
	return a.Router().Handler()
}
