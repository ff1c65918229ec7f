package routes

import (
	"github.com/shashiranjanraj/aquaportal/app/controllers"
	"github.com/shashiranjanraj/aquaportal/pkg/app"
	"github.com/shashiranjanraj/aquaportal/pkg/middleware"
	"github.com/shashiranjanraj/aquaportal/pkg/rbac"
	"github.com/shashiranjanraj/aquaportal/pkg/router"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
)

// RegisterAPI mounts the JSON endpoints.
func RegisterAPI(r *router.Router, a *app.App) {
	c := controllers.NewAPIController(a)
	current := a.Session.Current

	api := r.Group("/api", middleware.SameOrigin)
	api.Get("/session", "api.session", c.Session)

	authed := api.Group("", rbac.HasRole(current, session.Roles...))
	authed.Get("/orders", "api.orders", c.Orders)
	authed.Get("/notices", "api.notices", c.Notices)
	authed.Post("/orders/{id}/cancel", "api.orders.cancel", c.Cancel, rbac.HasRole(current, session.RoleUser))
	authed.Post("/supplier/orders/{id}/{action}", "api.supplier.act", c.Respond, rbac.HasRole(current, session.RoleSupplier))
}
