package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/aquaportal/app/views"
	"github.com/shashiranjanraj/aquaportal/pkg/app"
	"github.com/shashiranjanraj/aquaportal/pkg/dashboard"
	"github.com/shashiranjanraj/aquaportal/pkg/orders"
	"github.com/shashiranjanraj/aquaportal/pkg/rbac"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
)

// AdminController serves the read-only admin dashboard.
type AdminController struct {
	controller
}

func NewAdminController(a *app.App, v *views.Renderer) *AdminController {
	return &AdminController{controller{app: a, views: v}}
}

type adminTable struct {
	People []session.Identity
	Orders []orders.Order
}

func (c *AdminController) Dashboard(w http.ResponseWriter, r *http.Request) {
	board, ok := app.BoardAs[*dashboard.AdminBoard](c.app)
	if !ok {
		seeOther(w, r, rbac.Landing)
		return
	}
	if !board.Loaded() {
		_ = board.Load(r.Context())
	}

	p := c.page("Admin dashboard")
	p.Views = orders.AdminViews

	key := r.URL.Query().Get("view")
	switch key {
	case "", "users":
		p.View = "users"
		p.Data = adminTable{People: board.Users()}
	case "suppliers":
		p.View = key
		p.Data = adminTable{People: board.Suppliers()}
	default:
		v := orders.FindView(orders.AdminViews, key)
		p.View = v.Key
		p.Data = adminTable{Orders: v.Filter(board.Orders())}
	}
	c.render(w, http.StatusOK, "admin", p)
}
