package controllers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/aquaportal/app/views"
	"github.com/shashiranjanraj/aquaportal/pkg/app"
	"github.com/shashiranjanraj/aquaportal/pkg/dashboard"
	"github.com/shashiranjanraj/aquaportal/pkg/orders"
	"github.com/shashiranjanraj/aquaportal/pkg/rbac"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
)

// SupplierController serves the supplier dashboard and order responses.
type SupplierController struct {
	controller
}

func NewSupplierController(a *app.App, v *views.Renderer) *SupplierController {
	return &SupplierController{controller{app: a, views: v}}
}

type supplierTable struct {
	Loaded     bool
	Orders     []orders.Order
	SupplierID string
}

func (c *SupplierController) Dashboard(w http.ResponseWriter, r *http.Request) {
	board, ok := app.BoardAs[*dashboard.SupplierBoard](c.app)
	if !ok {
		seeOther(w, r, rbac.Landing)
		return
	}
	if !board.Loaded() {
		_ = board.Load(r.Context())
	}

	v := orders.FindView(orders.SupplierViews, r.URL.Query().Get("view"))

	p := c.page("Supplier dashboard")
	p.Views = orders.SupplierViews
	p.View = v.Key
	p.Data = supplierTable{
		Loaded:     board.Loaded(),
		Orders:     v.Filter(board.Orders()),
		SupplierID: board.SupplierID(),
	}
	c.render(w, http.StatusOK, "supplier", p)
}

// Act runs accept, reject or deliver on one order. The board raises the
// notice either way.
func (c *SupplierController) Act(w http.ResponseWriter, r *http.Request) {
	board, ok := app.BoardAs[*dashboard.SupplierBoard](c.app)
	if !ok {
		seeOther(w, r, rbac.Landing)
		return
	}

	id := chi.URLParam(r, "id")
	var err error
	switch orders.Action(chi.URLParam(r, "action")) {
	case orders.ActionAccept:
		err = board.Accept(r.Context(), id)
	case orders.ActionReject:
		err = board.Reject(r.Context(), id)
	case orders.ActionDeliver:
		err = board.Deliver(r.Context(), id)
	default:
		http.NotFound(w, r)
		return
	}
	if errors.Is(err, dashboard.ErrNotOffered) || errors.Is(err, dashboard.ErrUnknownOrder) {
		c.app.Notices.Error("That action is not available for this order.")
	}

	seeOther(w, r, back(r, rbac.DashboardFor(session.RoleSupplier)))
}
