package controllers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/aquaportal/pkg/app"
	"github.com/shashiranjanraj/aquaportal/pkg/dashboard"
	"github.com/shashiranjanraj/aquaportal/pkg/gateway"
	"github.com/shashiranjanraj/aquaportal/pkg/orders"
	"github.com/shashiranjanraj/aquaportal/pkg/response"
)

// APIController answers the JSON endpoints under /api. It reads the same
// boards the pages render.
type APIController struct {
	app *app.App
}

func NewAPIController(a *app.App) *APIController {
	return &APIController{app: a}
}

// Session returns the current identity, or null.
func (c *APIController) Session(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]any{"user": c.app.Session.Current()})
}

// Orders returns the mounted board's full collection.
func (c *APIController) Orders(w http.ResponseWriter, _ *http.Request) {
	var list []orders.Order
	switch b := c.app.Board().(type) {
	case *dashboard.UserBoard:
		list = b.Orders()
	case *dashboard.SupplierBoard:
		list = b.Orders()
	case *dashboard.AdminBoard:
		list = b.Orders()
	default:
		response.Unauthorized(w)
		return
	}
	response.Success(w, map[string]any{"orders": list})
}

func (c *APIController) Cancel(w http.ResponseWriter, r *http.Request) {
	board, ok := app.BoardAs[*dashboard.UserBoard](c.app)
	if !ok {
		response.Forbidden(w)
		return
	}
	c.reply(w, board.Cancel(r.Context(), chi.URLParam(r, "id")), "Order cancelled successfully")
}

func (c *APIController) Respond(w http.ResponseWriter, r *http.Request) {
	board, ok := app.BoardAs[*dashboard.SupplierBoard](c.app)
	if !ok {
		response.Forbidden(w)
		return
	}

	id := chi.URLParam(r, "id")
	switch orders.Action(chi.URLParam(r, "action")) {
	case orders.ActionAccept:
		c.reply(w, board.Accept(r.Context(), id), "Order successfully accepted")
	case orders.ActionReject:
		c.reply(w, board.Reject(r.Context(), id), "Order rejected")
	case orders.ActionDeliver:
		c.reply(w, board.Deliver(r.Context(), id), "Order successfully Delivered")
	default:
		response.NotFound(w)
	}
}

// Notices returns the recent, undismissed notices.
func (c *APIController) Notices(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]any{"notices": c.app.Notices.Recent()})
}

func (c *APIController) reply(w http.ResponseWriter, err error, ok string) {
	var gwErr *gateway.Error
	switch {
	case err == nil:
		response.Message(w, ok)
	case errors.Is(err, dashboard.ErrUnknownOrder):
		response.NotFound(w)
	case errors.Is(err, dashboard.ErrNotOffered), errors.Is(err, orders.ErrNotCancellable):
		response.Error(w, http.StatusConflict, "That action is not available for this order.")
	case errors.As(err, &gwErr) && gwErr.Status != 0:
		response.Error(w, gwErr.Status, gateway.Message(err, "Request failed"))
	default:
		response.Error(w, http.StatusBadGateway, gateway.Message(err, "Request failed"))
	}
}
