package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/aquaportal/app/views"
	"github.com/shashiranjanraj/aquaportal/pkg/account"
	"github.com/shashiranjanraj/aquaportal/pkg/app"
	"github.com/shashiranjanraj/aquaportal/pkg/checkout"
	"github.com/shashiranjanraj/aquaportal/pkg/dashboard"
	"github.com/shashiranjanraj/aquaportal/pkg/logger"
	"github.com/shashiranjanraj/aquaportal/pkg/orders"
	"github.com/shashiranjanraj/aquaportal/pkg/rbac"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
)

// UserController serves the customer dashboard and its actions.
type UserController struct {
	controller
}

func NewUserController(a *app.App, v *views.Renderer) *UserController {
	return &UserController{controller{app: a, views: v}}
}

type orderTable struct {
	Loaded bool
	Orders []orders.Order
}

const (
	viewCreate   = "create"
	viewSettings = "settings"
)

func (c *UserController) Dashboard(w http.ResponseWriter, r *http.Request) {
	c.show(w, r, http.StatusOK, r.URL.Query().Get("view"), "", nil)
}

func (c *UserController) show(w http.ResponseWriter, r *http.Request, status int, key, errMsg string, values map[string]string) {
	board, ok := app.BoardAs[*dashboard.UserBoard](c.app)
	if !ok {
		seeOther(w, r, rbac.Landing)
		return
	}
	if !board.Loaded() {
		_ = board.Load(r.Context())
	}

	p := c.page("My orders")
	p.Views = orders.UserViews
	p.Error = errMsg
	p.Form = values

	switch key {
	case viewCreate, viewSettings:
		p.View = key
	default:
		v := orders.FindView(orders.UserViews, key)
		p.View = v.Key
		p.Data = orderTable{Loaded: board.Loaded(), Orders: v.Filter(board.Orders())}
	}
	c.render(w, status, "user", p)
}

// Checkout starts a hosted payment and sends the browser to it.
func (c *UserController) Checkout(w http.ResponseWriter, r *http.Request) {
	f := form(r, "quantity", "address", "dateTime")
	qty, _ := strconv.Atoi(f["quantity"])

	who, ok := c.app.Session.Identity()
	if !ok {
		seeOther(w, r, rbac.Login)
		return
	}

	url, err := c.app.Checkout.Start(r.Context(), who, checkout.Form{
		Quantity: qty,
		Address:  f["address"],
		DateTime: f["dateTime"],
	})
	if err != nil {
		logger.WithCtx(r.Context()).Warn("checkout failed", "error", err)
		c.show(w, r, http.StatusUnprocessableEntity, viewCreate, checkout.Message(err), f)
		return
	}
	seeOther(w, r, url)
}

// PaymentSuccess is where the payment provider returns the browser. The
// confirmation is written at once; the redirect follows after the wait.
func (c *UserController) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")

	p := c.page("Payment")
	if sessionID == "" {
		p.Error = checkout.ErrMissingSession.Error()
		c.render(w, http.StatusBadRequest, "payment", p)
		return
	}

	p.Data = checkout.ReturnMessage
	p.Form = map[string]string{"wait": c.app.Checkout.Delay().String()}
	c.render(w, http.StatusOK, "payment", p)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	next, err := c.app.Checkout.Return(r.Context(), sessionID)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "<script>window.location.replace(%q)</script>\n", next)
}

func (c *UserController) Cancel(w http.ResponseWriter, r *http.Request) {
	board, ok := app.BoardAs[*dashboard.UserBoard](c.app)
	if !ok {
		seeOther(w, r, rbac.Landing)
		return
	}

	err := board.Cancel(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, orders.ErrNotCancellable), errors.Is(err, dashboard.ErrUnknownOrder):
		c.app.Notices.Error("This order can no longer be cancelled.")
	}
	seeOther(w, r, back(r, rbac.DashboardFor(session.RoleUser)))
}

// ChangePassword is shared by every role's settings form.
func (c *UserController) ChangePassword(w http.ResponseWriter, r *http.Request) {
	f := form(r, "currentPassword", "newPassword", "confirmNewPassword")

	msg, err := c.app.Accounts.ChangePassword(r.Context(), account.ChangePasswordForm{
		CurrentPassword:    f["currentPassword"],
		NewPassword:        f["newPassword"],
		ConfirmNewPassword: f["confirmNewPassword"],
	})
	if err != nil {
		c.app.Notices.Error("%s", account.Message(err, account.FlowChange))
	} else {
		c.app.Notices.Success("%s", msg)
	}
	seeOther(w, r, back(r, rbac.Landing))
}
