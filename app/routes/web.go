// Package routes maps the web UI's URLs to controllers.
package routes

import (
	"net/http"
	"time"

	"github.com/shashiranjanraj/aquaportal/app/controllers"
	"github.com/shashiranjanraj/aquaportal/app/views"
	"github.com/shashiranjanraj/aquaportal/pkg/app"
	"github.com/shashiranjanraj/aquaportal/pkg/middleware"
	"github.com/shashiranjanraj/aquaportal/pkg/rbac"
	"github.com/shashiranjanraj/aquaportal/pkg/router"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
	"github.com/shashiranjanraj/aquaportal/pkg/sse"
)

// MismatchNotice is raised when someone opens another role's dashboard.
const MismatchNotice = "You are not authorized to view that page."

// RegisterWeb mounts every page, form action and the notice stream.
func RegisterWeb(r *router.Router, a *app.App) {
	v := views.New(r)
	authC := controllers.NewAuthController(a, v)
	userC := controllers.NewUserController(a, v)
	supplierC := controllers.NewSupplierController(a, v)
	adminC := controllers.NewAdminController(a, v)
	noticeC := controllers.NewNoticeController(a)

	current := a.Session.Current
	guard := rbac.Guard(current, func() { a.Notices.Info(MismatchNotice) })
	throttle := middleware.NewLimiter(10, time.Minute).Middleware

	// Pages: every GET goes through the role router.
	pages := r.Group("/", guard)
	pages.Get(rbac.Landing, "landing", authC.Landing)
	pages.Get(rbac.Login, "login", authC.ShowLogin)
	pages.Get(rbac.Signup, "signup", authC.ShowSignup)
	pages.Get(rbac.ForgotPassword, "password.forgot", authC.ShowForgot)
	pages.Get(rbac.ResetPassword+"{token}", "password.reset", authC.ShowReset)
	pages.Get(rbac.DashboardFor(session.RoleUser), "user.dashboard", userC.Dashboard)
	pages.Get(rbac.DashboardFor(session.RoleSupplier), "supplier.dashboard", supplierC.Dashboard)
	pages.Get(rbac.DashboardFor(session.RoleAdmin), "admin.dashboard", adminC.Dashboard)
	pages.Get(rbac.PaymentSuccess, "payment.success", userC.PaymentSuccess)

	// Anything else lands on /.
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, rbac.Landing, http.StatusSeeOther)
	})

	// Credential forms.
	forms := r.Group("/", middleware.SameOrigin, throttle)
	forms.Post(rbac.Login, "login.submit", authC.Login)
	forms.Post(rbac.Signup, "signup.submit", authC.Signup)
	forms.Post(rbac.ForgotPassword, "password.forgot.submit", authC.Forgot)
	forms.Post(rbac.ResetPassword+"{token}", "password.reset.submit", authC.Reset)

	actions := r.Group("/", middleware.SameOrigin)
	actions.Post("/logout", "logout", authC.Logout)
	actions.Post("/notices/{id}/dismiss", "notices.dismiss", noticeC.Dismiss)
	actions.Post("/settings/password", "password.change", userC.ChangePassword,
		rbac.HasRole(current, session.Roles...))

	user := actions.Group(rbac.DashboardFor(session.RoleUser), rbac.HasRole(current, session.RoleUser))
	user.Post("/orders", "user.checkout", userC.Checkout)
	user.Post("/orders/{id}/cancel", "user.cancel", userC.Cancel)

	supplier := actions.Group(rbac.DashboardFor(session.RoleSupplier), rbac.HasRole(current, session.RoleSupplier))
	supplier.Post("/orders/{id}/{action}", "supplier.act", supplierC.Act)

	r.Get("/events", "events", sse.Notices(a.Notices, 15*time.Second))
}
