package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/aquaportal/app/views"
	"github.com/shashiranjanraj/aquaportal/pkg/account"
	"github.com/shashiranjanraj/aquaportal/pkg/app"
	"github.com/shashiranjanraj/aquaportal/pkg/logger"
	"github.com/shashiranjanraj/aquaportal/pkg/rbac"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
)

// AuthController serves the landing page and every credential form.
type AuthController struct {
	controller
}

func NewAuthController(a *app.App, v *views.Renderer) *AuthController {
	return &AuthController{controller{app: a, views: v}}
}

func (c *AuthController) Landing(w http.ResponseWriter, _ *http.Request) {
	c.render(w, http.StatusOK, "landing", c.page("Welcome"))
}

// ─── Login / logout ──────────────────────────────────────────────────────────

func (c *AuthController) ShowLogin(w http.ResponseWriter, _ *http.Request) {
	p := c.page("Login")
	p.Form = map[string]string{"role": string(session.RoleUser)}
	c.render(w, http.StatusOK, "login", p)
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	f := form(r, "email", "password", "role")

	id, err := c.app.Session.Login(r.Context(), f["email"], f["password"], f["role"])
	if err != nil {
		logger.WithCtx(r.Context()).Info("login rejected", "email", f["email"], "role", f["role"], "error", err)

		p := c.page("Login")
		p.Error = session.LoginMessage(err)
		p.Form = map[string]string{"email": f["email"], "role": f["role"]}
		c.render(w, http.StatusUnprocessableEntity, "login", p)
		return
	}

	name := id.Name
	if name == "" {
		name = "User"
	}
	c.app.Notices.Success("Welcome, %s!", name)
	seeOther(w, r, id.Dashboard())
}

func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	c.app.Session.Logout(r.Context())
	seeOther(w, r, rbac.Login)
}

// ─── Signup ──────────────────────────────────────────────────────────────────

func (c *AuthController) ShowSignup(w http.ResponseWriter, _ *http.Request) {
	p := c.page("Sign up")
	p.Form = map[string]string{"role": string(session.RoleUser)}
	c.render(w, http.StatusOK, "signup", p)
}

func (c *AuthController) Signup(w http.ResponseWriter, r *http.Request) {
	f := form(r, "name", "email", "password", "confirmPassword", "role")

	msg, err := c.app.Accounts.Signup(r.Context(), account.SignupForm{
		Name:            f["name"],
		Email:           f["email"],
		Password:        f["password"],
		ConfirmPassword: f["confirmPassword"],
		Role:            f["role"],
	})
	if err != nil {
		p := c.page("Sign up")
		p.Error = account.Message(err, account.FlowSignup)
		p.Form = map[string]string{"name": f["name"], "email": f["email"], "role": f["role"]}
		c.render(w, http.StatusUnprocessableEntity, "signup", p)
		return
	}

	c.app.Notices.Success("%s", msg)
	seeOther(w, r, rbac.Login)
}

// ─── Password recovery ───────────────────────────────────────────────────────

func (c *AuthController) ShowForgot(w http.ResponseWriter, _ *http.Request) {
	c.render(w, http.StatusOK, "forgot", c.page("Forgot password"))
}

func (c *AuthController) Forgot(w http.ResponseWriter, r *http.Request) {
	f := form(r, "email", "role")

	p := c.page("Forgot password")
	p.Form = map[string]string{"email": f["email"]}

	msg, err := c.app.Accounts.ForgotPassword(r.Context(), account.ForgotPasswordForm{
		Email: f["email"],
		Role:  f["role"],
	})
	if err != nil {
		p.Error = account.Message(err, account.FlowForgot)
		c.render(w, http.StatusUnprocessableEntity, "forgot", p)
		return
	}

	p.Info = msg
	c.render(w, http.StatusOK, "forgot", p)
}

func (c *AuthController) ShowReset(w http.ResponseWriter, r *http.Request) {
	p := c.page("Reset password")
	p.Form = map[string]string{"token": chi.URLParam(r, "token")}
	c.render(w, http.StatusOK, "reset", p)
}

func (c *AuthController) Reset(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	f := form(r, "password", "confirmPassword", "role")

	msg, err := c.app.Accounts.ResetPassword(r.Context(), account.ResetPasswordForm{
		Token:           token,
		Password:        f["password"],
		ConfirmPassword: f["confirmPassword"],
		Role:            f["role"],
	})
	if err != nil {
		p := c.page("Reset password")
		p.Error = account.Message(err, account.FlowReset)
		p.Form = map[string]string{"token": token}
		c.render(w, http.StatusUnprocessableEntity, "reset", p)
		return
	}

	c.app.Notices.Success("%s", msg)
	seeOther(w, r, rbac.Login)
}
