// Package rbac decides which page each identity may see.
//
// Decide is a pure function of (identity, path). Guard applies it to every
// web UI page request; the CLI `routes` command prints the same table.
package rbac

import (
	"net/http"
	"strings"

	"github.com/shashiranjanraj/aquaportal/pkg/response"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
)

// Navigation routes.
const (
	Landing        = "/"
	Login          = "/login"
	Signup         = "/signup"
	ForgotPassword = "/forgot-password"
	ResetPassword  = "/reset-password/" // + token
	PaymentSuccess = "/payment-success"
)

// Access is who may render a route.
type Access string

const (
	AccessPublic        Access = "public"        // everyone
	AccessGuest         Access = "guest"         // anonymous only
	AccessRole          Access = "role"          // one role only
	AccessAuthenticated Access = "authenticated" // any identity
)

// Route is one row of the navigation table.
type Route struct {
	Pattern string
	Access  Access
	Role    session.Role
}

// Routes is the navigation surface. Anything else redirects to Landing.
var Routes = []Route{
	{Pattern: Landing, Access: AccessPublic},
	{Pattern: Login, Access: AccessGuest},
	{Pattern: Signup, Access: AccessGuest},
	{Pattern: ForgotPassword, Access: AccessGuest},
	{Pattern: ResetPassword + ":token", Access: AccessGuest},
	{Pattern: DashboardFor(session.RoleUser), Access: AccessRole, Role: session.RoleUser},
	{Pattern: DashboardFor(session.RoleSupplier), Access: AccessRole, Role: session.RoleSupplier},
	{Pattern: DashboardFor(session.RoleAdmin), Access: AccessRole, Role: session.RoleAdmin},
	{Pattern: PaymentSuccess, Access: AccessAuthenticated},
}

// DashboardFor returns the dashboard route for role.
func DashboardFor(role session.Role) string {
	return "/" + string(role) + "-dashboard"
}

// Decision is the outcome for one navigation. Redirect is empty when Allow.
type Decision struct {
	Allow    bool
	Redirect string
	// Mismatch is set when an authenticated user asked for another role's
	// dashboard.
	Mismatch bool
}

func allow() Decision             { return Decision{Allow: true} }
func redirect(to string) Decision { return Decision{Redirect: to} }

func match(path string) (Route, bool) {
	for _, rt := range Routes {
		if rt.Pattern == path {
			return rt, true
		}
		if strings.HasSuffix(rt.Pattern, ":token") {
			prefix := strings.TrimSuffix(rt.Pattern, ":token")
			if tok := strings.TrimPrefix(path, prefix); tok != path && tok != "" && !strings.Contains(tok, "/") {
				return rt, true
			}
		}
	}
	return Route{}, false
}

// Decide returns whether id (nil when anonymous) may render path.
func Decide(id *session.Identity, path string) Decision {
	if path != "/" {
		path = strings.TrimRight(path, "/")
	}

	rt, ok := match(path)
	if !ok {
		return redirect(Landing)
	}

	switch rt.Access {
	case AccessPublic:
		return allow()

	case AccessGuest:
		if id == nil {
			return allow()
		}
		return redirect(DashboardFor(id.Role))

	case AccessRole:
		if id != nil && id.Role == rt.Role {
			return allow()
		}
		d := redirect(Landing)
		d.Mismatch = id != nil
		return d

	case AccessAuthenticated:
		if id != nil {
			return allow()
		}
		return redirect(Login)
	}

	return redirect(Landing)
}

// Guard applies Decide to every request it wraps, answering disallowed ones
// with 303 See Other. onMismatch runs once per foreign-dashboard attempt.
func Guard(current func() *session.Identity, onMismatch func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := Decide(current(), r.URL.Path)
			if d.Allow {
				next.ServeHTTP(w, r)
				return
			}
			if d.Mismatch && onMismatch != nil {
				onMismatch()
			}
			http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
		})
	}
}

// HasRole returns middleware that allows access only to identities holding
// one of roles. Used on the form-post actions behind each dashboard.
func HasRole(current func() *session.Identity, roles ...session.Role) func(http.Handler) http.Handler {
	allowed := make(map[session.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := current()
			if id == nil {
				response.Unauthorized(w)
				return
			}
			if !allowed[id.Role] {
				response.Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
