package middleware

import (
	"net/http"
	"net/url"

	"github.com/shashiranjanraj/aquaportal/pkg/response"
)

// SameOrigin rejects state-changing requests sent from another origin. The
// web UI holds the portal credential in-process, so any page the browser has
// open could otherwise post to it.
//
// Requests without an Origin header (curl, the CLI, same-origin navigations
// in older browsers) pass.
func SameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		u, err := url.Parse(origin)
		if err != nil || u.Host != r.Host {
			response.Forbidden(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
