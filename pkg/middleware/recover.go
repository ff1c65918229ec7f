package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/shashiranjanraj/aquaportal/pkg/logger"
	"github.com/shashiranjanraj/aquaportal/pkg/response"
)

// Recovery turns a panic in a handler into a 500. JSON endpoints under /api
// get the JSON envelope, pages get plain text.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logger.WithCtx(r.Context()).Error("panic recovered",
				"error", fmt.Sprintf("%v", rec),
				"stack", string(debug.Stack()),
				"method", r.Method,
				"path", r.URL.Path,
			)

			if strings.HasPrefix(r.URL.Path, "/api/") {
				response.Error(w, http.StatusInternalServerError, "Internal Server Error")
				return
			}
			http.Error(w, "Something went wrong.", http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}
