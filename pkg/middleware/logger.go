// Package middleware provides the web UI's HTTP middleware.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shashiranjanraj/aquaportal/pkg/logger"
	"github.com/shashiranjanraj/aquaportal/pkg/reqid"
)

// statusWriter captures the status code and body size.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Flush keeps the notice stream working behind the logger.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Logger logs each request with the request_id injected by reqid.Middleware,
// which must run first:
//
//	r.Use(reqid.Middleware())
//	r.Use(middleware.Logger)
//
// Scrapes of /metrics and the notice stream log at DEBUG.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqLog := logger.L.With("request_id", reqid.FromCtx(r.Context()))
		r = r.WithContext(logger.InjectLogger(r.Context(), reqLog))

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		level := slog.LevelInfo
		switch {
		case r.URL.Path == "/metrics" || r.URL.Path == "/events":
			level = slog.LevelDebug
		case sw.status >= http.StatusInternalServerError:
			level = slog.LevelError
		}

		reqLog.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"bytes", sw.bytes,
			"duration", time.Since(start).String(),
			"ip", r.RemoteAddr,
		)
	})
}
