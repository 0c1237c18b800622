// Package middleware holds the HTTP middleware applied by the router.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/nexusdata/nexusdata/internal/api/shared"
)

// Trace adds a trace ID to the request context and logs the request
// start. Apply it early so every downstream log line can correlate.
func Trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := shared.SetTraceID(r.Context())

		slog.Debug("request started",
			"trace_id", shared.GetTraceID(ctx),
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
