package middleware

import (
	"log/slog"
	"net/http"

	"github.com/Davidgwa1996/unidigitalcom/pkg/logger"
)

// HeaderSessionID identifies the storefront browsing session.
const HeaderSessionID = "X-Session-ID"

// RequestLogger stores a request-scoped logger in the context, enriched with
// correlation_id, session_id, trace_id and span_id. Handlers fetch it with
// logger.FromContext. Mount it after RequestLogging and Tracing.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if logger.SessionIDFromContext(ctx) == "" {
				if sid := r.Header.Get(HeaderSessionID); sid != "" {
					ctx = logger.WithSessionID(ctx, sid)
				}
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
