package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Davidgwa1996/unidigitalcom/pkg/httputil"
	"github.com/Davidgwa1996/unidigitalcom/pkg/logger"
	"github.com/Davidgwa1996/unidigitalcom/pkg/middleware"
)

type contextKey string

const sessionIDKey contextKey = "session_id"

const maxSessionIDLen = 128

// SessionFromHeader resolves the browsing session from X-Session-ID. A
// request without one is issued a fresh id. The id in use is always echoed
// on the response so clients can keep it.
func SessionFromHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sid := r.Header.Get(middleware.HeaderSessionID)
		switch {
		case sid == "":
			sid = uuid.NewString()
			ctx = logger.WithSessionID(ctx, sid)
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("session_id", sid)))
		case !validSessionID(sid):
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_SESSION", Message: "X-Session-ID is malformed"},
			})
			return
		default:
			ctx = logger.WithSessionID(ctx, sid)
		}

		w.Header().Set(middleware.HeaderSessionID, sid)
		ctx = context.WithValue(ctx, sessionIDKey, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validSessionID(sid string) bool {
	if len(sid) > maxSessionIDLen {
		return false
	}
	for _, c := range sid {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

func sessionIDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(sessionIDKey).(string)
	return sid
}

// ContentTypeJSON rejects request bodies that are not declared as JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
