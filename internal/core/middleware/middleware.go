// Package middleware defines HTTP middlewares for the core server.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	mylog "github.com/mohammed-shakir/merchant-map/internal/logger"
	"github.com/mohammed-shakir/merchant-map/internal/session"
)

const SessionCookie = "mm_session"

type ctxKey struct{}

func Logging(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = mylog.NewID()
			}
			w.Header().Set("X-Request-ID", reqID)
			ctx := mylog.WithRequestID(r.Context(), reqID)
			ctx = mylog.WithComponent(ctx, "http")
			l.LogAttrs(ctx, slog.LevelDebug, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(fn)
	}
}

// Recover basic panic recovery middleware
func Recover(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					l.ErrorContext(r.Context(), "panic recovered", "err", rec, "path", r.URL.Path)
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

// Session attaches the viewer's session id to the request, starting a new
// session when the cookie is missing or stale.
func Session(store *session.Store, l *slog.Logger, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			var current string
			if c, err := r.Cookie(SessionCookie); err == nil {
				current = c.Value
			}
			id, created, err := store.Ensure(current)
			if err != nil {
				l.ErrorContext(r.Context(), "session create failed", "err", err)
				http.Error(w, "session unavailable", http.StatusInternalServerError)
				return
			}
			// re-sent on every request so Max-Age tracks the idle timeout
			cookie := &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			}
			if ttl > 0 {
				cookie.MaxAge = max(1, int(ttl.Seconds()))
			}
			http.SetCookie(w, cookie)
			if created {
				l.DebugContext(r.Context(), "session started", "session_id", id)
			}
			ctx := context.WithValue(r.Context(), ctxKey{}, id)
			ctx = mylog.WithSession(ctx, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(fn)
	}
}

func SessionID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}
