package handler

import (
	"context"
	"net/http"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/nexora/nexora-bfa-go/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const sessionKey contextKey = "session"

// Session identity carriers.
const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "nexora_session"
)

const maxSessionIDLen = 128

// SessionMiddleware resolves the caller's session from the X-Session-ID
// header or the nexora_session cookie, minting a new id when neither is
// present, and injects it into the request context.
func SessionMiddleware(sessions *session.Manager, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(SessionHeader)
			if id == "" {
				if c, err := r.Cookie(SessionCookie); err == nil {
					id = c.Value
				}
			}
			if len(id) > maxSessionIDLen {
				logger.Warn("session: id too long",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusBadRequest, "invalid session id")
				return
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(SessionHeader, id)

			sess, err := sessions.Get(r.Context(), id)
			if err != nil {
				logger.Error("session: restore failed", zap.String("session_id", id), zap.Error(err))
				writeError(w, http.StatusServiceUnavailable, "session store unavailable")
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the session injected by SessionMiddleware.
func SessionFromContext(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey).(*session.Session)
	return s
}

// RequireLogin rejects requests whose session carries no credentials. It
// must run after SessionMiddleware.
func RequireLogin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromContext(r.Context())
			if sess == nil {
				handleServiceError(w, &domain.ErrNoSession{Operation: r.URL.Path}, logger)
				return
			}
			if _, err := sess.Token(r.URL.Path); err != nil {
				handleServiceError(w, err, logger)
				return
			}
			if sess.State() == session.Expired {
				handleServiceError(w, &domain.ErrUnauthorized{Status: http.StatusUnauthorized, Message: "session expired, please log in again"}, logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
