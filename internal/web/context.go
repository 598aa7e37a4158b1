package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/RareDx/internal/logging"
	"github.com/JonMunkholm/RareDx/internal/session"
)

type ctxKey struct{}

// withSession stores the request's session in ctx.
func withSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// sessionFrom returns the session attached by sessionMiddleware.
func sessionFrom(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*session.Session)
	return s, ok && s != nil
}

// sessionMiddleware resolves the session cookie to a live session, starting
// a new one when the cookie is missing or its session has expired.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil {
			id = c.Value
		}

		sess, created := s.sessions.GetOrCreate(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.Session.CookieName,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.cfg.Session.SecureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := withSession(r.Context(), sess)
		ctx = logging.WithLogger(ctx, s.logger.With("session_id", sess.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
