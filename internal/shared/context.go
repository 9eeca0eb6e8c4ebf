package shared

import (
	"context"
	"net/http"
)

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// OwnerFromContext returns the authenticated user id scoping every record.
func OwnerFromContext(ctx context.Context) (string, error) {
	sess := SessionFromContext(ctx)
	if sess == nil || sess.User() == "" {
		return "", ErrUnauthenticated
	}
	return sess.User(), nil
}

// RequireOwner redirects anonymous browsers to the login page.
func RequireOwner(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := OwnerFromContext(r.Context()); err != nil {
				if sess := SessionFromContext(r.Context()); sess != nil {
					sess.AddFlash(FlashMessage{Kind: "error", Message: UserSafeMessage(err)})
				}
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
