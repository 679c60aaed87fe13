package authn

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	resp "expense_service/internal/lib/api/response"
	"expense_service/internal/lib/jwt"
	sl "expense_service/internal/lib/logger"

	"github.com/go-chi/render"
)

// Principal is the authenticated identity bound to the request context.
// Both email and the numeric user id come from the validated token, so
// handlers never have to re-resolve the id by email.
type Principal struct {
	Email  string
	UserID int64
}

type contextKey struct{}

var principalKey = contextKey{}

// New returns the bearer-token gate. A valid token binds the principal to the
// request context; a bad token is logged and the request continues
// unauthenticated. Rejection is left to RequireAuth on protected routes.
func New(log *slog.Logger, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.authn.New"

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := jwt.ParseToken(parts[1], secret)
			if err != nil {
				log.Warn("JWT authentication failed",
					slog.String("op", op),
					sl.Err(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			principal := Principal{
				Email:  claims.Subject,
				UserID: claims.UserID,
			}

			next.ServeHTTP(w, r.WithContext(
				context.WithValue(r.Context(), principalKey, principal),
			))
		}

		return http.HandlerFunc(fn)
	}
}

// RequireAuth rejects requests without an authenticated principal with a
// fixed 401 body. Protected route groups mount it once instead of checking
// per handler.
func RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if _, ok := FromContext(r.Context()); !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Unauthorized"))
				return
			}

			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(fn)
	}
}

func FromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalKey).(Principal)
	return principal, ok
}

// WithPrincipal is a test helper to seed an authenticated context.
func WithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}
