package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"wealth/pkg/requestcontext"
)

// JWTValidator validates bearer tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims are the claims the middleware needs from a validated token.
type JWTClaims struct {
	Subject string
	Roles   []string
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireAuth validates the bearer token and stores the principal in the request context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithPrincipal(ctx, requestcontext.Principal{
				Subject: claims.Subject,
				Roles:   claims.Roles,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAnyRole rejects requests whose principal carries none of roles. It must run after RequireAuth.
func RequireAnyRole(logger *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			p, ok := requestcontext.PrincipalFrom(ctx)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
				return
			}
			if !slices.ContainsFunc(roles, p.HasRole) {
				logger.WarnContext(ctx, "forbidden - missing role",
					"subject", p.Subject,
					"required_roles", roles,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "Insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
