package middleware

import (
	"net/http"
	"strings"

	"canvas-backend/pkg/auth"
	"canvas-backend/pkg/common"
)

// Authenticate validates the bearer token and puts the caller's uid on the
// request context. Behind API Gateway the JWT authorizer already ran, so
// the Lambda path trusts the forwarded user header instead.
func Authenticate(validator *auth.JWTValidator, isLambda bool) func(next http.Handler) http.Handler {
	if isLambda {
		return authenticateFromGateway
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid authorization header format")
				return
			}

			claims, err := validator.ValidateToken(parts[1])
			if err != nil {
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
				return
			}

			ctx := common.WithUID(r.Context(), claims.UID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticateFromGateway(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := r.Header.Get("X-User-ID")
		if uid == "" {
			common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user context from gateway")
			return
		}
		ctx := common.WithUID(r.Context(), uid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
