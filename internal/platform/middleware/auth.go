package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"outreach/pkg/requestcontext"
)

// RequireAuth extracts the caller identity from the Bearer token. Tokens are
// issued and signature-checked by the upstream API gateway, so this layer
// only parses the claims: the subject becomes the user ID and the raw token
// is kept for pass-through to the profile and consent services.
func RequireAuth(logger *slog.Logger) func(http.Handler) http.Handler {
	parser := jwt.NewParser()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || token == "" {
				unauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims := jwt.MapClaims{}
			if _, _, err := parser.ParseUnverified(token, claims); err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - unparsable token",
					"error", err,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				unauthorized(w, "Invalid token")
				return
			}
			subject, err := claims.GetSubject()
			if err != nil || subject == "" {
				unauthorized(w, "Token has no subject")
				return
			}

			ctx := requestcontext.WithUserID(r.Context(), subject)
			ctx = requestcontext.WithUserToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"success":false,"message":"` + description + `","status":401}`))
}
