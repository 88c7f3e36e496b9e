package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
	"github.com/tobenna/symptom-assist/backend/internal/domain/repositories"
	"github.com/tobenna/symptom-assist/backend/internal/infrastructure/observability"
)

type contextKey string

const identityContextKey contextKey = "identity"

// IdentityFromContext returns the caller identity resolved by the auth
// middleware. The second return is false for unauthenticated requests.
func IdentityFromContext(ctx context.Context) (entities.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(entities.Identity)
	return identity, ok
}

// WithIdentity attaches an identity to the context. Exported for handler tests.
func WithIdentity(ctx context.Context, identity entities.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// AuthMiddleware resolves the caller identity from the request.
//
// A Bearer token maps to a registered user and their subscription tier.
// An X-Session-Token header identifies an anonymous visitor, who gets the
// temporary tier. Requests carrying neither continue unauthenticated and
// are rejected by RequireIdentity on protected routes.
func AuthMiddleware(users repositories.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := observability.LoggerFromContext(r.Context())

			if token := bearerToken(r); token != "" {
				user, err := users.GetByToken(r.Context(), token)
				if err != nil {
					logger.Warn().Err(err).Msg("rejected request with unknown bearer token")
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusUnauthorized)
					_, _ = w.Write([]byte(`{"error":"invalid token"}`))
					return
				}
				identity := entities.Identity{UserID: user.ID, Tier: user.Tier}
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
				return
			}

			if sessionToken := strings.TrimSpace(r.Header.Get("X-Session-Token")); sessionToken != "" {
				identity := entities.Identity{SessionID: sessionToken, Tier: entities.TierTemporary}
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireIdentity rejects requests that did not resolve to an identity.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"authentication required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
