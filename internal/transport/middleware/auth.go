package middleware

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/civic-complaints/internal"
	"github.com/frahmantamala/civic-complaints/internal/transport"
	"github.com/frahmantamala/civic-complaints/pkg/logger"
)

// ActorResolver turns a bearer token into the caller's identity.
type ActorResolver interface {
	ActorFromToken(token string) (internal.Actor, error)
}

// Authenticate rejects requests without a valid access token and stores the actor and an
// actor-scoped logger in the request context.
func Authenticate(resolver ActorResolver, lg *slog.Logger) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(lg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := transport.BearerToken(r)
			if token == "" {
				base.WriteError(w, http.StatusUnauthorized, "missing authorization token")
				return
			}

			actor, err := resolver.ActorFromToken(token)
			if err != nil {
				base.HandleServiceError(w, err)
				return
			}

			ctx := internal.ContextWithActor(r.Context(), actor)
			ctx = logger.With(ctx, "user_id", actor.UserID, "role", actor.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
