package middleware

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/civic-complaints/internal"
	"github.com/frahmantamala/civic-complaints/internal/transport"
	"github.com/frahmantamala/civic-complaints/pkg/logger"
)

// RequireRoles lets a request through when the authenticated actor has one of roles.
// It must run after Authenticate.
func RequireRoles(lg *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(lg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := base.ActorOrUnauthorized(w, r)
			if !ok {
				return
			}

			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.From(r.Context()).Warn("access denied: insufficient role",
				"user_id", actor.UserID,
				"role", actor.Role,
				"required_roles", roles)
			base.HandleServiceError(w, internal.ErrAccessDenied)
		})
	}
}

func RequireAdmin(lg *slog.Logger) func(http.Handler) http.Handler {
	return RequireRoles(lg, internal.RoleAdmin)
}
