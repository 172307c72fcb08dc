package http

import (
	"net/http"

	"github.com/secmon-lab/flowsync/pkg/domain/model/auth"
	"github.com/secmon-lab/flowsync/pkg/utils/logging"
)

// authMiddleware puts the authenticated actor into the request context
func authMiddleware(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authn == nil {
				writeErrorMessage(r.Context(), w, http.StatusUnauthorized, "authentication is not configured")
				return
			}

			actor, err := authn.Authenticate(r)
			if err != nil {
				logging.From(r.Context()).Warn("authentication failed", "error", err.Error())
				writeErrorMessage(r.Context(), w, http.StatusUnauthorized, "authentication required")
				return
			}

			ctx := auth.ContextWithActor(r.Context(), actor)
			ctx = logging.With(ctx, logging.From(ctx).With("actor", actor.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
