package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vendora-market/vendora-backend/api/responses"
	pkgerrors "github.com/vendora-market/vendora-backend/pkg/errors"
	"github.com/vendora-market/vendora-backend/pkg/logger"
)

const (
	actorIDHeader   = "X-Actor-Id"
	actorRoleHeader = "X-Actor-Role"
)

var knownRoles = map[string]struct{}{
	RoleCustomer: {},
	RoleVendor:   {},
	RoleAdmin:    {},
}

// Principal reads the authenticated identity forwarded by the gateway and
// seeds the request context with it. Requests without a verified actor are
// rejected before they reach any handler.
func Principal(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID := strings.TrimSpace(r.Header.Get(actorIDHeader))
			if actorID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor identity"))
				return
			}
			if _, err := uuid.Parse(actorID); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor identity"))
				return
			}

			role := strings.ToLower(strings.TrimSpace(r.Header.Get(actorRoleHeader)))
			if _, ok := knownRoles[role]; !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown actor role"))
				return
			}

			ctx := WithActor(r.Context(), actorID, role)
			if logg != nil {
				ctx = logg.WithActor(ctx, actorID, role)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route group on the actor's role.
func RequireRole(role string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromContext(r.Context()) != role {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
