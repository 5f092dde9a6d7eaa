package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/acertamais-backend/api/responses"
	pkgAuth "github.com/angelmondragon/acertamais-backend/pkg/auth"
	"github.com/angelmondragon/acertamais-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/acertamais-backend/pkg/errors"
	"github.com/angelmondragon/acertamais-backend/pkg/logger"
)

// StatusChecker reports whether an employee account may use the API.
type StatusChecker interface {
	Status(ctx context.Context, userID string) (enums.EmployeeStatus, error)
}

// Auth validates a bearer token and seeds the request context with the
// caller. Disabled employees are rejected with 403.
func Auth(verifier pkgAuth.Verifier, employees StatusChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			if verifier == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "token verifier unavailable"))
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if identity == nil || identity.UserID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing subject"))
				return
			}

			if employees != nil {
				status, err := employees.Status(r.Context(), identity.UserID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check account status"))
					return
				}
				if status == enums.EmployeeStatusDisabled {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "account disabled"))
					return
				}
			}

			ctx := WithIdentity(r.Context(), *identity)
			if logg != nil {
				ctx = logg.WithUserID(ctx, identity.UserID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken reads the Authorization header. Event streams may pass the
// token as the access_token query parameter since browsers cannot set
// headers on them.
func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		if r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
			return strings.TrimSpace(r.URL.Query().Get("access_token"))
		}
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
