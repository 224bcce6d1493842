package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/avilaromero/clientpulse-backend/api/responses"
	pkgAuth "github.com/avilaromero/clientpulse-backend/pkg/auth"
	"github.com/avilaromero/clientpulse-backend/pkg/config"
	pkgerrors "github.com/avilaromero/clientpulse-backend/pkg/errors"
	"github.com/avilaromero/clientpulse-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID.String())
			ctx = context.WithValue(ctx, ctxEmail, claims.Email)
			if claims.OrgID != nil {
				ctx = context.WithValue(ctx, ctxOrgID, claims.OrgID.String())
			}

			if logg != nil {
				fields := map[string]any{"user_id": claims.UserID.String()}
				if claims.OrgID != nil {
					fields["org_id"] = claims.OrgID.String()
				}
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireOrg rejects authenticated requests whose token carries no
// organization. Every tenant-scoped route sits behind this gate.
func RequireOrg(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if OrgIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "organization membership required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
