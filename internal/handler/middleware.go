package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/infra/observability"
	"github.com/elance/franquias-portal-go/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const principalKey contextKey = "principal"

// AuthMiddleware validates Bearer tokens and injects the resolved principal
// into the request context.
func AuthMiddleware(identity *service.IdentityService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Token de autenticação não fornecido")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Formato de token inválido")
				return
			}

			p, err := identity.Authenticate(r.Context(), parts[1])
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}

			observability.SetActor(r.Context(), p.ID)
			ctx := context.WithValue(r.Context(), principalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext returns the authenticated principal, nil when none.
func PrincipalFromContext(ctx context.Context) *domain.Principal {
	p, _ := ctx.Value(principalKey).(*domain.Principal)
	return p
}

// RequireCapability lets a request through when the permission gate grants
// the principal capability c.
func RequireCapability(c domain.Capability, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if !domain.CanAccess(p, c) {
				id := ""
				if p != nil {
					id = p.ID
				}
				logger.Warn("capability denied",
					zap.String("user_id", id),
					zap.String("capability", string(c)),
					zap.String("path", r.URL.Path),
				)
				writeError(w, http.StatusForbidden, "Acesso negado ao módulo "+string(c))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
