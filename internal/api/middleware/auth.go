package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/antoinerrr/ssh-ecs/internal/api/presenter"
	"github.com/antoinerrr/ssh-ecs/internal/core"
)

const principalKey contextKey = "principal"

// PrincipalCtx retrieves the authenticated principal from the context. It is
// only present behind the Identity middleware.
func PrincipalCtx(ctx context.Context) *core.Principal {
	p, _ := ctx.Value(principalKey).(*core.Principal)
	return p
}

// Identity resolves the bearer credential into a Principal once per request
// and stores it in the context. The principal is never persisted; it lives
// exactly as long as the request.
func Identity(idp core.IdentityProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			auth := r.Header.Get("Authorization")
			credential := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer"))
			if credential == "" {
				presenter.Error(w, r, "missing Authorization header", http.StatusUnauthorized)
				return
			}

			principal, err := idp.Resolve(ctx, credential)
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Msg("identity resolution failed")
				presenter.Err(w, r, err, "authentication failed")
				return
			}

			logger := log.Ctx(ctx)
			logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("login", principal.Login)
			})

			ctx = context.WithValue(ctx, principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
