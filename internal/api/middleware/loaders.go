package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/quizhive/quizhive/internal/domain"
	"github.com/quizhive/quizhive/internal/loader"
	"github.com/quizhive/quizhive/internal/messenger"
	"github.com/quizhive/quizhive/internal/repository"
)

const (
	principalKey contextKey = "principal"
	registryKey  contextKey = "loader_registry"
)

// Principal resolves the request's user from the X-User-ID header.
// An absent or unknown ID leaves the request anonymous; real authentication
// (sessions, tokens) is the concern of the deployment's edge, not this core.
func Principal(store repository.UserRepository, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-User-ID")
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}
			users, err := store.GetUsersByIDs(r.Context(), []string{id})
			if err != nil {
				logger.Warn("principal lookup failed", zap.String("user_id", id), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if len(users) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), principalKey, users[0])
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFrom returns the authenticated user, or nil for anonymous requests.
func PrincipalFrom(ctx context.Context) *domain.User {
	u, _ := ctx.Value(principalKey).(*domain.User)
	return u
}

// Loaders builds a fresh loader registry for every request; loaders memoize
// within one request only and are discarded with it. Must be mounted after
// Principal so the registry's request context carries the resolved user.
func Loaders(store repository.Store, msgr messenger.Messenger, hooks loader.Hooks) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := loader.NewRequestContext()
			rc.SetPrincipal(PrincipalFrom(r.Context()))
			reg := loader.NewRegistry(rc, store, msgr, hooks)
			ctx := context.WithValue(r.Context(), registryKey, reg)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RegistryFrom returns the request's loader registry. Panics if the Loaders
// middleware was not applied: handlers depending on loaders without the
// middleware is a wiring bug, not a runtime condition.
func RegistryFrom(ctx context.Context) *loader.Registry {
	reg, ok := ctx.Value(registryKey).(*loader.Registry)
	if !ok {
		panic("middleware: Loaders middleware not applied")
	}
	return reg
}
