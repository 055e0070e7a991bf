package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/backcommerce/authtokens"
)

type principalContextKey struct{}

// PrincipalFromContext returns the principal installed by [RequireAuth].
func PrincipalFromContext(ctx context.Context) (*authtokens.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*authtokens.Principal)
	return p, ok
}

// RequireAuth rejects requests without a verifiable access credential and
// injects the resolved [authtokens.Principal] into the request context.
// Expired and invalid credentials both map to 401; the distinction matters to
// API clients (retry-after-reissue vs re-login) and is carried in the body.
func RequireAuth(engine *authtokens.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := resolve(engine, w, r)
			if !ok {
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole is [RequireAuth] plus a role gate: authenticated principals
// with a different role receive 403.
func RequireRole(engine *authtokens.Engine, role authtokens.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := resolve(engine, w, r)
			if !ok {
				return
			}
			if principal.Role != role {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolve(engine *authtokens.Engine, w http.ResponseWriter, r *http.Request) (*authtokens.Principal, bool) {
	if engine == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	tokenString, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	principal, err := engine.Authenticate(r.Context(), tokenString)
	if err != nil {
		if errors.Is(err, authtokens.ErrTokenExpired) {
			http.Error(w, "token expired", http.StatusUnauthorized)
			return nil, false
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	return principal, true
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
