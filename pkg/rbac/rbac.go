// Package rbac provides role-based access control middleware.
package rbac

import (
	"net/http"

	"github.com/farmdirect/farmdirect/pkg/middleware"
	"github.com/farmdirect/farmdirect/pkg/response"
)

// HasRole returns middleware that allows access only to users with the given role.
// Requires middleware.Auth to have already run (role must be in context).
func HasRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := middleware.RoleFromCtx(r)
			if !ok || !allowed[role] {
				response.Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
