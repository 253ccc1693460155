package rbac

import (
	"net/http"

	authmw "github.com/quizdeck/quizdeck/internal/auth/middleware"
)

var defaultChecker = NewChecker(nil)

// Require enforces a single permission against the authenticated user's role.
func Require(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := authmw.UserFromContext(r.Context())
			if u.ID == 0 || !defaultChecker.Has(u.Role(), perm) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny enforces that the role has at least one of the permissions.
func RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := authmw.UserFromContext(r.Context())
			if u.ID == 0 || !defaultChecker.Any(u.Role(), perms...) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
