package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireRoles lets the request through only when the authenticated role is
// one of allowed. It must run after RequireAuth.
func (m *AuthMiddleware) RequireRoles(allowed ...string) gin.HandlerFunc {
	set := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)

		if !ok {
			m.fail(c, http.StatusUnauthorized, "no_role", "unauthorized", "No valid role found")
			return
		}
		if _, ok := set[role]; !ok {
			m.fail(c, http.StatusForbidden, "forbidden", "forbidden", "User not authorized to access this resource")
			return
		}
		c.Next()
	}
}
