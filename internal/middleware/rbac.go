package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sice-api/internal/models"
	appErrors "github.com/noah-isme/sice-api/pkg/errors"
	"github.com/noah-isme/sice-api/pkg/response"
)

// AllowSelf lets a user through when the :id route parameter is their own id.
const AllowSelf = "SELF"

// RBAC enforces role-based access control for routes. It must run after JWT.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowSelf := false
	allowedRoles := make(map[models.UserRole]struct{}, len(allowed))
	for _, a := range allowed {
		if a == AllowSelf {
			allowSelf = true
			continue
		}
		allowedRoles[models.UserRole(a)] = struct{}{}
	}

	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}

		if _, ok := allowedRoles[user.Role]; ok {
			c.Next()
			return
		}
		if allowSelf && c.Param("id") != "" && c.Param("id") == user.ID {
			c.Next()
			return
		}

		response.Abort(c, appErrors.Clone(appErrors.ErrForbidden, "insufficient role"))
	}
}

func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}
