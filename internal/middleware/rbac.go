package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/school-logistics/roster-api/internal/models"
	appErrors "github.com/school-logistics/roster-api/pkg/errors"
	"github.com/school-logistics/roster-api/pkg/response"
)

// RequireRoles gates a route group to the given roles. It expects the JWT
// guard to have run first; a missing identity is treated as unauthorized,
// an identity with the wrong role as forbidden.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.TokenClaims)

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
