package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/school-logistics/roster-api/internal/service"
	appErrors "github.com/school-logistics/roster-api/pkg/errors"
	"github.com/school-logistics/roster-api/pkg/response"
)

// ContextUserKey is the gin context key storing the authenticated claims.
const ContextUserKey = "currentUser"

// JWT is the resource guard: it extracts the bearer token, validates it and
// attaches the identity, short-circuiting with 401 otherwise. A 401 from
// here is the signal clients use to tear down their local session.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}
