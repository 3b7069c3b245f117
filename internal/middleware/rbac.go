package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinic-booking-api/internal/models"
	appErrors "github.com/noah-isme/clinic-booking-api/pkg/errors"
	"github.com/noah-isme/clinic-booking-api/pkg/response"
)

// Self matches a caller whose id equals the :id route parameter and whose
// role is the given one, e.g. a patient reading their own bookings.
type Self models.UserRole

// RBAC admits callers holding one of the roles, or matching a Self rule.
func RBAC(roles []models.UserRole, self ...Self) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[actor.Role]; ok {
			c.Next()
			return
		}

		for _, rule := range self {
			if actor.Role == models.UserRole(rule) && c.Param("id") == actor.ID {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(actor.Role)+" may not perform this operation"))
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return RBAC(roles)
}
