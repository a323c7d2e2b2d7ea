package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"projectx/internal/middleware"
	"projectx/internal/models"
	"projectx/internal/users"
)

// GetUser returns a directory identity. Callers can always read themselves;
// reading anyone else takes caregiver clearance or above.
func GetUser(userSvc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := middleware.AccessTokenFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		userID := c.Param("id")
		if userID != caller.UserID && !caller.Role.AtLeast(models.RoleCaregiver) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		user, err := userSvc.UserByID(c.Request.Context(), userID)
		if err != nil {
			log.Println("[USERS] [ERROR] user lookup failed:", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}

		c.JSON(http.StatusOK, user)
	}
}
