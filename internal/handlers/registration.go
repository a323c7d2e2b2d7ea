package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"projectx/internal/auth"
	"projectx/internal/users"
)

type RegisterRequest struct {
	Username     string    `json:"username" binding:"required"`
	Password     string    `json:"password" binding:"required,min=8"`
	Email        string    `json:"email" binding:"required,email"`
	Organisation string    `json:"organisation"`
	DateOfBirth  time.Time `json:"dateOfBirth"`
}

type RegisterResponse struct {
	UserID string          `json:"userId"`
	Tokens *auth.TokenPair `json:"tokens"`
}

// Register creates the directory identity, then its credential, and returns
// the initial token pair.
func Register(userSvc *users.Service, authSvc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "details": err.Error()})
			return
		}

		user, err := userSvc.Create(c.Request.Context(), users.CreateUserRequest{
			Username:     strings.TrimSpace(req.Username),
			Email:        strings.ToLower(strings.TrimSpace(req.Email)),
			Organisation: strings.TrimSpace(req.Organisation),
			DateOfBirth:  req.DateOfBirth,
		})
		if err != nil {
			if errors.Is(err, users.ErrAlreadyExists) {
				c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
				return
			}
			log.Println("[USERS] [ERROR] register failed:", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
			return
		}

		pair, err := authSvc.Register(c.Request.Context(), user.UserID, req.Password)
		if err != nil {
			writeAuthError(c, err)
			return
		}

		log.Println("[AUTH] [INFO] user registered:", user.Username)
		c.JSON(http.StatusCreated, RegisterResponse{UserID: user.UserID, Tokens: pair})
	}
}

// ValidateEmail flips the email-verified flag; confirmation-link callbacks
// land here.
func ValidateEmail(userSvc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.Query("userId"))
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
			return
		}

		user, err := userSvc.UserByID(c.Request.Context(), userID)
		if err != nil {
			log.Println("[USERS] [ERROR] email validation lookup failed:", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
			return
		}
		if user == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown user"})
			return
		}

		user.EmailVerified = true
		if err := userSvc.Update(c.Request.Context(), user); err != nil {
			log.Println("[USERS] [ERROR] email validation update failed:", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"message": "email verified"})
	}
}
