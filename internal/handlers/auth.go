package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"projectx/internal/auth"
	"projectx/internal/middleware"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Login exchanges a username/password for a token pair.
func Login(authSvc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
			return
		}

		pair, err := authSvc.Login(c.Request.Context(), strings.TrimSpace(req.Username), req.Password)
		if err != nil {
			writeAuthError(c, err)
			return
		}

		c.JSON(http.StatusOK, pair)
	}
}

// Refresh exchanges a refresh token for a new pair, rotating it.
func Refresh(authSvc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "refreshToken is required"})
			return
		}

		pair, err := authSvc.Refresh(c.Request.Context(), strings.TrimSpace(req.RefreshToken))
		if err != nil {
			writeAuthError(c, err)
			return
		}

		c.JSON(http.StatusOK, pair)
	}
}

// Validate echoes the caller's validated claims. Debug endpoint, guarded.
func Validate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := middleware.AccessTokenFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.JSON(http.StatusOK, token)
	}
}

// writeAuthError maps service failures to responses. Every authentication
// failure collapses to one generic 401 body so the endpoint never reveals
// whether the username, the password or the token was the problem. Store and
// directory faults stay distinct.
func writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrTokenRevoked):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
	case errors.Is(err, auth.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "already registered"})
	case errors.Is(err, auth.ErrUpstreamUnavailable):
		log.Println("[AUTH] [ERROR] upstream unavailable:", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
	default:
		log.Println("[AUTH] [ERROR] internal error:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
