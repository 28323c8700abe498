package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/internal/dto"
	"github.com/prperemyshlev/identity-service/internal/service"
)

const contextUserID = "user_id"

// AuthMiddleware validates the bearer access token and adds the user id to context
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, authService) {
			return
		}
		c.Next()
	}
}

// OptionalAuthMiddleware authenticates the request only when an
// Authorization header is present. A bad header is still rejected.
func OptionalAuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != "" && !authenticate(c, authService) {
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, authService service.AuthService) bool {
	// Extract token from "Bearer <token>"
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		c.AbortWithStatusJSON(domain.ErrInvalidAccessToken.Status(), dto.NewErrorResponse(domain.ErrInvalidAccessToken))
		return false
	}

	claims, err := authService.ValidateAccessToken(c.Request.Context(), token)
	if err != nil {
		c.AbortWithStatusJSON(domain.ErrInvalidAccessToken.Status(), dto.NewErrorResponse(domain.ErrInvalidAccessToken))
		return false
	}

	c.Set(contextUserID, claims.UserID)
	return true
}
