package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/duongdat/filehub-backend/internal/auth"
	apperrors "github.com/duongdat/filehub-backend/internal/pkg/errors"
	"github.com/duongdat/filehub-backend/internal/pkg/logger"
	"github.com/duongdat/filehub-backend/internal/pkg/response"
)

// Context keys set by the auth middleware
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// JWTAuth validates the bearer token and injects the caller identity
func JWTAuth(jwtManager *auth.JWTManager, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		token, err := auth.ExtractTokenFromHeader(authHeader)
		if err != nil {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := jwtManager.VerifyToken(token)
		if err != nil {
			log.Warn("invalid access token",
				zap.Error(err),
				zap.String("ip", c.ClientIP()))
			response.ErrorWithCode(c, apperrors.ErrAuthInvalidToken)
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)

		c.Next()
	}
}

// GetUserID returns the authenticated user id from the request context
func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(ContextUserID)
	if !exists {
		return 0, false
	}
	id, ok := userID.(int64)
	return id, ok
}

// GetRole returns the authenticated user's global role
func GetRole(c *gin.Context) (string, bool) {
	role, exists := c.Get(ContextRole)
	if !exists {
		return "", false
	}
	r, ok := role.(string)
	return r, ok
}

// CORS allows cross-origin requests from the frontend
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			c.Header("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization")
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
