package api

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cinesync/cinesync/internal/auth"
)

// RequestLoggerMiddleware tags each request with an id and logs its outcome
func RequestLoggerMiddleware(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Start timer
		start := time.Now()
		path := c.Request.URL.Path

		requestID := uuid.NewString()
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		// Process request
		c.Next()

		// Calculate response time
		latency := time.Since(start)

		// Log request details
		logger.Printf(
			"[%s] %s %s %s | %d | %s | %s",
			c.ClientIP(),
			requestID,
			c.Request.Method,
			path,
			c.Writer.Status(),
			latency,
			c.Errors.String(),
		)
	}
}

// AdminAuthMiddleware validates the operator bearer token and requires the
// admin role.
func AdminAuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}

		claims, err := jwtManager.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid access token"})
			return
		}

		if claims.Role != auth.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin role required"})
			return
		}

		c.Set("operator", claims.Name)
		c.Next()
	}
}
