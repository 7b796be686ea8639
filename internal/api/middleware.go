package api

import (
	"net/http"
	"strings"
	"time"

	"tier-rewards-go/internal/auth"
	"tier-rewards-go/internal/models"
	"tier-rewards-go/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	claimsKey = "claims"
	userKey   = "user"
)

// LoggerMiddleware logs one line per request.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		if query != "" {
			path = path + "?" + query
		}
		zap.L().Info("HTTP request",
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("method", c.Request.Method),
			zap.String("path", path))
	}
}

// RecoveryMiddleware turns a handler panic into a server error envelope.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				zap.L().Error("Handler panic",
					zap.Any("panic", err),
					zap.String("path", c.Request.URL.Path))
				c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
					Code:    CodeServerError,
					Message: retryMessage,
				})
			}
		}()
		c.Next()
	}
}

// CORSMiddleware allows the configured origins, or any origin when none are set.
func CORSMiddleware(allowOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowOrigins))
	for _, o := range allowOrigins {
		allowed[o] = struct{}{}
	}
	return func(c *gin.Context) {
		origin := "*"
		if len(allowed) > 0 {
			origin = ""
			if _, ok := allowed[c.GetHeader("Origin")]; ok {
				origin = c.GetHeader("Origin")
			}
		}
		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// AuthMiddleware verifies the bearer token, loads the caller and attaches
// their session to the request context.
func (s *Server) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Code: CodeUnauthorized, Message: "missing bearer token"})
			return
		}
		claims, err := s.accounts.Tokens().Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Code: CodeUnauthorized, Message: "invalid token"})
			return
		}

		user, err := s.records.GetUserById(c.Request.Context(), claims.UserId)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Code: CodeUnauthorized, Message: "unknown user"})
			return
		}

		sess := session.New(claims.UserId, user, s.sessions)
		c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), sess))
		c.Set(claimsKey, claims)
		c.Set(userKey, user)
		c.Next()
	}
}

// AdminOnly rejects callers whose stored account is not an admin. The token
// role alone is not enough.
func (s *Server) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := callerUser(c); user == nil || !user.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, Response{Code: CodeForbidden, Message: "admin role required"})
			return
		}
		c.Next()
	}
}

func callerClaims(c *gin.Context) *auth.Claims {
	v, _ := c.Get(claimsKey)
	claims, _ := v.(*auth.Claims)
	return claims
}

// callerUser is the account as loaded from the store for this request.
func callerUser(c *gin.Context) *models.User {
	v, _ := c.Get(userKey)
	user, _ := v.(*models.User)
	return user
}
