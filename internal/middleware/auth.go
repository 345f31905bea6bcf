// Package middleware provides gin middleware for the HTTP layer.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/comment-lens/youtube-comment-analysis-go/internal/models"
	"github.com/comment-lens/youtube-comment-analysis-go/pkg/logger"
)

const (
	headerSessionToken = "X-Session-Token"
	headerAuth         = "Authorization"
	bearerPrefix       = "Bearer "

	userIDKey = "userID"
)

// SessionAuth resolves a caller identity from a session token.
type SessionAuth struct {
	tokens map[string]int64
}

// NewSessionAuth creates session authentication middleware from a
// token-to-user mapping. With no tokens configured every request is
// rejected.
func NewSessionAuth(tokens map[string]int64) *SessionAuth {
	valid := make(map[string]int64, len(tokens))
	for token, userID := range tokens {
		if token != "" {
			valid[token] = userID
		}
	}

	return &SessionAuth{tokens: valid}
}

// Middleware validates the session token and stores the resolved user ID in
// the request context. Tokens are read from X-Session-Token or
// Authorization: Bearer, in that order. Comparison is constant-time.
func (a *SessionAuth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)

		userID, ok := a.resolve(token)
		if !ok {
			logger.Log.Warn("Unauthorized request",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.String("remoteAddr", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Status:    http.StatusUnauthorized,
				Error:     "Unauthorized",
				Message:   "invalid or missing session token",
				Timestamp: time.Now(),
				Path:      c.Request.URL.Path,
			})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if token := c.GetHeader(headerSessionToken); token != "" {
		return token
	}

	authHeader := c.GetHeader(headerAuth)
	if strings.HasPrefix(authHeader, bearerPrefix) {
		return strings.TrimPrefix(authHeader, bearerPrefix)
	}

	return ""
}

func (a *SessionAuth) resolve(token string) (int64, bool) {
	if token == "" || len(a.tokens) == 0 {
		return 0, false
	}

	// Constant-time comparison against every configured token.
	var userID int64
	found := false
	for valid, id := range a.tokens {
		if subtle.ConstantTimeCompare([]byte(token), []byte(valid)) == 1 {
			userID = id
			found = true
		}
	}

	return userID, found
}

// UserID returns the authenticated user ID stored by the middleware.
func UserID(c *gin.Context) int64 {
	id, _ := c.Get(userIDKey)
	userID, _ := id.(int64)
	return userID
}
