package server

import (
	"context"
	"time"

	"auction-market/services/auction/helpers"
	"auction-market/utils"

	"github.com/gin-gonic/gin"
)

// Authenticator resolves a session token to an account ID
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	utils.Info("HTTP Request", map[string]any{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"status":     c.Writer.Status(),
		"latency":    time.Since(start).String(),
		"account_id": helpers.CallerID(c),
	})
}

// AuthMiddleware rejects requests without a valid bearer token and stores the caller's account ID
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, err := auth.Authenticate(c.Request.Context(), helpers.BearerToken(c))
		if err != nil {
			helpers.HandleServiceError(c, "AuthMiddleware", err, map[string]any{"path": c.Request.URL.Path})
			return
		}
		c.Set(helpers.AccountIDKey, accountID)
		c.Next()
	}
}
