package handler

import (
	"net/http"

	"strangerly/backend/internal/logger"
	"strangerly/backend/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// RateLimit rejects requests from a client address over its budget.
func RateLimit(l *ratelimit.IPLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			logger.Ctx(c.Request.Context()).Debug().
				Str(logger.FieldClientIP, c.ClientIP()).
				Msg("request rate limited")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "too many requests"})
			return
		}
		c.Next()
	}
}

// CORS lets browser clients on other origins call the JSON endpoints.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
