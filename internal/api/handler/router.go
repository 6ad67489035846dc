package handler

import (
	"strangerly/backend/internal/logger"
	"strangerly/backend/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewRouter builds the gin engine with every HTTP route of the server.
func NewRouter(h *Handler, l *zerolog.Logger, reports *ratelimit.IPLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware(l), CORS())

	r.GET("/health", h.Health)
	r.POST("/report", RateLimit(reports), h.Report)
	r.GET("/ws", h.ServeWebSocket)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
