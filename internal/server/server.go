package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer builds the router that serves the dashboard live from the published log.
func NewServer(handler *Handler, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(requestLogger(logger))
	r.Use(gin.Recovery())

	r.GET("/", handler.Dashboard)
	r.GET("/health", handler.Health)

	api := r.Group("/api")
	{
		api.GET("/moments", handler.ListMoments)
	}

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})

	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
