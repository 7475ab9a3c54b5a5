package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pders01/feedagg/internal/debuglog"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(requestLogger())
	r.Use(gin.Recovery())

	setupRoutes(r, handler)
	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	r.GET("/health", handler.GetHealth)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/feeds", handler.ListFeeds)
		v1.GET("/items", handler.ListItems)
		v1.GET("/search", handler.Search)
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "feedagg",
			"endpoints": map[string]string{
				"health": "/health",
				"feeds":  "/api/v1/feeds",
				"items":  "/api/v1/items?category=&since=&limit=&q=",
				"search": "/api/v1/search?q=&limit=",
			},
		})
	})
}

// requestLogger routes access logs through debuglog at debug level.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		debuglog.WithFields(map[string]interface{}{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debugf("http request")
	}
}
