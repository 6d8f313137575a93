package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates the HTTP router with all routes configured
func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	setupRoutes(r, handler)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	r.GET("/health", handler.GetHealth)

	r.POST("/api/auth", handler.Login)
	r.DELETE("/api/auth", handler.Logout)

	api := r.Group("/api")
	api.Use(sessionMiddleware(handler.sessionSecret))
	{
		api.GET("/items", handler.GetItems)
		api.PATCH("/items/:id", handler.PatchItem)

		api.GET("/sources", handler.ListSources)
		api.POST("/sources", handler.CreateSource)
		api.PATCH("/sources", handler.PatchSource)
		api.DELETE("/sources", handler.DeleteSource)

		api.POST("/refresh", handler.RefreshAll)
		api.POST("/sources/:id/refresh", handler.RefreshSource)

		api.GET("/stats", handler.GetStats)
		api.GET("/notes/export", handler.ExportNotes)
	}

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}
