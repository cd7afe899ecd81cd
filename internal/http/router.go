package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"fleet-alerts-service/internal/http/middleware"
)

func NewRouter(handler *Handler, authMiddleware gin.HandlerFunc, environment string) *gin.Engine {
	if environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	protected := r.Group("/")
	protected.Use(authMiddleware)

	protected.POST("/checks", middleware.RequireAdmin(), handler.runCheck)
	protected.POST("/settings/apply-to-all", middleware.RequireAdmin(), handler.applySettingsToAll)

	protected.GET("/alerts", handler.listAlerts)
	protected.GET("/alerts/unread", handler.unreadCount)
	protected.GET("/alerts/stream", handler.streamAlerts)
	protected.POST("/alerts/:id/ack", handler.acknowledgeAlert)

	return r
}
