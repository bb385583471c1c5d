package routes

import (
	"classnotifier/internal/handlers"
	"classnotifier/internal/security"

	"github.com/labstack/echo/v4"
)

func SetupRoutes(api *echo.Group) {
	// Public routes
	api.GET("/health", handlers.HealthCheck)

	// Notification routes with rate limiting
	notifications := api.Group("/notifications")
	notifications.Use(security.RateLimitMiddleware)
	notifications.GET("/test", handlers.TestNotification)
	notifications.POST("/test", handlers.TestNotification)
	notifications.POST("/scan", handlers.TriggerScan)

	// Job routes
	jobs := api.Group("/jobs")
	jobs.GET("/:id", handlers.GetScanStatus)
}
