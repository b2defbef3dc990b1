package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smartcity/transitnet/internal/domain"
	"github.com/smartcity/transitnet/internal/service"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, dashboardSvc *service.DashboardService, repo domain.EventRepository) {
	handler := NewHandler(dashboardSvc, repo)

	// Health check
	app.Get("/health", handler.HealthCheck)

	// API v1 routes
	api := app.Group("/api/v1")
	{
		api.Get("/dashboard", handler.GetDashboard)
		api.Get("/vehicles", handler.GetVehicles)
		api.Get("/network", handler.GetNetwork)
		api.Get("/events", handler.GetEvents)
		api.Get("/requests", handler.GetRequestHistory)
	}
}
