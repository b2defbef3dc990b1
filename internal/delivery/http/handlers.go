package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/smartcity/transitnet/internal/domain"
	"github.com/smartcity/transitnet/internal/service"
)

// Handler contains all HTTP handlers
type Handler struct {
	dashboardSvc *service.DashboardService
	repo         domain.EventRepository
}

// NewHandler creates a new handler
func NewHandler(dashboardSvc *service.DashboardService, repo domain.EventRepository) *Handler {
	return &Handler{
		dashboardSvc: dashboardSvc,
		repo:         repo,
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	status := "ok"
	if err := h.repo.Health(c.Context()); err != nil {
		status = "degraded"
	}
	return c.JSON(fiber.Map{
		"status":  status,
		"service": "transitnet",
		"version": "1.0.0",
	})
}

// GetDashboard returns the aggregated live simulation view
func (h *Handler) GetDashboard(c *fiber.Ctx) error {
	data := h.dashboardSvc.GetDashboard(c.Context())
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// GetVehicles returns the latest fleet snapshots
func (h *Handler) GetVehicles(c *fiber.Ctx) error {
	vehicles := h.dashboardSvc.GetVehicles()
	return c.JSON(fiber.Map{
		"success": true,
		"data":    vehicles,
		"count":   len(vehicles),
	})
}

// GetNetwork returns the road network with live weights
func (h *Handler) GetNetwork(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.dashboardSvc.GetNetwork(),
	})
}

// GetEvents returns the newest persisted events
func (h *Handler) GetEvents(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	if limit < 1 || limit > 1000 {
		limit = 100
	}

	events, err := h.dashboardSvc.GetRecentEvents(c.Context(), limit)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch events")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    events,
		"count":   len(events),
	})
}

// GetRequestHistory returns archived requests within a time range
func (h *Handler) GetRequestHistory(c *fiber.Ctx) error {
	hours := c.QueryInt("hours", 24)
	if hours < 1 || hours > 720 { // max 30 days
		hours = 24
	}

	to := time.Now()
	from := to.Add(-time.Duration(hours) * time.Hour)

	data, err := h.dashboardSvc.GetRequestHistory(c.Context(), from, to)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch request history")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"count":   len(data),
	})
}
