package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// MetricsHandler exposes the reporting endpoints.
type MetricsHandler struct {
	service *service.MetricsService
}

// NewMetricsHandler constructs the handler.
func NewMetricsHandler(metricsService *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{service: metricsService}
}

// Summary GET /metrics/summary.
func (h *MetricsHandler) Summary(c *fiber.Ctx) error {
	period := c.Query("period", "daily")
	extended := c.QueryBool("extended", false)
	report, err := h.service.Summary(c.UserContext(), period, extended)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}

// ReopenRate GET /metrics/reopen-rate.
func (h *MetricsHandler) ReopenRate(c *fiber.Ctx) error {
	start := parseTimeQuery(c, "start")
	end := parseTimeQuery(c, "end")
	if start == nil || end == nil {
		return util.NewValidationError("start and end are required", nil)
	}
	if !end.After(*start) {
		return util.NewValidationError("end must be after start", nil)
	}
	rate, err := h.service.ReopenRate(c.UserContext(), *start, *end)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"start":       start.Format(time.RFC3339),
		"end":         end.Format(time.RFC3339),
		"reopen_rate": rate,
	}})
}
