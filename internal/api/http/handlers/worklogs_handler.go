package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// WorklogsHandler exposes worklog endpoints.
type WorklogsHandler struct {
	service *service.WorklogService
}

// NewWorklogsHandler constructs the handler.
func NewWorklogsHandler(worklogService *service.WorklogService) *WorklogsHandler {
	return &WorklogsHandler{service: worklogService}
}

// Add POST /requests/:id/worklogs.
func (h *WorklogsHandler) Add(c *fiber.Ctx) error {
	principal, ok := auth.Principal(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	var payload dto.AddWorklogPayload
	if err := c.BodyParser(&payload); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	wl, err := h.service.Add(c.UserContext(), principal, c.Params("id"), payload.Hours, payload.Note, payload.LoggedAt)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": wl})
}

// ListByRequest GET /requests/:id/worklogs.
func (h *WorklogsHandler) ListByRequest(c *fiber.Ctx) error {
	principal, ok := auth.Principal(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	logs, err := h.service.ListByRequest(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": logs})
}

// ListMine GET /me/worklogs.
func (h *WorklogsHandler) ListMine(c *fiber.Ctx) error {
	principal, ok := auth.Principal(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	logs, daySums, err := h.service.ListMine(c.UserContext(), principal, parseTimeQuery(c, "from"), parseTimeQuery(c, "to"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": logs, "day_sums": daySums})
}
