package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// TrashHandler exposes the soft-delete endpoints.
type TrashHandler struct {
	service *service.TrashService
}

// NewTrashHandler constructs the handler.
func NewTrashHandler(trashService *service.TrashService) *TrashHandler {
	return &TrashHandler{service: trashService}
}

// SoftDelete DELETE /requests/:id.
func (h *TrashHandler) SoftDelete(c *fiber.Ctx) error {
	principal, ok := auth.Principal(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	entry, err := h.service.SoftDelete(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": entry})
}

// List GET /trash.
func (h *TrashHandler) List(c *fiber.Ctx) error {
	var search *string
	if v := c.Query("search"); v != "" {
		search = &v
	}
	items, meta, err := h.service.List(c.UserContext(), search, parseIntQuery(c, "page", 1), parseIntQuery(c, "page_size", 10))
	if err != nil {
		return err
	}
	return c.JSON(dto.PageEnvelope{Data: items, Meta: meta})
}

// Restore POST /trash/:id/restore.
func (h *TrashHandler) Restore(c *fiber.Ctx) error {
	req, err := h.service.Restore(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": req})
}

// Purge DELETE /trash/:id.
func (h *TrashHandler) Purge(c *fiber.Ctx) error {
	if err := h.service.Purge(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
