package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// ConfigHandler exposes the application configuration endpoints.
type ConfigHandler struct {
	service *service.AppConfigService
}

// NewConfigHandler constructs the handler.
func NewConfigHandler(configService *service.AppConfigService) *ConfigHandler {
	return &ConfigHandler{service: configService}
}

// Get GET /config.
func (h *ConfigHandler) Get(c *fiber.Ctx) error {
	cfg, err := h.service.Current(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": cfg})
}

// Replace PUT /config.
func (h *ConfigHandler) Replace(c *fiber.Ctx) error {
	var payload dto.ReplaceConfigPayload
	if err := c.BodyParser(&payload); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	cfg, err := h.service.Replace(c.UserContext(), domain.AppConfig{
		Departments:    payload.Departments,
		RequestOptions: payload.RequestOptions,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": cfg})
}

// ReplaceDepartments PUT /config/departments.
func (h *ConfigHandler) ReplaceDepartments(c *fiber.Ctx) error {
	var payload dto.ReplaceDepartmentsPayload
	if err := c.BodyParser(&payload); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	cfg, err := h.service.ReplaceDepartments(c.UserContext(), payload.Departments)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": cfg})
}

// ReplaceRequestOptions PUT /config/request-options.
func (h *ConfigHandler) ReplaceRequestOptions(c *fiber.Ctx) error {
	var payload domain.RequestOptions
	if err := c.BodyParser(&payload); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	cfg, err := h.service.ReplaceRequestOptions(c.UserContext(), payload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": cfg})
}

// Departments GET /departments.
func (h *ConfigHandler) Departments(c *fiber.Ctx) error {
	departments, err := h.service.Departments(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": departments})
}
