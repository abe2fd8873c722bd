package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// UsersHandler exposes the admin account-management endpoints.
type UsersHandler struct {
	service *service.UserService
}

// NewUsersHandler constructs the handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{service: userService}
}

// Create POST /users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var payload dto.CreateUserPayload
	if err := c.BodyParser(&payload); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	user, err := h.service.Create(c.UserContext(), service.UserCreateInput{
		Username:   payload.Username,
		FullName:   payload.FullName,
		Department: payload.Department,
		Position:   payload.Position,
		Role:       payload.Role,
		Password:   payload.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// List GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.service.List(c.UserContext(), parseIntQuery(c, "limit", 0))
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Update PUT /users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	var payload dto.UpdateUserPayload
	if err := c.BodyParser(&payload); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	user, err := h.service.Update(c.UserContext(), c.Params("id"), service.UserUpdateInput{
		Username:   payload.Username,
		FullName:   payload.FullName,
		Department: payload.Department,
		Position:   payload.Position,
		Role:       payload.Role,
		Password:   payload.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Delete DELETE /users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.Principal(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	if err := h.service.Delete(c.UserContext(), principal, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
