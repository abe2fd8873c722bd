package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// AuthHandler exposes login and self-service profile endpoints.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Login POST /auth/login. Accepts a JSON body or classic form fields; both
// resolve to the same credential pair before the service is called.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var payload dto.LoginPayload
	contentType := string(c.Request().Header.ContentType())
	if strings.Contains(contentType, fiber.MIMEApplicationJSON) {
		if err := c.BodyParser(&payload); err != nil {
			return util.NewValidationError("invalid payload", nil)
		}
	} else {
		payload.Username = c.FormValue("username")
		payload.Password = c.FormValue("password")
	}

	user, token, expiresAt, err := h.service.Login(c.UserContext(), payload.Username, payload.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		User:        dto.NewUserResponse(user),
	})
}

// Me GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.Principal(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(principal)})
}

// UpdateProfile PATCH /auth/me.
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	principal, ok := auth.Principal(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	var payload dto.UpdateProfilePayload
	if err := c.BodyParser(&payload); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	user, err := h.service.UpdateProfile(c.UserContext(), principal, payload.FullName, payload.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}
