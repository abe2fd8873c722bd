package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// RequestsHandler exposes the request lifecycle endpoints.
type RequestsHandler struct {
	service *service.RequestService
}

// NewRequestsHandler constructs the handler.
func NewRequestsHandler(requestService *service.RequestService) *RequestsHandler {
	return &RequestsHandler{service: requestService}
}

// Create POST /requests.
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.Principal(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	var payload dto.CreateRequestPayload
	if err := c.BodyParser(&payload); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	req, err := h.service.Create(c.UserContext(), principal, service.RequestCreateInput{
		Title:          payload.Title,
		Description:    payload.Description,
		Priority:       payload.Priority,
		Type:           payload.Type,
		Channel:        payload.Channel,
		Department:     payload.Department,
		RequestedAt:    payload.RequestedAt,
		Level:          payload.Level,
		AssignedTo:     payload.AssignedTo,
		EstimatedHours: payload.EstimatedHours,
		EstimatedDue:   payload.EstimatedDue,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": req})
}

// List GET /requests.
func (h *RequestsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.Principal(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	input := parseRequestListQuery(c)
	items, meta, err := h.service.List(c.UserContext(), principal, input)
	if err != nil {
		return err
	}
	return c.JSON(dto.PageEnvelope{Data: items, Meta: meta})
}

// Get GET /requests/:id.
func (h *RequestsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.Principal(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	req, err := h.service.Get(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": req})
}

// History GET /requests/:id/history.
func (h *RequestsHandler) History(c *fiber.Ctx) error {
	principal, ok := auth.Principal(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	events, err := h.service.History(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	if events == nil {
		events = []domain.StatusEvent{}
	}
	return c.JSON(fiber.Map{"data": events})
}

// Classify PATCH /requests/:id/classify.
func (h *RequestsHandler) Classify(c *fiber.Ctx) error {
	principal, ok := auth.Principal(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	var payload dto.ClassifyRequestPayload
	if err := c.BodyParser(&payload); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	req, err := h.service.Classify(c.UserContext(), principal, c.Params("id"), payload.Level, payload.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": req})
}

// Assign PATCH /requests/:id/assign.
func (h *RequestsHandler) Assign(c *fiber.Ctx) error {
	principal, ok := auth.Principal(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	var payload dto.AssignRequestPayload
	if err := c.BodyParser(&payload); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	req, err := h.service.Assign(c.UserContext(), principal, c.Params("id"), strings.TrimSpace(payload.AssignedTo), payload.EstimatedHours, payload.EstimatedDue)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": req})
}

// Transition PATCH /requests/:id/status.
func (h *RequestsHandler) Transition(c *fiber.Ctx) error {
	principal, ok := auth.Principal(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	var payload dto.TransitionRequestPayload
	if err := c.BodyParser(&payload); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if payload.Status == "" {
		return util.NewValidationError("status is required", nil)
	}
	req, err := h.service.Transition(c.UserContext(), principal, c.Params("id"), service.TransitionInput{
		ToStatus:     payload.Status,
		Comment:      payload.Comment,
		EvidenceLink: payload.EvidenceLink,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": req})
}

// Feedback POST /requests/:id/feedback.
func (h *RequestsHandler) Feedback(c *fiber.Ctx) error {
	principal, ok := auth.Principal(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	var payload dto.FeedbackPayload
	if err := c.BodyParser(&payload); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	req, err := h.service.SubmitFeedback(c.UserContext(), principal, c.Params("id"), payload.Rating, payload.Comment)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": req})
}

func parseRequestListQuery(c *fiber.Ctx) service.RequestListInput {
	input := service.RequestListInput{
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "page_size", 10),
	}

	if v := c.Query("status"); v != "" {
		status := domain.RequestStatus(strings.ToUpper(v))
		input.Status = &status
	}
	if v := c.Query("department"); v != "" {
		input.Department = &v
	}
	if v := c.Query("type"); v != "" {
		t := domain.RequestType(strings.ToUpper(v))
		input.Type = &t
	}
	if v := c.Query("level"); v != "" {
		if level, err := strconv.Atoi(v); err == nil {
			input.Level = &level
		}
	}
	if v := c.Query("assigned_to"); v != "" {
		input.AssignedTo = &v
	}
	if v := c.Query("channel"); v != "" {
		channel := domain.RequestChannel(strings.ToUpper(v))
		input.Channel = &channel
	}
	if t := parseTimeQuery(c, "requested_from"); t != nil {
		input.RequestedFrom = t
	}
	if t := parseTimeQuery(c, "requested_to"); t != nil {
		input.RequestedTo = t
	}
	if v := c.Query("search"); v != "" {
		input.Search = &v
	}

	sort := c.Query("sort", "-created_at")
	if strings.HasPrefix(sort, "-") {
		input.SortDesc = true
		sort = strings.TrimPrefix(sort, "-")
	}
	input.SortField = sort
	return input
}

func parseIntQuery(c *fiber.Ctx, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseTimeQuery(c *fiber.Ctx, key string) *time.Time {
	v := c.Query(key)
	if v == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		utc := t.UTC()
		return &utc
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		utc := t.UTC()
		return &utc
	}
	return nil
}
