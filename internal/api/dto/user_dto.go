package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// LoginPayload accepts credentials. The handler resolves both JSON and form
// bodies into this one shape.
type LoginPayload struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// TokenResponse returns an issued access token.
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        UserResponse `json:"user"`
}

// CreateUserPayload is the admin account-creation body.
type CreateUserPayload struct {
	Username   string      `json:"username"`
	FullName   string      `json:"full_name"`
	Department []string    `json:"department"`
	Position   string      `json:"position"`
	Role       domain.Role `json:"role"`
	Password   string      `json:"password"`
}

// UpdateUserPayload is the admin partial-update body.
type UpdateUserPayload struct {
	Username   *string      `json:"username"`
	FullName   *string      `json:"full_name"`
	Department []string     `json:"department"`
	Position   *string      `json:"position"`
	Role       *domain.Role `json:"role"`
	Password   *string      `json:"password"`
}

// UpdateProfilePayload is the self-service profile body.
type UpdateProfilePayload struct {
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
}

// UserResponse is the account shape exposed over the API. The password hash
// never leaves the service.
type UserResponse struct {
	ID         string      `json:"id"`
	Username   string      `json:"username"`
	FullName   string      `json:"full_name"`
	Department []string    `json:"department"`
	Position   string      `json:"position"`
	Role       domain.Role `json:"role"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(user *domain.User) UserResponse {
	department := user.Department
	if department == nil {
		department = []string{}
	}
	return UserResponse{
		ID:         user.ID,
		Username:   user.Username,
		FullName:   user.FullName,
		Department: department,
		Position:   user.Position,
		Role:       user.Role,
		CreatedAt:  user.CreatedAt,
		UpdatedAt:  user.UpdatedAt,
	}
}
