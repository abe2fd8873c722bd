package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// UserService manages user accounts on behalf of administrators.
type UserService struct {
	users      repository.UserRepository
	requests   repository.RequestRepository
	bcryptCost int
	now        func() time.Time
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, requests repository.RequestRepository, bcryptCost int) *UserService {
	return &UserService{
		users:      users,
		requests:   requests,
		bcryptCost: bcryptCost,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// UserCreateInput describes an account creation payload.
type UserCreateInput struct {
	Username   string
	FullName   string
	Department []string
	Position   string
	Role       domain.Role
	Password   string
}

// UserUpdateInput describes a partial account update.
type UserUpdateInput struct {
	Username   *string
	FullName   *string
	Department []string
	Position   *string
	Role       *domain.Role
	Password   *string
}

// Create registers a new account. Usernames are unique.
func (s *UserService) Create(ctx context.Context, input UserCreateInput) (*domain.User, error) {
	username := strings.TrimSpace(strings.ToLower(input.Username))
	if username == "" {
		return nil, util.NewValidationError("username is required", nil)
	}
	if len(input.Password) < 6 {
		return nil, util.NewValidationError("password must be at least 6 characters", nil)
	}
	role := input.Role
	if role == "" {
		role = domain.RoleEmployee
	}
	if !validRole(role) {
		return nil, util.NewValidationError("unknown role", map[string]any{"role": role})
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, util.NewAlreadyExists("username already taken", map[string]any{"username": username})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		FullName:     strings.TrimSpace(input.FullName),
		Department:   input.Department,
		Position:     strings.TrimSpace(input.Position),
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if user.Department == nil {
		user.Department = []string{}
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Get fetches one account.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// List returns accounts up to a cap.
func (s *UserService) List(ctx context.Context, limit int) ([]domain.User, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	users, err := s.users.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// Update applies a partial account change, rehashing the password when one
// is supplied.
func (s *UserService) Update(ctx context.Context, id string, input UserUpdateInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Username != nil {
		username := strings.TrimSpace(strings.ToLower(*input.Username))
		if username == "" {
			return nil, util.NewValidationError("username must not be empty", nil)
		}
		if username != user.Username {
			if _, err := s.users.GetByUsername(ctx, username); err == nil {
				return nil, util.NewAlreadyExists("username already taken", map[string]any{"username": username})
			} else if !errors.Is(err, pgx.ErrNoRows) {
				return nil, err
			}
			user.Username = username
		}
	}
	if input.FullName != nil {
		user.FullName = strings.TrimSpace(*input.FullName)
	}
	if input.Department != nil {
		user.Department = input.Department
	}
	if input.Position != nil {
		user.Position = strings.TrimSpace(*input.Position)
	}
	if input.Role != nil {
		if !validRole(*input.Role) {
			return nil, util.NewValidationError("unknown role", map[string]any{"role": *input.Role})
		}
		user.Role = *input.Role
	}
	if input.Password != nil {
		if len(*input.Password) < 6 {
			return nil, util.NewValidationError("password must be at least 6 characters", nil)
		}
		hash, err := auth.HashPassword(*input.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes an account. The caller may not delete themselves, the last
// admin, or anyone still holding open assigned requests.
func (s *UserService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if actor.ID == id {
		return util.NewValidationError("cannot delete your own account", nil)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if user.Role == domain.RoleAdmin {
		admins, err := s.users.CountByRole(ctx, domain.RoleAdmin)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return util.NewInvalidState("cannot delete the last admin")
		}
	}

	open, err := s.requests.CountOpenAssignedTo(ctx, id)
	if err != nil {
		return err
	}
	if open > 0 {
		return util.NewInvalidState("user still has open assigned requests")
	}

	return s.users.Delete(ctx, id)
}

func validRole(role domain.Role) bool {
	switch role {
	case domain.RoleAdmin, domain.RoleSupport, domain.RoleEmployee:
		return true
	}
	return false
}
