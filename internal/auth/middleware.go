package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

const principalKey = "auth.principal"

// Middleware authenticates requests and loads the acting user.
type Middleware struct {
	tokens *TokenManager
	users  repository.UserRepository
}

func NewMiddleware(tokens *TokenManager, users repository.UserRepository) *Middleware {
	return &Middleware{tokens: tokens, users: users}
}

// Authenticate verifies the bearer token and stores the principal in locals.
func (m *Middleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return util.NewUnauthorized("missing authorization header")
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return util.NewUnauthorized("malformed authorization header")
		}
		claims, err := m.tokens.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			return util.NewUnauthorized("invalid or expired token")
		}
		user, err := m.users.GetByID(c.UserContext(), claims.SubjectID)
		if err != nil {
			return util.NewUnauthorized("unknown principal")
		}
		c.Locals(principalKey, user)
		return c.Next()
	}
}

// Principal returns the authenticated user stored by Authenticate.
func Principal(c *fiber.Ctx) (*domain.User, bool) {
	user, ok := c.Locals(principalKey).(*domain.User)
	return user, ok
}
