package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/auth"
)

// JWTAuth returns a middleware that validates bearer access tokens and stores
// the caller identity on the request.
func JWTAuth(tokens *auth.Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return apperr.ErrMissingToken
		}
		id, err := tokens.Verify(strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return err
		}
		auth.SetIdentity(c, id)
		return c.Next()
	}
}

// RequireRole rejects callers whose token carries a different role.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := auth.IdentityFrom(c)
		if !ok {
			return apperr.ErrMissingToken
		}
		if string(id.Role) != role {
			return apperr.New(apperr.ErrUnauthorized, "forbidden_role", "this operation requires the "+role+" role")
		}
		return c.Next()
	}
}

// RequireAdmin admits only Approved callers on the administrator list and
// stores their account for the handler.
func RequireAdmin(accounts *account.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := auth.IdentityFrom(c)
		if !ok {
			return apperr.ErrMissingToken
		}
		admin, err := accounts.Admin(c.UserContext(), id.AccountID)
		if err != nil {
			return err
		}
		account.SetActor(c, admin)
		return c.Next()
	}
}
