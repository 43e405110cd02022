package auth

import "github.com/gofiber/fiber/v2"

const identityKey = "auth.identity"

// SetIdentity stores the verified caller on the request.
func SetIdentity(c *fiber.Ctx, id Identity) {
	c.Locals(identityKey, id)
}

// IdentityFrom returns the caller stored by SetIdentity.
func IdentityFrom(c *fiber.Ctx) (Identity, bool) {
	id, ok := c.Locals(identityKey).(Identity)
	return id, ok
}
