package account

import (
	"context"
	"strings"

	"github.com/congo-pay/agentcash/internal/apperr"
)

// Resolve maps a human-entered identifier to exactly one account: anything
// containing "@" is treated as an email, everything else as a phone number.
// The returned error never says which field was tried.
func Resolve(ctx context.Context, f Finder, identifier string) (Account, error) {
	id := strings.TrimSpace(identifier)
	if id == "" {
		return Account{}, apperr.ErrAccountNotFound
	}
	if IsEmail(id) {
		return f.FindByEmail(ctx, NormalizeEmail(id))
	}
	return f.FindByPhone(ctx, id)
}

// IsEmail reports whether identifier is email-shaped.
func IsEmail(identifier string) bool {
	return strings.Contains(identifier, "@")
}
