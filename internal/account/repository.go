package account

import (
	"context"

	"github.com/congo-pay/agentcash/internal/money"
)

// Finder looks accounts up. Implementations return apperr.ErrAccountNotFound
// when nothing matches.
type Finder interface {
	FindByID(ctx context.Context, id string) (Account, error)
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByPhone(ctx context.Context, phone string) (Account, error)
}

// Repository persists accounts outside of ledger settlements.
type Repository interface {
	Finder

	// Create inserts a new account. Returns apperr.ErrDuplicateIdentity when
	// the email or phone is already taken.
	Create(ctx context.Context, account Account) error

	// List returns every account, newest first.
	List(ctx context.Context) ([]Account, error)

	// SetStatus moves the account from status `from` to `to` and credits
	// `grant` in the same write. It reports false, without error, when the
	// account is no longer in status `from`.
	SetStatus(ctx context.Context, id string, from, to Status, grant money.Amount) (bool, error)
}
