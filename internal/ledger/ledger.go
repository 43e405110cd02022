package ledger

import (
	"context"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/history"
	"github.com/congo-pay/agentcash/internal/money"
	"github.com/congo-pay/agentcash/internal/pending"
)

// Tx is a unit of work against the ledger store. Everything done through a
// Tx commits together or not at all.
type Tx interface {
	account.Finder

	// ApplyDelta adds delta to the account balance and returns the updated
	// account. It fails with apperr.ErrInsufficientFunds, changing nothing,
	// when the result would be negative.
	ApplyDelta(ctx context.Context, accountID string, delta money.Amount) (account.Account, error)

	// AppendRecords adds history records.
	AppendRecords(ctx context.Context, records ...history.Record) error

	// InsertRequest stores a new pending request.
	InsertRequest(ctx context.Context, req pending.Request) error

	// TakeRequest removes the pending request and returns it. It fails with
	// apperr.ErrRequestNotFound when the request does not exist, so of two
	// concurrent takers exactly one succeeds.
	TakeRequest(ctx context.Context, id string) (pending.Request, error)
}

// Store runs units of work. Implementations may return an apperr conflict
// error when a unit of work lost a race and can be repeated.
type Store interface {
	account.Finder

	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
