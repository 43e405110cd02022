package memory

import (
	"context"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/history"
	"github.com/congo-pay/agentcash/internal/money"
	"github.com/congo-pay/agentcash/internal/pending"
)

// memTx runs with the store lock already held.
type memTx struct {
	store *Store
	undo  []func()
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) FindByID(ctx context.Context, id string) (account.Account, error) {
	if err := ctx.Err(); err != nil {
		return account.Account{}, err
	}
	return t.store.byID(id)
}

func (t *memTx) FindByEmail(ctx context.Context, email string) (account.Account, error) {
	if err := ctx.Err(); err != nil {
		return account.Account{}, err
	}
	return t.store.byID(t.store.byEmail[account.NormalizeEmail(email)])
}

func (t *memTx) FindByPhone(ctx context.Context, phone string) (account.Account, error) {
	if err := ctx.Err(); err != nil {
		return account.Account{}, err
	}
	return t.store.byID(t.store.byPhone[phone])
}

func (t *memTx) ApplyDelta(ctx context.Context, accountID string, delta money.Amount) (account.Account, error) {
	if err := ctx.Err(); err != nil {
		return account.Account{}, err
	}
	prev, err := t.store.byID(accountID)
	if err != nil {
		return account.Account{}, err
	}
	balance, err := prev.Balance.Add(delta)
	if err != nil {
		return account.Account{}, apperr.ErrBalanceOverflow
	}
	if balance < 0 {
		return account.Account{}, apperr.ErrInsufficientFunds
	}
	next := prev
	next.Balance = balance
	t.store.accounts[accountID] = next
	t.undo = append(t.undo, func() { t.store.accounts[accountID] = prev })
	return next, nil
}

func (t *memTx) AppendRecords(ctx context.Context, records ...history.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := len(t.store.records)
	t.store.records = append(t.store.records, records...)
	t.undo = append(t.undo, func() { t.store.records = t.store.records[:n] })
	return nil
}

func (t *memTx) InsertRequest(ctx context.Context, req pending.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, exists := t.store.requests[req.ID]; exists {
		return apperr.Validation("duplicate_request", "request already exists")
	}
	t.store.requests[req.ID] = req
	t.undo = append(t.undo, func() { delete(t.store.requests, req.ID) })
	return nil
}

func (t *memTx) TakeRequest(ctx context.Context, id string) (pending.Request, error) {
	if err := ctx.Err(); err != nil {
		return pending.Request{}, err
	}
	req, ok := t.store.requests[id]
	if !ok {
		return pending.Request{}, apperr.ErrRequestNotFound
	}
	delete(t.store.requests, id)
	t.undo = append(t.undo, func() { t.store.requests[id] = req })
	return req, nil
}
