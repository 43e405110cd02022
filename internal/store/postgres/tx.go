package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/history"
	"github.com/congo-pay/agentcash/internal/money"
	"github.com/congo-pay/agentcash/internal/pending"
)

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) FindByID(ctx context.Context, id string) (account.Account, error) {
	return findAccountByID(ctx, t.tx, id)
}

func (t *pgTx) FindByEmail(ctx context.Context, email string) (account.Account, error) {
	return findAccount(ctx, t.tx, "email", account.NormalizeEmail(email))
}

func (t *pgTx) FindByPhone(ctx context.Context, phone string) (account.Account, error) {
	return findAccount(ctx, t.tx, "phone", phone)
}

// ApplyDelta updates the balance only if it stays non-negative. The row
// stays locked until the transaction ends. A sum outside BIGINT fails with
// 22003, which storageErr reports as ErrBalanceOverflow.
func (t *pgTx) ApplyDelta(ctx context.Context, accountID string, delta money.Amount) (account.Account, error) {
	parsed, ok := parseID(accountID)
	if !ok {
		return account.Account{}, apperr.ErrAccountNotFound
	}
	acc, err := scanAccount(t.tx.QueryRow(ctx, `
        UPDATE accounts SET balance = balance + $2
        WHERE id = $1 AND balance + $2 >= 0
        RETURNING `+accountColumns, parsed, int64(delta)))
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return account.Account{}, storageErr(err)
	}
	if _, err := findAccount(ctx, t.tx, "id", parsed); err != nil {
		return account.Account{}, err
	}
	return account.Account{}, apperr.ErrInsufficientFunds
}

func (t *pgTx) AppendRecords(ctx context.Context, records ...history.Record) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(insertRecord, recordArgs(r)...)
	}
	return storageErr(t.tx.SendBatch(ctx, batch).Close())
}

func (t *pgTx) InsertRequest(ctx context.Context, req pending.Request) error {
	_, err := t.tx.Exec(ctx, `
        INSERT INTO pending_requests (id, kind,
            requester_id, requester_name, requester_email, requester_phone,
            agent_id, agent_name, agent_email, agent_phone,
            amount, fee, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		req.ID, string(req.Kind),
		req.Requester.ID, req.Requester.Name, req.Requester.Email, req.Requester.Phone,
		req.Agent.ID, req.Agent.Name, req.Agent.Email, req.Agent.Phone,
		int64(req.Amount), int64(req.Fee), req.CreatedAt)
	if isUniqueViolation(err) {
		return apperr.Validation("duplicate_request", "request already exists")
	}
	return storageErr(err)
}

// TakeRequest deletes the request and returns what was deleted. A second
// taker blocks on the row and then finds nothing.
func (t *pgTx) TakeRequest(ctx context.Context, id string) (pending.Request, error) {
	parsed, ok := parseID(id)
	if !ok {
		return pending.Request{}, apperr.ErrRequestNotFound
	}
	req, err := scanRequest(t.tx.QueryRow(ctx, `DELETE FROM pending_requests WHERE id = $1 RETURNING `+requestColumns, parsed))
	if errors.Is(err, pgx.ErrNoRows) {
		return pending.Request{}, apperr.ErrRequestNotFound
	}
	if err != nil {
		return pending.Request{}, storageErr(err)
	}
	return req, nil
}
