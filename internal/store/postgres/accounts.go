package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/money"
)

const accountColumns = `id::text, name, email, phone, pin_hash, role, status, balance, created_at`

func scanAccount(row pgx.Row) (account.Account, error) {
	var (
		acc     account.Account
		role    string
		status  string
		balance int64
	)
	err := row.Scan(&acc.ID, &acc.Name, &acc.Email, &acc.Phone, &acc.PINHash, &role, &status, &balance, &acc.CreatedAt)
	if err != nil {
		return account.Account{}, err
	}
	acc.Role = account.Role(role)
	acc.Status = account.Status(status)
	acc.Balance = money.Amount(balance)
	acc.CreatedAt = acc.CreatedAt.UTC()
	return acc, nil
}

func findAccountByID(ctx context.Context, q querier, id string) (account.Account, error) {
	parsed, ok := parseID(id)
	if !ok {
		return account.Account{}, apperr.ErrAccountNotFound
	}
	return findAccount(ctx, q, "id", parsed)
}

// findAccount looks an account up by one of its unique columns.
func findAccount(ctx context.Context, q querier, column string, value any) (account.Account, error) {
	acc, err := scanAccount(q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+column+` = $1`, value))
	if errors.Is(err, pgx.ErrNoRows) {
		return account.Account{}, apperr.ErrAccountNotFound
	}
	if err != nil {
		return account.Account{}, storageErr(err)
	}
	return acc, nil
}

func (s *Store) Create(ctx context.Context, acc account.Account) error {
	id, ok := parseID(acc.ID)
	if !ok {
		return apperr.Validation("invalid_id", "account id must be a UUID")
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
        INSERT INTO accounts (id, name, email, phone, pin_hash, role, status, balance, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, acc.Name, account.NormalizeEmail(acc.Email), acc.Phone, acc.PINHash,
		string(acc.Role), string(acc.Status), int64(acc.Balance), acc.CreatedAt)
	if isUniqueViolation(err) {
		return apperr.ErrDuplicateIdentity
	}
	return storageErr(err)
}

// List returns every account, newest first.
func (s *Store) List(ctx context.Context) ([]account.Account, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var out []account.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, storageErr(err)
		}
		out = append(out, acc)
	}
	return out, storageErr(rows.Err())
}

// SetStatus moves the account from one status to another and credits grant
// in the same statement. It reports false when the account was no longer
// in status from.
func (s *Store) SetStatus(ctx context.Context, id string, from, to account.Status, grant money.Amount) (bool, error) {
	parsed, ok := parseID(id)
	if !ok {
		return false, apperr.ErrAccountNotFound
	}
	tag, err := s.pool.Exec(ctx, `
        UPDATE accounts SET status = $3, balance = balance + $4
        WHERE id = $1 AND status = $2`,
		parsed, string(from), string(to), int64(grant))
	if err != nil {
		return false, storageErr(err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	if _, err := findAccount(ctx, s.pool, "id", parsed); err != nil {
		return false, err
	}
	return false, nil
}
