// Package postgres keeps accounts, history and pending requests in
// PostgreSQL. Balances are guarded by conditional updates, so concurrent
// debits of one account serialize on its row lock.
package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/history"
	"github.com/congo-pay/agentcash/internal/ledger"
	"github.com/congo-pay/agentcash/internal/pending"
)

var (
	_ ledger.Store       = (*Store)(nil)
	_ account.Repository = (*Store)(nil)
	_ history.Repository = (*Store)(nil)
	_ pending.Repository = (*Store)(nil)
)

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL implementation of every repository.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an open pool. Run Migrate first.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithinTx runs fn in a read-committed transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ledger.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storageErr(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr(err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (account.Account, error) {
	return findAccountByID(ctx, s.pool, id)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (account.Account, error) {
	return findAccount(ctx, s.pool, "email", account.NormalizeEmail(email))
}

func (s *Store) FindByPhone(ctx context.Context, phone string) (account.Account, error) {
	return findAccount(ctx, s.pool, "phone", phone)
}

// parseID reports whether id can name a row at all. Malformed ids are
// simply unknown.
func parseID(id string) (uuid.UUID, bool) {
	parsed, err := uuid.Parse(id)
	return parsed, err == nil
}

// storageErr maps driver failures onto apperr kinds. Domain errors pass
// through untouched.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) != nil {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return apperr.Conflict(err)
		case "22003":
			return apperr.ErrBalanceOverflow
		}
	}
	return apperr.Transient(err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
