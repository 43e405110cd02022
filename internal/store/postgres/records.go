package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/congo-pay/agentcash/internal/history"
	"github.com/congo-pay/agentcash/internal/money"
)

const recordColumns = `id::text, kind, owner_id::text,
    sender_id::text, sender_name, sender_email, sender_phone,
    receiver_id::text, receiver_name, receiver_email, receiver_phone,
    amount, fee, created_at`

const insertRecord = `
    INSERT INTO transaction_records (id, kind, owner_id,
        sender_id, sender_name, sender_email, sender_phone,
        receiver_id, receiver_name, receiver_email, receiver_phone,
        amount, fee, created_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

func recordArgs(r history.Record) []any {
	return []any{
		r.ID, string(r.Kind), r.OwnerID,
		r.Sender.ID, r.Sender.Name, r.Sender.Email, r.Sender.Phone,
		r.Receiver.ID, r.Receiver.Name, r.Receiver.Email, r.Receiver.Phone,
		int64(r.Amount), int64(r.Fee), r.CreatedAt,
	}
}

func scanRecords(rows pgx.Rows) ([]history.Record, error) {
	defer rows.Close()
	var out []history.Record
	for rows.Next() {
		var (
			r           history.Record
			kind        string
			amount, fee int64
		)
		err := rows.Scan(&r.ID, &kind, &r.OwnerID,
			&r.Sender.ID, &r.Sender.Name, &r.Sender.Email, &r.Sender.Phone,
			&r.Receiver.ID, &r.Receiver.Name, &r.Receiver.Email, &r.Receiver.Phone,
			&amount, &fee, &r.CreatedAt)
		if err != nil {
			return nil, storageErr(err)
		}
		r.Kind = history.Kind(kind)
		r.Amount = money.Amount(amount)
		r.Fee = money.Amount(fee)
		r.CreatedAt = r.CreatedAt.UTC()
		out = append(out, r)
	}
	return out, storageErr(rows.Err())
}

// ByOwner returns the newest records owned by the account.
func (s *Store) ByOwner(ctx context.Context, ownerID string, limit int) ([]history.Record, error) {
	parsed, ok := parseID(ownerID)
	if !ok {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT `+recordColumns+` FROM transaction_records
        WHERE owner_id = $1
        ORDER BY created_at DESC, seq DESC
        LIMIT $2`, parsed, limit)
	if err != nil {
		return nil, storageErr(err)
	}
	return scanRecords(rows)
}

// Search matches term case-insensitively against either party's email.
func (s *Store) Search(ctx context.Context, term string) ([]history.Record, error) {
	pattern := "%" + escapeLike(term) + "%"
	rows, err := s.pool.Query(ctx, `SELECT `+recordColumns+` FROM transaction_records
        WHERE sender_email ILIKE $1 ESCAPE '\' OR receiver_email ILIKE $1 ESCAPE '\'
        ORDER BY created_at DESC, seq DESC`, pattern)
	if err != nil {
		return nil, storageErr(err)
	}
	return scanRecords(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}
