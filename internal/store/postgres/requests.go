package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/congo-pay/agentcash/internal/money"
	"github.com/congo-pay/agentcash/internal/pending"
)

const requestColumns = `id::text, kind,
    requester_id::text, requester_name, requester_email, requester_phone,
    agent_id::text, agent_name, agent_email, agent_phone,
    amount, fee, created_at`

func scanRequest(row pgx.Row) (pending.Request, error) {
	var (
		r           pending.Request
		kind        string
		amount, fee int64
	)
	err := row.Scan(&r.ID, &kind,
		&r.Requester.ID, &r.Requester.Name, &r.Requester.Email, &r.Requester.Phone,
		&r.Agent.ID, &r.Agent.Name, &r.Agent.Email, &r.Agent.Phone,
		&amount, &fee, &r.CreatedAt)
	if err != nil {
		return pending.Request{}, err
	}
	r.Kind = pending.Kind(kind)
	r.Amount = money.Amount(amount)
	r.Fee = money.Amount(fee)
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}

// ListByAgent returns the requests addressed to the agent, newest first.
func (s *Store) ListByAgent(ctx context.Context, agentID string) ([]pending.Request, error) {
	parsed, ok := parseID(agentID)
	if !ok {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT `+requestColumns+` FROM pending_requests
        WHERE agent_id = $1
        ORDER BY created_at DESC, id`, parsed)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var out []pending.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, storageErr(err)
		}
		out = append(out, r)
	}
	return out, storageErr(rows.Err())
}
