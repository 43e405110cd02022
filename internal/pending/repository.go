package pending

import "context"

// Repository reads pending requests. Requests are inserted and consumed by
// the ledger.
type Repository interface {
	// ListByAgent returns the requests addressed to agentID, newest first.
	ListByAgent(ctx context.Context, agentID string) ([]Request, error)
}
