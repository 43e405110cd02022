package history

import "context"

// Repository reads settled history. Records are only ever written by the
// ledger, inside the same unit of work as the balance changes.
type Repository interface {
	// ByOwner returns up to limit records owned by ownerID, newest first.
	ByOwner(ctx context.Context, ownerID string, limit int) ([]Record, error)
	// Search returns every record whose sender or receiver email contains
	// term, case-insensitively, newest first.
	Search(ctx context.Context, term string) ([]Record, error)
}
