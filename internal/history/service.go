package history

import (
	"context"
	"strings"

	"github.com/congo-pay/agentcash/internal/account"
)

// Service answers history queries.
type Service struct {
	repo     Repository
	accounts account.Finder
}

func NewService(repo Repository, accounts account.Finder) *Service {
	return &Service{repo: repo, accounts: accounts}
}

// ForAccount returns the recent history of the account with the given id,
// capped by its role's display limit.
func (s *Service) ForAccount(ctx context.Context, accountID string) ([]Record, error) {
	acc, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.repo.ByOwner(ctx, acc.ID, DisplayLimit(acc.Role))
}

// ForIdentifier is ForAccount for an email or phone identifier.
func (s *Service) ForIdentifier(ctx context.Context, identifier string) ([]Record, error) {
	acc, err := account.Resolve(ctx, s.accounts, identifier)
	if err != nil {
		return nil, err
	}
	return s.repo.ByOwner(ctx, acc.ID, DisplayLimit(acc.Role))
}

// Search matches term against participant emails. An empty term matches
// every record.
func (s *Service) Search(ctx context.Context, term string) ([]Record, error) {
	return s.repo.Search(ctx, strings.TrimSpace(term))
}
