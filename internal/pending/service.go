package pending

import (
	"context"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/apperr"
)

// Service answers agent inbox queries.
type Service struct {
	repo     Repository
	accounts account.Finder
}

func NewService(repo Repository, accounts account.Finder) *Service {
	return &Service{repo: repo, accounts: accounts}
}

// ForAgent lists the requests waiting on agentID.
func (s *Service) ForAgent(ctx context.Context, agentID string) ([]Request, error) {
	agent, err := s.accounts.FindByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent.Role != account.RoleAgent {
		return nil, apperr.ErrNotAnAgent
	}
	return s.repo.ListByAgent(ctx, agent.ID)
}
