package auth

import (
	"context"
	"time"

	"github.com/congo-pay/agentcash/internal/account"
)

// Authenticator checks login credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, identifier, pin string) (account.Account, error)
}

// Session is the result of a successful login.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	Account     account.Account
}

// Service logs accounts in.
type Service struct {
	accounts Authenticator
	tokens   *Tokens
}

func NewService(accounts Authenticator, tokens *Tokens) *Service {
	return &Service{accounts: accounts, tokens: tokens}
}

// Login validates credentials and issues an access token.
func (s *Service) Login(ctx context.Context, identifier, pin string) (Session, error) {
	acc, err := s.accounts.Authenticate(ctx, identifier, pin)
	if err != nil {
		return Session{}, err
	}
	token, exp, err := s.tokens.Issue(acc)
	if err != nil {
		return Session{}, err
	}
	return Session{AccessToken: token, ExpiresAt: exp, Account: acc}, nil
}
