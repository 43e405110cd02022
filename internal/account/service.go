package account

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/money"
)

const maxStatusAttempts = 3

// Registration is the input to Register.
type Registration struct {
	Name  string
	Email string
	Phone string
	PIN   string
	Role  Role
}

// Service manages the account lifecycle: registration, credential checks
// and administrative status changes.
type Service struct {
	repo   Repository
	hasher Hasher
	now    func() time.Time
	admins map[string]struct{}
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// NewService creates a new account service.
func NewService(repo Repository, hasher Hasher, opts ...ServiceOption) *Service {
	s := &Service{repo: repo, hasher: hasher, now: time.Now, admins: map[string]struct{}{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a Pending account with a zero balance and a hashed PIN.
// Accounts on the administrator list are approved straight away.
func (s *Service) Register(ctx context.Context, in Registration) (Account, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validateRegistration(in); err != nil {
		return Account{}, err
	}

	hash, err := s.hasher.Hash(in.PIN)
	if err != nil {
		return Account{}, err
	}

	acc := Account{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		PINHash:   hash,
		Role:      in.Role,
		Status:    StatusPending,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, acc); err != nil {
		return Account{}, err
	}
	if s.IsAdmin(acc) {
		return s.Approve(ctx, acc.ID)
	}
	return acc, nil
}

func validateRegistration(in Registration) error {
	switch {
	case in.Name == "":
		return apperr.Validation("invalid_name", "name is required")
	case !IsEmail(in.Email):
		return apperr.Validation("invalid_email", "email must contain @")
	case in.Phone == "" || IsEmail(in.Phone):
		return apperr.Validation("invalid_phone", "phone is required and must not contain @")
	case !in.Role.Valid():
		return apperr.Validation("invalid_role", "role must be user or agent")
	}
	if len(in.PIN) < 4 || len(in.PIN) > 12 {
		return apperr.Validation("invalid_pin_format", "PIN must be 4 to 12 digits")
	}
	for _, r := range in.PIN {
		if !unicode.IsDigit(r) {
			return apperr.Validation("invalid_pin_format", "PIN must be 4 to 12 digits")
		}
	}
	return nil
}

// Authenticate resolves identifier and checks pin. Unknown identifiers and
// wrong PINs both surface as apperr.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, identifier, pin string) (Account, error) {
	acc, err := Resolve(ctx, s.repo, identifier)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Account{}, apperr.ErrInvalidCredentials
		}
		return Account{}, err
	}
	if !s.hasher.Verify(acc.PINHash, pin) {
		return Account{}, apperr.ErrInvalidCredentials
	}
	if acc.Status == StatusBlocked {
		return Account{}, apperr.ErrAccountBlocked
	}
	return acc, nil
}

// Get returns the account with the given id.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	return s.repo.FindByID(ctx, id)
}

// Lookup resolves an email or phone identifier.
func (s *Service) Lookup(ctx context.Context, identifier string) (Account, error) {
	return Resolve(ctx, s.repo, identifier)
}

// List returns every account.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

// Approve activates a Pending account and grants its starting balance.
// Approving an already Approved account changes nothing, so the grant
// happens exactly once.
func (s *Service) Approve(ctx context.Context, id string) (Account, error) {
	return s.transition(ctx, id, StatusApproved)
}

// Block freezes an account. Blocking twice is a no-op.
func (s *Service) Block(ctx context.Context, id string) (Account, error) {
	return s.transition(ctx, id, StatusBlocked)
}

func (s *Service) transition(ctx context.Context, id string, to Status) (Account, error) {
	for attempt := 0; attempt < maxStatusAttempts; attempt++ {
		acc, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return Account{}, err
		}
		if acc.Status == to {
			return acc, nil
		}
		if !acc.Status.CanTransition(to) {
			return Account{}, apperr.ErrAccountBlocked
		}

		var grant money.Amount
		if to == StatusApproved {
			grant = StartingBalance(acc.Role)
		}
		ok, err := s.repo.SetStatus(ctx, id, acc.Status, to, grant)
		if err != nil {
			return Account{}, err
		}
		if ok {
			acc.Status = to
			acc.Balance += grant
			return acc, nil
		}
	}
	return Account{}, apperr.Conflict(errors.New("account status changed concurrently"))
}
