package account

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/agentcash/internal/apperr"
)

const actorKey = "account.actor"

// WithAdmins names the accounts allowed to administer others. Each entry is
// an account id, email or phone.
func WithAdmins(identifiers ...string) ServiceOption {
	return func(s *Service) {
		for _, id := range identifiers {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if IsEmail(id) {
				id = NormalizeEmail(id)
			}
			s.admins[id] = struct{}{}
		}
	}
}

// IsAdmin reports whether acc is on the administrator list.
func (s *Service) IsAdmin(acc Account) bool {
	for _, key := range []string{acc.ID, NormalizeEmail(acc.Email), acc.Phone} {
		if _, ok := s.admins[key]; ok && key != "" {
			return true
		}
	}
	return false
}

// Admin loads the caller and checks that they may administer accounts: they
// must be listed and Approved.
func (s *Service) Admin(ctx context.Context, callerID string) (Account, error) {
	acc, err := s.repo.FindByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Account{}, apperr.ErrInvalidToken
		}
		return Account{}, err
	}
	if !s.IsAdmin(acc) {
		return Account{}, apperr.ErrForbiddenAdmin
	}
	switch acc.Status {
	case StatusApproved:
		return acc, nil
	case StatusBlocked:
		return Account{}, apperr.ErrAccountBlocked
	default:
		return Account{}, apperr.ErrAccountInactive
	}
}

// ApproveBy approves id on behalf of admin.
func (s *Service) ApproveBy(ctx context.Context, admin Account, id string) (Account, error) {
	if admin.ID == id {
		return Account{}, apperr.ErrSelfAdministration
	}
	return s.Approve(ctx, id)
}

// BlockBy blocks id on behalf of admin.
func (s *Service) BlockBy(ctx context.Context, admin Account, id string) (Account, error) {
	if admin.ID == id {
		return Account{}, apperr.ErrSelfAdministration
	}
	return s.Block(ctx, id)
}

// ApproveAdmins approves listed accounts that registered before they were
// listed. Unknown identifiers are skipped. It returns how many changed.
func (s *Service) ApproveAdmins(ctx context.Context) (int, error) {
	approved := 0
	for key := range s.admins {
		acc, err := s.findListed(ctx, key)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return approved, err
		}
		if acc.Status != StatusPending {
			continue
		}
		if _, err := s.Approve(ctx, acc.ID); err != nil {
			return approved, err
		}
		approved++
	}
	return approved, nil
}

func (s *Service) findListed(ctx context.Context, key string) (Account, error) {
	if IsEmail(key) {
		return s.repo.FindByEmail(ctx, key)
	}
	acc, err := s.repo.FindByID(ctx, key)
	if errors.Is(err, apperr.ErrNotFound) {
		return s.repo.FindByPhone(ctx, key)
	}
	return acc, err
}

// SetActor stores the administrator acting on the request.
func SetActor(c *fiber.Ctx, acc Account) {
	c.Locals(actorKey, acc)
}

// ActorFrom returns the administrator stored by SetActor.
func ActorFrom(c *fiber.Ctx) (Account, bool) {
	acc, ok := c.Locals(actorKey).(Account)
	return acc, ok
}
