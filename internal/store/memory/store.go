// Package memory is a concurrency-safe in-memory store for tests and local
// development. A single mutex serialises units of work; each unit keeps an
// undo journal that is replayed when it fails.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/history"
	"github.com/congo-pay/agentcash/internal/ledger"
	"github.com/congo-pay/agentcash/internal/money"
	"github.com/congo-pay/agentcash/internal/pending"
)

// Store holds accounts, history and pending requests in memory.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]account.Account
	byEmail  map[string]string
	byPhone  map[string]string
	order    []string
	records  []history.Record
	requests map[string]pending.Request
}

var (
	_ ledger.Store       = (*Store)(nil)
	_ account.Repository = (*Store)(nil)
	_ history.Repository = (*Store)(nil)
	_ pending.Repository = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{
		accounts: make(map[string]account.Account),
		byEmail:  make(map[string]string),
		byPhone:  make(map[string]string),
		requests: make(map[string]pending.Request),
	}
}

// Create inserts a new account.
func (s *Store) Create(ctx context.Context, acc account.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	email := account.NormalizeEmail(acc.Email)
	if _, taken := s.byEmail[email]; taken {
		return apperr.ErrDuplicateIdentity
	}
	if _, taken := s.byPhone[acc.Phone]; taken {
		return apperr.ErrDuplicateIdentity
	}
	if _, taken := s.accounts[acc.ID]; taken {
		return apperr.ErrDuplicateIdentity
	}
	acc.Email = email
	acc.PINHash = slices.Clone(acc.PINHash)
	s.accounts[acc.ID] = acc
	s.byEmail[email] = acc.ID
	s.byPhone[acc.Phone] = acc.ID
	s.order = append(s.order, acc.ID)
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (account.Account, error) {
	if err := ctx.Err(); err != nil {
		return account.Account{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID(id)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (account.Account, error) {
	if err := ctx.Err(); err != nil {
		return account.Account{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID(s.byEmail[account.NormalizeEmail(email)])
}

func (s *Store) FindByPhone(ctx context.Context, phone string) (account.Account, error) {
	if err := ctx.Err(); err != nil {
		return account.Account{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID(s.byPhone[phone])
}

func (s *Store) byID(id string) (account.Account, error) {
	acc, ok := s.accounts[id]
	if !ok {
		return account.Account{}, apperr.ErrAccountNotFound
	}
	return acc, nil
}

// List returns every account, newest first.
func (s *Store) List(ctx context.Context) ([]account.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]account.Account, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.accounts[s.order[i]])
	}
	return out, nil
}

// SetStatus performs a compare-and-set on the account status.
func (s *Store) SetStatus(ctx context.Context, id string, from, to account.Status, grant money.Amount) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.byID(id)
	if err != nil {
		return false, err
	}
	if acc.Status != from {
		return false, nil
	}
	acc.Status = to
	acc.Balance += grant
	s.accounts[id] = acc
	return true, nil
}

// ByOwner returns up to limit records owned by ownerID, newest first.
func (s *Store) ByOwner(ctx context.Context, ownerID string, limit int) ([]history.Record, error) {
	return s.selectRecords(ctx, limit, func(r history.Record) bool {
		return r.OwnerID == ownerID
	})
}

// Search matches term against sender and receiver emails.
func (s *Store) Search(ctx context.Context, term string) ([]history.Record, error) {
	return s.selectRecords(ctx, 0, func(r history.Record) bool {
		return r.Matches(term)
	})
}

func (s *Store) selectRecords(ctx context.Context, limit int, match func(history.Record) bool) ([]history.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Walk newest insertion first; the stable sort then only reorders
	// records whose timestamps disagree with insertion order.
	var out []history.Record
	for i := len(s.records) - 1; i >= 0; i-- {
		if match(s.records[i]) {
			out = append(out, s.records[i])
		}
	}
	slices.SortStableFunc(out, func(a, b history.Record) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListByAgent returns the requests addressed to agentID, newest first.
func (s *Store) ListByAgent(ctx context.Context, agentID string) ([]pending.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []pending.Request
	for _, req := range s.requests {
		if req.Agent.ID == agentID {
			out = append(out, req)
		}
	}
	slices.SortFunc(out, func(a, b pending.Request) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// WithinTx runs fn while holding the store lock. When fn fails every change
// it made is undone before the lock is released.
func (s *Store) WithinTx(ctx context.Context, fn func(ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}
