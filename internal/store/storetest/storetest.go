// Package storetest runs the same behavioural suite against every store
// backend. Durable backends run it from integration tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/fees"
	"github.com/congo-pay/agentcash/internal/history"
	"github.com/congo-pay/agentcash/internal/ledger"
	"github.com/congo-pay/agentcash/internal/logging"
	"github.com/congo-pay/agentcash/internal/money"
	"github.com/congo-pay/agentcash/internal/pending"
)

// Store is everything a backend has to provide.
type Store interface {
	ledger.Store
	account.Repository
	history.Repository
	pending.Repository
}

const pin = "1234"

type harness struct {
	store    Store
	accounts *account.Service
	engine   *ledger.Engine
}

// Run executes the suite. open must return an empty store.
func Run(t *testing.T, open func(t *testing.T) Store) {
	t.Helper()
	cases := []struct {
		name string
		fn   func(t *testing.T, h *harness)
	}{
		{"accounts", testAccounts},
		{"grant once", testGrantOnce},
		{"apply delta", testApplyDelta},
		{"rollback", testRollback},
		{"send money", testSendMoney},
		{"concurrent transfers", testConcurrentTransfers},
		{"approval settles once", testApprovalOnce},
		{"history", testHistory},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := open(t)
			hasher := account.BcryptHasher{Cost: bcrypt.MinCost}
			h := &harness{
				store:    st,
				accounts: account.NewService(st, hasher),
				engine:   ledger.NewEngine(st, hasher, ledger.WithLogger(logging.Discard()), ledger.WithTimeout(30*time.Second), ledger.WithMaxAttempts(20)),
			}
			tc.fn(t, h)
		})
	}
}

func (h *harness) open(t *testing.T, n int, role account.Role, balance money.Amount) account.Account {
	t.Helper()
	ctx := context.Background()
	acc, err := h.accounts.Register(ctx, account.Registration{
		Name:  fmt.Sprintf("Holder %d", n),
		Email: fmt.Sprintf("holder%d@example.com", n),
		Phone: fmt.Sprintf("+24381000%04d", n),
		PIN:   pin,
		Role:  role,
	})
	require.NoError(t, err)
	_, err = h.accounts.Approve(ctx, acc.ID)
	require.NoError(t, err)

	err = h.store.WithinTx(ctx, func(tx ledger.Tx) error {
		cur, err := tx.FindByID(ctx, acc.ID)
		if err != nil {
			return err
		}
		_, err = tx.ApplyDelta(ctx, acc.ID, balance-cur.Balance)
		return err
	})
	require.NoError(t, err)
	return h.get(t, acc.ID)
}

func (h *harness) get(t *testing.T, id string) account.Account {
	t.Helper()
	acc, err := h.store.FindByID(context.Background(), id)
	require.NoError(t, err)
	return acc
}

func testAccounts(t *testing.T, h *harness) {
	ctx := context.Background()
	first := h.open(t, 1, account.RoleUser, 0)
	time.Sleep(5 * time.Millisecond)
	second := h.open(t, 2, account.RoleAgent, 0)

	byEmail, err := h.store.FindByEmail(ctx, " HOLDER1@example.com ")
	require.NoError(t, err)
	assert.Equal(t, first.ID, byEmail.ID)
	assert.Equal(t, account.RoleUser, byEmail.Role)

	byPhone, err := h.store.FindByPhone(ctx, second.Phone)
	require.NoError(t, err)
	assert.Equal(t, second.ID, byPhone.ID)

	_, err = h.store.FindByID(ctx, "not-an-id")
	require.ErrorIs(t, err, apperr.ErrAccountNotFound)
	_, err = h.store.FindByPhone(ctx, "+000")
	require.ErrorIs(t, err, apperr.ErrAccountNotFound)

	dup := account.Account{ID: uuid.NewString(), Name: "Dup", Email: first.Email, Phone: "+1", Role: account.RoleUser, Status: account.StatusPending}
	require.ErrorIs(t, h.store.Create(ctx, dup), apperr.ErrDuplicateIdentity)
	dup.Email, dup.Phone = "dup@example.com", second.Phone
	require.ErrorIs(t, h.store.Create(ctx, dup), apperr.ErrDuplicateIdentity)

	all, err := h.store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	_, err = h.store.SetStatus(ctx, uuid.NewString(), account.StatusPending, account.StatusApproved, 0)
	require.ErrorIs(t, err, apperr.ErrAccountNotFound)
}

func testGrantOnce(t *testing.T, h *harness) {
	ctx := context.Background()
	acc, err := h.accounts.Register(ctx, account.Registration{Name: "Agent", Email: "agent@example.com", Phone: "+243800000001", PIN: pin, Role: account.RoleAgent})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.accounts.Approve(ctx, acc.ID)
		}()
	}
	wg.Wait()

	got := h.get(t, acc.ID)
	assert.Equal(t, account.StatusApproved, got.Status)
	assert.Equal(t, account.StartingBalance(account.RoleAgent), got.Balance)
}

func testApplyDelta(t *testing.T, h *harness) {
	ctx := context.Background()
	a := h.open(t, 1, account.RoleUser, 500)

	err := h.store.WithinTx(ctx, func(tx ledger.Tx) error {
		_, err := tx.ApplyDelta(ctx, a.ID, -501)
		return err
	})
	require.ErrorIs(t, err, apperr.ErrInsufficientFunds)

	err = h.store.WithinTx(ctx, func(tx ledger.Tx) error {
		_, err := tx.ApplyDelta(ctx, uuid.NewString(), 1)
		return err
	})
	require.ErrorIs(t, err, apperr.ErrAccountNotFound)

	var updated account.Account
	err = h.store.WithinTx(ctx, func(tx ledger.Tx) error {
		var err error
		updated, err = tx.ApplyDelta(ctx, a.ID, -500)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, money.Amount(0), updated.Balance)
	assert.Equal(t, money.Amount(0), h.get(t, a.ID).Balance)
}

func testRollback(t *testing.T, h *harness) {
	ctx := context.Background()
	u := h.open(t, 1, account.RoleUser, money.FromUnits(200))
	g := h.open(t, 2, account.RoleAgent, money.FromUnits(1000))

	req, err := h.engine.RequestCashOut(ctx, ledger.RequestInput{RequesterID: u.ID, Agent: g.Email, Amount: money.FromUnits(100), PIN: pin})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = h.store.WithinTx(ctx, func(tx ledger.Tx) error {
		if _, err := tx.TakeRequest(ctx, req.ID); err != nil {
			return err
		}
		if _, err := tx.ApplyDelta(ctx, u.ID, -money.FromUnits(100)); err != nil {
			return err
		}
		if _, err := tx.ApplyDelta(ctx, g.ID, money.FromUnits(100)); err != nil {
			return err
		}
		rec := history.Record{ID: req.ID, Kind: history.KindCashOut, OwnerID: u.ID, Sender: u.Snapshot(), Receiver: g.Snapshot(), Amount: req.Amount, CreatedAt: time.Now().UTC()}
		if err := tx.AppendRecords(ctx, rec); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, money.FromUnits(200), h.get(t, u.ID).Balance)
	assert.Equal(t, money.FromUnits(1000), h.get(t, g.ID).Balance)
	recs, err := h.store.ByOwner(ctx, u.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
	inbox, err := h.store.ListByAgent(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, req.ID, inbox[0].ID)
}

func testSendMoney(t *testing.T, h *harness) {
	ctx := context.Background()
	a := h.open(t, 1, account.RoleUser, money.FromUnits(200))
	b := h.open(t, 2, account.RoleUser, 0)

	receipt, err := h.engine.SendMoney(ctx, ledger.SendMoneyInput{SenderID: a.ID, Receiver: b.Phone, Amount: money.FromUnits(120), PIN: pin})
	require.NoError(t, err)
	assert.Equal(t, money.FromUnits(5), receipt.Fee)
	assert.Equal(t, money.FromUnits(75), h.get(t, a.ID).Balance)
	assert.Equal(t, money.FromUnits(120), h.get(t, b.ID).Balance)

	sent, err := h.store.ByOwner(ctx, a.ID, 10)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, history.KindSendMoney, sent[0].Kind)
	assert.Equal(t, receipt.RecordID, sent[0].ID)
	assert.Equal(t, b.Email, sent[0].Receiver.Email)

	got, err := h.store.ByOwner(ctx, b.ID, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, history.KindCashIn, got[0].Kind)
	assert.Equal(t, money.Amount(0), got[0].Fee)

	found, err := h.store.Search(ctx, "HOLDER2")
	require.NoError(t, err)
	assert.Len(t, found, 2)
	found, err = h.store.Search(ctx, "holder_")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func testConcurrentTransfers(t *testing.T, h *harness) {
	ctx := context.Background()
	a := h.open(t, 1, account.RoleUser, money.FromUnits(300))
	b := h.open(t, 2, account.RoleUser, 0)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.engine.SendMoney(ctx, ledger.SendMoneyInput{SenderID: a.ID, Receiver: b.Email, Amount: money.FromUnits(60), PIN: pin})
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, money.Amount(0), h.get(t, a.ID).Balance)
	assert.Equal(t, money.FromUnits(300), h.get(t, b.ID).Balance)
}

func testApprovalOnce(t *testing.T, h *harness) {
	ctx := context.Background()
	u := h.open(t, 1, account.RoleUser, money.FromUnits(200))
	g := h.open(t, 2, account.RoleAgent, money.FromUnits(1000))

	req, err := h.engine.RequestCashOut(ctx, ledger.RequestInput{RequesterID: u.ID, Agent: g.Phone, Amount: money.FromUnits(100), PIN: pin})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		settled int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.engine.Approve(ctx, g.ID, req.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				settled++
				return
			}
			assert.True(t, errors.Is(err, apperr.ErrRequestNotFound) || errors.Is(err, apperr.ErrConflict), err.Error())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, settled)
	assert.Equal(t, money.FromUnits(100)-fees.CashOut(money.FromUnits(100)), h.get(t, u.ID).Balance)
	assert.Equal(t, money.FromUnits(1100), h.get(t, g.ID).Balance)
	inbox, err := h.store.ListByAgent(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, inbox)
}

func testHistory(t *testing.T, h *harness) {
	ctx := context.Background()
	a := h.open(t, 1, account.RoleUser, money.FromUnits(2000))
	b := h.open(t, 2, account.RoleUser, 0)

	var last string
	for i := 0; i < 12; i++ {
		r, err := h.engine.SendMoney(ctx, ledger.SendMoneyInput{SenderID: a.ID, Receiver: b.Email, Amount: money.FromUnits(50), PIN: pin})
		require.NoError(t, err)
		last = r.RecordID
	}

	recs, err := h.store.ByOwner(ctx, a.ID, history.DisplayLimit(account.RoleUser))
	require.NoError(t, err)
	require.Len(t, recs, 10)
	assert.Equal(t, last, recs[0].ID)
	for i := 1; i < len(recs); i++ {
		assert.False(t, recs[i].CreatedAt.After(recs[i-1].CreatedAt))
	}

	all, err := h.store.Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 24)
}
