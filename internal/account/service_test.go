package account_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/money"
	"github.com/congo-pay/agentcash/internal/store/memory"
)

func newService() *account.Service {
	return account.NewService(memory.New(), account.BcryptHasher{Cost: bcrypt.MinCost})
}

func register(t *testing.T, svc *account.Service, email, phone string, role account.Role) account.Account {
	t.Helper()
	acc, err := svc.Register(context.Background(), account.Registration{
		Name: "Test", Email: email, Phone: phone, PIN: "1234", Role: role,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return acc
}

func TestRegisterCreatesPendingAccount(t *testing.T) {
	svc := newService()
	acc := register(t, svc, " Neema@Example.com ", "+243990000001", account.RoleUser)

	if acc.Status != account.StatusPending {
		t.Fatalf("expected pending, got %s", acc.Status)
	}
	if acc.Balance != 0 {
		t.Fatalf("expected zero balance, got %s", acc.Balance)
	}
	if acc.Email != "neema@example.com" {
		t.Fatalf("expected normalised email, got %q", acc.Email)
	}
	if string(acc.PINHash) == "1234" {
		t.Fatalf("PIN stored in clear")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	cases := map[string]account.Registration{
		"no name":      {Email: "a@b.co", Phone: "1", PIN: "1234", Role: account.RoleUser},
		"bad email":    {Name: "A", Email: "ab.co", Phone: "1", PIN: "1234", Role: account.RoleUser},
		"phone with @": {Name: "A", Email: "a@b.co", Phone: "a@b", PIN: "1234", Role: account.RoleUser},
		"short pin":    {Name: "A", Email: "a@b.co", Phone: "1", PIN: "12", Role: account.RoleUser},
		"alpha pin":    {Name: "A", Email: "a@b.co", Phone: "1", PIN: "12ab", Role: account.RoleUser},
		"bad role":     {Name: "A", Email: "a@b.co", Phone: "1", PIN: "1234", Role: "admin"},
	}
	for name, in := range cases {
		if _, err := svc.Register(ctx, in); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc := newService()
	register(t, svc, "a@example.com", "100", account.RoleUser)

	_, err := svc.Register(context.Background(), account.Registration{Name: "B", Email: "b@example.com", Phone: "100", PIN: "1234", Role: account.RoleAgent})
	if !errors.Is(err, apperr.ErrDuplicateIdentity) {
		t.Fatalf("expected duplicate identity, got %v", err)
	}
}

func TestApproveGrantsStartingBalanceOnce(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	user := register(t, svc, "u@example.com", "100", account.RoleUser)
	agent := register(t, svc, "g@example.com", "200", account.RoleAgent)

	for i := 0; i < 3; i++ {
		if _, err := svc.Approve(ctx, user.ID); err != nil {
			t.Fatalf("approve user: %v", err)
		}
	}
	got, _ := svc.Get(ctx, user.ID)
	if got.Status != account.StatusApproved || got.Balance != money.FromUnits(50) {
		t.Fatalf("unexpected user after approval: %s %s", got.Status, got.Balance)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Approve(ctx, agent.ID)
		}()
	}
	wg.Wait()
	got, _ = svc.Get(ctx, agent.ID)
	if got.Balance != money.FromUnits(10_000) {
		t.Fatalf("expected agent grant once, got %s", got.Balance)
	}
}

func TestBlockIsFinal(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	acc := register(t, svc, "u@example.com", "100", account.RoleUser)
	if _, err := svc.Approve(ctx, acc.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	blocked, err := svc.Block(ctx, acc.ID)
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if blocked.Balance != money.FromUnits(50) {
		t.Fatalf("block must not touch balance, got %s", blocked.Balance)
	}
	if _, err := svc.Block(ctx, acc.ID); err != nil {
		t.Fatalf("second block: %v", err)
	}
	if _, err := svc.Approve(ctx, acc.ID); !errors.Is(err, apperr.ErrAccountBlocked) {
		t.Fatalf("expected blocked, got %v", err)
	}
	if _, err := svc.Approve(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	acc := register(t, svc, "u@example.com", "+243990000001", account.RoleUser)

	got, err := svc.Authenticate(ctx, "U@example.com", "1234")
	if err != nil || got.ID != acc.ID {
		t.Fatalf("authenticate by email: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "+243990000001", "1234"); err != nil {
		t.Fatalf("authenticate by phone: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "+243990000001", "9999"); !errors.Is(err, apperr.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@example.com", "1234"); !errors.Is(err, apperr.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown account, got %v", err)
	}
}

func TestResolveDoesNotLeakField(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	_, errEmail := svc.Lookup(ctx, "ghost@example.com")
	_, errPhone := svc.Lookup(ctx, "000")
	_, errEmpty := svc.Lookup(ctx, "  ")
	for _, err := range []error{errEmail, errPhone, errEmpty} {
		if !errors.Is(err, apperr.ErrAccountNotFound) {
			t.Fatalf("expected account not found, got %v", err)
		}
		if apperr.Message(err) != apperr.Message(errEmail) {
			t.Fatalf("messages differ between lookups")
		}
	}
}

func TestAdministratorGate(t *testing.T) {
	store := memory.New()
	hasher := account.BcryptHasher{Cost: bcrypt.MinCost}
	ctx := context.Background()

	// Registered before being listed.
	early := register(t, account.NewService(store, hasher), "ops@example.com", "+243990000005", account.RoleUser)
	svc := account.NewService(store, hasher, account.WithAdmins(" OPS@example.com ", "+243990000006", ""))

	n, err := svc.ApproveAdmins(ctx)
	if err != nil || n != 1 {
		t.Fatalf("approve admins: n=%d err=%v", n, err)
	}
	ops, err := svc.Admin(ctx, early.ID)
	if err != nil {
		t.Fatalf("listed admin rejected: %v", err)
	}

	second := register(t, svc, "second@example.com", "+243990000006", account.RoleUser)
	if second.Status != account.StatusApproved {
		t.Fatalf("listed admin should register approved, got %s", second.Status)
	}

	agent := register(t, svc, "agent@example.com", "+243990000009", account.RoleAgent)
	if _, err := svc.Admin(ctx, agent.ID); !errors.Is(err, apperr.ErrForbiddenAdmin) {
		t.Fatalf("expected forbidden admin, got %v", err)
	}
	if _, err := svc.ApproveBy(ctx, ops, ops.ID); !errors.Is(err, apperr.ErrSelfAdministration) {
		t.Fatalf("expected self administration, got %v", err)
	}
	if _, err := svc.ApproveBy(ctx, ops, agent.ID); err != nil {
		t.Fatalf("approve agent: %v", err)
	}
	if _, err := svc.BlockBy(ctx, ops, second.ID); err != nil {
		t.Fatalf("block admin: %v", err)
	}
	if _, err := svc.Admin(ctx, second.ID); !errors.Is(err, apperr.ErrAccountBlocked) {
		t.Fatalf("blocked admin must lose access, got %v", err)
	}
}
