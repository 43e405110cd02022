package account

import (
	"strings"
	"time"

	"github.com/congo-pay/agentcash/internal/money"
)

// Role distinguishes ordinary wallets from cash agents. It never changes
// after registration.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAgent:
		return true
	default:
		return false
	}
}

// ParseRole accepts the role name in any case.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// StartingBalance is granted once, when an account is approved.
func StartingBalance(r Role) money.Amount {
	switch r {
	case RoleAgent:
		return money.FromUnits(10_000)
	case RoleUser:
		return money.FromUnits(50)
	default:
		return 0
	}
}

// Status is the administrative state of an account.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusBlocked  Status = "blocked"
)

// CanTransition reports whether moving from s to next is allowed.
// Nothing leaves Blocked.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusBlocked
	case StatusApproved:
		return next == StatusBlocked
	default:
		return false
	}
}

// Account is a user or agent wallet.
type Account struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	PINHash   []byte
	Role      Role
	Status    Status
	Balance   money.Amount
	CreatedAt time.Time
}

// Snapshot captures the identity fields copied into history records and
// pending requests.
type Snapshot struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Snapshot returns the identity snapshot of a.
func (a Account) Snapshot() Snapshot {
	return Snapshot{ID: a.ID, Name: a.Name, Email: a.Email, Phone: a.Phone}
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
