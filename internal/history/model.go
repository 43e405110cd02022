package history

import (
	"strings"
	"time"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/money"
)

// Kind labels a settled money movement from the owner's point of view.
type Kind string

const (
	KindSendMoney Kind = "send_money"
	KindCashIn    Kind = "cash_in"
	KindCashOut   Kind = "cash_out"
)

// Record is an immutable entry in an account's transaction history. Every
// settlement writes one record per participant; OwnerID says whose history
// it belongs to.
type Record struct {
	ID        string
	Kind      Kind
	OwnerID   string
	Sender    account.Snapshot
	Receiver  account.Snapshot
	Amount    money.Amount
	Fee       money.Amount
	CreatedAt time.Time
}

// Matches reports whether term occurs in the sender or receiver email,
// ignoring case. An empty term matches every record.
func (r Record) Matches(term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(r.Sender.Email), term) ||
		strings.Contains(strings.ToLower(r.Receiver.Email), term)
}

// DisplayLimit is the number of recent records shown to an account holder.
func DisplayLimit(role account.Role) int {
	if role == account.RoleAgent {
		return 20
	}
	return 10
}
