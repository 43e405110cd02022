package pending

import (
	"time"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/money"
)

// Kind says which way money moves once the request is approved.
type Kind string

const (
	// KindCashOut moves e-money from the requester to the agent, who hands
	// over physical cash.
	KindCashOut Kind = "cash_out"
	// KindCashIn moves e-money from the agent to the requester, who handed
	// over physical cash.
	KindCashIn Kind = "cash_in"
)

// Request is a user-initiated operation awaiting the named agent's approval.
// It holds no funds; balances move only when it is approved.
type Request struct {
	ID        string
	Kind      Kind
	Requester account.Snapshot
	Agent     account.Snapshot
	Amount    money.Amount
	Fee       money.Amount
	CreatedAt time.Time
}
