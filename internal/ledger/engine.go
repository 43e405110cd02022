package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/fees"
	"github.com/congo-pay/agentcash/internal/history"
	"github.com/congo-pay/agentcash/internal/logging"
	"github.com/congo-pay/agentcash/internal/money"
	"github.com/congo-pay/agentcash/internal/notification"
	"github.com/congo-pay/agentcash/internal/pending"
)

const (
	defaultTimeout     = 5 * time.Second
	defaultMaxAttempts = 3
)

// SendMoneyInput captures a direct transfer.
type SendMoneyInput struct {
	SenderID string
	Receiver string
	Amount   money.Amount
	PIN      string
}

// RequestInput captures a cash-in or cash-out request addressed to an agent.
type RequestInput struct {
	RequesterID string
	Agent       string
	Amount      money.Amount
	PIN         string
}

// Receipt describes a settled direct transfer.
type Receipt struct {
	RecordID      string
	Amount        money.Amount
	Fee           money.Amount
	SenderBalance money.Amount
	Receiver      account.Snapshot
	SettledAt     time.Time
}

// Settlement describes an approved request.
type Settlement struct {
	Request pending.Request
	Fee     money.Amount
	Records []history.Record
}

// Engine validates and settles money movements. It owns no state; every
// balance change goes through the Store inside a single unit of work.
type Engine struct {
	store       Store
	verifier    account.SecretVerifier
	notifier    notification.Notifier
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
	timeout     time.Duration
	maxAttempts int
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier sets the notifier used after each settlement.
func WithNotifier(n notification.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithTimeout bounds each operation's storage work.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithMaxAttempts caps how often a conflicting unit of work is attempted.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// NewEngine constructs a ledger engine over store.
func NewEngine(store Store, verifier account.SecretVerifier, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		verifier:    verifier,
		logger:      slog.Default(),
		now:         time.Now,
		newID:       uuid.NewString,
		timeout:     defaultTimeout,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SendMoney moves amount from the sender to the receiver, debiting the
// sender amount plus the transfer fee.
func (e *Engine) SendMoney(ctx context.Context, in SendMoneyInput) (Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := fees.CheckMinimum(in.Amount); err != nil {
		return Receipt{}, err
	}
	fee := fees.SendMoney(in.Amount)

	sender, err := e.store.FindByID(ctx, in.SenderID)
	if err != nil {
		return Receipt{}, classify(err)
	}
	receiver, err := account.Resolve(ctx, e.store, in.Receiver)
	if err != nil {
		return Receipt{}, classify(err)
	}
	if sender.ID == receiver.ID {
		return Receipt{}, apperr.ErrSelfTransfer
	}
	if err := canPay(sender); err != nil {
		return Receipt{}, err
	}
	if err := canReceive(receiver); err != nil {
		return Receipt{}, err
	}
	if !e.verifier.Verify(sender.PINHash, in.PIN) {
		return Receipt{}, apperr.ErrInvalidPIN
	}
	if sender.Balance-fee < in.Amount {
		return Receipt{}, apperr.ErrInsufficientFunds
	}

	var receipt Receipt
	err = e.atomically(ctx, func(tx Tx) error {
		updated, err := applyDeltas(ctx, tx,
			balanceDelta{sender.ID, -(in.Amount + fee)},
			balanceDelta{receiver.ID, in.Amount},
		)
		if err != nil {
			return err
		}
		if err := canPay(updated[sender.ID]); err != nil {
			return err
		}
		if err := canReceive(updated[receiver.ID]); err != nil {
			return err
		}

		now := e.now().UTC()
		sent := history.Record{
			ID:        e.newID(),
			Kind:      history.KindSendMoney,
			OwnerID:   sender.ID,
			Sender:    sender.Snapshot(),
			Receiver:  receiver.Snapshot(),
			Amount:    in.Amount,
			Fee:       fee,
			CreatedAt: now,
		}
		received := sent
		received.ID = e.newID()
		received.Kind = history.KindCashIn
		received.OwnerID = receiver.ID
		received.Fee = 0
		if err := tx.AppendRecords(ctx, sent, received); err != nil {
			return err
		}

		receipt = Receipt{
			RecordID:      sent.ID,
			Amount:        in.Amount,
			Fee:           fee,
			SenderBalance: updated[sender.ID].Balance,
			Receiver:      receiver.Snapshot(),
			SettledAt:     now,
		}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}

	logging.FromContext(ctx, e.logger).Info("money sent",
		"record_id", receipt.RecordID,
		"sender_id", sender.ID,
		"receiver_id", receiver.ID,
		"amount", in.Amount.String(),
		"fee", fee.String(),
	)
	e.notify(ctx, notification.Message{
		Kind:        notification.KindMoneyReceived,
		Destination: receiver.ID,
		Reference:   receipt.RecordID,
		Body:        fmt.Sprintf("You received %s from %s", in.Amount, sender.Name),
	})
	return receipt, nil
}

// RequestCashOut queues a withdrawal through an agent. No balance changes
// until the agent approves.
func (e *Engine) RequestCashOut(ctx context.Context, in RequestInput) (pending.Request, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := fees.CheckMinimum(in.Amount); err != nil {
		return pending.Request{}, err
	}
	fee := fees.CashOut(in.Amount)

	user, agent, err := e.counterparts(ctx, in)
	if err != nil {
		return pending.Request{}, err
	}
	if user.Balance-fee < in.Amount {
		return pending.Request{}, apperr.ErrInsufficientFunds
	}
	return e.submit(ctx, pending.KindCashOut, user, agent, in.Amount, fee)
}

// RequestCashIn queues a deposit through an agent. The agent is the payer,
// so the agent's balance is checked.
func (e *Engine) RequestCashIn(ctx context.Context, in RequestInput) (pending.Request, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := fees.CheckPositive(in.Amount); err != nil {
		return pending.Request{}, err
	}

	user, agent, err := e.counterparts(ctx, in)
	if err != nil {
		return pending.Request{}, err
	}
	if agent.Balance < in.Amount {
		return pending.Request{}, apperr.ErrInsufficientFunds
	}
	return e.submit(ctx, pending.KindCashIn, user, agent, in.Amount, fees.CashIn(in.Amount))
}

func (e *Engine) counterparts(ctx context.Context, in RequestInput) (account.Account, account.Account, error) {
	user, err := e.store.FindByID(ctx, in.RequesterID)
	if err != nil {
		return account.Account{}, account.Account{}, classify(err)
	}
	agent, err := account.Resolve(ctx, e.store, in.Agent)
	if err != nil {
		return account.Account{}, account.Account{}, classify(err)
	}
	if agent.Role != account.RoleAgent {
		return account.Account{}, account.Account{}, apperr.ErrNotAnAgent
	}
	if user.ID == agent.ID {
		return account.Account{}, account.Account{}, apperr.ErrSelfTransfer
	}
	if err := canPay(user); err != nil {
		return account.Account{}, account.Account{}, err
	}
	if err := canReceive(agent); err != nil {
		return account.Account{}, account.Account{}, err
	}
	if !e.verifier.Verify(user.PINHash, in.PIN) {
		return account.Account{}, account.Account{}, apperr.ErrInvalidPIN
	}
	return user, agent, nil
}

func (e *Engine) submit(ctx context.Context, kind pending.Kind, user, agent account.Account, amount, fee money.Amount) (pending.Request, error) {
	req := pending.Request{
		ID:        e.newID(),
		Kind:      kind,
		Requester: user.Snapshot(),
		Agent:     agent.Snapshot(),
		Amount:    amount,
		Fee:       fee,
		CreatedAt: e.now().UTC(),
	}
	err := e.atomically(ctx, func(tx Tx) error {
		return tx.InsertRequest(ctx, req)
	})
	if err != nil {
		return pending.Request{}, err
	}

	logging.FromContext(ctx, e.logger).Info("request queued",
		"request_id", req.ID,
		"kind", string(kind),
		"requester_id", user.ID,
		"agent_id", agent.ID,
		"amount", amount.String(),
	)
	e.notify(ctx, notification.Message{
		Kind:        notification.KindRequestCreated,
		Destination: agent.ID,
		Reference:   req.ID,
		Body:        fmt.Sprintf("%s requested %s of %s", user.Name, strings.ReplaceAll(string(kind), "_", "-"), amount),
	})
	return req, nil
}

// Approve settles the pending request on behalf of agentID, the agent named
// on it. The request is consumed in the same unit of work as the balance
// changes, so a request settles at most once.
func (e *Engine) Approve(ctx context.Context, agentID, requestID string) (Settlement, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var out Settlement
	err := e.atomically(ctx, func(tx Tx) error {
		req, err := tx.TakeRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Agent.ID != agentID {
			return apperr.ErrRequestNotFound
		}
		if err := fees.CheckPositive(req.Amount); err != nil {
			return err
		}
		user, err := tx.FindByID(ctx, req.Requester.ID)
		if err != nil {
			return err
		}
		agent, err := tx.FindByID(ctx, req.Agent.ID)
		if err != nil {
			return err
		}
		if err := canPay(agent); err != nil {
			return err
		}
		if err := canReceive(user); err != nil {
			return err
		}

		var (
			fee    money.Amount
			deltas []balanceDelta
			legs   [2]history.Record
		)
		now := e.now().UTC()
		switch req.Kind {
		case pending.KindCashOut:
			fee = fees.CashOut(req.Amount)
			deltas = []balanceDelta{{user.ID, -(req.Amount + fee)}, {agent.ID, req.Amount}}
			legs[0] = history.Record{Kind: history.KindCashOut, OwnerID: user.ID, Sender: user.Snapshot(), Receiver: agent.Snapshot(), Fee: fee}
			legs[1] = history.Record{Kind: history.KindCashIn, OwnerID: agent.ID, Sender: user.Snapshot(), Receiver: agent.Snapshot()}
		case pending.KindCashIn:
			fee = fees.CashIn(req.Amount)
			deltas = []balanceDelta{{agent.ID, -req.Amount}, {user.ID, req.Amount}}
			legs[0] = history.Record{Kind: history.KindCashIn, OwnerID: user.ID, Sender: agent.Snapshot(), Receiver: user.Snapshot()}
			legs[1] = history.Record{Kind: history.KindCashOut, OwnerID: agent.ID, Sender: agent.Snapshot(), Receiver: user.Snapshot()}
		default:
			return apperr.Validation("unknown_request_kind", fmt.Sprintf("unknown request kind %q", req.Kind))
		}

		if _, err := applyDeltas(ctx, tx, deltas...); err != nil {
			return err
		}
		for i := range legs {
			legs[i].ID = e.newID()
			legs[i].Amount = req.Amount
			legs[i].CreatedAt = now
		}
		if err := tx.AppendRecords(ctx, legs[:]...); err != nil {
			return err
		}

		out = Settlement{Request: req, Fee: fee, Records: legs[:]}
		return nil
	})
	if err != nil {
		return Settlement{}, err
	}

	logging.FromContext(ctx, e.logger).Info("request approved",
		"request_id", out.Request.ID,
		"kind", string(out.Request.Kind),
		"requester_id", out.Request.Requester.ID,
		"agent_id", agentID,
		"amount", out.Request.Amount.String(),
		"fee", out.Fee.String(),
	)
	e.notify(ctx, notification.Message{
		Kind:        notification.KindRequestApproved,
		Destination: out.Request.Requester.ID,
		Reference:   out.Request.ID,
		Body:        fmt.Sprintf("Your request of %s was approved by %s", out.Request.Amount, out.Request.Agent.Name),
	})
	return out, nil
}

// atomically runs fn as one unit of work, repeating it when the store
// reports a conflict.
func (e *Engine) atomically(ctx context.Context, fn func(Tx) error) error {
	attempt := func() error {
		err := e.store.WithinTx(ctx, fn)
		if err == nil || errors.Is(err, apperr.ErrConflict) {
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 20 * time.Millisecond
	policy.MaxInterval = 250 * time.Millisecond
	retries := backoff.WithMaxRetries(policy, uint64(e.maxAttempts-1))

	return classify(backoff.Retry(attempt, backoff.WithContext(retries, ctx)))
}

func (e *Engine) notify(ctx context.Context, msg notification.Message) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Send(context.WithoutCancel(ctx), msg); err != nil {
		logging.FromContext(ctx, e.logger).Warn("notification failed", "kind", msg.Kind, "reference", msg.Reference, "error", err)
	}
}

// classify maps anything that is not already a domain error to Transient.
func classify(err error) error {
	if err == nil || apperr.KindOf(err) != nil {
		return err
	}
	return apperr.Transient(err)
}

func canPay(a account.Account) error {
	switch a.Status {
	case account.StatusApproved:
		return nil
	case account.StatusBlocked:
		return apperr.ErrAccountBlocked
	default:
		return apperr.ErrAccountInactive
	}
}

func canReceive(a account.Account) error {
	if a.Status == account.StatusBlocked {
		return apperr.ErrAccountBlocked
	}
	return nil
}

type balanceDelta struct {
	accountID string
	amount    money.Amount
}

// applyDeltas applies balance changes in account id order so that
// concurrent settlements over the same accounts lock them in the same order.
func applyDeltas(ctx context.Context, tx Tx, deltas ...balanceDelta) (map[string]account.Account, error) {
	ordered := slices.Clone(deltas)
	slices.SortFunc(ordered, func(a, b balanceDelta) int {
		return strings.Compare(a.accountID, b.accountID)
	})

	updated := make(map[string]account.Account, len(ordered))
	for _, d := range ordered {
		acc, err := tx.ApplyDelta(ctx, d.accountID, d.amount)
		if err != nil {
			return nil, err
		}
		updated[d.accountID] = acc
	}
	return updated, nil
}
