package ledger

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/auth"
	"github.com/congo-pay/agentcash/internal/history"
	"github.com/congo-pay/agentcash/internal/money"
	"github.com/congo-pay/agentcash/internal/pending"
	"github.com/congo-pay/agentcash/internal/validation"
)

// Handler exposes settlement endpoints.
type Handler struct {
	engine *Engine
}

// NewHandler constructs a settlement handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

type sendMoneyRequest struct {
	Receiver string       `json:"receiver" validate:"required"`
	Amount   money.Amount `json:"amount"`
	PIN      string       `json:"pin" validate:"required"`
}

type agentRequest struct {
	Agent  string       `json:"agent" validate:"required"`
	Amount money.Amount `json:"amount"`
	PIN    string       `json:"pin" validate:"required"`
}

type receiptResponse struct {
	RecordID  string           `json:"record_id"`
	Amount    money.Amount     `json:"amount"`
	Fee       money.Amount     `json:"fee"`
	Balance   money.Amount     `json:"balance"`
	Receiver  account.Snapshot `json:"receiver"`
	SettledAt time.Time        `json:"settled_at"`
}

type recordResponse struct {
	ID       string           `json:"id"`
	Kind     history.Kind     `json:"kind"`
	Sender   account.Snapshot `json:"sender"`
	Receiver account.Snapshot `json:"receiver"`
	Amount   money.Amount     `json:"amount"`
	Fee      money.Amount     `json:"fee"`
}

type settlementResponse struct {
	RequestID string           `json:"request_id"`
	Kind      pending.Kind     `json:"kind"`
	Amount    money.Amount     `json:"amount"`
	Fee       money.Amount     `json:"fee"`
	Records   []recordResponse `json:"records"`
}

func caller(c *fiber.Ctx) (auth.Identity, error) {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		return auth.Identity{}, apperr.ErrMissingToken
	}
	return id, nil
}

// SendMoney settles a direct transfer from the caller.
func (h *Handler) SendMoney(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var req sendMoneyRequest
	if err := validation.ParseBody(c, &req); err != nil {
		return err
	}
	receipt, err := h.engine.SendMoney(c.UserContext(), SendMoneyInput{
		SenderID: id.AccountID,
		Receiver: req.Receiver,
		Amount:   req.Amount,
		PIN:      req.PIN,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(receiptResponse{
		RecordID:  receipt.RecordID,
		Amount:    receipt.Amount,
		Fee:       receipt.Fee,
		Balance:   receipt.SenderBalance,
		Receiver:  receipt.Receiver,
		SettledAt: receipt.SettledAt,
	})
}

// CashOut queues a withdrawal request for an agent.
func (h *Handler) CashOut(c *fiber.Ctx) error {
	return h.request(c, h.engine.RequestCashOut)
}

// CashIn queues a deposit request for an agent.
func (h *Handler) CashIn(c *fiber.Ctx) error {
	return h.request(c, h.engine.RequestCashIn)
}

func (h *Handler) request(c *fiber.Ctx, submit func(ctx context.Context, in RequestInput) (pending.Request, error)) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var req agentRequest
	if err := validation.ParseBody(c, &req); err != nil {
		return err
	}
	queued, err := submit(c.UserContext(), RequestInput{
		RequesterID: id.AccountID,
		Agent:       req.Agent,
		Amount:      req.Amount,
		PIN:         req.PIN,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(pending.ToResponse(queued))
}

// Approve settles a pending request addressed to the calling agent.
func (h *Handler) Approve(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	settled, err := h.engine.Approve(c.UserContext(), id.AccountID, c.Params("requestId"))
	if err != nil {
		return err
	}
	records := make([]recordResponse, 0, len(settled.Records))
	for _, r := range settled.Records {
		records = append(records, recordResponse{
			ID:       r.ID,
			Kind:     r.Kind,
			Sender:   r.Sender,
			Receiver: r.Receiver,
			Amount:   r.Amount,
			Fee:      r.Fee,
		})
	}
	return c.Status(http.StatusOK).JSON(settlementResponse{
		RequestID: settled.Request.ID,
		Kind:      settled.Request.Kind,
		Amount:    settled.Request.Amount,
		Fee:       settled.Fee,
		Records:   records,
	})
}
