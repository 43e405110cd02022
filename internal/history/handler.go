package history

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/auth"
	"github.com/congo-pay/agentcash/internal/money"
)

// Handler exposes history endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type recordResponse struct {
	ID        string           `json:"id"`
	Kind      Kind             `json:"kind"`
	Sender    account.Snapshot `json:"sender"`
	Receiver  account.Snapshot `json:"receiver"`
	Amount    money.Amount     `json:"amount"`
	Fee       money.Amount     `json:"fee"`
	CreatedAt time.Time        `json:"created_at"`
}

type listResponse struct {
	Records []recordResponse `json:"records"`
}

func toResponse(records []Record) listResponse {
	out := make([]recordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, recordResponse{
			ID:        r.ID,
			Kind:      r.Kind,
			Sender:    r.Sender,
			Receiver:  r.Receiver,
			Amount:    r.Amount,
			Fee:       r.Fee,
			CreatedAt: r.CreatedAt,
		})
	}
	return listResponse{Records: out}
}

// Mine returns the caller's own recent history.
func (h *Handler) Mine(c *fiber.Ctx) error {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		return apperr.ErrMissingToken
	}
	records, err := h.svc.ForAccount(c.UserContext(), id.AccountID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(toResponse(records))
}

// ByIdentifier returns the recent history of the account named in the path.
func (h *Handler) ByIdentifier(c *fiber.Ctx) error {
	records, err := h.svc.ForIdentifier(c.UserContext(), c.Params("identifier"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(toResponse(records))
}

// Search filters all history by participant email.
func (h *Handler) Search(c *fiber.Ctx) error {
	records, err := h.svc.Search(c.UserContext(), c.Query("search"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(toResponse(records))
}
