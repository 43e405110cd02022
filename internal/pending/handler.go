package pending

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/auth"
	"github.com/congo-pay/agentcash/internal/money"
)

// Handler exposes the agent inbox.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RequestResponse is the wire shape of a pending request.
type RequestResponse struct {
	ID        string           `json:"id"`
	Kind      Kind             `json:"kind"`
	Requester account.Snapshot `json:"requester"`
	Agent     account.Snapshot `json:"agent"`
	Amount    money.Amount     `json:"amount"`
	Fee       money.Amount     `json:"fee"`
	CreatedAt time.Time        `json:"created_at"`
}

// ToResponse converts a Request for the wire.
func ToResponse(r Request) RequestResponse {
	return RequestResponse{
		ID:        r.ID,
		Kind:      r.Kind,
		Requester: r.Requester,
		Agent:     r.Agent,
		Amount:    r.Amount,
		Fee:       r.Fee,
		CreatedAt: r.CreatedAt,
	}
}

// Inbox lists the requests addressed to the calling agent.
func (h *Handler) Inbox(c *fiber.Ctx) error {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		return apperr.ErrMissingToken
	}
	reqs, err := h.svc.ForAgent(c.UserContext(), id.AccountID)
	if err != nil {
		return err
	}
	out := make([]RequestResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, ToResponse(r))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"requests": out})
}
