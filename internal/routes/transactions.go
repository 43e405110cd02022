package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/history"
	"github.com/congo-pay/agentcash/internal/ledger"
	"github.com/congo-pay/agentcash/internal/middleware"
	"github.com/congo-pay/agentcash/internal/pending"
)

// RegisterTransactionRoutes wires the money-moving endpoints.
func RegisterTransactionRoutes(r fiber.Router, h *ledger.Handler) {
	group := r.Group("/transactions")
	group.Post("/send-money", h.SendMoney)
	group.Post("/cash-out", h.CashOut)
	group.Post("/cash-in", h.CashIn)
}

// RegisterRequestRoutes wires the agent inbox and approval.
func RegisterRequestRoutes(r fiber.Router, inbox *pending.Handler, settle *ledger.Handler) {
	group := r.Group("/requests", middleware.RequireRole(string(account.RoleAgent)))
	group.Get("/", inbox.Inbox)
	group.Post("/:requestId/approve", settle.Approve)
}

// RegisterHistoryRoutes wires history views.
func RegisterHistoryRoutes(r fiber.Router, h *history.Handler) {
	r.Get("/history", h.Mine)
	r.Get("/accounts/:identifier/history", h.ByIdentifier)
}
