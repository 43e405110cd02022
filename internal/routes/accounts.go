package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/history"
)

// RegisterAccountRoutes wires public account endpoints.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler) {
	r.Post("/accounts/register", h.Register)
}

// RegisterLookupRoutes wires counterparty lookup.
func RegisterLookupRoutes(r fiber.Router, h *account.Handler) {
	r.Get("/accounts/:identifier", h.Lookup)
}

// RegisterAdminRoutes wires account administration and history search
// behind the administrator gate.
func RegisterAdminRoutes(r fiber.Router, gate fiber.Handler, accounts *account.Handler, records *history.Handler) {
	admin := r.Group("/admin", gate)
	admin.Get("/accounts", accounts.List)
	admin.Patch("/accounts/:accountId/approve", accounts.Approve)
	admin.Patch("/accounts/:accountId/block", accounts.Block)
	admin.Get("/history", records.Search)
}
