package account

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/money"
	"github.com/congo-pay/agentcash/internal/validation"
)

// Handler exposes registration, lookup and admin endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,max=32"`
	PIN   string `json:"pin" validate:"required,numeric,min=4,max=12"`
	Role  string `json:"role" validate:"required,oneof=user agent"`
}

// Response is the public view of an account. PIN hashes never leave the
// service.
type Response struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Phone     string       `json:"phone"`
	Role      Role         `json:"role"`
	Status    Status       `json:"status"`
	Balance   money.Amount `json:"balance"`
	CreatedAt time.Time    `json:"created_at"`
}

// ToResponse converts an Account for the wire.
func ToResponse(a Account) Response {
	return Response{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Phone:     a.Phone,
		Role:      a.Role,
		Status:    a.Status,
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt,
	}
}

// Register handles onboarding.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := validation.ParseBody(c, &req); err != nil {
		return err
	}
	role, _ := ParseRole(req.Role)
	acc, err := h.service.Register(c.UserContext(), Registration{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		PIN:   req.PIN,
		Role:  role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(ToResponse(acc))
}

// Lookup resolves the email or phone in the path.
func (h *Handler) Lookup(c *fiber.Ctx) error {
	acc, err := h.service.Lookup(c.UserContext(), c.Params("identifier"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(ToResponse(acc))
}

// List returns every account.
func (h *Handler) List(c *fiber.Ctx) error {
	accounts, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]Response, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, ToResponse(a))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"accounts": out})
}

// Approve activates the account in the path.
func (h *Handler) Approve(c *fiber.Ctx) error {
	admin, ok := ActorFrom(c)
	if !ok {
		return apperr.ErrForbiddenAdmin
	}
	acc, err := h.service.ApproveBy(c.UserContext(), admin, c.Params("accountId"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(ToResponse(acc))
}

// Block freezes the account in the path.
func (h *Handler) Block(c *fiber.Ctx) error {
	admin, ok := ActorFrom(c)
	if !ok {
		return apperr.ErrForbiddenAdmin
	}
	acc, err := h.service.BlockBy(c.UserContext(), admin, c.Params("accountId"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(ToResponse(acc))
}
