package auth

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/agentcash/internal/validation"
)

// Handler exposes the login endpoint.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	PIN        string `json:"pin" validate:"required"`
}

type loginResponse struct {
	AccountID   string `json:"account_id"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Login validates credentials and returns an access token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := validation.ParseBody(c, &req); err != nil {
		return err
	}
	sess, err := h.svc.Login(c.UserContext(), req.Identifier, req.PIN)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(loginResponse{
		AccountID:   sess.Account.ID,
		Role:        string(sess.Account.Role),
		Status:      string(sess.Account.Status),
		AccessToken: sess.AccessToken,
		ExpiresIn:   int64(time.Until(sess.ExpiresAt).Seconds()),
	})
}
