package middleware

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/auth"
)

// Audit emits structured logs for each request/response lifecycle event.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}
		duration := time.Since(start)
		requestID := RequestIDFrom(c)

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", duration),
		}
		if requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		if id, ok := auth.IdentityFrom(c); ok {
			attrs = append(attrs, slog.String("account_id", id.AccountID))
		}
		if err != nil {
			attrs = append(attrs, slog.String("error_code", apperr.Code(err)), slog.Any("error", err))
			if status >= 500 {
				logger.Error("request failed", attrs...)
			} else {
				logger.Warn("request rejected", attrs...)
			}
			return err
		}

		logger.Info("request completed", attrs...)
		return nil
	}
}

// statusOf predicts the status the error handler will write.
func statusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return apperr.HTTPStatus(err)
}
