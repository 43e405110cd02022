package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(RequestIDFrom(c)) })

	cases := map[string]bool{
		"":                       false,
		"client-abc.123":         true,
		"has space":              false,
		strings.Repeat("x", 129): false,
		strings.Repeat("y", 128): true,
	}
	for incoming, kept := range cases {
		req := httptest.NewRequest(fiber.MethodGet, "/", nil)
		if incoming != "" {
			req.Header.Set(requestIDHeader, incoming)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		got := resp.Header.Get(requestIDHeader)
		if kept && got != incoming {
			t.Fatalf("expected %q to be kept, got %q", incoming, got)
		}
		if !kept {
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("expected generated id for %q, got %q", incoming, got)
			}
		}
	}
}
