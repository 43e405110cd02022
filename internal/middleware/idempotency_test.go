package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/auth"
	"github.com/congo-pay/agentcash/internal/logging"
)

const testAccountHeader = "X-Test-Account"

func setupTestApp(t *testing.T) (*fiber.App, *atomic.Int32, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.Status(statusOf(err)).JSON(fiber.Map{"error": fiber.Map{"code": apperr.Code(err)}})
	}})
	logger := logging.Discard()
	calls := &atomic.Int32{}

	app.Use(func(c *fiber.Ctx) error {
		if id := c.Get(testAccountHeader); id != "" {
			auth.SetIdentity(c, auth.Identity{AccountID: id, Role: account.RoleUser})
		}
		return c.Next()
	})
	app.Use(Idempotency(cache, time.Minute, logger))
	app.Post("/resource", func(c *fiber.Ctx) error {
		n := calls.Add(1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "call": n})
	})

	cleanup := func() {
		cache.Close()
		mr.Close()
	}

	return app, calls, cleanup
}

func post(t *testing.T, app *fiber.App, key, accountID string) (int, string) {
	t.Helper()
	return postBody(t, app, key, accountID, "{}")
}

func postBody(t *testing.T, app *fiber.App, key, accountID, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/resource", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	if accountID != "" {
		req.Header.Set(testAccountHeader, accountID)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(out)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	app, _, cleanup := setupTestApp(t)
	defer cleanup()

	status, body := post(t, app, "", "")
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, status)
	}
	if !strings.Contains(body, "missing_idempotency_key") {
		t.Fatalf("expected error envelope, got %s", body)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls, cleanup := setupTestApp(t)
	defer cleanup()

	status, payload := post(t, app, "abc123", "acc-1")
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, status)
	}

	status, cached := post(t, app, "abc123", "acc-1")
	if status != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, status)
	}
	if cached != payload {
		t.Fatalf("expected cached payload %s got %s", payload, cached)
	}
	if calls.Load() != 1 {
		t.Fatalf("handler ran %d times", calls.Load())
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(cached), &decoded); err != nil {
		t.Fatalf("cached payload invalid json: %v", err)
	}
}

func TestIdempotencyKeysAreScopedToCaller(t *testing.T) {
	app, calls, cleanup := setupTestApp(t)
	defer cleanup()

	post(t, app, "same-key", "acc-1")
	_, body := post(t, app, "same-key", "acc-2")
	if calls.Load() != 2 {
		t.Fatalf("expected each caller to execute once, got %d", calls.Load())
	}
	if !strings.Contains(body, `"call":2`) {
		t.Fatalf("second caller received a replay: %s", body)
	}
}

func TestIdempotencyRefusesKeyReuseWithDifferentPayload(t *testing.T) {
	app, calls, cleanup := setupTestApp(t)
	defer cleanup()

	postBody(t, app, "send-1", "acc-1", `{"amount":50}`)
	status, body := postBody(t, app, "send-1", "acc-1", `{"amount":5000}`)
	if status != fiber.StatusConflict {
		t.Fatalf("expected %d got %d", fiber.StatusConflict, status)
	}
	if !strings.Contains(body, "idempotency_key_reused") {
		t.Fatalf("expected key reuse error, got %s", body)
	}
	if calls.Load() != 1 {
		t.Fatalf("handler ran %d times", calls.Load())
	}
}

func TestIdempotencyReleasesKeyOnFailure(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	failures := &atomic.Int32{}
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.Status(statusOf(err)).SendString(apperr.Code(err))
	}})
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error {
		if failures.Add(1) == 1 {
			return apperr.ErrInsufficientFunds
		}
		return c.SendStatus(fiber.StatusCreated)
	})

	if status, _ := post(t, app, "retry-me", ""); status != fiber.StatusBadRequest {
		t.Fatalf("expected first call to fail, got %d", status)
	}
	if status, _ := post(t, app, "retry-me", ""); status != fiber.StatusCreated {
		t.Fatalf("expected retry to run, got %d", status)
	}
}

func TestIdempotencyRejectsRequestInFlight(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	if err := mr.Set(idempotencyPrefix+"acc-1:busy", inProgressMarker); err != nil {
		t.Fatalf("seed: %v", err)
	}
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.Status(statusOf(err)).SendString(apperr.Code(err))
	}})
	app.Use(func(c *fiber.Ctx) error {
		auth.SetIdentity(c, auth.Identity{AccountID: c.Get(testAccountHeader), Role: account.RoleUser})
		return c.Next()
	})
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })

	status, body := post(t, app, "busy", "acc-1")
	if status != fiber.StatusConflict || body != "request_in_progress" {
		t.Fatalf("expected in-progress conflict, got %d %s", status, body)
	}
}
