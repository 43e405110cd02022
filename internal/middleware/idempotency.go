package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/auth"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "idempotency:v2:"
	inProgressMarker     = "__in_progress__"
	cacheTimeout         = 2 * time.Second
)

var (
	errMissingIdempotencyKey = apperr.Validation("missing_idempotency_key", "Idempotency-Key header is required")
	errRequestInProgress     = apperr.New(apperr.ErrConflict, "request_in_progress", "a request with this Idempotency-Key is still being settled")
	errIdempotencyKeyReused  = apperr.New(apperr.ErrConflict, "idempotency_key_reused", "Idempotency-Key was already used for a different request")
)

// replay is a settled response kept for a retried request. Fingerprint ties
// it to the method, path and body it answered.
type replay struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        string `json:"body"`
}

// Idempotency makes money-moving calls safe to retry. The first response for
// an Idempotency-Key is stored in Redis and replayed for the same caller;
// reusing the key for a different payload is refused. Failed calls are not
// stored so the client can retry them.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return errMissingIdempotencyKey
		}
		cacheKey := idempotencyPrefix + key
		if id, ok := auth.IdentityFrom(c); ok {
			cacheKey = idempotencyPrefix + id.AccountID + ":" + key
		}
		fingerprint := fingerprintOf(c)
		log := logger.With(slog.String("idempotency_key", key))

		ctx, cancel := context.WithTimeout(c.UserContext(), cacheTimeout)
		defer cancel()

		cached, err := cache.Get(ctx, cacheKey).Result()
		switch {
		case err == nil:
			return replayStored(c, cached, fingerprint, log)
		case !errors.Is(err, redis.Nil):
			log.Error("idempotency lookup failed", slog.Any("error", err))
			return apperr.Transient(err)
		}

		reserved, err := cache.SetNX(ctx, cacheKey, inProgressMarker, ttl).Result()
		if err != nil {
			log.Error("idempotency reservation failed", slog.Any("error", err))
			return apperr.Transient(err)
		}
		if !reserved {
			return errRequestInProgress
		}

		if err := c.Next(); err != nil {
			release(cache, cacheKey, log)
			return err
		}

		payload, err := json.Marshal(replay{
			Fingerprint: fingerprint,
			Status:      c.Response().StatusCode(),
			ContentType: string(c.Response().Header.ContentType()),
			Body:        string(c.Response().Body()),
		})
		if err != nil {
			release(cache, cacheKey, log)
			return err
		}

		// The settlement already happened; a failed write only costs the replay.
		persistCtx, persistCancel := context.WithTimeout(context.WithoutCancel(c.UserContext()), cacheTimeout)
		defer persistCancel()
		if err := cache.Set(persistCtx, cacheKey, payload, ttl).Err(); err != nil {
			log.Error("failed to persist idempotent response", slog.Any("error", err))
			release(cache, cacheKey, log)
		}
		return nil
	}
}

func replayStored(c *fiber.Ctx, cached, fingerprint string, log *slog.Logger) error {
	if cached == inProgressMarker {
		return errRequestInProgress
	}
	var stored replay
	if err := json.Unmarshal([]byte(cached), &stored); err != nil {
		log.Warn("failed to decode stored idempotent response", slog.Any("error", err))
		return errIdempotencyKeyReused
	}
	if stored.Fingerprint != fingerprint {
		return errIdempotencyKeyReused
	}
	if stored.ContentType != "" {
		c.Set(fiber.HeaderContentType, stored.ContentType)
	}
	c.Set("X-Idempotency-Hit", "true")
	return c.Status(stored.Status).SendString(stored.Body)
}

func release(cache *redis.Client, cacheKey string, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()
	if err := cache.Del(ctx, cacheKey).Err(); err != nil {
		log.Warn("failed to release idempotency key", slog.Any("error", err))
	}
}

func fingerprintOf(c *fiber.Ctx) string {
	h := sha256.New()
	h.Write([]byte(c.Method()))
	h.Write([]byte{0})
	h.Write([]byte(c.Path()))
	h.Write([]byte{0})
	h.Write(c.Body())
	return hex.EncodeToString(h.Sum(nil))
}
