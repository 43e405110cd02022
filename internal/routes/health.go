package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// RegisterHealthRoutes adds liveness/readiness style endpoints. Only
// configured dependencies are reported.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		checks := fiber.Map{}
		healthy := true
		report := func(name string, err error) {
			if err != nil {
				checks[name] = err.Error()
				healthy = false
				return
			}
			checks[name] = "ok"
		}

		if d.DB != nil {
			report("postgres", d.DB.Ping(ctx))
		}
		if d.Mongo != nil {
			report("mongo", d.Mongo.Ping(ctx, readpref.Primary()))
		}
		if d.Cache != nil {
			report("redis", d.Cache.Ping(ctx).Err())
		}
		if d.Events != nil {
			var err error
			if d.Events.Status() != nats.CONNECTED {
				err = nats.ErrConnectionClosed
			}
			report("nats", err)
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    checks,
			"backend":   d.Cfg.StoreBackend,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
