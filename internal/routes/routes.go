package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/auth"
	"github.com/congo-pay/agentcash/internal/config"
	"github.com/congo-pay/agentcash/internal/history"
	"github.com/congo-pay/agentcash/internal/ledger"
	"github.com/congo-pay/agentcash/internal/middleware"
	"github.com/congo-pay/agentcash/internal/notification"
	"github.com/congo-pay/agentcash/internal/pending"
)

// Store is the storage backend every service runs on.
type Store interface {
	ledger.Store
	account.Repository
	history.Repository
	pending.Repository
}

// Deps aggregates shared dependencies required to wire routes. DB, Mongo,
// Cache and Events are optional; only the ones that are set get health
// checked.
type Deps struct {
	Cfg    config.Config
	Store  Store
	DB     *pgxpool.Pool
	Mongo  *mongo.Client
	Cache  *redis.Client
	Events *nats.Conn
	Logger *slog.Logger
	Hasher account.Hasher
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Store == nil {
		return fmt.Errorf("store is required")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Hasher == nil {
		d.Hasher = account.BcryptHasher{}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Services and handlers
	var notifier notification.Notifier = notification.NewLoggerNotifier(d.Logger)
	if d.Events != nil {
		notifier = notification.Multi{notifier, notification.NewNATSNotifier(d.Events, "")}
	}

	accountSvc := account.NewService(d.Store, d.Hasher, account.WithAdmins(d.Cfg.AdminAccounts...))
	if err := approveAdmins(accountSvc, d); err != nil {
		return err
	}
	tokens := auth.NewTokens(d.Cfg.JWTSecret, d.Cfg.AccessTokenTTL)
	authSvc := auth.NewService(accountSvc, tokens)
	engine := ledger.NewEngine(d.Store, d.Hasher,
		ledger.WithNotifier(notifier),
		ledger.WithLogger(d.Logger),
		ledger.WithTimeout(d.Cfg.StoreTimeout),
	)
	historySvc := history.NewService(d.Store, d.Store)
	pendingSvc := pending.NewService(d.Store, d.Store)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID := middleware.RequestIDFrom(c)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	accountHandler := account.NewHandler(accountSvc)
	historyHandler := history.NewHandler(historySvc)
	settlement := ledger.NewHandler(engine)

	// Public routes
	RegisterAccountRoutes(api, accountHandler)
	RegisterAuthRoutes(api, auth.NewHandler(authSvc), middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimit))

	// Protected routes. Idempotency runs after authentication so cached
	// responses are scoped to the caller.
	protected := api.Group("", middleware.JWTAuth(tokens))
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterLookupRoutes(protected, accountHandler)
	RegisterTransactionRoutes(protected, settlement)
	RegisterRequestRoutes(protected, pending.NewHandler(pendingSvc), settlement)
	RegisterHistoryRoutes(protected, historyHandler)
	RegisterAdminRoutes(protected, middleware.RequireAdmin(accountSvc), accountHandler, historyHandler)

	return nil
}

func approveAdmins(accounts *account.Service, d Deps) error {
	timeout := d.Cfg.StoreTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	n, err := accounts.ApproveAdmins(ctx)
	if err != nil {
		return fmt.Errorf("approve administrators: %w", err)
	}
	if len(d.Cfg.AdminAccounts) == 0 {
		d.Logger.Warn("ADMIN_ACCOUNTS is empty, account administration is disabled")
	} else if n > 0 {
		d.Logger.Info("approved listed administrators", "count", n)
	}
	return nil
}
