package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/congo-pay/agentcash/internal/config"
	"github.com/congo-pay/agentcash/internal/infra"
	"github.com/congo-pay/agentcash/internal/logging"
	"github.com/congo-pay/agentcash/internal/routes"
	"github.com/congo-pay/agentcash/internal/server"
	"github.com/congo-pay/agentcash/internal/store/memory"
	"github.com/congo-pay/agentcash/internal/store/mongodb"
	"github.com/congo-pay/agentcash/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, "app", cfg.AppName, "env", cfg.AppEnv)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited cleanly")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()
	deps := routes.Deps{Cfg: cfg, Logger: logger}

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.AppName)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(db); err != nil {
			return err
		}
		deps.DB = db
		deps.Store = postgres.New(db)
	case config.BackendMongo:
		client, err := infra.NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Warn("close mongo", "error", err)
			}
		}()
		st := mongodb.New(client, cfg.MongoDatabase)
		if err := st.EnsureIndexes(ctx); err != nil {
			return err
		}
		deps.Mongo = client
		deps.Store = st
	default:
		logger.Warn("using in-memory store, balances are lost on restart")
		deps.Store = memory.New()
	}

	if cfg.RedisURL != "" {
		cache, err := infra.NewRedisClient(ctx, cfg.RedisURL, cfg.AppName)
		if err != nil {
			return err
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
		deps.Cache = cache
	}

	if cfg.NATSURL != "" {
		nc, err := infra.NewNATSConn(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			return err
		}
		defer nc.Close()
		deps.Events = nc
	}

	srv, err := server.New(deps)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
