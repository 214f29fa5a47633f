package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lalith-99/guardpost/internal/api"
	"github.com/lalith-99/guardpost/internal/cache"
	"github.com/lalith-99/guardpost/internal/config"
	"github.com/lalith-99/guardpost/internal/db"
	"github.com/lalith-99/guardpost/internal/observ"
	"github.com/lalith-99/guardpost/internal/present"
	"github.com/lalith-99/guardpost/internal/realtime"
	"github.com/lalith-99/guardpost/internal/repository"
	"github.com/lalith-99/guardpost/internal/repository/postgres"
	"github.com/lalith-99/guardpost/internal/repository/sqlite"
	"github.com/lalith-99/guardpost/internal/service"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := pflag.String("config", "", "optional YAML config file, applied over environment values")
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	port := pflag.String("port", "", "listen port, overrides PORT and the config file")
	pflag.Parse()

	// A missing .env is normal outside local development.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *port != "" {
		cfg.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// Startup has no request to inherit a deadline from, so connect and
	// migrate with a bounded background context.
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	store, health, closeDB, err := openStore(startCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	registry := realtime.NewRegistry(logger)
	brokerErr := make(chan error, 1)
	var (
		broker  realtime.Broker = realtime.NewLocalBroker(registry)
		limiter *cache.Cache
	)
	if cfg.RedisURL != "" {
		limiter, err = cache.New(startCtx, cfg.RedisURL, logger)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer limiter.Close()

		// Subscribe before serving: with a dead subscription every
		// publish would reach nobody.
		redisBroker := realtime.NewRedisBroker(limiter.Client(), registry, logger)
		if err := redisBroker.Subscribe(startCtx); err != nil {
			return fmt.Errorf("subscribe to redis: %w", err)
		}
		go func() {
			// Run returns nil only once runCtx is cancelled at shutdown.
			if err := redisBroker.Run(runCtx); err != nil {
				brokerErr <- err
			}
		}()
		broker = redisBroker
	} else {
		logger.Info("REDIS_URL not set, using in-process delivery without rate limiting")
	}

	presenter := present.New(store.Users, store.Jobs)
	publisher := realtime.NewMessagePublisher(presenter, broker)
	wsServer := realtime.NewServer(registry, realtime.DefaultConnConfig(), logger)

	deps := api.Deps{
		DB:               health,
		Users:            service.NewUserService(store.Users, logger),
		Jobs:             service.NewJobService(store.Jobs, logger),
		Messages:         service.NewMessageService(store.Messages, store.Users, store.Jobs, publisher, logger),
		Reviews:          service.NewReviewService(store.Reviews, store.Jobs, logger),
		Presenter:        presenter,
		Realtime:         wsServer,
		Logger:           logger,
		JWTSecret:        cfg.JWTSecret,
		TokenTTL:         cfg.TokenTTL,
		CORSOrigin:       cfg.CORSOrigin,
		MessageRateLimit: cfg.MessageRateLimit,
	}
	// Assigned only when set: a nil *cache.Cache in the interface would not
	// compare equal to nil.
	if limiter != nil {
		deps.Limiter = limiter
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.SetupRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting GuardPost",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("database", cfg.DatabaseDriver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-brokerErr:
		// Live delivery is gone. Exit non-zero so the process is restarted.
		logger.Error("redis broker stopped", zap.Error(err))
		runErr = fmt.Errorf("redis broker: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown.
	wsServer.Close()
	stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return runErr
}

// openStore connects to the configured database, applies migrations and
// returns the repositories along with a health pinger and a close func.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, api.Pinger, func(), error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		database, err := db.OpenSQLite(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return repository.Store{}, nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return repository.Store{}, nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return sqlite.NewStore(database.Conn()), database, func() { database.Close() }, nil
	default:
		database, err := db.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return repository.Store{}, nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return repository.Store{}, nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		return postgres.NewStore(database.Pool()), database, database.Close, nil
	}
}
