package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cardpayout/internal/bank"
	"cardpayout/internal/config"
	handler "cardpayout/internal/handler/http"
	"cardpayout/internal/logger"
	"cardpayout/internal/notify"
	"cardpayout/internal/repository/migration"
	"cardpayout/internal/repository/postgresql"
	"cardpayout/internal/service"

	"github.com/go-redis/redis/v8"
)

// lockMargin covers the work around the bank call while the idempotency lock is held.
const lockMargin = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration:", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration:", err)
	}

	lg := logger.New(cfg.Logger.LoggerLevel)
	if cfg.File != "" {
		lg.Info("using config file", "event", "config_loaded", "file", cfg.File)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := postgresql.Open(ctx, cfg.DB.Driver, cfg.DB.DatabaseURL, postgresql.PoolConfig{
		MaxOpenConnection:  cfg.DB.MaxOpenConnection,
		MaxIdleConnection:  cfg.DB.MaxIdleConnection,
		ConnectionLifetime: cfg.DB.ConnectionLifetime,
	})
	if err != nil {
		cancel()
		lg.Error("database unavailable", "event", "startup_failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := migration.RunMigrations(ctx, db, lg); err != nil {
		cancel()
		lg.Error("migrations failed", "event", "startup_failed", "error", err)
		os.Exit(1)
	}
	cancel()

	payoutRepo := postgresql.NewPayoutRepository(db)
	balanceRepo := postgresql.NewBalanceRepository(db)
	notifier := notify.NewLogNotifier(lg)

	bankClient := bank.NewClient(bank.Config{
		BaseURL:     cfg.Bank.BaseURL,
		MerchantID:  cfg.Bank.MerchantID,
		Secret:      cfg.Bank.Secret,
		Timeout:     cfg.Bank.Timeout,
		MaxAttempts: cfg.Bank.MaxAttempts,
		RetryDelay:  cfg.Bank.RetryDelay,
	}, lg)

	payoutService := service.NewPayoutService(payoutRepo, bankClient, cfg.Bank.MerchantID, lg)
	withdrawService := service.NewWithdrawService(payoutService, balanceRepo, notifier, lg)
	webhookService := service.NewWebhookService(payoutRepo, notifier, service.WebhookConfig{
		Secret:          cfg.Callback.Secret,
		ApplyUnverified: cfg.Callback.ApplyUnverified,
	}, lg)
	if cfg.Callback.Secret == "" {
		lg.Warn("callback secret not set, every callback counts as verified", "event", "callback_verification_disabled")
	}

	routerCfg := handler.RouterConfig{AuthToken: cfg.Token.AuthToken, Logger: lg}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			lg.Warn("redis unavailable, idempotency cache degrades to pass-through", "event", "redis_unavailable", "error", err)
		}
		lockTimeout := cfg.Redis.LockTimeout
		if minLock := bankClient.Budget() + lockMargin; lockTimeout < minLock {
			lg.Warn("redis lock_timeout shorter than bank retry budget, raising it",
				"event", "lock_timeout_raised",
				"configured", lockTimeout.String(),
				"effective", minLock.String(),
			)
			lockTimeout = minLock
		}
		routerCfg.Idempotency = handler.Idempotency(rdb, handler.IdempotencyOptions{
			CacheTTL:    cfg.Redis.CacheTTL,
			LockTimeout: lockTimeout,
		}, lg)
	}

	router := handler.NewRouter(
		handler.NewPayoutHandler(withdrawService, payoutService, cfg.Bank.Currency, lg),
		handler.NewBalanceHandler(withdrawService, lg),
		handler.NewWebhookHandler(webhookService, lg),
		routerCfg,
	)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	go func() {
		lg.Info("listening", "event", "server_started", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("server error", "event", "server_failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info("shutting down", "event", "server_stopping")
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		lg.Error("graceful shutdown failed", "event", "server_stop_failed", "error", err)
	}
}
