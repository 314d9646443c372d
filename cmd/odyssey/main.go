package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/locks"
	"github.com/odyssey-erp/odyssey-gl/internal/app"
	"github.com/odyssey-erp/odyssey-gl/internal/audit"
	audithttp "github.com/odyssey-erp/odyssey-gl/internal/audit/http"
	"github.com/odyssey-erp/odyssey-gl/internal/banking"
	"github.com/odyssey-erp/odyssey-gl/internal/observability"
	"github.com/odyssey-erp/odyssey-gl/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-gl/internal/platform/db"
	"github.com/odyssey-erp/odyssey-gl/internal/posting"
	postinghttp "github.com/odyssey-erp/odyssey-gl/internal/posting/http"
	"github.com/odyssey-erp/odyssey-gl/internal/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/store"
	"github.com/odyssey-erp/odyssey-gl/internal/store/postgres"
	"github.com/odyssey-erp/odyssey-gl/internal/subledger"
	"github.com/odyssey-erp/odyssey-gl/internal/vat"
	"github.com/odyssey-erp/odyssey-gl/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	pool, err := db.New(ctx, cfg.PGDSN, "odyssey-gl-api")
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	var settingsCache *accounts.SettingsCache
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, account settings read directly", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		settingsCache = accounts.NewSettingsCache(redisClient, cfg.AccountCacheTTL)
	}

	var sink shared.AuditSink = shared.NewAuditLogger(pool)
	if cfg.AuditAsync {
		client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		if err != nil {
			logger.Error("init job client", slog.Any("error", err))
			os.Exit(1)
		}
		defer client.Close()
		sink = audit.NewDispatcher(client, jobs.QueueAudit)
	}
	emitter := audit.NewEmitter(sink, logger)

	metrics := observability.NewMetrics()
	pg := postgres.New(pool)
	directory := accounts.NewDirectory(accounts.NewRepository(pool), settingsCache, logger)

	oracle := locks.NewOracle()
	ledger := journals.NewLedger(oracle)
	tracker := subledger.NewTracker(oracle)

	bankService := banking.NewService(store.For[*postgres.Tx, banking.TxRepository](pg), ledger, oracle, directory,
		banking.Config{PerTransaction: cfg.BankRulesPerTransaction}, emitter, logger)
	bankService.WithRecorder(metrics)

	postingService := posting.NewService(store.For[*postgres.Tx, posting.TxRepository](pg), ledger, tracker, bankService, directory, emitter, logger)
	postingService.WithRecorder(metrics)

	vatService := vat.NewService(store.For[*postgres.Tx, vat.TxRepository](pg), ledger, oracle, directory, emitter)
	journalService := journals.NewService(store.For[*postgres.Tx, journals.TxRepository](pg), ledger, emitter)
	lockService := locks.NewService(store.For[*postgres.Tx, locks.TxRepository](pg), oracle, emitter)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer inspector.Close()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		PostingHandler: postinghttp.NewHandler(logger, postingService, journalService, bankService, vatService).WithLocks(lockService),
		AuditHandler:   audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(pool))),
		JobHandler:     jobs.NewHandler(inspector, logger),
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
