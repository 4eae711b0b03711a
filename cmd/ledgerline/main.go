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
	"github.com/redis/go-redis/v9"

	"github.com/ledgerline/ledgerline/internal/app"
	"github.com/ledgerline/ledgerline/internal/book"
	"github.com/ledgerline/ledgerline/internal/closing"
	"github.com/ledgerline/ledgerline/internal/journal"
	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/internal/shared"
	"github.com/ledgerline/ledgerline/internal/subject"
	"github.com/ledgerline/ledgerline/internal/voucher"
	"github.com/ledgerline/ledgerline/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)
	bookLocks := shared.NewBookMutex(redisClient, cfg.LockTTL)

	bookRepo := book.NewRepository(dbpool)
	bookHandler := book.NewHandler(logger, bookRepo)

	subjectRepo := subject.NewRepository(dbpool)
	subjectService := subject.NewService(subjectRepo)
	subjectHandler := subject.NewHandler(logger, subjectService)

	voucherRepo := voucher.NewRepository(dbpool)
	voucherService := voucher.NewService(voucherRepo, subjectService, auditLogger, bookLocks)
	voucherHandler := voucher.NewHandler(logger, voucherService)

	balanceCache := ledger.NewCache(redisClient, 10*time.Minute)
	voucherService.WithCacheBumper(balanceCache)
	ledgerService := ledger.NewService(voucherRepo, subjectService, bookRepo, balanceCache)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	closingRepo := closing.NewRepository(dbpool)
	closingService := closing.NewService(
		voucherRepo,
		subjectService,
		closing.NewBookStoreAdapter(dbpool),
		closingRepo,
		voucherService,
		voucherRepo,
		auditLogger,
		bookLocks,
	)
	closingService.WithCacheBumper(balanceCache)
	closingHandler := closing.NewHandler(logger, closingService, closingRepo)

	journalRepo := journal.NewRepository(dbpool)
	journalService := journal.NewService(journalRepo, voucherService, auditLogger)
	journalHandler := journal.NewHandler(logger, journalService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		BookHandler:    bookHandler,
		SubjectHandler: subjectHandler,
		VoucherHandler: voucherHandler,
		LedgerHandler:  ledgerHandler,
		ClosingHandler: closingHandler,
		JournalHandler: journalHandler,
		JobsHandler:    jobsHandler,
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
