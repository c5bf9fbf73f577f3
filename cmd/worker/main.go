package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/toko-erp/toko-erp/internal/app"
	"github.com/toko-erp/toko-erp/internal/inventory"
	jobmetrics "github.com/toko-erp/toko-erp/internal/jobs"
	"github.com/toko-erp/toko-erp/internal/masterdata/warehouses"
	"github.com/toko-erp/toko-erp/internal/platform/db"
	"github.com/toko-erp/toko-erp/internal/shared"
	"github.com/toko-erp/toko-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}

	client, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init asynq client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)

	mailer := jobs.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, logger)
	scanner := jobs.NewLowStockScanner(
		inventory.NewRepository(pool),
		warehouses.NewService(warehouses.NewRepository(pool)),
		client,
		cfg.LowStockThreshold,
		cfg.AlertEmail,
		metrics,
		logger,
	)
	janitor := jobs.NewIdempotencyJanitor(shared.NewIdempotencyStore(pool), cfg.IdempotencyRetention, logger)

	lowStockTask, err := jobs.NewLowStockScanTask(0, time.Now())
	if err != nil {
		logger.Error("build low-stock task", slog.Any("error", err))
		os.Exit(1)
	}
	retentionTask, err := jobs.NewIdempotencyRetentionTask(time.Now())
	if err != nil {
		logger.Error("build retention task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: jobs.Instrument(metrics, jobs.TaskTypeSendEmail, mailer.HandleSendEmail)},
			{Type: jobs.TaskTypeLowStockScan, Handler: jobs.Instrument(metrics, jobs.TaskTypeLowStockScan, scanner.Handle)},
			{Type: jobs.TaskTypeIdempotencyRetention, Handler: jobs.Instrument(metrics, jobs.TaskTypeIdempotencyRetention, janitor.Handle)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 6 * * *", Task: lowStockTask},
			{Spec: "30 3 * * *", Task: retentionTask},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
