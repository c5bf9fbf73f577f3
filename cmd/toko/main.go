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
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/toko-erp/toko-erp/internal/app"
	"github.com/toko-erp/toko-erp/internal/auth"
	"github.com/toko-erp/toko-erp/internal/inventory"
	"github.com/toko-erp/toko-erp/internal/ledger"
	"github.com/toko-erp/toko-erp/internal/loyalty"
	"github.com/toko-erp/toko-erp/internal/masterdata/customers"
	"github.com/toko-erp/toko-erp/internal/masterdata/products"
	"github.com/toko-erp/toko-erp/internal/masterdata/vendors"
	"github.com/toko-erp/toko-erp/internal/masterdata/warehouses"
	"github.com/toko-erp/toko-erp/internal/observability"
	"github.com/toko-erp/toko-erp/internal/payroll"
	"github.com/toko-erp/toko-erp/internal/platform/cache"
	"github.com/toko-erp/toko-erp/internal/platform/db"
	"github.com/toko-erp/toko-erp/internal/procurement"
	"github.com/toko-erp/toko-erp/internal/rbac"
	"github.com/toko-erp/toko-erp/internal/sales"
	"github.com/toko-erp/toko-erp/internal/shared"
	"github.com/toko-erp/toko-erp/internal/uploads"
	"github.com/toko-erp/toko-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "toko_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, tokenManager)

	rbacService := rbac.NewService(pool, rbac.DefaultGrants(), logger)
	guard := rbac.Middleware{Source: rbacService, Logger: logger}

	vendorService := vendors.NewService(vendors.NewRepository(pool))
	productService := products.NewService(products.NewRepository(pool))
	warehouseService := warehouses.NewService(warehouses.NewRepository(pool))
	customerService := customers.NewService(customers.NewRepository(pool))

	loyaltyCfg, err := loyaltyConfig(cfg)
	if err != nil {
		logger.Error("loyalty config", slog.Any("error", err))
		os.Exit(1)
	}

	uploadStore, err := uploads.NewStore(pool, cfg.UploadDir, cfg.UploadMaxBytes)
	if err != nil {
		logger.Error("init upload store", slog.Any("error", err))
		os.Exit(1)
	}

	ledgerService := ledger.NewService(ledger.NewRepository(pool), logger)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger, idempotencyStore)

	procurementRepo := procurement.NewRepository(pool)
	procurementService := procurement.NewService(procurementRepo, auditLogger, idempotencyStore, uploadStore, ledgerService, logger)

	salesRepo := sales.NewRepository(pool)
	salesService := sales.NewService(salesRepo, productService, customerService, loyaltyCfg, auditLogger, idempotencyStore, ledgerService, logger)

	payrollService := payroll.NewService(payroll.NewRepository(pool), ledgerService, logger)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		TokenManager:   tokenManager,
		Metrics:        metrics,

		AuthHandler:        authHandler,
		VendorsHandler:     vendors.NewHandler(vendorService, &guard),
		ProductsHandler:    products.NewHandler(productService, &guard),
		WarehousesHandler:  warehouses.NewHandler(warehouseService, &guard),
		CustomersHandler:   customers.NewHandler(customerService, &guard),
		InventoryHandler:   inventory.NewHandler(inventoryService, &guard),
		ProcurementHandler: procurement.NewHandler(procurementService, &guard),
		SalesHandler:       sales.NewHandler(salesService, &guard),
		LedgerHandler:      ledger.NewHandler(ledgerService, &guard),
		PayrollHandler:     payroll.NewHandler(payrollService, &guard),
		UploadsHandler:     uploads.NewHandler(uploadStore, &guard),
		JobsHandler:        jobs.NewHandler(inspector, logger),
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

func loyaltyConfig(cfg *app.Config) (loyalty.Config, error) {
	pointRate, err := decimal.NewFromString(cfg.LoyaltyPointRate)
	if err != nil {
		return loyalty.Config{}, err
	}
	redeemValue, err := decimal.NewFromString(cfg.LoyaltyRedeemRate)
	if err != nil {
		return loyalty.Config{}, err
	}
	return loyalty.NewConfig(pointRate, redeemValue, cfg.LoyaltyMinRedeem)
}
