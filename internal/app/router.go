package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/toko-erp/toko-erp/internal/auth"
	"github.com/toko-erp/toko-erp/internal/inventory"
	"github.com/toko-erp/toko-erp/internal/ledger"
	"github.com/toko-erp/toko-erp/internal/masterdata/customers"
	"github.com/toko-erp/toko-erp/internal/masterdata/products"
	"github.com/toko-erp/toko-erp/internal/masterdata/vendors"
	"github.com/toko-erp/toko-erp/internal/masterdata/warehouses"
	"github.com/toko-erp/toko-erp/internal/observability"
	"github.com/toko-erp/toko-erp/internal/payroll"
	"github.com/toko-erp/toko-erp/internal/procurement"
	"github.com/toko-erp/toko-erp/internal/sales"
	"github.com/toko-erp/toko-erp/internal/shared"
	"github.com/toko-erp/toko-erp/internal/uploads"
	"github.com/toko-erp/toko-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	TokenManager   *auth.TokenManager
	Metrics        *observability.Metrics

	AuthHandler        *auth.Handler
	VendorsHandler     *vendors.Handler
	ProductsHandler    *products.Handler
	WarehousesHandler  *warehouses.Handler
	CustomersHandler   *customers.Handler
	InventoryHandler   *inventory.Handler
	ProcurementHandler *procurement.Handler
	SalesHandler       *sales.Handler
	LedgerHandler      *ledger.Handler
	PayrollHandler     *payroll.Handler
	UploadsHandler     *uploads.Handler
	JobsHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with Toko defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}
	if params.TokenManager != nil {
		r.Use(auth.BearerMiddleware(params.TokenManager, params.Logger))
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/masterdata", func(r chi.Router) {
		r.Route("/vendors", params.VendorsHandler.MountRoutes)
		r.Route("/products", params.ProductsHandler.MountRoutes)
		r.Route("/warehouses", params.WarehousesHandler.MountRoutes)
		r.Route("/customers", params.CustomersHandler.MountRoutes)
	})
	r.Route("/inventory", params.InventoryHandler.MountRoutes)
	r.Route("/procurement", params.ProcurementHandler.MountRoutes)
	r.Route("/sales", params.SalesHandler.MountRoutes)
	r.Route("/ledger", params.LedgerHandler.MountRoutes)
	r.Route("/payroll", params.PayrollHandler.MountRoutes)
	r.Route("/uploads", params.UploadsHandler.MountRoutes)
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
