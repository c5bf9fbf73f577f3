package inventory

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/toko-erp/toko-erp/internal/platform/httpx"
	"github.com/toko-erp/toko-erp/internal/rbac"
	"github.com/toko-erp/toko-erp/internal/shared"
)

type Handler struct {
	service *Service
	guard   *rbac.Middleware
}

func NewHandler(service *Service, guard *rbac.Middleware) *Handler {
	return &Handler{service: service, guard: guard}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(rbac.Must(rbac.ResourceInventory, rbac.ActionView)))
		r.Get("/balances", h.listBalances)
		r.Get("/balances/{warehouseID}/{productID}", h.getBalance)
		r.Get("/card", h.stockCard)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll(rbac.Must(rbac.ResourceInventory, rbac.ActionEdit)))
		r.Post("/adjustments", h.postAdjustment)
	})
}

func (h *Handler) listBalances(w http.ResponseWriter, r *http.Request) {
	warehouseID, _ := strconv.ParseInt(r.URL.Query().Get("warehouse_id"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	items, err := h.service.ListBalances(r.Context(), warehouseID, limit, offset)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	warehouseID, err1 := strconv.ParseInt(chi.URLParam(r, "warehouseID"), 10, 64)
	productID, err2 := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err1 != nil || err2 != nil {
		httpx.RespondError(w, r, httpx.ErrValidation)
		return
	}
	balance, err := h.service.GetBalance(r.Context(), warehouseID, productID)
	if err != nil {
		if errors.Is(err, ErrBalanceNotFound) {
			httpx.RespondError(w, r, httpx.ErrNotFound)
			return
		}
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
}

func (h *Handler) stockCard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	warehouseID, _ := strconv.ParseInt(q.Get("warehouse_id"), 10, 64)
	productID, _ := strconv.ParseInt(q.Get("product_id"), 10, 64)
	filter := StockCardFilter{WarehouseID: warehouseID, ProductID: productID}
	if raw := q.Get("from"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.From = t
		}
	}
	if raw := q.Get("to"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.To = t.Add(24*time.Hour - time.Nanosecond)
		}
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	entries, err := h.service.GetStockCard(r.Context(), filter)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": entries})
}

func (h *Handler) postAdjustment(w http.ResponseWriter, r *http.Request) {
	var input MovementInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, r, httpx.ErrValidation)
		return
	}
	input.ActorID = shared.ActorFromContext(r.Context())
	balance, err := h.service.PostAdjustment(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, ErrNegativeStock):
			httpx.RespondError(w, r, httpx.ErrInvalidState)
		case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidUnitCost):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		default:
			httpx.RespondError(w, r, err)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, balance)
}
