package sales

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/toko-erp/toko-erp/internal/loyalty"
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
		r.Use(h.guard.RequireAny(rbac.Must(rbac.ResourceSales, rbac.ActionView)))
		r.Get("/{id}", h.get)
		r.Get("/summary", h.summary)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll(rbac.Must(rbac.ResourceSales, rbac.ActionEdit)))
		r.Post("/checkout", h.checkout)
		r.Post("/{id}/void", h.void)
	})
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var input CheckoutInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, r, httpx.ErrValidation)
		return
	}
	input.IdempotencyKey = r.Header.Get("Idempotency-Key")
	input.ActorID = shared.ActorFromContext(r.Context())
	sale, err := h.service.Checkout(r.Context(), input)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, r, httpx.ErrValidation)
		return
	}
	sale, err := h.service.Void(r.Context(), id, shared.ActorFromContext(r.Context()))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, r, httpx.ErrValidation)
		return
	}
	sale, lines, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sale": sale, "lines": lines})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	day := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.RespondError(w, r, httpx.ErrValidation)
			return
		}
		day = parsed
	}
	summary, err := h.service.DailySummary(r.Context(), day)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, r, httpx.ErrNotFound)
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrAlreadyVoided):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrUnderpaid), errors.Is(err, ErrValidation),
		errors.Is(err, loyalty.ErrBelowMinimum), errors.Is(err, loyalty.ErrInsufficientPoint), errors.Is(err, loyalty.ErrExceedsTotal):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.RespondError(w, r, err)
	}
}
