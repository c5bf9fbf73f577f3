package payroll

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/toko-erp/toko-erp/internal/platform/httpx"
	"github.com/toko-erp/toko-erp/internal/rbac"
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
		r.Use(h.guard.RequireAny(rbac.Must(rbac.ResourcePayroll, rbac.ActionView)))
		r.Get("/payslips", h.listPayslips)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll(rbac.Must(rbac.ResourcePayroll, rbac.ActionEdit)))
		r.Post("/attendance", h.markAttendance)
		r.Post("/runs", h.run)
	})
}

func (h *Handler) markAttendance(w http.ResponseWriter, r *http.Request) {
	var att Attendance
	if err := httpx.DecodeJSON(r, &att); err != nil {
		httpx.RespondError(w, r, httpx.ErrValidation)
		return
	}
	if err := h.service.MarkAttendance(r.Context(), att); err != nil {
		respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

type runRequest struct {
	Period   string `json:"period"`
	WorkDays int    `json:"work_days"`
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, httpx.ErrValidation)
		return
	}
	result, err := h.service.RunMonthly(r.Context(), req.Period, req.WorkDays)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) listPayslips(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	items, err := h.service.ListPayslips(r.Context(), period)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, r, httpx.ErrNotFound)
	case errors.Is(err, ErrDuplicateRun):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.RespondError(w, r, err)
	}
}
