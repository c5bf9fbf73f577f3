package uploads

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/toko-erp/toko-erp/internal/platform/httpx"
	"github.com/toko-erp/toko-erp/internal/rbac"
)

type Handler struct {
	store *Store
	guard *rbac.Middleware
}

func NewHandler(store *Store, guard *rbac.Middleware) *Handler {
	return &Handler{store: store, guard: guard}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(rbac.Must(rbac.ResourceUploads, rbac.ActionView)))
		r.Get("/{id}", h.serve)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll(rbac.Must(rbac.ResourceUploads, rbac.ActionEdit)))
		r.Post("/", h.upload)
	})
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.RespondError(w, r, httpx.ErrValidation)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	ref, err := h.store.Save(r.Context(), header.Filename, contentType, file)
	if err != nil {
		switch {
		case errors.Is(err, ErrTooLarge):
			httpx.Problem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", err.Error())
		case errors.Is(err, ErrUnsupportedType):
			httpx.Problem(w, http.StatusUnsupportedMediaType, "Unsupported Media Type", err.Error())
		default:
			httpx.RespondError(w, r, err)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, ref)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	ref, reader, err := h.store.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, r, httpx.ErrNotFound)
			return
		}
		httpx.RespondError(w, r, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", ref.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}
