package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/toko-erp/toko-erp/internal/shared"
)

// PermissionSource resolves granted permissions for a user.
type PermissionSource interface {
	EffectivePermissions(ctx context.Context, userID int64) (map[Permission]struct{}, error)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Source PermissionSource
	Logger *slog.Logger
}

// RequireAny ensures the current user has at least one of the permissions.
// Unknown pairs fail immediately at route registration via Must.
func (m Middleware) RequireAny(perms ...Permission) func(http.Handler) http.Handler {
	validate(perms)
	return m.guard(perms, hasAny)
}

// RequireAll ensures the current user has every listed permission.
func (m Middleware) RequireAll(perms ...Permission) func(http.Handler) http.Handler {
	validate(perms)
	return m.guard(perms, hasAll)
}

func (m Middleware) guard(perms []Permission, matches func(map[Permission]struct{}, []Permission) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			userID, ok := currentUserID(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			granted, err := m.Source.EffectivePermissions(r.Context(), userID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac permission lookup", slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if matches(granted, perms) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

func validate(perms []Permission) {
	for _, p := range perms {
		Must(p.Resource, p.Action)
	}
}

func hasAny(granted map[Permission]struct{}, wanted []Permission) bool {
	for _, p := range wanted {
		if _, ok := granted[p]; ok {
			return true
		}
	}
	return false
}

func hasAll(granted map[Permission]struct{}, wanted []Permission) bool {
	for _, p := range wanted {
		if _, ok := granted[p]; !ok {
			return false
		}
	}
	return true
}

func currentUserID(r *http.Request) (int64, bool) {
	if id := shared.ActorFromContext(r.Context()); id != 0 {
		return id, true
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
