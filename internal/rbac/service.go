package rbac

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Service resolves effective permissions for users.
type Service struct {
	pool     *pgxpool.Pool
	defaults Grants
	logger   *slog.Logger
}

// NewService constructs the RBAC service. The default grants are passed in
// explicitly and never mutated.
func NewService(pool *pgxpool.Pool, defaults Grants, logger *slog.Logger) *Service {
	return &Service{pool: pool, defaults: defaults, logger: logger}
}

// EffectivePermissions returns the merged permission set for a user: the
// default grants of their roles plus any role permissions stored in Postgres.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) (map[Permission]struct{}, error) {
	granted := make(map[Permission]struct{})
	if s.pool == nil {
		return granted, nil
	}

	roleRows, err := s.pool.Query(ctx, `SELECT r.name FROM user_roles ur JOIN roles r ON r.id = ur.role_id WHERE ur.user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer roleRows.Close()
	var roles []string
	for roleRows.Next() {
		var name string
		if err := roleRows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, name)
	}
	if err := roleRows.Err(); err != nil {
		return nil, err
	}

	for _, role := range roles {
		for _, p := range s.defaults[role] {
			granted[p] = struct{}{}
		}
	}

	permRows, err := s.pool.Query(ctx, `SELECT p.name FROM user_roles ur
JOIN role_permissions rp ON rp.role_id = ur.role_id
JOIN permissions p ON p.id = rp.permission_id
WHERE ur.user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer permRows.Close()
	for permRows.Next() {
		var raw string
		if err := permRows.Scan(&raw); err != nil {
			return nil, err
		}
		p, err := Parse(raw)
		if err != nil {
			// A stored permission outside the enumeration is a data bug.
			if s.logger != nil {
				s.logger.Warn("rbac: skipping unknown stored permission", slog.String("permission", raw))
			}
			continue
		}
		granted[p] = struct{}{}
	}
	return granted, permRows.Err()
}
