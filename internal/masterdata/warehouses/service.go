package warehouses

import (
	"context"
	"errors"
	"strings"

	"github.com/toko-erp/toko-erp/internal/masterdata/shared"
)

var (
	ErrCodeRequired = errors.New("warehouses: code is required")
	ErrNameRequired = errors.New("warehouses: name is required")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Warehouse, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Warehouse, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, warehouse Warehouse) (Warehouse, error) {
	if err := validate(warehouse); err != nil {
		return Warehouse{}, err
	}
	return s.repo.Create(ctx, warehouse)
}

func (s *Service) Update(ctx context.Context, id int64, warehouse Warehouse) error {
	if err := validate(warehouse); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, warehouse)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func validate(w Warehouse) error {
	if strings.TrimSpace(w.Code) == "" {
		return ErrCodeRequired
	}
	if strings.TrimSpace(w.Name) == "" {
		return ErrNameRequired
	}
	return nil
}
