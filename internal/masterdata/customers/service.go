package customers

import (
	"context"
	"errors"
	"strings"

	"github.com/toko-erp/toko-erp/internal/masterdata/shared"
)

var (
	ErrNameRequired = errors.New("customers: name is required")
	ErrHasPoints    = errors.New("customers: cannot delete customer with outstanding points")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, customer Customer) (Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return Customer{}, ErrNameRequired
	}
	return s.repo.Create(ctx, customer)
}

func (s *Service) Update(ctx context.Context, id int64, customer Customer) error {
	if strings.TrimSpace(customer.Name) == "" {
		return ErrNameRequired
	}
	return s.repo.Update(ctx, id, customer)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	customer, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if customer.Points > 0 {
		return ErrHasPoints
	}
	return s.repo.Delete(ctx, id)
}
