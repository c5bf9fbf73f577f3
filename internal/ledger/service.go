package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/toko-erp/toko-erp/internal/procurement"
	"github.com/toko-erp/toko-erp/internal/sales"
)

// RepositoryPort is the persistence surface used by Service.
type RepositoryPort interface {
	Insert(ctx context.Context, entry Entry) (int64, error)
	List(ctx context.Context, filter ListFilter) ([]Entry, error)
	Totals(ctx context.Context, filter ListFilter) (map[EntryType]decimal.Decimal, error)
}

// Service appends ledger entries from domain events and produces summaries.
// It implements the procurement and sales integration interfaces.
type Service struct {
	repo    RepositoryPort
	logger  *slog.Logger
	printer *message.Printer
}

var (
	_ procurement.IntegrationHandler = (*Service)(nil)
	_ sales.IntegrationHandler       = (*Service)(nil)
)

func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		logger:  logger,
		printer: message.NewPrinter(language.Indonesian),
	}
}

// HandleGoodsReceived posts the payable growth from a goods receipt.
func (s *Service) HandleGoodsReceived(ctx context.Context, evt procurement.GoodsReceivedEvent) error {
	_, err := s.repo.Insert(ctx, Entry{
		Code:        fmt.Sprintf("LG-%s", evt.Number),
		Type:        EntryPayable,
		Amount:      evt.ReceivedTotal,
		RefModule:   "PROCUREMENT",
		RefID:       fmt.Sprintf("%d", evt.POID),
		Description: fmt.Sprintf("goods receipt %s", evt.Number),
		OccurredAt:  evt.ReceivedAt,
	})
	if err != nil {
		return fmt.Errorf("ledger: post goods receipt: %w", err)
	}
	s.logger.Info("ledger entry posted", "type", EntryPayable, "ref", evt.Number)
	return nil
}

// HandlePaymentSettled posts a vendor settlement.
func (s *Service) HandlePaymentSettled(ctx context.Context, evt procurement.PaymentSettledEvent) error {
	_, err := s.repo.Insert(ctx, Entry{
		Code:        fmt.Sprintf("LG-%s", evt.Number),
		Type:        EntryPayment,
		Amount:      evt.Amount,
		RefModule:   "PROCUREMENT",
		RefID:       fmt.Sprintf("%d", evt.PaymentID),
		Description: fmt.Sprintf("vendor payment %s", evt.Number),
		OccurredAt:  evt.PaidAt,
	})
	if err != nil {
		return fmt.Errorf("ledger: post payment: %w", err)
	}
	s.logger.Info("ledger entry posted", "type", EntryPayment, "ref", evt.Number)
	return nil
}

// HandleSalePosted posts revenue and, when present, the granted discount.
func (s *Service) HandleSalePosted(ctx context.Context, evt sales.SalePostedEvent) error {
	if _, err := s.repo.Insert(ctx, Entry{
		Code:        fmt.Sprintf("LG-%s", evt.Number),
		Type:        EntryRevenue,
		Amount:      evt.Total,
		RefModule:   "SALES",
		RefID:       fmt.Sprintf("%d", evt.SaleID),
		Description: fmt.Sprintf("sale %s", evt.Number),
		OccurredAt:  evt.PostedAt,
	}); err != nil {
		return fmt.Errorf("ledger: post revenue: %w", err)
	}
	if evt.Discount.IsPositive() {
		if _, err := s.repo.Insert(ctx, Entry{
			Code:        fmt.Sprintf("LG-%s-DISC", evt.Number),
			Type:        EntryDiscount,
			Amount:      evt.Discount,
			RefModule:   "SALES",
			RefID:       fmt.Sprintf("%d", evt.SaleID),
			Description: fmt.Sprintf("discount on sale %s", evt.Number),
			OccurredAt:  evt.PostedAt,
		}); err != nil {
			return fmt.Errorf("ledger: post discount: %w", err)
		}
	}
	s.logger.Info("ledger entry posted", "type", EntryRevenue, "ref", evt.Number)
	return nil
}

// HandleSaleVoided appends contra entries for a voided sale. The ledger stays
// append-only; the negative amounts net the original posting out of summaries.
func (s *Service) HandleSaleVoided(ctx context.Context, evt sales.SaleVoidedEvent) error {
	if _, err := s.repo.Insert(ctx, Entry{
		Code:        fmt.Sprintf("LG-%s-VOID", evt.Number),
		Type:        EntryRevenue,
		Amount:      evt.Total.Neg(),
		RefModule:   "SALES",
		RefID:       fmt.Sprintf("%d", evt.SaleID),
		Description: fmt.Sprintf("void of sale %s", evt.Number),
		OccurredAt:  evt.VoidedAt,
	}); err != nil {
		return fmt.Errorf("ledger: post sale void: %w", err)
	}
	if evt.Discount.IsPositive() {
		if _, err := s.repo.Insert(ctx, Entry{
			Code:        fmt.Sprintf("LG-%s-DISC-VOID", evt.Number),
			Type:        EntryDiscount,
			Amount:      evt.Discount.Neg(),
			RefModule:   "SALES",
			RefID:       fmt.Sprintf("%d", evt.SaleID),
			Description: fmt.Sprintf("void of discount on sale %s", evt.Number),
			OccurredAt:  evt.VoidedAt,
		}); err != nil {
			return fmt.Errorf("ledger: post discount void: %w", err)
		}
	}
	s.logger.Info("ledger entry posted", "type", EntryRevenue, "ref", evt.Number, "void", true)
	return nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

// Summarize totals entries per type over the period and renders each amount
// for display.
func (s *Service) Summarize(ctx context.Context, from, to time.Time) (Summary, error) {
	if !to.IsZero() && to.Before(from) {
		return Summary{}, ErrValidation
	}
	totals, err := s.repo.Totals(ctx, ListFilter{From: from, To: to})
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{
		From:      from,
		To:        to,
		Totals:    totals,
		Formatted: make(map[EntryType]string, len(totals)),
	}
	for entryType, amount := range totals {
		summary.Formatted[entryType] = s.printer.Sprintf("Rp %v", number(amount))
	}
	return summary, nil
}

// number adapts a decimal for locale-aware printing.
func number(d decimal.Decimal) any {
	if d.IsInteger() {
		return d.IntPart()
	}
	f, _ := d.Float64()
	return f
}

// PostPayrollExpense records the total salary expense of one payroll run.
func (s *Service) PostPayrollExpense(ctx context.Context, runCode string, total decimal.Decimal, occurredAt time.Time) error {
	if !total.IsPositive() {
		return ErrValidation
	}
	_, err := s.repo.Insert(ctx, Entry{
		Code:        fmt.Sprintf("LG-%s", runCode),
		Type:        EntryPayrollExpense,
		Amount:      total,
		RefModule:   "PAYROLL",
		RefID:       runCode,
		Description: fmt.Sprintf("payroll run %s", runCode),
		OccurredAt:  occurredAt,
	})
	if err != nil {
		return fmt.Errorf("ledger: post payroll expense: %w", err)
	}
	s.logger.Info("ledger entry posted", "type", EntryPayrollExpense, "ref", runCode)
	return nil
}
