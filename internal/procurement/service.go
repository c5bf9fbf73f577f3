package procurement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/toko-erp/toko-erp/internal/shared"
)

// RepositoryPort describes the persistence surface used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPO(ctx context.Context, id int64) (PurchaseOrder, []POLine, error)
	List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, int, error)
	ListPayments(ctx context.Context, vendorID int64, limit int) ([]VendorPayment, error)
}

// AuditPort records audit trail rows.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards duplicate receive and settle attempts.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// UploadPort verifies that a referenced bill image exists. Receipts carry the
// reference of an already stored upload, so the image is durable before any
// financial write happens.
type UploadPort interface {
	Exists(ctx context.Context, ref string) (bool, error)
}

// Service orchestrates the purchase order lifecycle.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	uploads     UploadPort
	integration IntegrationHandler
	logger      *slog.Logger
}

func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, uploads UploadPort, integration IntegrationHandler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, idempotency: idem, uploads: uploads, integration: integration, logger: logger}
}

// POLineInput is one ordered line in a creation request. The deposit
// warehouse is not chosen here; the receiver names it per line at receipt.
type POLineInput struct {
	ProductID int64           `json:"product_id"`
	Qty       int64           `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CreatePOInput describes a new purchase order.
type CreatePOInput struct {
	Number   string        `json:"number"`
	VendorID int64         `json:"vendor_id"`
	Note     string        `json:"note"`
	Lines    []POLineInput `json:"lines"`
	ActorID  int64         `json:"-"`
}

// ReceiveLineInput carries what actually arrived for one ordered line: the
// received quantity, the unit price on the vendor's bill (which may differ
// from the ordered price), and the warehouse taking the stock.
type ReceiveLineInput struct {
	LineID      int64           `json:"line_id"`
	WarehouseID int64           `json:"warehouse_id"`
	Qty         int64           `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// ReceiveInput describes a goods receipt attempt. IdempotencyKey identifies
// the attempt: retries with the same key are rejected as duplicates instead
// of double-posting stock and payables.
type ReceiveInput struct {
	POID           int64              `json:"-"`
	IdempotencyKey string             `json:"-"`
	Lines          []ReceiveLineInput `json:"lines"`
	Note           string             `json:"note"`
	BillRef        string             `json:"bill_ref"`
	ActorID        int64              `json:"-"`
}

// SettleInput describes a vendor payment.
type SettleInput struct {
	VendorID int64           `json:"-"`
	Number   string          `json:"number"`
	Amount   decimal.Decimal `json:"amount"`
	Note     string          `json:"note"`
	ActorID  int64           `json:"-"`
}

// Create persists a new purchase order in PENDING with its total computed
// from the ordered lines.
func (s *Service) Create(ctx context.Context, input CreatePOInput) (PurchaseOrder, error) {
	if input.VendorID <= 0 || len(input.Lines) == 0 {
		return PurchaseOrder{}, ErrValidation
	}
	total := decimal.Zero
	for _, line := range input.Lines {
		if line.ProductID <= 0 || line.Qty <= 0 || !line.UnitPrice.IsPositive() {
			return PurchaseOrder{}, ErrValidation
		}
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(line.Qty)))
	}
	number := input.Number
	if number == "" {
		number = generateNumber("PO")
	}

	po := PurchaseOrder{
		Number:      number,
		VendorID:    input.VendorID,
		Status:      POStatusPending,
		TotalAmount: total,
		Note:        input.Note,
		CreatedBy:   input.ActorID,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		exists, err := tx.VendorExists(ctx, input.VendorID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		poID, err := tx.CreatePO(ctx, po)
		if err != nil {
			return err
		}
		po.ID = poID
		for _, line := range input.Lines {
			if err := tx.InsertPOLine(ctx, POLine{
				POID:       poID,
				ProductID:  line.ProductID,
				OrderedQty: line.Qty,
				UnitPrice:  line.UnitPrice,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, input.ActorID, "PO_CREATE", po.ID, map[string]any{"number": po.Number, "total": po.TotalAmount})
	return po, nil
}

// Approve moves a PENDING order to APPROVED.
func (s *Service) Approve(ctx context.Context, poID, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		moved, err := tx.TransitionStatus(ctx, poID, []POStatus{POStatusPending}, POStatusApproved)
		if err != nil {
			return err
		}
		if !moved {
			return s.transitionFailure(ctx, poID)
		}
		return tx.SetApproval(ctx, poID, actorID, time.Now().UTC())
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "PO_APPROVE", poID, nil)
	return nil
}

// ReceiveGoods posts a goods receipt: the order moves to RECEIVED, each
// line's received quantity is recorded, stock is increased, and the vendor's
// payable balance grows by the received total. Everything happens in one
// transaction keyed by the status compare-and-set, so of two concurrent
// attempts exactly one succeeds.
func (s *Service) ReceiveGoods(ctx context.Context, input ReceiveInput) (PurchaseOrder, error) {
	po, lines, err := s.repo.GetPO(ctx, input.POID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	received, err := resolveReceiveLines(lines, input.Lines)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if input.BillRef != "" && s.uploads != nil {
		stored, err := s.uploads.Exists(ctx, input.BillRef)
		if err != nil {
			return PurchaseOrder{}, err
		}
		if !stored {
			return PurchaseOrder{}, fmt.Errorf("%w: bill image not stored", ErrValidation)
		}
	}

	key := input.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	key = fmt.Sprintf("PO_RECEIVE:%d:%s", input.POID, key)
	insertedKey := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "procurement"); err != nil {
			return PurchaseOrder{}, err
		}
		insertedKey = true
	}

	now := time.Now().UTC()
	receivedTotal := decimal.Zero
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		moved, err := tx.TransitionStatus(ctx, input.POID, []POStatus{POStatusPending, POStatusApproved}, POStatusReceived)
		if err != nil {
			return err
		}
		if !moved {
			return s.transitionFailure(ctx, input.POID)
		}
		for _, line := range received {
			if err := tx.SetLineReceipt(ctx, line.ID, line.ReceivedQty, line.ReceivedPrice, line.WarehouseID); err != nil {
				return err
			}
			if line.ReceivedQty == 0 {
				continue
			}
			receivedTotal = receivedTotal.Add(line.ReceivedPrice.Mul(decimal.NewFromInt(line.ReceivedQty)))
			code := fmt.Sprintf("GRN-%s-%d", po.Number, line.ProductID)
			if err := tx.AddStock(ctx, line.WarehouseID, line.ProductID, line.ReceivedQty, line.ReceivedPrice,
				code, fmt.Sprintf("receipt for %s", po.Number), input.ActorID); err != nil {
				return err
			}
		}
		if err := tx.AddVendorBalance(ctx, po.VendorID, receivedTotal); err != nil {
			return err
		}
		return tx.SetReceipt(ctx, input.POID, receivedTotal, input.BillRef, input.ActorID, now)
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return PurchaseOrder{}, err
	}

	po.Status = POStatusReceived
	po.ReceivedTotal = receivedTotal
	po.ReceivedBy = input.ActorID
	po.ReceivedAt = &now
	s.recordAudit(ctx, input.ActorID, "PO_RECEIVE", po.ID, map[string]any{
		"number": po.Number, "received_total": receivedTotal,
	})
	if s.integration != nil {
		evt := GoodsReceivedEvent{
			POID: po.ID, Number: po.Number, VendorID: po.VendorID,
			ReceivedTotal: receivedTotal, ReceivedAt: now,
		}
		for _, line := range received {
			if line.ReceivedQty == 0 {
				continue
			}
			evt.Lines = append(evt.Lines, ReceivedLineEvent{
				ProductID: line.ProductID, WarehouseID: line.WarehouseID,
				Qty: line.ReceivedQty, UnitPrice: line.ReceivedPrice,
			})
		}
		// The receipt has committed; a ledger posting failure must not look
		// like a failed receipt or a retry would double-post stock.
		if err := s.integration.HandleGoodsReceived(ctx, evt); err != nil {
			s.logger.Warn("ledger posting failed after receipt", "po", po.Number, slog.Any("error", err))
		}
	}
	return po, nil
}

// Cancel moves a non-terminal order to CANCELLED. No stock or payable
// effects: cancellation before receipt leaves both untouched.
func (s *Service) Cancel(ctx context.Context, poID, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		moved, err := tx.TransitionStatus(ctx, poID, []POStatus{POStatusPending, POStatusApproved}, POStatusCancelled)
		if err != nil {
			return err
		}
		if !moved {
			return s.transitionFailure(ctx, poID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "PO_CANCEL", poID, nil)
	return nil
}

// SettlePayment pays down the vendor's payable balance. The decrement is
// guarded in SQL, so the balance can never go below zero.
func (s *Service) SettlePayment(ctx context.Context, input SettleInput) (VendorPayment, error) {
	if input.VendorID <= 0 || !input.Amount.IsPositive() {
		return VendorPayment{}, ErrValidation
	}
	payment := VendorPayment{
		Number:    input.Number,
		VendorID:  input.VendorID,
		Amount:    input.Amount,
		Note:      input.Note,
		CreatedBy: input.ActorID,
	}
	if payment.Number == "" {
		payment.Number = generateNumber("PAY")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		settled, err := tx.SettleVendorBalance(ctx, input.VendorID, input.Amount)
		if err != nil {
			return err
		}
		if !settled {
			exists, err := tx.VendorExists(ctx, input.VendorID)
			if err != nil {
				return err
			}
			if !exists {
				return ErrNotFound
			}
			return ErrInsufficientBalance
		}
		id, err := tx.CreatePayment(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = id
		return nil
	})
	if err != nil {
		return VendorPayment{}, err
	}
	payment.CreatedAt = time.Now().UTC()
	s.recordAudit(ctx, input.ActorID, "PO_SETTLE", payment.ID, map[string]any{
		"vendor_id": input.VendorID, "amount": input.Amount,
	})
	if s.integration != nil {
		if err := s.integration.HandlePaymentSettled(ctx, PaymentSettledEvent{
			PaymentID: payment.ID, Number: payment.Number, VendorID: payment.VendorID,
			Amount: payment.Amount, PaidAt: payment.CreatedAt,
		}); err != nil {
			s.logger.Warn("ledger posting failed after settlement", "payment", payment.Number, slog.Any("error", err))
		}
	}
	return payment, nil
}

func (s *Service) Get(ctx context.Context, poID int64) (PurchaseOrder, []POLine, error) {
	return s.repo.GetPO(ctx, poID)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, int, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) ListPayments(ctx context.Context, vendorID int64, limit int) ([]VendorPayment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListPayments(ctx, vendorID, limit)
}

// transitionFailure distinguishes a missing order from one already in a
// terminal or otherwise ineligible status.
func (s *Service) transitionFailure(ctx context.Context, poID int64) error {
	if _, _, err := s.repo.GetPO(ctx, poID); err != nil {
		return err
	}
	return ErrInvalidState
}

// resolveReceiveLines maps receive inputs onto the order's lines. A line
// absent from the input receives zero. An included line must carry a
// non-negative quantity, a positive received price, and a warehouse; at
// least one line must receive something.
func resolveReceiveLines(lines []POLine, inputs []ReceiveLineInput) ([]POLine, error) {
	byID := make(map[int64]ReceiveLineInput, len(inputs))
	for _, in := range inputs {
		if in.Qty < 0 {
			return nil, ErrValidation
		}
		if in.Qty > 0 && (!in.UnitPrice.IsPositive() || in.WarehouseID <= 0) {
			return nil, ErrValidation
		}
		byID[in.LineID] = in
	}
	anyPositive := false
	resolved := make([]POLine, 0, len(lines))
	for _, line := range lines {
		in, ok := byID[line.ID]
		if ok {
			delete(byID, line.ID)
		}
		if in.Qty > 0 {
			line.ReceivedQty = in.Qty
			line.ReceivedPrice = in.UnitPrice
			line.WarehouseID = in.WarehouseID
			anyPositive = true
		}
		resolved = append(resolved, line)
	}
	if len(byID) > 0 {
		// Input referenced a line that does not belong to this order.
		return nil, ErrValidation
	}
	if !anyPositive {
		return nil, ErrValidation
	}
	return resolved, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "purchase_order",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	})
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
