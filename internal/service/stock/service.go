package stock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/phamqv/storefront/internal/domain/models"
)

// Ledger is the inventory surface the workflow requires. Approval is the only
// operation that goes through it.
type Ledger interface {
	Reserve(ctx context.Context, itemID primitive.ObjectID, qty int) (int, error)
	Release(ctx context.Context, itemID primitive.ObjectID, qty int) (int, error)
	Item(ctx context.Context, itemID primitive.ObjectID) (*models.Product, error)
}

// Recorder appends the financial entries triggered by voucher approval.
type Recorder interface {
	RecordVoucherImport(ctx context.Context, voucherID primitive.ObjectID, totalValue float64, createdBy primitive.ObjectID) (*models.Transaction, error)
	RecordVoucherExport(ctx context.Context, voucherID primitive.ObjectID, totalCost float64, createdBy primitive.ObjectID) (*models.Transaction, error)
}

// VoucherStore persists vouchers. The Claim* methods are conditional writes on
// the pending status.
type VoucherStore interface {
	Insert(ctx context.Context, voucher *models.StockVoucher) (primitive.ObjectID, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.StockVoucher, error)
	List(ctx context.Context, filter models.VoucherFilter) ([]models.StockVoucher, error)
	ClaimApproval(ctx context.Context, id, approvedBy primitive.ObjectID, at time.Time) (bool, error)
	ClaimRejection(ctx context.Context, id, rejectedBy primitive.ObjectID, at time.Time, reason string) (bool, error)
	ClaimCancellation(ctx context.Context, id primitive.ObjectID) (bool, error)
}

// HistoryStore appends immutable stock audit entries.
type HistoryStore interface {
	Insert(ctx context.Context, entry *models.StockHistoryEntry) error
	List(ctx context.Context, filter models.HistoryFilter) ([]models.StockHistoryEntry, error)
}

// VoucherItemInput is one requested line of a new voucher.
type VoucherItemInput struct {
	Product  primitive.ObjectID
	Quantity int
	Note     string
}

// CreateVoucherInput carries everything needed to open a voucher.
type CreateVoucherInput struct {
	Type         models.VoucherType
	Reason       string
	Items        []VoucherItemInput
	Notes        string
	RelatedOrder *primitive.ObjectID
	CreatedBy    primitive.ObjectID
}

// Service implements the stock voucher workflow.
type Service struct {
	ledger   Ledger
	recorder Recorder
	vouchers VoucherStore
	history  HistoryStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires a new voucher workflow.
func NewService(ledger Ledger, recorder Recorder, vouchers VoucherStore, history HistoryStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ledger:   ledger,
		recorder: recorder,
		vouchers: vouchers,
		history:  history,
		logger:   logger,
		now:      time.Now,
	}
}

// Create validates the request and opens a pending voucher. For export
// vouchers the stock check here is advisory only; the authoritative check is
// the conditional reserve at approval time.
func (s *Service) Create(ctx context.Context, input CreateVoucherInput) (*models.StockVoucher, error) {
	if input.Type != models.VoucherTypeImport && input.Type != models.VoucherTypeExport {
		return nil, fmt.Errorf("unknown voucher type %q: %w", input.Type, models.ErrValidation)
	}
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("voucher needs at least one item: %w", models.ErrValidation)
	}

	items := make([]models.VoucherItem, 0, len(input.Items))
	for _, in := range input.Items {
		if in.Quantity <= 0 {
			return nil, fmt.Errorf("item quantity must be positive, got %d: %w", in.Quantity, models.ErrValidation)
		}

		product, err := s.ledger.Item(ctx, in.Product)
		if err != nil {
			return nil, err
		}

		if input.Type == models.VoucherTypeExport && product.Quantity < in.Quantity {
			return nil, fmt.Errorf("product %s has %d in stock, requested %d: %w",
				product.Name, product.Quantity, in.Quantity, models.ErrInsufficientStock)
		}

		items = append(items, models.VoucherItem{
			Product:     product.ID,
			ProductName: product.Name,
			Quantity:    in.Quantity,
			Unit:        product.Unit,
			CostPrice:   product.CostPrice,
			Note:        in.Note,
		})
	}

	now := s.now()
	voucher := &models.StockVoucher{
		VoucherNumber: newVoucherNumber(input.Type, now),
		Type:          input.Type,
		Reason:        input.Reason,
		Items:         items,
		Notes:         input.Notes,
		Status:        models.VoucherStatusPending,
		RelatedOrder:  input.RelatedOrder,
		CreatedBy:     input.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	id, err := s.vouchers.Insert(ctx, voucher)
	if err != nil {
		return nil, err
	}
	voucher.ID = id

	s.logger.Info("stock voucher created",
		zap.String("voucher", voucher.VoucherNumber),
		zap.String("type", string(voucher.Type)),
		zap.Int("items", len(voucher.Items)))
	return voucher, nil
}

// Approve applies a pending voucher to the inventory ledger: reserve per item
// for exports, release per item for imports, one history entry per applied
// item, then seals the voucher and records the financial entry.
//
// Items are applied one at a time, not as an atomic batch. When an export item
// fails mid-loop the earlier items stay decremented and the voucher stays
// pending; there is no automatic rollback. TestApproveExport_
// PartialFailureLeavesEarlierItemsApplied pins this window down.
func (s *Service) Approve(ctx context.Context, id, approvedBy primitive.ObjectID) (*models.StockVoucher, error) {
	voucher, err := s.vouchers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if voucher.Status != models.VoucherStatusPending {
		return nil, fmt.Errorf("voucher %s is %s, only pending vouchers can be approved: %w",
			voucher.VoucherNumber, voucher.Status, models.ErrInvalidTransition)
	}

	// Advisory pre-check for exports. Stock can still change before the
	// per-item reserve below, which remains the authoritative gate.
	if voucher.Type == models.VoucherTypeExport {
		for _, item := range voucher.Items {
			product, err := s.ledger.Item(ctx, item.Product)
			if err != nil {
				return nil, err
			}
			if product.Quantity < item.Quantity {
				return nil, fmt.Errorf("product %s has %d in stock, voucher needs %d: %w",
					item.ProductName, product.Quantity, item.Quantity, models.ErrInsufficientStock)
			}
		}
	}

	now := s.now()
	for _, item := range voucher.Items {
		var after int
		var applyErr error

		switch voucher.Type {
		case models.VoucherTypeExport:
			after, applyErr = s.ledger.Reserve(ctx, item.Product, item.Quantity)
		case models.VoucherTypeImport:
			after, applyErr = s.ledger.Release(ctx, item.Product, item.Quantity)
		}
		if applyErr != nil {
			return nil, fmt.Errorf("apply voucher item %s: %w", item.ProductName, applyErr)
		}

		change := item.Quantity
		if voucher.Type == models.VoucherTypeExport {
			change = -item.Quantity
		}

		entry := &models.StockHistoryEntry{
			Product:        item.Product,
			ProductName:    item.ProductName,
			Type:           voucher.Type,
			QuantityBefore: after - change,
			QuantityChange: change,
			QuantityAfter:  after,
			Reason:         voucher.Reason,
			RelatedVoucher: voucher.ID,
			VoucherNumber:  voucher.VoucherNumber,
			RelatedOrder:   voucher.RelatedOrder,
			CreatedBy:      approvedBy,
			Notes:          item.Note,
			CreatedAt:      now,
		}
		if err := s.history.Insert(ctx, entry); err != nil {
			// The counter already moved; the audit row is best-effort.
			s.logger.Error("stock history write failed",
				zap.String("voucher", voucher.VoucherNumber),
				zap.String("product", item.ProductName),
				zap.Error(err))
		}
	}

	claimed, err := s.vouchers.ClaimApproval(ctx, voucher.ID, approvedBy, now)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// A concurrent transition won after our stock mutations. Surface the
		// conflict; the mutations are covered by history entries above.
		return nil, fmt.Errorf("voucher %s left pending during approval: %w",
			voucher.VoucherNumber, models.ErrInvalidTransition)
	}

	voucher.Status = models.VoucherStatusApproved
	voucher.ApprovedBy = &approvedBy
	voucher.ApprovedAt = &now

	s.recordApproval(ctx, voucher, approvedBy)

	s.logger.Info("stock voucher approved",
		zap.String("voucher", voucher.VoucherNumber),
		zap.String("type", string(voucher.Type)))
	return voucher, nil
}

// Reject declines a pending voucher. No ledger or history mutation.
func (s *Service) Reject(ctx context.Context, id, rejectedBy primitive.ObjectID, reason string) (*models.StockVoucher, error) {
	voucher, err := s.vouchers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	claimed, err := s.vouchers.ClaimRejection(ctx, id, rejectedBy, now, reason)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, fmt.Errorf("voucher %s is %s, only pending vouchers can be rejected: %w",
			voucher.VoucherNumber, voucher.Status, models.ErrInvalidTransition)
	}

	voucher.Status = models.VoucherStatusRejected
	voucher.RejectedBy = &rejectedBy
	voucher.RejectedAt = &now
	voucher.RejectionReason = reason
	return voucher, nil
}

// Cancel withdraws a pending voucher. Approved vouchers cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, id primitive.ObjectID) (*models.StockVoucher, error) {
	voucher, err := s.vouchers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	claimed, err := s.vouchers.ClaimCancellation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, fmt.Errorf("voucher %s is %s and can no longer be cancelled: %w",
			voucher.VoucherNumber, voucher.Status, models.ErrInvalidTransition)
	}

	voucher.Status = models.VoucherStatusCancelled
	return voucher, nil
}

// CreateExportFromOrder opens the export voucher auditing a completed order's
// shipment. Stock is not touched; it was reserved when the order was created.
func (s *Service) CreateExportFromOrder(ctx context.Context, order *models.Order, createdBy primitive.ObjectID) (*models.StockVoucher, error) {
	items := make([]VoucherItemInput, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, VoucherItemInput{Product: item.Product, Quantity: item.Quantity})
	}

	return s.createForOrder(ctx, CreateVoucherInput{
		Type:         models.VoucherTypeExport,
		Reason:       fmt.Sprintf("Shipment for order %s", order.ID.Hex()),
		Items:        items,
		Notes:        fmt.Sprintf("Auto-created from order %s", order.ID.Hex()),
		RelatedOrder: &order.ID,
		CreatedBy:    createdBy,
	})
}

// CreateImportFromRefund opens the import voucher that restores the refunded
// quantities once approved. The refund path itself never touches the ledger;
// this voucher's approval is the single restock point.
func (s *Service) CreateImportFromRefund(ctx context.Context, order *models.Order, reason string, createdBy primitive.ObjectID) (*models.StockVoucher, error) {
	items := make([]VoucherItemInput, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, VoucherItemInput{Product: item.Product, Quantity: item.Quantity})
	}

	return s.createForOrder(ctx, CreateVoucherInput{
		Type:         models.VoucherTypeImport,
		Reason:       fmt.Sprintf("Return from refunded order %s: %s", order.ID.Hex(), reason),
		Items:        items,
		Notes:        fmt.Sprintf("Auto-created from refund of order %s", order.ID.Hex()),
		RelatedOrder: &order.ID,
		CreatedBy:    createdBy,
	})
}

// Get fetches a voucher by id.
func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*models.StockVoucher, error) {
	return s.vouchers.FindByID(ctx, id)
}

// List returns vouchers matching the filter.
func (s *Service) List(ctx context.Context, filter models.VoucherFilter) ([]models.StockVoucher, error) {
	return s.vouchers.List(ctx, filter)
}

// History returns stock audit entries matching the filter.
func (s *Service) History(ctx context.Context, filter models.HistoryFilter) ([]models.StockHistoryEntry, error) {
	return s.history.List(ctx, filter)
}

// createForOrder creates an order-linked voucher, skipping the advisory export
// stock check: the order's reservation already accounts for the quantities.
func (s *Service) createForOrder(ctx context.Context, input CreateVoucherInput) (*models.StockVoucher, error) {
	items := make([]models.VoucherItem, 0, len(input.Items))
	for _, in := range input.Items {
		product, err := s.ledger.Item(ctx, in.Product)
		if err != nil {
			return nil, err
		}
		items = append(items, models.VoucherItem{
			Product:     product.ID,
			ProductName: product.Name,
			Quantity:    in.Quantity,
			Unit:        product.Unit,
			CostPrice:   product.CostPrice,
		})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("order has no items to voucher: %w", models.ErrValidation)
	}

	now := s.now()
	voucher := &models.StockVoucher{
		VoucherNumber: newVoucherNumber(input.Type, now),
		Type:          input.Type,
		Reason:        input.Reason,
		Items:         items,
		Notes:         input.Notes,
		Status:        models.VoucherStatusPending,
		RelatedOrder:  input.RelatedOrder,
		CreatedBy:     input.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	id, err := s.vouchers.Insert(ctx, voucher)
	if err != nil {
		return nil, err
	}
	voucher.ID = id

	s.logger.Info("order voucher created",
		zap.String("voucher", voucher.VoucherNumber),
		zap.String("type", string(voucher.Type)),
		zap.String("order", input.RelatedOrder.Hex()))
	return voucher, nil
}

// recordApproval appends the financial entry for an approved voucher. Failures
// are logged and swallowed; the approval stands regardless.
func (s *Service) recordApproval(ctx context.Context, voucher *models.StockVoucher, approvedBy primitive.ObjectID) {
	var err error
	switch voucher.Type {
	case models.VoucherTypeImport:
		_, err = s.recorder.RecordVoucherImport(ctx, voucher.ID, voucher.TotalValue(), approvedBy)
	case models.VoucherTypeExport:
		_, err = s.recorder.RecordVoucherExport(ctx, voucher.ID, voucher.TotalValue(), approvedBy)
	}
	if err != nil {
		s.logger.Error("voucher transaction record failed",
			zap.String("voucher", voucher.VoucherNumber),
			zap.Error(err))
	}
}

// newVoucherNumber builds a human-scannable voucher reference, unique via an
// ObjectID suffix.
func newVoucherNumber(voucherType models.VoucherType, now time.Time) string {
	prefix := "IMP"
	if voucherType == models.VoucherTypeExport {
		prefix = "EXP"
	}
	suffix := strings.ToUpper(primitive.NewObjectID().Hex())
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102"), suffix[len(suffix)-6:])
}
