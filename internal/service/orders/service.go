package orders

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/phamqv/storefront/internal/domain/models"
)

// Ledger is the inventory surface the engine requires. Reserve at creation,
// Release on cancellation or compensation; never anything else.
type Ledger interface {
	Reserve(ctx context.Context, itemID primitive.ObjectID, qty int) (int, error)
	Release(ctx context.Context, itemID primitive.ObjectID, qty int) (int, error)
	Item(ctx context.Context, itemID primitive.ObjectID) (*models.Product, error)
}

// Recorder appends the financial entries triggered by payments and refunds.
type Recorder interface {
	RecordOrderPayment(ctx context.Context, orderID primitive.ObjectID, amount float64, paymentMethod string, createdBy primitive.ObjectID) (*models.Transaction, error)
	RecordOrderRefund(ctx context.Context, orderID primitive.ObjectID, amount float64, reason string, createdBy primitive.ObjectID) (*models.Transaction, error)
}

// VoucherIssuer opens the audit vouchers triggered by completion and refunds.
type VoucherIssuer interface {
	CreateExportFromOrder(ctx context.Context, order *models.Order, createdBy primitive.ObjectID) (*models.StockVoucher, error)
	CreateImportFromRefund(ctx context.Context, order *models.Order, reason string, createdBy primitive.ObjectID) (*models.StockVoucher, error)
}

// OrderStore persists orders. The Claim* methods are conditional writes so a
// transition fires at most once under concurrent calls.
type OrderStore interface {
	Insert(ctx context.Context, order *models.Order) (primitive.ObjectID, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	List(ctx context.Context, user *primitive.ObjectID) ([]models.Order, error)
	ClaimStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus) (bool, error)
	ClaimFirstPayment(ctx context.Context, id primitive.ObjectID, result models.PaymentResult, paidAt time.Time) (bool, error)
	UpdatePaymentResult(ctx context.Context, id primitive.ObjectID, result models.PaymentResult) error
	SetRefundInfo(ctx context.Context, id primitive.ObjectID, info models.RefundInfo) error
	ClaimExportVoucher(ctx context.Context, id, voucherID primitive.ObjectID) (bool, error)
}

// PaymentVerifier checks a gateway capture before an order is marked paid.
type PaymentVerifier interface {
	VerifyCapture(ctx context.Context, captureID string) error
}

// OrderItemInput is one requested line of a new order.
type OrderItemInput struct {
	Product  primitive.ObjectID
	Quantity int
}

// CreateOrderInput carries everything needed to open an order.
type CreateOrderInput struct {
	User            primitive.ObjectID
	Items           []OrderItemInput
	ShippingAddress models.ShippingAddress
	PaymentMethod   string
}

// RefundInput carries the refund request details.
type RefundInput struct {
	Reason              string
	Notes               string
	CreateImportVoucher bool
}

// Service is the order lifecycle engine.
type Service struct {
	ledger   Ledger
	recorder Recorder
	vouchers VoucherIssuer
	store    OrderStore
	verifier PaymentVerifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires a new order engine. verifier may be nil when no payment
// gateway is configured.
func NewService(ledger Ledger, recorder Recorder, vouchers VoucherIssuer, store OrderStore, verifier PaymentVerifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ledger:   ledger,
		recorder: recorder,
		vouchers: vouchers,
		store:    store,
		verifier: verifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Create reserves stock for every line item, then persists the order. The
// reservations are not a single transaction: when item k fails after items
// 1..k-1 reserved, every earlier reservation is released before the error is
// surfaced, and no order record is written.
func (s *Service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("order needs at least one item: %w", models.ErrValidation)
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item quantity must be positive, got %d: %w", item.Quantity, models.ErrValidation)
		}
	}

	// Compensation list, grown as each reservation commits.
	var reserved []models.OrderItem

	for _, in := range input.Items {
		product, err := s.ledger.Item(ctx, in.Product)
		if err != nil {
			s.releaseAll(ctx, reserved)
			return nil, err
		}

		if _, err := s.ledger.Reserve(ctx, in.Product, in.Quantity); err != nil {
			s.releaseAll(ctx, reserved)
			return nil, err
		}

		reserved = append(reserved, models.OrderItem{
			Product:     product.ID,
			ProductName: product.Name,
			Quantity:    in.Quantity,
			Price:       product.Price,
		})
	}

	var total float64
	for _, item := range reserved {
		total += item.Price * float64(item.Quantity)
	}

	now := s.now()
	order := &models.Order{
		User:            input.User,
		Items:           reserved,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		TotalPrice:      total,
		IsPaid:          false,
		Status:          models.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	id, err := s.store.Insert(ctx, order)
	if err != nil {
		// The reservations committed but the record did not; compensate.
		s.releaseAll(ctx, reserved)
		return nil, err
	}
	order.ID = id

	s.logger.Info("order created",
		zap.String("order", id.Hex()),
		zap.Int("items", len(order.Items)),
		zap.Float64("total", total))
	return order, nil
}

// MarkPaid records the payment metadata. It is idempotent: the income ledger
// entry fires only on the first call, claimed through a conditional write on
// the was-not-paid flag; later calls just refresh the gateway metadata. Status
// is never changed here.
func (s *Service) MarkPaid(ctx context.Context, orderID primitive.ObjectID, result models.PaymentResult, updatedBy primitive.ObjectID) (*models.Order, error) {
	order, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if s.verifier != nil && result.ID != "" {
		if err := s.verifier.VerifyCapture(ctx, result.ID); err != nil {
			return nil, fmt.Errorf("payment capture %s not verified: %w", result.ID, err)
		}
	}

	now := s.now()
	claimed, err := s.store.ClaimFirstPayment(ctx, orderID, result, now)
	if err != nil {
		return nil, err
	}

	if claimed {
		if _, err := s.recorder.RecordOrderPayment(ctx, orderID, order.TotalPrice, order.PaymentMethod, updatedBy); err != nil {
			s.logger.Error("payment transaction record failed",
				zap.String("order", orderID.Hex()), zap.Error(err))
		}
		order.IsPaid = true
		order.PaidAt = &now
	} else if err := s.store.UpdatePaymentResult(ctx, orderID, result); err != nil {
		return nil, err
	}

	order.PaymentResult = &result
	return order, nil
}

// UpdateStatus moves an order along the transition table and fires the side
// effects bound to the entered state. Side-effect failures are logged and
// swallowed; the status change stands.
func (s *Service) UpdateStatus(ctx context.Context, orderID primitive.ObjectID, to models.OrderStatus, updatedBy primitive.ObjectID) (*models.Order, error) {
	switch to {
	case models.OrderStatusCancelled:
		return s.Cancel(ctx, orderID)
	case models.OrderStatusRefunded:
		return s.Refund(ctx, orderID, RefundInput{Reason: "refund approved"}, updatedBy)
	case models.OrderStatusProcessing, models.OrderStatusCompleted, models.OrderStatusRefundRequested:
	default:
		return nil, fmt.Errorf("unknown order status %q: %w", to, models.ErrValidation)
	}

	order, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	from := order.Status
	if !transitionAllowed(from, to) {
		return nil, fmt.Errorf("order %s cannot move %s -> %s: %w", orderID.Hex(), from, to, models.ErrInvalidTransition)
	}
	if requiresPayment(to) && !order.IsPaid {
		return nil, fmt.Errorf("order %s is unpaid, cannot move to %s: %w", orderID.Hex(), to, models.ErrInvalidTransition)
	}

	claimed, err := s.store.ClaimStatus(ctx, orderID, from, to)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, fmt.Errorf("order %s left %s during transition: %w", orderID.Hex(), from, models.ErrInvalidTransition)
	}
	order.Status = to

	s.applySideEffects(ctx, order, to, updatedBy)

	s.logger.Info("order status updated",
		zap.String("order", orderID.Hex()),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return order, nil
}

// Cancel is idempotent: cancelling an already-cancelled order is a no-op, and
// the conditional status claim guarantees the stock release fires exactly once
// even under concurrent cancels.
func (s *Service) Cancel(ctx context.Context, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == models.OrderStatusCancelled {
		return order, nil
	}
	if !transitionAllowed(order.Status, models.OrderStatusCancelled) {
		return nil, fmt.Errorf("order %s is %s and cannot be cancelled: %w", orderID.Hex(), order.Status, models.ErrInvalidTransition)
	}

	claimed, err := s.store.ClaimStatus(ctx, orderID, order.Status, models.OrderStatusCancelled)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Lost the race. If the winner was another cancel, this is still a no-op.
		current, err := s.store.FindByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if current.Status == models.OrderStatusCancelled {
			return current, nil
		}
		return nil, fmt.Errorf("order %s left %s during cancel: %w", orderID.Hex(), order.Status, models.ErrInvalidTransition)
	}

	// This call owns the transition, so it releases each reservation exactly
	// once. A release failure leaves stock under-counted; it is logged for
	// operators rather than retried.
	for _, item := range order.Items {
		if _, err := s.ledger.Release(ctx, item.Product, item.Quantity); err != nil {
			s.logger.Error("stock release failed on cancel",
				zap.String("order", orderID.Hex()),
				zap.String("product", item.Product.Hex()),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
		}
	}

	order.Status = models.OrderStatusCancelled
	s.logger.Info("order cancelled", zap.String("order", orderID.Hex()))
	return order, nil
}

// Refund grants a requested refund: records the expense entry and, when asked,
// opens the import voucher whose approval restores the stock. The refund never
// touches the inventory ledger directly.
func (s *Service) Refund(ctx context.Context, orderID primitive.ObjectID, input RefundInput, updatedBy primitive.ObjectID) (*models.Order, error) {
	order, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.IsPaid {
		return nil, fmt.Errorf("order %s is unpaid and cannot be refunded: %w", orderID.Hex(), models.ErrInvalidTransition)
	}
	if !transitionAllowed(order.Status, models.OrderStatusRefunded) {
		return nil, fmt.Errorf("order %s is %s, refund requires refund_requested: %w", orderID.Hex(), order.Status, models.ErrInvalidTransition)
	}

	claimed, err := s.store.ClaimStatus(ctx, orderID, order.Status, models.OrderStatusRefunded)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, fmt.Errorf("order %s left %s during refund: %w", orderID.Hex(), order.Status, models.ErrInvalidTransition)
	}
	order.Status = models.OrderStatusRefunded

	info := models.RefundInfo{
		Reason:     input.Reason,
		RefundDate: s.now(),
		Notes:      input.Notes,
	}

	txn, err := s.recorder.RecordOrderRefund(ctx, orderID, order.TotalPrice, input.Reason, updatedBy)
	if err != nil {
		s.logger.Error("refund transaction record failed",
			zap.String("order", orderID.Hex()), zap.Error(err))
	} else {
		info.TransactionID = &txn.ID
	}

	if err := s.store.SetRefundInfo(ctx, orderID, info); err != nil {
		s.logger.Error("refund info write failed",
			zap.String("order", orderID.Hex()), zap.Error(err))
	}
	order.RefundInfo = &info

	if input.CreateImportVoucher && len(order.Items) > 0 {
		if _, err := s.vouchers.CreateImportFromRefund(ctx, order, input.Reason, updatedBy); err != nil {
			s.logger.Error("refund import voucher failed",
				zap.String("order", orderID.Hex()), zap.Error(err))
		}
	}

	s.logger.Info("order refunded", zap.String("order", orderID.Hex()))
	return order, nil
}

// IssueExportVoucher opens the shipment voucher for a completed order that is
// missing one, typically after the automatic creation at completion failed.
// The voucher link claim keeps concurrent calls from issuing duplicates.
func (s *Service) IssueExportVoucher(ctx context.Context, orderID, createdBy primitive.ObjectID) (*models.StockVoucher, error) {
	order, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != models.OrderStatusCompleted {
		return nil, fmt.Errorf("order %s is %s, export vouchers require completed: %w",
			orderID.Hex(), order.Status, models.ErrInvalidTransition)
	}
	if order.ExportVoucherID != nil {
		return nil, fmt.Errorf("order %s already has an export voucher: %w",
			orderID.Hex(), models.ErrInvalidTransition)
	}

	voucher, err := s.vouchers.CreateExportFromOrder(ctx, order, createdBy)
	if err != nil {
		return nil, err
	}

	linked, err := s.store.ClaimExportVoucher(ctx, orderID, voucher.ID)
	if err != nil {
		return nil, err
	}
	if !linked {
		return nil, fmt.Errorf("order %s gained an export voucher concurrently: %w",
			orderID.Hex(), models.ErrInvalidTransition)
	}

	return voucher, nil
}

// Get fetches an order by id.
func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return s.store.FindByID(ctx, id)
}

// List returns orders, optionally scoped to one user.
func (s *Service) List(ctx context.Context, user *primitive.ObjectID) ([]models.Order, error) {
	return s.store.List(ctx, user)
}

// applySideEffects runs the best-effort side channels of an entered state.
// Failures never re-open or revert the primary transition.
func (s *Service) applySideEffects(ctx context.Context, order *models.Order, entered models.OrderStatus, updatedBy primitive.ObjectID) {
	switch entered {
	case models.OrderStatusProcessing:
		if _, err := s.recorder.RecordOrderPayment(ctx, order.ID, order.TotalPrice, order.PaymentMethod, updatedBy); err != nil {
			s.logger.Error("processing transaction record failed",
				zap.String("order", order.ID.Hex()), zap.Error(err))
		}
	case models.OrderStatusCompleted:
		// Stock was reserved at creation; completion only audits the shipment.
		// The voucher link claim keeps a re-entered completion from issuing a
		// second voucher.
		if order.ExportVoucherID != nil {
			return
		}
		voucher, err := s.vouchers.CreateExportFromOrder(ctx, order, updatedBy)
		if err != nil {
			s.logger.Error("export voucher creation failed",
				zap.String("order", order.ID.Hex()), zap.Error(err))
			return
		}
		linked, err := s.store.ClaimExportVoucher(ctx, order.ID, voucher.ID)
		if err != nil || !linked {
			s.logger.Warn("export voucher link not claimed",
				zap.String("order", order.ID.Hex()),
				zap.String("voucher", voucher.VoucherNumber),
				zap.Error(err))
			return
		}
		order.ExportVoucherID = &voucher.ID
	}
}

// releaseAll compensates committed reservations after a later step failed.
func (s *Service) releaseAll(ctx context.Context, reserved []models.OrderItem) {
	for _, item := range reserved {
		if _, err := s.ledger.Release(ctx, item.Product, item.Quantity); err != nil {
			s.logger.Error("compensating release failed",
				zap.String("product", item.Product.Hex()),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
		}
	}
}
