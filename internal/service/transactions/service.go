package transactions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/phamqv/storefront/internal/domain/models"
)

// LedgerStore is the storage surface the recorder requires. Append and read
// only; the store exposes no update or delete.
type LedgerStore interface {
	Insert(ctx context.Context, txn *models.Transaction) error
	List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error)
	Summary(ctx context.Context, start, end time.Time) (*models.TransactionSummary, error)
}

// Service is the append-only transaction recorder. It performs no
// deduplication; callers guard against invoking it twice for one logical event.
type Service struct {
	store  LedgerStore
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new transaction recorder.
func NewService(store LedgerStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// RecordOrderPayment appends the income entry for a paid order.
func (s *Service) RecordOrderPayment(ctx context.Context, orderID primitive.ObjectID, amount float64, paymentMethod string, createdBy primitive.ObjectID) (*models.Transaction, error) {
	txn := s.newEntry(models.TransactionTypeIncome, models.TransactionCategorySales, amount, createdBy)
	txn.RelatedOrder = &orderID
	txn.PaymentMethod = paymentMethod
	txn.Description = fmt.Sprintf("Payment received for order %s", orderID.Hex())
	return s.append(ctx, txn)
}

// RecordOrderRefund appends the expense entry for a refunded order.
func (s *Service) RecordOrderRefund(ctx context.Context, orderID primitive.ObjectID, amount float64, reason string, createdBy primitive.ObjectID) (*models.Transaction, error) {
	txn := s.newEntry(models.TransactionTypeExpense, models.TransactionCategoryRefund, amount, createdBy)
	txn.RelatedOrder = &orderID
	txn.Description = fmt.Sprintf("Refund for order %s: %s", orderID.Hex(), reason)
	return s.append(ctx, txn)
}

// RecordVoucherImport appends the expense entry for an approved import voucher,
// valued at the voucher's total cost.
func (s *Service) RecordVoucherImport(ctx context.Context, voucherID primitive.ObjectID, totalValue float64, createdBy primitive.ObjectID) (*models.Transaction, error) {
	txn := s.newEntry(models.TransactionTypeExpense, models.TransactionCategoryStockImport, totalValue, createdBy)
	txn.RelatedVoucher = &voucherID
	txn.Description = fmt.Sprintf("Stock purchase for import voucher %s", voucherID.Hex())
	return s.append(ctx, txn)
}

// RecordVoucherExport appends the cost-basis entry for an approved export
// voucher, valued from the line items' cost prices.
func (s *Service) RecordVoucherExport(ctx context.Context, voucherID primitive.ObjectID, totalCost float64, createdBy primitive.ObjectID) (*models.Transaction, error) {
	txn := s.newEntry(models.TransactionTypeExpense, models.TransactionCategoryCostOfGoods, totalCost, createdBy)
	txn.RelatedVoucher = &voucherID
	txn.Description = fmt.Sprintf("Cost of goods for export voucher %s", voucherID.Hex())
	return s.append(ctx, txn)
}

// List returns ledger entries matching the filter.
func (s *Service) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	return s.store.List(ctx, filter)
}

// Summary aggregates the ledger over a period.
func (s *Service) Summary(ctx context.Context, start, end time.Time) (*models.TransactionSummary, error) {
	return s.store.Summary(ctx, start, end)
}

func (s *Service) newEntry(txnType models.TransactionType, category string, amount float64, createdBy primitive.ObjectID) *models.Transaction {
	now := s.now()
	return &models.Transaction{
		TransactionNumber: newTransactionNumber(now),
		Type:              txnType,
		Category:          category,
		Amount:            amount,
		CreatedBy:         createdBy,
		AutoCreated:       true,
		TransactionDate:   now,
		CreatedAt:         now,
	}
}

func (s *Service) append(ctx context.Context, txn *models.Transaction) (*models.Transaction, error) {
	if err := s.store.Insert(ctx, txn); err != nil {
		return nil, err
	}

	s.logger.Info("transaction recorded",
		zap.String("number", txn.TransactionNumber),
		zap.String("type", string(txn.Type)),
		zap.String("category", txn.Category),
		zap.Float64("amount", txn.Amount))
	return txn, nil
}

// newTransactionNumber builds a human-scannable ledger reference, unique via an
// ObjectID suffix.
func newTransactionNumber(now time.Time) string {
	suffix := strings.ToUpper(primitive.NewObjectID().Hex())
	return fmt.Sprintf("TXN-%s-%s", now.Format("20060102"), suffix[len(suffix)-6:])
}
