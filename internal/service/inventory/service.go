package inventory

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/phamqv/storefront/internal/domain/models"
)

// StockStore is the storage surface the ledger requires. ReserveQuantity must
// be a single conditional write guarded by the sufficient-stock precondition.
type StockStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	ReserveQuantity(ctx context.Context, id primitive.ObjectID, qty int) (int, error)
	ReleaseQuantity(ctx context.Context, id primitive.ObjectID, qty int) (int, error)
}

// Service is the inventory ledger. It exposes only Reserve and Release; no
// caller can read-modify-write the counter around it.
type Service struct {
	store  StockStore
	logger *zap.Logger
}

// NewService wires a new inventory ledger instance.
func NewService(store StockStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Reserve atomically deducts qty from the item's counter. It fails with
// models.ErrInsufficientStock when the counter does not cover the request and
// leaves the counter unchanged. Returns the quantity after the deduction.
func (s *Service) Reserve(ctx context.Context, itemID primitive.ObjectID, qty int) (int, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("reserve quantity must be positive, got %d: %w", qty, models.ErrValidation)
	}

	after, err := s.store.ReserveQuantity(ctx, itemID, qty)
	if err != nil {
		return 0, err
	}

	s.logger.Debug("stock reserved",
		zap.String("product", itemID.Hex()),
		zap.Int("quantity", qty),
		zap.Int("remaining", after))
	return after, nil
}

// Release returns qty units to the item's counter. Used exclusively for
// rollback, cancellation and compensation; it always succeeds for an existing
// item. Returns the quantity after the increment.
func (s *Service) Release(ctx context.Context, itemID primitive.ObjectID, qty int) (int, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("release quantity must be positive, got %d: %w", qty, models.ErrValidation)
	}

	after, err := s.store.ReleaseQuantity(ctx, itemID, qty)
	if err != nil {
		return 0, err
	}

	s.logger.Debug("stock released",
		zap.String("product", itemID.Hex()),
		zap.Int("quantity", qty),
		zap.Int("remaining", after))
	return after, nil
}

// Item reads a product for advisory checks and display. The returned quantity
// is a snapshot; it must never feed an unconditional write.
func (s *Service) Item(ctx context.Context, itemID primitive.ObjectID) (*models.Product, error) {
	return s.store.FindByID(ctx, itemID)
}
