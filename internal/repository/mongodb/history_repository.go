package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phamqv/storefront/internal/domain/models"
)

// HistoryRepository appends immutable stock audit records. No update or delete
// is exposed.
type HistoryRepository struct {
	coll *mongo.Collection
}

// NewHistoryRepository creates a history repository bound to the given database.
func NewHistoryRepository(db *mongo.Database) *HistoryRepository {
	return &HistoryRepository{coll: db.Collection(stockHistoryCollection)}
}

// Insert appends one history entry.
func (r *HistoryRepository) Insert(ctx context.Context, entry *models.StockHistoryEntry) error {
	if _, err := r.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert stock history: %w", err)
	}
	return nil
}

// List returns history entries matching the filter, newest first.
func (r *HistoryRepository) List(ctx context.Context, filter models.HistoryFilter) ([]models.StockHistoryEntry, error) {
	query := bson.M{}
	if filter.Product != nil {
		query["product"] = *filter.Product
	}
	if filter.Type != "" {
		query["type"] = filter.Type
	}
	if filter.VoucherNumber != "" {
		query["voucherNumber"] = filter.VoucherNumber
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list stock history: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.StockHistoryEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode stock history: %w", err)
	}
	return entries, nil
}
