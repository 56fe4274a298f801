package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phamqv/storefront/internal/domain/models"
)

// TransactionRepository appends immutable financial ledger entries. No update
// or delete is exposed.
type TransactionRepository struct {
	coll *mongo.Collection
}

// NewTransactionRepository creates a transaction repository bound to the given database.
func NewTransactionRepository(db *mongo.Database) *TransactionRepository {
	return &TransactionRepository{coll: db.Collection(transactionsCollection)}
}

// Insert appends one ledger entry.
func (r *TransactionRepository) Insert(ctx context.Context, txn *models.Transaction) error {
	if _, err := r.coll.InsertOne(ctx, txn); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// List returns ledger entries matching the filter, newest first.
func (r *TransactionRepository) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	query := bson.M{}
	if filter.Type != "" {
		query["type"] = filter.Type
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Start != nil || filter.End != nil {
		dateRange := bson.M{}
		if filter.Start != nil {
			dateRange["$gte"] = *filter.Start
		}
		if filter.End != nil {
			dateRange["$lte"] = *filter.End
		}
		query["transactionDate"] = dateRange
	}

	opts := options.Find().SetSort(bson.D{{Key: "transactionDate", Value: -1}})
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var txns []models.Transaction
	if err := cursor.All(ctx, &txns); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	return txns, nil
}

// Summary aggregates income and expense totals over a period.
func (r *TransactionRepository) Summary(ctx context.Context, start, end time.Time) (*models.TransactionSummary, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"transactionDate": bson.M{"$gte": start, "$lte": end},
		}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   "$type",
			"total": bson.M{"$sum": "$amount"},
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var groups []struct {
		Type  models.TransactionType `bson:"_id"`
		Total float64                `bson:"total"`
		Count int                    `bson:"count"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("decode transaction summary: %w", err)
	}

	summary := &models.TransactionSummary{}
	for _, g := range groups {
		switch g.Type {
		case models.TransactionTypeIncome:
			summary.TotalIncome = g.Total
		case models.TransactionTypeExpense:
			summary.TotalExpense = g.Total
		}
		summary.Count += g.Count
	}
	summary.Net = summary.TotalIncome - summary.TotalExpense

	return summary, nil
}
