package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phamqv/storefront/internal/domain/models"
)

// ProductRepository owns the per-product stock counter. The counter is only
// mutated through ReserveQuantity and ReleaseQuantity, each a single write.
type ProductRepository struct {
	coll *mongo.Collection
}

// NewProductRepository creates a product repository bound to the given database.
func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{coll: db.Collection(productsCollection)}
}

// FindByID fetches a product or returns models.ErrNotFound.
func (r *ProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("product %s: %w", id.Hex(), models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	return &product, nil
}

// ReserveQuantity atomically decrements the stock counter, but only when the
// current quantity covers the request. The precondition and the decrement are a
// single conditional write; there is no window for a concurrent reservation to
// observe stale stock. Returns the quantity after the decrement.
func (r *ProductRepository) ReserveQuantity(ctx context.Context, id primitive.ObjectID, qty int) (int, error) {
	filter := bson.M{"_id": id, "quantity": bson.M{"$gte": qty}}
	update := bson.M{
		"$inc": bson.M{"quantity": -qty},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var product models.Product
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// The conditional write missed: either the product is absent or the
		// counter is too low. Probe existence to tell the two apart.
		count, countErr := r.coll.CountDocuments(ctx, bson.M{"_id": id})
		if countErr != nil {
			return 0, fmt.Errorf("probe product %s: %w", id.Hex(), countErr)
		}
		if count == 0 {
			return 0, fmt.Errorf("product %s: %w", id.Hex(), models.ErrNotFound)
		}
		return 0, fmt.Errorf("product %s: %w", id.Hex(), models.ErrInsufficientStock)
	}
	if err != nil {
		return 0, fmt.Errorf("reserve stock: %w", err)
	}

	return product.Quantity, nil
}

// ReleaseQuantity unconditionally increments the stock counter. Increments
// commute and cannot violate the non-negativity invariant, so no precondition
// is required. Returns the quantity after the increment.
func (r *ProductRepository) ReleaseQuantity(ctx context.Context, id primitive.ObjectID, qty int) (int, error) {
	update := bson.M{
		"$inc": bson.M{"quantity": qty},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var product models.Product
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("product %s: %w", id.Hex(), models.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("release stock: %w", err)
	}

	return product.Quantity, nil
}
