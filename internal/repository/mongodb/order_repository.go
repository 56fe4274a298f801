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

// OrderRepository persists orders. Status changes go through conditional claims
// so that concurrent duplicates lose the race instead of firing side effects twice.
type OrderRepository struct {
	coll *mongo.Collection
}

// NewOrderRepository creates an order repository bound to the given database.
func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{coll: db.Collection(ordersCollection)}
}

// Insert stores a new order and returns its generated id.
func (r *OrderRepository) Insert(ctx context.Context, order *models.Order) (primitive.ObjectID, error) {
	res, err := r.coll.InsertOne(ctx, order)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert order: %w", err)
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("insert order: unexpected id type %T", res.InsertedID)
	}
	return id, nil
}

// FindByID fetches an order or returns models.ErrNotFound.
func (r *OrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("order %s: %w", id.Hex(), models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &order, nil
}

// List returns orders, newest first, optionally scoped to one user.
func (r *OrderRepository) List(ctx context.Context, user *primitive.ObjectID) ([]models.Order, error) {
	filter := bson.M{}
	if user != nil {
		filter["user"] = *user
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

// ClaimStatus moves an order from one status to another as a single conditional
// write. It reports false when the order was no longer in the expected status,
// which lets callers make transitions exactly-once under concurrency.
func (r *OrderRepository) ClaimStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now()}},
	)
	if err != nil {
		return false, fmt.Errorf("claim order status: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// ClaimFirstPayment marks the order paid, but only when it was not paid before.
// Reports false when another call already claimed the payment.
func (r *OrderRepository) ClaimFirstPayment(ctx context.Context, id primitive.ObjectID, result models.PaymentResult, paidAt time.Time) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "isPaid": false},
		bson.M{"$set": bson.M{
			"isPaid":        true,
			"paidAt":        paidAt,
			"paymentResult": result,
			"updatedAt":     time.Now(),
		}},
	)
	if err != nil {
		return false, fmt.Errorf("claim first payment: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// UpdatePaymentResult refreshes the gateway metadata of an already-paid order.
func (r *OrderRepository) UpdatePaymentResult(ctx context.Context, id primitive.ObjectID, result models.PaymentResult) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"paymentResult": result, "updatedAt": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("update payment result: %w", err)
	}
	return nil
}

// SetRefundInfo attaches refund details to an order.
func (r *OrderRepository) SetRefundInfo(ctx context.Context, id primitive.ObjectID, info models.RefundInfo) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"refundInfo": info, "updatedAt": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("set refund info: %w", err)
	}
	return nil
}

// ClaimExportVoucher links the export voucher created on completion, but only
// when no voucher was linked before. Reports false when the link already exists,
// which guards against a second voucher for the same shipment.
func (r *OrderRepository) ClaimExportVoucher(ctx context.Context, id, voucherID primitive.ObjectID) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "exportVoucherId": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"exportVoucherId": voucherID, "updatedAt": time.Now()}},
	)
	if err != nil {
		return false, fmt.Errorf("claim export voucher: %w", err)
	}
	return res.ModifiedCount == 1, nil
}
