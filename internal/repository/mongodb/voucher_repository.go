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

// VoucherRepository persists stock vouchers.
type VoucherRepository struct {
	coll *mongo.Collection
}

// NewVoucherRepository creates a voucher repository bound to the given database.
func NewVoucherRepository(db *mongo.Database) *VoucherRepository {
	return &VoucherRepository{coll: db.Collection(vouchersCollection)}
}

// Insert stores a new voucher and returns its generated id.
func (r *VoucherRepository) Insert(ctx context.Context, voucher *models.StockVoucher) (primitive.ObjectID, error) {
	res, err := r.coll.InsertOne(ctx, voucher)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert voucher: %w", err)
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("insert voucher: unexpected id type %T", res.InsertedID)
	}
	return id, nil
}

// FindByID fetches a voucher or returns models.ErrNotFound.
func (r *VoucherRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.StockVoucher, error) {
	var voucher models.StockVoucher
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&voucher)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("voucher %s: %w", id.Hex(), models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find voucher: %w", err)
	}
	return &voucher, nil
}

// List returns vouchers matching the filter, newest first.
func (r *VoucherRepository) List(ctx context.Context, filter models.VoucherFilter) ([]models.StockVoucher, error) {
	query := bson.M{}
	if filter.Type != "" {
		query["type"] = filter.Type
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Order != nil {
		query["relatedOrder"] = *filter.Order
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	defer cursor.Close(ctx)

	var vouchers []models.StockVoucher
	if err := cursor.All(ctx, &vouchers); err != nil {
		return nil, fmt.Errorf("decode vouchers: %w", err)
	}
	return vouchers, nil
}

// ClaimApproval seals a pending voucher as approved. The transition is a single
// conditional write; it reports false when the voucher was no longer pending.
func (r *VoucherRepository) ClaimApproval(ctx context.Context, id, approvedBy primitive.ObjectID, at time.Time) (bool, error) {
	return r.claimStatus(ctx, id, models.VoucherStatusApproved, bson.M{
		"approvedBy": approvedBy,
		"approvedAt": at,
	})
}

// ClaimRejection seals a pending voucher as rejected.
func (r *VoucherRepository) ClaimRejection(ctx context.Context, id, rejectedBy primitive.ObjectID, at time.Time, reason string) (bool, error) {
	return r.claimStatus(ctx, id, models.VoucherStatusRejected, bson.M{
		"rejectedBy":      rejectedBy,
		"rejectedAt":      at,
		"rejectionReason": reason,
	})
}

// ClaimCancellation seals a pending voucher as cancelled.
func (r *VoucherRepository) ClaimCancellation(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return r.claimStatus(ctx, id, models.VoucherStatusCancelled, nil)
}

func (r *VoucherRepository) claimStatus(ctx context.Context, id primitive.ObjectID, to models.VoucherStatus, extra bson.M) (bool, error) {
	set := bson.M{"status": to, "updatedAt": time.Now()}
	for k, v := range extra {
		set[k] = v
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.VoucherStatusPending},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, fmt.Errorf("claim voucher status: %w", err)
	}
	return res.ModifiedCount == 1, nil
}
