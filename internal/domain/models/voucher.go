package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VoucherType distinguishes stock increases from stock decreases.
type VoucherType string

const (
	VoucherTypeImport VoucherType = "import"
	VoucherTypeExport VoucherType = "export"
)

// VoucherStatus is the closed set of voucher states. Every state other than
// pending is terminal.
type VoucherStatus string

const (
	VoucherStatusPending   VoucherStatus = "pending"
	VoucherStatusApproved  VoucherStatus = "approved"
	VoucherStatusRejected  VoucherStatus = "rejected"
	VoucherStatusCancelled VoucherStatus = "cancelled"
)

// VoucherItem is one product line of a stock voucher.
type VoucherItem struct {
	Product     primitive.ObjectID `bson:"product" json:"product"`
	ProductName string             `bson:"productName" json:"productName"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	Unit        string             `bson:"unit" json:"unit"`
	CostPrice   float64            `bson:"costPrice" json:"costPrice"`
	Note        string             `bson:"note,omitempty" json:"note,omitempty"`
}

// StockVoucher authorizes an import or export of stock. Approval is the only
// transition that mutates the inventory ledger.
type StockVoucher struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	VoucherNumber   string              `bson:"voucherNumber" json:"voucherNumber"`
	Type            VoucherType         `bson:"type" json:"type"`
	Reason          string              `bson:"reason" json:"reason"`
	Items           []VoucherItem       `bson:"items" json:"items"`
	Notes           string              `bson:"notes,omitempty" json:"notes,omitempty"`
	Status          VoucherStatus       `bson:"status" json:"status"`
	RelatedOrder    *primitive.ObjectID `bson:"relatedOrder,omitempty" json:"relatedOrder,omitempty"`
	CreatedBy       primitive.ObjectID  `bson:"createdBy" json:"createdBy"`
	ApprovedBy      *primitive.ObjectID `bson:"approvedBy,omitempty" json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time          `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
	RejectedBy      *primitive.ObjectID `bson:"rejectedBy,omitempty" json:"rejectedBy,omitempty"`
	RejectedAt      *time.Time          `bson:"rejectedAt,omitempty" json:"rejectedAt,omitempty"`
	RejectionReason string              `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// TotalValue sums quantity times cost price across the voucher's items.
func (v *StockVoucher) TotalValue() float64 {
	var total float64
	for _, item := range v.Items {
		total += float64(item.Quantity) * item.CostPrice
	}
	return total
}

// StockHistoryEntry is the immutable audit record written once per line item of
// an approved voucher.
type StockHistoryEntry struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Product        primitive.ObjectID  `bson:"product" json:"product"`
	ProductName    string              `bson:"productName" json:"productName"`
	Type           VoucherType         `bson:"type" json:"type"`
	QuantityBefore int                 `bson:"quantityBefore" json:"quantityBefore"`
	QuantityChange int                 `bson:"quantityChange" json:"quantityChange"`
	QuantityAfter  int                 `bson:"quantityAfter" json:"quantityAfter"`
	Reason         string              `bson:"reason" json:"reason"`
	RelatedVoucher primitive.ObjectID  `bson:"relatedVoucher" json:"relatedVoucher"`
	VoucherNumber  string              `bson:"voucherNumber" json:"voucherNumber"`
	RelatedOrder   *primitive.ObjectID `bson:"relatedOrder,omitempty" json:"relatedOrder,omitempty"`
	CreatedBy      primitive.ObjectID  `bson:"createdBy" json:"createdBy"`
	Notes          string              `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt      time.Time           `bson:"createdAt" json:"createdAt"`
}
