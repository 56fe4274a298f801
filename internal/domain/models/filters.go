package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VoucherFilter narrows voucher listings. Zero-value fields are ignored.
type VoucherFilter struct {
	Type   VoucherType
	Status VoucherStatus
	Order  *primitive.ObjectID
}

// HistoryFilter narrows stock history listings. Zero-value fields are ignored.
type HistoryFilter struct {
	Product       *primitive.ObjectID
	Type          VoucherType
	VoucherNumber string
}

// TransactionFilter narrows ledger listings. Zero-value fields are ignored.
type TransactionFilter struct {
	Type     TransactionType
	Category string
	Start    *time.Time
	End      *time.Time
}
