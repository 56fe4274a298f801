package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionType tags a ledger entry as money in or money out.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Ledger categories used by the recorder.
const (
	TransactionCategorySales       = "sales"
	TransactionCategoryRefund      = "refund"
	TransactionCategoryStockImport = "stock_import"
	TransactionCategoryCostOfGoods = "cost_of_goods"
)

// Transaction is an append-only financial ledger entry. Entries are never
// updated or deleted after creation.
type Transaction struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	TransactionNumber string              `bson:"transactionNumber" json:"transactionNumber"`
	Type              TransactionType     `bson:"type" json:"type"`
	Category          string              `bson:"category" json:"category"`
	Amount            float64             `bson:"amount" json:"amount"`
	Description       string              `bson:"description" json:"description"`
	PaymentMethod     string              `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	RelatedOrder      *primitive.ObjectID `bson:"relatedOrder,omitempty" json:"relatedOrder,omitempty"`
	RelatedVoucher    *primitive.ObjectID `bson:"relatedVoucher,omitempty" json:"relatedVoucher,omitempty"`
	CreatedBy         primitive.ObjectID  `bson:"createdBy" json:"createdBy"`
	AutoCreated       bool                `bson:"autoCreated" json:"autoCreated"`
	TransactionDate   time.Time           `bson:"transactionDate" json:"transactionDate"`
	CreatedAt         time.Time           `bson:"createdAt" json:"createdAt"`
}

// TransactionSummary aggregates the ledger over a period.
type TransactionSummary struct {
	TotalIncome  float64 `bson:"totalIncome" json:"totalIncome"`
	TotalExpense float64 `bson:"totalExpense" json:"totalExpense"`
	Net          float64 `bson:"net" json:"net"`
	Count        int     `bson:"count" json:"count"`
}
