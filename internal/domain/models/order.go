package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the closed set of order states.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusProcessing      OrderStatus = "processing"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusCompleted       OrderStatus = "completed"
	OrderStatusRefundRequested OrderStatus = "refund_requested"
	OrderStatusRefunded        OrderStatus = "refunded"
)

// Terminal reports whether no further status transition is permitted.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// OrderItem is a line item with the price snapshotted at order time.
type OrderItem struct {
	Product     primitive.ObjectID `bson:"product" json:"product"`
	ProductName string             `bson:"productName" json:"productName"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	Price       float64            `bson:"price" json:"price"`
}

// PaymentResult holds the gateway metadata attached when an order is paid.
type PaymentResult struct {
	ID           string `bson:"id" json:"id"`
	Status       string `bson:"status" json:"status"`
	UpdateTime   string `bson:"updateTime" json:"updateTime"`
	EmailAddress string `bson:"emailAddress" json:"emailAddress"`
}

// ShippingAddress is the address snapshot captured at order time.
type ShippingAddress struct {
	FullName      string `bson:"fullName" json:"fullName"`
	Phone         string `bson:"phone" json:"phone"`
	City          string `bson:"city" json:"city"`
	StreetAddress string `bson:"streetAddress" json:"streetAddress"`
}

// RefundInfo records why and when an order was refunded.
type RefundInfo struct {
	Reason        string              `bson:"reason" json:"reason"`
	RefundDate    time.Time           `bson:"refundDate" json:"refundDate"`
	TransactionID *primitive.ObjectID `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	Notes         string              `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Order is created with every line item already reserved against the ledger.
// Stock is deducted exactly once, at creation, and restored exactly once, on
// cancellation; completed shipments are audited through an export voucher.
type Order struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	User            primitive.ObjectID  `bson:"user" json:"user"`
	Items           []OrderItem         `bson:"orderItems" json:"orderItems"`
	ShippingAddress ShippingAddress     `bson:"shippingAddress" json:"shippingAddress"`
	PaymentMethod   string              `bson:"paymentMethod" json:"paymentMethod"`
	PaymentResult   *PaymentResult      `bson:"paymentResult,omitempty" json:"paymentResult,omitempty"`
	TotalPrice      float64             `bson:"totalPrice" json:"totalPrice"`
	IsPaid          bool                `bson:"isPaid" json:"isPaid"`
	PaidAt          *time.Time          `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	Status          OrderStatus         `bson:"status" json:"status"`
	RefundInfo      *RefundInfo         `bson:"refundInfo,omitempty" json:"refundInfo,omitempty"`
	ExportVoucherID *primitive.ObjectID `bson:"exportVoucherId,omitempty" json:"exportVoucherId,omitempty"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}
