package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is the catalog entity whose quantity counter the inventory ledger owns.
// The counter is only ever mutated through ReserveQuantity/ReleaseQuantity; no
// code path computes a new quantity in memory and writes it back.
type Product struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Price     float64            `bson:"price" json:"price"`
	CostPrice float64            `bson:"costPrice" json:"costPrice"`
	Unit      string             `bson:"unit" json:"unit"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// InStock reports whether any units remain.
func (p *Product) InStock() bool {
	return p.Quantity > 0
}
