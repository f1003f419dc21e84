// Package model defines the core domain types shared across the marketplace
// engine. All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Listing is an active offer to sell one asset at a fixed price.
// A listing exists iff its price is strictly positive; the zero value of
// this struct is the "not listed" sentinel. The seller is fixed at creation
// time and never changes for the life of the listing.
type Listing struct {
	Collection string          `json:"collection" db:"collection"`
	AssetID    string          `json:"asset_id" db:"asset_id"`
	Price      decimal.Decimal `json:"price" db:"price"`
	Seller     string          `json:"seller" db:"seller"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// Active reports whether the listing represents a live offer.
func (l Listing) Active() bool {
	return l.Price.IsPositive()
}

// Sale is an immutable record of a completed purchase.
// Once created, these are never modified or deleted.
type Sale struct {
	ID         string          `json:"id" db:"id"`
	Collection string          `json:"collection" db:"collection"`
	AssetID    string          `json:"asset_id" db:"asset_id"`
	Seller     string          `json:"seller" db:"seller"`
	Buyer      string          `json:"buyer" db:"buyer"`
	Price      decimal.Decimal `json:"price" db:"price"`     // listing price at time of sale
	Payment    decimal.Decimal `json:"payment" db:"payment"` // amount actually paid (>= price)
	Timestamp  time.Time       `json:"timestamp" db:"timestamp"`
}

// Proceeds is a seller's withdrawable balance snapshot.
type Proceeds struct {
	Seller  string          `json:"seller"`
	Balance decimal.Decimal `json:"balance"`
}
