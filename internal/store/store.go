// Package store defines the persistence interface for the marketplace
// engine. Implementations include PostgreSQL (source of truth), Redis
// (read-through cache), and in-memory (for testing and development).
package store

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/nftbay/marketplace-engine/internal/model"
)

// Store is the persistence interface backing the listing directory, the
// proceeds ledger, and the immutable sale history. Callers serialize
// mutating sequences; implementations only need per-call safety.
type Store interface {
	// --- Listing directory ---

	// GetListing returns the active listing for (collection, assetID), or
	// the zero listing when none exists. Absence is not an error.
	GetListing(ctx context.Context, collection, assetID string) (model.Listing, error)

	// PutListing inserts or replaces a listing.
	PutListing(ctx context.Context, l model.Listing) error

	// DeleteListing removes a listing. Deleting an absent listing is a no-op.
	DeleteListing(ctx context.Context, collection, assetID string) error

	// ActiveListings returns all active listings.
	ActiveListings(ctx context.Context) ([]model.Listing, error)

	// CountListingsBySeller returns the number of active listings held by
	// a seller across all collections.
	CountListingsBySeller(ctx context.Context, seller string) (int, error)

	// CountListingsByCollection returns the number of active listings
	// within a collection.
	CountListingsByCollection(ctx context.Context, collection string) (int, error)

	// --- Proceeds ledger ---

	// GetProceeds returns the seller's withdrawable balance (zero when the
	// seller has never been credited).
	GetProceeds(ctx context.Context, seller string) (decimal.Decimal, error)

	// AddProceeds adds amount (which may be negative during rollback) to
	// the seller's balance.
	AddProceeds(ctx context.Context, seller string, amount decimal.Decimal) error

	// SetProceeds replaces the seller's balance.
	SetProceeds(ctx context.Context, seller string, amount decimal.Decimal) error

	// --- Immutable sale history ---

	// InsertSale appends an immutable sale record.
	InsertSale(ctx context.Context, s model.Sale) error

	// SalesByCollection returns all sales within a collection, oldest first.
	SalesByCollection(ctx context.Context, collection string) ([]model.Sale, error)

	// SalesBySeller returns all sales by a seller, oldest first.
	SalesBySeller(ctx context.Context, seller string) ([]model.Sale, error)
}
