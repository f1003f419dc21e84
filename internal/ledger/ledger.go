// Package ledger implements the marketplace settlement core: the listing
// directory, the pull-based proceeds ledger, and the five operations that
// are the only code path allowed to mutate them. Every mutating operation
// runs to completion under a single engine-wide guard; a call arriving
// while another is in flight is rejected, never queued. Ownership and
// transfer approval are verified live against the asset authority on every
// mutating call — the marketplace never takes custody of an asset.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nftbay/marketplace-engine/internal/model"
	"github.com/nftbay/marketplace-engine/internal/payment"
	"github.com/nftbay/marketplace-engine/internal/registry"
	"github.com/nftbay/marketplace-engine/internal/store"
)

// Ledger owns the listing directory and the proceeds ledger. All mutations
// go through its five operations; queries are lock-free snapshots.
type Ledger struct {
	store     store.Store
	authority registry.Authority
	gateway   payment.Gateway
	limits    Limiter
	operator  string // the marketplace's own identity, matched against asset approvals
	sink      Sink

	// mu is the global reentrancy guard. TryLock-based: an operation that
	// finds it held fails fast with ErrReentrantCall instead of blocking.
	// Control leaves the engine mid-operation (authority transfer, value
	// payout), so a blocking lock could deadlock on a hostile callback.
	mu sync.Mutex
}

// Limiter validates a prospective listing against active-listing caps.
// Satisfied by *policy.ListingLimiter.
type Limiter interface {
	Check(sellerActive, collectionActive int) error
}

// New creates a ledger. operator is the marketplace's own identity; the
// asset authority must report it as the approved transfer agent before an
// asset can be listed. limits and sink may be nil.
func New(st store.Store, authority registry.Authority, gateway payment.Gateway, operator string, limits Limiter, sink Sink) *Ledger {
	return &Ledger{
		store:     st,
		authority: authority,
		gateway:   gateway,
		limits:    limits,
		operator:  operator,
		sink:      sink,
	}
}

func (l *Ledger) enter() error {
	if !l.mu.TryLock() {
		return ErrReentrantCall
	}
	return nil
}

func (l *Ledger) emit(ev Event) {
	if l.sink != nil {
		l.sink(ev)
	}
}

// List publishes a fixed-price listing for an asset the caller owns.
// Precondition order: not already listed, caller owns the asset (live
// query), price above zero, marketplace approved as transfer agent.
func (l *Ledger) List(ctx context.Context, collection, assetID string, price decimal.Decimal, caller string) (model.Listing, error) {
	if err := l.enter(); err != nil {
		return model.Listing{}, err
	}
	defer l.mu.Unlock()

	existing, err := l.store.GetListing(ctx, collection, assetID)
	if err != nil {
		return model.Listing{}, err
	}
	if existing.Active() {
		return model.Listing{}, fmt.Errorf("%w: %s/%s", ErrAlreadyListed, collection, assetID)
	}

	owner, err := l.authority.OwnerOf(ctx, collection, assetID)
	if err != nil {
		return model.Listing{}, fmt.Errorf("verify owner of %s/%s: %w", collection, assetID, err)
	}
	if owner != caller {
		return model.Listing{}, fmt.Errorf("%w: %s", ErrNotOwner, caller)
	}

	if !price.IsPositive() {
		return model.Listing{}, fmt.Errorf("%w: got %s", ErrPriceMustBeAboveZero, price)
	}

	agent, err := l.authority.ApprovedAgent(ctx, collection, assetID)
	if err != nil {
		return model.Listing{}, fmt.Errorf("verify approval of %s/%s: %w", collection, assetID, err)
	}
	if agent != l.operator {
		return model.Listing{}, fmt.Errorf("%w: %s/%s", ErrNotApprovedForMarketplace, collection, assetID)
	}

	if l.limits != nil {
		sellerActive, err := l.store.CountListingsBySeller(ctx, caller)
		if err != nil {
			return model.Listing{}, err
		}
		collectionActive, err := l.store.CountListingsByCollection(ctx, collection)
		if err != nil {
			return model.Listing{}, err
		}
		if err := l.limits.Check(sellerActive, collectionActive); err != nil {
			return model.Listing{}, err
		}
	}

	now := time.Now().UTC()
	listing := model.Listing{
		Collection: collection,
		AssetID:    assetID,
		Price:      price,
		Seller:     caller,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := l.store.PutListing(ctx, listing); err != nil {
		return model.Listing{}, err
	}

	l.emit(Event{
		Type:       EventItemListed,
		Collection: collection,
		AssetID:    assetID,
		Seller:     caller,
		Price:      price,
	})
	return listing, nil
}

// Cancel removes an active listing. Ownership is re-checked live, not read
// from the stored listing, so a listing whose asset changed hands
// out-of-band can only be canceled by the new owner.
func (l *Ledger) Cancel(ctx context.Context, collection, assetID, caller string) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.mu.Unlock()

	listing, err := l.store.GetListing(ctx, collection, assetID)
	if err != nil {
		return err
	}
	if !listing.Active() {
		return fmt.Errorf("%w: %s/%s", ErrNotListed, collection, assetID)
	}

	owner, err := l.authority.OwnerOf(ctx, collection, assetID)
	if err != nil {
		return fmt.Errorf("verify owner of %s/%s: %w", collection, assetID, err)
	}
	if owner != caller {
		return fmt.Errorf("%w: %s", ErrNotOwner, caller)
	}

	if err := l.store.DeleteListing(ctx, collection, assetID); err != nil {
		return err
	}

	l.emit(Event{
		Type:       EventItemCanceled,
		Collection: collection,
		AssetID:    assetID,
		Owner:      caller,
	})
	return nil
}

// Update replaces the price of an active listing. The seller is immutable;
// only cancel+relist can change it. A zero new price is rejected: it would
// degenerate the listing into the "not listed" sentinel.
func (l *Ledger) Update(ctx context.Context, collection, assetID string, newPrice decimal.Decimal, caller string) (model.Listing, error) {
	if err := l.enter(); err != nil {
		return model.Listing{}, err
	}
	defer l.mu.Unlock()

	listing, err := l.store.GetListing(ctx, collection, assetID)
	if err != nil {
		return model.Listing{}, err
	}
	if !listing.Active() {
		return model.Listing{}, fmt.Errorf("%w: %s/%s", ErrNotListed, collection, assetID)
	}

	owner, err := l.authority.OwnerOf(ctx, collection, assetID)
	if err != nil {
		return model.Listing{}, fmt.Errorf("verify owner of %s/%s: %w", collection, assetID, err)
	}
	if owner != caller {
		return model.Listing{}, fmt.Errorf("%w: %s", ErrNotOwner, caller)
	}

	if !newPrice.IsPositive() {
		return model.Listing{}, fmt.Errorf("%w: got %s", ErrPriceMustBeAboveZero, newPrice)
	}

	listing.Price = newPrice
	listing.UpdatedAt = time.Now().UTC()
	if err := l.store.PutListing(ctx, listing); err != nil {
		return model.Listing{}, err
	}

	// Re-emitting ItemListed doubles as the update notification.
	l.emit(Event{
		Type:       EventItemListed,
		Collection: collection,
		AssetID:    assetID,
		Seller:     listing.Seller,
		Price:      newPrice,
	})
	return listing, nil
}

// Buy settles a purchase: the full payment (any excess above the listing
// price included, never refunded) is credited to the seller's proceeds and
// the listing removed before the asset authority is asked to transfer the
// asset. A reentrant call during the transfer therefore observes "already
// sold" state. If the transfer fails the credit and the listing removal
// are rolled back and ErrTransferFailed is returned.
func (l *Ledger) Buy(ctx context.Context, collection, assetID string, paid decimal.Decimal, buyer string) (model.Sale, error) {
	if err := l.enter(); err != nil {
		return model.Sale{}, err
	}
	defer l.mu.Unlock()

	listing, err := l.store.GetListing(ctx, collection, assetID)
	if err != nil {
		return model.Sale{}, err
	}
	if !listing.Active() {
		return model.Sale{}, fmt.Errorf("%w: %s/%s", ErrNotListed, collection, assetID)
	}

	if paid.LessThan(listing.Price) {
		return model.Sale{}, &PriceNotMetError{
			Collection: collection,
			AssetID:    assetID,
			Required:   listing.Price,
		}
	}

	// Credit and delist before yielding control to the authority.
	if err := l.store.AddProceeds(ctx, listing.Seller, paid); err != nil {
		return model.Sale{}, err
	}
	if err := l.store.DeleteListing(ctx, collection, assetID); err != nil {
		l.store.AddProceeds(ctx, listing.Seller, paid.Neg())
		return model.Sale{}, err
	}

	if err := l.authority.Transfer(ctx, collection, assetID, listing.Seller, buyer); err != nil {
		// Roll the sale back: restore the listing, reverse the credit.
		l.store.PutListing(ctx, listing)
		l.store.AddProceeds(ctx, listing.Seller, paid.Neg())
		return model.Sale{}, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	sale := model.Sale{
		ID:         uuid.New().String(),
		Collection: collection,
		AssetID:    assetID,
		Seller:     listing.Seller,
		Buyer:      buyer,
		Price:      listing.Price,
		Payment:    paid,
		Timestamp:  time.Now().UTC(),
	}
	if err := l.store.InsertSale(ctx, sale); err != nil {
		// The sale itself is settled; a failed history append is surfaced
		// but cannot be rolled back.
		return model.Sale{}, fmt.Errorf("record sale %s/%s: %w", collection, assetID, err)
	}

	// ItemBought carries the listing price, not the payment amount.
	l.emit(Event{
		Type:       EventItemBought,
		Collection: collection,
		AssetID:    assetID,
		Buyer:      buyer,
		Price:      listing.Price,
	})
	return sale, nil
}

// Withdraw drains the caller's proceeds balance to zero, then pays the
// amount out through the gateway. The balance reset happens before the
// payout so a reentrant withdrawal finds nothing left to drain; a payout
// failure restores the balance and fails with ErrTransferFailed.
func (l *Ledger) Withdraw(ctx context.Context, caller string) (decimal.Decimal, error) {
	if err := l.enter(); err != nil {
		return decimal.Zero, err
	}
	defer l.mu.Unlock()

	balance, err := l.store.GetProceeds(ctx, caller)
	if err != nil {
		return decimal.Zero, err
	}
	if !balance.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNoProceeds, caller)
	}

	if err := l.store.SetProceeds(ctx, caller, decimal.Zero); err != nil {
		return decimal.Zero, err
	}

	if err := l.gateway.Send(ctx, caller, balance); err != nil {
		l.store.SetProceeds(ctx, caller, balance)
		return decimal.Zero, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	return balance, nil
}

// GetListing returns the active listing for the asset, or the zero
// (sentinel) listing when none exists.
func (l *Ledger) GetListing(ctx context.Context, collection, assetID string) (model.Listing, error) {
	return l.store.GetListing(ctx, collection, assetID)
}

// GetProceeds returns the seller's withdrawable balance.
func (l *Ledger) GetProceeds(ctx context.Context, seller string) (decimal.Decimal, error) {
	return l.store.GetProceeds(ctx, seller)
}

// ActiveListings returns all active listings.
func (l *Ledger) ActiveListings(ctx context.Context) ([]model.Listing, error) {
	return l.store.ActiveListings(ctx)
}

// SalesByCollection returns the sale history of a collection, oldest first.
func (l *Ledger) SalesByCollection(ctx context.Context, collection string) ([]model.Sale, error) {
	return l.store.SalesByCollection(ctx, collection)
}

// SalesBySeller returns a seller's sale history, oldest first.
func (l *Ledger) SalesBySeller(ctx context.Context, seller string) ([]model.Sale, error) {
	return l.store.SalesBySeller(ctx, seller)
}
