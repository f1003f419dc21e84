// Package policy implements listing limits that cap how many active
// listings a single seller, or a single collection, can hold at once.
// The caps bound the blast radius of listing spam without touching the
// settlement invariants: a rejected listing leaves all state unchanged.
package policy

import "errors"

var (
	// ErrSellerListingLimit is returned when a listing would push a
	// seller's active listing count beyond the per-seller maximum.
	ErrSellerListingLimit = errors.New("policy: per-seller listing limit exceeded")

	// ErrCollectionListingLimit is returned when a listing would push a
	// collection's active listing count beyond the per-collection maximum.
	ErrCollectionListingLimit = errors.New("policy: per-collection listing limit exceeded")
)

// ListingLimiter enforces active-listing caps. A limit of 0 disables that
// cap.
type ListingLimiter struct {
	// MaxPerSeller is the maximum number of active listings one seller
	// may hold across all collections.
	MaxPerSeller int

	// MaxPerCollection is the maximum number of active listings within
	// one collection, across all sellers.
	MaxPerCollection int
}

// NewListingLimiter creates a limiter with the given caps. Negative caps
// are treated as disabled.
func NewListingLimiter(maxPerSeller, maxPerCollection int) *ListingLimiter {
	if maxPerSeller < 0 {
		maxPerSeller = 0
	}
	if maxPerCollection < 0 {
		maxPerCollection = 0
	}
	return &ListingLimiter{
		MaxPerSeller:     maxPerSeller,
		MaxPerCollection: maxPerCollection,
	}
}

// Check validates whether one more listing respects the caps, given the
// seller's and the collection's current active listing counts. Returns nil
// when the listing is within limits.
func (l *ListingLimiter) Check(sellerActive, collectionActive int) error {
	if l.MaxPerSeller > 0 && sellerActive+1 > l.MaxPerSeller {
		return ErrSellerListingLimit
	}
	if l.MaxPerCollection > 0 && collectionActive+1 > l.MaxPerCollection {
		return ErrCollectionListingLimit
	}
	return nil
}
