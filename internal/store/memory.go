package store

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/nftbay/marketplace-engine/internal/model"
)

type listingKey struct {
	collection string
	assetID    string
}

// MemoryStore implements Store with in-memory maps. Used for testing and
// development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu       sync.RWMutex
	listings map[listingKey]model.Listing
	proceeds map[string]decimal.Decimal
	sales    []model.Sale
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		listings: make(map[listingKey]model.Listing),
		proceeds: make(map[string]decimal.Decimal),
	}
}

func (s *MemoryStore) GetListing(_ context.Context, collection, assetID string) (model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listings[listingKey{collection, assetID}], nil
}

func (s *MemoryStore) PutListing(_ context.Context, l model.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listings[listingKey{l.Collection, l.AssetID}] = l
	return nil
}

func (s *MemoryStore) DeleteListing(_ context.Context, collection, assetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.listings, listingKey{collection, assetID})
	return nil
}

func (s *MemoryStore) ActiveListings(_ context.Context) ([]model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listings := make([]model.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		listings = append(listings, l)
	}
	return listings, nil
}

func (s *MemoryStore) CountListingsBySeller(_ context.Context, seller string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, l := range s.listings {
		if l.Seller == seller {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CountListingsByCollection(_ context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for k := range s.listings {
		if k.collection == collection {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) GetProceeds(_ context.Context, seller string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.proceeds[seller], nil
}

func (s *MemoryStore) AddProceeds(_ context.Context, seller string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.proceeds[seller] = s.proceeds[seller].Add(amount)
	return nil
}

func (s *MemoryStore) SetProceeds(_ context.Context, seller string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.proceeds[seller] = amount
	return nil
}

func (s *MemoryStore) InsertSale(_ context.Context, sale model.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sales = append(s.sales, sale)
	return nil
}

func (s *MemoryStore) SalesByCollection(_ context.Context, collection string) ([]model.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Sale
	for _, sale := range s.sales {
		if sale.Collection == collection {
			result = append(result, sale)
		}
	}
	return result, nil
}

func (s *MemoryStore) SalesBySeller(_ context.Context, seller string) ([]model.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Sale
	for _, sale := range s.sales {
		if sale.Seller == seller {
			result = append(result, sale)
		}
	}
	return result, nil
}
