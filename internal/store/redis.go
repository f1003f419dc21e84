package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/nftbay/marketplace-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for listings and proceeds balances. Writes go to the primary store
// and invalidate the cache; reads check Redis first then fall back to the
// primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetListing(ctx context.Context, collection, assetID string) (model.Listing, error) {
	data, err := s.rdb.Get(ctx, listingCacheKey(collection, assetID)).Bytes()
	if err == nil {
		var l model.Listing
		if json.Unmarshal(data, &l) == nil {
			return l, nil
		}
	}

	l, err := s.primary.GetListing(ctx, collection, assetID)
	if err != nil {
		return model.Listing{}, err
	}

	s.cacheListing(ctx, l, collection, assetID)
	return l, nil
}

func (s *CachedStore) GetProceeds(ctx context.Context, seller string) (decimal.Decimal, error) {
	val, err := s.rdb.Get(ctx, proceedsCacheKey(seller)).Result()
	if err == nil {
		if b, perr := decimal.NewFromString(val); perr == nil {
			return b, nil
		}
	}

	b, err := s.primary.GetProceeds(ctx, seller)
	if err != nil {
		return decimal.Zero, err
	}

	s.rdb.Set(ctx, proceedsCacheKey(seller), b.String(), s.ttl)
	return b, nil
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) PutListing(ctx context.Context, l model.Listing) error {
	if err := s.primary.PutListing(ctx, l); err != nil {
		return err
	}
	s.cacheListing(ctx, l, l.Collection, l.AssetID)
	return nil
}

func (s *CachedStore) DeleteListing(ctx context.Context, collection, assetID string) error {
	if err := s.primary.DeleteListing(ctx, collection, assetID); err != nil {
		return err
	}
	s.rdb.Del(ctx, listingCacheKey(collection, assetID))
	return nil
}

func (s *CachedStore) AddProceeds(ctx context.Context, seller string, amount decimal.Decimal) error {
	if err := s.primary.AddProceeds(ctx, seller, amount); err != nil {
		return err
	}
	// Invalidate; next read re-populates from the primary.
	s.rdb.Del(ctx, proceedsCacheKey(seller))
	return nil
}

func (s *CachedStore) SetProceeds(ctx context.Context, seller string, amount decimal.Decimal) error {
	if err := s.primary.SetProceeds(ctx, seller, amount); err != nil {
		return err
	}
	s.rdb.Del(ctx, proceedsCacheKey(seller))
	return nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ActiveListings(ctx context.Context) ([]model.Listing, error) {
	return s.primary.ActiveListings(ctx)
}

func (s *CachedStore) CountListingsBySeller(ctx context.Context, seller string) (int, error) {
	return s.primary.CountListingsBySeller(ctx, seller)
}

func (s *CachedStore) CountListingsByCollection(ctx context.Context, collection string) (int, error) {
	return s.primary.CountListingsByCollection(ctx, collection)
}

func (s *CachedStore) InsertSale(ctx context.Context, sale model.Sale) error {
	return s.primary.InsertSale(ctx, sale)
}

func (s *CachedStore) SalesByCollection(ctx context.Context, collection string) ([]model.Sale, error) {
	return s.primary.SalesByCollection(ctx, collection)
}

func (s *CachedStore) SalesBySeller(ctx context.Context, seller string) ([]model.Sale, error) {
	return s.primary.SalesBySeller(ctx, seller)
}

// --- Cache helpers ---

func (s *CachedStore) cacheListing(ctx context.Context, l model.Listing, collection, assetID string) {
	if data, err := json.Marshal(l); err == nil {
		s.rdb.Set(ctx, listingCacheKey(collection, assetID), data, s.ttl)
	}
}

func listingCacheKey(collection, assetID string) string {
	return fmt.Sprintf("listing:%s:%s", collection, assetID)
}

func proceedsCacheKey(seller string) string {
	return fmt.Sprintf("proceeds:%s", seller)
}
