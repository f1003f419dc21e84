package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nftbay/marketplace-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetListing(ctx context.Context, collection, assetID string) (model.Listing, error) {
	var l model.Listing
	var price string

	err := s.pool.QueryRow(ctx,
		`SELECT collection, asset_id, price::TEXT, seller, created_at, updated_at
		 FROM listings WHERE collection = $1 AND asset_id = $2`,
		collection, assetID).
		Scan(&l.Collection, &l.AssetID, &price, &l.Seller, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Listing{}, nil
	}
	if err != nil {
		return model.Listing{}, fmt.Errorf("get listing %s/%s: %w", collection, assetID, err)
	}

	l.Price, _ = decimal.NewFromString(price)
	return l, nil
}

func (s *PostgresStore) PutListing(ctx context.Context, l model.Listing) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO listings (collection, asset_id, price, seller, created_at, updated_at)
		 VALUES ($1, $2, $3::NUMERIC, $4, $5, $6)
		 ON CONFLICT (collection, asset_id) DO UPDATE
		 SET price = EXCLUDED.price, seller = EXCLUDED.seller, updated_at = EXCLUDED.updated_at`,
		l.Collection, l.AssetID, l.Price.String(), l.Seller, l.CreatedAt, l.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) DeleteListing(ctx context.Context, collection, assetID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM listings WHERE collection = $1 AND asset_id = $2`,
		collection, assetID,
	)
	return err
}

func (s *PostgresStore) ActiveListings(ctx context.Context) ([]model.Listing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT collection, asset_id, price::TEXT, seller, created_at, updated_at
		 FROM listings ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		var l model.Listing
		var price string
		if err := rows.Scan(&l.Collection, &l.AssetID, &price, &l.Seller, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		l.Price, _ = decimal.NewFromString(price)
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (s *PostgresStore) CountListingsBySeller(ctx context.Context, seller string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM listings WHERE seller = $1`, seller).Scan(&n)
	return n, err
}

func (s *PostgresStore) CountListingsByCollection(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM listings WHERE collection = $1`, collection).Scan(&n)
	return n, err
}

func (s *PostgresStore) GetProceeds(ctx context.Context, seller string) (decimal.Decimal, error) {
	var balance string
	err := s.pool.QueryRow(ctx,
		`SELECT balance::TEXT FROM proceeds WHERE seller = $1`, seller).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("get proceeds %s: %w", seller, err)
	}

	b, _ := decimal.NewFromString(balance)
	return b, nil
}

func (s *PostgresStore) AddProceeds(ctx context.Context, seller string, amount decimal.Decimal) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO proceeds (seller, balance) VALUES ($1, $2::NUMERIC)
		 ON CONFLICT (seller) DO UPDATE SET balance = proceeds.balance + EXCLUDED.balance`,
		seller, amount.String(),
	)
	return err
}

func (s *PostgresStore) SetProceeds(ctx context.Context, seller string, amount decimal.Decimal) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO proceeds (seller, balance) VALUES ($1, $2::NUMERIC)
		 ON CONFLICT (seller) DO UPDATE SET balance = EXCLUDED.balance`,
		seller, amount.String(),
	)
	return err
}

func (s *PostgresStore) InsertSale(ctx context.Context, sale model.Sale) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sales (id, collection, asset_id, seller, buyer, price, payment, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7::NUMERIC, $8)`,
		sale.ID, sale.Collection, sale.AssetID, sale.Seller, sale.Buyer,
		sale.Price.String(), sale.Payment.String(), sale.Timestamp,
	)
	return err
}

func (s *PostgresStore) SalesByCollection(ctx context.Context, collection string) ([]model.Sale, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, collection, asset_id, seller, buyer, price::TEXT, payment::TEXT, timestamp
		 FROM sales WHERE collection = $1 ORDER BY timestamp`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSales(rows)
}

func (s *PostgresStore) SalesBySeller(ctx context.Context, seller string) ([]model.Sale, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, collection, asset_id, seller, buyer, price::TEXT, payment::TEXT, timestamp
		 FROM sales WHERE seller = $1 ORDER BY timestamp`, seller)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSales(rows)
}

func scanSales(rows pgx.Rows) ([]model.Sale, error) {
	var sales []model.Sale
	for rows.Next() {
		var sale model.Sale
		var price, payment string

		if err := rows.Scan(&sale.ID, &sale.Collection, &sale.AssetID, &sale.Seller, &sale.Buyer,
			&price, &payment, &sale.Timestamp); err != nil {
			return nil, err
		}

		sale.Price, _ = decimal.NewFromString(price)
		sale.Payment, _ = decimal.NewFromString(payment)

		sales = append(sales, sale)
	}
	return sales, rows.Err()
}
