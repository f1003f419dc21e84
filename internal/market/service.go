// Package market provides the HTTP surface of the marketplace engine:
// chi handlers for listing, purchasing, and proceeds withdrawal, plus the
// WebSocket event feed.
//
// All monetary values use shopspring/decimal — never float64 for money.
package market

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/nftbay/marketplace-engine/internal/asset"
	"github.com/nftbay/marketplace-engine/internal/ledger"
	"github.com/nftbay/marketplace-engine/internal/metrics"
	"github.com/nftbay/marketplace-engine/internal/model"
	"github.com/nftbay/marketplace-engine/internal/policy"
)

// Service translates HTTP requests into ledger operations. The ledger
// itself serializes mutation; the service stays stateless.
type Service struct {
	ledger *ledger.Ledger
}

// NewService creates a marketplace HTTP service.
func NewService(l *ledger.Ledger) *Service {
	return &Service{ledger: l}
}

// --- Request/Response types ---

// ListRequest is the JSON body for POST /api/v1/listings.
type ListRequest struct {
	Collection string          `json:"collection"`
	AssetID    string          `json:"asset_id"`
	Price      decimal.Decimal `json:"price"`
	Seller     string          `json:"seller"`
}

// UpdateRequest is the JSON body for PUT /api/v1/listings/{collection}/{assetID}.
type UpdateRequest struct {
	Price  decimal.Decimal `json:"price"`
	Caller string          `json:"caller"`
}

// PurchaseRequest is the JSON body for POST /api/v1/purchases.
type PurchaseRequest struct {
	Collection string          `json:"collection"`
	AssetID    string          `json:"asset_id"`
	Payment    decimal.Decimal `json:"payment"`
	Buyer      string          `json:"buyer"`
}

// WithdrawResponse is returned from POST /api/v1/proceeds/{seller}/withdraw.
type WithdrawResponse struct {
	Seller string          `json:"seller"`
	Amount decimal.Decimal `json:"amount"`
}

// --- HTTP Handlers ---

// CreateListing handles POST /api/v1/listings
func (s *Service) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req ListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	key, err := asset.ParseKey(req.Collection, req.AssetID)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	seller, err := asset.ParseIdentity(req.Seller)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	listing, err := s.ledger.List(r.Context(), key.Collection, key.AssetID, req.Price, seller)
	if err != nil {
		metrics.OperationRejections.WithLabelValues("list", reasonForError(err)).Inc()
		writeError(w, err.Error(), statusForError(err))
		return
	}

	metrics.ListingsCreated.WithLabelValues(key.Collection).Inc()
	metrics.ActiveListings.Inc()

	slog.Info("item listed",
		"collection", key.Collection,
		"asset_id", key.AssetID,
		"seller", seller,
		"price", listing.Price.String(),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(listing)
}

// GetListing handles GET /api/v1/listings/{collection}/{assetID}
// Returns the zero (sentinel) listing when the asset is not listed.
func (s *Service) GetListing(w http.ResponseWriter, r *http.Request) {
	key, err := asset.ParseKey(chi.URLParam(r, "collection"), chi.URLParam(r, "assetID"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	listing, err := s.ledger.GetListing(r.Context(), key.Collection, key.AssetID)
	if err != nil {
		writeError(w, "failed to load listing", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(listing)
}

// UpdateListing handles PUT /api/v1/listings/{collection}/{assetID}
func (s *Service) UpdateListing(w http.ResponseWriter, r *http.Request) {
	key, err := asset.ParseKey(chi.URLParam(r, "collection"), chi.URLParam(r, "assetID"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	caller, err := asset.ParseIdentity(req.Caller)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	listing, err := s.ledger.Update(r.Context(), key.Collection, key.AssetID, req.Price, caller)
	if err != nil {
		metrics.OperationRejections.WithLabelValues("update", reasonForError(err)).Inc()
		writeError(w, err.Error(), statusForError(err))
		return
	}

	slog.Info("listing updated",
		"collection", key.Collection,
		"asset_id", key.AssetID,
		"price", listing.Price.String(),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(listing)
}

// CancelListing handles DELETE /api/v1/listings/{collection}/{assetID}?caller=
func (s *Service) CancelListing(w http.ResponseWriter, r *http.Request) {
	key, err := asset.ParseKey(chi.URLParam(r, "collection"), chi.URLParam(r, "assetID"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	caller, err := asset.ParseIdentity(r.URL.Query().Get("caller"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.ledger.Cancel(r.Context(), key.Collection, key.AssetID, caller); err != nil {
		metrics.OperationRejections.WithLabelValues("cancel", reasonForError(err)).Inc()
		writeError(w, err.Error(), statusForError(err))
		return
	}

	metrics.ListingsCanceled.WithLabelValues(key.Collection).Inc()
	metrics.ActiveListings.Dec()

	slog.Info("listing canceled",
		"collection", key.Collection,
		"asset_id", key.AssetID,
		"owner", caller,
	)

	w.WriteHeader(http.StatusNoContent)
}

// ListListings handles GET /api/v1/listings
// Returns all active listings, optionally filtered by ?collection=<address>.
func (s *Service) ListListings(w http.ResponseWriter, r *http.Request) {
	listings, err := s.ledger.ActiveListings(r.Context())
	if err != nil {
		writeError(w, "failed to list listings", http.StatusInternalServerError)
		return
	}
	if listings == nil {
		listings = []model.Listing{}
	}

	if collection := r.URL.Query().Get("collection"); collection != "" {
		var filtered []model.Listing
		for _, l := range listings {
			if l.Collection == collection {
				filtered = append(filtered, l)
			}
		}
		if filtered == nil {
			filtered = []model.Listing{}
		}
		listings = filtered
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(listings)
}

// Buy handles POST /api/v1/purchases
// Settles the purchase and returns the immutable sale record.
func (s *Service) Buy(w http.ResponseWriter, r *http.Request) {
	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	key, err := asset.ParseKey(req.Collection, req.AssetID)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	buyer, err := asset.ParseIdentity(req.Buyer)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	sale, err := s.ledger.Buy(r.Context(), key.Collection, key.AssetID, req.Payment, buyer)
	if err != nil {
		metrics.OperationRejections.WithLabelValues("buy", reasonForError(err)).Inc()
		writeError(w, err.Error(), statusForError(err))
		return
	}

	metrics.SalesTotal.WithLabelValues(key.Collection).Inc()
	volume, _ := sale.Payment.Float64()
	metrics.SaleVolume.WithLabelValues(key.Collection).Add(volume)
	metrics.ActiveListings.Dec()

	slog.Info("item bought",
		"sale_id", sale.ID,
		"collection", key.Collection,
		"asset_id", key.AssetID,
		"seller", sale.Seller,
		"buyer", buyer,
		"price", sale.Price.String(),
		"payment", sale.Payment.String(),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sale)
}

// Sales handles GET /api/v1/sales?collection=<address> or ?seller=<address>
func (s *Service) Sales(w http.ResponseWriter, r *http.Request) {
	var (
		sales []model.Sale
		err   error
	)

	switch {
	case r.URL.Query().Get("collection") != "":
		sales, err = s.ledger.SalesByCollection(r.Context(), r.URL.Query().Get("collection"))
	case r.URL.Query().Get("seller") != "":
		sales, err = s.ledger.SalesBySeller(r.Context(), r.URL.Query().Get("seller"))
	default:
		writeError(w, "collection or seller query parameter is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, "failed to load sales", http.StatusInternalServerError)
		return
	}
	if sales == nil {
		sales = []model.Sale{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sales)
}

// GetProceeds handles GET /api/v1/proceeds/{seller}
func (s *Service) GetProceeds(w http.ResponseWriter, r *http.Request) {
	seller, err := asset.ParseIdentity(chi.URLParam(r, "seller"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	balance, err := s.ledger.GetProceeds(r.Context(), seller)
	if err != nil {
		writeError(w, "failed to load proceeds", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(model.Proceeds{Seller: seller, Balance: balance})
}

// Withdraw handles POST /api/v1/proceeds/{seller}/withdraw
func (s *Service) Withdraw(w http.ResponseWriter, r *http.Request) {
	seller, err := asset.ParseIdentity(chi.URLParam(r, "seller"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	amount, err := s.ledger.Withdraw(r.Context(), seller)
	if err != nil {
		metrics.OperationRejections.WithLabelValues("withdraw", reasonForError(err)).Inc()
		writeError(w, err.Error(), statusForError(err))
		return
	}

	metrics.WithdrawalsTotal.Inc()
	volume, _ := amount.Float64()
	metrics.WithdrawalVolume.Add(volume)

	slog.Info("proceeds withdrawn",
		"seller", seller,
		"amount", amount.String(),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(WithdrawResponse{Seller: seller, Amount: amount})
}

// --- Error mapping ---

// statusForError maps ledger error kinds to HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrPriceMustBeAboveZero):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotOwner),
		errors.Is(err, ledger.ErrNotApprovedForMarketplace):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrNotListed):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrAlreadyListed),
		errors.Is(err, ledger.ErrPriceNotMet),
		errors.Is(err, ledger.ErrNoProceeds),
		errors.Is(err, ledger.ErrReentrantCall),
		errors.Is(err, policy.ErrSellerListingLimit),
		errors.Is(err, policy.ErrCollectionListingLimit):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// reasonForError maps ledger error kinds to a bounded metrics label.
func reasonForError(err error) string {
	switch {
	case errors.Is(err, ledger.ErrPriceMustBeAboveZero):
		return "price_must_be_above_zero"
	case errors.Is(err, ledger.ErrNotApprovedForMarketplace):
		return "not_approved"
	case errors.Is(err, ledger.ErrAlreadyListed):
		return "already_listed"
	case errors.Is(err, ledger.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, ledger.ErrNotListed):
		return "not_listed"
	case errors.Is(err, ledger.ErrPriceNotMet):
		return "price_not_met"
	case errors.Is(err, ledger.ErrNoProceeds):
		return "no_proceeds"
	case errors.Is(err, ledger.ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, ledger.ErrReentrantCall):
		return "reentrant_call"
	case errors.Is(err, policy.ErrSellerListingLimit),
		errors.Is(err, policy.ErrCollectionListingLimit):
		return "listing_limit"
	default:
		return "internal"
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
