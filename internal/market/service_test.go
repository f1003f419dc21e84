package market_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/nftbay/marketplace-engine/internal/ledger"
	"github.com/nftbay/marketplace-engine/internal/market"
	"github.com/nftbay/marketplace-engine/internal/model"
	"github.com/nftbay/marketplace-engine/internal/payment"
	"github.com/nftbay/marketplace-engine/internal/registry"
	"github.com/nftbay/marketplace-engine/internal/store"
)

const (
	collection = "0xcccccccccccccccccccccccccccccccccccccccc"
	sellerAddr = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	buyerAddr  = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	otherAddr  = "0xdddddddddddddddddddddddddddddddddddddddd"
	operator   = "0x00000000000000000000000000000000004e4654"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

type testEnv struct {
	router   chi.Router
	registry *registry.Memory
	gateway  *payment.MemoryGateway
	store    *store.MemoryStore
}

// newTestEnv wires a full service over in-memory collaborators and mounts
// the same routes as cmd/server.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		registry: registry.NewMemory(),
		gateway:  payment.NewMemoryGateway(),
		store:    store.NewMemoryStore(),
	}

	led := ledger.New(env.store, env.registry, env.gateway, operator, nil, nil)
	svc := market.NewService(led)
	regHandlers := market.NewRegistryHandlers(env.registry)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/listings", svc.ListListings)
		r.Post("/listings", svc.CreateListing)
		r.Get("/listings/{collection}/{assetID}", svc.GetListing)
		r.Put("/listings/{collection}/{assetID}", svc.UpdateListing)
		r.Delete("/listings/{collection}/{assetID}", svc.CancelListing)
		r.Post("/purchases", svc.Buy)
		r.Get("/sales", svc.Sales)
		r.Get("/proceeds/{seller}", svc.GetProceeds)
		r.Post("/proceeds/{seller}/withdraw", svc.Withdraw)
		r.Post("/registry/assets", regHandlers.Mint)
		r.Post("/registry/approvals", regHandlers.Approve)
		r.Get("/registry/assets/{collection}/{assetID}/owner", regHandlers.Owner)
	})
	env.router = r
	return env
}

// seedAsset mints an asset to owner and approves the marketplace.
func (e *testEnv) seedAsset(t *testing.T, assetID, owner string) {
	t.Helper()
	ctx := context.Background()
	if err := e.registry.Mint(ctx, collection, assetID, owner); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := e.registry.Approve(ctx, collection, assetID, owner, operator); err != nil {
		t.Fatalf("approve: %v", err)
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) list(t *testing.T, assetID string, price decimal.Decimal, seller string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, "POST", "/api/v1/listings", market.ListRequest{
		Collection: collection,
		AssetID:    assetID,
		Price:      price,
		Seller:     seller,
	})
}

func (e *testEnv) buy(t *testing.T, assetID string, paid decimal.Decimal, buyer string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, "POST", "/api/v1/purchases", market.PurchaseRequest{
		Collection: collection,
		AssetID:    assetID,
		Payment:    paid,
		Buyer:      buyer,
	})
}

// --- Listing handlers ---

func TestCreateListing(t *testing.T) {
	env := newTestEnv(t)
	env.seedAsset(t, "0", sellerAddr)

	w := env.list(t, "0", d(100), sellerAddr)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var listing model.Listing
	json.Unmarshal(w.Body.Bytes(), &listing)
	if !listing.Price.Equal(d(100)) || listing.Seller != sellerAddr {
		t.Errorf("unexpected listing: %+v", listing)
	}
}

func TestCreateListing_InvalidCollection(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "POST", "/api/v1/listings", market.ListRequest{
		Collection: "not-an-address",
		AssetID:    "0",
		Price:      d(100),
		Seller:     sellerAddr,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCreateListing_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	env.seedAsset(t, "0", sellerAddr)

	env.list(t, "0", d(100), sellerAddr)
	w := env.list(t, "0", d(200), sellerAddr)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate listing, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateListing_NotOwner(t *testing.T) {
	env := newTestEnv(t)
	env.seedAsset(t, "0", sellerAddr)

	w := env.list(t, "0", d(100), otherAddr)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-owner, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateListing_ZeroPrice(t *testing.T) {
	env := newTestEnv(t)
	env.seedAsset(t, "0", sellerAddr)

	w := env.list(t, "0", decimal.Zero, sellerAddr)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for zero price, got %d: %s", w.Code, w.Body.String())
	}
}

// GetListing returns the zero (sentinel) listing rather than 404 when the
// asset is not listed.
func TestGetListing_Sentinel(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/api/v1/listings/"+collection+"/0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var listing model.Listing
	json.Unmarshal(w.Body.Bytes(), &listing)
	if listing.Active() {
		t.Errorf("expected sentinel listing, got %+v", listing)
	}
}

func TestUpdateListing(t *testing.T) {
	env := newTestEnv(t)
	env.seedAsset(t, "0", sellerAddr)
	env.list(t, "0", d(100), sellerAddr)

	w := env.do(t, "PUT", "/api/v1/listings/"+collection+"/0", market.UpdateRequest{
		Price:  d(250),
		Caller: sellerAddr,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var listing model.Listing
	json.Unmarshal(w.Body.Bytes(), &listing)
	if !listing.Price.Equal(d(250)) || listing.Seller != sellerAddr {
		t.Errorf("unexpected listing after update: %+v", listing)
	}
}

func TestUpdateListing_NotListed(t *testing.T) {
	env := newTestEnv(t)
	env.seedAsset(t, "0", sellerAddr)

	w := env.do(t, "PUT", "/api/v1/listings/"+collection+"/0", market.UpdateRequest{
		Price:  d(250),
		Caller: sellerAddr,
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestCancelListing(t *testing.T) {
	env := newTestEnv(t)
	env.seedAsset(t, "0", sellerAddr)
	env.list(t, "0", d(100), sellerAddr)

	w := env.do(t, "DELETE", "/api/v1/listings/"+collection+"/0?caller="+sellerAddr, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}

	listing, _ := env.store.GetListing(context.Background(), collection, "0")
	if listing.Active() {
		t.Error("listing should be removed")
	}
}

func TestCancelListing_MissingCaller(t *testing.T) {
	env := newTestEnv(t)
	env.seedAsset(t, "0", sellerAddr)
	env.list(t, "0", d(100), sellerAddr)

	w := env.do(t, "DELETE", "/api/v1/listings/"+collection+"/0", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without caller, got %d", w.Code)
	}
}

func TestListListings_CollectionFilter(t *testing.T) {
	env := newTestEnv(t)
	env.seedAsset(t, "0", sellerAddr)
	env.seedAsset(t, "1", sellerAddr)
	env.list(t, "0", d(100), sellerAddr)
	env.list(t, "1", d(200), sellerAddr)

	w := env.do(t, "GET", "/api/v1/listings?collection="+collection, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var listings []model.Listing
	json.Unmarshal(w.Body.Bytes(), &listings)
	if len(listings) != 2 {
		t.Errorf("expected 2 listings, got %d", len(listings))
	}

	w = env.do(t, "GET", "/api/v1/listings?collection="+otherAddr, nil)
	json.Unmarshal(w.Body.Bytes(), &listings)
	if len(listings) != 0 {
		t.Errorf("expected 0 listings for other collection, got %d", len(listings))
	}
}

// --- Purchase handlers ---

func TestBuy(t *testing.T) {
	env := newTestEnv(t)
	env.seedAsset(t, "0", sellerAddr)
	env.list(t, "0", d(100), sellerAddr)

	w := env.buy(t, "0", d(100), buyerAddr)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var sale model.Sale
	json.Unmarshal(w.Body.Bytes(), &sale)
	if sale.ID == "" {
		t.Error("expected non-empty sale id")
	}
	if sale.Buyer != buyerAddr || sale.Seller != sellerAddr {
		t.Errorf("unexpected sale parties: %+v", sale)
	}

	owner, _ := env.registry.OwnerOf(context.Background(), collection, "0")
	if owner != buyerAddr {
		t.Errorf("expected buyer to own asset, got %s", owner)
	}
}

func TestBuy_PriceNotMet(t *testing.T) {
	env := newTestEnv(t)
	env.seedAsset(t, "0", sellerAddr)
	env.list(t, "0", d(100), sellerAddr)

	w := env.buy(t, "0", d(50), buyerAddr)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for insufficient payment, got %d: %s", w.Code, w.Body.String())
	}
}

func TestBuy_NotListed(t *testing.T) {
	env := newTestEnv(t)
	env.seedAsset(t, "0", sellerAddr)

	w := env.buy(t, "0", d(100), buyerAddr)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestSales_ByCollection(t *testing.T) {
	env := newTestEnv(t)
	env.seedAsset(t, "0", sellerAddr)
	env.list(t, "0", d(100), sellerAddr)
	env.buy(t, "0", d(100), buyerAddr)

	w := env.do(t, "GET", "/api/v1/sales?collection="+collection, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var sales []model.Sale
	json.Unmarshal(w.Body.Bytes(), &sales)
	if len(sales) != 1 {
		t.Errorf("expected 1 sale, got %d", len(sales))
	}
}

func TestSales_MissingFilter(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/api/v1/sales", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without a filter, got %d", w.Code)
	}
}

// --- Proceeds handlers ---

func TestProceedsAndWithdraw(t *testing.T) {
	env := newTestEnv(t)
	env.seedAsset(t, "0", sellerAddr)
	env.list(t, "0", d(100), sellerAddr)
	env.buy(t, "0", d(100), buyerAddr)

	w := env.do(t, "GET", "/api/v1/proceeds/"+sellerAddr, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var proceeds model.Proceeds
	json.Unmarshal(w.Body.Bytes(), &proceeds)
	if !proceeds.Balance.Equal(d(100)) {
		t.Errorf("expected balance=100, got %s", proceeds.Balance)
	}

	w = env.do(t, "POST", "/api/v1/proceeds/"+sellerAddr+"/withdraw", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp market.WithdrawResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Amount.Equal(d(100)) {
		t.Errorf("expected amount=100, got %s", resp.Amount)
	}
	if !env.gateway.Received(sellerAddr).Equal(d(100)) {
		t.Errorf("seller should receive 100, got %s", env.gateway.Received(sellerAddr))
	}

	// Second withdrawal finds an empty balance.
	w = env.do(t, "POST", "/api/v1/proceeds/"+sellerAddr+"/withdraw", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 on empty balance, got %d: %s", w.Code, w.Body.String())
	}
}

// --- Dev registry handlers ---

func TestRegistryHandlers(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "POST", "/api/v1/registry/assets", market.MintRequest{
		Collection: collection,
		AssetID:    "7",
		Owner:      sellerAddr,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, "POST", "/api/v1/registry/approvals", market.ApproveRequest{
		Collection: collection,
		AssetID:    "7",
		Caller:     sellerAddr,
		Agent:      operator,
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, "GET", "/api/v1/registry/assets/"+collection+"/7/owner", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["owner"] != sellerAddr {
		t.Errorf("expected owner=%s, got %s", sellerAddr, resp["owner"])
	}

	// The seeded asset is now listable end to end.
	w = env.list(t, "7", d(100), sellerAddr)
	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRegistryHandlers_ApproveByNonOwner(t *testing.T) {
	env := newTestEnv(t)
	env.seedAsset(t, "0", sellerAddr)

	w := env.do(t, "POST", "/api/v1/registry/approvals", market.ApproveRequest{
		Collection: collection,
		AssetID:    "0",
		Caller:     otherAddr,
		Agent:      operator,
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}
