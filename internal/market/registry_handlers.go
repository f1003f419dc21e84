package market

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nftbay/marketplace-engine/internal/asset"
	"github.com/nftbay/marketplace-engine/internal/registry"
)

// RegistryHandlers exposes the in-memory asset registry over HTTP for
// development and demo deployments: minting assets, granting transfer
// approvals, and querying ownership. Production deployments point the
// engine at the real title registry and do not mount these routes.
type RegistryHandlers struct {
	registry *registry.Memory
}

// NewRegistryHandlers creates handlers backed by the in-memory registry.
func NewRegistryHandlers(reg *registry.Memory) *RegistryHandlers {
	return &RegistryHandlers{registry: reg}
}

// MintRequest is the JSON body for POST /api/v1/registry/assets.
type MintRequest struct {
	Collection string `json:"collection"`
	AssetID    string `json:"asset_id"`
	Owner      string `json:"owner"`
}

// ApproveRequest is the JSON body for POST /api/v1/registry/approvals.
type ApproveRequest struct {
	Collection string `json:"collection"`
	AssetID    string `json:"asset_id"`
	Caller     string `json:"caller"`
	Agent      string `json:"agent"`
}

// Mint handles POST /api/v1/registry/assets
func (h *RegistryHandlers) Mint(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	key, err := asset.ParseKey(req.Collection, req.AssetID)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	owner, err := asset.ParseIdentity(req.Owner)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.registry.Mint(r.Context(), key.Collection, key.AssetID, owner); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, registry.ErrAssetExists) {
			status = http.StatusConflict
		}
		writeError(w, err.Error(), status)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// Approve handles POST /api/v1/registry/approvals
func (h *RegistryHandlers) Approve(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	key, err := asset.ParseKey(req.Collection, req.AssetID)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	caller, err := asset.ParseIdentity(req.Caller)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	agent, err := asset.ParseIdentity(req.Agent)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.registry.Approve(r.Context(), key.Collection, key.AssetID, caller, agent); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, registry.ErrUnknownAsset):
			status = http.StatusNotFound
		case errors.Is(err, registry.ErrNotCurrentOwner):
			status = http.StatusForbidden
		}
		writeError(w, err.Error(), status)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Owner handles GET /api/v1/registry/assets/{collection}/{assetID}/owner
func (h *RegistryHandlers) Owner(w http.ResponseWriter, r *http.Request) {
	key, err := asset.ParseKey(chi.URLParam(r, "collection"), chi.URLParam(r, "assetID"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	owner, err := h.registry.OwnerOf(r.Context(), key.Collection, key.AssetID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, registry.ErrUnknownAsset) {
			status = http.StatusNotFound
		}
		writeError(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"owner": owner})
}
