// Package registry defines the asset authority contract: the external
// system of record for asset ownership and transfer approval. The
// marketplace never holds assets itself; it only queries ownership and
// approval here and requests transfers at the moment of sale.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnknownAsset is returned for assets the registry has no record of.
	ErrUnknownAsset = errors.New("registry: unknown asset")

	// ErrNotCurrentOwner is returned when a transfer or approval is
	// requested by or from an identity that does not own the asset at
	// execution time.
	ErrNotCurrentOwner = errors.New("registry: not the current owner")

	// ErrAssetExists is returned when minting an asset that already exists.
	ErrAssetExists = errors.New("registry: asset already exists")
)

// Authority is the ownership and transfer-approval interface the
// marketplace consumes. OwnerOf must reflect live, current ownership;
// Transfer must fail if from is not the current owner at execution time.
type Authority interface {
	// OwnerOf returns the current owner of the asset.
	OwnerOf(ctx context.Context, collection, assetID string) (string, error)

	// ApprovedAgent returns the identity approved to transfer the asset,
	// or "" when no approval has been granted.
	ApprovedAgent(ctx context.Context, collection, assetID string) (string, error)

	// Transfer moves the asset from one owner to another and clears any
	// transfer approval.
	Transfer(ctx context.Context, collection, assetID, from, to string) error
}

type key struct {
	collection string
	assetID    string
}

// Memory is an in-memory Authority holding ERC-721-style state: an owner
// and an optional approved transfer agent per asset. Used for tests and
// single-node development deployments; production deployments point the
// engine at the real title registry instead.
type Memory struct {
	mu        sync.RWMutex
	owners    map[key]string
	approvals map[key]string
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{
		owners:    make(map[key]string),
		approvals: make(map[key]string),
	}
}

// Mint records a new asset with the given owner.
func (m *Memory) Mint(_ context.Context, collection, assetID, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{collection, assetID}
	if _, ok := m.owners[k]; ok {
		return fmt.Errorf("%w: %s/%s", ErrAssetExists, collection, assetID)
	}
	m.owners[k] = owner
	return nil
}

// Approve grants agent the right to transfer the asset. The caller must be
// the current owner.
func (m *Memory) Approve(_ context.Context, collection, assetID, caller, agent string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{collection, assetID}
	owner, ok := m.owners[k]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrUnknownAsset, collection, assetID)
	}
	if owner != caller {
		return fmt.Errorf("%w: %s", ErrNotCurrentOwner, caller)
	}
	m.approvals[k] = agent
	return nil
}

func (m *Memory) OwnerOf(_ context.Context, collection, assetID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	owner, ok := m.owners[key{collection, assetID}]
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrUnknownAsset, collection, assetID)
	}
	return owner, nil
}

func (m *Memory) ApprovedAgent(_ context.Context, collection, assetID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.owners[key{collection, assetID}]; !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrUnknownAsset, collection, assetID)
	}
	return m.approvals[key{collection, assetID}], nil
}

// Transfer moves ownership and clears the approval. Fails loudly if from
// no longer owns the asset.
func (m *Memory) Transfer(_ context.Context, collection, assetID, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{collection, assetID}
	owner, ok := m.owners[k]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrUnknownAsset, collection, assetID)
	}
	if owner != from {
		return fmt.Errorf("%w: %s is owned by %s, not %s", ErrNotCurrentOwner, assetID, owner, from)
	}
	m.owners[k] = to
	delete(m.approvals, k)
	return nil
}
