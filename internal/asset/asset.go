// Package asset handles validation and parsing of asset identifiers.
// Assets are keyed by (collection address, asset ID): the collection is a
// 0x-prefixed 20-byte hex address, the asset ID an unsigned decimal string.
package asset

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// collectionRegex matches a 0x-prefixed 40-hex-digit collection address.
// Example: 0x8d329a47bf148c7d63d52b75fb2028adc10a3d2f
var collectionRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// assetIDRegex matches an unsigned decimal asset ID with no leading zeros
// (a bare "0" is valid).
var assetIDRegex = regexp.MustCompile(`^(0|[1-9][0-9]*)$`)

var (
	ErrInvalidCollection = errors.New("asset: invalid collection address")
	ErrInvalidAssetID    = errors.New("asset: invalid asset id")
	ErrInvalidIdentity   = errors.New("asset: invalid identity address")
)

// Key identifies one asset within one collection.
type Key struct {
	Collection string `json:"collection"`
	AssetID    string `json:"asset_id"`
}

// ParseKey validates a (collection, assetID) pair and returns a normalized
// key. Collection addresses are lowercased so map lookups are
// case-insensitive with respect to hex checksumming.
func ParseKey(collection, assetID string) (Key, error) {
	if !collectionRegex.MatchString(collection) {
		return Key{}, fmt.Errorf("%w: %s (expected 0x + 40 hex digits)", ErrInvalidCollection, collection)
	}
	if !assetIDRegex.MatchString(assetID) {
		return Key{}, fmt.Errorf("%w: %s (expected unsigned decimal)", ErrInvalidAssetID, assetID)
	}
	return Key{
		Collection: strings.ToLower(collection),
		AssetID:    assetID,
	}, nil
}

// ParseIdentity validates and normalizes a seller/buyer address. Identities
// use the same address format as collections.
func ParseIdentity(addr string) (string, error) {
	if !collectionRegex.MatchString(addr) {
		return "", fmt.Errorf("%w: %s (expected 0x + 40 hex digits)", ErrInvalidIdentity, addr)
	}
	return strings.ToLower(addr), nil
}

func (k Key) String() string {
	return k.Collection + "/" + k.AssetID
}
