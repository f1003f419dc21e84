package ledger

import "github.com/shopspring/decimal"

// EventType identifies a marketplace notification event.
type EventType string

const (
	EventItemListed   EventType = "ItemListed"
	EventItemCanceled EventType = "ItemCanceled"
	EventItemBought   EventType = "ItemBought"
)

// Event is a notification emitted after a successful mutation, consumed by
// external indexers and UIs. ItemListed carries the seller and the (new)
// price; ItemCanceled carries the owner; ItemBought carries the buyer and
// the original listing price, not the payment amount.
type Event struct {
	Type       EventType       `json:"type"`
	Collection string          `json:"collection"`
	AssetID    string          `json:"asset_id"`
	Seller     string          `json:"seller,omitempty"`
	Owner      string          `json:"owner,omitempty"`
	Buyer      string          `json:"buyer,omitempty"`
	Price      decimal.Decimal `json:"price"`
}

// Sink receives events. Sinks run synchronously after the mutation has been
// applied; they must not call back into the ledger.
type Sink func(Event)
