package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Precondition violations, one sentinel per kind. Operations wrap these
// with %w plus the offending key so callers can match with errors.Is and
// still see context.
var (
	// ErrPriceMustBeAboveZero is returned when a listing price is zero or
	// negative. Zero price is the "not listed" sentinel and must never be
	// stored.
	ErrPriceMustBeAboveZero = errors.New("ledger: price must be above zero")

	// ErrNotApprovedForMarketplace is returned when the asset authority has
	// not granted the marketplace transfer authorization for the asset.
	ErrNotApprovedForMarketplace = errors.New("ledger: marketplace not approved to transfer asset")

	// ErrAlreadyListed is returned when an active listing already exists
	// for the asset.
	ErrAlreadyListed = errors.New("ledger: asset already listed")

	// ErrNotOwner is returned when the caller is not the current verified
	// owner of the asset.
	ErrNotOwner = errors.New("ledger: caller is not the asset owner")

	// ErrNotListed is returned when no active listing exists for the asset.
	ErrNotListed = errors.New("ledger: asset not listed")

	// ErrPriceNotMet is returned when a payment is below the listing price.
	// The wrapping PriceNotMetError carries the required price.
	ErrPriceNotMet = errors.New("ledger: payment below listing price")

	// ErrNoProceeds is returned when a withdrawal is attempted with a zero
	// balance.
	ErrNoProceeds = errors.New("ledger: no proceeds to withdraw")

	// ErrTransferFailed is returned when the asset transfer or the value
	// payout fails. The operation is rolled back before returning it.
	ErrTransferFailed = errors.New("ledger: transfer failed")

	// ErrReentrantCall is returned when a mutating operation is invoked
	// while another one is in flight. Re-entrant calls are rejected rather
	// than queued.
	ErrReentrantCall = errors.New("ledger: re-entrant call rejected")
)

// PriceNotMetError reports the price required to complete a purchase.
// It unwraps to ErrPriceNotMet.
type PriceNotMetError struct {
	Collection string
	AssetID    string
	Required   decimal.Decimal
}

func (e *PriceNotMetError) Error() string {
	return fmt.Sprintf("ledger: payment below listing price for %s/%s, required %s",
		e.Collection, e.AssetID, e.Required)
}

func (e *PriceNotMetError) Unwrap() error { return ErrPriceNotMet }
