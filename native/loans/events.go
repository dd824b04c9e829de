package loans

import (
	"encoding/hex"
	"strconv"

	"nftloans/core/types"
)

const (
	EventTypeMarketInitialized = "loans.market.initialized"
	EventTypeOrderCreated      = "loans.order.created"
	EventTypeOrderCancelled    = "loans.order.cancelled"
	EventTypeOrderFunded       = "loans.order.funded"
	EventTypeOrderRepaid       = "loans.order.repaid"
	EventTypeOrderLiquidated   = "loans.order.liquidated"
)

// NewMarketInitializedEvent returns the canonical event payload for a freshly
// bootstrapped market.
func NewMarketInitializedEvent(m *Market) *types.Event {
	attrs := make(map[string]string)
	if m == nil {
		return &types.Event{Type: EventTypeMarketInitialized, Attributes: attrs}
	}
	attrs["token"] = m.Token
	attrs["bufferVault"] = hex.EncodeToString(m.BufferVault[:])
	attrs["feeBps"] = strconv.FormatUint(uint64(m.FeeBps), 10)
	return &types.Event{Type: EventTypeMarketInitialized, Attributes: attrs}
}

// NewOrderCreatedEvent returns the canonical event payload for a newly
// created order.
func NewOrderCreatedEvent(o *Order) *types.Event { return newOrderEvent(EventTypeOrderCreated, o) }

// NewOrderCancelledEvent returns the payload emitted when an unfunded order
// is cancelled by its borrower.
func NewOrderCancelledEvent(o *Order) *types.Event { return newOrderEvent(EventTypeOrderCancelled, o) }

// NewOrderFundedEvent returns the payload emitted when a lender provides the
// principal.
func NewOrderFundedEvent(o *Order) *types.Event { return newOrderEvent(EventTypeOrderFunded, o) }

// NewOrderRepaidEvent returns the payload emitted when the borrower settles
// the loan.
func NewOrderRepaidEvent(o *Order) *types.Event { return newOrderEvent(EventTypeOrderRepaid, o) }

// NewOrderLiquidatedEvent returns the payload emitted when the lender claims
// the collateral after default.
func NewOrderLiquidatedEvent(o *Order) *types.Event {
	return newOrderEvent(EventTypeOrderLiquidated, o)
}

func newOrderEvent(eventType string, o *Order) *types.Event {
	attrs := make(map[string]string)
	if o == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["seq"] = strconv.FormatUint(o.Seq, 10)
	attrs["token"] = o.Token
	attrs["borrower"] = hex.EncodeToString(o.Borrower[:])
	attrs["collateral"] = hex.EncodeToString(o.Collateral[:])
	attrs["principal"] = cloneBigInt(o.Principal).String()
	attrs["interest"] = cloneBigInt(o.Interest).String()
	attrs["periodSeconds"] = strconv.FormatUint(o.PeriodSeconds, 10)
	attrs["additionalCollateral"] = cloneBigInt(o.AdditionalCollateral).String()
	attrs["status"] = o.Status.String()
	if o.Lender != ([20]byte{}) {
		attrs["lender"] = hex.EncodeToString(o.Lender[:])
	}
	if o.FundedAt != 0 {
		attrs["fundedAt"] = strconv.FormatInt(o.FundedAt, 10)
	}
	if o.RepaidAt != 0 {
		attrs["repaidAt"] = strconv.FormatInt(o.RepaidAt, 10)
	}
	if o.LiquidatedAt != 0 {
		attrs["liquidatedAt"] = strconv.FormatInt(o.LiquidatedAt, 10)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
