package loans

import (
	"fmt"
	"math/big"
	"strings"
)

// OrderStatus is the canonical lifecycle state of a loan order. It collapses
// the separate boolean and timestamp signals a naive implementation would
// carry, so the two can never disagree.
type OrderStatus uint8

const (
	// StatusOpen marks an order awaiting funding. Only open orders may be
	// cancelled by the borrower or funded by a lender.
	StatusOpen OrderStatus = iota
	// StatusFunded marks an active loan. Exactly one of repay or liquidate
	// will eventually close it.
	StatusFunded
	StatusCancelled
	StatusRepaid
	StatusLiquidated
)

// Valid reports whether the status value is within the supported range.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusFunded, StatusCancelled, StatusRepaid, StatusLiquidated:
		return true
	default:
		return false
	}
}

// Closed reports whether the status is terminal.
func (s OrderStatus) Closed() bool {
	switch s {
	case StatusCancelled, StatusRepaid, StatusLiquidated:
		return true
	default:
		return false
	}
}

func (s OrderStatus) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusFunded:
		return "funded"
	case StatusCancelled:
		return "cancelled"
	case StatusRepaid:
		return "repaid"
	case StatusLiquidated:
		return "liquidated"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Market captures the per-stablecoin accounting state of the lending module.
// One market exists per supported token; the buffer vault pools the
// additional collateral of every live order in that market.
type Market struct {
	Token             string   `json:"token"`
	BufferVault       [20]byte `json:"bufferVault"`
	NextOrderSeq      uint64   `json:"nextOrderSeq"`
	TotalLockedBuffer *big.Int `json:"totalLockedBuffer"`
	FeeBps            uint32   `json:"feeBps"`
}

// Clone returns a deep copy of the market so callers can safely mutate the
// copy without affecting the stored instance.
func (m *Market) Clone() *Market {
	if m == nil {
		return nil
	}
	clone := *m
	if m.TotalLockedBuffer != nil {
		clone.TotalLockedBuffer = new(big.Int).Set(m.TotalLockedBuffer)
	} else {
		clone.TotalLockedBuffer = big.NewInt(0)
	}
	return &clone
}

// Order captures a single loan request and its escrow state. Identity is the
// (sequence, market token) pair. The lender field holds the zero address
// until a lender funds the order.
type Order struct {
	Seq                  uint64      `json:"seq"`
	Token                string      `json:"token"`
	Borrower             [20]byte    `json:"borrower"`
	Lender               [20]byte    `json:"lender"`
	Collateral           [32]byte    `json:"collateral"`
	CollateralVault      [20]byte    `json:"collateralVault"`
	BufferVault          [20]byte    `json:"bufferVault"`
	Principal            *big.Int    `json:"principal"`
	Interest             *big.Int    `json:"interest"`
	PeriodSeconds        uint64      `json:"periodSeconds"`
	AdditionalCollateral *big.Int    `json:"additionalCollateral"`
	CreatedAt            int64       `json:"createdAt"`
	FundedAt             int64       `json:"fundedAt"`
	RepaidAt             int64       `json:"repaidAt"`
	LiquidatedAt         int64       `json:"liquidatedAt"`
	Status               OrderStatus `json:"status"`
}

// Funded reports whether a lender has provided the principal.
func (o *Order) Funded() bool {
	return o != nil && o.FundedAt != 0
}

// CountsTowardBuffer reports whether the order's additional collateral is
// still pooled in the market buffer vault, i.e. the order has not reached a
// terminal state.
func (o *Order) CountsTowardBuffer() bool {
	return o != nil && !o.Status.Closed()
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	if o.Principal != nil {
		clone.Principal = new(big.Int).Set(o.Principal)
	} else {
		clone.Principal = big.NewInt(0)
	}
	if o.Interest != nil {
		clone.Interest = new(big.Int).Set(o.Interest)
	} else {
		clone.Interest = big.NewInt(0)
	}
	if o.AdditionalCollateral != nil {
		clone.AdditionalCollateral = new(big.Int).Set(o.AdditionalCollateral)
	} else {
		clone.AdditionalCollateral = big.NewInt(0)
	}
	return &clone
}

// NormalizeToken validates a stablecoin symbol and returns its canonical
// uppercase form. Symbols are 1-12 ASCII letters or digits.
func NormalizeToken(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if len(trimmed) == 0 || len(trimmed) > 12 {
		return "", fmt.Errorf("loans: invalid token symbol %q", symbol)
	}
	for _, r := range trimmed {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("loans: invalid token symbol %q", symbol)
		}
	}
	return trimmed, nil
}
