package loans

import "errors"

// Every error below aborts the whole operation with no partial effect; the
// caller decides whether to resubmit. Transfers are never retried
// automatically.
var (
	ErrAmountMustBePositive       = errors.New("loans engine: amount must be greater than zero")
	ErrAlreadyInitialized         = errors.New("loans engine: market already initialised")
	ErrMarketNotFound             = errors.New("loans engine: market not initialised")
	ErrOrderNotFound              = errors.New("loans engine: order not found")
	ErrOrderClosed                = errors.New("loans engine: order already closed")
	ErrLoanAlreadyStarted         = errors.New("loans engine: loan already started")
	ErrLoanNotProvided            = errors.New("loans engine: loan not provided yet")
	ErrRepaymentPeriodExceeded    = errors.New("loans engine: repayment period exceeded")
	ErrRepaymentPeriodNotExceeded = errors.New("loans engine: repayment period not exceeded")
	ErrAlreadyLiquidated          = errors.New("loans engine: already liquidated")
	ErrArithmeticOverflow         = errors.New("loans engine: arithmetic overflow")
	ErrUnauthorized               = errors.New("loans engine: unauthorized caller")
	ErrInsufficientBalance        = errors.New("loans engine: insufficient balance")
	ErrCollateralNotHeld          = errors.New("loans engine: collateral not held by source account")
	ErrLedgerUnderflow            = errors.New("loans engine: locked buffer accounting underflow")
)

var errNilState = errors.New("loans engine: state not configured")
