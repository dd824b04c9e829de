package loans

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"nftloans/core/events"
	"nftloans/core/types"
)

type engineState interface {
	LoansGetMarket(token string) (*Market, bool, error)
	LoansPutMarket(market *Market) error
	LoansGetOrder(token string, seq uint64) (*Order, bool, error)
	LoansPutOrder(order *Order) error
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

type loansEvent struct {
	evt *types.Event
}

func (e loansEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e loansEvent) Event() *types.Event { return e.evt }

// Engine drives the order lifecycle state machine and its escrow accounting.
// Each operation validates preconditions against the stored order and market,
// performs the required value transfers, updates the records, and returns.
// The state backend is expected to apply every mutation of a single call as
// one all-or-nothing unit and to serialize concurrent calls touching the same
// market.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates a loans engine with a no-op emitter. Callers can override
// the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(loansEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{}
	}
	return acc
}

func (e *Engine) loadMarket(token string) (*Market, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	market, ok, err := e.state.LoansGetMarket(token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMarketNotFound
	}
	if market.TotalLockedBuffer == nil {
		market.TotalLockedBuffer = big.NewInt(0)
	}
	return market, nil
}

func (e *Engine) loadOrder(token string, seq uint64) (*Order, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	order, ok, err := e.state.LoansGetOrder(token, seq)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// transferStable moves stablecoin units between two custody accounts. A zero
// amount is a no-op; a negative amount is rejected before any account is
// touched.
func (e *Engine) transferStable(from, to [20]byte, token string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return fmt.Errorf("loans engine: negative transfer amount")
	}
	fromAcc, err := e.state.GetAccount(from)
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to)
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	toAcc = ensureAccount(toAcc)
	balance := fromAcc.Balance(token)
	if balance.Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	fromAcc.SetBalance(token, new(big.Int).Sub(balance, amt))
	toAcc.SetBalance(token, new(big.Int).Add(toAcc.Balance(token), amt))
	if err := e.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to, toAcc)
}

// transferCollateral moves the single unit of a collateral asset between two
// custody accounts.
func (e *Engine) transferCollateral(from, to [20]byte, asset [32]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	fromAcc, err := e.state.GetAccount(from)
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to)
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	toAcc = ensureAccount(toAcc)
	if !fromAcc.RemoveCollectible(asset) {
		return ErrCollateralNotHeld
	}
	toAcc.AddCollectible(asset)
	if err := e.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to, toAcc)
}

func checkedAddUint64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrArithmeticOverflow
	}
	return a + b, nil
}

// Initialize creates the market configuration for a stablecoin token and
// derives its shared buffer vault. Re-initialization is rejected.
func (e *Engine) Initialize(token string, feeBps uint32) (*Market, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	normalized, err := NormalizeToken(token)
	if err != nil {
		return nil, err
	}
	if feeBps > 10_000 {
		return nil, fmt.Errorf("loans engine: fee bps out of range")
	}
	if _, ok, err := e.state.LoansGetMarket(normalized); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyInitialized
	}
	market := &Market{
		Token:             normalized,
		BufferVault:       StableVaultAddress(normalized),
		NextOrderSeq:      0,
		TotalLockedBuffer: big.NewInt(0),
		FeeBps:            feeBps,
	}
	if err := e.state.LoansPutMarket(market); err != nil {
		return nil, err
	}
	e.emit(NewMarketInitializedEvent(market))
	return market.Clone(), nil
}

// CreateOrder escrows the borrower's collateral asset plus the additional
// stablecoin buffer and records a new order awaiting funding. The order's
// sequence number is the market counter before increment.
func (e *Engine) CreateOrder(token string, borrower [20]byte, asset [32]byte, principal, interest *big.Int, periodSeconds uint64, additionalCollateral *big.Int) (*Order, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	normalized, err := NormalizeToken(token)
	if err != nil {
		return nil, err
	}
	requested := cloneBigInt(principal)
	if requested.Sign() <= 0 {
		return nil, ErrAmountMustBePositive
	}
	rate := cloneBigInt(interest)
	if rate.Sign() < 0 {
		return nil, fmt.Errorf("loans engine: negative interest amount")
	}
	buffer := cloneBigInt(additionalCollateral)
	if buffer.Sign() < 0 {
		return nil, fmt.Errorf("loans engine: negative additional collateral")
	}
	market, err := e.loadMarket(normalized)
	if err != nil {
		return nil, err
	}
	collateralVault := AssetVaultAddress(asset)
	if err := e.transferCollateral(borrower, collateralVault, asset); err != nil {
		return nil, err
	}
	if err := e.transferStable(borrower, market.BufferVault, normalized, buffer); err != nil {
		return nil, err
	}
	order := &Order{
		Seq:                  market.NextOrderSeq,
		Token:                normalized,
		Borrower:             borrower,
		Collateral:           asset,
		CollateralVault:      collateralVault,
		BufferVault:          market.BufferVault,
		Principal:            requested,
		Interest:             rate,
		PeriodSeconds:        periodSeconds,
		AdditionalCollateral: buffer,
		CreatedAt:            e.now(),
		Status:               StatusOpen,
	}
	market.NextOrderSeq++
	market.TotalLockedBuffer = new(big.Int).Add(market.TotalLockedBuffer, buffer)
	if err := e.state.LoansPutOrder(order); err != nil {
		return nil, err
	}
	if err := e.state.LoansPutMarket(market); err != nil {
		return nil, err
	}
	e.emit(NewOrderCreatedEvent(order))
	return order.Clone(), nil
}

// CancelOrder returns the escrowed collateral and buffer to the borrower of
// an order still awaiting funding. The reverse transfers are authorized by
// the engine's derived vault authority, not an external signer.
func (e *Engine) CancelOrder(token string, seq uint64, caller [20]byte) error {
	normalized, err := NormalizeToken(token)
	if err != nil {
		return err
	}
	order, err := e.loadOrder(normalized, seq)
	if err != nil {
		return err
	}
	if order.Status != StatusOpen {
		return ErrLoanAlreadyStarted
	}
	if caller != order.Borrower {
		return ErrUnauthorized
	}
	market, err := e.loadMarket(normalized)
	if err != nil {
		return err
	}
	if err := e.transferCollateral(order.CollateralVault, order.Borrower, order.Collateral); err != nil {
		return err
	}
	if err := e.transferStable(order.BufferVault, order.Borrower, normalized, order.AdditionalCollateral); err != nil {
		return err
	}
	if err := e.releaseBuffer(market, order.AdditionalCollateral); err != nil {
		return err
	}
	order.Status = StatusCancelled
	if err := e.state.LoansPutOrder(order); err != nil {
		return err
	}
	if err := e.state.LoansPutMarket(market); err != nil {
		return err
	}
	e.emit(NewOrderCancelledEvent(order))
	return nil
}

// FundOrder moves the requested principal from the lender to the borrower and
// starts the loan clock. An order that has already been funded is rejected
// outright to prevent double-funding.
func (e *Engine) FundOrder(token string, seq uint64, lender [20]byte) error {
	normalized, err := NormalizeToken(token)
	if err != nil {
		return err
	}
	order, err := e.loadOrder(normalized, seq)
	if err != nil {
		return err
	}
	if order.Status != StatusOpen || order.Funded() {
		return ErrLoanAlreadyStarted
	}
	if err := e.transferStable(lender, order.Borrower, normalized, order.Principal); err != nil {
		return err
	}
	order.Lender = lender
	order.FundedAt = e.now()
	order.Status = StatusFunded
	if err := e.state.LoansPutOrder(order); err != nil {
		return err
	}
	e.emit(NewOrderFundedEvent(order))
	return nil
}

// RepayOrder settles an active loan before its deadline: principal plus
// interest flow to the lender, the collateral asset and buffer return to the
// borrower. The boundary instant belongs to repay.
func (e *Engine) RepayOrder(token string, seq uint64, caller [20]byte) error {
	normalized, err := NormalizeToken(token)
	if err != nil {
		return err
	}
	order, err := e.loadOrder(normalized, seq)
	if err != nil {
		return err
	}
	if err := requireActive(order); err != nil {
		return err
	}
	if caller != order.Borrower {
		return ErrUnauthorized
	}
	deadline, err := checkedAddUint64(uint64(order.FundedAt), order.PeriodSeconds)
	if err != nil {
		return err
	}
	now := e.now()
	if uint64(now) > deadline {
		return ErrRepaymentPeriodExceeded
	}
	market, err := e.loadMarket(normalized)
	if err != nil {
		return err
	}
	owed := new(big.Int).Add(order.Principal, order.Interest)
	if err := e.transferStable(order.Borrower, order.Lender, normalized, owed); err != nil {
		return err
	}
	if err := e.transferCollateral(order.CollateralVault, order.Borrower, order.Collateral); err != nil {
		return err
	}
	if err := e.transferStable(order.BufferVault, order.Borrower, normalized, order.AdditionalCollateral); err != nil {
		return err
	}
	if err := e.releaseBuffer(market, order.AdditionalCollateral); err != nil {
		return err
	}
	order.RepaidAt = now
	order.Status = StatusRepaid
	if err := e.state.LoansPutOrder(order); err != nil {
		return err
	}
	if err := e.state.LoansPutMarket(market); err != nil {
		return err
	}
	e.emit(NewOrderRepaidEvent(order))
	return nil
}

// LiquidateOrder lets the lender claim the collateral asset and the buffer
// once the repayment deadline has passed. Liquidation at the deadline instant
// itself is rejected; that instant still belongs to repay.
func (e *Engine) LiquidateOrder(token string, seq uint64, caller [20]byte) error {
	normalized, err := NormalizeToken(token)
	if err != nil {
		return err
	}
	order, err := e.loadOrder(normalized, seq)
	if err != nil {
		return err
	}
	if order.LiquidatedAt != 0 {
		return ErrAlreadyLiquidated
	}
	if err := requireActive(order); err != nil {
		return err
	}
	if caller != order.Lender {
		return ErrUnauthorized
	}
	deadline, err := checkedAddUint64(uint64(order.FundedAt), order.PeriodSeconds)
	if err != nil {
		return err
	}
	now := e.now()
	if uint64(now) <= deadline {
		return ErrRepaymentPeriodNotExceeded
	}
	market, err := e.loadMarket(normalized)
	if err != nil {
		return err
	}
	if err := e.transferCollateral(order.CollateralVault, order.Lender, order.Collateral); err != nil {
		return err
	}
	if err := e.transferStable(order.BufferVault, order.Lender, normalized, order.AdditionalCollateral); err != nil {
		return err
	}
	if err := e.releaseBuffer(market, order.AdditionalCollateral); err != nil {
		return err
	}
	order.LiquidatedAt = now
	order.Status = StatusLiquidated
	if err := e.state.LoansPutOrder(order); err != nil {
		return err
	}
	if err := e.state.LoansPutMarket(market); err != nil {
		return err
	}
	e.emit(NewOrderLiquidatedEvent(order))
	return nil
}

// requireActive admits only funded, unresolved orders.
func requireActive(order *Order) error {
	switch order.Status {
	case StatusFunded:
		return nil
	case StatusOpen:
		return ErrLoanNotProvided
	default:
		return ErrOrderClosed
	}
}

// releaseBuffer removes a closing order's additional collateral from the
// market-wide locked total. The total underflowing means the ledger invariant
// was already broken, so the operation aborts.
func (e *Engine) releaseBuffer(market *Market, amount *big.Int) error {
	amt := cloneBigInt(amount)
	if market.TotalLockedBuffer.Cmp(amt) < 0 {
		return ErrLedgerUnderflow
	}
	market.TotalLockedBuffer = new(big.Int).Sub(market.TotalLockedBuffer, amt)
	return nil
}
