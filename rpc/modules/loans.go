package modules

import (
	"errors"
	"math/big"
	"net/http"
	"strings"

	"nftloans/core/events"
	"nftloans/core/state"
	"nftloans/core/types"
	"nftloans/native/loans"
)

// LoansModule exposes the order lifecycle engine over the state manager. A
// fresh engine is wired per call inside a buffered state transaction, so each
// operation commits atomically or not at all.
type LoansModule struct {
	mgr     *state.Manager
	emitter events.Emitter
}

func NewLoansModule(mgr *state.Manager, emitter events.Emitter) *LoansModule {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	return &LoansModule{mgr: mgr, emitter: emitter}
}

func (m *LoansModule) moduleUnavailable() *ModuleError {
	return &ModuleError{HTTPStatus: http.StatusInternalServerError, Code: codeServerError, Message: "loans module not available"}
}

func (m *LoansModule) Initialize(token string, feeBps uint32) (*loans.Market, *ModuleError) {
	if m == nil || m.mgr == nil {
		return nil, m.moduleUnavailable()
	}
	var market *loans.Market
	err := m.withEngine(func(engine *loans.Engine) error {
		created, err := engine.Initialize(token, feeBps)
		if err != nil {
			return err
		}
		market = created
		return nil
	})
	if err != nil {
		return nil, m.wrapError(err)
	}
	return market, nil
}

func (m *LoansModule) CreateOrder(token string, borrower [20]byte, asset [32]byte, principal, interest *big.Int, periodSeconds uint64, additionalCollateral *big.Int) (*loans.Order, *ModuleError) {
	if m == nil || m.mgr == nil {
		return nil, m.moduleUnavailable()
	}
	var order *loans.Order
	err := m.withEngine(func(engine *loans.Engine) error {
		created, err := engine.CreateOrder(token, borrower, asset, principal, interest, periodSeconds, additionalCollateral)
		if err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, m.wrapError(err)
	}
	return order, nil
}

func (m *LoansModule) CancelOrder(token string, seq uint64, caller [20]byte) *ModuleError {
	if m == nil || m.mgr == nil {
		return m.moduleUnavailable()
	}
	err := m.withEngine(func(engine *loans.Engine) error {
		return engine.CancelOrder(token, seq, caller)
	})
	return m.wrapError(err)
}

func (m *LoansModule) FundOrder(token string, seq uint64, lender [20]byte) *ModuleError {
	if m == nil || m.mgr == nil {
		return m.moduleUnavailable()
	}
	err := m.withEngine(func(engine *loans.Engine) error {
		return engine.FundOrder(token, seq, lender)
	})
	return m.wrapError(err)
}

func (m *LoansModule) RepayOrder(token string, seq uint64, caller [20]byte) *ModuleError {
	if m == nil || m.mgr == nil {
		return m.moduleUnavailable()
	}
	err := m.withEngine(func(engine *loans.Engine) error {
		return engine.RepayOrder(token, seq, caller)
	})
	return m.wrapError(err)
}

func (m *LoansModule) LiquidateOrder(token string, seq uint64, caller [20]byte) *ModuleError {
	if m == nil || m.mgr == nil {
		return m.moduleUnavailable()
	}
	err := m.withEngine(func(engine *loans.Engine) error {
		return engine.LiquidateOrder(token, seq, caller)
	})
	return m.wrapError(err)
}

func (m *LoansModule) GetMarket(token string) (*loans.Market, *ModuleError) {
	if m == nil || m.mgr == nil {
		return nil, m.moduleUnavailable()
	}
	normalized, err := loans.NormalizeToken(token)
	if err != nil {
		return nil, m.wrapError(err)
	}
	market, ok, err := m.mgr.LoansGetMarket(normalized)
	if err != nil {
		return nil, m.wrapError(err)
	}
	if !ok {
		return nil, m.wrapError(loans.ErrMarketNotFound)
	}
	return market, nil
}

func (m *LoansModule) GetOrder(token string, seq uint64) (*loans.Order, *ModuleError) {
	if m == nil || m.mgr == nil {
		return nil, m.moduleUnavailable()
	}
	normalized, err := loans.NormalizeToken(token)
	if err != nil {
		return nil, m.wrapError(err)
	}
	order, ok, err := m.mgr.LoansGetOrder(normalized, seq)
	if err != nil {
		return nil, m.wrapError(err)
	}
	if !ok {
		return nil, m.wrapError(loans.ErrOrderNotFound)
	}
	return order, nil
}

func (m *LoansModule) GetAccount(addr [20]byte) (*types.Account, *ModuleError) {
	if m == nil || m.mgr == nil {
		return nil, m.moduleUnavailable()
	}
	account, err := m.mgr.GetAccount(addr)
	if err != nil {
		return nil, m.wrapError(err)
	}
	return account, nil
}

func (m *LoansModule) withEngine(fn func(*loans.Engine) error) error {
	if fn == nil {
		return errors.New("loans: callback required")
	}
	return m.mgr.Update(func(txn *state.Txn) error {
		engine := loans.NewEngine()
		engine.SetState(&loansStateAdapter{txn: txn})
		engine.SetEmitter(m.emitter)
		return fn(engine)
	})
}

func (m *LoansModule) wrapError(err error) *ModuleError {
	if err == nil {
		return nil
	}
	status := http.StatusInternalServerError
	code := codeServerError
	switch {
	case errors.Is(err, loans.ErrMarketNotFound), errors.Is(err, loans.ErrOrderNotFound):
		status = http.StatusNotFound
		code = codeNotFound
	case errors.Is(err, loans.ErrUnauthorized):
		status = http.StatusForbidden
		code = codeUnauthorized
	case strings.HasPrefix(err.Error(), "loans engine:"), strings.HasPrefix(err.Error(), "loans:"):
		status = http.StatusBadRequest
		code = codeInvalidParams
	}
	return &ModuleError{HTTPStatus: status, Code: code, Message: err.Error()}
}

type loansStateAdapter struct {
	txn *state.Txn
}

func (a *loansStateAdapter) LoansGetMarket(token string) (*loans.Market, bool, error) {
	if a == nil || a.txn == nil {
		return nil, false, errors.New("loans: state transaction unavailable")
	}
	return a.txn.LoansGetMarket(token)
}

func (a *loansStateAdapter) LoansPutMarket(market *loans.Market) error {
	if a == nil || a.txn == nil {
		return errors.New("loans: state transaction unavailable")
	}
	return a.txn.LoansPutMarket(market)
}

func (a *loansStateAdapter) LoansGetOrder(token string, seq uint64) (*loans.Order, bool, error) {
	if a == nil || a.txn == nil {
		return nil, false, errors.New("loans: state transaction unavailable")
	}
	return a.txn.LoansGetOrder(token, seq)
}

func (a *loansStateAdapter) LoansPutOrder(order *loans.Order) error {
	if a == nil || a.txn == nil {
		return errors.New("loans: state transaction unavailable")
	}
	return a.txn.LoansPutOrder(order)
}

func (a *loansStateAdapter) GetAccount(addr [20]byte) (*types.Account, error) {
	if a == nil || a.txn == nil {
		return nil, errors.New("loans: state transaction unavailable")
	}
	return a.txn.GetAccount(addr)
}

func (a *loansStateAdapter) PutAccount(addr [20]byte, account *types.Account) error {
	if a == nil || a.txn == nil {
		return errors.New("loans: state transaction unavailable")
	}
	return a.txn.PutAccount(addr, account)
}
