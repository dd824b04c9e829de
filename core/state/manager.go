package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"nftloans/core/types"
	"nftloans/native/loans"
	"nftloans/storage"
)

const (
	accountPrefix = "acct/"
	marketPrefix  = "loans/market/"
	orderPrefix   = "loans/order/"
)

// Manager persists accounts, markets and orders in a key-value store. All
// mutations go through Update, which buffers writes and commits them as one
// atomic batch only if the whole operation succeeds; a single internal mutex
// serializes mutating operations, giving the per-order and per-market
// exclusion the lending engine relies on.
type Manager struct {
	mu sync.Mutex
	db storage.Database
}

func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func accountKey(addr [20]byte) string {
	return accountPrefix + hex.EncodeToString(addr[:])
}

func marketKey(token string) string {
	return marketPrefix + token
}

func orderKey(token string, seq uint64) string {
	return orderPrefix + token + "/" + strconv.FormatUint(seq, 10)
}

func getJSON(db storage.Database, key string, out interface{}) (bool, error) {
	data, err := db.Get([]byte(key))
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("state: decode %s: %w", key, err)
	}
	return true, nil
}

// GetAccount loads the account stored at the address, returning a fresh empty
// account when none exists yet.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getAccountLocked(addr)
}

func (m *Manager) getAccountLocked(addr [20]byte) (*types.Account, error) {
	account := &types.Account{}
	if _, err := getJSON(m.db, accountKey(addr), account); err != nil {
		return nil, err
	}
	return account, nil
}

// PutAccount stores the account directly, bypassing transaction buffering.
// Intended for bootstrap (genesis) writes only; lifecycle operations must go
// through Update.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if account == nil {
		return fmt.Errorf("state: account must not be nil")
	}
	encoded, err := json.Marshal(account)
	if err != nil {
		return err
	}
	return m.db.Put([]byte(accountKey(addr)), encoded)
}

// LoansGetMarket loads the market configuration for a token.
func (m *Manager) LoansGetMarket(token string) (*loans.Market, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	market := &loans.Market{}
	ok, err := getJSON(m.db, marketKey(token), market)
	if err != nil || !ok {
		return nil, false, err
	}
	return market, true, nil
}

// LoansGetOrder loads the order for a (token, sequence) pair. Closed orders
// remain readable for auditability.
func (m *Manager) LoansGetOrder(token string, seq uint64) (*loans.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order := &loans.Order{}
	ok, err := getJSON(m.db, orderKey(token, seq), order)
	if err != nil || !ok {
		return nil, false, err
	}
	return order, true, nil
}

// Update runs fn against a buffered transaction. When fn returns nil the
// buffered writes are committed as a single batch; any error discards them
// all, so a failed or interrupted operation leaves no partial state behind.
func (m *Manager) Update(fn func(*Txn) error) error {
	if fn == nil {
		return fmt.Errorf("state: update callback required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	txn := &Txn{db: m.db, pending: make(map[string][]byte)}
	if err := fn(txn); err != nil {
		return err
	}
	if len(txn.pending) == 0 {
		return nil
	}
	return m.db.WriteBatch(txn.pending)
}

// Txn is a write-buffered view over the key-value store. Reads observe the
// buffered writes of the same transaction.
type Txn struct {
	db      storage.Database
	pending map[string][]byte
}

func (t *Txn) get(key string, out interface{}) (bool, error) {
	if data, ok := t.pending[key]; ok {
		if err := json.Unmarshal(data, out); err != nil {
			return false, fmt.Errorf("state: decode %s: %w", key, err)
		}
		return true, nil
	}
	return getJSON(t.db, key, out)
}

func (t *Txn) put(key string, value interface{}) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	t.pending[key] = encoded
	return nil
}

// GetAccount loads an account within the transaction, returning a fresh empty
// account when none exists yet.
func (t *Txn) GetAccount(addr [20]byte) (*types.Account, error) {
	account := &types.Account{}
	if _, err := t.get(accountKey(addr), account); err != nil {
		return nil, err
	}
	return account, nil
}

// PutAccount buffers an account write.
func (t *Txn) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: account must not be nil")
	}
	return t.put(accountKey(addr), account)
}

// LoansGetMarket loads a market within the transaction.
func (t *Txn) LoansGetMarket(token string) (*loans.Market, bool, error) {
	market := &loans.Market{}
	ok, err := t.get(marketKey(token), market)
	if err != nil || !ok {
		return nil, false, err
	}
	return market, true, nil
}

// LoansPutMarket buffers a market write.
func (t *Txn) LoansPutMarket(market *loans.Market) error {
	if market == nil {
		return fmt.Errorf("state: market must not be nil")
	}
	return t.put(marketKey(market.Token), market)
}

// LoansGetOrder loads an order within the transaction.
func (t *Txn) LoansGetOrder(token string, seq uint64) (*loans.Order, bool, error) {
	order := &loans.Order{}
	ok, err := t.get(orderKey(token, seq), order)
	if err != nil || !ok {
		return nil, false, err
	}
	return order, true, nil
}

// LoansPutOrder buffers an order write.
func (t *Txn) LoansPutOrder(order *loans.Order) error {
	if order == nil {
		return fmt.Errorf("state: order must not be nil")
	}
	return t.put(orderKey(order.Token, order.Seq), order)
}
