package types

import (
	"bytes"
	"math/big"
)

// Account tracks the holdings of a single custody address. Stablecoin
// balances are kept per token symbol; collectibles are 32-byte asset
// identifiers of which an account holds at most one unit each.
type Account struct {
	Balances     map[string]*big.Int `json:"balances,omitempty"`
	Collectibles [][]byte            `json:"collectibles,omitempty"`
}

// Balance returns the stablecoin balance for the given token symbol. The
// returned value is never nil.
func (a *Account) Balance(token string) *big.Int {
	if a == nil || a.Balances == nil {
		return big.NewInt(0)
	}
	if bal, ok := a.Balances[token]; ok && bal != nil {
		return bal
	}
	return big.NewInt(0)
}

// SetBalance records the stablecoin balance for the given token symbol.
func (a *Account) SetBalance(token string, amount *big.Int) {
	if a == nil {
		return
	}
	if a.Balances == nil {
		a.Balances = make(map[string]*big.Int)
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	a.Balances[token] = new(big.Int).Set(amount)
}

// HoldsCollectible reports whether the account holds the collectible with the
// provided identifier.
func (a *Account) HoldsCollectible(id [32]byte) bool {
	if a == nil {
		return false
	}
	for _, held := range a.Collectibles {
		if bytes.Equal(held, id[:]) {
			return true
		}
	}
	return false
}

// AddCollectible appends the collectible identifier to the account holdings.
// Adding an identifier the account already holds is a no-op.
func (a *Account) AddCollectible(id [32]byte) {
	if a == nil || a.HoldsCollectible(id) {
		return
	}
	a.Collectibles = append(a.Collectibles, append([]byte(nil), id[:]...))
}

// RemoveCollectible drops the collectible identifier from the account
// holdings. It reports whether the identifier was present.
func (a *Account) RemoveCollectible(id [32]byte) bool {
	if a == nil {
		return false
	}
	for i, held := range a.Collectibles {
		if bytes.Equal(held, id[:]) {
			a.Collectibles = append(a.Collectibles[:i], a.Collectibles[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return &Account{}
	}
	clone := &Account{}
	if a.Balances != nil {
		clone.Balances = make(map[string]*big.Int, len(a.Balances))
		for token, bal := range a.Balances {
			if bal == nil {
				bal = big.NewInt(0)
			}
			clone.Balances[token] = new(big.Int).Set(bal)
		}
	}
	if len(a.Collectibles) > 0 {
		clone.Collectibles = make([][]byte, 0, len(a.Collectibles))
		for _, held := range a.Collectibles {
			clone.Collectibles = append(clone.Collectibles, append([]byte(nil), held...))
		}
	}
	return clone
}
