package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"nftloans/core/types"
)

const genesisAppliedKey = "genesis/applied"

// GenesisAccount seeds one custody account at bootstrap. Balances map token
// symbols to decimal amounts; collectibles are 32-byte hex asset identifiers.
type GenesisAccount struct {
	Address      string            `json:"address"`
	Balances     map[string]string `json:"balances,omitempty"`
	Collectibles []string          `json:"collectibles,omitempty"`
}

// Genesis is the bootstrap document loaded once into a fresh store.
type Genesis struct {
	Accounts []GenesisAccount `json:"accounts"`
}

// ParseAddress decodes a 20-byte hex address with optional 0x prefix.
func ParseAddress(raw string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil || len(decoded) != len(addr) {
		return addr, fmt.Errorf("state: invalid address %q", raw)
	}
	copy(addr[:], decoded)
	return addr, nil
}

// ParseAssetID decodes a 32-byte hex asset identifier with optional 0x prefix.
func ParseAssetID(raw string) ([32]byte, error) {
	var id [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil || len(decoded) != len(id) {
		return id, fmt.Errorf("state: invalid asset id %q", raw)
	}
	copy(id[:], decoded)
	return id, nil
}

// LoadGenesis seeds the store from a genesis file. It is a no-op when the
// store was already bootstrapped, so restarting a node never re-mints
// balances.
func LoadGenesis(m *Manager, path string) error {
	applied, err := m.db.Has([]byte(genesisAppliedKey))
	if err != nil {
		return err
	}
	if applied {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	genesis := &Genesis{}
	if err := json.Unmarshal(data, genesis); err != nil {
		return fmt.Errorf("state: decode genesis: %w", err)
	}
	seen := make(map[[32]byte]struct{})
	for _, entry := range genesis.Accounts {
		addr, err := ParseAddress(entry.Address)
		if err != nil {
			return err
		}
		account := &types.Account{}
		for token, raw := range entry.Balances {
			amount, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
			if !ok || amount.Sign() < 0 {
				return fmt.Errorf("state: invalid genesis balance %q for %s", raw, entry.Address)
			}
			account.SetBalance(strings.ToUpper(strings.TrimSpace(token)), amount)
		}
		for _, raw := range entry.Collectibles {
			id, err := ParseAssetID(raw)
			if err != nil {
				return err
			}
			if _, dup := seen[id]; dup {
				return errors.New("state: duplicate genesis collectible")
			}
			seen[id] = struct{}{}
			account.AddCollectible(id)
		}
		if err := m.PutAccount(addr, account); err != nil {
			return err
		}
	}
	return m.db.Put([]byte(genesisAppliedKey), []byte{0x01})
}
