package loans

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Domain-separation tags for deterministic custody account derivation. The
// engine re-derives these addresses whenever it needs to move value out of
// its own custody, so no external signer ever controls a vault.
const (
	stableVaultSeed = "loans/st_vault"
	assetVaultSeed  = "loans/nft_vault"
)

// StableVaultAddress derives the shared buffer custody address for a market's
// stablecoin token.
func StableVaultAddress(token string) [20]byte {
	return deriveVault(stableVaultSeed, []byte(token))
}

// AssetVaultAddress derives the dedicated custody address holding the single
// collateral unit of the given asset.
func AssetVaultAddress(asset [32]byte) [20]byte {
	return deriveVault(assetVaultSeed, asset[:])
}

func deriveVault(seed string, identity []byte) [20]byte {
	digest := ethcrypto.Keccak256([]byte(seed), identity)
	var addr [20]byte
	copy(addr[:], digest[12:])
	return addr
}
