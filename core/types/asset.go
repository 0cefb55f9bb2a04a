package types

import (
	"fmt"
	"strings"
)

// Asset enumerates the payment assets accepted by the sale engine.
type Asset string

const (
	// AssetSOL is the native asset, priced through the external oracle.
	AssetSOL Asset = "SOL"
	// AssetUSDT is Tether USD, treated as USD-pegged at three decimals.
	AssetUSDT Asset = "USDT"
	// AssetUSDC is USD Coin, treated as USD-pegged at three decimals.
	AssetUSDC Asset = "USDC"
)

// Valid reports whether the asset is one of the supported symbols.
func (a Asset) Valid() bool {
	switch a {
	case AssetSOL, AssetUSDT, AssetUSDC:
		return true
	default:
		return false
	}
}

// Stable reports whether the asset is one of the USD-pegged stablecoins.
func (a Asset) Stable() bool {
	return a == AssetUSDT || a == AssetUSDC
}

// ParseAsset normalises the supplied symbol and returns the canonical asset.
func ParseAsset(symbol string) (Asset, error) {
	trimmed := Asset(strings.ToUpper(strings.TrimSpace(symbol)))
	if !trimmed.Valid() {
		return "", fmt.Errorf("unsupported asset: %s", symbol)
	}
	return trimmed, nil
}
