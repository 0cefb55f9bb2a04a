package types

import "math/big"

// Account tracks the per-asset balances held by a ledger address. The sale
// engine moves value between accounts through the payment rail; nothing else
// mutates balances.
type Account struct {
	Nonce       uint64   `json:"nonce"`
	BalanceSOL  *big.Int `json:"balanceSOL"`
	BalanceUSDT *big.Int `json:"balanceUSDT"`
	BalanceUSDC *big.Int `json:"balanceUSDC"`
}

// EnsureBalances replaces nil balance fields with zero so callers can operate
// on the account without nil checks.
func (a *Account) EnsureBalances() *Account {
	if a == nil {
		return &Account{BalanceSOL: big.NewInt(0), BalanceUSDT: big.NewInt(0), BalanceUSDC: big.NewInt(0)}
	}
	if a.BalanceSOL == nil {
		a.BalanceSOL = big.NewInt(0)
	}
	if a.BalanceUSDT == nil {
		a.BalanceUSDT = big.NewInt(0)
	}
	if a.BalanceUSDC == nil {
		a.BalanceUSDC = big.NewInt(0)
	}
	return a
}

// Balance returns the balance for the supplied asset. The returned pointer is
// the account's own field; callers mutate it through SetBalance.
func (a *Account) Balance(asset Asset) *big.Int {
	a.EnsureBalances()
	switch asset {
	case AssetUSDT:
		return a.BalanceUSDT
	case AssetUSDC:
		return a.BalanceUSDC
	default:
		return a.BalanceSOL
	}
}

// SetBalance overwrites the balance for the supplied asset.
func (a *Account) SetBalance(asset Asset, value *big.Int) {
	if a == nil {
		return
	}
	amount := big.NewInt(0)
	if value != nil {
		amount = new(big.Int).Set(value)
	}
	switch asset {
	case AssetUSDT:
		a.BalanceUSDT = amount
	case AssetUSDC:
		a.BalanceUSDC = amount
	default:
		a.BalanceSOL = amount
	}
}

// Clone returns a deep copy so callers can mutate the copy without affecting
// the stored account.
func (a *Account) Clone() *Account {
	if a == nil {
		return (&Account{}).EnsureBalances()
	}
	clone := &Account{Nonce: a.Nonce}
	if a.BalanceSOL != nil {
		clone.BalanceSOL = new(big.Int).Set(a.BalanceSOL)
	}
	if a.BalanceUSDT != nil {
		clone.BalanceUSDT = new(big.Int).Set(a.BalanceUSDT)
	}
	if a.BalanceUSDC != nil {
		clone.BalanceUSDC = new(big.Int).Set(a.BalanceUSDC)
	}
	return clone.EnsureBalances()
}
