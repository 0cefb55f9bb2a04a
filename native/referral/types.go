package referral

import (
	"math/big"

	"salechain/core/types"
)

// Referral tracks a referrer's reward-rate overrides and the accrued,
// unsettled balances per accepted asset. Records are created lazily with zero
// values on first touch; an admin-initialised record carries explicit rates.
type Referral struct {
	MainReward      uint64
	SecondaryReward uint64

	SOLRewardAmount  uint64
	USDTRewardAmount uint64
	USDCRewardAmount uint64

	// TokenRewardAmount is a cumulative informational counter of
	// token-denominated rewards ever accrued. It is never decremented.
	TokenRewardAmount *big.Int

	Enabled bool
}

// New returns a referral record initialised with the supplied override rates.
func New(mainReward, secondaryReward uint64) *Referral {
	return &Referral{
		MainReward:        mainReward,
		SecondaryReward:   secondaryReward,
		TokenRewardAmount: big.NewInt(0),
		Enabled:           true,
	}
}

// SetReward overwrites the per-referrer override rates.
func (r *Referral) SetReward(mainReward, secondaryReward uint64) {
	r.MainReward = mainReward
	r.SecondaryReward = secondaryReward
}

// Enable marks the referral active. The flag is stored and surfaced but not
// consulted by the deposit or settlement paths.
func (r *Referral) Enable() { r.Enabled = true }

// Disable marks the referral inactive.
func (r *Referral) Disable() { r.Enabled = false }

// Balance returns the accrued, unsettled balance for the supplied asset.
func (r *Referral) Balance(asset types.Asset) uint64 {
	switch asset {
	case types.AssetUSDT:
		return r.USDTRewardAmount
	case types.AssetUSDC:
		return r.USDCRewardAmount
	default:
		return r.SOLRewardAmount
	}
}

// Accrue adds the supplied amount to the balance for one asset.
func (r *Referral) Accrue(asset types.Asset, amount uint64) {
	switch asset {
	case types.AssetUSDT:
		r.USDTRewardAmount += amount
	case types.AssetUSDC:
		r.USDCRewardAmount += amount
	default:
		r.SOLRewardAmount += amount
	}
}

// Reset zeroes the balance for one asset. Settlement calls this before paying
// out so a retried call cannot double-pay the same accrual.
func (r *Referral) Reset(asset types.Asset) {
	switch asset {
	case types.AssetUSDT:
		r.USDTRewardAmount = 0
	case types.AssetUSDC:
		r.USDCRewardAmount = 0
	default:
		r.SOLRewardAmount = 0
	}
}

// AccrueTokens adds to the cumulative token-denominated reward counter.
func (r *Referral) AccrueTokens(amount *big.Int) {
	if amount == nil {
		return
	}
	if r.TokenRewardAmount == nil {
		r.TokenRewardAmount = big.NewInt(0)
	}
	r.TokenRewardAmount = new(big.Int).Add(r.TokenRewardAmount, amount)
}

// Clone returns a deep copy so callers can mutate the copy without affecting
// the stored record.
func (r *Referral) Clone() *Referral {
	if r == nil {
		return nil
	}
	clone := *r
	if r.TokenRewardAmount != nil {
		clone.TokenRewardAmount = new(big.Int).Set(r.TokenRewardAmount)
	} else {
		clone.TokenRewardAmount = big.NewInt(0)
	}
	return &clone
}
