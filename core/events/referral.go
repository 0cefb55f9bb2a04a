package events

import "salechain/core/types"

const (
	// TypeReferralWithdrawSOL is emitted when an accrued SOL balance is settled.
	TypeReferralWithdrawSOL = "referral.withdraw.sol"
	// TypeReferralWithdrawUSDT is emitted when an accrued USDT balance is settled.
	TypeReferralWithdrawUSDT = "referral.withdraw.usdt"
	// TypeReferralWithdrawUSDC is emitted when an accrued USDC balance is settled.
	TypeReferralWithdrawUSDC = "referral.withdraw.usdc"
)

// Withdraw captures the settlement of a referrer's accrued balance in one
// asset.
type Withdraw struct {
	Asset    types.Asset
	Referral [20]byte
	Amount   uint64
}

// EventType implements the Event interface.
func (w Withdraw) EventType() string {
	switch w.Asset {
	case types.AssetUSDT:
		return TypeReferralWithdrawUSDT
	case types.AssetUSDC:
		return TypeReferralWithdrawUSDC
	default:
		return TypeReferralWithdrawSOL
	}
}
