package events

import (
	"math/big"

	"salechain/core/types"
)

const (
	// TypeSaleDepositSOL is emitted when a contribution is paid in SOL.
	TypeSaleDepositSOL = "sale.deposit.sol"
	// TypeSaleDepositUSDT is emitted when a contribution is paid in USDT.
	TypeSaleDepositUSDT = "sale.deposit.usdt"
	// TypeSaleDepositUSDC is emitted when a contribution is paid in USDC.
	TypeSaleDepositUSDC = "sale.deposit.usdc"
)

// Deposit captures a successful contribution: the round it landed in, who
// paid, the referral credited (zero address when none), the gross amount in
// the paid asset and the purchased token amount.
type Deposit struct {
	Asset       types.Asset
	Round       int16
	Beneficiary [20]byte
	Referral    [20]byte
	Amount      uint64
	TokenAmount *big.Int
}

// EventType implements the Event interface. The emitted type is distinct per
// paid asset.
func (d Deposit) EventType() string {
	switch d.Asset {
	case types.AssetUSDT:
		return TypeSaleDepositUSDT
	case types.AssetUSDC:
		return TypeSaleDepositUSDC
	default:
		return TypeSaleDepositSOL
	}
}
