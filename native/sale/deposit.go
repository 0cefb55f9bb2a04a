package sale

import (
	"fmt"
	"math/big"

	"salechain/core/events"
	"salechain/core/types"
	"salechain/native/referral"
)

// noReferral is the sentinel key for contributions without a referral
// relationship: the zero address accrues nothing.
var noReferral [20]byte

var (
	tokenScale  = new(big.Int).Exp(big.NewInt(10), big.NewInt(Precision), nil)
	stableScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(StablePrecision), nil)
)

// DepositSOL contributes the native asset. The supplied price feed and
// treasury identities must match the configured ones; the oracle quote
// converts the gross amount into its USD-equivalent.
func (e *Engine) DepositSOL(payer, refKey [20]byte, roundID int16, priceFeed, treasury [20]byte, amount uint64) (*big.Int, error) {
	return e.deposit(types.AssetSOL, payer, refKey, roundID, amount, func() (*big.Int, error) {
		if treasury != e.treasury {
			return nil, ErrWrongTreasury
		}
		if priceFeed != e.priceFeed {
			return nil, ErrWrongPriceFeed
		}
		if e.oracle == nil {
			return nil, fmt.Errorf("%w: oracle not configured", ErrPriceIsDown)
		}
		quote, err := e.oracle.Quote()
		if err != nil {
			return nil, err
		}
		return usdEquivalent(amount, quote), nil
	})
}

// DepositUSDT contributes Tether USD.
func (e *Engine) DepositUSDT(payer, refKey [20]byte, roundID int16, amount uint64) (*big.Int, error) {
	return e.deposit(types.AssetUSDT, payer, refKey, roundID, amount, stableUSD(amount))
}

// DepositUSDC contributes USD Coin.
func (e *Engine) DepositUSDC(payer, refKey [20]byte, roundID int16, amount uint64) (*big.Int, error) {
	return e.deposit(types.AssetUSDC, payer, refKey, roundID, amount, stableUSD(amount))
}

// stableUSD scales a stablecoin amount up to the nine-decimal USD-equivalent
// unit. No oracle is involved: the peg is assumed.
func stableUSD(amount uint64) func() (*big.Int, error) {
	return func() (*big.Int, error) {
		return new(big.Int).Mul(new(big.Int).SetUint64(amount), stableScale), nil
	}
}

// deposit is the single contribution path shared by all three asset variants.
// The variants differ only in the pricing closure (identity checks plus
// conversion) evaluated after the lifecycle guards; everything downstream of
// pricing is identical so the shared invariants cannot drift apart. The whole
// contribution runs as one ledger call: any failure discards every staged
// write, and the event is emitted only after the call committed.
func (e *Engine) deposit(asset types.Asset, payer, refKey [20]byte, roundID int16, amount uint64, pricing func() (*big.Int, error)) (*big.Int, error) {
	var tokenAmount *big.Int
	var evt events.Deposit
	err := e.inCall(func() error {
		var err error
		tokenAmount, evt, err = e.contribute(asset, payer, refKey, roundID, amount, pricing)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.emit(evt)
	return tokenAmount, nil
}

func (e *Engine) contribute(asset types.Asset, payer, refKey [20]byte, roundID int16, amount uint64, pricing func() (*big.Int, error)) (*big.Int, events.Deposit, error) {
	saleRecord, ok, err := e.state.SaleGet()
	if err != nil {
		return nil, events.Deposit{}, err
	}
	if !ok || !saleRecord.IsOpen() {
		return nil, events.Deposit{}, ErrSaleNotOpened
	}
	roundRecord, ok, err := e.state.RoundGet(roundID)
	if err != nil {
		return nil, events.Deposit{}, err
	}
	if !ok || !roundRecord.IsOpen() {
		return nil, events.Deposit{}, ErrRoundNotOpened
	}
	if saleRecord.Round != roundRecord.ID {
		return nil, events.Deposit{}, ErrInactiveRound
	}

	usdAmount, err := pricing()
	if err != nil {
		return nil, events.Deposit{}, err
	}
	if roundRecord.Price == 0 {
		return nil, events.Deposit{}, ErrRoundPriceNotSet
	}
	tokenAmount := new(big.Int).Mul(usdAmount, tokenScale)
	tokenAmount.Quo(tokenAmount, new(big.Int).SetUint64(roundRecord.Price))

	if usdAmount.Cmp(new(big.Int).SetUint64(saleRecord.MaxInvestment)) > 0 {
		return nil, events.Deposit{}, ErrSaleMaxInvestmentExceeded
	}
	if usdAmount.Cmp(new(big.Int).SetUint64(saleRecord.MinInvestment)) < 0 {
		return nil, events.Deposit{}, ErrSaleMinInvestmentNotReached
	}
	sold := new(big.Int).Add(roundRecord.TotalSold, tokenAmount)
	if sold.Cmp(roundRecord.TotalSupply) > 0 {
		return nil, events.Deposit{}, ErrRoundSupplyExceeded
	}

	var referralRecord *referral.Referral
	if refKey != noReferral {
		referralRecord, err = e.state.ReferralGetOrCreate(refKey)
		if err != nil {
			return nil, events.Deposit{}, err
		}
	}
	assetReward, tokenReward := computeReward(saleRecord, referralRecord, amount, tokenAmount)
	// Override rates are uncapped, so the cut could nominally exceed the
	// gross amount; the principal subtraction below must never wrap.
	if assetReward > amount {
		return nil, events.Deposit{}, ErrSaleRewardExceedsDeposit
	}

	// Principal to the treasury, the referral cut to the referrer's escrow.
	// Both transfers succeed or the whole contribution is rejected.
	if err := e.transfer(asset, payer, e.treasury, amount-assetReward); err != nil {
		return nil, events.Deposit{}, err
	}
	if assetReward > 0 {
		if err := e.transfer(asset, payer, referral.EscrowAddress(refKey), assetReward); err != nil {
			return nil, events.Deposit{}, err
		}
	}

	saleRecord.AccrueSold(tokenAmount)
	roundRecord.AccrueSold(tokenAmount)
	if err := e.state.SalePut(saleRecord); err != nil {
		return nil, events.Deposit{}, err
	}
	if err := e.state.RoundPut(roundRecord); err != nil {
		return nil, events.Deposit{}, err
	}
	beneficiaryRecord, err := e.state.BeneficiaryGetOrCreate(payer)
	if err != nil {
		return nil, events.Deposit{}, err
	}
	beneficiaryRecord.Accrue(tokenAmount)
	if err := e.state.BeneficiaryPut(payer, beneficiaryRecord); err != nil {
		return nil, events.Deposit{}, err
	}
	if referralRecord != nil {
		referralRecord.Accrue(asset, assetReward)
		referralRecord.AccrueTokens(tokenReward)
		if err := e.state.ReferralPut(refKey, referralRecord); err != nil {
			return nil, events.Deposit{}, err
		}
	}

	evt := events.Deposit{
		Asset:       asset,
		Round:       roundRecord.ID,
		Beneficiary: payer,
		Referral:    refKey,
		Amount:      amount,
		TokenAmount: new(big.Int).Set(tokenAmount),
	}
	return tokenAmount, evt, nil
}
