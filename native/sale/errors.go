package sale

import "errors"

var (
	ErrUnauthorized                = errors.New("sale: unauthorized")
	ErrSaleExists                  = errors.New("sale: already initialised")
	ErrSaleOpened                  = errors.New("sale: sale already opened")
	ErrSaleClosed                  = errors.New("sale: sale already closed")
	ErrSaleNotOpened               = errors.New("sale: sale not opened")
	ErrSaleMinInvestmentTooLarge   = errors.New("sale: min investment larger than max investment")
	ErrSaleMinInvestmentNotReached = errors.New("sale: min investment not reached")
	ErrSaleMaxInvestmentExceeded   = errors.New("sale: max investment exceeded")
	ErrSaleMainRewardTooLarge      = errors.New("sale: main referral reward too large")
	ErrSaleSecondaryRewardTooLarge = errors.New("sale: secondary referral reward too large")
	ErrRoundExists                 = errors.New("sale: round already initialised")
	ErrRoundNotFound               = errors.New("sale: round not found")
	ErrRoundSupplyTooSmall         = errors.New("sale: round supply is too small")
	ErrRoundOpened                 = errors.New("sale: round already opened")
	ErrRoundClosed                 = errors.New("sale: round already closed")
	ErrRoundNotOpened              = errors.New("sale: round not opened")
	ErrRoundSupplyExceeded         = errors.New("sale: round total supply exceeded")
	ErrRoundPriceNotSet            = errors.New("sale: round price not set")
	ErrSaleRewardExceedsDeposit    = errors.New("sale: referral reward exceeds deposit")
	ErrInactiveRound               = errors.New("sale: inactive round")
	ErrWrongPriceFeed              = errors.New("sale: wrong price feed account")
	ErrWrongTreasury               = errors.New("sale: wrong treasury account")
	ErrPriceIsDown                 = errors.New("sale: oracle price is down")
	ErrInsufficientFunds           = errors.New("sale: insufficient funds")
)
