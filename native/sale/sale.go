package sale

import "math/big"

// Sale is the process-wide singleton: global investment bounds, default
// referral reward rates, the cumulative sold counter and the pointer to the
// currently active round (-1 when none is active).
type Sale struct {
	MaxInvestment   uint64
	MinInvestment   uint64
	MainReward      uint64
	SecondaryReward uint64
	TotalSold       *big.Int
	Round           int16
	State           State
}

// NewSale returns a sale initialised with the default bounds and rates and no
// active round.
func NewSale() *Sale {
	return &Sale{
		MaxInvestment:   DefaultMaxInvestment,
		MinInvestment:   DefaultMinInvestment,
		MainReward:      DefaultMainReward,
		SecondaryReward: DefaultSecondaryReward,
		TotalSold:       big.NewInt(0),
		Round:           -1,
		State:           StateNone,
	}
}

// SetInvestment updates the global bounds. The max must cover the min.
func (s *Sale) SetInvestment(maxInvestment, minInvestment uint64) error {
	if maxInvestment < minInvestment {
		return ErrSaleMinInvestmentTooLarge
	}
	s.MaxInvestment = maxInvestment
	s.MinInvestment = minInvestment
	return nil
}

// SetReward updates the default referral reward rates. Neither may exceed
// 100% at the nine-decimal scale.
func (s *Sale) SetReward(mainReward, secondaryReward uint64) error {
	if mainReward > RewardDenominator {
		return ErrSaleMainRewardTooLarge
	}
	if secondaryReward > RewardDenominator {
		return ErrSaleSecondaryRewardTooLarge
	}
	s.MainReward = mainReward
	s.SecondaryReward = secondaryReward
	return nil
}

// Open moves the sale from None to Opened. The lifecycle never moves
// backward, so an opened or closed sale cannot be opened again.
func (s *Sale) Open() error {
	if s.State == StateOpened || s.State == StateClosed {
		return ErrSaleOpened
	}
	s.State = StateOpened
	return nil
}

// Close moves the sale from Opened to the terminal Closed state.
func (s *Sale) Close() error {
	if s.State != StateOpened {
		return ErrSaleClosed
	}
	s.State = StateClosed
	return nil
}

// SetRound points the sale at the active round. Invoked by the round-open
// transition only.
func (s *Sale) SetRound(id int16) {
	s.Round = id
}

// AccrueSold adds the purchased token amount to the cumulative counter.
func (s *Sale) AccrueSold(amount *big.Int) {
	if amount == nil {
		return
	}
	if s.TotalSold == nil {
		s.TotalSold = big.NewInt(0)
	}
	s.TotalSold = new(big.Int).Add(s.TotalSold, amount)
}

// IsOpen reports whether the sale accepts contributions.
func (s *Sale) IsOpen() bool {
	return s.State == StateOpened
}

// Clone returns a deep copy of the sale record.
func (s *Sale) Clone() *Sale {
	if s == nil {
		return nil
	}
	clone := *s
	if s.TotalSold != nil {
		clone.TotalSold = new(big.Int).Set(s.TotalSold)
	} else {
		clone.TotalSold = big.NewInt(0)
	}
	return &clone
}
