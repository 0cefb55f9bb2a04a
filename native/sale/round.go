package sale

import "math/big"

// Round is one time-boxed sub-sale with its own fixed token price and supply
// cap. The id is immutable after creation and the price freezes once the
// round leaves None.
type Round struct {
	ID          int16
	Price       uint64
	TotalSold   *big.Int
	TotalSupply *big.Int
	State       State
}

// NewRound returns a round in the None state with nothing sold.
func NewRound(id int16, price uint64, totalSupply *big.Int) *Round {
	supply := big.NewInt(0)
	if totalSupply != nil {
		supply = new(big.Int).Set(totalSupply)
	}
	return &Round{
		ID:          id,
		Price:       price,
		TotalSold:   big.NewInt(0),
		TotalSupply: supply,
		State:       StateNone,
	}
}

// SetPrice updates the token price. Only valid while the round is still None.
func (r *Round) SetPrice(price uint64) error {
	if r.State == StateOpened || r.State == StateClosed {
		return ErrRoundOpened
	}
	r.Price = price
	return nil
}

// SetTotalSupply updates the supply cap. The cap can never drop below what
// has already been sold.
func (r *Round) SetTotalSupply(totalSupply *big.Int) error {
	supply := big.NewInt(0)
	if totalSupply != nil {
		supply = new(big.Int).Set(totalSupply)
	}
	if r.sold().Cmp(supply) > 0 {
		return ErrRoundSupplyTooSmall
	}
	r.TotalSupply = supply
	return nil
}

// Open moves the round from None to Opened. The caller must also point the
// sale at this round's id; that cross-entity effect is owned by the engine.
func (r *Round) Open() error {
	if r.State == StateOpened || r.State == StateClosed {
		return ErrRoundOpened
	}
	r.State = StateOpened
	return nil
}

// Close moves the round from Opened to the terminal Closed state.
func (r *Round) Close() error {
	if r.State != StateOpened {
		return ErrRoundClosed
	}
	r.State = StateClosed
	return nil
}

// AccrueSold adds the purchased token amount unconditionally; the engine
// checks the supply cap before invoking this.
func (r *Round) AccrueSold(amount *big.Int) {
	if amount == nil {
		return
	}
	r.TotalSold = new(big.Int).Add(r.sold(), amount)
}

// IsOpen reports whether the round accepts contributions.
func (r *Round) IsOpen() bool {
	return r.State == StateOpened
}

func (r *Round) sold() *big.Int {
	if r.TotalSold == nil {
		return big.NewInt(0)
	}
	return r.TotalSold
}

// Clone returns a deep copy of the round record.
func (r *Round) Clone() *Round {
	if r == nil {
		return nil
	}
	clone := *r
	if r.TotalSold != nil {
		clone.TotalSold = new(big.Int).Set(r.TotalSold)
	} else {
		clone.TotalSold = big.NewInt(0)
	}
	if r.TotalSupply != nil {
		clone.TotalSupply = new(big.Int).Set(r.TotalSupply)
	} else {
		clone.TotalSupply = big.NewInt(0)
	}
	return &clone
}
