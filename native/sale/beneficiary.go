package sale

import "math/big"

// Beneficiary is a contributor's cumulative purchased-token record, created
// lazily on first contribution.
type Beneficiary struct {
	TokenAmount *big.Int
}

// NewBeneficiary returns an empty beneficiary record.
func NewBeneficiary() *Beneficiary {
	return &Beneficiary{TokenAmount: big.NewInt(0)}
}

// Accrue adds the purchased token amount to the cumulative record.
func (b *Beneficiary) Accrue(amount *big.Int) {
	if amount == nil {
		return
	}
	if b.TokenAmount == nil {
		b.TokenAmount = big.NewInt(0)
	}
	b.TokenAmount = new(big.Int).Add(b.TokenAmount, amount)
}

// Clone returns a deep copy of the beneficiary record.
func (b *Beneficiary) Clone() *Beneficiary {
	if b == nil {
		return nil
	}
	clone := *b
	if b.TokenAmount != nil {
		clone.TokenAmount = new(big.Int).Set(b.TokenAmount)
	} else {
		clone.TokenAmount = big.NewInt(0)
	}
	return &clone
}
