package sale

import (
	"fmt"
	"math/big"
	"time"
)

// PriceQuote is a single observation from the external price source: an
// unsigned integer price with a decimal exponent, so the quoted value is
// Price / 10^Expo USD per native unit.
type PriceQuote struct {
	Price     *big.Int
	Expo      uint32
	Timestamp time.Time
}

// QuoteOracle is the read-only external price source for the native asset.
// Implementations may fail; the engine surfaces any failure as ErrPriceIsDown.
type QuoteOracle interface {
	Quote() (*PriceQuote, error)
}

// FixedOracle returns a constant quote stamped with the current time. It
// serves tests and local runs where no live feed is available.
type FixedOracle struct {
	Price uint64
	Expo  uint32
	now   func() time.Time
}

// NewFixedOracle constructs a fixed oracle for the supplied price and
// exponent.
func NewFixedOracle(price uint64, expo uint32) *FixedOracle {
	return &FixedOracle{Price: price, Expo: expo, now: time.Now}
}

// SetClock overrides the time source, primarily for deterministic testing.
func (o *FixedOracle) SetClock(now func() time.Time) {
	if o == nil || now == nil {
		return
	}
	o.now = now
}

// Quote implements the QuoteOracle interface.
func (o *FixedOracle) Quote() (*PriceQuote, error) {
	if o == nil {
		return nil, fmt.Errorf("fixed oracle not configured")
	}
	return &PriceQuote{
		Price:     new(big.Int).SetUint64(o.Price),
		Expo:      o.Expo,
		Timestamp: o.now(),
	}, nil
}

// StalenessGuard wraps an oracle and rejects quotes older than the configured
// window. A zero maxAge disables the age check.
type StalenessGuard struct {
	oracle QuoteOracle
	maxAge time.Duration
	now    func() time.Time
}

// NewStalenessGuard constructs a guard over the supplied oracle.
func NewStalenessGuard(oracle QuoteOracle, maxAge time.Duration) *StalenessGuard {
	return &StalenessGuard{oracle: oracle, maxAge: maxAge, now: time.Now}
}

// SetClock overrides the guard clock for deterministic testing.
func (g *StalenessGuard) SetClock(now func() time.Time) {
	if g == nil || now == nil {
		return
	}
	g.now = now
}

// Quote returns the wrapped oracle's quote, failing with ErrPriceIsDown when
// the source errors, returns an unusable price, or the quote is stale.
func (g *StalenessGuard) Quote() (*PriceQuote, error) {
	if g == nil || g.oracle == nil {
		return nil, fmt.Errorf("staleness guard: oracle not configured")
	}
	quote, err := g.oracle.Quote()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPriceIsDown, err)
	}
	if quote == nil || quote.Price == nil || quote.Price.Sign() <= 0 {
		return nil, ErrPriceIsDown
	}
	if g.maxAge > 0 {
		if quote.Timestamp.IsZero() {
			return nil, ErrPriceIsDown
		}
		if g.now().Sub(quote.Timestamp) > g.maxAge {
			return nil, ErrPriceIsDown
		}
	}
	return quote, nil
}

// usdEquivalent converts a gross native amount into the nine-decimal
// USD-equivalent unit using the supplied quote: amount * price / 10^expo.
func usdEquivalent(amount uint64, quote *PriceQuote) *big.Int {
	usd := new(big.Int).Mul(new(big.Int).SetUint64(amount), quote.Price)
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(quote.Expo)), nil)
	return usd.Quo(usd, divisor)
}
