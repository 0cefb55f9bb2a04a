package sale

const (
	// Precision is the fixed-point scale for USD-equivalent and token
	// amounts: nine decimal places.
	Precision = 9
	// RewardDenominator encodes 100% at the nine-decimal reward scale.
	RewardDenominator = 1_000_000_000
	// StablePrecision is the decimal scale-up applied to stablecoin amounts
	// to reach the USD-equivalent unit. Stable assets are assumed already
	// USD-pegged, so this conversion replaces an oracle call.
	StablePrecision = 3
)

// Defaults applied when the sale singleton is initialised.
const (
	DefaultMaxInvestment   uint64 = 1_000_000_000_000_000
	DefaultMinInvestment   uint64 = 100_000_000_000
	DefaultMainReward      uint64 = 50_000_000
	DefaultSecondaryReward uint64 = 50_000_000
)
