package sale

import (
	"math/big"

	"salechain/native/referral"
)

var rewardDenominator = big.NewInt(RewardDenominator)

// computeReward derives the referral split for one contribution. With no
// referral relationship both components are zero. Otherwise the effective
// rates are the componentwise max of the sale defaults and the per-referrer
// overrides: an override can raise a reward above the default, never lower
// it. Products are taken in big.Int before the truncating division so the
// multiply cannot overflow; rewards round down.
func computeReward(s *Sale, record *referral.Referral, amount uint64, tokenAmount *big.Int) (uint64, *big.Int) {
	if record == nil {
		return 0, big.NewInt(0)
	}

	mainReward := s.MainReward
	if record.MainReward > mainReward {
		mainReward = record.MainReward
	}
	secondaryReward := s.SecondaryReward
	if record.SecondaryReward > secondaryReward {
		secondaryReward = record.SecondaryReward
	}

	assetReward := new(big.Int).Mul(new(big.Int).SetUint64(amount), new(big.Int).SetUint64(mainReward))
	assetReward.Quo(assetReward, rewardDenominator)

	tokens := big.NewInt(0)
	if tokenAmount != nil {
		tokens = new(big.Int).Set(tokenAmount)
	}
	tokenReward := tokens.Mul(tokens, new(big.Int).SetUint64(secondaryReward))
	tokenReward.Quo(tokenReward, rewardDenominator)

	return assetReward.Uint64(), tokenReward
}
