package types

import (
	"math/big"
	"testing"
)

func TestParseAsset(t *testing.T) {
	cases := []struct {
		in      string
		want    Asset
		wantErr bool
	}{
		{"SOL", AssetSOL, false},
		{"usdt", AssetUSDT, false},
		{" Usdc ", AssetUSDC, false},
		{"BTC", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ParseAsset(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseAsset(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseAsset(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseAsset(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAssetStable(t *testing.T) {
	if AssetSOL.Stable() {
		t.Fatal("SOL is not a stablecoin")
	}
	if !AssetUSDT.Stable() || !AssetUSDC.Stable() {
		t.Fatal("USDT and USDC are stablecoins")
	}
}

func TestAccountBalances(t *testing.T) {
	account := (&Account{}).EnsureBalances()
	if account.Balance(AssetUSDT).Sign() != 0 {
		t.Fatalf("fresh balance = %s", account.Balance(AssetUSDT))
	}

	account.SetBalance(AssetUSDT, big.NewInt(10))
	if account.Balance(AssetUSDT).Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("balance = %s", account.Balance(AssetUSDT))
	}
	// Other assets are untouched.
	if account.Balance(AssetSOL).Sign() != 0 || account.Balance(AssetUSDC).Sign() != 0 {
		t.Fatal("balance leak across assets")
	}
}

func TestAccountClone(t *testing.T) {
	account := (&Account{Nonce: 2}).EnsureBalances()
	account.SetBalance(AssetSOL, big.NewInt(5))

	clone := account.Clone()
	clone.SetBalance(AssetSOL, big.NewInt(99))
	if account.Balance(AssetSOL).Cmp(big.NewInt(5)) != 0 {
		t.Fatal("clone aliases the original balances")
	}
	if clone.Nonce != 2 {
		t.Fatalf("nonce = %d", clone.Nonce)
	}
}
