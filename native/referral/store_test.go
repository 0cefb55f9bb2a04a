package referral

import (
	"math/big"
	"testing"

	"salechain/core/types"
	"salechain/storage"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(storage.NewMemDB())
	referrer := testAddress(0x42)

	if _, ok, err := store.Get(referrer); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	record := New(100_000_000, 50_000_000)
	record.Accrue(types.AssetSOL, 11)
	record.Accrue(types.AssetUSDT, 22)
	record.Accrue(types.AssetUSDC, 33)
	record.AccrueTokens(big.NewInt(44))
	record.Disable()
	if err := store.Put(referrer, record); err != nil {
		t.Fatalf("put: %v", err)
	}

	loaded, ok, err := store.Get(referrer)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if loaded.MainReward != 100_000_000 || loaded.SecondaryReward != 50_000_000 {
		t.Fatalf("rates lost: %+v", loaded)
	}
	if loaded.SOLRewardAmount != 11 || loaded.USDTRewardAmount != 22 || loaded.USDCRewardAmount != 33 {
		t.Fatalf("balances lost: %+v", loaded)
	}
	if loaded.TokenRewardAmount.Cmp(big.NewInt(44)) != 0 {
		t.Fatalf("token reward = %s", loaded.TokenRewardAmount)
	}
	if loaded.Enabled {
		t.Fatal("enabled flag lost")
	}
}

func TestStoreGetOrCreate(t *testing.T) {
	store := NewStore(storage.NewMemDB())
	referrer := testAddress(0x43)

	record, err := store.GetOrCreate(referrer)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if record.MainReward != 0 || record.SecondaryReward != 0 || record.Enabled {
		t.Fatalf("first-touch record not zero valued: %+v", record)
	}

	// First-touch records are not persisted until written back.
	if _, ok, err := store.Get(referrer); err != nil || ok {
		t.Fatalf("record persisted prematurely: ok=%v err=%v", ok, err)
	}
	record.Accrue(types.AssetUSDT, 5)
	if err := store.Put(referrer, record); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok, err := store.Get(referrer); err != nil || !ok {
		t.Fatalf("record missing after put: ok=%v err=%v", ok, err)
	}
}

func TestStoreKeysAreScopedPerReferrer(t *testing.T) {
	store := NewStore(storage.NewMemDB())

	if err := store.Put(testAddress(0x01), New(1, 1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok, err := store.Get(testAddress(0x02)); err != nil || ok {
		t.Fatalf("unrelated referrer resolved: ok=%v err=%v", ok, err)
	}
}
