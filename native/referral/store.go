package referral

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"salechain/storage"
)

var referralPrefix = []byte("sale/referral/")

func referralKey(referrer [20]byte) []byte {
	encoded := hex.EncodeToString(referrer[:])
	buf := make([]byte, len(referralPrefix)+len(encoded))
	copy(buf, referralPrefix)
	copy(buf[len(referralPrefix):], encoded)
	return buf
}

type storedReferral struct {
	MainReward        uint64
	SecondaryReward   uint64
	SOLRewardAmount   uint64
	USDTRewardAmount  uint64
	USDCRewardAmount  uint64
	TokenRewardAmount string
	Enabled           bool
}

// Store persists referral records in the underlying key-value store.
type Store struct {
	db storage.Database
}

// NewStore constructs a store bound to the provided database.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

// Get retrieves the referral record for a referrer key.
func (s *Store) Get(referrer [20]byte) (*Referral, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, fmt.Errorf("referral store not initialised")
	}
	raw, err := s.db.Get(referralKey(referrer))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var stored storedReferral
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, false, fmt.Errorf("referral store: decode %x: %w", referrer, err)
	}
	record, err := fromStored(&stored)
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

// GetOrCreate returns the stored record for a referrer, or a zero-valued
// record when none exists yet. Lazily created records carry zero override
// rates so the sale defaults win until an admin initialises the referral.
func (s *Store) GetOrCreate(referrer [20]byte) (*Referral, error) {
	record, ok, err := s.Get(referrer)
	if err != nil {
		return nil, err
	}
	if !ok {
		record = &Referral{TokenRewardAmount: big.NewInt(0)}
	}
	return record, nil
}

// Put persists the referral record for a referrer key.
func (s *Store) Put(referrer [20]byte, record *Referral) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("referral store not initialised")
	}
	if record == nil {
		return fmt.Errorf("referral store: record must not be nil")
	}
	encoded, err := rlp.EncodeToBytes(toStored(record))
	if err != nil {
		return err
	}
	return s.db.Put(referralKey(referrer), encoded)
}

func toStored(record *Referral) *storedReferral {
	stored := &storedReferral{
		MainReward:       record.MainReward,
		SecondaryReward:  record.SecondaryReward,
		SOLRewardAmount:  record.SOLRewardAmount,
		USDTRewardAmount: record.USDTRewardAmount,
		USDCRewardAmount: record.USDCRewardAmount,
		Enabled:          record.Enabled,
	}
	if record.TokenRewardAmount != nil {
		stored.TokenRewardAmount = record.TokenRewardAmount.String()
	} else {
		stored.TokenRewardAmount = "0"
	}
	return stored
}

func fromStored(stored *storedReferral) (*Referral, error) {
	tokenReward, ok := new(big.Int).SetString(stored.TokenRewardAmount, 10)
	if !ok {
		return nil, fmt.Errorf("referral store: invalid token reward amount %q", stored.TokenRewardAmount)
	}
	return &Referral{
		MainReward:        stored.MainReward,
		SecondaryReward:   stored.SecondaryReward,
		SOLRewardAmount:   stored.SOLRewardAmount,
		USDTRewardAmount:  stored.USDTRewardAmount,
		USDCRewardAmount:  stored.USDCRewardAmount,
		TokenRewardAmount: tokenReward,
		Enabled:           stored.Enabled,
	}, nil
}
