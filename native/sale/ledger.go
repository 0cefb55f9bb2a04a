package sale

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"salechain/core/types"
	"salechain/native/referral"
	"salechain/storage"
)

type storedSale struct {
	MaxInvestment   uint64
	MinInvestment   uint64
	MainReward      uint64
	SecondaryReward uint64
	TotalSold       string
	Round           string
	State           uint8
}

type storedRound struct {
	ID          string
	Price       uint64
	TotalSold   string
	TotalSupply string
	State       uint8
}

type storedBeneficiary struct {
	TokenAmount string
}

type storedAccount struct {
	Nonce       uint64
	BalanceSOL  string
	BalanceUSDT string
	BalanceUSDC string
}

// Ledger is the key-value state backend shared by the sale and referral
// engines. Every record is persisted as an RLP-encoded stored struct with
// big.Int fields carried as decimal strings.
//
// The ledger also owns per-call atomicity: mutating engine calls run between
// Begin and Commit or Rollback, which serialises calls against each other and
// stages each call's writes so they land as one batch or not at all.
type Ledger struct {
	db        storage.Database
	referrals *referral.Store

	callMu  sync.Mutex
	stageMu sync.RWMutex
	pending map[string][]byte
}

var _ storage.Database = (*Ledger)(nil)

// NewLedger constructs a ledger bound to the provided database. The referral
// store is layered over the ledger itself so its writes join the call stage.
func NewLedger(db storage.Database) *Ledger {
	l := &Ledger{db: db}
	l.referrals = referral.NewStore(l)
	return l
}

// Begin acquires the call lock and starts staging writes.
func (l *Ledger) Begin() {
	l.callMu.Lock()
	l.stageMu.Lock()
	l.pending = make(map[string][]byte)
	l.stageMu.Unlock()
}

// Commit applies the staged writes as one batch and releases the call lock.
func (l *Ledger) Commit() error {
	defer l.callMu.Unlock()
	l.stageMu.Lock()
	staged := l.pending
	l.pending = nil
	l.stageMu.Unlock()
	batch := storage.NewBatch()
	for key, value := range staged {
		batch.Put([]byte(key), value)
	}
	return l.db.Write(batch)
}

// Rollback discards the staged writes and releases the call lock.
func (l *Ledger) Rollback() {
	l.stageMu.Lock()
	l.pending = nil
	l.stageMu.Unlock()
	l.callMu.Unlock()
}

// Get implements storage.Database. Reads inside a staged call see that call's
// own writes.
func (l *Ledger) Get(key []byte) ([]byte, error) {
	l.stageMu.RLock()
	if l.pending != nil {
		if value, ok := l.pending[string(key)]; ok {
			buf := make([]byte, len(value))
			copy(buf, value)
			l.stageMu.RUnlock()
			return buf, nil
		}
	}
	l.stageMu.RUnlock()
	return l.db.Get(key)
}

// Put implements storage.Database, staging the write while a call is active.
func (l *Ledger) Put(key []byte, value []byte) error {
	l.stageMu.Lock()
	if l.pending != nil {
		buf := make([]byte, len(value))
		copy(buf, value)
		l.pending[string(key)] = buf
		l.stageMu.Unlock()
		return nil
	}
	l.stageMu.Unlock()
	return l.db.Put(key, value)
}

// Write implements storage.Database.
func (l *Ledger) Write(batch *storage.Batch) error { return l.db.Write(batch) }

// Close implements storage.Database.
func (l *Ledger) Close() { l.db.Close() }

func (l *Ledger) kvGet(key []byte, out interface{}) (bool, error) {
	raw, err := l.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("ledger: decode %q: %w", key, err)
	}
	return true, nil
}

func (l *Ledger) kvPut(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return l.Put(key, encoded)
}

// SaleGet loads the sale singleton.
func (l *Ledger) SaleGet() (*Sale, bool, error) {
	var stored storedSale
	ok, err := l.kvGet(saleKey, &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	record, err := saleFromStored(&stored)
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

// SalePut persists the sale singleton.
func (l *Ledger) SalePut(record *Sale) error {
	if record == nil {
		return fmt.Errorf("ledger: sale record must not be nil")
	}
	return l.kvPut(saleKey, saleToStored(record))
}

// RoundGet loads a round by id.
func (l *Ledger) RoundGet(id int16) (*Round, bool, error) {
	var stored storedRound
	ok, err := l.kvGet(roundKey(id), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	record, err := roundFromStored(&stored)
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

// RoundPut persists a round record under its immutable id.
func (l *Ledger) RoundPut(record *Round) error {
	if record == nil {
		return fmt.Errorf("ledger: round record must not be nil")
	}
	return l.kvPut(roundKey(record.ID), roundToStored(record))
}

// BeneficiaryGetOrCreate loads a contributor's cumulative record, defaulting
// to an empty one on first touch.
func (l *Ledger) BeneficiaryGetOrCreate(addr [20]byte) (*Beneficiary, error) {
	var stored storedBeneficiary
	ok, err := l.kvGet(beneficiaryKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return NewBeneficiary(), nil
	}
	amount, parseOK := new(big.Int).SetString(stored.TokenAmount, 10)
	if !parseOK {
		return nil, fmt.Errorf("ledger: invalid beneficiary amount %q", stored.TokenAmount)
	}
	return &Beneficiary{TokenAmount: amount}, nil
}

// BeneficiaryPut persists a contributor's cumulative record.
func (l *Ledger) BeneficiaryPut(addr [20]byte, record *Beneficiary) error {
	if record == nil {
		return fmt.Errorf("ledger: beneficiary record must not be nil")
	}
	amount := "0"
	if record.TokenAmount != nil {
		amount = record.TokenAmount.String()
	}
	return l.kvPut(beneficiaryKey(addr), &storedBeneficiary{TokenAmount: amount})
}

// ReferralGet loads the referral record for a referrer key.
func (l *Ledger) ReferralGet(referrer [20]byte) (*referral.Referral, bool, error) {
	return l.referrals.Get(referrer)
}

// ReferralGetOrCreate loads the referral record for a referrer key, defaulting
// to a zero-valued one on first touch.
func (l *Ledger) ReferralGetOrCreate(referrer [20]byte) (*referral.Referral, error) {
	return l.referrals.GetOrCreate(referrer)
}

// ReferralPut persists the referral record for a referrer key.
func (l *Ledger) ReferralPut(referrer [20]byte, record *referral.Referral) error {
	return l.referrals.Put(referrer, record)
}

// GetAccount loads the balance account for an address, defaulting to an empty
// account when none exists.
func (l *Ledger) GetAccount(addr [20]byte) (*types.Account, error) {
	var stored storedAccount
	ok, err := l.kvGet(accountKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return (&types.Account{}).EnsureBalances(), nil
	}
	return accountFromStored(&stored)
}

// PutAccount persists the balance account for an address.
func (l *Ledger) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("ledger: account must not be nil")
	}
	account.EnsureBalances()
	stored := &storedAccount{
		Nonce:       account.Nonce,
		BalanceSOL:  account.BalanceSOL.String(),
		BalanceUSDT: account.BalanceUSDT.String(),
		BalanceUSDC: account.BalanceUSDC.String(),
	}
	return l.kvPut(accountKey(addr), stored)
}

func saleToStored(record *Sale) *storedSale {
	totalSold := "0"
	if record.TotalSold != nil {
		totalSold = record.TotalSold.String()
	}
	return &storedSale{
		MaxInvestment:   record.MaxInvestment,
		MinInvestment:   record.MinInvestment,
		MainReward:      record.MainReward,
		SecondaryReward: record.SecondaryReward,
		TotalSold:       totalSold,
		Round:           strconv.FormatInt(int64(record.Round), 10),
		State:           uint8(record.State),
	}
}

func saleFromStored(stored *storedSale) (*Sale, error) {
	totalSold, ok := new(big.Int).SetString(stored.TotalSold, 10)
	if !ok {
		return nil, fmt.Errorf("ledger: invalid sale total sold %q", stored.TotalSold)
	}
	round, err := strconv.ParseInt(stored.Round, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("ledger: invalid sale round %q: %w", stored.Round, err)
	}
	state := State(stored.State)
	if !state.Valid() {
		return nil, fmt.Errorf("ledger: invalid sale state %d", stored.State)
	}
	return &Sale{
		MaxInvestment:   stored.MaxInvestment,
		MinInvestment:   stored.MinInvestment,
		MainReward:      stored.MainReward,
		SecondaryReward: stored.SecondaryReward,
		TotalSold:       totalSold,
		Round:           int16(round),
		State:           state,
	}, nil
}

func roundToStored(record *Round) *storedRound {
	totalSold := "0"
	if record.TotalSold != nil {
		totalSold = record.TotalSold.String()
	}
	totalSupply := "0"
	if record.TotalSupply != nil {
		totalSupply = record.TotalSupply.String()
	}
	return &storedRound{
		ID:          strconv.FormatInt(int64(record.ID), 10),
		Price:       record.Price,
		TotalSold:   totalSold,
		TotalSupply: totalSupply,
		State:       uint8(record.State),
	}
}

func roundFromStored(stored *storedRound) (*Round, error) {
	id, err := strconv.ParseInt(stored.ID, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("ledger: invalid round id %q: %w", stored.ID, err)
	}
	totalSold, ok := new(big.Int).SetString(stored.TotalSold, 10)
	if !ok {
		return nil, fmt.Errorf("ledger: invalid round total sold %q", stored.TotalSold)
	}
	totalSupply, ok := new(big.Int).SetString(stored.TotalSupply, 10)
	if !ok {
		return nil, fmt.Errorf("ledger: invalid round total supply %q", stored.TotalSupply)
	}
	state := State(stored.State)
	if !state.Valid() {
		return nil, fmt.Errorf("ledger: invalid round state %d", stored.State)
	}
	return &Round{
		ID:          int16(id),
		Price:       stored.Price,
		TotalSold:   totalSold,
		TotalSupply: totalSupply,
		State:       state,
	}, nil
}

func accountFromStored(stored *storedAccount) (*types.Account, error) {
	balanceSOL, ok := new(big.Int).SetString(stored.BalanceSOL, 10)
	if !ok {
		return nil, fmt.Errorf("ledger: invalid SOL balance %q", stored.BalanceSOL)
	}
	balanceUSDT, ok := new(big.Int).SetString(stored.BalanceUSDT, 10)
	if !ok {
		return nil, fmt.Errorf("ledger: invalid USDT balance %q", stored.BalanceUSDT)
	}
	balanceUSDC, ok := new(big.Int).SetString(stored.BalanceUSDC, 10)
	if !ok {
		return nil, fmt.Errorf("ledger: invalid USDC balance %q", stored.BalanceUSDC)
	}
	return &types.Account{
		Nonce:       stored.Nonce,
		BalanceSOL:  balanceSOL,
		BalanceUSDT: balanceUSDT,
		BalanceUSDC: balanceUSDC,
	}, nil
}
