package referral

import (
	"errors"
	"fmt"
	"math/big"

	"salechain/core/events"
	"salechain/core/types"
)

var errNilState = errors.New("referral engine: state not configured")

// State is the subset of ledger functionality the referral engine needs: the
// referral records themselves plus the accounts touched when a settlement
// pays out of the referrer's escrow.
type State interface {
	ReferralGet(referrer [20]byte) (*Referral, bool, error)
	ReferralPut(referrer [20]byte, record *Referral) error
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

// Engine owns the admin-facing referral operations and the settlement of
// accrued balances. Settlement executes as one atomic unit against the
// backing ledger: the substrate serialises calls touching the same referral.
type Engine struct {
	state   State
	emitter events.Emitter
	admins  map[[20]byte]struct{}
}

// NewEngine creates a referral engine with a no-op emitter. Callers wire the
// state backend, admin set and emitter before use.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetAdmins replaces the admin allow-list consulted by privileged operations.
func (e *Engine) SetAdmins(admins [][20]byte) {
	set := make(map[[20]byte]struct{}, len(admins))
	for _, admin := range admins {
		set[admin] = struct{}{}
	}
	e.admins = set
}

func (e *Engine) isAdmin(caller [20]byte) bool {
	_, ok := e.admins[caller]
	return ok
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}

// atomicState is implemented by backends that stage writes per call and
// serialise concurrent callers. Map-backed test state runs unscoped.
type atomicState interface {
	Begin()
	Commit() error
	Rollback()
}

// inCall runs fn as one atomic unit against the backing state. Writes made
// inside fn are discarded when it fails, so no partial record survives an
// aborted operation.
func (e *Engine) inCall(fn func() error) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	tx, ok := e.state.(atomicState)
	if !ok {
		return fn()
	}
	tx.Begin()
	if err := fn(); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// InitReferral creates a referral record with explicit override rates.
func (e *Engine) InitReferral(caller, referrer [20]byte, mainReward, secondaryReward uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if !e.isAdmin(caller) {
		return ErrUnauthorized
	}
	return e.inCall(func() error {
		if _, ok, err := e.state.ReferralGet(referrer); err != nil {
			return err
		} else if ok {
			return ErrExists
		}
		return e.state.ReferralPut(referrer, New(mainReward, secondaryReward))
	})
}

// SetReward overwrites the override rates on an existing referral.
func (e *Engine) SetReward(caller, referrer [20]byte, mainReward, secondaryReward uint64) error {
	return e.inCall(func() error {
		record, err := e.loadForAdmin(caller, referrer)
		if err != nil {
			return err
		}
		record.SetReward(mainReward, secondaryReward)
		return e.state.ReferralPut(referrer, record)
	})
}

// Enable marks the referral active.
func (e *Engine) Enable(caller, referrer [20]byte) error {
	return e.inCall(func() error {
		record, err := e.loadForAdmin(caller, referrer)
		if err != nil {
			return err
		}
		record.Enable()
		return e.state.ReferralPut(referrer, record)
	})
}

// Disable marks the referral inactive.
func (e *Engine) Disable(caller, referrer [20]byte) error {
	return e.inCall(func() error {
		record, err := e.loadForAdmin(caller, referrer)
		if err != nil {
			return err
		}
		record.Disable()
		return e.state.ReferralPut(referrer, record)
	})
}

func (e *Engine) loadForAdmin(caller, referrer [20]byte) (*Referral, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if !e.isAdmin(caller) {
		return nil, ErrUnauthorized
	}
	record, ok, err := e.state.ReferralGet(referrer)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return record, nil
}

// Settle redeems the caller's accrued balance in the requested asset. The
// zeroed balance and the escrow payout commit together: a failed payout
// leaves the accrual untouched, and a committed one cannot be double-paid.
// A zero SOL balance is a silent no-op; a zero stable balance fails with
// ErrNoFunds.
func (e *Engine) Settle(caller [20]byte, asset types.Asset) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if !asset.Valid() {
		return 0, fmt.Errorf("referral engine: unsupported asset %q", asset)
	}
	var amount uint64
	err := e.inCall(func() error {
		record, ok, err := e.state.ReferralGet(caller)
		if err != nil {
			return err
		}
		if !ok {
			record = &Referral{TokenRewardAmount: big.NewInt(0)}
		}
		amount = record.Balance(asset)
		if amount == 0 {
			if asset.Stable() {
				return ErrNoFunds
			}
			return nil
		}
		record.Reset(asset)
		if err := e.state.ReferralPut(caller, record); err != nil {
			return err
		}
		return e.payOut(caller, asset, amount)
	})
	if err != nil {
		return 0, err
	}
	if amount > 0 {
		e.emit(events.Withdraw{Asset: asset, Referral: caller, Amount: amount})
	}
	return amount, nil
}

func (e *Engine) payOut(referrer [20]byte, asset types.Asset, amount uint64) error {
	escrowAddr := EscrowAddress(referrer)
	escrowAcc, err := e.state.GetAccount(escrowAddr)
	if err != nil {
		return err
	}
	escrowAcc = escrowAcc.EnsureBalances()
	value := new(big.Int).SetUint64(amount)
	if escrowAcc.Balance(asset).Cmp(value) < 0 {
		return fmt.Errorf("referral engine: escrow balance below accrued %s reward", asset)
	}
	recipient, err := e.state.GetAccount(referrer)
	if err != nil {
		return err
	}
	recipient = recipient.EnsureBalances()

	escrowAcc.SetBalance(asset, new(big.Int).Sub(escrowAcc.Balance(asset), value))
	recipient.SetBalance(asset, new(big.Int).Add(recipient.Balance(asset), value))

	if err := e.state.PutAccount(escrowAddr, escrowAcc); err != nil {
		return err
	}
	return e.state.PutAccount(referrer, recipient)
}
