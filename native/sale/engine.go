package sale

import (
	"errors"
	"math/big"

	"salechain/core/events"
	"salechain/core/types"
	"salechain/native/referral"
)

var errNilState = errors.New("sale engine: state not configured")

// engineState is the subset of ledger functionality the sale engine needs.
// Each call against the engine executes as one atomic unit over this backend;
// the substrate serialises calls that touch overlapping records.
type engineState interface {
	SaleGet() (*Sale, bool, error)
	SalePut(record *Sale) error
	RoundGet(id int16) (*Round, bool, error)
	RoundPut(record *Round) error
	BeneficiaryGetOrCreate(addr [20]byte) (*Beneficiary, error)
	BeneficiaryPut(addr [20]byte, record *Beneficiary) error
	ReferralGetOrCreate(referrer [20]byte) (*referral.Referral, error)
	ReferralPut(referrer [20]byte, record *referral.Referral) error
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

// Engine wires the sale and round state machines with the contribution
// protocol. Admin-gated operations consult an injected allow-list; the
// deposit paths are open to any caller the host has authenticated.
type Engine struct {
	state     engineState
	emitter   events.Emitter
	oracle    QuoteOracle
	admins    map[[20]byte]struct{}
	treasury  [20]byte
	priceFeed [20]byte
}

// NewEngine creates a sale engine with a no-op emitter. Callers wire the
// state backend, oracle, admin set and identity configuration before use.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetOracle configures the price source used by the native deposit path.
func (e *Engine) SetOracle(oracle QuoteOracle) { e.oracle = oracle }

// SetAdmins replaces the admin allow-list consulted by privileged operations.
func (e *Engine) SetAdmins(admins [][20]byte) {
	set := make(map[[20]byte]struct{}, len(admins))
	for _, admin := range admins {
		set[admin] = struct{}{}
	}
	e.admins = set
}

// SetTreasury configures the treasury account receiving contribution
// principal.
func (e *Engine) SetTreasury(addr [20]byte) { e.treasury = addr }

// SetPriceFeed configures the expected price feed identity for the native
// deposit path.
func (e *Engine) SetPriceFeed(addr [20]byte) { e.priceFeed = addr }

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

// atomicState is implemented by backends that scope one call's writes into a
// single commit and serialise calls against each other. The Ledger implements
// it; plain map-backed states run calls unscoped.
type atomicState interface {
	Begin()
	Commit() error
	Rollback()
}

// inCall runs one engine call. When the backend supports call scoping, the
// call's writes either all commit or are all discarded on failure.
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

// InitSale creates the sale singleton with the default bounds and rates.
func (e *Engine) InitSale() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return e.inCall(func() error {
		if _, ok, err := e.state.SaleGet(); err != nil {
			return err
		} else if ok {
			return ErrSaleExists
		}
		return e.state.SalePut(NewSale())
	})
}

// SetSaleInvestment updates the global investment bounds.
func (e *Engine) SetSaleInvestment(caller [20]byte, maxInvestment, minInvestment uint64) error {
	return e.inCall(func() error {
		record, err := e.loadSaleForAdmin(caller)
		if err != nil {
			return err
		}
		if err := record.SetInvestment(maxInvestment, minInvestment); err != nil {
			return err
		}
		return e.state.SalePut(record)
	})
}

// SetSaleReward updates the default referral reward rates.
func (e *Engine) SetSaleReward(caller [20]byte, mainReward, secondaryReward uint64) error {
	return e.inCall(func() error {
		record, err := e.loadSaleForAdmin(caller)
		if err != nil {
			return err
		}
		if err := record.SetReward(mainReward, secondaryReward); err != nil {
			return err
		}
		return e.state.SalePut(record)
	})
}

// OpenSale moves the sale into the Opened state.
func (e *Engine) OpenSale(caller [20]byte) error {
	return e.inCall(func() error {
		record, err := e.loadSaleForAdmin(caller)
		if err != nil {
			return err
		}
		if err := record.Open(); err != nil {
			return err
		}
		return e.state.SalePut(record)
	})
}

// CloseSale terminates the sale.
func (e *Engine) CloseSale(caller [20]byte) error {
	return e.inCall(func() error {
		record, err := e.loadSaleForAdmin(caller)
		if err != nil {
			return err
		}
		if err := record.Close(); err != nil {
			return err
		}
		return e.state.SalePut(record)
	})
}

// InitRound creates a round in the None state.
func (e *Engine) InitRound(caller [20]byte, id int16, price uint64, totalSupply *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return e.inCall(func() error {
		if !e.isAdmin(caller) {
			return ErrUnauthorized
		}
		if _, ok, err := e.state.RoundGet(id); err != nil {
			return err
		} else if ok {
			return ErrRoundExists
		}
		return e.state.RoundPut(NewRound(id, price, totalSupply))
	})
}

// SetRoundPrice updates the round price while the round is still None.
func (e *Engine) SetRoundPrice(caller [20]byte, id int16, price uint64) error {
	return e.inCall(func() error {
		record, err := e.loadRoundForAdmin(caller, id)
		if err != nil {
			return err
		}
		if err := record.SetPrice(price); err != nil {
			return err
		}
		return e.state.RoundPut(record)
	})
}

// SetRoundSupply updates the round supply cap.
func (e *Engine) SetRoundSupply(caller [20]byte, id int16, totalSupply *big.Int) error {
	return e.inCall(func() error {
		record, err := e.loadRoundForAdmin(caller, id)
		if err != nil {
			return err
		}
		if err := record.SetTotalSupply(totalSupply); err != nil {
			return err
		}
		return e.state.RoundPut(record)
	})
}

// OpenRound opens the round and points the sale at it as the active round.
// The cross-entity pointer update is owned here, not by the round machine.
func (e *Engine) OpenRound(caller [20]byte, id int16) error {
	return e.inCall(func() error {
		record, err := e.loadRoundForAdmin(caller, id)
		if err != nil {
			return err
		}
		if err := record.Open(); err != nil {
			return err
		}
		saleRecord, ok, err := e.state.SaleGet()
		if err != nil {
			return err
		}
		if !ok {
			return ErrSaleNotOpened
		}
		saleRecord.SetRound(record.ID)
		if err := e.state.RoundPut(record); err != nil {
			return err
		}
		return e.state.SalePut(saleRecord)
	})
}

// CloseRound terminates the round. The sale's active-round pointer is left
// untouched; deposits into the closed round fail on the round state.
func (e *Engine) CloseRound(caller [20]byte, id int16) error {
	return e.inCall(func() error {
		record, err := e.loadRoundForAdmin(caller, id)
		if err != nil {
			return err
		}
		if err := record.Close(); err != nil {
			return err
		}
		return e.state.RoundPut(record)
	})
}

func (e *Engine) loadSaleForAdmin(caller [20]byte) (*Sale, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if !e.isAdmin(caller) {
		return nil, ErrUnauthorized
	}
	record, ok, err := e.state.SaleGet()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSaleNotOpened
	}
	return record, nil
}

func (e *Engine) loadRoundForAdmin(caller [20]byte, id int16) (*Round, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if !e.isAdmin(caller) {
		return nil, ErrUnauthorized
	}
	record, ok, err := e.state.RoundGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRoundNotFound
	}
	return record, nil
}

// transfer is the payment rail: it moves value between two accounts in one
// asset, failing without mutation when the payer's balance is short.
func (e *Engine) transfer(asset types.Asset, from, to [20]byte, amount uint64) error {
	if amount == 0 {
		return nil
	}
	payer, err := e.state.GetAccount(from)
	if err != nil {
		return err
	}
	payer = payer.EnsureBalances()
	value := new(big.Int).SetUint64(amount)
	if payer.Balance(asset).Cmp(value) < 0 {
		return ErrInsufficientFunds
	}
	recipient, err := e.state.GetAccount(to)
	if err != nil {
		return err
	}
	recipient = recipient.EnsureBalances()

	payer.SetBalance(asset, new(big.Int).Sub(payer.Balance(asset), value))
	recipient.SetBalance(asset, new(big.Int).Add(recipient.Balance(asset), value))

	if err := e.state.PutAccount(from, payer); err != nil {
		return err
	}
	return e.state.PutAccount(to, recipient)
}
