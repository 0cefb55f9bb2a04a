package sale

import (
	"math/big"
	"testing"

	"salechain/core/events"
	"salechain/core/types"
	"salechain/native/referral"
)

type mockState struct {
	sale          *Sale
	rounds        map[int16]*Round
	beneficiaries map[[20]byte]*Beneficiary
	referrals     map[[20]byte]*referral.Referral
	accounts      map[[20]byte]*types.Account
}

func newMockState() *mockState {
	return &mockState{
		rounds:        make(map[int16]*Round),
		beneficiaries: make(map[[20]byte]*Beneficiary),
		referrals:     make(map[[20]byte]*referral.Referral),
		accounts:      make(map[[20]byte]*types.Account),
	}
}

func (m *mockState) SaleGet() (*Sale, bool, error) {
	if m.sale == nil {
		return nil, false, nil
	}
	return m.sale.Clone(), true, nil
}

func (m *mockState) SalePut(record *Sale) error {
	m.sale = record.Clone()
	return nil
}

func (m *mockState) RoundGet(id int16) (*Round, bool, error) {
	record, ok := m.rounds[id]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func (m *mockState) RoundPut(record *Round) error {
	m.rounds[record.ID] = record.Clone()
	return nil
}

func (m *mockState) BeneficiaryGetOrCreate(addr [20]byte) (*Beneficiary, error) {
	record, ok := m.beneficiaries[addr]
	if !ok {
		return NewBeneficiary(), nil
	}
	return record.Clone(), nil
}

func (m *mockState) BeneficiaryPut(addr [20]byte, record *Beneficiary) error {
	m.beneficiaries[addr] = record.Clone()
	return nil
}

func (m *mockState) ReferralGet(referrer [20]byte) (*referral.Referral, bool, error) {
	record, ok := m.referrals[referrer]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func (m *mockState) ReferralGetOrCreate(referrer [20]byte) (*referral.Referral, error) {
	record, ok := m.referrals[referrer]
	if !ok {
		return &referral.Referral{TokenRewardAmount: big.NewInt(0)}, nil
	}
	return record.Clone(), nil
}

func (m *mockState) ReferralPut(referrer [20]byte, record *referral.Referral) error {
	m.referrals[referrer] = record.Clone()
	return nil
}

func (m *mockState) GetAccount(addr [20]byte) (*types.Account, error) {
	record, ok := m.accounts[addr]
	if !ok {
		return (&types.Account{}).EnsureBalances(), nil
	}
	return record.Clone(), nil
}

func (m *mockState) PutAccount(addr [20]byte, account *types.Account) error {
	m.accounts[addr] = account.Clone()
	return nil
}

func (m *mockState) balance(addr [20]byte, asset types.Asset) *big.Int {
	record, ok := m.accounts[addr]
	if !ok {
		return big.NewInt(0)
	}
	return record.Balance(asset)
}

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) {
	c.events = append(c.events, evt)
}

func testAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

var (
	adminAddr    = testAddress(0x01)
	payerAddr    = testAddress(0x02)
	referrerAddr = testAddress(0x03)
	treasuryAddr = testAddress(0xAA)
	feedAddr     = testAddress(0xFE)
)

func newTestEngine(state *mockState) (*Engine, *captureEmitter) {
	emitter := &captureEmitter{}
	engine := NewEngine()
	engine.SetState(state)
	engine.SetEmitter(emitter)
	engine.SetAdmins([][20]byte{adminAddr})
	engine.SetTreasury(treasuryAddr)
	engine.SetPriceFeed(feedAddr)
	engine.SetOracle(NewFixedOracle(14_400_000_000, 8))
	return engine, emitter
}

func TestInitSaleDefaults(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(state)

	if err := engine.InitSale(); err != nil {
		t.Fatalf("init sale: %v", err)
	}
	if state.sale.MaxInvestment != DefaultMaxInvestment {
		t.Fatalf("unexpected max investment: %d", state.sale.MaxInvestment)
	}
	if state.sale.MinInvestment != DefaultMinInvestment {
		t.Fatalf("unexpected min investment: %d", state.sale.MinInvestment)
	}
	if state.sale.Round != -1 {
		t.Fatalf("expected no active round, got %d", state.sale.Round)
	}
	if state.sale.State != StateNone {
		t.Fatalf("expected state none, got %v", state.sale.State)
	}
	if err := engine.InitSale(); err != ErrSaleExists {
		t.Fatalf("expected ErrSaleExists, got %v", err)
	}
}

func TestAdminGate(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(state)
	if err := engine.InitSale(); err != nil {
		t.Fatalf("init sale: %v", err)
	}

	outsider := testAddress(0x99)
	if err := engine.OpenSale(outsider); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := engine.SetSaleInvestment(outsider, 2, 1); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := engine.InitRound(outsider, 1, 100, big.NewInt(1)); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSaleLifecycle(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(state)
	if err := engine.InitSale(); err != nil {
		t.Fatalf("init sale: %v", err)
	}

	if err := engine.CloseSale(adminAddr); err != ErrSaleClosed {
		t.Fatalf("closing an unopened sale: expected ErrSaleClosed, got %v", err)
	}
	if err := engine.OpenSale(adminAddr); err != nil {
		t.Fatalf("open sale: %v", err)
	}
	if err := engine.OpenSale(adminAddr); err != ErrSaleOpened {
		t.Fatalf("reopening: expected ErrSaleOpened, got %v", err)
	}
	if err := engine.CloseSale(adminAddr); err != nil {
		t.Fatalf("close sale: %v", err)
	}
	if err := engine.OpenSale(adminAddr); err != ErrSaleOpened {
		t.Fatalf("opening a closed sale: expected ErrSaleOpened, got %v", err)
	}
}

func TestSetSaleInvestmentBounds(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(state)
	if err := engine.InitSale(); err != nil {
		t.Fatalf("init sale: %v", err)
	}

	if err := engine.SetSaleInvestment(adminAddr, 100, 200); err != ErrSaleMinInvestmentTooLarge {
		t.Fatalf("expected ErrSaleMinInvestmentTooLarge, got %v", err)
	}
	if err := engine.SetSaleInvestment(adminAddr, 200, 200); err != nil {
		t.Fatalf("max == min must be allowed: %v", err)
	}
	if state.sale.MaxInvestment != 200 || state.sale.MinInvestment != 200 {
		t.Fatalf("bounds not persisted: %d/%d", state.sale.MaxInvestment, state.sale.MinInvestment)
	}
}

func TestSetSaleRewardCaps(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(state)
	if err := engine.InitSale(); err != nil {
		t.Fatalf("init sale: %v", err)
	}

	if err := engine.SetSaleReward(adminAddr, RewardDenominator+1, 0); err != ErrSaleMainRewardTooLarge {
		t.Fatalf("expected ErrSaleMainRewardTooLarge, got %v", err)
	}
	if err := engine.SetSaleReward(adminAddr, 0, RewardDenominator+1); err != ErrSaleSecondaryRewardTooLarge {
		t.Fatalf("expected ErrSaleSecondaryRewardTooLarge, got %v", err)
	}
	if err := engine.SetSaleReward(adminAddr, RewardDenominator, RewardDenominator); err != nil {
		t.Fatalf("100%% must be allowed: %v", err)
	}
}

func TestOpenRoundActivatesOnSale(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(state)
	if err := engine.InitSale(); err != nil {
		t.Fatalf("init sale: %v", err)
	}
	if err := engine.InitRound(adminAddr, 3, 100_000_000_000, big.NewInt(1_000_000_000_000)); err != nil {
		t.Fatalf("init round: %v", err)
	}
	if err := engine.InitRound(adminAddr, 3, 1, big.NewInt(1)); err != ErrRoundExists {
		t.Fatalf("expected ErrRoundExists, got %v", err)
	}

	if err := engine.OpenRound(adminAddr, 3); err != nil {
		t.Fatalf("open round: %v", err)
	}
	if state.sale.Round != 3 {
		t.Fatalf("sale not pointed at round 3, got %d", state.sale.Round)
	}
	if !state.rounds[3].IsOpen() {
		t.Fatal("round 3 not opened")
	}
	if err := engine.OpenRound(adminAddr, 3); err != ErrRoundOpened {
		t.Fatalf("expected ErrRoundOpened, got %v", err)
	}
}

func TestRoundPriceAndSupplyRules(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(state)
	if err := engine.InitSale(); err != nil {
		t.Fatalf("init sale: %v", err)
	}
	if err := engine.InitRound(adminAddr, 1, 50, big.NewInt(100)); err != nil {
		t.Fatalf("init round: %v", err)
	}

	if err := engine.SetRoundPrice(adminAddr, 1, 75); err != nil {
		t.Fatalf("set price on unopened round: %v", err)
	}
	if err := engine.OpenRound(adminAddr, 1); err != nil {
		t.Fatalf("open round: %v", err)
	}
	if err := engine.SetRoundPrice(adminAddr, 1, 80); err != ErrRoundOpened {
		t.Fatalf("expected ErrRoundOpened, got %v", err)
	}

	state.rounds[1].TotalSold = big.NewInt(60)
	if err := engine.SetRoundSupply(adminAddr, 1, big.NewInt(59)); err != ErrRoundSupplyTooSmall {
		t.Fatalf("expected ErrRoundSupplyTooSmall, got %v", err)
	}
	if err := engine.SetRoundSupply(adminAddr, 1, big.NewInt(60)); err != nil {
		t.Fatalf("supply == sold must be allowed: %v", err)
	}

	if err := engine.CloseRound(adminAddr, 1); err != nil {
		t.Fatalf("close round: %v", err)
	}
	if err := engine.CloseRound(adminAddr, 1); err != ErrRoundClosed {
		t.Fatalf("expected ErrRoundClosed, got %v", err)
	}
	if err := engine.SetRoundPrice(adminAddr, 2, 1); err != ErrRoundNotFound {
		t.Fatalf("expected ErrRoundNotFound, got %v", err)
	}
}

func TestCloseRoundFromNone(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(state)
	if err := engine.InitSale(); err != nil {
		t.Fatalf("init sale: %v", err)
	}
	if err := engine.InitRound(adminAddr, 1, 50, big.NewInt(100)); err != nil {
		t.Fatalf("init round: %v", err)
	}
	if err := engine.CloseRound(adminAddr, 1); err != ErrRoundClosed {
		t.Fatalf("expected ErrRoundClosed, got %v", err)
	}
}
