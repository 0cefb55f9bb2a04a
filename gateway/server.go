package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"salechain/config"
	"salechain/core/types"
	"salechain/native/referral"
	"salechain/native/sale"
	"salechain/observability"
)

const requestLimit = 1 << 20 // 1 MiB

// Server is the thin dispatch shell in front of the sale and referral
// engines. It performs routing, payload decoding and caller extraction only;
// authorization beyond the admin allow-list and signature verification belong
// to the host.
type Server struct {
	sales     *sale.Engine
	referrals *referral.Engine
	stables   map[types.Asset]struct{}
	log       *slog.Logger
	metrics   *observability.SaleMetrics
}

// New constructs a server over the supplied engines. Only the listed stable
// assets get deposit and withdrawal routes; the native asset is always routed.
func New(sales *sale.Engine, referrals *referral.Engine, stables []types.Asset, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if stables == nil {
		stables = []types.Asset{types.AssetUSDT, types.AssetUSDC}
	}
	accepted := make(map[types.Asset]struct{}, len(stables))
	for _, asset := range stables {
		accepted[asset] = struct{}{}
	}
	return &Server{sales: sales, referrals: referrals, stables: accepted, log: log, metrics: observability.Metrics()}
}

func (s *Server) accepts(asset types.Asset) bool {
	_, ok := s.stables[asset]
	return ok
}

// Handler builds the HTTP routing table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Post("/sale/init", s.initSale)
		v1.Post("/sale/investment", s.setSaleInvestment)
		v1.Post("/sale/reward", s.setSaleReward)
		v1.Post("/sale/open", s.openSale)
		v1.Post("/sale/close", s.closeSale)

		v1.Post("/rounds", s.initRound)
		v1.Post("/rounds/price", s.setRoundPrice)
		v1.Post("/rounds/supply", s.setRoundSupply)
		v1.Post("/rounds/open", s.openRound)
		v1.Post("/rounds/close", s.closeRound)

		v1.Post("/referrals", s.initReferral)
		v1.Post("/referrals/reward", s.setReferralReward)
		v1.Post("/referrals/enable", s.enableReferral)
		v1.Post("/referrals/disable", s.disableReferral)

		v1.Post("/deposits/sol", s.depositSOL)
		v1.Post("/withdrawals/sol", s.withdraw(types.AssetSOL))
		for _, asset := range []types.Asset{types.AssetUSDT, types.AssetUSDC} {
			if !s.accepts(asset) {
				continue
			}
			path := strings.ToLower(string(asset))
			v1.Post("/deposits/"+path, s.depositStable(asset))
			v1.Post("/withdrawals/"+path, s.withdraw(asset))
		}
	})

	return r
}

type callerRequest struct {
	Caller string `json:"caller"`
}

type investmentRequest struct {
	Caller        string `json:"caller"`
	MaxInvestment uint64 `json:"maxInvestment"`
	MinInvestment uint64 `json:"minInvestment"`
}

type rewardRequest struct {
	Caller          string `json:"caller"`
	MainReward      uint64 `json:"mainReward"`
	SecondaryReward uint64 `json:"secondaryReward"`
}

type roundInitRequest struct {
	Caller      string `json:"caller"`
	ID          int16  `json:"id"`
	Price       uint64 `json:"price"`
	TotalSupply string `json:"totalSupply"`
}

type roundPriceRequest struct {
	Caller string `json:"caller"`
	ID     int16  `json:"id"`
	Price  uint64 `json:"price"`
}

type roundSupplyRequest struct {
	Caller      string `json:"caller"`
	ID          int16  `json:"id"`
	TotalSupply string `json:"totalSupply"`
}

type roundIDRequest struct {
	Caller string `json:"caller"`
	ID     int16  `json:"id"`
}

type referralRewardRequest struct {
	Caller          string `json:"caller"`
	Referrer        string `json:"referrer"`
	MainReward      uint64 `json:"mainReward"`
	SecondaryReward uint64 `json:"secondaryReward"`
}

type referralTargetRequest struct {
	Caller   string `json:"caller"`
	Referrer string `json:"referrer"`
}

type depositRequest struct {
	Payer     string `json:"payer"`
	Referral  string `json:"referral,omitempty"`
	Round     int16  `json:"round"`
	Amount    uint64 `json:"amount"`
	PriceFeed string `json:"priceFeed,omitempty"`
	Treasury  string `json:"treasury,omitempty"`
}

func (s *Server) initSale(w http.ResponseWriter, r *http.Request) {
	var req callerRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.respond(w, "sale.init", s.sales.InitSale())
}

func (s *Server) setSaleInvestment(w http.ResponseWriter, r *http.Request) {
	var req investmentRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, ok := s.address(w, req.Caller)
	if !ok {
		return
	}
	s.respond(w, "sale.investment", s.sales.SetSaleInvestment(caller, req.MaxInvestment, req.MinInvestment))
}

func (s *Server) setSaleReward(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, ok := s.address(w, req.Caller)
	if !ok {
		return
	}
	s.respond(w, "sale.reward", s.sales.SetSaleReward(caller, req.MainReward, req.SecondaryReward))
}

func (s *Server) openSale(w http.ResponseWriter, r *http.Request) {
	var req callerRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, ok := s.address(w, req.Caller)
	if !ok {
		return
	}
	s.respond(w, "sale.open", s.sales.OpenSale(caller))
}

func (s *Server) closeSale(w http.ResponseWriter, r *http.Request) {
	var req callerRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, ok := s.address(w, req.Caller)
	if !ok {
		return
	}
	s.respond(w, "sale.close", s.sales.CloseSale(caller))
}

func (s *Server) initRound(w http.ResponseWriter, r *http.Request) {
	var req roundInitRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, ok := s.address(w, req.Caller)
	if !ok {
		return
	}
	supply, ok := s.bigint(w, req.TotalSupply)
	if !ok {
		return
	}
	s.respond(w, "round.init", s.sales.InitRound(caller, req.ID, req.Price, supply))
}

func (s *Server) setRoundPrice(w http.ResponseWriter, r *http.Request) {
	var req roundPriceRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, ok := s.address(w, req.Caller)
	if !ok {
		return
	}
	s.respond(w, "round.price", s.sales.SetRoundPrice(caller, req.ID, req.Price))
}

func (s *Server) setRoundSupply(w http.ResponseWriter, r *http.Request) {
	var req roundSupplyRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, ok := s.address(w, req.Caller)
	if !ok {
		return
	}
	supply, ok := s.bigint(w, req.TotalSupply)
	if !ok {
		return
	}
	s.respond(w, "round.supply", s.sales.SetRoundSupply(caller, req.ID, supply))
}

func (s *Server) openRound(w http.ResponseWriter, r *http.Request) {
	var req roundIDRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, ok := s.address(w, req.Caller)
	if !ok {
		return
	}
	s.respond(w, "round.open", s.sales.OpenRound(caller, req.ID))
}

func (s *Server) closeRound(w http.ResponseWriter, r *http.Request) {
	var req roundIDRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, ok := s.address(w, req.Caller)
	if !ok {
		return
	}
	s.respond(w, "round.close", s.sales.CloseRound(caller, req.ID))
}

func (s *Server) initReferral(w http.ResponseWriter, r *http.Request) {
	var req referralRewardRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, ok := s.address(w, req.Caller)
	if !ok {
		return
	}
	referrer, ok := s.address(w, req.Referrer)
	if !ok {
		return
	}
	s.respond(w, "referral.init", s.referrals.InitReferral(caller, referrer, req.MainReward, req.SecondaryReward))
}

func (s *Server) setReferralReward(w http.ResponseWriter, r *http.Request) {
	var req referralRewardRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, ok := s.address(w, req.Caller)
	if !ok {
		return
	}
	referrer, ok := s.address(w, req.Referrer)
	if !ok {
		return
	}
	s.respond(w, "referral.reward", s.referrals.SetReward(caller, referrer, req.MainReward, req.SecondaryReward))
}

func (s *Server) enableReferral(w http.ResponseWriter, r *http.Request) {
	var req referralTargetRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, ok := s.address(w, req.Caller)
	if !ok {
		return
	}
	referrer, ok := s.address(w, req.Referrer)
	if !ok {
		return
	}
	s.respond(w, "referral.enable", s.referrals.Enable(caller, referrer))
}

func (s *Server) disableReferral(w http.ResponseWriter, r *http.Request) {
	var req referralTargetRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, ok := s.address(w, req.Caller)
	if !ok {
		return
	}
	referrer, ok := s.address(w, req.Referrer)
	if !ok {
		return
	}
	s.respond(w, "referral.disable", s.referrals.Disable(caller, referrer))
}

func (s *Server) depositSOL(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if !s.decode(w, r, &req) {
		return
	}
	payer, ok := s.address(w, req.Payer)
	if !ok {
		return
	}
	refKey, ok := s.optionalAddress(w, req.Referral)
	if !ok {
		return
	}
	priceFeed, ok := s.address(w, req.PriceFeed)
	if !ok {
		return
	}
	treasury, ok := s.address(w, req.Treasury)
	if !ok {
		return
	}
	tokens, err := s.sales.DepositSOL(payer, refKey, req.Round, priceFeed, treasury, req.Amount)
	s.respondDeposit(w, types.AssetSOL, tokens, err)
}

func (s *Server) depositStable(asset types.Asset) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req depositRequest
		if !s.decode(w, r, &req) {
			return
		}
		payer, ok := s.address(w, req.Payer)
		if !ok {
			return
		}
		refKey, ok := s.optionalAddress(w, req.Referral)
		if !ok {
			return
		}
		var tokens *big.Int
		var err error
		if asset == types.AssetUSDT {
			tokens, err = s.sales.DepositUSDT(payer, refKey, req.Round, req.Amount)
		} else {
			tokens, err = s.sales.DepositUSDC(payer, refKey, req.Round, req.Amount)
		}
		s.respondDeposit(w, asset, tokens, err)
	}
}

func (s *Server) withdraw(asset types.Asset) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req callerRequest
		if !s.decode(w, r, &req) {
			return
		}
		caller, ok := s.address(w, req.Caller)
		if !ok {
			return
		}
		amount, err := s.referrals.Settle(caller, asset)
		if err != nil {
			s.writeError(w, "referral.withdraw", err)
			return
		}
		s.metrics.RecordWithdrawal(string(asset))
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"asset": asset, "amount": amount})
	}
}

func (s *Server) respondDeposit(w http.ResponseWriter, asset types.Asset, tokens *big.Int, err error) {
	if err != nil {
		s.writeError(w, "sale.deposit", err)
		return
	}
	s.metrics.RecordDeposit(string(asset))
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"asset": asset, "tokenAmount": tokens.String()})
}

func (s *Server) respond(w http.ResponseWriter, operation string, err error) {
	if err != nil {
		s.writeError(w, operation, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, requestLimit))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request payload: %v", err)})
		return false
	}
	return true
}

func (s *Server) address(w http.ResponseWriter, value string) ([20]byte, bool) {
	addr, err := config.ParseAddress(value)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return [20]byte{}, false
	}
	return addr, true
}

// optionalAddress treats an empty value as the zero address, i.e. no referral.
func (s *Server) optionalAddress(w http.ResponseWriter, value string) ([20]byte, bool) {
	if value == "" {
		return [20]byte{}, true
	}
	return s.address(w, value)
}

func (s *Server) bigint(w http.ResponseWriter, value string) (*big.Int, bool) {
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok || parsed.Sign() < 0 {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid amount %q", value)})
		return nil, false
	}
	return parsed, true
}

func (s *Server) writeError(w http.ResponseWriter, operation string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("operation failed", "operation", operation, "error", err)
	} else {
		s.log.Info("operation rejected", "operation", operation, "error", err)
	}
	s.metrics.RecordError(operation)
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sale.ErrUnauthorized), errors.Is(err, referral.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, sale.ErrRoundNotFound), errors.Is(err, referral.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sale.ErrSaleExists), errors.Is(err, sale.ErrRoundExists), errors.Is(err, referral.ErrExists):
		return http.StatusConflict
	case errors.Is(err, sale.ErrSaleOpened), errors.Is(err, sale.ErrSaleClosed),
		errors.Is(err, sale.ErrSaleNotOpened), errors.Is(err, sale.ErrRoundOpened),
		errors.Is(err, sale.ErrRoundClosed), errors.Is(err, sale.ErrRoundNotOpened),
		errors.Is(err, sale.ErrInactiveRound), errors.Is(err, sale.ErrRoundPriceNotSet):
		return http.StatusConflict
	case errors.Is(err, sale.ErrSaleMinInvestmentTooLarge), errors.Is(err, sale.ErrSaleMinInvestmentNotReached),
		errors.Is(err, sale.ErrSaleMaxInvestmentExceeded), errors.Is(err, sale.ErrSaleMainRewardTooLarge),
		errors.Is(err, sale.ErrSaleSecondaryRewardTooLarge), errors.Is(err, sale.ErrRoundSupplyTooSmall),
		errors.Is(err, sale.ErrRoundSupplyExceeded), errors.Is(err, sale.ErrWrongPriceFeed),
		errors.Is(err, sale.ErrWrongTreasury), errors.Is(err, sale.ErrInsufficientFunds),
		errors.Is(err, sale.ErrSaleRewardExceedsDeposit), errors.Is(err, referral.ErrNoFunds):
		return http.StatusBadRequest
	case errors.Is(err, sale.ErrPriceIsDown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
