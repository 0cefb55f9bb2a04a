package gateway

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"salechain/config"
	"salechain/core/types"
	"salechain/native/referral"
	"salechain/native/sale"
	"salechain/storage"
)

const (
	adminHex    = "0x1111111111111111111111111111111111111111"
	payerHex    = "0x2222222222222222222222222222222222222222"
	referrerHex = "0x3333333333333333333333333333333333333333"
	treasuryHex = "0x4444444444444444444444444444444444444444"
	feedHex     = "0x5555555555555555555555555555555555555555"
	outsiderHex = "0x9999999999999999999999999999999999999999"
)

func newTestServer(t *testing.T) (*httptest.Server, *sale.Ledger) {
	t.Helper()

	ledger := sale.NewLedger(storage.NewMemDB())
	admin, err := config.ParseAddress(adminHex)
	require.NoError(t, err)
	treasury, err := config.ParseAddress(treasuryHex)
	require.NoError(t, err)
	feed, err := config.ParseAddress(feedHex)
	require.NoError(t, err)

	sales := sale.NewEngine()
	sales.SetState(ledger)
	sales.SetAdmins([][20]byte{admin})
	sales.SetTreasury(treasury)
	sales.SetPriceFeed(feed)
	sales.SetOracle(sale.NewFixedOracle(14_400_000_000, 8))

	referrals := referral.NewEngine()
	referrals.SetState(ledger)
	referrals.SetAdmins([][20]byte{admin})

	srv := httptest.NewServer(New(sales, referrals, nil, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, ledger
}

func post(t *testing.T, srv *httptest.Server, path string, payload interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func fundAccount(t *testing.T, ledger *sale.Ledger, hexAddr string, asset types.Asset, amount uint64) {
	t.Helper()
	addr, err := config.ParseAddress(hexAddr)
	require.NoError(t, err)
	account, err := ledger.GetAccount(addr)
	require.NoError(t, err)
	account.SetBalance(asset, new(big.Int).SetUint64(amount))
	require.NoError(t, ledger.PutAccount(addr, account))
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminEndpointsRejectOutsiders(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := post(t, srv, "/v1/sale/init", map[string]interface{}{"caller": adminHex})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := post(t, srv, "/v1/sale/open", map[string]interface{}{"caller": outsiderHex})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Contains(t, body["error"], "unauthorized")

	resp, _ = post(t, srv, "/v1/referrals", map[string]interface{}{
		"caller": outsiderHex, "referrer": referrerHex, "mainReward": 1, "secondaryReward": 1,
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRejectsMalformedPayloads(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := post(t, srv, "/v1/sale/open", map[string]interface{}{"caller": "not-an-address"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body["error"], "not a hex address")

	resp, _ = post(t, srv, "/v1/sale/open", map[string]interface{}{"caller": adminHex, "bogus": true})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = post(t, srv, "/v1/rounds", map[string]interface{}{
		"caller": adminHex, "id": 1, "price": 1, "totalSupply": "-5",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestContributionFlow(t *testing.T) {
	srv, ledger := newTestServer(t)

	resp, _ := post(t, srv, "/v1/sale/init", map[string]interface{}{"caller": adminHex})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = post(t, srv, "/v1/sale/open", map[string]interface{}{"caller": adminHex})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = post(t, srv, "/v1/rounds", map[string]interface{}{
		"caller": adminHex, "id": 1, "price": 100_000_000_000, "totalSupply": "1000000000000000",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = post(t, srv, "/v1/rounds/open", map[string]interface{}{"caller": adminHex, "id": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Depositing into an unfunded account fails cleanly.
	resp, _ = post(t, srv, "/v1/deposits/usdt", map[string]interface{}{
		"payer": payerHex, "round": 1, "amount": 150_000_000,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	fundAccount(t, ledger, payerHex, types.AssetUSDT, 1_000_000_000)
	resp, body := post(t, srv, "/v1/deposits/usdt", map[string]interface{}{
		"payer": payerHex, "referral": referrerHex, "round": 1, "amount": 150_000_000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "USDT", body["asset"])
	require.Equal(t, "1500000000", body["tokenAmount"])

	// Default 5% referral cut accrued for the referrer.
	referrer, err := config.ParseAddress(referrerHex)
	require.NoError(t, err)
	record, ok, err := ledger.ReferralGet(referrer)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(7_500_000), record.USDTRewardAmount)

	// The referrer redeems the accrued cut.
	resp, body = post(t, srv, "/v1/withdrawals/usdt", map[string]interface{}{"caller": referrerHex})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(7_500_000), body["amount"])

	// Retrying after the balance was consumed fails with no funds.
	resp, _ = post(t, srv, "/v1/withdrawals/usdt", map[string]interface{}{"caller": referrerHex})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The native variant is a silent no-op on a zero balance.
	resp, body = post(t, srv, "/v1/withdrawals/sol", map[string]interface{}{"caller": referrerHex})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(0), body["amount"])
}

func TestDepositSOLRequiresIdentities(t *testing.T) {
	srv, ledger := newTestServer(t)

	resp, _ := post(t, srv, "/v1/sale/init", map[string]interface{}{"caller": adminHex})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = post(t, srv, "/v1/sale/open", map[string]interface{}{"caller": adminHex})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = post(t, srv, "/v1/rounds", map[string]interface{}{
		"caller": adminHex, "id": 1, "price": 100_000_000_000, "totalSupply": "1000000000000000",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = post(t, srv, "/v1/rounds/open", map[string]interface{}{"caller": adminHex, "id": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	fundAccount(t, ledger, payerHex, types.AssetSOL, 2_000_000_000)

	resp, body := post(t, srv, "/v1/deposits/sol", map[string]interface{}{
		"payer": payerHex, "round": 1, "amount": 1_000_000_000,
		"priceFeed": feedHex, "treasury": outsiderHex,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body["error"], "treasury")

	resp, body = post(t, srv, "/v1/deposits/sol", map[string]interface{}{
		"payer": payerHex, "round": 1, "amount": 1_000_000_000,
		"priceFeed": feedHex, "treasury": treasuryHex,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "1440000000", body["tokenAmount"])
}

func TestStableAssetRoutesFollowConfiguration(t *testing.T) {
	ledger := sale.NewLedger(storage.NewMemDB())
	sales := sale.NewEngine()
	sales.SetState(ledger)
	referrals := referral.NewEngine()
	referrals.SetState(ledger)

	srv := httptest.NewServer(New(sales, referrals, []types.Asset{types.AssetUSDT}, nil).Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/v1/deposits/usdc", "application/json", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/v1/withdrawals/usdc", "application/json", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// The configured stable and the native asset stay routed.
	resp, err = http.Post(srv.URL+"/v1/withdrawals/usdt", "application/json", bytes.NewReader([]byte(`{"caller":"`+referrerHex+`"}`)))
	require.NoError(t, err)
	resp.Body.Close()
	require.NotEqual(t, http.StatusNotFound, resp.StatusCode)
}

func TestLifecycleConflictsSurfaceAs409(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := post(t, srv, "/v1/sale/init", map[string]interface{}{"caller": adminHex})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = post(t, srv, "/v1/sale/init", map[string]interface{}{"caller": adminHex})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = post(t, srv, "/v1/rounds/open", map[string]interface{}{"caller": adminHex, "id": 7})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
