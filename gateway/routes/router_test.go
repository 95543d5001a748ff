package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"orchai/core"
	"orchai/core/events"
	"orchai/core/genesis"
	"orchai/core/num"
	"orchai/core/types"
	"orchai/crypto"
	"orchai/gateway/config"
	"orchai/gateway/middleware"
	mm "orchai/native/moneymarket"
	"orchai/storage"
)

const (
	testSecret  = "routes-secret"
	testGenesis = `{
  "genesisTime": "2024-01-01T00:00:00Z",
  "chainId": "orchai-gateway-test",
  "owner": "@owner",
  "stable": {"name": "Stable", "symbol": "USD", "decimals": 6, "alloc": {"@owner": "1000000", "@alice": "5000000"}},
  "rewardToken": {"name": "Orchai", "symbol": "ORC", "decimals": 6},
  "market": {"ancEmissionRate": "10", "maxBorrowFactor": "0.95"},
  "interestModel": {"baseRate": "0.00001", "interestMultiplier": "0.0001"},
  "distributionModel": {"emissionCap": "100", "emissionFloor": "1", "incrementMultiplier": "1.1", "decrementMultiplier": "0.9"},
  "overseer": {"epochPeriod": 5, "thresholdDepositRate": "0.000001", "targetDepositRate": "0.000002", "bufferDistributionFactor": "0.1", "ancPurchaseFactor": "0.1", "priceTimeframe": 60},
  "liquidation": {"safeRatio": "0.8", "bidFee": "0.01", "maxPremiumRate": "0.3", "liquidationThreshold": "200", "priceTimeframe": 60},
  "distributor": {"spendLimit": "1000000", "reserve": "1000000"},
  "collaterals": [{"token": {"name": "Bonded Luna", "symbol": "BLUNA", "decimals": 6}, "maxLtv": "0.5", "feeder": "@feeder", "initialPrice": "2"}]
}`
)

type fixture struct {
	node    *core.Node
	handler http.Handler
	alice   crypto.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(func() { db.Close() })
	spec, err := genesis.ParseSpec([]byte(testGenesis))
	require.NoError(t, err)
	node, err := core.NewNode(context.Background(), db, spec, core.Options{SecondsPerBlock: 6})
	require.NoError(t, err)

	handler := New(Config{
		Backend: node,
		Authenticator: middleware.NewAuthenticator(middleware.AuthConfig{
			Enabled:    true,
			HMACSecret: testSecret,
		}, nil),
		Observability: middleware.NewObservability(middleware.ObservabilityConfig{Metrics: true}, nil),
		Websocket:     config.WebsocketConfig{MaxSubscribers: 1, Buffer: 16},
	})
	return &fixture{node: node, handler: handler, alice: crypto.AccountAddress("alice")}
}

func token(t *testing.T, subject string, scopes ...string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   subject,
		"scope": strings.Join(scopes, " "),
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (f *fixture) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	return res
}

func depositMsg(t *testing.T, market crypto.Address, amount uint64) json.RawMessage {
	t.Helper()
	hook, err := json.Marshal(mm.MarketHookMsg{DepositStable: &mm.Empty{}})
	require.NoError(t, err)
	raw, err := json.Marshal(mm.TokenExecuteMsg{Send: &mm.SendMsg{Contract: market, Amount: num.NewUint(amount), Msg: hook}})
	require.NoError(t, err)
	return raw
}

func decodeError(t *testing.T, res *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var out errorResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, res.Code)

	f.do(t, http.MethodGet, "/v1/blocks/latest", "", nil)
	res = f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "orchai_gateway_requests_total")
}

func TestExecuteRequiresScopedToken(t *testing.T) {
	f := newFixture(t)
	dep := f.node.Deployment()
	body := executeRequest{Contract: dep.Stable.String(), Msg: depositMsg(t, dep.Market, 1000)}

	res := f.do(t, http.MethodPost, "/v1/tx/execute", "", body)
	require.Equal(t, http.StatusUnauthorized, res.Code)

	res = f.do(t, http.MethodPost, "/v1/tx/execute", token(t, "@alice", "query"), body)
	require.Equal(t, http.StatusForbidden, res.Code)

	mismatch := body
	mismatch.Sender = "@bob"
	res = f.do(t, http.MethodPost, "/v1/tx/execute", token(t, "@alice", config.ScopeExecute), mismatch)
	require.Equal(t, http.StatusForbidden, res.Code)
	require.Equal(t, "unauthorized", decodeError(t, res).Code)

	// A token issued to a contract address cannot borrow its authority.
	repay, err := json.Marshal(mm.MarketExecuteMsg{RepayStableFromLiquidation: &mm.RepayStableFromLiquidation{
		Borrower: f.alice, PrevBalance: num.ZeroUint(),
	}})
	require.NoError(t, err)
	res = f.do(t, http.MethodPost, "/v1/tx/execute", token(t, dep.Overseer.String(), config.ScopeExecute),
		executeRequest{Contract: dep.Market.String(), Msg: repay})
	require.Equal(t, http.StatusForbidden, res.Code)
	require.Equal(t, "unauthorized", decodeError(t, res).Code)
}

func TestExecuteDepositAndQueries(t *testing.T) {
	f := newFixture(t)
	dep := f.node.Deployment()
	bearer := token(t, f.alice.String(), config.ScopeExecute)

	res := f.do(t, http.MethodPost, "/v1/tx/execute", bearer, executeRequest{
		Contract: dep.Stable.String(),
		Msg:      depositMsg(t, dep.Market, 250_000),
	})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	var out executeResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	require.NotEmpty(t, out.TxHash)
	require.NotEmpty(t, out.Events)

	msg := url.QueryEscape(`{"balance":{"address":"` + f.alice.String() + `"}}`)
	res = f.do(t, http.MethodGet, "/v1/contracts/"+dep.ATerra.String()+"/query?msg="+msg, "", nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	var balance mm.BalanceResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &balance))
	require.Equal(t, "250000", balance.Balance.String())

	res = f.do(t, http.MethodPost, "/v1/contracts/"+dep.Market.String()+"/query", "", mm.MarketQueryMsg{Config: &mm.Empty{}})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	res = f.do(t, http.MethodGet, "/v1/market/state", "", nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	var state marketStateResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &state))
	require.Equal(t, "1250000", state.StableBalance.String())
	require.NotEmpty(t, state.BorrowAPR)

	res = f.do(t, http.MethodGet, "/v1/market/borrowers/@alice", "", nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	var info mm.BorrowerInfoResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &info))
	require.True(t, info.LoanAmount.IsZero())

	res = f.do(t, http.MethodGet, "/v1/overseer/borrow-limit/"+f.alice.String(), "", nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	res = f.do(t, http.MethodGet, "/v1/deployment", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), dep.Market.String())
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t)
	dep := f.node.Deployment()
	bearer := token(t, "@alice", config.ScopeExecute)

	// Borrowing without collateral is a business rule rejection.
	borrow, err := json.Marshal(mm.MarketExecuteMsg{BorrowStable: &mm.BorrowStable{BorrowAmount: num.NewUint(1)}})
	require.NoError(t, err)
	res := f.do(t, http.MethodPost, "/v1/tx/execute", bearer, executeRequest{Contract: dep.Market.String(), Msg: borrow})
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Equal(t, "rejected", decodeError(t, res).Code)

	res = f.do(t, http.MethodPost, "/v1/tx/execute", bearer, executeRequest{Contract: crypto.AccountAddress("nobody").String(), Msg: borrow})
	require.Equal(t, http.StatusNotFound, res.Code)

	res = f.do(t, http.MethodPost, "/v1/tx/execute", bearer, executeRequest{Contract: "not-an-address", Msg: borrow})
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Equal(t, "invalid_request", decodeError(t, res).Code)

	res = f.do(t, http.MethodPost, "/v1/tx/execute", bearer, executeRequest{Contract: dep.Market.String()})
	require.Equal(t, http.StatusBadRequest, res.Code)

	res = f.do(t, http.MethodGet, "/v1/contracts/"+dep.Market.String()+"/query", "", nil)
	require.Equal(t, http.StatusBadRequest, res.Code)

	res = f.do(t, http.MethodGet, "/v1/market/borrowers/@", "", nil)
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestEventsWebsocket(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.handler)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events/ws?type=" + events.TypeBlockProduced
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// The hub admits one subscriber.
	_, resp, err := websocket.Dial(ctx, wsURL, nil)
	require.Error(t, err)
	if resp != nil {
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	}

	// Blocks are produced until the stream, which subscribes after the
	// handshake, delivers one.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if _, err := f.node.ProduceBlock(context.Background()); err != nil {
					return
				}
			}
		}
	}()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var ev types.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	require.Equal(t, events.TypeBlockProduced, ev.Type)
	require.NotEmpty(t, ev.Attributes["height"])
	require.Equal(t, "orchai-gateway-test", ev.Attributes["chainId"])
}
