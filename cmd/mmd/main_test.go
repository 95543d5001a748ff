package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"orchai/config"
	"orchai/core"
	"orchai/core/genesis"
	gwconfig "orchai/gateway/config"
	"orchai/storage"
)

const testGenesis = `{
  "genesisTime": "2024-01-01T00:00:00Z",
  "chainId": "orchai-mmd-test",
  "owner": "@owner",
  "stable": {"name": "Stable", "symbol": "USD", "decimals": 6, "alloc": {"@owner": "1000000"}},
  "rewardToken": {"name": "Orchai", "symbol": "ORC", "decimals": 6},
  "market": {"ancEmissionRate": "10", "maxBorrowFactor": "0.95"},
  "interestModel": {"baseRate": "0.00001", "interestMultiplier": "0.0001"},
  "distributionModel": {"emissionCap": "100", "emissionFloor": "1", "incrementMultiplier": "1.1", "decrementMultiplier": "0.9"},
  "overseer": {"epochPeriod": 5, "thresholdDepositRate": "0.000001", "targetDepositRate": "0.000002", "bufferDistributionFactor": "0.1", "ancPurchaseFactor": "0.1", "priceTimeframe": 60},
  "liquidation": {"safeRatio": "0.8", "bidFee": "0.01", "maxPremiumRate": "0.3", "liquidationThreshold": "200", "priceTimeframe": 60},
  "distributor": {"spendLimit": "1000000", "reserve": "1000000"},
  "collaterals": [{"token": {"name": "Bonded Luna", "symbol": "BLUNA", "decimals": 6}, "maxLtv": "0.5", "feeder": "@feeder", "initialPrice": "2"}]
}`

func TestNewGatewayServesNode(t *testing.T) {
	db := storage.NewMemDB()
	t.Cleanup(func() { db.Close() })
	spec, err := genesis.ParseSpec([]byte(testGenesis))
	require.NoError(t, err)
	node, err := core.NewNode(context.Background(), db, spec, core.Options{SecondsPerBlock: 6})
	require.NoError(t, err)

	t.Setenv("MM_GATEWAY_SECRET", "mmd-test-secret")
	gwcfg, err := gwconfig.Load("")
	require.NoError(t, err)
	handler := newGateway(node, gwcfg, nil, 1<<20, nil)

	for path, want := range map[string]int{
		"/healthz":          http.StatusOK,
		"/v1/blocks/latest": http.StatusOK,
		"/v1/market/state":  http.StatusOK,
		"/v1/events":        http.StatusNotFound,
	} {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, want, res.Code, path)
	}

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/tx/execute", nil))
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestOpenIndexer(t *testing.T) {
	ix, err := openIndexer(config.Indexer{Enabled: true, Driver: "sqlite", DSN: "file:" + filepath.Join(t.TempDir(), "index.db")}, nil)
	require.NoError(t, err)
	require.NotNil(t, ix)

	_, err = openIndexer(config.Indexer{Driver: "mysql", DSN: "x"}, nil)
	require.Error(t, err)
}
