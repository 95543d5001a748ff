package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"orchai/core/host"
	"orchai/core/num"
	"orchai/crypto"
	mm "orchai/native/moneymarket"
	"orchai/storage"
)

func setup(t *testing.T) (*host.Host, crypto.Address, crypto.Address) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(func() { db.Close() })
	h := host.New(db)
	h.Register(Code, Contract{})
	require.NoError(t, h.SetBlock(host.BlockInfo{Height: 1, Time: 1_000}))
	owner := crypto.AccountAddress("owner")
	res, err := h.Instantiate(context.Background(), owner, Code, "oracle", mm.OracleInstantiateMsg{Owner: owner, BaseAsset: "usdt"})
	require.NoError(t, err)
	return h, res.Contract, owner
}

func TestFeedAndQueryPrice(t *testing.T) {
	h, oracle, owner := setup(t)
	ctx := context.Background()
	feeder := crypto.AccountAddress("feeder")

	_, err := h.Execute(ctx, feeder, oracle, mm.OracleExecuteMsg{RegisterFeeder: &mm.RegisterFeeder{Asset: "orai", Feeder: feeder}})
	require.ErrorIs(t, err, mm.ErrUnauthorized)
	_, err = h.Execute(ctx, owner, oracle, mm.OracleExecuteMsg{RegisterFeeder: &mm.RegisterFeeder{Asset: "orai", Feeder: feeder}})
	require.NoError(t, err)

	_, err = h.Execute(ctx, owner, oracle, mm.OracleExecuteMsg{FeedPrice: &mm.FeedPrice{Prices: []mm.PriceInput{{Asset: "orai", Price: num.MustDec("4")}}}})
	require.ErrorIs(t, err, mm.ErrUnauthorized)
	_, err = h.Execute(ctx, feeder, oracle, mm.OracleExecuteMsg{FeedPrice: &mm.FeedPrice{Prices: []mm.PriceInput{{Asset: "orai", Price: num.MustDec("4")}}}})
	require.NoError(t, err)

	var price mm.PriceResponse
	require.NoError(t, h.Query(ctx, oracle, mm.OracleQueryMsg{Price: &mm.PriceQuery{Base: "orai", Quote: "usdt"}}, &price))
	require.Equal(t, "4", price.Rate.String())
	require.Equal(t, uint64(1_000), price.LastUpdatedBase)
	require.Equal(t, BaseAssetUpdatedTime, price.LastUpdatedQuote)

	require.NoError(t, h.Query(ctx, oracle, mm.OracleQueryMsg{Price: &mm.PriceQuery{Base: "usdt", Quote: "orai"}}, &price))
	require.Equal(t, "0.25", price.Rate.String())

	err = h.Query(ctx, oracle, mm.OracleQueryMsg{Price: &mm.PriceQuery{Base: "atom", Quote: "usdt"}}, &price)
	require.ErrorIs(t, err, ErrPriceNotFound)
}

func TestPricesPagination(t *testing.T) {
	h, oracle, owner := setup(t)
	ctx := context.Background()
	for _, asset := range []string{"a", "b", "c"} {
		_, err := h.Execute(ctx, owner, oracle, mm.OracleExecuteMsg{RegisterFeeder: &mm.RegisterFeeder{Asset: asset, Feeder: owner}})
		require.NoError(t, err)
	}
	_, err := h.Execute(ctx, owner, oracle, mm.OracleExecuteMsg{FeedPrice: &mm.FeedPrice{Prices: []mm.PriceInput{
		{Asset: "a", Price: num.MustDec("1")},
		{Asset: "b", Price: num.MustDec("2")},
		{Asset: "c", Price: num.MustDec("3")},
	}}})
	require.NoError(t, err)

	limit := uint32(2)
	var page mm.PricesResponse
	require.NoError(t, h.Query(ctx, oracle, mm.OracleQueryMsg{Prices: &mm.PricesQuery{Limit: &limit}}, &page))
	require.Len(t, page.Prices, 2)
	require.Equal(t, "b", page.Prices[1].Asset)

	after := "b"
	require.NoError(t, h.Query(ctx, oracle, mm.OracleQueryMsg{Prices: &mm.PricesQuery{StartAfter: &after}}, &page))
	require.Len(t, page.Prices, 1)
	require.Equal(t, "3", page.Prices[0].Price.String())

	var feeder mm.FeederResponse
	require.NoError(t, h.Query(ctx, oracle, mm.OracleQueryMsg{Feeder: &mm.FeederQuery{Asset: "a"}}, &feeder))
	require.Equal(t, owner, feeder.Feeder)
}
