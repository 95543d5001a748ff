package overseer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"orchai/core/host"
	"orchai/core/num"
	"orchai/crypto"
	"orchai/native/custody"
	"orchai/native/liquidation"
	mm "orchai/native/moneymarket"
	"orchai/native/moneymarket/mmtest"
	"orchai/native/oracle"
	"orchai/native/token"
	"orchai/storage"
)

// stubMarket reports loans and the exchange rate the tests dictate.
type stubMarket struct {
	loans  map[crypto.Address]num.Uint256
	rate   num.Decimal
	supply num.Uint256
}

func (m *stubMarket) answer(raw json.RawMessage) (any, error) {
	var msg mm.MarketQueryMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	if msg.BorrowerInfo != nil {
		loan, ok := m.loans[msg.BorrowerInfo.Borrower]
		if !ok {
			loan = num.ZeroUint()
		}
		return mm.BorrowerInfoResponse{Borrower: msg.BorrowerInfo.Borrower, LoanAmount: loan}, nil
	}
	return mm.EpochStateResponse{ExchangeRate: m.rate, ATerraSupply: m.supply}, nil
}

type fixture struct {
	h   *host.Host
	ctx context.Context

	owner, alice, bidder, feeder crypto.Address

	stable, bluna, oracle       crypto.Address
	custody, liquidation        crypto.Address
	market, collector, overseer crypto.Address

	mkt      *stubMarket
	marketRx mmtest.Recorder
}

const (
	startHeight = 1
	startTime   = 1_700_000_000
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(func() { db.Close() })
	f := &fixture{
		h:      host.New(db),
		ctx:    context.Background(),
		owner:  crypto.AccountAddress("owner"),
		alice:  crypto.AccountAddress("alice"),
		bidder: crypto.AccountAddress("bidder"),
		feeder: crypto.AccountAddress("feeder"),
		mkt: &stubMarket{
			loans:  make(map[crypto.Address]num.Uint256),
			rate:   num.OneDec(),
			supply: num.NewUint(1_000_000),
		},
	}
	f.h.Register(token.Code, token.Contract{})
	f.h.Register(oracle.Code, oracle.Contract{})
	f.h.Register(custody.Code, custody.Contract{})
	f.h.Register(liquidation.Code, liquidation.Contract{})
	f.h.Register(Code, Contract{})
	f.h.Register("market", mmtest.Relay{Answer: f.mkt.answer, Recorder: &f.marketRx})
	f.h.Register("sink", mmtest.Sink{})
	require.NoError(t, f.h.SetBlock(host.BlockInfo{Height: startHeight, Time: startTime, ChainID: "test"}))

	f.stable = f.instantiate(t, token.Code, "stable", mm.TokenInstantiateMsg{
		Name: "Stable", Symbol: "USD", Decimals: 6,
		InitialBalances: []mm.Coin{
			{Address: f.owner, Amount: num.NewUint(100_000)},
			{Address: f.bidder, Amount: num.NewUint(10_000)},
		},
	})
	f.bluna = f.instantiate(t, token.Code, "bluna", mm.TokenInstantiateMsg{
		Name: "Bonded", Symbol: "BLUNA", Decimals: 6,
		InitialBalances: []mm.Coin{{Address: f.alice, Amount: num.NewUint(10_000)}},
	})
	f.oracle = f.instantiate(t, oracle.Code, "oracle", mm.OracleInstantiateMsg{Owner: f.owner, BaseAsset: f.stable.String()})
	f.exec(t, f.owner, f.oracle, mm.OracleExecuteMsg{RegisterFeeder: &mm.RegisterFeeder{Asset: f.bluna.String(), Feeder: f.feeder}})
	f.feed(t, "2")

	f.market = f.instantiate(t, "market", "market", mm.Empty{})
	f.collector = f.instantiate(t, "sink", "collector", mm.Empty{})
	f.liquidation = f.instantiate(t, liquidation.Code, "liquidation", mm.LiquidationInstantiateMsg{
		Owner:                f.owner,
		OracleContract:       f.oracle,
		StableAddr:           f.stable,
		SafeRatio:            num.MustDec("0.8"),
		BidFee:               num.MustDec("0.01"),
		MaxPremiumRate:       num.MustDec("0.3"),
		LiquidationThreshold: num.NewUint(100),
		PriceTimeframe:       60,
	})
	f.overseer = crypto.ContractAddress(f.owner, "overseer")
	f.custody = f.instantiate(t, custody.Code, "custody", mm.CustodyInstantiateMsg{
		Owner:               f.owner,
		CollateralToken:     f.bluna,
		OverseerContract:    f.overseer,
		MarketContract:      f.market,
		LiquidationContract: f.liquidation,
		StableAddr:          f.stable,
		BAssetInfo:          mm.BAssetInfo{Name: "Bonded", Symbol: "BLUNA", Decimals: 6},
		RewardsThreshold:    num.ZeroUint(),
	})
	require.Equal(t, f.overseer, f.instantiate(t, Code, "overseer", mm.OverseerInstantiateMsg{
		OwnerAddr:                f.owner,
		OracleContract:           f.oracle,
		MarketContract:           f.market,
		LiquidationContract:      f.liquidation,
		CollectorContract:        f.collector,
		StableAddr:               f.stable,
		EpochPeriod:              10,
		ThresholdDepositRate:     num.MustDec("0.000001"),
		TargetDepositRate:        num.MustDec("0.000002"),
		BufferDistributionFactor: num.MustDec("0.1"),
		AncPurchaseFactor:        num.MustDec("0.1"),
		PriceTimeframe:           60,
	}))
	f.exec(t, f.owner, f.overseer, mm.OverseerExecuteMsg{Whitelist: &mm.Whitelist{
		Name:            "Bonded",
		Symbol:          "BLUNA",
		CollateralToken: f.bluna,
		CustodyContract: f.custody,
		MaxLtv:          num.MustDec("0.5"),
	}})
	return f
}

func (f *fixture) instantiate(t *testing.T, code, label string, msg any) crypto.Address {
	t.Helper()
	res, err := f.h.Instantiate(f.ctx, f.owner, code, label, msg)
	require.NoError(t, err)
	return res.Contract
}

func (f *fixture) exec(t *testing.T, sender, contract crypto.Address, msg any) {
	t.Helper()
	_, err := f.h.Execute(f.ctx, sender, contract, msg)
	require.NoError(t, err)
}

func (f *fixture) feed(t *testing.T, price string) {
	t.Helper()
	f.exec(t, f.feeder, f.oracle, mm.OracleExecuteMsg{FeedPrice: &mm.FeedPrice{Prices: []mm.PriceInput{{Asset: f.bluna.String(), Price: num.MustDec(price)}}}})
}

func (f *fixture) advance(t *testing.T, blocks uint64) {
	t.Helper()
	b := f.h.Block()
	b.Height += blocks
	b.Time += blocks * 6
	require.NoError(t, f.h.SetBlock(b))
}

// depositAndLock moves amount of bluna into custody and locks it.
func (f *fixture) depositAndLock(t *testing.T, amount uint64) {
	t.Helper()
	raw, err := json.Marshal(mm.CustodyHookMsg{DepositCollateral: &mm.Empty{}})
	require.NoError(t, err)
	f.exec(t, f.alice, f.bluna, mm.TokenExecuteMsg{Send: &mm.SendMsg{Contract: f.custody, Amount: num.NewUint(amount), Msg: raw}})
	f.exec(t, f.alice, f.overseer, mm.OverseerExecuteMsg{LockCollateral: &mm.CollateralsMsg{
		Collaterals: mm.Collaterals{{Token: f.bluna, Amount: num.NewUint(amount)}},
	}})
}

func (f *fixture) unlock(amount uint64) error {
	_, err := f.h.Execute(f.ctx, f.alice, f.overseer, mm.OverseerExecuteMsg{UnlockCollateral: &mm.CollateralsMsg{
		Collaterals: mm.Collaterals{{Token: f.bluna, Amount: num.NewUint(amount)}},
	}})
	return err
}

func (f *fixture) borrowLimit(t *testing.T, blockTime *uint64) string {
	t.Helper()
	var res mm.BorrowLimitResponse
	require.NoError(t, f.h.Query(f.ctx, f.overseer, mm.OverseerQueryMsg{BorrowLimit: &mm.BorrowLimitQuery{Borrower: f.alice, BlockTime: blockTime}}, &res))
	return res.BorrowLimit.String()
}

func (f *fixture) locked(t *testing.T) string {
	t.Helper()
	var res mm.CollateralsResponse
	require.NoError(t, f.h.Query(f.ctx, f.overseer, mm.OverseerQueryMsg{Collaterals: &mm.CollateralsQuery{Borrower: f.alice}}, &res))
	return res.Collaterals.Amount(f.bluna).String()
}

func (f *fixture) custodyPosition(t *testing.T) mm.CustodyBorrowerResponse {
	t.Helper()
	var res mm.CustodyBorrowerResponse
	require.NoError(t, f.h.Query(f.ctx, f.custody, mm.CustodyQueryMsg{Borrower: &mm.BorrowerQuery{Address: f.alice}}, &res))
	return res
}

func (f *fixture) balance(t *testing.T, tokenAddr, addr crypto.Address) string {
	t.Helper()
	var res mm.BalanceResponse
	require.NoError(t, f.h.Query(f.ctx, tokenAddr, mm.TokenQueryMsg{Balance: &mm.BalanceQuery{Address: addr}}, &res))
	return res.Balance.String()
}

func (f *fixture) epochState(t *testing.T) mm.OverseerEpochStateResponse {
	t.Helper()
	var res mm.OverseerEpochStateResponse
	require.NoError(t, f.h.Query(f.ctx, f.overseer, mm.OverseerQueryMsg{EpochState: &mm.Empty{}}, &res))
	return res
}

// marketCalls decodes the execute messages the stub market received.
func (f *fixture) marketCalls(t *testing.T) []mm.MarketExecuteMsg {
	t.Helper()
	var out []mm.MarketExecuteMsg
	for _, raw := range f.marketRx.Messages() {
		var msg mm.MarketExecuteMsg
		require.NoError(t, json.Unmarshal(raw, &msg))
		out = append(out, msg)
	}
	return out
}
