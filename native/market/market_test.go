package market

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"orchai/core/host"
	"orchai/core/num"
	"orchai/crypto"
	mm "orchai/native/moneymarket"
)

func TestInstantiateRegistersReceiptToken(t *testing.T) {
	f := newFixture(t)

	var cfg mm.MarketConfigResponse
	require.NoError(t, f.h.Query(f.ctx, f.market, mm.MarketQueryMsg{Config: &mm.Empty{}}, &cfg))
	require.Equal(t, f.aterra, cfg.ATerraContract)
	require.Equal(t, f.overseer, cfg.OverseerContract)
	require.Equal(t, "0.95", cfg.MaxBorrowFactor.String())

	var info mm.TokenInfoResponse
	require.NoError(t, f.h.Query(f.ctx, f.aterra, mm.TokenQueryMsg{TokenInfo: &mm.Empty{}}, &info))
	require.Equal(t, "aUSD", info.Symbol)
	require.Equal(t, "1000000", info.TotalSupply.String())
	require.Equal(t, "1000000", f.balance(t, f.aterra, f.market))

	_, err := f.h.Execute(f.ctx, f.alice, f.market, mm.MarketExecuteMsg{RegisterATerra: &mm.Empty{}})
	require.ErrorIs(t, err, ErrAlreadyRegistered)

	again := &mm.RegisterContracts{OverseerContract: f.alice}
	_, err = f.h.Execute(f.ctx, f.alice, f.market, mm.MarketExecuteMsg{RegisterContracts: again})
	require.ErrorIs(t, err, mm.ErrUnauthorized)
	_, err = f.h.Execute(f.ctx, f.owner, f.market, mm.MarketExecuteMsg{RegisterContracts: again})
	require.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestInstantiateRequiresInitialDeposit(t *testing.T) {
	f := newFixture(t)
	_, err := f.h.Instantiate(f.ctx, f.owner, Code, "unfunded", mm.MarketInstantiateMsg{
		OwnerAddr:       f.owner,
		StableAddr:      f.stable,
		MaxBorrowFactor: num.OneDec(),
	})
	require.ErrorIs(t, err, ErrInitialFundsNotDeposited)
}

func TestDepositMintsAtExchangeRate(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.deposit(f.alice, 1_000_000))
	require.Equal(t, "1000000", f.balance(t, f.aterra, f.alice))
	require.Equal(t, "9000000", f.balance(t, f.stable, f.alice))
	require.Equal(t, "1000000", f.state(t).PrevATerraSupply.String())

	// Only the stable token may deliver deposits.
	err := f.send(f.alice, f.aterra, 10, mm.MarketHookMsg{DepositStable: &mm.Empty{}})
	require.ErrorIs(t, err, mm.ErrUnauthorized)

	// A transaction signed with the token's address cannot fake a receive.
	_, err = f.h.Execute(f.ctx, f.stable, f.market, mm.MarketExecuteMsg{Receive: &mm.Cw20ReceiveMsg{
		Sender: f.alice,
		Amount: num.NewUint(10),
		Msg:    json.RawMessage(`{"deposit_stable":{}}`),
	}})
	require.ErrorIs(t, err, host.ErrContractSender)
	require.Equal(t, "1000000", f.balance(t, f.aterra, f.alice))

	_, err = depositStable(host.Deps{}, host.Env{}, nil, f.alice, num.ZeroUint())
	require.ErrorIs(t, err, ErrZeroDeposit)

	err = f.send(f.alice, f.stable, 10, map[string]any{"unknown": map[string]any{}})
	require.ErrorIs(t, err, ErrMissingHook)
}

func TestDepositRedeemRoundTrip(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.deposit(f.alice, 250_000))
	minted := f.balance(t, f.aterra, f.alice)
	require.Equal(t, "250000", minted)

	f.advance(t, 5)
	require.NoError(t, f.send(f.alice, f.aterra, 250_000, mm.MarketHookMsg{RedeemStable: &mm.Empty{}}))
	require.Equal(t, "10000000", f.balance(t, f.stable, f.alice))
	require.Equal(t, "0", f.balance(t, f.aterra, f.alice))
	require.Equal(t, "1000000", f.balance(t, f.aterra, f.market))
}

func TestBorrowEnforcesLimit(t *testing.T) {
	f := newFixture(t)
	f.limits[f.bob] = num.NewUint(1_000)

	err := f.borrow(f.bob, 1_001)
	require.ErrorIs(t, err, ErrBorrowExceedsLimit)
	var limitErr *BorrowExceedsLimitError
	require.True(t, errors.As(err, &limitErr))
	require.Equal(t, "1000", limitErr.Limit.String())
	require.True(t, f.state(t).TotalLiabilities.IsZero())

	require.NoError(t, f.borrow(f.bob, 600))
	require.Equal(t, "10000600", f.balance(t, f.stable, f.bob))
	require.Equal(t, "600", f.borrower(t, f.bob).LoanAmount.String())

	// The limit covers the whole loan, not just the new draw.
	require.ErrorIs(t, f.borrow(f.bob, 401), ErrBorrowExceedsLimit)
	require.NoError(t, f.borrow(f.bob, 400))
	require.Equal(t, "1000", f.state(t).TotalLiabilities.String())
}

func TestBorrowDemandChecks(t *testing.T) {
	f := newFixture(t)
	f.limits[f.bob] = num.NewUint(100_000_000)

	require.ErrorIs(t, f.borrow(f.bob, 950_001), ErrMaxBorrowFactorReached)

	factor := num.MustDec("2")
	f.exec(t, f.owner, f.market, mm.MarketExecuteMsg{UpdateConfig: &mm.MarketUpdateConfig{MaxBorrowFactor: &factor}})
	require.ErrorIs(t, f.borrow(f.bob, 1_000_001), ErrNoStableAvailable)

	_, err := f.h.Execute(f.ctx, f.bob, f.market, mm.MarketExecuteMsg{UpdateConfig: &mm.MarketUpdateConfig{MaxBorrowFactor: &factor}})
	require.ErrorIs(t, err, mm.ErrUnauthorized)
}

func TestInterestAccruesAndRepayRefundsExcess(t *testing.T) {
	f := newFixture(t)
	f.limits[f.bob] = num.NewUint(1_000_000)

	require.NoError(t, f.borrow(f.bob, 100_000))
	f.advance(t, 10)

	// Utilisation 0.1 gives 0.00002 per block, 0.0002 over ten blocks.
	info := f.borrower(t, f.bob)
	require.Equal(t, "100020", info.LoanAmount.String())
	require.Equal(t, "1.0002", info.InterestIndex.String())
	st := f.state(t)
	require.Equal(t, "100020", st.TotalLiabilities.String())
	require.Equal(t, "1.00002", st.PrevExchangeRate.String())

	require.NoError(t, f.send(f.bob, f.stable, 200_000, mm.MarketHookMsg{RepayStable: &mm.Empty{}}))
	require.Equal(t, "9999980", f.balance(t, f.stable, f.bob))
	require.True(t, f.borrower(t, f.bob).LoanAmount.IsZero())
	require.True(t, f.state(t).TotalLiabilities.IsZero())
}

func TestRepayFromLiquidationUsesBalanceDelta(t *testing.T) {
	f := newFixture(t)
	f.limits[f.bob] = num.NewUint(1_000)
	require.NoError(t, f.borrow(f.bob, 1_000))

	prev := num.MustUint(f.balance(t, f.stable, f.market))
	f.exec(t, f.alice, f.stable, mm.TokenExecuteMsg{Transfer: &mm.TransferMsg{Recipient: f.market, Amount: num.NewUint(600)}})

	msg := mm.MarketExecuteMsg{RepayStableFromLiquidation: &mm.RepayStableFromLiquidation{Borrower: f.bob, PrevBalance: prev}}
	_, err := f.h.Execute(f.ctx, f.alice, f.market, msg)
	require.ErrorIs(t, err, mm.ErrUnauthorized)

	require.NoError(t, f.asOverseer(msg))
	require.Equal(t, "400", f.borrower(t, f.bob).LoanAmount.String())

	// Nothing received since prev: zero repay is rejected.
	prev = num.MustUint(f.balance(t, f.stable, f.market))
	msg.RepayStableFromLiquidation.PrevBalance = prev
	require.ErrorIs(t, f.asOverseer(msg), ErrZeroRepay)
}

func TestClaimRewards(t *testing.T) {
	f := newFixture(t)
	f.limits[f.bob] = num.NewUint(1_000_000)
	require.NoError(t, f.borrow(f.bob, 100_000))
	f.advance(t, 10)

	// 10 per block over 100000 principal for ten blocks.
	require.Equal(t, "100", f.borrower(t, f.bob).PendingRewards.String())

	threshold := num.NewUint(1_000)
	f.exec(t, f.owner, f.market, mm.MarketExecuteMsg{UpdateConfig: &mm.MarketUpdateConfig{RewardClaimThreshold: &threshold}})
	f.exec(t, f.bob, f.market, mm.MarketExecuteMsg{ClaimRewards: &mm.ClaimRewards{}})
	require.Empty(t, f.spent)
	require.Equal(t, "100", f.borrower(t, f.bob).PendingRewards.String())

	threshold = num.ZeroUint()
	f.exec(t, f.owner, f.market, mm.MarketExecuteMsg{UpdateConfig: &mm.MarketUpdateConfig{RewardClaimThreshold: &threshold}})
	to := crypto.AccountAddress("cold")
	f.exec(t, f.bob, f.market, mm.MarketExecuteMsg{ClaimRewards: &mm.ClaimRewards{To: &to}})
	require.Len(t, f.spent, 1)
	var spend mm.DistributorExecuteMsg
	require.NoError(t, json.Unmarshal(f.spent[0], &spend))
	require.Equal(t, to, spend.Spend.Recipient)
	require.Equal(t, "100", spend.Spend.Amount.String())
	require.True(t, f.borrower(t, f.bob).PendingRewards.IsZero())
}

func TestEpochOperations(t *testing.T) {
	f := newFixture(t)
	f.limits[f.bob] = num.NewUint(1_000_000)
	require.NoError(t, f.borrow(f.bob, 100_000))

	ops := mm.MarketExecuteMsg{ExecuteEpochOperations: &mm.MarketEpochOperations{
		DepositRate:          num.ZeroDec(),
		TargetDepositRate:    num.ZeroDec(),
		ThresholdDepositRate: num.MustDec("0.1"),
		DistributedInterest:  num.ZeroUint(),
	}}
	_, err := f.h.Execute(f.ctx, f.bob, f.market, ops)
	require.ErrorIs(t, err, mm.ErrUnauthorized)

	ops.ExecuteEpochOperations.TargetDepositRate = num.MustDec("0.2")
	f.advance(t, 10)
	require.NoError(t, f.asOverseer(ops))
	st := f.state(t)
	// Deposit rate below the low trigger raises emission by 10%.
	require.Equal(t, "11", st.AncEmissionRate.String())
	require.Equal(t, "1000000", st.PrevATerraSupply.String())
	require.Equal(t, "0", f.balance(t, f.stable, f.collector))

	// With a zero target all deposit yield of the next epoch is reserved
	// and swept to the collector.
	ops.ExecuteEpochOperations.TargetDepositRate = num.ZeroDec()
	f.advance(t, 10)
	require.NoError(t, f.asOverseer(ops))
	require.Equal(t, "20", f.balance(t, f.stable, f.collector))
	require.True(t, f.state(t).TotalReserves.Lt(num.OneDec()))
}

func TestQueries(t *testing.T) {
	f := newFixture(t)
	f.limits[f.alice] = num.NewUint(1_000)
	f.limits[f.bob] = num.NewUint(1_000)
	require.NoError(t, f.borrow(f.alice, 10))
	require.NoError(t, f.borrow(f.bob, 20))

	old := uint64(startHeight - 1)
	err := f.h.Query(f.ctx, f.market, mm.MarketQueryMsg{State: &mm.StateQuery{BlockHeight: &old}}, &mm.MarketStateResponse{})
	require.ErrorIs(t, err, ErrInvalidBlockHeight)

	var page mm.BorrowerInfosResponse
	require.NoError(t, f.h.Query(f.ctx, f.market, mm.MarketQueryMsg{BorrowerInfos: &mm.BorrowerInfosQuery{}}, &page))
	require.Len(t, page.BorrowerInfos, 2)

	limit := uint32(1)
	first := page.BorrowerInfos[0].Borrower
	require.NoError(t, f.h.Query(f.ctx, f.market, mm.MarketQueryMsg{BorrowerInfos: &mm.BorrowerInfosQuery{StartAfter: &first, Limit: &limit}}, &page))
	require.Len(t, page.BorrowerInfos, 1)
	require.NotEqual(t, first, page.BorrowerInfos[0].Borrower)

	var epoch mm.EpochStateResponse
	require.NoError(t, f.h.Query(f.ctx, f.market, mm.MarketQueryMsg{EpochState: &mm.EpochStateQuery{}}, &epoch))
	require.Equal(t, "1", epoch.ExchangeRate.String())
	require.Equal(t, "1000000", epoch.ATerraSupply.String())
}
