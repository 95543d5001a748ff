package custody

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"orchai/core/host"
	"orchai/core/num"
	"orchai/crypto"
	mm "orchai/native/moneymarket"
	"orchai/native/moneymarket/mmtest"
	"orchai/native/token"
	"orchai/storage"
)

type fixture struct {
	h   *host.Host
	ctx context.Context

	owner, alice, market      crypto.Address
	collateral, stable        crypto.Address
	overseer, liquidation, cu crypto.Address

	sold mmtest.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		h:      host.New(db),
		ctx:    context.Background(),
		owner:  crypto.AccountAddress("owner"),
		alice:  crypto.AccountAddress("alice"),
		market: crypto.AccountAddress("market"),
	}
	f.h.Register(token.Code, token.Contract{})
	f.h.Register(Code, Contract{})
	f.h.Register("relay", mmtest.Relay{})
	f.h.Register("sink", mmtest.Sink{Recorder: &f.sold})
	require.NoError(t, f.h.SetBlock(host.BlockInfo{Height: 1, Time: 1_700_000_000, ChainID: "test"}))

	f.collateral = f.instantiate(t, token.Code, "bluna", mm.TokenInstantiateMsg{
		Name: "Bonded", Symbol: "BLUNA", Decimals: 6,
		InitialBalances: []mm.Coin{{Address: f.alice, Amount: num.NewUint(1_000)}},
	})
	f.stable = f.instantiate(t, token.Code, "stable", mm.TokenInstantiateMsg{
		Name: "Stable", Symbol: "USD", Decimals: 6,
		InitialBalances: []mm.Coin{{Address: f.owner, Amount: num.NewUint(10_000)}},
	})
	f.overseer = f.instantiate(t, "relay", "overseer", mm.Empty{})
	f.liquidation = f.instantiate(t, "sink", "liquidation", mm.Empty{})
	f.cu = f.instantiate(t, Code, "custody", mm.CustodyInstantiateMsg{
		Owner:               f.owner,
		CollateralToken:     f.collateral,
		OverseerContract:    f.overseer,
		MarketContract:      f.market,
		LiquidationContract: f.liquidation,
		StableAddr:          f.stable,
		BAssetInfo:          mm.BAssetInfo{Name: "Bonded", Symbol: "BLUNA", Decimals: 6},
		RewardsThreshold:    num.ZeroUint(),
	})
	return f
}

func (f *fixture) instantiate(t *testing.T, code, label string, msg any) crypto.Address {
	t.Helper()
	res, err := f.h.Instantiate(f.ctx, f.owner, code, label, msg)
	require.NoError(t, err)
	return res.Contract
}

func (f *fixture) deposit(tokenAddr crypto.Address, amount uint64) error {
	raw, err := json.Marshal(mm.CustodyHookMsg{DepositCollateral: &mm.Empty{}})
	if err != nil {
		return err
	}
	_, err = f.h.Execute(f.ctx, f.alice, tokenAddr, mm.TokenExecuteMsg{Send: &mm.SendMsg{
		Contract: f.cu, Amount: num.NewUint(amount), Msg: raw,
	}})
	return err
}

func (f *fixture) asOverseer(msg mm.CustodyExecuteMsg) error {
	fwd, err := mmtest.NewForward(f.cu, msg)
	if err != nil {
		return err
	}
	_, err = f.h.Execute(f.ctx, f.owner, f.overseer, fwd)
	return err
}

func (f *fixture) position(t *testing.T) (string, string) {
	t.Helper()
	var res mm.CustodyBorrowerResponse
	require.NoError(t, f.h.Query(f.ctx, f.cu, mm.CustodyQueryMsg{Borrower: &mm.BorrowerQuery{Address: f.alice}}, &res))
	return res.Balance.String(), res.Spendable.String()
}

func (f *fixture) balance(t *testing.T, tokenAddr, addr crypto.Address) string {
	t.Helper()
	var res mm.BalanceResponse
	require.NoError(t, f.h.Query(f.ctx, tokenAddr, mm.TokenQueryMsg{Balance: &mm.BalanceQuery{Address: addr}}, &res))
	return res.Balance.String()
}

func amount(v uint64) *mm.CustodyAmount {
	return &mm.CustodyAmount{Borrower: crypto.AccountAddress("alice"), Amount: num.NewUint(v)}
}

func requireAvailable(t *testing.T, err error, sentinel error, available string) {
	t.Helper()
	require.ErrorIs(t, err, sentinel)
	var amountErr *AmountError
	require.True(t, errors.As(err, &amountErr))
	require.Equal(t, available, amountErr.Available.String())
}

func TestDepositOnlyFromCollateralToken(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.deposit(f.collateral, 100))
	bal, spendable := f.position(t)
	require.Equal(t, "100", bal)
	require.Equal(t, "100", spendable)

	_, err := f.h.Execute(f.ctx, f.owner, f.stable, mm.TokenExecuteMsg{Transfer: &mm.TransferMsg{Recipient: f.alice, Amount: num.NewUint(50)}})
	require.NoError(t, err)
	require.ErrorIs(t, f.deposit(f.stable, 50), mm.ErrUnauthorized)
	require.Equal(t, "50", f.balance(t, f.stable, f.alice))
}

func TestLockUnlockRespectSpendable(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.deposit(f.collateral, 100))

	_, err := f.h.Execute(f.ctx, f.alice, f.cu, mm.CustodyExecuteMsg{LockCollateral: amount(10)})
	require.ErrorIs(t, err, mm.ErrUnauthorized)

	require.NoError(t, f.asOverseer(mm.CustodyExecuteMsg{LockCollateral: amount(60)}))
	bal, spendable := f.position(t)
	require.Equal(t, "100", bal)
	require.Equal(t, "40", spendable)

	requireAvailable(t, f.asOverseer(mm.CustodyExecuteMsg{LockCollateral: amount(50)}), ErrLockAmountExceedsSpendable, "40")
	requireAvailable(t, f.asOverseer(mm.CustodyExecuteMsg{UnlockCollateral: amount(70)}), ErrUnlockAmountExceedsLocked, "60")

	require.NoError(t, f.asOverseer(mm.CustodyExecuteMsg{UnlockCollateral: amount(10)}))
	_, spendable = f.position(t)
	require.Equal(t, "50", spendable)
}

func TestWithdrawDefaultsToSpendable(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.deposit(f.collateral, 100))
	require.NoError(t, f.asOverseer(mm.CustodyExecuteMsg{LockCollateral: amount(60)}))

	over := num.NewUint(41)
	_, err := f.h.Execute(f.ctx, f.alice, f.cu, mm.CustodyExecuteMsg{WithdrawCollateral: &mm.WithdrawCollateral{Amount: &over}})
	requireAvailable(t, err, ErrWithdrawAmountExceedsSpendable, "40")

	_, err = f.h.Execute(f.ctx, f.alice, f.cu, mm.CustodyExecuteMsg{WithdrawCollateral: &mm.WithdrawCollateral{}})
	require.NoError(t, err)
	bal, spendable := f.position(t)
	require.Equal(t, "60", bal)
	require.Equal(t, "0", spendable)
	require.Equal(t, "940", f.balance(t, f.collateral, f.alice))

	// Releasing and withdrawing everything deletes the record.
	require.NoError(t, f.asOverseer(mm.CustodyExecuteMsg{UnlockCollateral: amount(60)}))
	_, err = f.h.Execute(f.ctx, f.alice, f.cu, mm.CustodyExecuteMsg{WithdrawCollateral: &mm.WithdrawCollateral{}})
	require.NoError(t, err)
	var all mm.CustodyBorrowersResponse
	require.NoError(t, f.h.Query(f.ctx, f.cu, mm.CustodyQueryMsg{Borrowers: &mm.BorrowersQuery{}}, &all))
	require.Empty(t, all.Borrowers)
	require.Equal(t, "1000", f.balance(t, f.collateral, f.alice))
}

func TestLiquidateSendsLockedCollateralToBidPool(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.deposit(f.collateral, 100))
	require.NoError(t, f.asOverseer(mm.CustodyExecuteMsg{LockCollateral: amount(50)}))

	liquidator := crypto.AccountAddress("liquidator")
	seize := func(v uint64) error {
		return f.asOverseer(mm.CustodyExecuteMsg{LiquidateCollateral: &mm.CustodyLiquidate{
			Liquidator: liquidator, Borrower: f.alice, Amount: num.NewUint(v),
		}})
	}
	requireAvailable(t, seize(51), ErrLiquidationAmountExceedsLocked, "50")
	require.Empty(t, f.sold.Messages())

	require.NoError(t, seize(30))
	bal, spendable := f.position(t)
	require.Equal(t, "70", bal)
	require.Equal(t, "50", spendable)
	require.Equal(t, "30", f.balance(t, f.collateral, f.liquidation))

	got := f.sold.Messages()
	require.Len(t, got, 1)
	var env mm.ReceiveEnvelope
	require.NoError(t, json.Unmarshal(got[0], &env))
	require.Equal(t, f.cu, env.Receive.Sender)
	var hook mm.LiquidationHookMsg
	require.NoError(t, json.Unmarshal(env.Receive.Msg, &hook))
	require.NotNil(t, hook.ExecuteBid)
	require.Equal(t, liquidator, hook.ExecuteBid.Liquidator)
	require.Equal(t, f.overseer, *hook.ExecuteBid.FeeAddress)
	require.Equal(t, f.market, *hook.ExecuteBid.RepayAddress)
}

func TestFullLiquidationDeletesBorrower(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.deposit(f.collateral, 100))
	require.NoError(t, f.asOverseer(mm.CustodyExecuteMsg{LockCollateral: amount(100)}))

	require.NoError(t, f.asOverseer(mm.CustodyExecuteMsg{LiquidateCollateral: &mm.CustodyLiquidate{
		Liquidator: crypto.AccountAddress("liquidator"), Borrower: f.alice, Amount: num.NewUint(100),
	}}))
	require.Equal(t, "100", f.balance(t, f.collateral, f.liquidation))

	var all mm.CustodyBorrowersResponse
	require.NoError(t, f.h.Query(f.ctx, f.cu, mm.CustodyQueryMsg{Borrowers: &mm.BorrowersQuery{}}, &all))
	require.Empty(t, all.Borrowers)
}

func TestZeroAmountsLeaveNoRecord(t *testing.T) {
	f := newFixture(t)
	bob := &mm.CustodyAmount{Borrower: crypto.AccountAddress("bob"), Amount: num.ZeroUint()}

	require.ErrorIs(t, f.asOverseer(mm.CustodyExecuteMsg{LockCollateral: bob}), ErrZeroAmount)
	require.ErrorIs(t, f.asOverseer(mm.CustodyExecuteMsg{UnlockCollateral: bob}), ErrZeroAmount)
	require.ErrorIs(t, f.asOverseer(mm.CustodyExecuteMsg{LiquidateCollateral: &mm.CustodyLiquidate{
		Liquidator: f.owner, Borrower: bob.Borrower, Amount: num.ZeroUint(),
	}}), ErrZeroAmount)

	var all mm.CustodyBorrowersResponse
	require.NoError(t, f.h.Query(f.ctx, f.cu, mm.CustodyQueryMsg{Borrowers: &mm.BorrowersQuery{}}, &all))
	require.Empty(t, all.Borrowers)
}

func TestDistributeRewardsForwardsStableToOverseer(t *testing.T) {
	f := newFixture(t)
	fund := func(v uint64) {
		_, err := f.h.Execute(f.ctx, f.owner, f.stable, mm.TokenExecuteMsg{Transfer: &mm.TransferMsg{Recipient: f.cu, Amount: num.NewUint(v)}})
		require.NoError(t, err)
	}
	fund(500)

	_, err := f.h.Execute(f.ctx, f.alice, f.cu, mm.CustodyExecuteMsg{DistributeHook: &mm.Empty{}})
	require.ErrorIs(t, err, mm.ErrUnauthorized)

	require.NoError(t, f.asOverseer(mm.CustodyExecuteMsg{DistributeRewards: &mm.Empty{}}))
	require.Equal(t, "500", f.balance(t, f.stable, f.overseer))
	require.Equal(t, "0", f.balance(t, f.stable, f.cu))

	threshold := num.NewUint(1_000)
	_, err = f.h.Execute(f.ctx, f.owner, f.cu, mm.CustodyExecuteMsg{UpdateConfig: &mm.CustodyUpdateConfig{RewardsThreshold: &threshold}})
	require.NoError(t, err)
	fund(300)
	require.NoError(t, f.asOverseer(mm.CustodyExecuteMsg{DistributeRewards: &mm.Empty{}}))
	require.Equal(t, "300", f.balance(t, f.stable, f.cu))

	var cfg mm.CustodyConfigResponse
	require.NoError(t, f.h.Query(f.ctx, f.cu, mm.CustodyQueryMsg{Config: &mm.Empty{}}, &cfg))
	require.Equal(t, "1000", cfg.RewardsThreshold.String())
	require.Equal(t, "BLUNA", cfg.BAssetInfo.Symbol)
}
