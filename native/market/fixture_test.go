package market

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"orchai/core/host"
	"orchai/core/num"
	"orchai/crypto"
	"orchai/native/distributionmodel"
	"orchai/native/interestmodel"
	mm "orchai/native/moneymarket"
	"orchai/native/token"
	"orchai/storage"
)

// stubOverseer answers the two overseer queries the market makes and relays
// messages so tests can act with the overseer's authority.
type stubOverseer struct {
	target *num.Decimal
	limits map[crypto.Address]num.Uint256
}

type relayMsg struct {
	Contract crypto.Address  `json:"contract"`
	Msg      json.RawMessage `json:"msg"`
}

func (stubOverseer) Instantiate(host.Deps, host.Env, host.MessageInfo, json.RawMessage) (*host.Response, error) {
	return host.NewResponse(), nil
}

func (stubOverseer) Execute(_ host.Deps, _ host.Env, _ host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg relayMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	return host.NewResponse().AddMessage(host.NewExecute(msg.Contract, msg.Msg)), nil
}

func (s stubOverseer) Query(_ host.Deps, _ host.Env, raw json.RawMessage) (json.RawMessage, error) {
	var msg mm.OverseerQueryMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	if msg.BorrowLimit != nil {
		limit, ok := s.limits[msg.BorrowLimit.Borrower]
		if !ok {
			limit = num.ZeroUint()
		}
		return json.Marshal(mm.BorrowLimitResponse{Borrower: msg.BorrowLimit.Borrower, BorrowLimit: limit})
	}
	return json.Marshal(mm.OverseerConfigResponse{TargetDepositRate: *s.target})
}

// sink accepts any message and records it.
type sink struct {
	got *[]json.RawMessage
}

func (sink) Instantiate(host.Deps, host.Env, host.MessageInfo, json.RawMessage) (*host.Response, error) {
	return host.NewResponse(), nil
}

func (s sink) Execute(_ host.Deps, _ host.Env, _ host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	*s.got = append(*s.got, raw)
	return host.NewResponse(), nil
}

func (sink) Query(host.Deps, host.Env, json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage("{}"), nil
}

type fixture struct {
	h   *host.Host
	ctx context.Context

	owner, alice, bob crypto.Address

	stable, aterra, market   crypto.Address
	overseer, collector, dst crypto.Address

	target num.Decimal
	limits map[crypto.Address]num.Uint256
	spent  []json.RawMessage
}

const startHeight = 100

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		h:      host.New(db),
		ctx:    context.Background(),
		owner:  crypto.AccountAddress("owner"),
		alice:  crypto.AccountAddress("alice"),
		bob:    crypto.AccountAddress("bob"),
		target: num.OneDec(),
		limits: make(map[crypto.Address]num.Uint256),
	}
	f.h.Register(token.Code, token.Contract{})
	f.h.Register(Code, Contract{})
	f.h.Register(interestmodel.Code, interestmodel.Contract{})
	f.h.Register(distributionmodel.Code, distributionmodel.Contract{})
	f.h.Register("overseer", stubOverseer{target: &f.target, limits: f.limits})
	f.h.Register("sink", sink{got: &f.spent})
	require.NoError(t, f.h.SetBlock(host.BlockInfo{Height: startHeight, Time: 1_700_000_000, ChainID: "test"}))

	f.stable = f.instantiate(t, token.Code, "stable", mm.TokenInstantiateMsg{
		Name:     "Stable",
		Symbol:   "USD",
		Decimals: 6,
		InitialBalances: []mm.Coin{
			{Address: f.owner, Amount: num.NewUint(InitialDepositAmount)},
			{Address: f.alice, Amount: num.NewUint(10_000_000)},
			{Address: f.bob, Amount: num.NewUint(10_000_000)},
		},
		Mint: &mm.MinterResponse{Minter: f.owner},
	})
	model := f.instantiate(t, interestmodel.Code, "interest", mm.InterestModelInstantiateMsg{
		Owner:              f.owner,
		BaseRate:           num.MustDec("0.00001"),
		InterestMultiplier: num.MustDec("0.0001"),
	})
	dist := f.instantiate(t, distributionmodel.Code, "distribution", mm.DistributionModelInstantiateMsg{
		Owner:               f.owner,
		EmissionCap:         num.MustDec("100"),
		EmissionFloor:       num.MustDec("1"),
		IncrementMultiplier: num.MustDec("1.1"),
		DecrementMultiplier: num.MustDec("0.9"),
	})
	f.overseer = f.instantiate(t, "overseer", "overseer", mm.Empty{})
	f.collector = f.instantiate(t, "sink", "collector", mm.Empty{})
	f.dst = f.instantiate(t, "sink", "distributor", mm.Empty{})

	f.market = crypto.ContractAddress(f.owner, "market")
	f.exec(t, f.owner, f.stable, mm.TokenExecuteMsg{Transfer: &mm.TransferMsg{Recipient: f.market, Amount: num.NewUint(InitialDepositAmount)}})
	require.Equal(t, f.market, f.instantiate(t, Code, "market", mm.MarketInstantiateMsg{
		OwnerAddr:       f.owner,
		StableAddr:      f.stable,
		AncEmissionRate: num.MustDec("10"),
		MaxBorrowFactor: num.MustDec("0.95"),
	}))
	f.aterra = crypto.ContractAddress(f.market, ReceiptTokenLabel)
	f.exec(t, f.owner, f.market, mm.MarketExecuteMsg{RegisterContracts: &mm.RegisterContracts{
		OverseerContract:    f.overseer,
		InterestModel:       model,
		DistributionModel:   dist,
		CollectorContract:   f.collector,
		DistributorContract: f.dst,
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

func (f *fixture) send(sender, tokenAddr crypto.Address, amount uint64, hook any) error {
	raw, err := json.Marshal(hook)
	if err != nil {
		return err
	}
	_, err = f.h.Execute(f.ctx, sender, tokenAddr, mm.TokenExecuteMsg{Send: &mm.SendMsg{
		Contract: f.market,
		Amount:   num.NewUint(amount),
		Msg:      raw,
	}})
	return err
}

func (f *fixture) deposit(sender crypto.Address, amount uint64) error {
	return f.send(sender, f.stable, amount, mm.MarketHookMsg{DepositStable: &mm.Empty{}})
}

func (f *fixture) borrow(sender crypto.Address, amount uint64) error {
	_, err := f.h.Execute(f.ctx, sender, f.market, mm.MarketExecuteMsg{BorrowStable: &mm.BorrowStable{BorrowAmount: num.NewUint(amount)}})
	return err
}

// asOverseer executes msg against the market with the overseer as sender.
func (f *fixture) asOverseer(msg any) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = f.h.Execute(f.ctx, f.owner, f.overseer, relayMsg{Contract: f.market, Msg: raw})
	return err
}

func (f *fixture) advance(t *testing.T, blocks uint64) {
	t.Helper()
	b := f.h.Block()
	b.Height += blocks
	b.Time += blocks * 6
	require.NoError(t, f.h.SetBlock(b))
}

func (f *fixture) balance(t *testing.T, tokenAddr, addr crypto.Address) string {
	t.Helper()
	var res mm.BalanceResponse
	require.NoError(t, f.h.Query(f.ctx, tokenAddr, mm.TokenQueryMsg{Balance: &mm.BalanceQuery{Address: addr}}, &res))
	return res.Balance.String()
}

func (f *fixture) state(t *testing.T) mm.MarketStateResponse {
	t.Helper()
	var res mm.MarketStateResponse
	require.NoError(t, f.h.Query(f.ctx, f.market, mm.MarketQueryMsg{State: &mm.StateQuery{}}, &res))
	return res
}

func (f *fixture) borrower(t *testing.T, addr crypto.Address) mm.BorrowerInfoResponse {
	t.Helper()
	var res mm.BorrowerInfoResponse
	require.NoError(t, f.h.Query(f.ctx, f.market, mm.MarketQueryMsg{BorrowerInfo: &mm.BorrowerInfoQuery{Borrower: addr}}, &res))
	return res
}
