package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"orchai/core/events"
	"orchai/core/genesis"
	"orchai/core/host"
	"orchai/core/num"
	"orchai/crypto"
	mm "orchai/native/moneymarket"
	"orchai/observability"
	"orchai/storage"
)

var (
	ErrChainIDMismatch = errors.New("node: stored chain id does not match genesis")
	ErrEpochNotDue     = errors.New("node: epoch period has not passed")
)

// Options customises a Node.
type Options struct {
	Logger *slog.Logger
	// Keeper signs epoch operations. Nil disables the keeper.
	Keeper *crypto.Address
	// SecondsPerBlock advances block time by a fixed step. Zero follows Clock.
	SecondsPerBlock uint64
	Clock           func() time.Time
}

// Node drives a money-market deployment: it owns the host, advances the
// block clock, runs the epoch keeper and fans committed events out to
// subscribers.
type Node struct {
	db     storage.Database
	host   *host.Host
	dep    genesis.Deployment
	logger *slog.Logger
	events *events.Fanout

	keeper          *crypto.Address
	secondsPerBlock uint64
	clock           func() time.Time

	blockMu sync.Mutex
}

// NewNode opens the deployment stored in db, bootstrapping it from spec on a
// fresh database.
func NewNode(ctx context.Context, db storage.Database, spec *genesis.Spec, opts Options) (*Node, error) {
	if spec == nil {
		return nil, fmt.Errorf("genesis spec must not be nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	n := &Node{
		db:              db,
		logger:          logger.With(slog.String("component", "node")),
		events:          events.NewFanout(),
		keeper:          opts.Keeper,
		secondsPerBlock: opts.SecondsPerBlock,
		clock:           clock,
	}
	n.host = host.New(db, host.WithLogger(logger), host.WithEmitter(n.events))
	genesis.RegisterCodes(n.host)
	n.events.Subscribe(events.EmitterFunc(n.observe))

	resumed, err := n.host.LoadBlock()
	if err != nil {
		return nil, fmt.Errorf("load block: %w", err)
	}
	if resumed {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		if stored := n.host.Block().ChainID; stored != spec.ChainID {
			return nil, fmt.Errorf("%w: %q vs %q", ErrChainIDMismatch, stored, spec.ChainID)
		}
		n.dep = spec.Deployment()
		n.logger.Info("resumed deployment",
			slog.Uint64("height", n.host.Block().Height),
			slog.String("chainId", spec.ChainID))
		return n, nil
	}
	dep, err := genesis.Build(ctx, spec, n.host)
	if err != nil {
		return nil, fmt.Errorf("build genesis: %w", err)
	}
	n.dep = *dep
	n.logger.Info("bootstrapped deployment",
		slog.Uint64("height", n.host.Block().Height),
		slog.String("chainId", spec.ChainID),
		slog.String("market", dep.Market.String()))
	return n, nil
}

func (n *Node) Host() *host.Host { return n.host }

func (n *Node) Deployment() genesis.Deployment { return n.dep }

// Events is the fanout receiving every committed event. Subscribers must not
// block.
func (n *Node) Events() *events.Fanout { return n.events }

func (n *Node) Block() host.BlockInfo { return n.host.Block() }

// Submit executes msg against contract as sender.
func (n *Node) Submit(ctx context.Context, sender, contract crypto.Address, msg json.RawMessage) (*host.Result, error) {
	if len(msg) == 0 {
		return nil, host.ErrEmptyMessage
	}
	return n.host.Execute(ctx, sender, contract, msg)
}

// Query runs a smart query against committed state.
func (n *Node) Query(ctx context.Context, contract crypto.Address, req json.RawMessage) (json.RawMessage, error) {
	return n.host.QueryRaw(ctx, contract, req)
}

// ProduceBlock advances the clock by one block, runs the keeper when an
// epoch is due and refreshes the market gauges.
func (n *Node) ProduceBlock(ctx context.Context) (host.BlockInfo, error) {
	n.blockMu.Lock()
	defer n.blockMu.Unlock()

	prev := n.host.Block()
	next := host.BlockInfo{Height: prev.Height + 1, Time: prev.Time, ChainID: prev.ChainID}
	if n.secondsPerBlock > 0 {
		next.Time += n.secondsPerBlock
	} else if now := n.clock().Unix(); now > 0 && uint64(now) > prev.Time {
		next.Time = uint64(now)
	}
	if err := n.host.SetBlock(next); err != nil {
		return prev, err
	}
	n.events.Emit(events.BlockProduced{Height: next.Height, Time: next.Time, ChainID: next.ChainID})

	if n.keeper != nil {
		if _, err := n.RunKeeper(ctx); err != nil && !errors.Is(err, ErrEpochNotDue) {
			n.logger.Warn("epoch keeper failed", slog.Uint64("height", next.Height), slog.Any("error", err))
		}
	}
	if err := n.RefreshMetrics(ctx); err != nil {
		n.logger.Debug("refresh market metrics", slog.Any("error", err))
	}
	return next, nil
}

// Run produces a block every interval until ctx is done.
func (n *Node) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("block interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			block, err := n.ProduceBlock(ctx)
			if err != nil {
				return fmt.Errorf("produce block: %w", err)
			}
			n.logger.Debug("block produced", slog.Uint64("height", block.Height), slog.Uint64("time", block.Time))
		}
	}
}

// RunKeeper submits ExecuteEpochOperations to the overseer once the epoch
// period has elapsed. ErrEpochNotDue is returned otherwise.
func (n *Node) RunKeeper(ctx context.Context) (*host.Result, error) {
	if n.keeper == nil {
		return nil, fmt.Errorf("node: keeper account not configured")
	}
	q := n.querier(ctx)
	var cfg mm.OverseerConfigResponse
	if err := q.Query(n.dep.Overseer, mm.OverseerQueryMsg{Config: &mm.Empty{}}, &cfg); err != nil {
		return nil, err
	}
	var state mm.OverseerEpochStateResponse
	if err := q.Query(n.dep.Overseer, mm.OverseerQueryMsg{EpochState: &mm.Empty{}}, &state); err != nil {
		return nil, err
	}
	height := n.host.Block().Height
	if height < state.LastExecutedHeight+cfg.EpochPeriod {
		observability.MarketMetrics().RecordEpoch("skipped")
		return nil, ErrEpochNotDue
	}
	res, err := n.host.Execute(ctx, *n.keeper, n.dep.Overseer, mm.OverseerExecuteMsg{ExecuteEpochOperations: &mm.Empty{}})
	ev := events.EpochKeeper{Height: height}
	if err != nil {
		observability.MarketMetrics().RecordEpoch("failed")
		ev.Error = err.Error()
		n.events.Emit(ev)
		return nil, err
	}
	observability.MarketMetrics().RecordEpoch("executed")
	ev.TxHash = res.TxHash
	n.events.Emit(ev)
	n.logger.Info("epoch operations executed", slog.Uint64("height", height), slog.String("txHash", res.TxHash))
	return res, nil
}

// MarketSnapshot is the market summary published as gauges.
type MarketSnapshot struct {
	Height           uint64      `json:"height"`
	ExchangeRate     num.Decimal `json:"exchange_rate"`
	BorrowRate       num.Decimal `json:"borrow_rate"`
	TotalLiabilities num.Decimal `json:"total_liabilities"`
	TotalReserves    num.Decimal `json:"total_reserves"`
	EmissionRate     num.Decimal `json:"emission_rate"`
	ATerraSupply     num.Uint256 `json:"aterra_supply"`
	StableBalance    num.Uint256 `json:"stable_balance"`
}

// Snapshot reads the market state at the current height.
func (n *Node) Snapshot(ctx context.Context) (MarketSnapshot, error) {
	q := n.querier(ctx)
	height := n.host.Block().Height
	var state mm.MarketStateResponse
	if err := q.Query(n.dep.Market, mm.MarketQueryMsg{State: &mm.StateQuery{}}, &state); err != nil {
		return MarketSnapshot{}, err
	}
	epoch, err := mm.QueryMarketEpochState(q, n.dep.Market, height, nil)
	if err != nil {
		return MarketSnapshot{}, err
	}
	balance, err := mm.QueryBalance(q, n.dep.Stable, n.dep.Market)
	if err != nil {
		return MarketSnapshot{}, err
	}
	rate, err := mm.QueryBorrowRate(q, n.dep.InterestModel, balance, state.TotalLiabilities, state.TotalReserves)
	if err != nil {
		return MarketSnapshot{}, err
	}
	return MarketSnapshot{
		Height:           height,
		ExchangeRate:     epoch.ExchangeRate,
		BorrowRate:       rate,
		TotalLiabilities: state.TotalLiabilities,
		TotalReserves:    state.TotalReserves,
		EmissionRate:     state.AncEmissionRate,
		ATerraSupply:     epoch.ATerraSupply,
		StableBalance:    balance,
	}, nil
}

// RefreshMetrics publishes the current snapshot to Prometheus.
func (n *Node) RefreshMetrics(ctx context.Context) error {
	snap, err := n.Snapshot(ctx)
	if err != nil {
		return err
	}
	observability.MarketMetrics().RecordState(observability.MarketSnapshot{
		ExchangeRate:     snap.ExchangeRate.Std().InexactFloat64(),
		BorrowRate:       snap.BorrowRate.Std().InexactFloat64(),
		TotalLiabilities: snap.TotalLiabilities.Std().InexactFloat64(),
		TotalReserves:    snap.TotalReserves.Std().InexactFloat64(),
		EmissionRate:     snap.EmissionRate.Std().InexactFloat64(),
	})
	return nil
}

// observe feeds committed events into the metrics registries.
func (n *Node) observe(ev events.Event) {
	executed, ok := ev.(events.ContractExecuted)
	if !ok {
		return
	}
	action := executed.Action()
	observability.Events().RecordAction(action)
	if action != "liquidate_collateral" {
		return
	}
	for _, c := range n.dep.Collaterals {
		if c.Custody == executed.Contract {
			observability.MarketMetrics().RecordLiquidation(c.Symbol)
			return
		}
	}
}

func (n *Node) querier(ctx context.Context) mm.Querier {
	return hostQuerier{ctx: ctx, h: n.host}
}

// hostQuerier adapts committed-state queries to mm.Querier.
type hostQuerier struct {
	ctx context.Context
	h   *host.Host
}

func (q hostQuerier) Query(contract crypto.Address, req any, out any) error {
	return q.h.Query(q.ctx, contract, req, out)
}
