package market

import (
	"encoding/json"

	"orchai/core/host"
	"orchai/core/num"
	"orchai/crypto"
	"orchai/native/common"
	mm "orchai/native/moneymarket"
)

func (Contract) Query(deps host.Deps, env host.Env, raw json.RawMessage) (json.RawMessage, error) {
	var msg mm.MarketQueryMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	cfg, err := loadConfig(deps.Store)
	if err != nil {
		return nil, err
	}
	var resp any
	switch {
	case msg.Config != nil:
		resp = configResponse(&cfg)
	case msg.State != nil:
		resp, err = queryState(deps, env, &cfg, msg.State)
	case msg.EpochState != nil:
		resp, err = queryEpochState(deps, &cfg, msg.EpochState)
	case msg.BorrowerInfo != nil:
		resp, err = queryBorrowerInfo(deps, env, &cfg, msg.BorrowerInfo)
	case msg.BorrowerInfos != nil:
		resp, err = queryBorrowerInfos(deps, msg.BorrowerInfos)
	default:
		return nil, mm.ErrUnknownMessage
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(resp)
}

func configResponse(cfg *Config) mm.MarketConfigResponse {
	return mm.MarketConfigResponse{
		OwnerAddr:            cfg.OwnerAddr,
		ATerraContract:       cfg.ATerraContract,
		InterestModel:        cfg.InterestModel,
		DistributionModel:    cfg.DistributionModel,
		OverseerContract:     cfg.OverseerContract,
		CollectorContract:    cfg.CollectorContract,
		DistributorContract:  cfg.DistributorContract,
		StableAddr:           cfg.StableAddr,
		MaxBorrowFactor:      cfg.MaxBorrowFactor,
		RewardClaimThreshold: cfg.RewardClaimThreshold,
		TaxRate:              cfg.TaxRate,
		TaxCap:               cfg.TaxCap,
	}
}

func heightOrCurrent(height *uint64, env host.Env) uint64 {
	if height != nil {
		return *height
	}
	return env.Block.Height
}

func queryState(deps host.Deps, env host.Env, cfg *Config, q *mm.StateQuery) (mm.MarketStateResponse, error) {
	state, err := loadState(deps.Store)
	if err != nil {
		return mm.MarketStateResponse{}, err
	}
	height := heightOrCurrent(q.BlockHeight, env)
	if height < state.LastInterestUpdated || height < state.LastRewardUpdated {
		return mm.MarketStateResponse{}, ErrInvalidBlockHeight
	}
	if err := accrueAll(deps.Querier, cfg, &state, height, num.ZeroUint()); err != nil {
		return mm.MarketStateResponse{}, err
	}
	return mm.MarketStateResponse{
		TotalLiabilities:    state.TotalLiabilities,
		TotalReserves:       state.TotalReserves,
		LastInterestUpdated: state.LastInterestUpdated,
		LastRewardUpdated:   state.LastRewardUpdated,
		GlobalInterestIndex: state.GlobalInterestIndex,
		GlobalRewardIndex:   state.GlobalRewardIndex,
		AncEmissionRate:     state.AncEmissionRate,
		PrevATerraSupply:    state.PrevATerraSupply,
		PrevExchangeRate:    state.PrevExchangeRate,
	}, nil
}

// queryEpochState reports the exchange rate the overseer uses to measure
// deposit yield. distributed interest is excluded from accrual but counted
// in the rate.
func queryEpochState(deps host.Deps, cfg *Config, q *mm.EpochStateQuery) (mm.EpochStateResponse, error) {
	state, err := loadState(deps.Store)
	if err != nil {
		return mm.EpochStateResponse{}, err
	}
	distributed := num.ZeroUint()
	if q.DistributedInterest != nil {
		distributed = *q.DistributedInterest
	}
	supply, err := mm.QuerySupply(deps.Querier, cfg.ATerraContract)
	if err != nil {
		return mm.EpochStateResponse{}, err
	}
	full, err := stableBalance(deps.Querier, cfg, num.ZeroUint())
	if err != nil {
		return mm.EpochStateResponse{}, err
	}
	balance, err := full.Sub(distributed)
	if err != nil {
		return mm.EpochStateResponse{}, err
	}
	if q.BlockHeight != nil {
		if *q.BlockHeight < state.LastInterestUpdated {
			return mm.EpochStateResponse{}, ErrInvalidBlockHeight
		}
		rate, err := mm.QueryBorrowRate(deps.Querier, cfg.InterestModel, balance, state.TotalLiabilities, state.TotalReserves)
		if err != nil {
			return mm.EpochStateResponse{}, err
		}
		overseer, err := mm.QueryOverseerConfig(deps.Querier, cfg.OverseerContract)
		if err != nil {
			return mm.EpochStateResponse{}, err
		}
		if err := AccrueInterest(&state, *q.BlockHeight, balance, supply, rate, overseer.TargetDepositRate); err != nil {
			return mm.EpochStateResponse{}, err
		}
	}
	rate, err := ExchangeRate(&state, supply, full)
	if err != nil {
		return mm.EpochStateResponse{}, err
	}
	return mm.EpochStateResponse{ExchangeRate: rate, ATerraSupply: supply}, nil
}

func queryBorrowerInfo(deps host.Deps, env host.Env, cfg *Config, q *mm.BorrowerInfoQuery) (mm.BorrowerInfoResponse, error) {
	_, info, err := touch(deps, cfg, q.Borrower, heightOrCurrent(q.BlockHeight, env), num.ZeroUint())
	if err != nil {
		return mm.BorrowerInfoResponse{}, err
	}
	return borrowerResponse(q.Borrower, &info), nil
}

func borrowerResponse(addr crypto.Address, info *BorrowerInfo) mm.BorrowerInfoResponse {
	return mm.BorrowerInfoResponse{
		Borrower:       addr,
		InterestIndex:  info.InterestIndex,
		RewardIndex:    info.RewardIndex,
		LoanAmount:     info.LoanAmount,
		PendingRewards: info.PendingRewards,
	}
}

// queryBorrowerInfos lists stored liabilities without advancing them.
func queryBorrowerInfos(deps host.Deps, q *mm.BorrowerInfosQuery) (mm.BorrowerInfosResponse, error) {
	var start []byte
	if q.StartAfter != nil {
		start = q.StartAfter.Bytes()
	}
	out := mm.BorrowerInfosResponse{BorrowerInfos: []mm.BorrowerInfoResponse{}}
	err := common.Range(deps.Store, []byte(borrowerPrefix), start, common.ClampLimit(q.Limit), func(suffix, value []byte) error {
		addr, err := crypto.NewAddress(suffix)
		if err != nil {
			return err
		}
		var info BorrowerInfo
		if err := common.Decode(value, &info); err != nil {
			return err
		}
		out.BorrowerInfos = append(out.BorrowerInfos, borrowerResponse(addr, &info))
		return nil
	})
	return out, err
}
