package overseer

import (
	"math"

	"orchai/core/host"
	"orchai/core/num"
	"orchai/native/common"
	mm "orchai/native/moneymarket"
)

// DepositRate returns the per-block deposit rate implied by the exchange
// rate moving from prev to cur over blocks. A falling rate reports zero.
func DepositRate(cur, prev num.Decimal, blocks uint64) (num.Decimal, error) {
	if blocks == 0 || prev.IsZero() || cur.Lte(prev) {
		return num.ZeroDec(), nil
	}
	effective, err := cur.Quo(prev)
	if err != nil {
		return num.Decimal{}, err
	}
	growth, err := effective.Sub(num.OneDec())
	if err != nil {
		return num.Decimal{}, err
	}
	return growth.Quo(num.NewDec(blocks))
}

// MissingDeposits is the interest depositors were short of over blocks when
// the deposit rate fell below threshold.
func MissingDeposits(state *EpochState, threshold, rate num.Decimal, blocks uint64) (num.Uint256, error) {
	if rate.Gte(threshold) {
		return num.ZeroUint(), nil
	}
	missingRate, err := threshold.Sub(rate)
	if err != nil {
		return num.Uint256{}, err
	}
	prevDeposits, err := state.PrevATerraSupply.MulDec(state.PrevExchangeRate)
	if err != nil {
		return num.Uint256{}, err
	}
	deposits, err := prevDeposits.Decimal()
	if err != nil {
		return num.Uint256{}, err
	}
	perBlock, err := deposits.Mul(missingRate)
	if err != nil {
		return num.Uint256{}, err
	}
	missing, err := perBlock.Mul(num.NewDec(blocks))
	if err != nil {
		return num.Uint256{}, err
	}
	return missing.Floor(), nil
}

// executeEpochOperations splits the interest buffer the overseer accrued
// since the last epoch. A share buys the reward token through the
// collector; when deposits earned less than the threshold rate the buffer
// tops them up. Custodies are asked to forward their rewards, and a
// self-addressed UpdateEpochState records the outcome once those transfers
// have run.
func executeEpochOperations(deps host.Deps, env host.Env, cfg *Config) (*host.Response, error) {
	state, err := loadEpochState(deps.Store)
	if err != nil {
		return nil, err
	}
	height := env.Block.Height
	if height < state.LastExecutedHeight+cfg.EpochPeriod {
		return nil, &EpochNotPassedError{LastExecutedHeight: state.LastExecutedHeight}
	}
	blocks := height - state.LastExecutedHeight

	buffer, err := mm.QueryBalance(deps.Querier, cfg.StableAddr, env.Contract)
	if err != nil {
		return nil, err
	}
	market, err := mm.QueryMarketEpochState(deps.Querier, cfg.MarketContract, height, nil)
	if err != nil {
		return nil, err
	}
	rate, err := DepositRate(market.ExchangeRate, state.PrevExchangeRate, blocks)
	if err != nil {
		return nil, err
	}

	res := host.NewResponse()
	accrued := num.ZeroUint()
	if buffer.Gt(state.PrevInterestBuffer) {
		if accrued, err = buffer.Sub(state.PrevInterestBuffer); err != nil {
			return nil, err
		}
	}
	purchase, err := accrued.MulDec(cfg.AncPurchaseFactor)
	if err != nil {
		return nil, err
	}
	if !purchase.IsZero() {
		res.AddMessage(mm.Transfer(cfg.StableAddr, cfg.CollectorContract, purchase))
		if buffer, err = buffer.Sub(purchase); err != nil {
			return nil, err
		}
	}

	missing, err := MissingDeposits(&state, cfg.ThresholdDepositRate, rate, blocks)
	if err != nil {
		return nil, err
	}
	available, err := buffer.MulDec(cfg.BufferDistributionFactor)
	if err != nil {
		return nil, err
	}
	distributed := num.MinUint(missing, available)
	if !distributed.IsZero() {
		res.AddMessage(mm.Transfer(cfg.StableAddr, cfg.MarketContract, distributed))
		if buffer, err = buffer.Sub(distributed); err != nil {
			return nil, err
		}
	}

	err = common.Range(deps.Store, []byte(whitelistPrefix), nil, math.MaxInt, func(_, value []byte) error {
		var elem WhitelistElem
		if err := common.Decode(value, &elem); err != nil {
			return err
		}
		res.AddMessage(mm.Execute(elem.CustodyContract, mm.CustodyExecuteMsg{DistributeRewards: &mm.Empty{}}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.AddMessage(mm.Execute(env.Contract, mm.OverseerExecuteMsg{UpdateEpochState: &mm.UpdateEpochState{
		InterestBuffer:      buffer,
		DistributedInterest: distributed,
	}}))
	return res.
		AddAttribute("action", "epoch_operations").
		AddAttribute("deposit_rate", rate).
		AddAttribute("exchange_rate", market.ExchangeRate).
		AddAttribute("aterra_supply", market.ATerraSupply).
		AddAttribute("distributed_interest", distributed).
		AddAttribute("anc_purchase_amount", purchase), nil
}

func updateEpochState(deps host.Deps, env host.Env, cfg *Config, msg *mm.UpdateEpochState) (*host.Response, error) {
	state, err := loadEpochState(deps.Store)
	if err != nil {
		return nil, err
	}
	height := env.Block.Height
	blocks := height - state.LastExecutedHeight
	market, err := mm.QueryMarketEpochState(deps.Querier, cfg.MarketContract, height, &msg.DistributedInterest)
	if err != nil {
		return nil, err
	}
	rate, err := DepositRate(market.ExchangeRate, state.PrevExchangeRate, blocks)
	if err != nil {
		return nil, err
	}
	next := EpochState{
		DepositRate:        rate,
		PrevATerraSupply:   market.ATerraSupply,
		PrevExchangeRate:   market.ExchangeRate,
		PrevInterestBuffer: msg.InterestBuffer,
		LastExecutedHeight: height,
	}
	if err := saveEpochState(deps.Store, &next); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "update_epoch_state").
		AddAttribute("deposit_rate", rate).
		AddAttribute("aterra_supply", market.ATerraSupply).
		AddAttribute("exchange_rate", market.ExchangeRate).
		AddAttribute("interest_buffer", msg.InterestBuffer).
		AddMessage(mm.Execute(cfg.MarketContract, mm.MarketExecuteMsg{ExecuteEpochOperations: &mm.MarketEpochOperations{
			DepositRate:          rate,
			TargetDepositRate:    cfg.TargetDepositRate,
			ThresholdDepositRate: cfg.ThresholdDepositRate,
			DistributedInterest:  msg.DistributedInterest,
		}})), nil
}

// fundReserve adds stable to the interest buffer without counting it as
// accrued interest.
func fundReserve(deps host.Deps, amount num.Uint256) (*host.Response, error) {
	state, err := loadEpochState(deps.Store)
	if err != nil {
		return nil, err
	}
	if state.PrevInterestBuffer, err = state.PrevInterestBuffer.Add(amount); err != nil {
		return nil, err
	}
	if err := saveEpochState(deps.Store, &state); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "fund_reserve").
		AddAttribute("funded_amount", amount), nil
}
