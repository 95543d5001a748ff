package market

import (
	"orchai/core/host"
	"orchai/core/num"
	"orchai/native/common"
	mm "orchai/native/moneymarket"
)

// executeEpochOperations is driven by the overseer once per epoch. The
// interest the overseer just distributed is excluded from accrual so it
// lifts the exchange rate snapshot instead of counting as deposit yield.
func executeEpochOperations(deps host.Deps, env host.Env, info host.MessageInfo, cfg *Config, msg *mm.MarketEpochOperations) (*host.Response, error) {
	if err := common.Guard(info.Sender, cfg.OverseerContract); err != nil {
		return nil, err
	}
	state, err := loadState(deps.Store)
	if err != nil {
		return nil, err
	}
	supply, err := mm.QuerySupply(deps.Querier, cfg.ATerraContract)
	if err != nil {
		return nil, err
	}
	full, err := stableBalance(deps.Querier, cfg, num.ZeroUint())
	if err != nil {
		return nil, err
	}
	balance, err := full.Sub(msg.DistributedInterest)
	if err != nil {
		return nil, err
	}
	rate, err := mm.QueryBorrowRate(deps.Querier, cfg.InterestModel, balance, state.TotalLiabilities, state.TotalReserves)
	if err != nil {
		return nil, err
	}
	if err := AccrueInterest(&state, env.Block.Height, balance, supply, rate, msg.TargetDepositRate); err != nil {
		return nil, err
	}
	if state.PrevExchangeRate, err = ExchangeRate(&state, supply, full); err != nil {
		return nil, err
	}
	if err := AccrueReward(&state, env.Block.Height); err != nil {
		return nil, err
	}

	resp := host.NewResponse()
	reserves := state.TotalReserves.Floor()
	if !reserves.IsZero() && balance.Gt(reserves) {
		whole, err := reserves.Decimal()
		if err != nil {
			return nil, err
		}
		if state.TotalReserves, err = state.TotalReserves.Sub(whole); err != nil {
			return nil, err
		}
		payout, err := common.DeductTax(reserves, cfg.Tax())
		if err != nil {
			return nil, err
		}
		resp.AddMessage(mm.Transfer(cfg.StableAddr, cfg.CollectorContract, payout))
	} else {
		reserves = num.ZeroUint()
	}

	emission, err := mm.QueryEmissionRate(deps.Querier, cfg.DistributionModel, mm.EmissionRateQuery{
		DepositRate:          msg.DepositRate,
		TargetDepositRate:    msg.TargetDepositRate,
		ThresholdDepositRate: msg.ThresholdDepositRate,
		CurrentEmissionRate:  state.AncEmissionRate,
	})
	if err != nil {
		return nil, err
	}
	state.AncEmissionRate = emission

	if err := saveState(deps.Store, &state); err != nil {
		return nil, err
	}
	return resp.
		AddAttribute("action", "execute_epoch_operations").
		AddAttribute("total_reserves", reserves).
		AddAttribute("anc_emission_rate", state.AncEmissionRate), nil
}
