package custody

import (
	"orchai/core/host"
	mm "orchai/native/moneymarket"
)

// distributeRewards forwards accrued stable rewards to the overseer once
// they reach the configured threshold. The transfer itself happens in a
// self-addressed hook so it observes the balance after earlier messages.
func distributeRewards(deps host.Deps, env host.Env, cfg *Config) (*host.Response, error) {
	buffered, err := mm.QueryBalance(deps.Querier, cfg.StableAddr, env.Contract)
	if err != nil {
		return nil, err
	}
	res := host.NewResponse().
		AddAttribute("action", "distribute_rewards").
		AddAttribute("buffered_rewards", buffered)
	if buffered.IsZero() || buffered.Lt(cfg.RewardsThreshold) {
		return res, nil
	}
	return res.AddMessage(mm.Execute(env.Contract, mm.CustodyExecuteMsg{DistributeHook: &mm.Empty{}})), nil
}

func distributeHook(deps host.Deps, env host.Env, cfg *Config) (*host.Response, error) {
	amount, err := mm.QueryBalance(deps.Querier, cfg.StableAddr, env.Contract)
	if err != nil {
		return nil, err
	}
	res := host.NewResponse().
		AddAttribute("action", "distribute_hook").
		AddAttribute("rewards", amount)
	if amount.IsZero() {
		return res, nil
	}
	return res.AddMessage(mm.Transfer(cfg.StableAddr, cfg.OverseerContract, amount)), nil
}
