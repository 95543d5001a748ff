package market

import (
	"orchai/core/num"
	mm "orchai/native/moneymarket"
)

// stableBalance is the market's stable balance less an amount that arrived
// with the message being handled.
func stableBalance(q mm.Querier, cfg *Config, pending num.Uint256) (num.Uint256, error) {
	balance, err := mm.QueryBalance(q, cfg.StableAddr, cfg.ContractAddr)
	if err != nil {
		return num.Uint256{}, err
	}
	return balance.Sub(pending)
}

// accrue advances interest to height against live balances and the current
// borrow rate and deposit target.
func accrue(q mm.Querier, cfg *Config, state *State, height uint64, pending num.Uint256) error {
	if height <= state.LastInterestUpdated {
		return nil
	}
	supply, err := mm.QuerySupply(q, cfg.ATerraContract)
	if err != nil {
		return err
	}
	balance, err := stableBalance(q, cfg, pending)
	if err != nil {
		return err
	}
	rate, err := mm.QueryBorrowRate(q, cfg.InterestModel, balance, state.TotalLiabilities, state.TotalReserves)
	if err != nil {
		return err
	}
	overseer, err := mm.QueryOverseerConfig(q, cfg.OverseerContract)
	if err != nil {
		return err
	}
	return AccrueInterest(state, height, balance, supply, rate, overseer.TargetDepositRate)
}

// accrueAll runs interest then reward accrual.
func accrueAll(q mm.Querier, cfg *Config, state *State, height uint64, pending num.Uint256) error {
	if err := accrue(q, cfg, state, height, pending); err != nil {
		return err
	}
	return AccrueReward(state, height)
}

func currentExchangeRate(q mm.Querier, cfg *Config, state *State, pending num.Uint256) (num.Decimal, error) {
	supply, err := mm.QuerySupply(q, cfg.ATerraContract)
	if err != nil {
		return num.Decimal{}, err
	}
	balance, err := stableBalance(q, cfg, pending)
	if err != nil {
		return num.Decimal{}, err
	}
	return ExchangeRate(state, supply, balance)
}
