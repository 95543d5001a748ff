package market

import (
	"orchai/core/host"
	"orchai/core/num"
	"orchai/crypto"
	"orchai/native/common"
	mm "orchai/native/moneymarket"
)

func depositStable(deps host.Deps, env host.Env, cfg *Config, depositor crypto.Address, amount num.Uint256) (*host.Response, error) {
	if amount.IsZero() {
		return nil, ErrZeroDeposit
	}
	state, err := loadState(deps.Store)
	if err != nil {
		return nil, err
	}
	if err := accrueAll(deps.Querier, cfg, &state, env.Block.Height, amount); err != nil {
		return nil, err
	}
	rate, err := currentExchangeRate(deps.Querier, cfg, &state, amount)
	if err != nil {
		return nil, err
	}
	minted, err := amount.QuoDec(rate)
	if err != nil {
		return nil, err
	}
	if state.PrevATerraSupply, err = state.PrevATerraSupply.Add(minted); err != nil {
		return nil, err
	}
	if err := saveState(deps.Store, &state); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "deposit_stable").
		AddAttribute("depositor", depositor).
		AddAttribute("mint_amount", minted).
		AddAttribute("deposit_amount", amount).
		AddMessage(mm.Mint(cfg.ATerraContract, depositor, minted)), nil
}

// redeemStable burns receipt tokens the market already holds and pays out
// their stable value.
func redeemStable(deps host.Deps, env host.Env, cfg *Config, redeemer crypto.Address, burned num.Uint256) (*host.Response, error) {
	state, err := loadState(deps.Store)
	if err != nil {
		return nil, err
	}
	if err := accrueAll(deps.Querier, cfg, &state, env.Block.Height, num.ZeroUint()); err != nil {
		return nil, err
	}
	rate, err := currentExchangeRate(deps.Querier, cfg, &state, num.ZeroUint())
	if err != nil {
		return nil, err
	}
	redeemed, err := burned.MulDec(rate)
	if err != nil {
		return nil, err
	}
	balance, err := stableBalance(deps.Querier, cfg, num.ZeroUint())
	if err != nil {
		return nil, err
	}
	if err := assertLiquidity(&state, balance, redeemed); err != nil {
		return nil, err
	}
	if state.PrevATerraSupply, err = state.PrevATerraSupply.Sub(burned); err != nil {
		return nil, err
	}
	if err := saveState(deps.Store, &state); err != nil {
		return nil, err
	}
	payout, err := common.DeductTax(redeemed, cfg.Tax())
	if err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "redeem_stable").
		AddAttribute("burn_amount", burned).
		AddAttribute("redeem_amount", redeemed).
		AddMessage(
			mm.Burn(cfg.ATerraContract, burned),
			mm.Transfer(cfg.StableAddr, redeemer, payout),
		), nil
}

// assertLiquidity fails when paying amount would dip into reserves.
func assertLiquidity(state *State, balance, amount num.Uint256) error {
	need, err := amount.Decimal()
	if err != nil {
		return err
	}
	if need, err = need.Add(state.TotalReserves); err != nil {
		return err
	}
	have, err := balance.Decimal()
	if err != nil {
		return err
	}
	if need.Gt(have) {
		return ErrNoStableAvailable
	}
	return nil
}
