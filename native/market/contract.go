// Package market is the stable money market. Depositors receive receipt
// tokens redeemable at a growing exchange rate; borrowers draw against the
// limit the overseer computes from their locked collateral.
package market

import (
	"encoding/json"
	"fmt"

	"orchai/core/host"
	"orchai/core/num"
	"orchai/native/common"
	mm "orchai/native/moneymarket"
	"orchai/native/token"
)

// Code is the name under which the market is registered with the host.
const Code = "market"

// ReceiptTokenLabel is the instantiation label of the market's receipt
// token. Its address is crypto.ContractAddress(market, ReceiptTokenLabel).
const ReceiptTokenLabel = "aterra"

// Contract is the market code.
type Contract struct{}

var _ host.Contract = Contract{}

func (Contract) Instantiate(deps host.Deps, env host.Env, _ host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg mm.MarketInstantiateMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	required := num.NewUint(InitialDepositAmount)
	held, err := mm.QueryBalance(deps.Querier, msg.StableAddr, env.Contract)
	if err != nil {
		return nil, err
	}
	if !held.Equal(required) {
		return nil, fmt.Errorf("%w: need %s, hold %s", ErrInitialFundsNotDeposited, required, held)
	}

	name, symbol := msg.ATokenName, msg.ATokenSymbol
	if name == "" || symbol == "" {
		stable, err := mm.QueryTokenInfo(deps.Querier, msg.StableAddr)
		if err != nil {
			return nil, err
		}
		if name == "" {
			name = "Orchai " + stable.Symbol
		}
		if symbol == "" {
			symbol = "a" + stable.Symbol
		}
	}
	code := msg.ATokenCode
	if code == "" {
		code = token.Code
	}

	cfg := Config{
		ContractAddr:         env.Contract,
		OwnerAddr:            msg.OwnerAddr,
		StableAddr:           msg.StableAddr,
		MaxBorrowFactor:      msg.MaxBorrowFactor,
		RewardClaimThreshold: msg.RewardClaimThreshold,
		TaxRate:              msg.TaxRate,
		TaxCap:               msg.TaxCap,
	}
	if err := saveConfig(deps.Store, &cfg); err != nil {
		return nil, err
	}
	state := NewState(env.Block.Height, msg.AncEmissionRate)
	if err := saveState(deps.Store, &state); err != nil {
		return nil, err
	}

	hook, err := json.Marshal(mm.MarketExecuteMsg{RegisterATerra: &mm.Empty{}})
	if err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "instantiate").
		AddMessage(host.NewInstantiate(code, ReceiptTokenLabel, mm.TokenInstantiateMsg{
			Name:            name,
			Symbol:          symbol,
			Decimals:        6,
			InitialBalances: []mm.Coin{{Address: env.Contract, Amount: required}},
			Mint:            &mm.MinterResponse{Minter: env.Contract},
			InitHook:        &mm.InitHook{ContractAddr: env.Contract, Msg: hook},
		})), nil
}

func (Contract) Execute(deps host.Deps, env host.Env, info host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg mm.MarketExecuteMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	cfg, err := loadConfig(deps.Store)
	if err != nil {
		return nil, err
	}
	switch {
	case msg.Receive != nil:
		return receive(deps, env, info, &cfg, msg.Receive)
	case msg.RegisterATerra != nil:
		return registerATerra(deps, info, &cfg)
	case msg.RegisterContracts != nil:
		return registerContracts(deps, info, &cfg, msg.RegisterContracts)
	case msg.UpdateConfig != nil:
		return updateConfig(deps, env, info, &cfg, msg.UpdateConfig)
	case msg.ExecuteEpochOperations != nil:
		return executeEpochOperations(deps, env, info, &cfg, msg.ExecuteEpochOperations)
	case msg.BorrowStable != nil:
		return borrowStable(deps, env, info, &cfg, msg.BorrowStable)
	case msg.RepayStableFromLiquidation != nil:
		return repayFromLiquidation(deps, env, info, &cfg, msg.RepayStableFromLiquidation)
	case msg.ClaimRewards != nil:
		return claimRewards(deps, env, info, &cfg, msg.ClaimRewards)
	}
	return nil, mm.ErrUnknownMessage
}

// receive dispatches token hooks. The sending token decides which hooks are
// acceptable: stable for deposits and repayments, the receipt token for
// redemptions.
func receive(deps host.Deps, env host.Env, info host.MessageInfo, cfg *Config, msg *mm.Cw20ReceiveMsg) (*host.Response, error) {
	var hook mm.MarketHookMsg
	if err := mm.Decode(msg.Msg, &hook); err != nil {
		return nil, err
	}
	switch {
	case hook.DepositStable != nil:
		if err := common.Guard(info.Sender, cfg.StableAddr); err != nil {
			return nil, err
		}
		return depositStable(deps, env, cfg, msg.Sender, msg.Amount)
	case hook.RedeemStable != nil:
		if err := common.Guard(info.Sender, cfg.ATerraContract); err != nil {
			return nil, err
		}
		return redeemStable(deps, env, cfg, msg.Sender, msg.Amount)
	case hook.RepayStable != nil:
		if err := common.Guard(info.Sender, cfg.StableAddr); err != nil {
			return nil, err
		}
		return repayStable(deps, env, cfg, msg.Sender, msg.Amount)
	}
	return nil, ErrMissingHook
}

func registerATerra(deps host.Deps, info host.MessageInfo, cfg *Config) (*host.Response, error) {
	if !cfg.ATerraContract.IsZero() {
		return nil, ErrAlreadyRegistered
	}
	cfg.ATerraContract = info.Sender
	if err := saveConfig(deps.Store, cfg); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "register_aterra").
		AddAttribute("aterra_contract", info.Sender), nil
}

func registerContracts(deps host.Deps, info host.MessageInfo, cfg *Config, msg *mm.RegisterContracts) (*host.Response, error) {
	if err := common.Guard(info.Sender, cfg.OwnerAddr); err != nil {
		return nil, err
	}
	if cfg.contractsRegistered() {
		return nil, ErrAlreadyRegistered
	}
	cfg.OverseerContract = msg.OverseerContract
	cfg.InterestModel = msg.InterestModel
	cfg.DistributionModel = msg.DistributionModel
	cfg.CollectorContract = msg.CollectorContract
	cfg.DistributorContract = msg.DistributorContract
	if err := saveConfig(deps.Store, cfg); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "register_contracts").
		AddAttribute("overseer_contract", msg.OverseerContract).
		AddAttribute("interest_model", msg.InterestModel).
		AddAttribute("distribution_model", msg.DistributionModel).
		AddAttribute("collector_contract", msg.CollectorContract).
		AddAttribute("distributor_contract", msg.DistributorContract), nil
}

func updateConfig(deps host.Deps, env host.Env, info host.MessageInfo, cfg *Config, msg *mm.MarketUpdateConfig) (*host.Response, error) {
	if err := common.Guard(info.Sender, cfg.OwnerAddr); err != nil {
		return nil, err
	}
	if msg.OwnerAddr != nil {
		cfg.OwnerAddr = *msg.OwnerAddr
	}
	if msg.InterestModel != nil {
		// Interest up to now is owed at the old model's rate.
		state, err := loadState(deps.Store)
		if err != nil {
			return nil, err
		}
		if err := accrue(deps.Querier, cfg, &state, env.Block.Height, num.ZeroUint()); err != nil {
			return nil, err
		}
		if err := saveState(deps.Store, &state); err != nil {
			return nil, err
		}
		cfg.InterestModel = *msg.InterestModel
	}
	if msg.DistributionModel != nil {
		cfg.DistributionModel = *msg.DistributionModel
	}
	if msg.MaxBorrowFactor != nil {
		cfg.MaxBorrowFactor = *msg.MaxBorrowFactor
	}
	if msg.RewardClaimThreshold != nil {
		cfg.RewardClaimThreshold = *msg.RewardClaimThreshold
	}
	if err := saveConfig(deps.Store, cfg); err != nil {
		return nil, err
	}
	return host.NewResponse().AddAttribute("action", "update_config"), nil
}
