// Package overseer tracks the collateral each borrower has locked, computes
// borrow limits from oracle prices, triggers liquidations and runs the
// per-epoch interest buffer operations.
package overseer

import (
	"encoding/json"
	"fmt"

	"orchai/core/host"
	"orchai/core/num"
	"orchai/native/common"
	mm "orchai/native/moneymarket"
)

// Code is the name under which the overseer is registered with the host.
const Code = "overseer"

// Contract is the overseer code.
type Contract struct{}

var _ host.Contract = Contract{}

func (Contract) Instantiate(deps host.Deps, env host.Env, _ host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg mm.OverseerInstantiateMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	cfg := Config{
		ContractAddr:             env.Contract,
		OwnerAddr:                msg.OwnerAddr,
		OracleContract:           msg.OracleContract,
		MarketContract:           msg.MarketContract,
		LiquidationContract:      msg.LiquidationContract,
		CollectorContract:        msg.CollectorContract,
		StableAddr:               msg.StableAddr,
		EpochPeriod:              msg.EpochPeriod,
		ThresholdDepositRate:     msg.ThresholdDepositRate,
		TargetDepositRate:        msg.TargetDepositRate,
		BufferDistributionFactor: msg.BufferDistributionFactor,
		AncPurchaseFactor:        msg.AncPurchaseFactor,
		PriceTimeframe:           msg.PriceTimeframe,
	}
	if err := saveConfig(deps.Store, &cfg); err != nil {
		return nil, err
	}
	state := EpochState{
		DepositRate:        num.ZeroDec(),
		PrevATerraSupply:   num.ZeroUint(),
		PrevExchangeRate:   num.OneDec(),
		PrevInterestBuffer: num.ZeroUint(),
		LastExecutedHeight: env.Block.Height,
	}
	if err := saveEpochState(deps.Store, &state); err != nil {
		return nil, err
	}
	return host.NewResponse().AddAttribute("action", "instantiate"), nil
}

func (Contract) Execute(deps host.Deps, env host.Env, info host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg mm.OverseerExecuteMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	cfg, err := loadConfig(deps.Store)
	if err != nil {
		return nil, err
	}
	switch {
	case msg.Receive != nil:
		return receive(deps, info, &cfg, msg.Receive)
	case msg.UpdateConfig != nil:
		return updateConfig(deps, info, &cfg, msg.UpdateConfig)
	case msg.Whitelist != nil:
		return whitelist(deps, info, &cfg, msg.Whitelist)
	case msg.UpdateWhitelist != nil:
		return updateWhitelist(deps, info, &cfg, msg.UpdateWhitelist)
	case msg.ExecuteEpochOperations != nil:
		return executeEpochOperations(deps, env, &cfg)
	case msg.UpdateEpochState != nil:
		if err := common.Guard(info.Sender, env.Contract); err != nil {
			return nil, err
		}
		return updateEpochState(deps, env, &cfg, msg.UpdateEpochState)
	case msg.LockCollateral != nil:
		return lockCollateral(deps, info, msg.LockCollateral.Collaterals)
	case msg.UnlockCollateral != nil:
		return unlockCollateral(deps, env, info, &cfg, msg.UnlockCollateral.Collaterals)
	case msg.LiquidateCollateral != nil:
		return liquidateCollateral(deps, env, info, &cfg, msg.LiquidateCollateral.Borrower)
	}
	return nil, mm.ErrUnknownMessage
}

func receive(deps host.Deps, info host.MessageInfo, cfg *Config, msg *mm.Cw20ReceiveMsg) (*host.Response, error) {
	var hook mm.OverseerHookMsg
	if err := mm.Decode(msg.Msg, &hook); err != nil {
		return nil, err
	}
	if hook.FundReserve == nil {
		return nil, ErrMissingHook
	}
	if err := common.Guard(info.Sender, cfg.StableAddr); err != nil {
		return nil, err
	}
	return fundReserve(deps, msg.Amount)
}

func updateConfig(deps host.Deps, info host.MessageInfo, cfg *Config, msg *mm.OverseerUpdateConfig) (*host.Response, error) {
	if err := common.Guard(info.Sender, cfg.OwnerAddr); err != nil {
		return nil, err
	}
	if msg.OwnerAddr != nil {
		cfg.OwnerAddr = *msg.OwnerAddr
	}
	if msg.OracleContract != nil {
		cfg.OracleContract = *msg.OracleContract
	}
	if msg.LiquidationContract != nil {
		cfg.LiquidationContract = *msg.LiquidationContract
	}
	if msg.ThresholdDepositRate != nil {
		cfg.ThresholdDepositRate = *msg.ThresholdDepositRate
	}
	if msg.TargetDepositRate != nil {
		cfg.TargetDepositRate = *msg.TargetDepositRate
	}
	if msg.BufferDistributionFactor != nil {
		cfg.BufferDistributionFactor = *msg.BufferDistributionFactor
	}
	if msg.AncPurchaseFactor != nil {
		cfg.AncPurchaseFactor = *msg.AncPurchaseFactor
	}
	if msg.EpochPeriod != nil {
		cfg.EpochPeriod = *msg.EpochPeriod
	}
	if msg.PriceTimeframe != nil {
		cfg.PriceTimeframe = *msg.PriceTimeframe
	}
	if err := saveConfig(deps.Store, cfg); err != nil {
		return nil, err
	}
	return host.NewResponse().AddAttribute("action", "update_config"), nil
}

func validateMaxLtv(ltv num.Decimal) error {
	if ltv.Gte(num.OneDec()) {
		return fmt.Errorf("%w: %s", ErrInvalidMaxLtv, ltv)
	}
	return nil
}

func whitelist(deps host.Deps, info host.MessageInfo, cfg *Config, msg *mm.Whitelist) (*host.Response, error) {
	if err := common.Guard(info.Sender, cfg.OwnerAddr); err != nil {
		return nil, err
	}
	var existing WhitelistElem
	registered, err := common.Load(deps.Store, whitelistKey(msg.CollateralToken), &existing)
	if err != nil {
		return nil, err
	}
	if registered {
		return nil, fmt.Errorf("%w: %s", ErrTokenAlreadyRegistered, msg.CollateralToken)
	}
	if err := validateMaxLtv(msg.MaxLtv); err != nil {
		return nil, err
	}
	elem := WhitelistElem{
		Name:            msg.Name,
		Symbol:          msg.Symbol,
		MaxLtv:          msg.MaxLtv,
		CustodyContract: msg.CustodyContract,
	}
	if err := saveWhitelistElem(deps.Store, msg.CollateralToken, &elem); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "register_whitelist").
		AddAttribute("name", msg.Name).
		AddAttribute("symbol", msg.Symbol).
		AddAttribute("collateral_token", msg.CollateralToken).
		AddAttribute("custody_contract", msg.CustodyContract).
		AddAttribute("max_ltv", msg.MaxLtv), nil
}

func updateWhitelist(deps host.Deps, info host.MessageInfo, cfg *Config, msg *mm.UpdateWhitelist) (*host.Response, error) {
	if err := common.Guard(info.Sender, cfg.OwnerAddr); err != nil {
		return nil, err
	}
	elem, err := loadWhitelistElem(deps.Store, msg.CollateralToken)
	if err != nil {
		return nil, err
	}
	if msg.CustodyContract != nil {
		elem.CustodyContract = *msg.CustodyContract
	}
	if msg.MaxLtv != nil {
		if err := validateMaxLtv(*msg.MaxLtv); err != nil {
			return nil, err
		}
		elem.MaxLtv = *msg.MaxLtv
	}
	if err := saveWhitelistElem(deps.Store, msg.CollateralToken, &elem); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "update_whitelist").
		AddAttribute("collateral_token", msg.CollateralToken).
		AddAttribute("custody_contract", elem.CustodyContract).
		AddAttribute("max_ltv", elem.MaxLtv), nil
}
