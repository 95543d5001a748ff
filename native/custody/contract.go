// Package custody holds one collateral token on behalf of borrowers. The
// overseer locks and unlocks positions against loans and seizes locked
// collateral for liquidation.
package custody

import (
	"encoding/json"

	"orchai/core/host"
	"orchai/crypto"
	"orchai/native/common"
	mm "orchai/native/moneymarket"
)

// Code is the name under which the custody is registered with the host.
const Code = "custody"

// Contract is the custody code.
type Contract struct{}

var _ host.Contract = Contract{}

func (Contract) Instantiate(deps host.Deps, env host.Env, _ host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg mm.CustodyInstantiateMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	cfg := Config{
		ContractAddr:        env.Contract,
		Owner:               msg.Owner,
		CollateralToken:     msg.CollateralToken,
		OverseerContract:    msg.OverseerContract,
		MarketContract:      msg.MarketContract,
		LiquidationContract: msg.LiquidationContract,
		StableAddr:          msg.StableAddr,
		BAssetName:          msg.BAssetInfo.Name,
		BAssetSymbol:        msg.BAssetInfo.Symbol,
		BAssetDecimals:      msg.BAssetInfo.Decimals,
		RewardsThreshold:    msg.RewardsThreshold,
	}
	if err := saveConfig(deps.Store, &cfg); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "instantiate").
		AddAttribute("collateral_token", cfg.CollateralToken), nil
}

func (Contract) Execute(deps host.Deps, env host.Env, info host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg mm.CustodyExecuteMsg
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
	case msg.LockCollateral != nil:
		if err := common.Guard(info.Sender, cfg.OverseerContract); err != nil {
			return nil, err
		}
		return lockCollateral(deps, msg.LockCollateral)
	case msg.UnlockCollateral != nil:
		if err := common.Guard(info.Sender, cfg.OverseerContract); err != nil {
			return nil, err
		}
		return unlockCollateral(deps, msg.UnlockCollateral)
	case msg.LiquidateCollateral != nil:
		if err := common.Guard(info.Sender, cfg.OverseerContract); err != nil {
			return nil, err
		}
		return liquidateCollateral(deps, &cfg, msg.LiquidateCollateral)
	case msg.WithdrawCollateral != nil:
		return withdrawCollateral(deps, info.Sender, &cfg, msg.WithdrawCollateral)
	case msg.DistributeRewards != nil:
		if err := common.Guard(info.Sender, cfg.OverseerContract); err != nil {
			return nil, err
		}
		return distributeRewards(deps, env, &cfg)
	case msg.DistributeHook != nil:
		if err := common.Guard(info.Sender, env.Contract); err != nil {
			return nil, err
		}
		return distributeHook(deps, env, &cfg)
	}
	return nil, mm.ErrUnknownMessage
}

func receive(deps host.Deps, info host.MessageInfo, cfg *Config, msg *mm.Cw20ReceiveMsg) (*host.Response, error) {
	var hook mm.CustodyHookMsg
	if err := mm.Decode(msg.Msg, &hook); err != nil {
		return nil, err
	}
	if hook.DepositCollateral == nil {
		return nil, ErrMissingHook
	}
	if err := common.Guard(info.Sender, cfg.CollateralToken); err != nil {
		return nil, err
	}
	return depositCollateral(deps, msg.Sender, msg)
}

func updateConfig(deps host.Deps, info host.MessageInfo, cfg *Config, msg *mm.CustodyUpdateConfig) (*host.Response, error) {
	if err := common.Guard(info.Sender, cfg.Owner); err != nil {
		return nil, err
	}
	if msg.Owner != nil {
		cfg.Owner = *msg.Owner
	}
	if msg.LiquidationContract != nil {
		cfg.LiquidationContract = *msg.LiquidationContract
	}
	if msg.RewardsThreshold != nil {
		cfg.RewardsThreshold = *msg.RewardsThreshold
	}
	if err := saveConfig(deps.Store, cfg); err != nil {
		return nil, err
	}
	return host.NewResponse().AddAttribute("action", "update_config"), nil
}

func (Contract) Query(deps host.Deps, _ host.Env, raw json.RawMessage) (json.RawMessage, error) {
	var msg mm.CustodyQueryMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	var resp any
	switch {
	case msg.Config != nil:
		cfg, err := loadConfig(deps.Store)
		if err != nil {
			return nil, err
		}
		resp = cfg.response()
	case msg.Borrower != nil:
		info, err := loadBorrower(deps.Store, msg.Borrower.Address)
		if err != nil {
			return nil, err
		}
		resp = borrowerResponse(msg.Borrower.Address, &info)
	case msg.Borrowers != nil:
		out, err := queryBorrowers(deps, msg.Borrowers)
		if err != nil {
			return nil, err
		}
		resp = out
	default:
		return nil, mm.ErrUnknownMessage
	}
	return json.Marshal(resp)
}

func borrowerResponse(addr crypto.Address, info *BorrowerInfo) mm.CustodyBorrowerResponse {
	return mm.CustodyBorrowerResponse{Borrower: addr, Balance: info.Balance, Spendable: info.Spendable}
}

func queryBorrowers(deps host.Deps, q *mm.BorrowersQuery) (mm.CustodyBorrowersResponse, error) {
	var start []byte
	if q.StartAfter != nil {
		start = q.StartAfter.Bytes()
	}
	out := mm.CustodyBorrowersResponse{Borrowers: []mm.CustodyBorrowerResponse{}}
	err := common.Range(deps.Store, []byte(borrowerPrefix), start, common.ClampLimit(q.Limit), func(suffix, value []byte) error {
		addr, err := crypto.NewAddress(suffix)
		if err != nil {
			return err
		}
		var info BorrowerInfo
		if err := common.Decode(value, &info); err != nil {
			return err
		}
		out.Borrowers = append(out.Borrowers, borrowerResponse(addr, &info))
		return nil
	})
	return out, err
}
