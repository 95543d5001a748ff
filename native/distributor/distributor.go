// Package distributor pays borrower rewards out of a reward token treasury
// on behalf of whitelisted spenders such as the market.
package distributor

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"orchai/core/host"
	"orchai/core/num"
	"orchai/crypto"
	"orchai/native/common"
	mm "orchai/native/moneymarket"
	"orchai/storage"
)

// Code is the name under which the distributor is registered with the host.
const Code = "distributor"

var (
	ErrSpendLimitExceeded       = errors.New("distributor: cannot spend more than spend_limit")
	ErrDistributorRegistered    = errors.New("distributor: distributor already registered")
	ErrDistributorNotRegistered = errors.New("distributor: distributor not found")
)

var configKey = []byte("config")

type config struct {
	GovContract crypto.Address
	RewardToken crypto.Address
	Whitelist   []crypto.Address
	SpendLimit  num.Uint256
}

func loadConfig(kv storage.Reader) (config, error) {
	var cfg config
	err := common.MustLoad(kv, configKey, &cfg)
	return cfg, err
}

func saveConfig(kv storage.KV, cfg *config) error {
	return common.Save(kv, configKey, cfg)
}

// Contract is the distributor code.
type Contract struct{}

var _ host.Contract = Contract{}

func (Contract) Instantiate(deps host.Deps, _ host.Env, _ host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg mm.DistributorInstantiateMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	cfg := config{
		GovContract: msg.GovContract,
		RewardToken: msg.RewardToken,
		Whitelist:   append([]crypto.Address{}, msg.Whitelist...),
		SpendLimit:  msg.SpendLimit,
	}
	if err := saveConfig(deps.Store, &cfg); err != nil {
		return nil, err
	}
	return host.NewResponse().AddAttribute("action", "instantiate"), nil
}

func (Contract) Execute(deps host.Deps, _ host.Env, info host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg mm.DistributorExecuteMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	cfg, err := loadConfig(deps.Store)
	if err != nil {
		return nil, err
	}
	switch {
	case msg.Spend != nil:
		return spend(info, &cfg, msg.Spend)
	case msg.UpdateConfig != nil:
		if err := common.Guard(info.Sender, cfg.GovContract); err != nil {
			return nil, err
		}
		if msg.UpdateConfig.SpendLimit != nil {
			cfg.SpendLimit = *msg.UpdateConfig.SpendLimit
		}
		if err := saveConfig(deps.Store, &cfg); err != nil {
			return nil, err
		}
		return host.NewResponse().AddAttribute("action", "update_config"), nil
	case msg.AddDistributor != nil:
		if err := common.Guard(info.Sender, cfg.GovContract); err != nil {
			return nil, err
		}
		addr := msg.AddDistributor.Distributor
		if slices.Contains(cfg.Whitelist, addr) {
			return nil, fmt.Errorf("%w: %s", ErrDistributorRegistered, addr)
		}
		cfg.Whitelist = append(cfg.Whitelist, addr)
		if err := saveConfig(deps.Store, &cfg); err != nil {
			return nil, err
		}
		return host.NewResponse().
			AddAttribute("action", "add_distributor").
			AddAttribute("distributor", addr), nil
	case msg.RemoveDistributor != nil:
		if err := common.Guard(info.Sender, cfg.GovContract); err != nil {
			return nil, err
		}
		addr := msg.RemoveDistributor.Distributor
		i := slices.Index(cfg.Whitelist, addr)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrDistributorNotRegistered, addr)
		}
		cfg.Whitelist = slices.Delete(cfg.Whitelist, i, i+1)
		if err := saveConfig(deps.Store, &cfg); err != nil {
			return nil, err
		}
		return host.NewResponse().
			AddAttribute("action", "remove_distributor").
			AddAttribute("distributor", addr), nil
	}
	return nil, mm.ErrUnknownMessage
}

func spend(info host.MessageInfo, cfg *config, msg *mm.Spend) (*host.Response, error) {
	if err := common.Guard(info.Sender, cfg.Whitelist...); err != nil {
		return nil, err
	}
	if cfg.SpendLimit.Lt(msg.Amount) {
		return nil, fmt.Errorf("%w: %s", ErrSpendLimitExceeded, cfg.SpendLimit)
	}
	return host.NewResponse().
		AddAttribute("action", "spend").
		AddAttribute("recipient", msg.Recipient).
		AddAttribute("amount", msg.Amount).
		AddMessage(mm.Transfer(cfg.RewardToken, msg.Recipient, msg.Amount)), nil
}

func (Contract) Query(deps host.Deps, _ host.Env, raw json.RawMessage) (json.RawMessage, error) {
	var msg mm.DistributorQueryMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	if msg.Config == nil {
		return nil, mm.ErrUnknownMessage
	}
	cfg, err := loadConfig(deps.Store)
	if err != nil {
		return nil, err
	}
	return json.Marshal(mm.DistributorConfigResponse{
		GovContract: cfg.GovContract,
		RewardToken: cfg.RewardToken,
		Whitelist:   cfg.Whitelist,
		SpendLimit:  cfg.SpendLimit,
	})
}
