package distributionmodel

import (
	"encoding/json"

	"orchai/core/host"
	"orchai/native/common"
	mm "orchai/native/moneymarket"
)

// Code is the name under which the distribution model is registered with the
// host.
const Code = "distribution_model"

var configKey = []byte("config")

// Contract is the distribution model code.
type Contract struct{}

var _ host.Contract = Contract{}

func (Contract) Instantiate(deps host.Deps, _ host.Env, _ host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg mm.DistributionModelInstantiateMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	model := Model{
		Owner:               msg.Owner,
		EmissionCap:         msg.EmissionCap,
		EmissionFloor:       msg.EmissionFloor,
		IncrementMultiplier: msg.IncrementMultiplier,
		DecrementMultiplier: msg.DecrementMultiplier,
	}
	if err := common.Save(deps.Store, configKey, &model); err != nil {
		return nil, err
	}
	return host.NewResponse().AddAttribute("action", "instantiate"), nil
}

func (Contract) Execute(deps host.Deps, _ host.Env, info host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg mm.DistributionModelExecuteMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	if msg.UpdateConfig == nil {
		return nil, mm.ErrUnknownMessage
	}
	var model Model
	if err := common.MustLoad(deps.Store, configKey, &model); err != nil {
		return nil, err
	}
	if err := common.Guard(info.Sender, model.Owner); err != nil {
		return nil, err
	}
	update := msg.UpdateConfig
	if update.Owner != nil {
		model.Owner = *update.Owner
	}
	if update.EmissionCap != nil {
		model.EmissionCap = *update.EmissionCap
	}
	if update.EmissionFloor != nil {
		model.EmissionFloor = *update.EmissionFloor
	}
	if update.IncrementMultiplier != nil {
		model.IncrementMultiplier = *update.IncrementMultiplier
	}
	if update.DecrementMultiplier != nil {
		model.DecrementMultiplier = *update.DecrementMultiplier
	}
	if err := common.Save(deps.Store, configKey, &model); err != nil {
		return nil, err
	}
	return host.NewResponse().AddAttribute("action", "update_config"), nil
}

func (Contract) Query(deps host.Deps, _ host.Env, raw json.RawMessage) (json.RawMessage, error) {
	var msg mm.DistributionModelQueryMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	var model Model
	if err := common.MustLoad(deps.Store, configKey, &model); err != nil {
		return nil, err
	}
	switch {
	case msg.Config != nil:
		return json.Marshal(mm.DistributionModelConfigResponse{
			Owner:               model.Owner,
			EmissionCap:         model.EmissionCap,
			EmissionFloor:       model.EmissionFloor,
			IncrementMultiplier: model.IncrementMultiplier,
			DecrementMultiplier: model.DecrementMultiplier,
		})
	case msg.AncEmissionRate != nil:
		q := msg.AncEmissionRate
		rate, err := model.EmissionRate(q.DepositRate, q.TargetDepositRate, q.ThresholdDepositRate, q.CurrentEmissionRate)
		if err != nil {
			return nil, err
		}
		return json.Marshal(mm.EmissionRateResponse{EmissionRate: rate})
	}
	return nil, mm.ErrUnknownMessage
}
