package interestmodel

import (
	"encoding/json"

	"orchai/core/host"
	"orchai/native/common"
	mm "orchai/native/moneymarket"
)

// Code is the name under which the interest model is registered with the
// host.
const Code = "interest_model"

var configKey = []byte("config")

// Contract is the interest model code.
type Contract struct{}

var _ host.Contract = Contract{}

func (Contract) Instantiate(deps host.Deps, _ host.Env, _ host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg mm.InterestModelInstantiateMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	model := Model{Owner: msg.Owner, BaseRate: msg.BaseRate, InterestMultiplier: msg.InterestMultiplier}
	if err := common.Save(deps.Store, configKey, &model); err != nil {
		return nil, err
	}
	return host.NewResponse().AddAttribute("action", "instantiate"), nil
}

func (Contract) Execute(deps host.Deps, _ host.Env, info host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg mm.InterestModelExecuteMsg
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
	if update.BaseRate != nil {
		model.BaseRate = *update.BaseRate
	}
	if update.InterestMultiplier != nil {
		model.InterestMultiplier = *update.InterestMultiplier
	}
	if err := common.Save(deps.Store, configKey, &model); err != nil {
		return nil, err
	}
	return host.NewResponse().AddAttribute("action", "update_config"), nil
}

func (Contract) Query(deps host.Deps, _ host.Env, raw json.RawMessage) (json.RawMessage, error) {
	var msg mm.InterestModelQueryMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	var model Model
	if err := common.MustLoad(deps.Store, configKey, &model); err != nil {
		return nil, err
	}
	switch {
	case msg.Config != nil:
		return json.Marshal(mm.InterestModelConfigResponse{
			Owner:              model.Owner,
			BaseRate:           model.BaseRate,
			InterestMultiplier: model.InterestMultiplier,
		})
	case msg.BorrowRate != nil:
		q := msg.BorrowRate
		rate, err := model.BorrowRate(q.MarketBalance, q.TotalLiabilities, q.TotalReserves)
		if err != nil {
			return nil, err
		}
		return json.Marshal(mm.BorrowRateResponse{Rate: rate})
	}
	return nil, mm.ErrUnknownMessage
}
