// Package liquidation runs the bid pool that buys seized collateral. Bidders
// lock stable against a collateral token at a premium; custodies sell
// liquidated collateral into the pool and the proceeds repay the market.
package liquidation

import (
	"encoding/json"
	"fmt"

	"orchai/core/host"
	"orchai/core/num"
	"orchai/crypto"
	"orchai/native/common"
	mm "orchai/native/moneymarket"
)

// Code is the name under which the liquidation contract is registered.
const Code = "liquidation"

// Contract is the liquidation code.
type Contract struct{}

var _ host.Contract = Contract{}

func validate(cfg *Config) error {
	if cfg.SafeRatio.Gt(num.OneDec()) {
		return fmt.Errorf("%w: %s", ErrInvalidSafeRatio, cfg.SafeRatio)
	}
	if cfg.MaxPremiumRate.Gt(num.OneDec()) || cfg.BidFee.Gt(num.OneDec()) {
		return fmt.Errorf("liquidation: premium %s and bid fee %s must not exceed one", cfg.MaxPremiumRate, cfg.BidFee)
	}
	return nil
}

func (Contract) Instantiate(deps host.Deps, _ host.Env, _ host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg mm.LiquidationInstantiateMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	cfg := Config{
		Owner:                msg.Owner,
		OracleContract:       msg.OracleContract,
		StableAddr:           msg.StableAddr,
		SafeRatio:            msg.SafeRatio,
		BidFee:               msg.BidFee,
		MaxPremiumRate:       msg.MaxPremiumRate,
		LiquidationThreshold: msg.LiquidationThreshold,
		PriceTimeframe:       msg.PriceTimeframe,
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	if err := saveConfig(deps.Store, &cfg); err != nil {
		return nil, err
	}
	return host.NewResponse().AddAttribute("action", "instantiate"), nil
}

func (Contract) Execute(deps host.Deps, env host.Env, info host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg mm.LiquidationExecuteMsg
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
	case msg.UpdateConfig != nil:
		return updateConfig(deps, info, &cfg, msg.UpdateConfig)
	case msg.RetractBid != nil:
		return retractBid(deps, info.Sender, &cfg, msg.RetractBid)
	}
	return nil, mm.ErrUnknownMessage
}

// receive accepts stable for new bids and collateral for bid execution.
// Collateral may come from any token; only tokens someone bid on can be
// sold.
func receive(deps host.Deps, env host.Env, info host.MessageInfo, cfg *Config, msg *mm.Cw20ReceiveMsg) (*host.Response, error) {
	var hook mm.LiquidationHookMsg
	if err := mm.Decode(msg.Msg, &hook); err != nil {
		return nil, err
	}
	switch {
	case hook.SubmitBid != nil:
		if err := common.Guard(info.Sender, cfg.StableAddr); err != nil {
			return nil, err
		}
		return submitBid(deps, msg.Sender, msg.Amount, cfg, hook.SubmitBid)
	case hook.ExecuteBid != nil:
		return executeBid(deps, env, info.Sender, msg.Amount, cfg, hook.ExecuteBid)
	}
	return nil, ErrMissingHook
}

func updateConfig(deps host.Deps, info host.MessageInfo, cfg *Config, msg *mm.LiquidationUpdateConfig) (*host.Response, error) {
	if err := common.Guard(info.Sender, cfg.Owner); err != nil {
		return nil, err
	}
	if msg.Owner != nil {
		cfg.Owner = *msg.Owner
	}
	if msg.OracleContract != nil {
		cfg.OracleContract = *msg.OracleContract
	}
	if msg.SafeRatio != nil {
		cfg.SafeRatio = *msg.SafeRatio
	}
	if msg.BidFee != nil {
		cfg.BidFee = *msg.BidFee
	}
	if msg.MaxPremiumRate != nil {
		cfg.MaxPremiumRate = *msg.MaxPremiumRate
	}
	if msg.LiquidationThreshold != nil {
		cfg.LiquidationThreshold = *msg.LiquidationThreshold
	}
	if msg.PriceTimeframe != nil {
		cfg.PriceTimeframe = *msg.PriceTimeframe
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	if err := saveConfig(deps.Store, cfg); err != nil {
		return nil, err
	}
	return host.NewResponse().AddAttribute("action", "update_config"), nil
}

func (Contract) Query(deps host.Deps, _ host.Env, raw json.RawMessage) (json.RawMessage, error) {
	var msg mm.LiquidationQueryMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	cfg, err := loadConfig(deps.Store)
	if err != nil {
		return nil, err
	}
	var resp any
	switch {
	case msg.Config != nil:
		resp = cfg.response()
	case msg.LiquidationAmount != nil:
		q := msg.LiquidationAmount
		cs, err := Amount(&cfg, q.BorrowAmount, q.BorrowLimit, q.Collaterals, q.CollateralPrices)
		if err != nil {
			return nil, err
		}
		resp = mm.LiquidationAmountResponse{Collaterals: cs}
	case msg.Bid != nil:
		bid, err := mustLoadBid(deps.Store, msg.Bid.CollateralToken, msg.Bid.Bidder)
		if err != nil {
			return nil, err
		}
		resp = bidResponse(msg.Bid.CollateralToken, msg.Bid.Bidder, &bid)
	case msg.BidsByUser != nil:
		out, err := queryBidsByUser(deps, msg.BidsByUser)
		if err != nil {
			return nil, err
		}
		resp = out
	default:
		return nil, mm.ErrUnknownMessage
	}
	return json.Marshal(resp)
}

func bidResponse(collateral, bidder crypto.Address, bid *Bid) mm.BidResponse {
	return mm.BidResponse{
		CollateralToken: collateral,
		Bidder:          bidder,
		Amount:          bid.Amount,
		PremiumRate:     bid.PremiumRate,
	}
}

func queryBidsByUser(deps host.Deps, q *mm.BidsByUserQuery) (mm.BidsResponse, error) {
	var start []byte
	if q.StartAfter != nil {
		start = q.StartAfter.Bytes()
	}
	out := mm.BidsResponse{Bids: []mm.BidResponse{}}
	err := common.Range(deps.Store, bidderPrefix(q.Bidder), start, common.ClampLimit(q.Limit), func(suffix, value []byte) error {
		collateral, err := crypto.NewAddress(suffix)
		if err != nil {
			return err
		}
		var bid Bid
		if err := common.Decode(value, &bid); err != nil {
			return err
		}
		out.Bids = append(out.Bids, bidResponse(collateral, q.Bidder, &bid))
		return nil
	})
	return out, err
}
