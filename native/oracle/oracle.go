// Package oracle stores feeder-reported asset prices quoted in the base
// asset.
package oracle

import (
	"encoding/json"
	"errors"
	"fmt"

	"orchai/core/host"
	"orchai/core/num"
	"orchai/crypto"
	"orchai/native/common"
	mm "orchai/native/moneymarket"
	"orchai/storage"
)

// Code is the name under which the oracle is registered with the host.
const Code = "oracle"

// BaseAssetUpdatedTime is reported as the update time of the base asset,
// which never goes stale.
const BaseAssetUpdatedTime uint64 = 9_999_999_999

var (
	ErrFeederNotFound = errors.New("oracle: no feeder registered for asset")
	ErrPriceNotFound  = errors.New("oracle: no price for asset")
	ErrZeroPrice      = errors.New("oracle: price must be positive")
)

var configKey = []byte("config")

const (
	feederPrefix = "feeder/"
	pricePrefix  = "price/"
)

type config struct {
	Owner     crypto.Address
	BaseAsset string
}

type priceInfo struct {
	Price       num.Decimal
	LastUpdated uint64
}

// Contract is the oracle code.
type Contract struct{}

var _ host.Contract = Contract{}

func (Contract) Instantiate(deps host.Deps, _ host.Env, _ host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg mm.OracleInstantiateMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	cfg := config{Owner: msg.Owner, BaseAsset: msg.BaseAsset}
	if err := common.Save(deps.Store, configKey, &cfg); err != nil {
		return nil, err
	}
	return host.NewResponse().AddAttribute("action", "instantiate"), nil
}

func (Contract) Execute(deps host.Deps, env host.Env, info host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg mm.OracleExecuteMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	var cfg config
	if err := common.MustLoad(deps.Store, configKey, &cfg); err != nil {
		return nil, err
	}
	switch {
	case msg.UpdateConfig != nil:
		if err := common.Guard(info.Sender, cfg.Owner); err != nil {
			return nil, err
		}
		if msg.UpdateConfig.Owner != nil {
			cfg.Owner = *msg.UpdateConfig.Owner
		}
		if err := common.Save(deps.Store, configKey, &cfg); err != nil {
			return nil, err
		}
		return host.NewResponse().AddAttribute("action", "update_config"), nil
	case msg.RegisterFeeder != nil:
		if err := common.Guard(info.Sender, cfg.Owner); err != nil {
			return nil, err
		}
		feeder := msg.RegisterFeeder.Feeder
		if err := common.Save(deps.Store, common.Key(feederPrefix, []byte(msg.RegisterFeeder.Asset)), &feeder); err != nil {
			return nil, err
		}
		return host.NewResponse().
			AddAttribute("action", "register_feeder").
			AddAttribute("asset", msg.RegisterFeeder.Asset).
			AddAttribute("feeder", feeder), nil
	case msg.FeedPrice != nil:
		return feedPrices(deps, env, info, msg.FeedPrice.Prices)
	}
	return nil, mm.ErrUnknownMessage
}

func feedPrices(deps host.Deps, env host.Env, info host.MessageInfo, prices []mm.PriceInput) (*host.Response, error) {
	resp := host.NewResponse().AddAttribute("action", "feed_prices")
	for _, p := range prices {
		feeder, err := readFeeder(deps.Store, p.Asset)
		if err != nil {
			return nil, err
		}
		if err := common.Guard(info.Sender, feeder); err != nil {
			return nil, err
		}
		if p.Price.IsZero() {
			return nil, fmt.Errorf("%w: %s", ErrZeroPrice, p.Asset)
		}
		record := priceInfo{Price: p.Price, LastUpdated: env.Block.Time}
		if err := common.Save(deps.Store, common.Key(pricePrefix, []byte(p.Asset)), &record); err != nil {
			return nil, err
		}
		resp.AddAttribute("asset", p.Asset).AddAttribute("price", p.Price)
	}
	return resp, nil
}

func readFeeder(kv storage.Reader, asset string) (crypto.Address, error) {
	var feeder crypto.Address
	ok, err := common.Load(kv, common.Key(feederPrefix, []byte(asset)), &feeder)
	if err != nil {
		return crypto.Address{}, err
	}
	if !ok {
		return crypto.Address{}, fmt.Errorf("%w: %s", ErrFeederNotFound, asset)
	}
	return feeder, nil
}

func readPrice(kv storage.Reader, cfg config, asset string) (priceInfo, error) {
	if asset == cfg.BaseAsset {
		return priceInfo{Price: num.OneDec(), LastUpdated: BaseAssetUpdatedTime}, nil
	}
	var info priceInfo
	ok, err := common.Load(kv, common.Key(pricePrefix, []byte(asset)), &info)
	if err != nil {
		return priceInfo{}, err
	}
	if !ok {
		return priceInfo{}, fmt.Errorf("%w: %s", ErrPriceNotFound, asset)
	}
	return info, nil
}

func (Contract) Query(deps host.Deps, _ host.Env, raw json.RawMessage) (json.RawMessage, error) {
	var msg mm.OracleQueryMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	var cfg config
	if err := common.MustLoad(deps.Store, configKey, &cfg); err != nil {
		return nil, err
	}
	switch {
	case msg.Config != nil:
		return json.Marshal(mm.OracleConfigResponse{Owner: cfg.Owner, BaseAsset: cfg.BaseAsset})
	case msg.Feeder != nil:
		feeder, err := readFeeder(deps.Store, msg.Feeder.Asset)
		if err != nil {
			return nil, err
		}
		return json.Marshal(mm.FeederResponse{Asset: msg.Feeder.Asset, Feeder: feeder})
	case msg.Price != nil:
		base, err := readPrice(deps.Store, cfg, msg.Price.Base)
		if err != nil {
			return nil, err
		}
		quote, err := readPrice(deps.Store, cfg, msg.Price.Quote)
		if err != nil {
			return nil, err
		}
		rate, err := base.Price.Quo(quote.Price)
		if err != nil {
			return nil, err
		}
		return json.Marshal(mm.PriceResponse{
			Rate:             rate,
			LastUpdatedBase:  base.LastUpdated,
			LastUpdatedQuote: quote.LastUpdated,
		})
	case msg.Prices != nil:
		var after []byte
		if msg.Prices.StartAfter != nil {
			after = []byte(*msg.Prices.StartAfter)
		}
		out := mm.PricesResponse{Prices: []mm.PricesResponseElem{}}
		err := common.Range(deps.Store, []byte(pricePrefix), after, common.ClampLimit(msg.Prices.Limit), func(asset, value []byte) error {
			var info priceInfo
			if err := common.Decode(value, &info); err != nil {
				return err
			}
			out.Prices = append(out.Prices, mm.PricesResponseElem{Asset: string(asset), Price: info.Price, LastUpdated: info.LastUpdated})
			return nil
		})
		if err != nil {
			return nil, err
		}
		return json.Marshal(out)
	}
	return nil, mm.ErrUnknownMessage
}
