package moneymarket

import (
	"encoding/json"
	"fmt"

	"orchai/core/num"
	"orchai/crypto"
)

type OracleInstantiateMsg struct {
	Owner     crypto.Address `json:"owner"`
	BaseAsset string         `json:"base_asset"`
}

type OracleExecuteMsg struct {
	UpdateConfig   *OracleUpdateConfig `json:"update_config,omitempty"`
	RegisterFeeder *RegisterFeeder     `json:"register_feeder,omitempty"`
	FeedPrice      *FeedPrice          `json:"feed_price,omitempty"`
}

type OracleUpdateConfig struct {
	Owner *crypto.Address `json:"owner,omitempty"`
}

type RegisterFeeder struct {
	Asset  string         `json:"asset"`
	Feeder crypto.Address `json:"feeder"`
}

// PriceInput is an (asset, price) pair, encoded as a two element array.
type PriceInput struct {
	Asset string
	Price num.Decimal
}

func (p PriceInput) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Asset, p.Price})
}

func (p *PriceInput) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("price input: %w", err)
	}
	if err := json.Unmarshal(pair[0], &p.Asset); err != nil {
		return fmt.Errorf("price input asset: %w", err)
	}
	return json.Unmarshal(pair[1], &p.Price)
}

type FeedPrice struct {
	Prices []PriceInput `json:"prices"`
}

type OracleQueryMsg struct {
	Config *Empty       `json:"config,omitempty"`
	Feeder *FeederQuery `json:"feeder,omitempty"`
	Price  *PriceQuery  `json:"price,omitempty"`
	Prices *PricesQuery `json:"prices,omitempty"`
}

type FeederQuery struct {
	Asset string `json:"asset"`
}

type PriceQuery struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

type PricesQuery struct {
	StartAfter *string `json:"start_after,omitempty"`
	Limit      *uint32 `json:"limit,omitempty"`
}

type OracleConfigResponse struct {
	Owner     crypto.Address `json:"owner"`
	BaseAsset string         `json:"base_asset"`
}

type FeederResponse struct {
	Asset  string         `json:"asset"`
	Feeder crypto.Address `json:"feeder"`
}

type PriceResponse struct {
	Rate             num.Decimal `json:"rate"`
	LastUpdatedBase  uint64      `json:"last_updated_base"`
	LastUpdatedQuote uint64      `json:"last_updated_quote"`
}

type PricesResponseElem struct {
	Asset       string      `json:"asset"`
	Price       num.Decimal `json:"price"`
	LastUpdated uint64      `json:"last_updated_time"`
}

type PricesResponse struct {
	Prices []PricesResponseElem `json:"prices"`
}
