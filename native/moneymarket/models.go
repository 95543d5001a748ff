package moneymarket

import (
	"orchai/core/num"
	"orchai/crypto"
)

type InterestModelInstantiateMsg struct {
	Owner              crypto.Address `json:"owner"`
	BaseRate           num.Decimal    `json:"base_rate"`
	InterestMultiplier num.Decimal    `json:"interest_multiplier"`
}

type InterestModelExecuteMsg struct {
	UpdateConfig *InterestModelUpdateConfig `json:"update_config,omitempty"`
}

type InterestModelUpdateConfig struct {
	Owner              *crypto.Address `json:"owner,omitempty"`
	BaseRate           *num.Decimal    `json:"base_rate,omitempty"`
	InterestMultiplier *num.Decimal    `json:"interest_multiplier,omitempty"`
}

type InterestModelQueryMsg struct {
	Config     *Empty           `json:"config,omitempty"`
	BorrowRate *BorrowRateQuery `json:"borrow_rate,omitempty"`
}

type BorrowRateQuery struct {
	MarketBalance    num.Uint256 `json:"market_balance"`
	TotalLiabilities num.Decimal `json:"total_liabilities"`
	TotalReserves    num.Decimal `json:"total_reserves"`
}

type BorrowRateResponse struct {
	Rate num.Decimal `json:"rate"`
}

type InterestModelConfigResponse struct {
	Owner              crypto.Address `json:"owner"`
	BaseRate           num.Decimal    `json:"base_rate"`
	InterestMultiplier num.Decimal    `json:"interest_multiplier"`
}

type DistributionModelInstantiateMsg struct {
	Owner               crypto.Address `json:"owner"`
	EmissionCap         num.Decimal    `json:"emission_cap"`
	EmissionFloor       num.Decimal    `json:"emission_floor"`
	IncrementMultiplier num.Decimal    `json:"increment_multiplier"`
	DecrementMultiplier num.Decimal    `json:"decrement_multiplier"`
}

type DistributionModelExecuteMsg struct {
	UpdateConfig *DistributionModelUpdateConfig `json:"update_config,omitempty"`
}

type DistributionModelUpdateConfig struct {
	Owner               *crypto.Address `json:"owner,omitempty"`
	EmissionCap         *num.Decimal    `json:"emission_cap,omitempty"`
	EmissionFloor       *num.Decimal    `json:"emission_floor,omitempty"`
	IncrementMultiplier *num.Decimal    `json:"increment_multiplier,omitempty"`
	DecrementMultiplier *num.Decimal    `json:"decrement_multiplier,omitempty"`
}

type DistributionModelQueryMsg struct {
	Config          *Empty             `json:"config,omitempty"`
	AncEmissionRate *EmissionRateQuery `json:"anc_emission_rate,omitempty"`
}

type EmissionRateQuery struct {
	DepositRate          num.Decimal `json:"deposit_rate"`
	TargetDepositRate    num.Decimal `json:"target_deposit_rate"`
	ThresholdDepositRate num.Decimal `json:"threshold_deposit_rate"`
	CurrentEmissionRate  num.Decimal `json:"current_emission_rate"`
}

type EmissionRateResponse struct {
	EmissionRate num.Decimal `json:"emission_rate"`
}

type DistributionModelConfigResponse struct {
	Owner               crypto.Address `json:"owner"`
	EmissionCap         num.Decimal    `json:"emission_cap"`
	EmissionFloor       num.Decimal    `json:"emission_floor"`
	IncrementMultiplier num.Decimal    `json:"increment_multiplier"`
	DecrementMultiplier num.Decimal    `json:"decrement_multiplier"`
}
