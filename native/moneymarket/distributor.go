package moneymarket

import (
	"orchai/core/num"
	"orchai/crypto"
)

type DistributorInstantiateMsg struct {
	GovContract crypto.Address   `json:"gov_contract"`
	RewardToken crypto.Address   `json:"reward_token"`
	Whitelist   []crypto.Address `json:"whitelist"`
	SpendLimit  num.Uint256      `json:"spend_limit"`
}

type DistributorExecuteMsg struct {
	UpdateConfig      *DistributorUpdateConfig `json:"update_config,omitempty"`
	Spend             *Spend                   `json:"spend,omitempty"`
	AddDistributor    *DistributorAddr         `json:"add_distributor,omitempty"`
	RemoveDistributor *DistributorAddr         `json:"remove_distributor,omitempty"`
}

type DistributorUpdateConfig struct {
	SpendLimit *num.Uint256 `json:"spend_limit,omitempty"`
}

type Spend struct {
	Recipient crypto.Address `json:"recipient"`
	Amount    num.Uint256    `json:"amount"`
}

type DistributorAddr struct {
	Distributor crypto.Address `json:"distributor"`
}

type DistributorQueryMsg struct {
	Config *Empty `json:"config,omitempty"`
}

type DistributorConfigResponse struct {
	GovContract crypto.Address   `json:"gov_contract"`
	RewardToken crypto.Address   `json:"reward_token"`
	Whitelist   []crypto.Address `json:"whitelist"`
	SpendLimit  num.Uint256      `json:"spend_limit"`
}
