package moneymarket

import (
	"orchai/core/num"
	"orchai/crypto"
)

// MarketInstantiateMsg configures a market. The market must already hold
// the initial stable deposit when it is instantiated.
type MarketInstantiateMsg struct {
	OwnerAddr            crypto.Address `json:"owner_addr"`
	StableAddr           crypto.Address `json:"stable_addr"`
	ATokenCode           string         `json:"aterra_code"`
	ATokenName           string         `json:"aterra_name,omitempty"`
	ATokenSymbol         string         `json:"aterra_symbol,omitempty"`
	AncEmissionRate      num.Decimal    `json:"anc_emission_rate"`
	MaxBorrowFactor      num.Decimal    `json:"max_borrow_factor"`
	RewardClaimThreshold num.Uint256    `json:"reward_claim_threshold"`
	TaxRate              num.Decimal    `json:"tax_rate"`
	TaxCap               num.Uint256    `json:"tax_cap"`
}

type MarketExecuteMsg struct {
	Receive                    *Cw20ReceiveMsg             `json:"receive,omitempty"`
	RegisterATerra             *Empty                      `json:"register_a_terra,omitempty"`
	RegisterContracts          *RegisterContracts          `json:"register_contracts,omitempty"`
	UpdateConfig               *MarketUpdateConfig         `json:"update_config,omitempty"`
	RepayStableFromLiquidation *RepayStableFromLiquidation `json:"repay_stable_from_liquidation,omitempty"`
	ExecuteEpochOperations     *MarketEpochOperations      `json:"execute_epoch_operations,omitempty"`
	BorrowStable               *BorrowStable               `json:"borrow_stable,omitempty"`
	ClaimRewards               *ClaimRewards               `json:"claim_rewards,omitempty"`
}

type RegisterContracts struct {
	OverseerContract    crypto.Address `json:"overseer_contract"`
	InterestModel       crypto.Address `json:"interest_model"`
	DistributionModel   crypto.Address `json:"distribution_model"`
	CollectorContract   crypto.Address `json:"collector_contract"`
	DistributorContract crypto.Address `json:"distributor_contract"`
}

type MarketUpdateConfig struct {
	OwnerAddr            *crypto.Address `json:"owner_addr,omitempty"`
	MaxBorrowFactor      *num.Decimal    `json:"max_borrow_factor,omitempty"`
	InterestModel        *crypto.Address `json:"interest_model,omitempty"`
	DistributionModel    *crypto.Address `json:"distribution_model,omitempty"`
	RewardClaimThreshold *num.Uint256    `json:"reward_claim_threshold,omitempty"`
}

type RepayStableFromLiquidation struct {
	Borrower    crypto.Address `json:"borrower"`
	PrevBalance num.Uint256    `json:"prev_balance"`
}

type MarketEpochOperations struct {
	DepositRate          num.Decimal `json:"deposit_rate"`
	TargetDepositRate    num.Decimal `json:"target_deposit_rate"`
	ThresholdDepositRate num.Decimal `json:"threshold_deposit_rate"`
	DistributedInterest  num.Uint256 `json:"distributed_interest"`
}

type BorrowStable struct {
	BorrowAmount num.Uint256     `json:"borrow_amount"`
	To           *crypto.Address `json:"to,omitempty"`
}

type ClaimRewards struct {
	To *crypto.Address `json:"to,omitempty"`
}

// MarketHookMsg is the payload of a token Send addressed to the market.
type MarketHookMsg struct {
	DepositStable *Empty `json:"deposit_stable,omitempty"`
	RedeemStable  *Empty `json:"redeem_stable,omitempty"`
	RepayStable   *Empty `json:"repay_stable,omitempty"`
}

type MarketQueryMsg struct {
	Config        *Empty              `json:"config,omitempty"`
	State         *StateQuery         `json:"state,omitempty"`
	EpochState    *EpochStateQuery    `json:"epoch_state,omitempty"`
	BorrowerInfo  *BorrowerInfoQuery  `json:"borrower_info,omitempty"`
	BorrowerInfos *BorrowerInfosQuery `json:"borrower_infos,omitempty"`
}

type StateQuery struct {
	BlockHeight *uint64 `json:"block_height,omitempty"`
}

type EpochStateQuery struct {
	BlockHeight         *uint64      `json:"block_height,omitempty"`
	DistributedInterest *num.Uint256 `json:"distributed_interest,omitempty"`
}

type BorrowerInfoQuery struct {
	Borrower    crypto.Address `json:"borrower"`
	BlockHeight *uint64        `json:"block_height,omitempty"`
}

type BorrowerInfosQuery struct {
	StartAfter *crypto.Address `json:"start_after,omitempty"`
	Limit      *uint32         `json:"limit,omitempty"`
}

type MarketConfigResponse struct {
	OwnerAddr            crypto.Address `json:"owner_addr"`
	ATerraContract       crypto.Address `json:"aterra_contract"`
	InterestModel        crypto.Address `json:"interest_model"`
	DistributionModel    crypto.Address `json:"distribution_model"`
	OverseerContract     crypto.Address `json:"overseer_contract"`
	CollectorContract    crypto.Address `json:"collector_contract"`
	DistributorContract  crypto.Address `json:"distributor_contract"`
	StableAddr           crypto.Address `json:"stable_addr"`
	MaxBorrowFactor      num.Decimal    `json:"max_borrow_factor"`
	RewardClaimThreshold num.Uint256    `json:"reward_claim_threshold"`
	TaxRate              num.Decimal    `json:"tax_rate"`
	TaxCap               num.Uint256    `json:"tax_cap"`
}

type MarketStateResponse struct {
	TotalLiabilities    num.Decimal `json:"total_liabilities"`
	TotalReserves       num.Decimal `json:"total_reserves"`
	LastInterestUpdated uint64      `json:"last_interest_updated"`
	LastRewardUpdated   uint64      `json:"last_reward_updated"`
	GlobalInterestIndex num.Decimal `json:"global_interest_index"`
	GlobalRewardIndex   num.Decimal `json:"global_reward_index"`
	AncEmissionRate     num.Decimal `json:"anc_emission_rate"`
	PrevATerraSupply    num.Uint256 `json:"prev_aterra_supply"`
	PrevExchangeRate    num.Decimal `json:"prev_exchange_rate"`
}

type EpochStateResponse struct {
	ExchangeRate num.Decimal `json:"exchange_rate"`
	ATerraSupply num.Uint256 `json:"aterra_supply"`
}

type BorrowerInfoResponse struct {
	Borrower       crypto.Address `json:"borrower"`
	InterestIndex  num.Decimal    `json:"interest_index"`
	RewardIndex    num.Decimal    `json:"reward_index"`
	LoanAmount     num.Uint256    `json:"loan_amount"`
	PendingRewards num.Decimal    `json:"pending_rewards"`
}

type BorrowerInfosResponse struct {
	BorrowerInfos []BorrowerInfoResponse `json:"borrower_infos"`
}
