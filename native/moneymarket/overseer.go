package moneymarket

import (
	"orchai/core/num"
	"orchai/crypto"
)

type OverseerInstantiateMsg struct {
	OwnerAddr                crypto.Address `json:"owner_addr"`
	OracleContract           crypto.Address `json:"oracle_contract"`
	MarketContract           crypto.Address `json:"market_contract"`
	LiquidationContract      crypto.Address `json:"liquidation_contract"`
	CollectorContract        crypto.Address `json:"collector_contract"`
	StableAddr               crypto.Address `json:"stable_addr"`
	EpochPeriod              uint64         `json:"epoch_period"`
	ThresholdDepositRate     num.Decimal    `json:"threshold_deposit_rate"`
	TargetDepositRate        num.Decimal    `json:"target_deposit_rate"`
	BufferDistributionFactor num.Decimal    `json:"buffer_distribution_factor"`
	AncPurchaseFactor        num.Decimal    `json:"anc_purchase_factor"`
	PriceTimeframe           uint64         `json:"price_timeframe"`
}

type OverseerExecuteMsg struct {
	Receive                *Cw20ReceiveMsg       `json:"receive,omitempty"`
	UpdateConfig           *OverseerUpdateConfig `json:"update_config,omitempty"`
	Whitelist              *Whitelist            `json:"whitelist,omitempty"`
	UpdateWhitelist        *UpdateWhitelist      `json:"update_whitelist,omitempty"`
	ExecuteEpochOperations *Empty                `json:"execute_epoch_operations,omitempty"`
	UpdateEpochState       *UpdateEpochState     `json:"update_epoch_state,omitempty"`
	LockCollateral         *CollateralsMsg       `json:"lock_collateral,omitempty"`
	UnlockCollateral       *CollateralsMsg       `json:"unlock_collateral,omitempty"`
	LiquidateCollateral    *LiquidateBorrower    `json:"liquidate_collateral,omitempty"`
}

type OverseerUpdateConfig struct {
	OwnerAddr                *crypto.Address `json:"owner_addr,omitempty"`
	OracleContract           *crypto.Address `json:"oracle_contract,omitempty"`
	LiquidationContract      *crypto.Address `json:"liquidation_contract,omitempty"`
	ThresholdDepositRate     *num.Decimal    `json:"threshold_deposit_rate,omitempty"`
	TargetDepositRate        *num.Decimal    `json:"target_deposit_rate,omitempty"`
	BufferDistributionFactor *num.Decimal    `json:"buffer_distribution_factor,omitempty"`
	AncPurchaseFactor        *num.Decimal    `json:"anc_purchase_factor,omitempty"`
	EpochPeriod              *uint64         `json:"epoch_period,omitempty"`
	PriceTimeframe           *uint64         `json:"price_timeframe,omitempty"`
}

type Whitelist struct {
	Name            string         `json:"name"`
	Symbol          string         `json:"symbol"`
	CollateralToken crypto.Address `json:"collateral_token"`
	CustodyContract crypto.Address `json:"custody_contract"`
	MaxLtv          num.Decimal    `json:"max_ltv"`
}

type UpdateWhitelist struct {
	CollateralToken crypto.Address  `json:"collateral_token"`
	CustodyContract *crypto.Address `json:"custody_contract,omitempty"`
	MaxLtv          *num.Decimal    `json:"max_ltv,omitempty"`
}

type UpdateEpochState struct {
	InterestBuffer      num.Uint256 `json:"interest_buffer"`
	DistributedInterest num.Uint256 `json:"distributed_interest"`
}

type CollateralsMsg struct {
	Collaterals Collaterals `json:"collaterals"`
}

type LiquidateBorrower struct {
	Borrower crypto.Address `json:"borrower"`
}

// OverseerHookMsg is the payload of a stable token Send to the overseer.
type OverseerHookMsg struct {
	FundReserve *Empty `json:"fund_reserve,omitempty"`
}

type OverseerQueryMsg struct {
	Config         *Empty               `json:"config,omitempty"`
	EpochState     *Empty               `json:"epoch_state,omitempty"`
	Whitelist      *WhitelistQuery      `json:"whitelist,omitempty"`
	Collaterals    *CollateralsQuery    `json:"collaterals,omitempty"`
	AllCollaterals *AllCollateralsQuery `json:"all_collaterals,omitempty"`
	BorrowLimit    *BorrowLimitQuery    `json:"borrow_limit,omitempty"`
}

type WhitelistQuery struct {
	CollateralToken *crypto.Address `json:"collateral_token,omitempty"`
	StartAfter      *crypto.Address `json:"start_after,omitempty"`
	Limit           *uint32         `json:"limit,omitempty"`
}

type CollateralsQuery struct {
	Borrower crypto.Address `json:"borrower"`
}

type AllCollateralsQuery struct {
	StartAfter *crypto.Address `json:"start_after,omitempty"`
	Limit      *uint32         `json:"limit,omitempty"`
}

type BorrowLimitQuery struct {
	Borrower  crypto.Address `json:"borrower"`
	BlockTime *uint64        `json:"block_time,omitempty"`
}

type OverseerConfigResponse struct {
	OwnerAddr                crypto.Address `json:"owner_addr"`
	OracleContract           crypto.Address `json:"oracle_contract"`
	MarketContract           crypto.Address `json:"market_contract"`
	LiquidationContract      crypto.Address `json:"liquidation_contract"`
	CollectorContract        crypto.Address `json:"collector_contract"`
	StableAddr               crypto.Address `json:"stable_addr"`
	EpochPeriod              uint64         `json:"epoch_period"`
	ThresholdDepositRate     num.Decimal    `json:"threshold_deposit_rate"`
	TargetDepositRate        num.Decimal    `json:"target_deposit_rate"`
	BufferDistributionFactor num.Decimal    `json:"buffer_distribution_factor"`
	AncPurchaseFactor        num.Decimal    `json:"anc_purchase_factor"`
	PriceTimeframe           uint64         `json:"price_timeframe"`
}

type OverseerEpochStateResponse struct {
	DepositRate        num.Decimal `json:"deposit_rate"`
	PrevATerraSupply   num.Uint256 `json:"prev_aterra_supply"`
	PrevExchangeRate   num.Decimal `json:"prev_exchange_rate"`
	PrevInterestBuffer num.Uint256 `json:"prev_interest_buffer"`
	LastExecutedHeight uint64      `json:"last_executed_height"`
}

type WhitelistResponseElem struct {
	Name            string         `json:"name"`
	Symbol          string         `json:"symbol"`
	MaxLtv          num.Decimal    `json:"max_ltv"`
	CustodyContract crypto.Address `json:"custody_contract"`
	CollateralToken crypto.Address `json:"collateral_token"`
}

type WhitelistResponse struct {
	Elems []WhitelistResponseElem `json:"elems"`
}

type CollateralsResponse struct {
	Borrower    crypto.Address `json:"borrower"`
	Collaterals Collaterals    `json:"collaterals"`
}

type AllCollateralsResponse struct {
	AllCollaterals []CollateralsResponse `json:"all_collaterals"`
}

type BorrowLimitResponse struct {
	Borrower    crypto.Address `json:"borrower"`
	BorrowLimit num.Uint256    `json:"borrow_limit"`
}
