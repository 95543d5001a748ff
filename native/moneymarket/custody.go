package moneymarket

import (
	"orchai/core/num"
	"orchai/crypto"
)

type BAssetInfo struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

type CustodyInstantiateMsg struct {
	Owner               crypto.Address `json:"owner"`
	CollateralToken     crypto.Address `json:"collateral_token"`
	OverseerContract    crypto.Address `json:"overseer_contract"`
	MarketContract      crypto.Address `json:"market_contract"`
	LiquidationContract crypto.Address `json:"liquidation_contract"`
	StableAddr          crypto.Address `json:"stable_addr"`
	BAssetInfo          BAssetInfo     `json:"basset_info"`
	RewardsThreshold    num.Uint256    `json:"rewards_threshold"`
}

type CustodyExecuteMsg struct {
	Receive             *Cw20ReceiveMsg      `json:"receive,omitempty"`
	UpdateConfig        *CustodyUpdateConfig `json:"update_config,omitempty"`
	LockCollateral      *CustodyAmount       `json:"lock_collateral,omitempty"`
	UnlockCollateral    *CustodyAmount       `json:"unlock_collateral,omitempty"`
	DistributeRewards   *Empty               `json:"distribute_rewards,omitempty"`
	DistributeHook      *Empty               `json:"distribute_hook,omitempty"`
	LiquidateCollateral *CustodyLiquidate    `json:"liquidate_collateral,omitempty"`
	WithdrawCollateral  *WithdrawCollateral  `json:"withdraw_collateral,omitempty"`
}

type CustodyUpdateConfig struct {
	Owner               *crypto.Address `json:"owner,omitempty"`
	LiquidationContract *crypto.Address `json:"liquidation_contract,omitempty"`
	RewardsThreshold    *num.Uint256    `json:"rewards_threshold,omitempty"`
}

type CustodyAmount struct {
	Borrower crypto.Address `json:"borrower"`
	Amount   num.Uint256    `json:"amount"`
}

type CustodyLiquidate struct {
	Liquidator crypto.Address `json:"liquidator"`
	Borrower   crypto.Address `json:"borrower"`
	Amount     num.Uint256    `json:"amount"`
}

type WithdrawCollateral struct {
	Amount *num.Uint256 `json:"amount,omitempty"`
}

// CustodyHookMsg is the payload of a collateral token Send to a custody.
type CustodyHookMsg struct {
	DepositCollateral *Empty `json:"deposit_collateral,omitempty"`
}

type CustodyQueryMsg struct {
	Config    *Empty          `json:"config,omitempty"`
	Borrower  *BorrowerQuery  `json:"borrower,omitempty"`
	Borrowers *BorrowersQuery `json:"borrowers,omitempty"`
}

type BorrowerQuery struct {
	Address crypto.Address `json:"address"`
}

type BorrowersQuery struct {
	StartAfter *crypto.Address `json:"start_after,omitempty"`
	Limit      *uint32         `json:"limit,omitempty"`
}

type CustodyConfigResponse struct {
	Owner               crypto.Address `json:"owner"`
	CollateralToken     crypto.Address `json:"collateral_token"`
	OverseerContract    crypto.Address `json:"overseer_contract"`
	MarketContract      crypto.Address `json:"market_contract"`
	LiquidationContract crypto.Address `json:"liquidation_contract"`
	StableAddr          crypto.Address `json:"stable_addr"`
	BAssetInfo          BAssetInfo     `json:"basset_info"`
	RewardsThreshold    num.Uint256    `json:"rewards_threshold"`
}

type CustodyBorrowerResponse struct {
	Borrower  crypto.Address `json:"borrower"`
	Balance   num.Uint256    `json:"balance"`
	Spendable num.Uint256    `json:"spendable"`
}

type CustodyBorrowersResponse struct {
	Borrowers []CustodyBorrowerResponse `json:"borrowers"`
}
