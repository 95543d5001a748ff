package moneymarket

import (
	"orchai/core/num"
	"orchai/crypto"
)

type LiquidationInstantiateMsg struct {
	Owner                crypto.Address `json:"owner"`
	OracleContract       crypto.Address `json:"oracle_contract"`
	StableAddr           crypto.Address `json:"stable_addr"`
	SafeRatio            num.Decimal    `json:"safe_ratio"`
	BidFee               num.Decimal    `json:"bid_fee"`
	MaxPremiumRate       num.Decimal    `json:"max_premium_rate"`
	LiquidationThreshold num.Uint256    `json:"liquidation_threshold"`
	PriceTimeframe       uint64         `json:"price_timeframe"`
}

type LiquidationExecuteMsg struct {
	Receive      *Cw20ReceiveMsg          `json:"receive,omitempty"`
	UpdateConfig *LiquidationUpdateConfig `json:"update_config,omitempty"`
	RetractBid   *RetractBid              `json:"retract_bid,omitempty"`
}

type LiquidationUpdateConfig struct {
	Owner                *crypto.Address `json:"owner,omitempty"`
	OracleContract       *crypto.Address `json:"oracle_contract,omitempty"`
	SafeRatio            *num.Decimal    `json:"safe_ratio,omitempty"`
	BidFee               *num.Decimal    `json:"bid_fee,omitempty"`
	MaxPremiumRate       *num.Decimal    `json:"max_premium_rate,omitempty"`
	LiquidationThreshold *num.Uint256    `json:"liquidation_threshold,omitempty"`
	PriceTimeframe       *uint64         `json:"price_timeframe,omitempty"`
}

type RetractBid struct {
	CollateralToken crypto.Address `json:"collateral_token"`
	Amount          *num.Uint256   `json:"amount,omitempty"`
}

// LiquidationHookMsg is the payload of a token Send to the liquidation
// contract: stable for SubmitBid, collateral for ExecuteBid.
type LiquidationHookMsg struct {
	SubmitBid  *SubmitBid  `json:"submit_bid,omitempty"`
	ExecuteBid *ExecuteBid `json:"execute_bid,omitempty"`
}

type SubmitBid struct {
	CollateralToken crypto.Address `json:"collateral_token"`
	PremiumRate     num.Decimal    `json:"premium_rate"`
}

type ExecuteBid struct {
	Liquidator   crypto.Address  `json:"liquidator"`
	FeeAddress   *crypto.Address `json:"fee_address,omitempty"`
	RepayAddress *crypto.Address `json:"repay_address,omitempty"`
}

type LiquidationQueryMsg struct {
	Config            *Empty                  `json:"config,omitempty"`
	LiquidationAmount *LiquidationAmountQuery `json:"liquidation_amount,omitempty"`
	Bid               *BidQuery               `json:"bid,omitempty"`
	BidsByUser        *BidsByUserQuery        `json:"bids_by_user,omitempty"`
}

type LiquidationAmountQuery struct {
	BorrowAmount     num.Uint256   `json:"borrow_amount"`
	BorrowLimit      num.Uint256   `json:"borrow_limit"`
	Collaterals      Collaterals   `json:"collaterals"`
	CollateralPrices []num.Decimal `json:"collateral_prices"`
}

type LiquidationAmountResponse struct {
	Collaterals Collaterals `json:"collaterals"`
}

type BidQuery struct {
	CollateralToken crypto.Address `json:"collateral_token"`
	Bidder          crypto.Address `json:"bidder"`
}

type BidsByUserQuery struct {
	Bidder     crypto.Address  `json:"bidder"`
	StartAfter *crypto.Address `json:"start_after,omitempty"`
	Limit      *uint32         `json:"limit,omitempty"`
}

type BidResponse struct {
	CollateralToken crypto.Address `json:"collateral_token"`
	Bidder          crypto.Address `json:"bidder"`
	Amount          num.Uint256    `json:"amount"`
	PremiumRate     num.Decimal    `json:"premium_rate"`
}

type BidsResponse struct {
	Bids []BidResponse `json:"bids"`
}

type LiquidationConfigResponse struct {
	Owner                crypto.Address `json:"owner"`
	OracleContract       crypto.Address `json:"oracle_contract"`
	StableAddr           crypto.Address `json:"stable_addr"`
	SafeRatio            num.Decimal    `json:"safe_ratio"`
	BidFee               num.Decimal    `json:"bid_fee"`
	MaxPremiumRate       num.Decimal    `json:"max_premium_rate"`
	LiquidationThreshold num.Uint256    `json:"liquidation_threshold"`
	PriceTimeframe       uint64         `json:"price_timeframe"`
}
