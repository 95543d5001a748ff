package liquidation

import (
	"fmt"

	"orchai/core/host"
	"orchai/core/num"
	"orchai/crypto"
	mm "orchai/native/moneymarket"
)

func submitBid(deps host.Deps, bidder crypto.Address, amount num.Uint256, cfg *Config, msg *mm.SubmitBid) (*host.Response, error) {
	if amount.IsZero() {
		return nil, ErrZeroBid
	}
	if msg.PremiumRate.Gt(cfg.MaxPremiumRate) {
		return nil, fmt.Errorf("%w: %s", ErrPremiumExceedsMax, cfg.MaxPremiumRate)
	}
	_, exists, err := loadBid(deps.Store, msg.CollateralToken, bidder)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyBid, msg.CollateralToken)
	}
	bid := Bid{Amount: amount, PremiumRate: msg.PremiumRate}
	if err := storeBid(deps.Store, msg.CollateralToken, bidder, &bid); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "submit_bid").
		AddAttribute("collateral_token", msg.CollateralToken).
		AddAttribute("bidder", bidder).
		AddAttribute("amount", amount).
		AddAttribute("premium_rate", msg.PremiumRate), nil
}

func retractBid(deps host.Deps, bidder crypto.Address, cfg *Config, msg *mm.RetractBid) (*host.Response, error) {
	bid, err := mustLoadBid(deps.Store, msg.CollateralToken, bidder)
	if err != nil {
		return nil, err
	}
	amount := bid.Amount
	if msg.Amount != nil {
		amount = *msg.Amount
	}
	if amount.Gt(bid.Amount) {
		return nil, &BalanceError{Kind: ErrRetractExceedsBid, Balance: bid.Amount}
	}
	if bid.Amount, err = bid.Amount.Sub(amount); err != nil {
		return nil, err
	}
	if err := storeBid(deps.Store, msg.CollateralToken, bidder, &bid); err != nil {
		return nil, err
	}
	res := host.NewResponse().
		AddAttribute("action", "retract_bid").
		AddAttribute("collateral_token", msg.CollateralToken).
		AddAttribute("bidder", bidder).
		AddAttribute("amount", amount)
	if !amount.IsZero() {
		res.AddMessage(mm.Transfer(cfg.StableAddr, bidder, amount))
	}
	return res, nil
}

// executeBid sells amount of collateral to the liquidator's bid. The bid
// pays amount * price * (1 - premium); the fee share of that goes to
// FeeAddress and the rest to RepayAddress, both defaulting to the
// liquidator.
func executeBid(deps host.Deps, env host.Env, collateral crypto.Address, amount num.Uint256, cfg *Config, msg *mm.ExecuteBid) (*host.Response, error) {
	bid, err := mustLoadBid(deps.Store, collateral, msg.Liquidator)
	if err != nil {
		return nil, err
	}
	price, err := mm.QueryPrice(deps.Querier, cfg.OracleContract, collateral.String(), cfg.StableAddr.String(), &mm.TimeConstraints{
		BlockTime:      env.Block.Time,
		ValidTimeframe: cfg.PriceTimeframe,
	})
	if err != nil {
		return nil, err
	}
	value, err := amount.MulDec(price.Rate)
	if err != nil {
		return nil, err
	}
	discount, err := num.OneDec().Sub(num.MinDec(bid.PremiumRate, cfg.MaxPremiumRate))
	if err != nil {
		return nil, err
	}
	required, err := value.MulDec(discount)
	if err != nil {
		return nil, err
	}
	if required.Gt(bid.Amount) {
		return nil, &BalanceError{Kind: ErrInsufficientBidBalance, Balance: bid.Amount}
	}
	if bid.Amount, err = bid.Amount.Sub(required); err != nil {
		return nil, err
	}
	if err := storeBid(deps.Store, collateral, msg.Liquidator, &bid); err != nil {
		return nil, err
	}

	fee, err := required.MulDec(cfg.BidFee)
	if err != nil {
		return nil, err
	}
	repay, err := required.Sub(fee)
	if err != nil {
		return nil, err
	}
	repayTo, feeTo := msg.Liquidator, msg.Liquidator
	if msg.RepayAddress != nil {
		repayTo = *msg.RepayAddress
	}
	if msg.FeeAddress != nil {
		feeTo = *msg.FeeAddress
	}

	res := host.NewResponse().
		AddAttribute("action", "execute_bid").
		AddAttribute("collateral_token", collateral).
		AddAttribute("liquidator", msg.Liquidator).
		AddAttribute("amount", amount).
		AddAttribute("repay_amount", repay).
		AddAttribute("bid_fee", fee).
		AddMessage(mm.Transfer(collateral, msg.Liquidator, amount))
	if !repay.IsZero() {
		res.AddMessage(mm.Transfer(cfg.StableAddr, repayTo, repay))
	}
	if !fee.IsZero() {
		res.AddMessage(mm.Transfer(cfg.StableAddr, feeTo, fee))
	}
	return res, nil
}
