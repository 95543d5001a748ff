package overseer

import (
	"strings"

	"orchai/core/host"
	"orchai/core/num"
	"orchai/crypto"
	mm "orchai/native/moneymarket"
	"orchai/storage"
)

func collateralLog(cs mm.Collaterals) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}

// custodyMsgs builds one custody message per collateral token. Zero amounts
// produce no message.
func custodyMsgs(kv storage.Reader, cs mm.Collaterals, build func(c mm.Collateral) mm.CustodyExecuteMsg) ([]host.Msg, error) {
	msgs := make([]host.Msg, 0, len(cs))
	for _, c := range cs {
		if c.Amount.IsZero() {
			continue
		}
		elem, err := loadWhitelistElem(kv, c.Token)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, mm.Execute(elem.CustodyContract, build(c)))
	}
	return msgs, nil
}

func lockCollateral(deps host.Deps, info host.MessageInfo, input mm.Collaterals) (*host.Response, error) {
	borrower := info.Sender
	add, err := input.Normalize()
	if err != nil {
		return nil, err
	}
	msgs, err := custodyMsgs(deps.Store, add, func(c mm.Collateral) mm.CustodyExecuteMsg {
		return mm.CustodyExecuteMsg{LockCollateral: &mm.CustodyAmount{Borrower: borrower, Amount: c.Amount}}
	})
	if err != nil {
		return nil, err
	}
	cur, err := loadCollaterals(deps.Store, borrower)
	if err != nil {
		return nil, err
	}
	if cur, err = cur.Add(add); err != nil {
		return nil, err
	}
	if err := saveCollaterals(deps.Store, borrower, cur); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "lock_collateral").
		AddAttribute("borrower", borrower).
		AddAttribute("collaterals", collateralLog(add)).
		AddMessage(msgs...), nil
}

// unlockCollateral releases collateral as long as the remainder still covers
// the borrower's loan at current prices.
func unlockCollateral(deps host.Deps, env host.Env, info host.MessageInfo, cfg *Config, input mm.Collaterals) (*host.Response, error) {
	borrower := info.Sender
	release, err := input.Normalize()
	if err != nil {
		return nil, err
	}
	cur, err := loadCollaterals(deps.Store, borrower)
	if err != nil {
		return nil, err
	}
	rest, err := cur.Sub(release)
	if err != nil {
		return nil, ErrUnlockExceedsLocked
	}
	blockTime := env.Block.Time
	limit, _, err := computeBorrowLimit(deps, cfg, rest, &blockTime)
	if err != nil {
		return nil, err
	}
	loan, err := mm.QueryBorrowerInfo(deps.Querier, cfg.MarketContract, borrower, env.Block.Height)
	if err != nil {
		return nil, err
	}
	if limit.Lt(loan.LoanAmount) {
		return nil, &UnlockTooLargeError{Limit: limit}
	}
	msgs, err := custodyMsgs(deps.Store, release, func(c mm.Collateral) mm.CustodyExecuteMsg {
		return mm.CustodyExecuteMsg{UnlockCollateral: &mm.CustodyAmount{Borrower: borrower, Amount: c.Amount}}
	})
	if err != nil {
		return nil, err
	}
	if err := saveCollaterals(deps.Store, borrower, rest); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "unlock_collateral").
		AddAttribute("borrower", borrower).
		AddAttribute("collaterals", collateralLog(release)).
		AddMessage(msgs...), nil
}

// liquidateCollateral seizes collateral of an undercollateralized borrower.
// The custodies sell it through the liquidation contract, which repays the
// market; the market then settles the loan with the balance it gained since
// prev_balance was recorded.
func liquidateCollateral(deps host.Deps, env host.Env, info host.MessageInfo, cfg *Config, borrower crypto.Address) (*host.Response, error) {
	cur, err := loadCollaterals(deps.Store, borrower)
	if err != nil {
		return nil, err
	}
	blockTime := env.Block.Time
	limit, prices, err := computeBorrowLimit(deps, cfg, cur, &blockTime)
	if err != nil {
		return nil, err
	}
	loan, err := mm.QueryBorrowerInfo(deps.Querier, cfg.MarketContract, borrower, env.Block.Height)
	if err != nil {
		return nil, err
	}
	if limit.Gte(loan.LoanAmount) {
		return nil, ErrCannotLiquidateSafeLoan
	}
	seized, err := mm.QueryLiquidationAmount(deps.Querier, cfg.LiquidationContract, mm.LiquidationAmountQuery{
		BorrowAmount:     loan.LoanAmount,
		BorrowLimit:      limit,
		Collaterals:      cur,
		CollateralPrices: prices,
	})
	if err != nil {
		return nil, err
	}
	rest, err := cur.Sub(seized.Collaterals)
	if err != nil {
		return nil, err
	}
	if err := saveCollaterals(deps.Store, borrower, rest); err != nil {
		return nil, err
	}
	prevBalance, err := mm.QueryBalance(deps.Querier, cfg.StableAddr, cfg.MarketContract)
	if err != nil {
		return nil, err
	}
	msgs, err := custodyMsgs(deps.Store, seized.Collaterals, func(c mm.Collateral) mm.CustodyExecuteMsg {
		return mm.CustodyExecuteMsg{LiquidateCollateral: &mm.CustodyLiquidate{
			Liquidator: info.Sender,
			Borrower:   borrower,
			Amount:     c.Amount,
		}}
	})
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, mm.Execute(cfg.MarketContract, mm.MarketExecuteMsg{
		RepayStableFromLiquidation: &mm.RepayStableFromLiquidation{Borrower: borrower, PrevBalance: prevBalance},
	}))
	return host.NewResponse().
		AddAttribute("action", "liquidate_collateral").
		AddAttribute("borrower", borrower).
		AddAttribute("liquidator", info.Sender).
		AddAttribute("collaterals", collateralLog(seized.Collaterals)).
		AddAttribute("prev_balance", prevBalance).
		AddMessage(msgs...), nil
}

// computeBorrowLimit sums amount * price * max_ltv over cs, flooring each
// product. Prices are returned in the order of cs. A nil blockTime skips the
// staleness check.
func computeBorrowLimit(deps host.Deps, cfg *Config, cs mm.Collaterals, blockTime *uint64) (num.Uint256, []num.Decimal, error) {
	var tc *mm.TimeConstraints
	if blockTime != nil {
		tc = &mm.TimeConstraints{BlockTime: *blockTime, ValidTimeframe: cfg.PriceTimeframe}
	}
	limit := num.ZeroUint()
	prices := make([]num.Decimal, 0, len(cs))
	for _, c := range cs {
		price, err := mm.QueryPrice(deps.Querier, cfg.OracleContract, c.Token.String(), cfg.StableAddr.String(), tc)
		if err != nil {
			return num.Uint256{}, nil, err
		}
		elem, err := loadWhitelistElem(deps.Store, c.Token)
		if err != nil {
			return num.Uint256{}, nil, err
		}
		value, err := c.Amount.MulDec(price.Rate)
		if err != nil {
			return num.Uint256{}, nil, err
		}
		weighted, err := value.MulDec(elem.MaxLtv)
		if err != nil {
			return num.Uint256{}, nil, err
		}
		if limit, err = limit.Add(weighted); err != nil {
			return num.Uint256{}, nil, err
		}
		prices = append(prices, price.Rate)
	}
	return limit, prices, nil
}
