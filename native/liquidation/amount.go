package liquidation

import (
	"fmt"

	"orchai/core/num"
	mm "orchai/native/moneymarket"
)

// Amount returns how much of each collateral to seize from a borrower whose
// loan exceeds their borrow limit. It aims to bring the loan back to
// limit * SafeRatio after bidders take their premium and fee, seizing
// everything when the collateral cannot cover the loan or is worth less than
// LiquidationThreshold.
func Amount(cfg *Config, loan, limit num.Uint256, cs mm.Collaterals, prices []num.Decimal) (mm.Collaterals, error) {
	if loan.Lte(limit) {
		return mm.Collaterals{}, nil
	}
	if len(prices) != len(cs) {
		return nil, fmt.Errorf("liquidation: %d prices for %d collaterals", len(prices), len(cs))
	}
	value := num.ZeroUint()
	for i, c := range cs {
		v, err := c.Amount.MulDec(prices[i])
		if err != nil {
			return nil, err
		}
		if value, err = value.Add(v); err != nil {
			return nil, err
		}
	}

	keepPremium, err := num.OneDec().Sub(cfg.MaxPremiumRate)
	if err != nil {
		return nil, err
	}
	keepFee, err := num.OneDec().Sub(cfg.BidFee)
	if err != nil {
		return nil, err
	}
	deductor, err := keepPremium.Mul(keepFee)
	if err != nil {
		return nil, err
	}
	expectedRepay, err := value.MulDec(deductor)
	if err != nil {
		return nil, err
	}

	safe := num.ZeroUint()
	if value.Gt(cfg.LiquidationThreshold) {
		if safe, err = limit.MulDec(cfg.SafeRatio); err != nil {
			return nil, err
		}
	}

	ratio := num.OneDec()
	if expectedRepay.Gt(loan) {
		if ratio, err = seizeRatio(loan, expectedRepay, safe); err != nil {
			return nil, err
		}
	}

	out := make(mm.Collaterals, 0, len(cs))
	for _, c := range cs {
		amt, err := c.Amount.MulDec(ratio)
		if err != nil {
			return nil, err
		}
		if amt.IsZero() {
			continue
		}
		out = append(out, mm.Collateral{Token: c.Token, Amount: amt})
	}
	return out, nil
}

// seizeRatio is (loan - safe) / (expectedRepay - safe).
func seizeRatio(loan, expectedRepay, safe num.Uint256) (num.Decimal, error) {
	shortfall, err := loan.Sub(safe)
	if err != nil {
		return num.Decimal{}, fmt.Errorf("liquidation: safe borrow amount exceeds loan: %w", err)
	}
	cover, err := expectedRepay.Sub(safe)
	if err != nil {
		return num.Decimal{}, err
	}
	n, err := shortfall.Decimal()
	if err != nil {
		return num.Decimal{}, err
	}
	d, err := cover.Decimal()
	if err != nil {
		return num.Decimal{}, err
	}
	return n.Quo(d)
}
