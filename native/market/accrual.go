package market

import (
	"orchai/core/num"
)

// ExchangeRate is the value of one receipt token in stable units:
// (balance + liabilities - reserves) / supply, or one for an empty supply.
func ExchangeRate(state *State, supply, balance num.Uint256) (num.Decimal, error) {
	if supply.IsZero() {
		return num.OneDec(), nil
	}
	assets, err := balance.Decimal()
	if err != nil {
		return num.Decimal{}, err
	}
	if assets, err = assets.Add(state.TotalLiabilities); err != nil {
		return num.Decimal{}, err
	}
	if assets, err = assets.Sub(state.TotalReserves); err != nil {
		return num.Decimal{}, err
	}
	denom, err := supply.Decimal()
	if err != nil {
		return num.Decimal{}, err
	}
	return assets.Quo(denom)
}

// AccrueInterest advances the interest watermark to height. Interest on the
// outstanding liabilities compounds into the global index; deposit yield
// above target is moved into reserves, after which the exchange rate is
// computed a second time so the snapshot reflects the smaller payout.
//
// Heights at or below the watermark leave state untouched. On error state is
// not modified.
func AccrueInterest(state *State, height uint64, balance, supply num.Uint256, borrowRate, targetDepositRate num.Decimal) error {
	if height <= state.LastInterestUpdated {
		return nil
	}
	next := *state
	passed := num.NewDec(height - state.LastInterestUpdated)

	factor, err := passed.Mul(borrowRate)
	if err != nil {
		return err
	}
	accrued, err := next.TotalLiabilities.Mul(factor)
	if err != nil {
		return err
	}
	growth, err := num.OneDec().Add(factor)
	if err != nil {
		return err
	}
	if next.GlobalInterestIndex, err = next.GlobalInterestIndex.Mul(growth); err != nil {
		return err
	}
	if next.TotalLiabilities, err = next.TotalLiabilities.Add(accrued); err != nil {
		return err
	}

	rate, err := ExchangeRate(&next, supply, balance)
	if err != nil {
		return err
	}
	depositRate, err := periodDepositRate(rate, next.PrevExchangeRate, passed)
	if err != nil {
		return err
	}
	if depositRate.Gt(targetDepositRate) {
		excessRate, err := depositRate.Sub(targetDepositRate)
		if err != nil {
			return err
		}
		prev, err := next.PrevATerraSupply.MulDec(next.PrevExchangeRate)
		if err != nil {
			return err
		}
		prevDeposits, err := prev.Decimal()
		if err != nil {
			return err
		}
		excessYield, err := prevDeposits.Mul(passed)
		if err != nil {
			return err
		}
		if excessYield, err = excessYield.Mul(excessRate); err != nil {
			return err
		}
		if next.TotalReserves, err = next.TotalReserves.Add(excessYield); err != nil {
			return err
		}
		if rate, err = ExchangeRate(&next, supply, balance); err != nil {
			return err
		}
	}

	next.PrevATerraSupply = supply
	next.PrevExchangeRate = rate
	next.LastInterestUpdated = height
	*state = next
	return nil
}

// periodDepositRate is the per-block growth of the exchange rate since the
// previous snapshot. A flat or shrinking rate yields zero.
func periodDepositRate(rate, prev, passed num.Decimal) (num.Decimal, error) {
	if prev.IsZero() {
		return num.ZeroDec(), nil
	}
	effective, err := rate.Quo(prev)
	if err != nil {
		return num.Decimal{}, err
	}
	if effective.Lte(num.OneDec()) {
		return num.ZeroDec(), nil
	}
	growth, err := effective.Sub(num.OneDec())
	if err != nil {
		return num.Decimal{}, err
	}
	return growth.Quo(passed)
}

// AccrueReward advances the reward watermark to height, spreading the
// emission over the principal-equivalent borrow amount.
func AccrueReward(state *State, height uint64) error {
	if height <= state.LastRewardUpdated {
		return nil
	}
	next := *state
	passed := num.NewDec(height - state.LastRewardUpdated)
	accrued, err := passed.Mul(next.AncEmissionRate)
	if err != nil {
		return err
	}
	borrowed, err := next.TotalLiabilities.Quo(next.GlobalInterestIndex)
	if err != nil {
		return err
	}
	if !accrued.IsZero() && !borrowed.IsZero() {
		delta, err := accrued.Quo(borrowed)
		if err != nil {
			return err
		}
		if next.GlobalRewardIndex, err = next.GlobalRewardIndex.Add(delta); err != nil {
			return err
		}
	}
	next.LastRewardUpdated = height
	*state = next
	return nil
}
