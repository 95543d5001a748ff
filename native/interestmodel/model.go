// Package interestmodel prices borrowing as a linear function of market
// utilisation.
package interestmodel

import (
	"orchai/core/num"
	"orchai/crypto"
)

// Model holds the parameters of the linear rate curve. Rates are per block.
type Model struct {
	Owner              crypto.Address
	BaseRate           num.Decimal
	InterestMultiplier num.Decimal
}

// Utilization returns liabilities / (balance + liabilities - reserves). It is
// zero when the denominator is not positive.
func Utilization(balance num.Uint256, liabilities, reserves num.Decimal) (num.Decimal, error) {
	bal, err := balance.Decimal()
	if err != nil {
		return num.Decimal{}, err
	}
	gross, err := bal.Add(liabilities)
	if err != nil {
		return num.Decimal{}, err
	}
	if gross.Lte(reserves) {
		return num.ZeroDec(), nil
	}
	denom, err := gross.Sub(reserves)
	if err != nil {
		return num.Decimal{}, err
	}
	return liabilities.Quo(denom)
}

// BorrowRate returns utilization * interest_multiplier + base_rate.
func (m Model) BorrowRate(balance num.Uint256, liabilities, reserves num.Decimal) (num.Decimal, error) {
	util, err := Utilization(balance, liabilities, reserves)
	if err != nil {
		return num.Decimal{}, err
	}
	scaled, err := util.Mul(m.InterestMultiplier)
	if err != nil {
		return num.Decimal{}, err
	}
	return scaled.Add(m.BaseRate)
}
