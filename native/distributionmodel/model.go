// Package distributionmodel steers the reward emission rate toward a target
// deposit-rate band.
package distributionmodel

import (
	"orchai/core/num"
	"orchai/crypto"
)

// Model bounds and scales the emission rate.
type Model struct {
	Owner               crypto.Address
	EmissionCap         num.Decimal
	EmissionFloor       num.Decimal
	IncrementMultiplier num.Decimal
	DecrementMultiplier num.Decimal
}

var two = num.NewDec(2)

// Triggers returns the low and high hysteresis bounds derived from the
// threshold and target deposit rates.
func Triggers(threshold, target num.Decimal) (low, high num.Decimal, err error) {
	sum, err := threshold.Add(target)
	if err != nil {
		return
	}
	mid, err := sum.Quo(two)
	if err != nil {
		return
	}
	if sum, err = mid.Add(target); err != nil {
		return
	}
	if high, err = sum.Quo(two); err != nil {
		return
	}
	if sum, err = mid.Add(threshold); err != nil {
		return
	}
	low, err = sum.Quo(two)
	return
}

// EmissionRate raises the rate below the low trigger, lowers it above the
// high trigger and leaves it unchanged on or between the triggers, then
// clamps the result into [floor, cap].
func (m Model) EmissionRate(depositRate, target, threshold, current num.Decimal) (num.Decimal, error) {
	low, high, err := Triggers(threshold, target)
	if err != nil {
		return num.Decimal{}, err
	}
	rate := current
	switch {
	case depositRate.Lt(low):
		rate, err = current.Mul(m.IncrementMultiplier)
	case depositRate.Gt(high):
		rate, err = current.Mul(m.DecrementMultiplier)
	}
	if err != nil {
		return num.Decimal{}, err
	}
	switch {
	case rate.Gt(m.EmissionCap):
		rate = m.EmissionCap
	case rate.Lt(m.EmissionFloor):
		rate = m.EmissionFloor
	}
	return rate, nil
}
