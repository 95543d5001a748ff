package common

import (
	"orchai/core/num"
)

// TaxPolicy is the transfer tax applied to stable coins leaving a contract.
// A zero rate disables the tax; a zero cap leaves it uncapped.
type TaxPolicy struct {
	Rate num.Decimal `json:"rate"`
	Cap  num.Uint256 `json:"cap"`
}

// ComputeTax returns the tax due on a transfer that delivers amount to the
// recipient: amount * rate / (1 + rate), limited by the cap.
func ComputeTax(amount num.Uint256, policy TaxPolicy) (num.Uint256, error) {
	if policy.Rate.IsZero() || amount.IsZero() {
		return num.ZeroUint(), nil
	}
	onePlus, err := num.OneDec().Add(policy.Rate)
	if err != nil {
		return num.Uint256{}, err
	}
	net, err := amount.QuoDec(onePlus)
	if err != nil {
		return num.Uint256{}, err
	}
	tax, err := amount.Sub(net)
	if err != nil {
		return num.Uint256{}, err
	}
	if !policy.Cap.IsZero() {
		tax = num.MinUint(tax, policy.Cap)
	}
	return tax, nil
}

// DeductTax returns the amount left after the transfer tax.
func DeductTax(amount num.Uint256, policy TaxPolicy) (num.Uint256, error) {
	tax, err := ComputeTax(amount, policy)
	if err != nil {
		return num.Uint256{}, err
	}
	return amount.Sub(tax)
}
