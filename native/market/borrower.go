package market

import (
	"orchai/core/num"
)

// TouchBorrower brings a liability up to date with the global indices.
// Interest is applied before rewards because rewards are priced on the
// rescaled loan.
func TouchBorrower(state *State, info *BorrowerInfo) error {
	if err := accrueBorrowerInterest(state, info); err != nil {
		return err
	}
	return accrueBorrowerReward(state, info)
}

func accrueBorrowerInterest(state *State, info *BorrowerInfo) error {
	loan, err := info.LoanAmount.MulDec(state.GlobalInterestIndex)
	if err != nil {
		return err
	}
	if loan, err = loan.QuoDec(info.InterestIndex); err != nil {
		return err
	}
	info.LoanAmount = loan
	info.InterestIndex = state.GlobalInterestIndex
	return nil
}

func accrueBorrowerReward(state *State, info *BorrowerInfo) error {
	loan, err := info.LoanAmount.Decimal()
	if err != nil {
		return err
	}
	principal, err := loan.Quo(state.GlobalInterestIndex)
	if err != nil {
		return err
	}
	delta, err := state.GlobalRewardIndex.Sub(info.RewardIndex)
	if err != nil {
		return err
	}
	earned, err := principal.Mul(delta)
	if err != nil {
		return err
	}
	pending, err := info.PendingRewards.Add(earned)
	if err != nil {
		return err
	}
	info.PendingRewards = pending
	info.RewardIndex = state.GlobalRewardIndex
	return nil
}

// claimable splits pending rewards into the whole units that can be paid
// out and the fractional remainder carried forward.
func claimable(info *BorrowerInfo) (num.Uint256, num.Decimal, error) {
	claim := info.PendingRewards.Floor()
	whole, err := claim.Decimal()
	if err != nil {
		return num.Uint256{}, num.Decimal{}, err
	}
	rest, err := info.PendingRewards.Sub(whole)
	if err != nil {
		return num.Uint256{}, num.Decimal{}, err
	}
	return claim, rest, nil
}
