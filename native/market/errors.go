package market

import (
	"errors"
	"fmt"

	"orchai/core/num"
)

var (
	ErrZeroDeposit              = errors.New("market: deposit amount must be greater than 0")
	ErrZeroRepay                = errors.New("market: repay amount must be greater than 0")
	ErrNoStableAvailable        = errors.New("market: not enough stable available; borrow demand too high")
	ErrMaxBorrowFactorReached   = errors.New("market: exceeds stable max borrow factor; borrow demand too high")
	ErrBorrowExceedsLimit       = errors.New("market: loan liability becomes greater than borrow limit")
	ErrAlreadyRegistered        = errors.New("market: contract address already registered")
	ErrInitialFundsNotDeposited = errors.New("market: initial funds not deposited")
	ErrMissingHook              = errors.New("market: receive message carries no market hook")
	ErrInvalidBlockHeight       = errors.New("market: block height is below the last update")
	ErrLiabilitiesUnderflow     = errors.New("market: repayment exceeds total liabilities")
)

// BorrowExceedsLimitError reports the borrow limit a request would cross.
type BorrowExceedsLimitError struct {
	Limit num.Uint256
}

func (e *BorrowExceedsLimitError) Error() string {
	return fmt.Sprintf("%v: %s", ErrBorrowExceedsLimit, e.Limit)
}

func (e *BorrowExceedsLimitError) Is(target error) bool { return target == ErrBorrowExceedsLimit }
