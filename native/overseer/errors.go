package overseer

import (
	"errors"
	"fmt"

	"orchai/core/num"
)

var (
	ErrTokenAlreadyRegistered  = errors.New("overseer: token is already registered as collateral")
	ErrNotWhitelisted          = errors.New("overseer: token is not registered as collateral")
	ErrUnlockExceedsLocked     = errors.New("overseer: unlock amount cannot exceed locked amount")
	ErrUnlockTooLarge          = errors.New("overseer: unlock amount too high; loan liability becomes greater than borrow limit")
	ErrCannotLiquidateSafeLoan = errors.New("overseer: cannot liquidate safely collateralized loan")
	ErrEpochNotPassed          = errors.New("overseer: epoch period has not passed")
	ErrMissingHook             = errors.New("overseer: receive message carries no overseer hook")
	ErrInvalidMaxLtv           = errors.New("overseer: max ltv must be below one")
)

// UnlockTooLargeError carries the borrow limit the remaining collateral
// would support.
type UnlockTooLargeError struct {
	Limit num.Uint256
}

func (e *UnlockTooLargeError) Error() string {
	return fmt.Sprintf("%v: %s", ErrUnlockTooLarge, e.Limit)
}

func (e *UnlockTooLargeError) Is(target error) bool { return target == ErrUnlockTooLarge }

// EpochNotPassedError carries the height of the last epoch operation.
type EpochNotPassedError struct {
	LastExecutedHeight uint64
}

func (e *EpochNotPassedError) Error() string {
	return fmt.Sprintf("%v: last executed at %d", ErrEpochNotPassed, e.LastExecutedHeight)
}

func (e *EpochNotPassedError) Is(target error) bool { return target == ErrEpochNotPassed }
