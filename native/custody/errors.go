package custody

import (
	"errors"
	"fmt"

	"orchai/core/num"
)

var (
	ErrWithdrawAmountExceedsSpendable = errors.New("custody: withdraw amount cannot exceed the user's spendable amount")
	ErrLockAmountExceedsSpendable     = errors.New("custody: lock amount cannot exceed the user's spendable amount")
	ErrUnlockAmountExceedsLocked      = errors.New("custody: unlock amount cannot exceed locked amount")
	ErrLiquidationAmountExceedsLocked = errors.New("custody: liquidation amount cannot exceed locked amount")
	ErrMissingHook                    = errors.New("custody: receive message carries no custody hook")
	ErrZeroAmount                     = errors.New("custody: amount must be positive")
)

// AmountError reports the available amount an operation exceeded. It
// matches its sentinel with errors.Is.
type AmountError struct {
	Kind      error
	Available num.Uint256
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Available)
}

func (e *AmountError) Is(target error) bool { return target == e.Kind }

func exceeds(kind error, available num.Uint256) error {
	return &AmountError{Kind: kind, Available: available}
}
