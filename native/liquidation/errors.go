package liquidation

import (
	"errors"
	"fmt"

	"orchai/core/num"
)

var (
	ErrPremiumExceedsMax      = errors.New("liquidation: premium rate cannot exceed the max premium rate")
	ErrAlreadyBid             = errors.New("liquidation: user already has bid for specified collateral")
	ErrNoBid                  = errors.New("liquidation: no bids with the specified information exist")
	ErrRetractExceedsBid      = errors.New("liquidation: retract amount cannot exceed bid balance")
	ErrInsufficientBidBalance = errors.New("liquidation: insufficient bid balance")
	ErrZeroBid                = errors.New("liquidation: bid amount must be greater than 0")
	ErrMissingHook            = errors.New("liquidation: receive message carries no liquidation hook")
	ErrInvalidSafeRatio       = errors.New("liquidation: safe ratio must not exceed one")
)

// BalanceError reports the bid balance an operation exceeded.
type BalanceError struct {
	Kind    error
	Balance num.Uint256
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Balance)
}

func (e *BalanceError) Is(target error) bool { return target == e.Kind }
