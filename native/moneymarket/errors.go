package moneymarket

import (
	"errors"

	"orchai/native/common"
)

// ErrUnauthorized is shared by every contract for sender checks.
var ErrUnauthorized = common.ErrUnauthorized

var (
	ErrUnknownMessage = errors.New("unknown message")
	ErrPriceTooOld    = errors.New("price is too old")
)
