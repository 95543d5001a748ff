package common

import (
	"errors"
	"fmt"

	"orchai/crypto"
)

// ErrUnauthorized is returned when a message arrives from a sender that is
// not allowed to invoke the handler.
var ErrUnauthorized = errors.New("unauthorized")

// Guard reports ErrUnauthorized unless sender is one of allowed.
func Guard(sender crypto.Address, allowed ...crypto.Address) error {
	for _, addr := range allowed {
		if !addr.IsZero() && addr == sender {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnauthorized, sender)
}
