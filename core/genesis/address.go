package genesis

import (
	"fmt"
	"strings"

	"orchai/crypto"
)

// ParseAccount resolves a genesis account reference: either a bech32 address
// or "@name", the development account derived by crypto.AccountAddress.
func ParseAccount(ref string) (crypto.Address, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return crypto.Address{}, fmt.Errorf("account must be provided")
	}
	if name, ok := strings.CutPrefix(trimmed, "@"); ok {
		if strings.TrimSpace(name) == "" {
			return crypto.Address{}, fmt.Errorf("account alias must be named")
		}
		return crypto.AccountAddress(name), nil
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("decode account %q: %w", trimmed, err)
	}
	return addr, nil
}
