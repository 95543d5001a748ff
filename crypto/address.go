package crypto

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is the bech32 human-readable part used for every account and
// contract address.
const AddressPrefix = "orai"

// AddressLength is the size of the canonical address form.
const AddressLength = 20

// Address is the canonical 20-byte form of an account or contract address.
// The zero value is the empty address.
type Address [AddressLength]byte

// NewAddress copies b into an Address.
func NewAddress(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressLength {
		return a, fmt.Errorf("address must be %d bytes long, got %d", AddressLength, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// MustNewAddress panics when b has the wrong length.
func MustNewAddress(b []byte) Address {
	a, err := NewAddress(b)
	if err != nil {
		panic(err)
	}
	return a
}

// ContractAddress derives the address of a contract instantiated by creator
// under label.
func ContractAddress(creator Address, label string) Address {
	hash := crypto.Keccak256([]byte("contract/"), creator[:], []byte(label))
	return MustNewAddress(hash[len(hash)-AddressLength:])
}

// AccountAddress derives a deterministic account address from a free-form
// name. Used for fixtures and genesis accounts that have no key.
func AccountAddress(name string) Address {
	hash := crypto.Keccak256([]byte("account/"), []byte(name))
	return MustNewAddress(hash[len(hash)-AddressLength:])
}

func (a Address) IsZero() bool { return a == Address{} }

func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a[:])
	return out
}

func (a Address) Hex() string { return hex.EncodeToString(a[:]) }

func (a Address) String() string {
	if a.IsZero() {
		return ""
	}
	conv, err := bech32.ConvertBits(a[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(AddressPrefix, conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// DecodeAddress parses a bech32 address carrying AddressPrefix.
func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(strings.TrimSpace(addrStr))
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	if prefix != AddressPrefix {
		return Address{}, fmt.Errorf("unexpected address prefix %q", prefix)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	return NewAddress(conv)
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*a = Address{}
		return nil
	}
	decoded, err := DecodeAddress(string(text))
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}

// MarshalJSON is implemented explicitly so that arrays are never emitted as
// JSON number lists.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return a.UnmarshalText([]byte(s))
}
