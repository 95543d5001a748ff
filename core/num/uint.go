// Package num provides the checked 256-bit integer and 18-digit fixed point
// decimal types used by every money-market contract. All arithmetic fails
// closed: overflow, underflow and division by zero are returned as errors.
package num

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

var (
	ErrOverflow      = errors.New("num: overflow")
	ErrUnderflow     = errors.New("num: underflow")
	ErrDivideByZero  = errors.New("num: divide by zero")
	ErrInvalidNumber = errors.New("num: invalid number")
)

// Uint256 is an unsigned 256-bit integer with value semantics.
type Uint256 struct {
	v uint256.Int
}

// NewUint wraps a uint64.
func NewUint(x uint64) Uint256 {
	var u Uint256
	u.v.SetUint64(x)
	return u
}

// ZeroUint returns 0.
func ZeroUint() Uint256 { return Uint256{} }

// ParseUint parses a base-10 string.
func ParseUint(s string) (Uint256, error) {
	var u Uint256
	if s == "" {
		return u, fmt.Errorf("%w: empty string", ErrInvalidNumber)
	}
	if err := u.v.SetFromDecimal(s); err != nil {
		return Uint256{}, fmt.Errorf("%w: %q: %v", ErrInvalidNumber, s, err)
	}
	return u, nil
}

// MustUint parses s and panics on failure. Intended for constants and tests.
func MustUint(s string) Uint256 {
	u, err := ParseUint(s)
	if err != nil {
		panic(err)
	}
	return u
}

// UintFromBig converts a non-negative big integer.
func UintFromBig(b *big.Int) (Uint256, error) {
	if b == nil {
		return Uint256{}, nil
	}
	if b.Sign() < 0 {
		return Uint256{}, ErrUnderflow
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return Uint256{}, ErrOverflow
	}
	return Uint256{v: *v}, nil
}

func (u Uint256) IsZero() bool { return u.v.IsZero() }

func (u Uint256) Cmp(o Uint256) int { return u.v.Cmp(&o.v) }

func (u Uint256) Equal(o Uint256) bool { return u.v.Eq(&o.v) }

func (u Uint256) Lt(o Uint256) bool { return u.v.Lt(&o.v) }

func (u Uint256) Gt(o Uint256) bool { return u.v.Gt(&o.v) }

func (u Uint256) Lte(o Uint256) bool { return !u.v.Gt(&o.v) }

func (u Uint256) Gte(o Uint256) bool { return !u.v.Lt(&o.v) }

func (u Uint256) Add(o Uint256) (Uint256, error) {
	var out Uint256
	if _, overflow := out.v.AddOverflow(&u.v, &o.v); overflow {
		return Uint256{}, ErrOverflow
	}
	return out, nil
}

func (u Uint256) Sub(o Uint256) (Uint256, error) {
	var out Uint256
	if _, underflow := out.v.SubOverflow(&u.v, &o.v); underflow {
		return Uint256{}, ErrUnderflow
	}
	return out, nil
}

func (u Uint256) Mul(o Uint256) (Uint256, error) {
	var out Uint256
	if _, overflow := out.v.MulOverflow(&u.v, &o.v); overflow {
		return Uint256{}, ErrOverflow
	}
	return out, nil
}

// Quo is truncating integer division.
func (u Uint256) Quo(o Uint256) (Uint256, error) {
	if o.v.IsZero() {
		return Uint256{}, ErrDivideByZero
	}
	var out Uint256
	out.v.Div(&u.v, &o.v)
	return out, nil
}

// MulDec returns floor(u * d).
func (u Uint256) MulDec(d Decimal) (Uint256, error) {
	var out Uint256
	if _, overflow := out.v.MulDivOverflow(&u.v, &d.v, fractional); overflow {
		return Uint256{}, ErrOverflow
	}
	return out, nil
}

// QuoDec returns floor(u / d).
func (u Uint256) QuoDec(d Decimal) (Uint256, error) {
	if d.v.IsZero() {
		return Uint256{}, ErrDivideByZero
	}
	var out Uint256
	if _, overflow := out.v.MulDivOverflow(&u.v, fractional, &d.v); overflow {
		return Uint256{}, ErrOverflow
	}
	return out, nil
}

// Decimal converts u into a fixed point value.
func (u Uint256) Decimal() (Decimal, error) {
	return NewDecFromUint(u)
}

// Uint64 returns the value and whether it fits into 64 bits.
func (u Uint256) Uint64() (uint64, bool) {
	return u.v.Uint64(), u.v.IsUint64()
}

func (u Uint256) Big() *big.Int { return u.v.ToBig() }

func (u Uint256) String() string { return u.v.Dec() }

// MinUint returns the smaller operand.
func MinUint(a, b Uint256) Uint256 {
	if a.Lt(b) {
		return a
	}
	return b
}

// MarshalJSON encodes the value as a quoted decimal string.
func (u Uint256) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.v.Dec())
}

// UnmarshalJSON accepts a quoted decimal string or a bare JSON number.
func (u *Uint256) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if raw == "null" {
		*u = Uint256{}
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	parsed, err := ParseUint(raw)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// EncodeRLP implements rlp.Encoder.
func (u *Uint256) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, u.v.ToBig())
}

// DecodeRLP implements rlp.Decoder.
func (u *Uint256) DecodeRLP(s *rlp.Stream) error {
	b, err := s.BigInt()
	if err != nil {
		return err
	}
	parsed, err := UintFromBig(b)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
