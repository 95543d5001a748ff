package num

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// DecimalPlaces is the number of fractional digits carried by Decimal.
const DecimalPlaces = 18

var fractional = uint256.NewInt(1_000_000_000_000_000_000)

// Decimal is an unsigned fixed point number with 18 fractional digits backed
// by a 256-bit integer. Multiplication and division truncate toward zero.
type Decimal struct {
	v uint256.Int
}

// ZeroDec returns 0.
func ZeroDec() Decimal { return Decimal{} }

// OneDec returns 1.
func OneDec() Decimal { return Decimal{v: *fractional} }

// NewDec returns the whole number x.
func NewDec(x uint64) Decimal {
	var d Decimal
	d.v.Mul(uint256.NewInt(x), fractional)
	return d
}

// NewDecFromUint returns u as a fixed point value.
func NewDecFromUint(u Uint256) (Decimal, error) {
	var d Decimal
	if _, overflow := d.v.MulOverflow(&u.v, fractional); overflow {
		return Decimal{}, ErrOverflow
	}
	return d, nil
}

// MustDecFromRatio returns num/den and panics when den is zero.
func MustDecFromRatio(numerator, denominator uint64) Decimal {
	if denominator == 0 {
		panic(ErrDivideByZero)
	}
	var d Decimal
	d.v.MulDivOverflow(uint256.NewInt(numerator), fractional, uint256.NewInt(denominator))
	return d
}

// ParseDec parses a non-negative decimal string such as "0.05". More than 18
// fractional digits are rejected rather than rounded.
func ParseDec(s string) (Decimal, error) {
	parsed, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("%w: %q: %v", ErrInvalidNumber, s, err)
	}
	if parsed.IsNegative() {
		return Decimal{}, fmt.Errorf("%w: %q is negative", ErrInvalidNumber, s)
	}
	if parsed.Exponent() < -DecimalPlaces {
		return Decimal{}, fmt.Errorf("%w: %q has more than %d fractional digits", ErrInvalidNumber, s, DecimalPlaces)
	}
	raw := parsed.Shift(DecimalPlaces).BigInt()
	v, overflow := uint256.FromBig(raw)
	if overflow {
		return Decimal{}, ErrOverflow
	}
	return Decimal{v: *v}, nil
}

// MustDec parses s and panics on failure. Intended for constants and tests.
func MustDec(s string) Decimal {
	d, err := ParseDec(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Decimal) IsZero() bool { return d.v.IsZero() }

func (d Decimal) Cmp(o Decimal) int { return d.v.Cmp(&o.v) }

func (d Decimal) Equal(o Decimal) bool { return d.v.Eq(&o.v) }

func (d Decimal) Lt(o Decimal) bool { return d.v.Lt(&o.v) }

func (d Decimal) Gt(o Decimal) bool { return d.v.Gt(&o.v) }

func (d Decimal) Lte(o Decimal) bool { return !d.v.Gt(&o.v) }

func (d Decimal) Gte(o Decimal) bool { return !d.v.Lt(&o.v) }

func (d Decimal) Add(o Decimal) (Decimal, error) {
	var out Decimal
	if _, overflow := out.v.AddOverflow(&d.v, &o.v); overflow {
		return Decimal{}, ErrOverflow
	}
	return out, nil
}

func (d Decimal) Sub(o Decimal) (Decimal, error) {
	var out Decimal
	if _, underflow := out.v.SubOverflow(&d.v, &o.v); underflow {
		return Decimal{}, ErrUnderflow
	}
	return out, nil
}

// Mul returns d*o truncated to 18 fractional digits.
func (d Decimal) Mul(o Decimal) (Decimal, error) {
	var out Decimal
	if _, overflow := out.v.MulDivOverflow(&d.v, &o.v, fractional); overflow {
		return Decimal{}, ErrOverflow
	}
	return out, nil
}

// Quo returns d/o truncated to 18 fractional digits.
func (d Decimal) Quo(o Decimal) (Decimal, error) {
	if o.v.IsZero() {
		return Decimal{}, ErrDivideByZero
	}
	var out Decimal
	if _, overflow := out.v.MulDivOverflow(&d.v, fractional, &o.v); overflow {
		return Decimal{}, ErrOverflow
	}
	return out, nil
}

// MulUint returns floor(d * u) as an integer.
func (d Decimal) MulUint(u Uint256) (Uint256, error) {
	return u.MulDec(d)
}

// Floor drops the fractional part.
func (d Decimal) Floor() Uint256 {
	var out Uint256
	out.v.Div(&d.v, fractional)
	return out
}

// Big returns the value as an exact rational.
func (d Decimal) Big() *big.Rat {
	return new(big.Rat).SetFrac(d.v.ToBig(), fractional.ToBig())
}

// Std converts the value into a shopspring decimal for display math.
func (d Decimal) Std() decimal.Decimal {
	return decimal.NewFromBigInt(d.v.ToBig(), -DecimalPlaces)
}

// String renders the shortest exact representation, e.g. "1.5".
func (d Decimal) String() string {
	return d.Std().String()
}

// MinDec returns the smaller operand.
func MinDec(a, b Decimal) Decimal {
	if a.Lt(b) {
		return a
	}
	return b
}

// MaxDec returns the larger operand.
func MaxDec(a, b Decimal) Decimal {
	if a.Gt(b) {
		return a
	}
	return b
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Decimal) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if raw == "null" {
		*d = Decimal{}
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	parsed, err := ParseDec(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// EncodeRLP stores the raw scaled integer.
func (d *Decimal) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, d.v.ToBig())
}

func (d *Decimal) DecodeRLP(s *rlp.Stream) error {
	b, err := s.BigInt()
	if err != nil {
		return err
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return ErrOverflow
	}
	d.v = *v
	return nil
}
