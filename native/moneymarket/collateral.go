package moneymarket

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"orchai/core/num"
	"orchai/crypto"
)

// ErrCollateralUnderflow is returned when subtracting more collateral than
// is held, or a token that is not held at all.
var ErrCollateralUnderflow = errors.New("collateral amount exceeds held amount")

// Collateral is a (token, amount) pair. On the wire it is a two element
// array: ["orai1...", "1000"].
type Collateral struct {
	Token  crypto.Address
	Amount num.Uint256
}

func (c Collateral) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{c.Token, c.Amount})
}

func (c *Collateral) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("collateral: %w", err)
	}
	if err := json.Unmarshal(pair[0], &c.Token); err != nil {
		return fmt.Errorf("collateral token: %w", err)
	}
	if err := json.Unmarshal(pair[1], &c.Amount); err != nil {
		return fmt.Errorf("collateral amount: %w", err)
	}
	return nil
}

func (c Collateral) String() string {
	return c.Amount.String() + c.Token.String()
}

// Collaterals is kept sorted by token address with at most one entry per
// token.
type Collaterals []Collateral

func (cs Collaterals) find(token crypto.Address) (int, bool) {
	i := sort.Search(len(cs), func(i int) bool { return bytes.Compare(cs[i].Token[:], token[:]) >= 0 })
	return i, i < len(cs) && cs[i].Token == token
}

// Normalize sorts cs, merges duplicate tokens and drops zero amounts.
func (cs Collaterals) Normalize() (Collaterals, error) {
	out := make(Collaterals, 0, len(cs))
	for _, c := range cs {
		var err error
		if out, err = out.addOne(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (cs Collaterals) addOne(c Collateral) (Collaterals, error) {
	if c.Amount.IsZero() {
		return cs, nil
	}
	i, ok := cs.find(c.Token)
	if ok {
		sum, err := cs[i].Amount.Add(c.Amount)
		if err != nil {
			return nil, err
		}
		cs[i].Amount = sum
		return cs, nil
	}
	cs = append(cs, Collateral{})
	copy(cs[i+1:], cs[i:])
	cs[i] = c
	return cs, nil
}

// Add returns cs plus other. Zero amounts in other are ignored.
func (cs Collaterals) Add(other Collaterals) (Collaterals, error) {
	out := append(Collaterals(nil), cs...)
	for _, c := range other {
		var err error
		if out, err = out.addOne(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Sub returns cs minus other, dropping entries that reach zero. It fails
// without modifying cs when any token is missing or insufficient.
func (cs Collaterals) Sub(other Collaterals) (Collaterals, error) {
	out := append(Collaterals(nil), cs...)
	for _, c := range other {
		i, ok := out.find(c.Token)
		if !ok {
			if c.Amount.IsZero() {
				continue
			}
			return nil, fmt.Errorf("%w: %s", ErrCollateralUnderflow, c.Token)
		}
		rest, err := out[i].Amount.Sub(c.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrCollateralUnderflow, c.Token)
		}
		if rest.IsZero() {
			out = append(out[:i], out[i+1:]...)
			continue
		}
		out[i].Amount = rest
	}
	return out, nil
}

// Amount returns the amount held for token.
func (cs Collaterals) Amount(token crypto.Address) num.Uint256 {
	if i, ok := cs.find(token); ok {
		return cs[i].Amount
	}
	return num.ZeroUint()
}
