package chain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// BigInt carries a uint256-sized value. It marshals to a JSON decimal string
// so browser clients never round it through float64.
type BigInt struct {
	*big.Int
}

// NewBigInt wraps x.
func NewBigInt(x int64) BigInt {
	return BigInt{big.NewInt(x)}
}

// ParseBigInt accepts a decimal string or a 0x-prefixed hex string.
func ParseBigInt(s string) (BigInt, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return BigInt{}, fmt.Errorf("empty integer")
	}
	base := 10
	digits := s
	if hasHexPrefix(s) {
		base = 16
		digits = s[2:]
	}
	if digits == "" {
		return BigInt{}, fmt.Errorf("invalid integer %q", s)
	}
	v, ok := new(big.Int).SetString(digits, base)
	if !ok || v.Sign() < 0 {
		return BigInt{}, fmt.Errorf("invalid integer %q", s)
	}
	return BigInt{v}, nil
}

// IsNil reports whether no value is set.
func (b BigInt) IsNil() bool {
	return b.Int == nil
}

// String returns the decimal form, "0" when unset.
func (b BigInt) String() string {
	if b.Int == nil {
		return "0"
	}
	return b.Int.String()
}

// Equal compares the numeric values; two unset values are equal.
func (b BigInt) Equal(o BigInt) bool {
	if b.Int == nil || o.Int == nil {
		return b.Int == nil && o.Int == nil
	}
	return b.Int.Cmp(o.Int) == 0
}

// MarshalJSON encodes the value as a quoted decimal, or null when unset.
func (b BigInt) MarshalJSON() ([]byte, error) {
	if b.Int == nil {
		return []byte("null"), nil
	}
	return json.Marshal(b.Int.String())
}

// UnmarshalJSON accepts null, a JSON number, or a decimal/hex string.
func (b *BigInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		b.Int = nil
		return nil
	}
	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decode big integer: %w", err)
		}
	} else {
		raw = string(data)
	}
	v, err := ParseBigInt(raw)
	if err != nil {
		return err
	}
	b.Int = v.Int
	return nil
}
