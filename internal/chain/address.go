package chain

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ZeroAddress is the all-zero EVM address.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// ErrInvalidAddress is returned for strings that are not 20-byte hex addresses.
var ErrInvalidAddress = errors.New("invalid address")

// IsAddress reports whether s is a 0x-prefixed, 40 hex digit address.
// Case is not checked against the EIP-55 checksum.
func IsAddress(s string) bool {
	if len(s) != 42 || !hasHexPrefix(s) {
		return false
	}
	_, err := hex.DecodeString(s[2:])
	return err == nil
}

// IsZeroAddress reports whether s is a well-formed address made of zero bytes.
func IsZeroAddress(s string) bool {
	return IsAddress(s) && strings.EqualFold(s, ZeroAddress)
}

// NormalizeAddress returns the lowercase form used for keys and comparisons.
func NormalizeAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !IsAddress(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return "0x" + strings.ToLower(s[2:]), nil
}

// ChecksumAddress returns the EIP-55 mixed-case form of s.
func ChecksumAddress(s string) (string, error) {
	lower, err := NormalizeAddress(s)
	if err != nil {
		return "", err
	}
	digits := lower[2:]
	hash := Keccak256([]byte(digits))

	out := make([]byte, 0, 42)
	out = append(out, '0', 'x')
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		if c >= 'a' && c <= 'f' {
			// high nibble for even positions, low nibble for odd
			nibble := hash[i/2]
			if i%2 == 0 {
				nibble >>= 4
			}
			if nibble&0x0f >= 8 {
				c -= 'a' - 'A'
			}
		}
		out = append(out, c)
	}
	return string(out), nil
}

// AddressBytes decodes a hex address into its 20 raw bytes.
func AddressBytes(s string) ([]byte, error) {
	lower, err := NormalizeAddress(s)
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(lower[2:])
}

// Keccak256 hashes the concatenation of data with legacy Keccak-256.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		h.Write(b)
	}
	return h.Sum(nil)
}

// DecodeHex decodes a 0x-prefixed hex string. The empty payload "0x" is valid.
func DecodeHex(s string) ([]byte, error) {
	if !hasHexPrefix(s) {
		return nil, fmt.Errorf("hex string %q lacks 0x prefix", s)
	}
	body := s[2:]
	if len(body)%2 == 1 {
		return nil, fmt.Errorf("hex string %q has odd length", s)
	}
	b, err := hex.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return b, nil
}

// EncodeHex returns the 0x-prefixed lowercase hex of b.
func EncodeHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// IsBytes32 reports whether s is a 0x-prefixed 32-byte hex value.
func IsBytes32(s string) bool {
	if len(s) != 66 {
		return false
	}
	_, err := DecodeHex(s)
	return err == nil
}

func hasHexPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
