package chain

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
)

// ERC-7930 interoperable address header values for EVM chains.
const (
	InteropVersion1  uint16 = 0x0001
	ChainTypeEIP155  uint16 = 0x0000
	evmAddressLength        = 20
)

// ErrInvalidInteropAddress is returned when an ERC-7930 payload cannot be decoded.
var ErrInvalidInteropAddress = errors.New("invalid interoperable address")

// InteropAddress is a decoded ERC-7930 EVM address.
type InteropAddress struct {
	ChainID int64
	Address string
}

// EncodeEvmV1 packs address on chainID into the ERC-7930 v1 binary layout:
// version(2) | chainType(2) | chainRefLen(1) | chainRef | addrLen(1) | address.
// chainID 0 yields an empty chain reference.
func EncodeEvmV1(chainID int64, address string) ([]byte, error) {
	if chainID < 0 {
		return nil, fmt.Errorf("%w: negative chain id %d", ErrInvalidInteropAddress, chainID)
	}
	addr, err := AddressBytes(address)
	if err != nil {
		return nil, err
	}
	chainRef := big.NewInt(chainID).Bytes()

	out := make([]byte, 0, 6+len(chainRef)+len(addr))
	out = binary.BigEndian.AppendUint16(out, InteropVersion1)
	out = binary.BigEndian.AppendUint16(out, ChainTypeEIP155)
	out = append(out, byte(len(chainRef)))
	out = append(out, chainRef...)
	out = append(out, byte(len(addr)))
	out = append(out, addr...)
	return out, nil
}

// FormatEvmV1 returns the 0x-prefixed hex of EncodeEvmV1.
func FormatEvmV1(chainID int64, address string) (string, error) {
	b, err := EncodeEvmV1(chainID, address)
	if err != nil {
		return "", err
	}
	return EncodeHex(b), nil
}

// ParseEvmV1 decodes a hex ERC-7930 payload carrying an EVM address.
func ParseEvmV1(s string) (InteropAddress, error) {
	b, err := DecodeHex(s)
	if err != nil {
		return InteropAddress{}, fmt.Errorf("%w: %v", ErrInvalidInteropAddress, err)
	}
	return DecodeEvmV1(b)
}

// DecodeEvmV1 is the binary counterpart of ParseEvmV1.
func DecodeEvmV1(b []byte) (InteropAddress, error) {
	if len(b) < 6 {
		return InteropAddress{}, fmt.Errorf("%w: %d bytes is shorter than the header", ErrInvalidInteropAddress, len(b))
	}
	if v := binary.BigEndian.Uint16(b[0:2]); v != InteropVersion1 {
		return InteropAddress{}, fmt.Errorf("%w: unsupported version 0x%04x", ErrInvalidInteropAddress, v)
	}
	if ct := binary.BigEndian.Uint16(b[2:4]); ct != ChainTypeEIP155 {
		return InteropAddress{}, fmt.Errorf("%w: chain type 0x%04x is not eip155", ErrInvalidInteropAddress, ct)
	}

	refLen := int(b[4])
	pos := 5
	if len(b) < pos+refLen+1 {
		return InteropAddress{}, fmt.Errorf("%w: truncated chain reference", ErrInvalidInteropAddress)
	}
	ref := new(big.Int).SetBytes(b[pos : pos+refLen])
	if !ref.IsInt64() {
		return InteropAddress{}, fmt.Errorf("%w: chain reference overflows int64", ErrInvalidInteropAddress)
	}
	pos += refLen

	addrLen := int(b[pos])
	pos++
	if addrLen != evmAddressLength {
		return InteropAddress{}, fmt.Errorf("%w: address length %d, want %d", ErrInvalidInteropAddress, addrLen, evmAddressLength)
	}
	if len(b) != pos+addrLen {
		return InteropAddress{}, fmt.Errorf("%w: payload is %d bytes, want %d", ErrInvalidInteropAddress, len(b), pos+addrLen)
	}

	addr, err := ChecksumAddress(EncodeHex(b[pos:]))
	if err != nil {
		return InteropAddress{}, fmt.Errorf("%w: %v", ErrInvalidInteropAddress, err)
	}
	return InteropAddress{ChainID: ref.Int64(), Address: addr}, nil
}
