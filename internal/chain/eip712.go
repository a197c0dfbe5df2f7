package chain

import "math/big"

// TypedDataDigest is keccak256(0x19 0x01 || domainSeparator || structHash).
func TypedDataDigest(domainSeparator, structHash []byte) []byte {
	return Keccak256([]byte{0x19, 0x01}, domainSeparator, structHash)
}

// DomainSeparator hashes an EIP712Domain(string name,string version) domain.
func DomainSeparator(name, version string) []byte {
	typeHash := Keccak256([]byte("EIP712Domain(string name,string version)"))
	return Keccak256(typeHash, Keccak256([]byte(name)), Keccak256([]byte(version)))
}

// Word left-pads v into a 32-byte ABI word.
func Word(v uint64) []byte {
	out := make([]byte, 32)
	new(big.Int).SetUint64(v).FillBytes(out)
	return out
}

// FixedBytesWord right-pads a bytesN value into a 32-byte ABI word.
func FixedBytesWord(b []byte) []byte {
	out := make([]byte, 32)
	copy(out, b)
	return out
}
