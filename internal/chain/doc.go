// Package chain holds the identifier formats the trust API speaks on the wire:
// EVM addresses, did:8004 agent identifiers, ERC-7930 interoperable addresses
// and big integers carried as JSON strings.
package chain
