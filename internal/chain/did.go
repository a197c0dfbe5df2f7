package chain

import (
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"strings"
)

// DIDMethod8004 is the method name of agent identifiers.
const DIDMethod8004 = "8004"

// maxUnescapeRounds bounds percent-decoding of DIDs that were encoded more than
// once on their way through the dashboard's URLs.
const maxUnescapeRounds = 3

// ErrInvalidDID is returned when a string is not a did:8004 identifier.
var ErrInvalidDID = errors.New("invalid did:8004")

// DID8004 identifies an agent token on a specific chain.
type DID8004 struct {
	ChainID int64
	AgentID BigInt
}

// String renders the canonical did:8004:<chainId>:<agentId> form.
func (d DID8004) String() string {
	return FormatDID8004(d.ChainID, d.AgentID)
}

// FormatDID8004 builds the identifier for agentID on chainID.
func FormatDID8004(chainID int64, agentID BigInt) string {
	return "did:" + DIDMethod8004 + ":" + strconv.FormatInt(chainID, 10) + ":" + agentID.String()
}

// ParseDID8004 parses raw, which may arrive percent-encoded from a path segment.
func ParseDID8004(raw string) (DID8004, error) {
	s := strings.TrimSpace(raw)
	for i := 0; i < maxUnescapeRounds && strings.Contains(s, "%"); i++ {
		decoded, err := url.PathUnescape(s)
		if err != nil {
			return DID8004{}, fmt.Errorf("%w: %v", ErrInvalidDID, err)
		}
		s = decoded
	}

	parts := strings.Split(s, ":")
	if len(parts) != 4 || parts[0] != "did" || parts[1] != DIDMethod8004 {
		return DID8004{}, fmt.Errorf("%w: expected did:8004:<chainId>:<agentId>, got %q", ErrInvalidDID, raw)
	}

	if !isDigits(parts[2]) {
		return DID8004{}, fmt.Errorf("%w: chain id %q is not a positive integer", ErrInvalidDID, parts[2])
	}
	chainID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || chainID <= 0 {
		return DID8004{}, fmt.Errorf("%w: chain id %q is not a positive integer", ErrInvalidDID, parts[2])
	}

	if !isDigits(parts[3]) {
		return DID8004{}, fmt.Errorf("%w: agent id %q is not a non-negative integer", ErrInvalidDID, parts[3])
	}
	agentID, ok := new(big.Int).SetString(parts[3], 10)
	if !ok || agentID.BitLen() > 256 {
		return DID8004{}, fmt.Errorf("%w: agent id %q out of range", ErrInvalidDID, parts[3])
	}

	return DID8004{ChainID: chainID, AgentID: BigInt{agentID}}, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
