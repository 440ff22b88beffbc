// Package address classifies raw address strings into a blockchain network
// and address subtype. Classification is pure and synchronous: same input
// always yields the same output, with zero network calls.
package address

import (
	"regexp"
	"strings"

	"satotrack/internal/domain/entity"
)

// Address subtypes within a network.
const (
	SubtypeLegacy = "legacy"
	SubtypeSegwit = "segwit"
	SubtypeBech32 = "bech32"
	SubtypeEVM    = "evm"
	SubtypeBase58 = "base58"
)

// Classification is the result of a successful network detection.
type Classification struct {
	// Address is the input with surrounding whitespace trimmed.
	Address string
	Network entity.Network
	Subtype string
}

var (
	btcLegacyRe = regexp.MustCompile(`^1[a-km-zA-HJ-NP-Z1-9]{25,34}$`)
	btcSegwitRe = regexp.MustCompile(`^3[a-km-zA-HJ-NP-Z1-9]{25,34}$`)
	btcBech32Re = regexp.MustCompile(`^bc1[a-z0-9]{25,89}$`)
	evmRe       = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	solanaRe    = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
)

// Classify maps a raw address string to a network and subtype, or reports
// that the string is not recognized. The checks run in a fixed order and the
// first match wins; order matters because the formats are not mutually
// exclusive at the regex level (a Bitcoin legacy address also satisfies the
// looser Solana pattern).
//
// All EVM-compatible chains (BSC, Polygon, Arbitrum, Optimism, Avalanche)
// share the same address format, so a 0x address is reported as Ethereum.
// The format alone cannot disambiguate the chain; this is an intentional,
// documented limitation.
func Classify(raw string) (Classification, bool) {
	addr := strings.TrimSpace(raw)
	if addr == "" {
		return Classification{}, false
	}

	switch {
	case btcLegacyRe.MatchString(addr):
		return Classification{Address: addr, Network: entity.NetworkBitcoin, Subtype: SubtypeLegacy}, true
	case btcSegwitRe.MatchString(addr):
		return Classification{Address: addr, Network: entity.NetworkBitcoin, Subtype: SubtypeSegwit}, true
	case btcBech32Re.MatchString(addr):
		return Classification{Address: addr, Network: entity.NetworkBitcoin, Subtype: SubtypeBech32}, true
	case evmRe.MatchString(addr):
		return Classification{Address: addr, Network: entity.NetworkEthereum, Subtype: SubtypeEVM}, true
	case solanaRe.MatchString(addr):
		// Bitcoin-shaped strings can slip through the Solana regex; the
		// leading-character guard keeps the ordering property intact even
		// for lengths the Bitcoin patterns rejected.
		if strings.HasPrefix(addr, "1") || strings.HasPrefix(addr, "3") {
			return Classification{}, false
		}
		return Classification{Address: addr, Network: entity.NetworkSolana, Subtype: SubtypeBase58}, true
	default:
		return Classification{}, false
	}
}
