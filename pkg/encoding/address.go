package encoding

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/cerc-io/airdrop-trie-service/pkg/apperr"
)

// Address is the 20-byte raw form of an Ethereum-style address. Equality is
// always computed over these bytes; casing is a display concern only.
type Address = common.Address

// ParseAddress decodes a hex address in any casing (with or without a 0x
// prefix) into its raw 20-byte form. EIP-55 checksums are not validated: a
// mixed-case input with a wrong checksum is accepted like any other casing.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if len(s) != 40 {
		return Address{}, apperr.New(apperr.KindInvalidAddress, "address must be 20 bytes (40 hex characters)")
	}
	if !common.IsHexAddress(s) {
		return Address{}, apperr.New(apperr.KindInvalidAddress, "address is not valid hex")
	}
	return common.HexToAddress(s), nil
}

// ToChecksum renders addr in EIP-55 mixed-case checksum form, used at the
// external JSON boundary.
func ToChecksum(addr Address) string {
	return toChecksumAddress(strings.ToLower(strings.TrimPrefix(addr.Hex(), "0x")))
}

// toChecksumAddress implements EIP-55: capitalize each hex character of the
// lowercase address iff the corresponding nibble of
// keccak256(ascii(lowercase_address_without_0x)) is >= 8.
func toChecksumAddress(lowerNoPrefix string) string {
	hash := crypto.Keccak256([]byte(lowerNoPrefix))
	var b strings.Builder
	b.WriteString("0x")
	for i, ch := range lowerNoPrefix {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
			continue
		}
		// nibble i of hash: even index -> high nibble, odd index -> low nibble
		byteVal := hash[i/2]
		var nibble byte
		if i%2 == 0 {
			nibble = byteVal >> 4
		} else {
			nibble = byteVal & 0x0f
		}
		if nibble >= 8 {
			b.WriteRune(ch - ('a' - 'A'))
		} else {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// NormalizeLower returns the lowercase 0x-prefixed hex form of addr, used as
// a stable map key.
func NormalizeLower(addr Address) string {
	return strings.ToLower(addr.Hex())
}
