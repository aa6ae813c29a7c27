package encoding

import (
	"github.com/holiman/uint256"

	"github.com/cerc-io/airdrop-trie-service/pkg/apperr"
)

// Amount is a U256 value, stored internally as a fixed 32-byte big-endian
// sequence; wire representation is a base-10 decimal string.
type Amount struct {
	v uint256.Int
}

// ParseAmount parses a base-10 decimal string into an Amount.
func ParseAmount(decimal string) (Amount, error) {
	var v uint256.Int
	if err := v.SetFromDecimal(decimal); err != nil {
		return Amount{}, apperr.Wrap(apperr.KindInvalidAmount, err, "amount is not a valid U256 decimal string")
	}
	return Amount{v: v}, nil
}

// AmountFromBytes32 decodes a fixed 32-byte big-endian representation.
func AmountFromBytes32(b [32]byte) Amount {
	var v uint256.Int
	v.SetBytes(b[:])
	return Amount{v: v}
}

// Bytes32 returns the fixed 32-byte big-endian representation.
func (a Amount) Bytes32() [32]byte {
	return a.v.Bytes32()
}

// String renders the amount as a base-10 decimal string for the wire
// boundary.
func (a Amount) String() string {
	return a.v.Dec()
}

// Equal reports whether two amounts carry the same value.
func (a Amount) Equal(other Amount) bool {
	return a.v.Eq(&other.v)
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.v.IsZero()
}
