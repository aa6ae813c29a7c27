package encoding

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToChecksum(t *testing.T) {
	addr, err := ParseAddress("0x742c4d97c86bcf0176776c16e073b8c6f9db4021")
	require.NoError(t, err)
	assert.Equal(t, "0x742C4d97c86BcF0176776c16e073b8c6f9DB4021", ToChecksum(addr))
}

func TestParseAddressRejectsShort(t *testing.T) {
	_, err := ParseAddress("0x1234")
	require.Error(t, err)
}

func TestParseAmountRoundTrip(t *testing.T) {
	amt, err := ParseAmount("1000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", amt.String())

	b := amt.Bytes32()
	assert.True(t, AmountFromBytes32(b).Equal(amt))
}

func TestLeafHashBinaryAddress(t *testing.T) {
	addr, err := ParseAddress("0x742C4d97C86bCF0176776C16e073b8c6f9Db4021")
	require.NoError(t, err)
	amt, err := ParseAmount("1000000000000000000")
	require.NoError(t, err)

	leaf := LeafHash(BinaryAddress, Entry{Address: addr, Amount: amt})
	// packed = 20 address bytes || 32 amount bytes = 52 bytes
	packed := Pack(BinaryAddress, Entry{Address: addr, Amount: amt})
	assert.Len(t, packed, 52)
	assert.NotEqual(t, [32]byte{}, leaf)
}

func TestLeafHashHexPrefixAddressLength(t *testing.T) {
	addr, err := ParseAddress("0x742C4d97C86bCF0176776C16e073b8c6f9Db4021")
	require.NoError(t, err)
	amt, err := ParseAmount("1")
	require.NoError(t, err)

	packed := Pack(HexPrefixAddress, Entry{Address: addr, Amount: amt})
	assert.Len(t, packed, 74)
	assert.Equal(t, "0x742c4d97c86bcf0176776c16e073b8c6f9db4021", string(packed[:42]))
}

func TestLeafHashDiffersByMode(t *testing.T) {
	addr, err := ParseAddress("0x742C4d97C86bCF0176776C16e073b8c6f9Db4021")
	require.NoError(t, err)
	amt, err := ParseAmount("500000000000000000")
	require.NoError(t, err)

	h1 := LeafHash(BinaryAddress, Entry{Address: addr, Amount: amt})
	h2 := LeafHash(HexPrefixAddress, Entry{Address: addr, Amount: amt})
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, 32, len(hex.EncodeToString(h1[:]))/2)
}
