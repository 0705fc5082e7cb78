package membership

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateAddress(t *testing.T) {
	a1, err := GenerateAddress()
	require.NoError(t, err)
	require.Len(t, string(a1), AddressSize)

	a2, err := GenerateAddress()
	require.NoError(t, err)
	require.NotEqual(t, a1, a2)
}

func TestAddress_HexRoundTrip(t *testing.T) {
	addr, err := GenerateAddress()
	require.NoError(t, err)

	h := addr.Hex()
	require.Len(t, h, AddressSize*2)

	parsed, err := ParseAddress(h)
	require.NoError(t, err)
	require.Equal(t, addr, parsed)
}

func TestParseAddress_BadInput(t *testing.T) {
	_, err := ParseAddress("zz")
	require.Error(t, err)

	_, err = ParseAddress("ab")
	require.Error(t, err)
}
