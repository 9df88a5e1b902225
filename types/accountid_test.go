package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountIdMetadataBits(t *testing.T) {
	tests := []struct {
		name    string
		typ     AccountType
		mode    StorageMode
		version uint8
	}{
		{"private regular immutable", AccountTypeRegularImmutable, StoragePrivate, 0},
		{"public regular updatable", AccountTypeRegularUpdatable, StoragePublic, 1},
		{"public fungible faucet", AccountTypeFungibleFaucet, StoragePublic, 3},
		{"private non fungible faucet", AccountTypeNonFungibleFaucet, StoragePrivate, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := NewAccountId(0xdeadbeefcafef00d, 0x0123456789abcdef, tt.typ, tt.mode, tt.version)
			assert.Equal(t, tt.typ, id.Type())
			assert.Equal(t, tt.mode, id.StorageMode())
			assert.Equal(t, tt.version, id.Version())
			assert.Equal(t, tt.typ.IsFaucet(), id.IsFaucet())
		})
	}
}

func TestAccountIdHexRoundTrip(t *testing.T) {
	id := NewAccountId(0x1234567890abcdef, 0x5678000000000001, AccountTypeRegularImmutable, StoragePublic, 0)

	s := id.Hex()
	require.Len(t, s, 2+32)
	assert.Equal(t, "0x", s[:2])

	decoded, err := AccountIdFromHex(s)
	require.NoError(t, err)
	assert.Equal(t, id, decoded)

	_, err = AccountIdFromHex("1234")
	assert.ErrorIs(t, err, ErrMalformedAccountId)
	_, err = AccountIdFromHex("0x1234")
	assert.ErrorIs(t, err, ErrMalformedAccountId)
}

func TestAccountIdBech32RoundTrip(t *testing.T) {
	id := NewAccountId(0x1234aabbccddeeff, 0x5678112233445566, AccountTypeRegularUpdatable, StoragePrivate, 2)
	addr := NewAddress(id, NetworkMainnet)

	encoded, err := addr.Bech32()
	require.NoError(t, err)
	assert.Equal(t, "mm1", encoded[:3])

	decoded, err := AddressFromBech32(encoded)
	require.NoError(t, err)
	assert.Equal(t, id, decoded.Id)
	assert.Equal(t, NetworkMainnet, decoded.Network)
}

func TestAccountIdBech32CustomPrefix(t *testing.T) {
	id := NewAccountId(0x1234aabbccddeeff, 0x5678112233445566, AccountTypeRegularImmutable, StoragePrivate, 0)

	// A mainnet bound address refuses re-encoding under a different
	// prefix.
	addr := NewAddress(id, NetworkMainnet)
	_, err := addr.Bech32Custom("foo")
	assert.ErrorIs(t, err, ErrNetworkMismatch)

	// The same prefix is fine.
	encoded, err := addr.Bech32Custom("mm")
	require.NoError(t, err)
	decoded, err := AddressFromBech32(encoded)
	require.NoError(t, err)
	assert.Equal(t, id, decoded.Id)

	// A custom network round trips under its own prefix.
	custom := NewAddress(id, NetworkId("foo"))
	encoded, err = custom.Bech32()
	require.NoError(t, err)
	decoded, err = AddressFromBech32(encoded)
	require.NoError(t, err)
	assert.Equal(t, NetworkId("foo"), decoded.Network)
	assert.Equal(t, id, decoded.Id)
}

func TestNetworkIds(t *testing.T) {
	assert.True(t, NetworkMainnet.IsKnown())
	assert.True(t, NetworkTestnet.IsKnown())
	assert.True(t, NetworkDevnet.IsKnown())
	assert.False(t, NetworkId("foo").IsKnown())
}
