package types

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

var (
	ErrMalformedAccountId = errors.New("malformed account id")
	ErrNetworkMismatch    = errors.New("account address network mismatch")
)

// AccountType discriminates regular accounts from faucets.
type AccountType uint8

const (
	AccountTypeRegularImmutable  AccountType = 0
	AccountTypeRegularUpdatable  AccountType = 1
	AccountTypeFungibleFaucet    AccountType = 2
	AccountTypeNonFungibleFaucet AccountType = 3
)

// IsFaucet reports whether the type is one of the faucet variants.
func (t AccountType) IsFaucet() bool { return t >= AccountTypeFungibleFaucet }

// StorageMode distinguishes accounts whose full state lives on chain from
// accounts that only publish a commitment.
type StorageMode uint8

const (
	StoragePrivate StorageMode = 0
	StoragePublic  StorageMode = 1
)

// Account id metadata is packed into the low byte of the prefix element:
//
//	bits 0-1  account type
//	bit  2    storage mode (set = public)
//	bits 4-7  id version
const (
	accountTypeMask     = 0b0000_0011
	storageModeBit      = 0b0000_0100
	accountVersionShift = 4
)

// AccountId identifies an account as a (prefix, suffix) element pair. The
// prefix carries the type, storage mode and version bits; the suffix is
// free entropy from the id derivation.
type AccountId struct {
	Prefix Felt
	Suffix Felt
}

// NewAccountId packs metadata bits over the given raw prefix and suffix.
// Entropy occupying the metadata bits of the prefix is overwritten.
func NewAccountId(prefix, suffix uint64, typ AccountType, mode StorageMode, version uint8) AccountId {
	meta := uint64(typ) & accountTypeMask
	if mode == StoragePublic {
		meta |= storageModeBit
	}
	meta |= (uint64(version) & 0x0f) << accountVersionShift
	return AccountId{
		Prefix: Felt(prefix&^uint64(0xff) | meta),
		Suffix: Felt(suffix),
	}
}

// Type returns the account type encoded in the prefix.
func (id AccountId) Type() AccountType {
	return AccountType(uint64(id.Prefix) & accountTypeMask)
}

// StorageMode returns the storage mode encoded in the prefix.
func (id AccountId) StorageMode() StorageMode {
	if uint64(id.Prefix)&storageModeBit != 0 {
		return StoragePublic
	}
	return StoragePrivate
}

// IsPublic reports whether the account publishes its full state on chain.
func (id AccountId) IsPublic() bool { return id.StorageMode() == StoragePublic }

// IsFaucet reports whether the id belongs to a faucet account.
func (id AccountId) IsFaucet() bool { return id.Type().IsFaucet() }

// Version returns the id version encoded in the prefix.
func (id AccountId) Version() uint8 {
	return uint8((uint64(id.Prefix) >> accountVersionShift) & 0x0f)
}

// Bytes returns the 16 byte canonical form: prefix then suffix, big endian.
func (id AccountId) Bytes() []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[:8], uint64(id.Prefix))
	binary.BigEndian.PutUint64(b[8:], uint64(id.Suffix))
	return b
}

// AccountIdFromBytes decodes the 16 byte canonical form.
func AccountIdFromBytes(b []byte) (AccountId, error) {
	if len(b) != 16 {
		return AccountId{}, fmt.Errorf("%w: want 16 bytes, got %d", ErrMalformedAccountId, len(b))
	}
	return AccountId{
		Prefix: Felt(binary.BigEndian.Uint64(b[:8])),
		Suffix: Felt(binary.BigEndian.Uint64(b[8:])),
	}, nil
}

// Hex returns the "0x" prefixed 32 character hex form.
func (id AccountId) Hex() string {
	return "0x" + hex.EncodeToString(id.Bytes())
}

// String implements fmt.Stringer with the hex form.
func (id AccountId) String() string { return id.Hex() }

// AccountIdFromHex parses the "0x" prefixed 32 character hex form.
func AccountIdFromHex(s string) (AccountId, error) {
	if len(s) < 2 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return AccountId{}, fmt.Errorf("%w: missing 0x prefix", ErrMalformedAccountId)
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil {
		return AccountId{}, fmt.Errorf("%w: %v", ErrMalformedAccountId, err)
	}
	return AccountIdFromBytes(b)
}

// NetworkId is the bech32 human readable part identifying the network an
// address belongs to. Values outside the three well known networks are
// treated as custom networks.
type NetworkId string

const (
	NetworkMainnet NetworkId = "mm"
	NetworkTestnet NetworkId = "mtst"
	NetworkDevnet  NetworkId = "mdev"
)

// IsKnown reports whether the network is one of the well known networks.
func (n NetworkId) IsKnown() bool {
	switch n {
	case NetworkMainnet, NetworkTestnet, NetworkDevnet:
		return true
	}
	return false
}

// Address binds an account id to the network it was issued for. The binding
// matters for display: re-encoding an address under a different network
// would silently alias two distinct identities, so it is refused.
type Address struct {
	Id      AccountId
	Network NetworkId
}

// NewAddress binds an account id to a network.
func NewAddress(id AccountId, network NetworkId) Address {
	return Address{Id: id, Network: network}
}

// Bech32 encodes the address under its own network prefix.
func (a Address) Bech32() (string, error) {
	return encodeBech32(string(a.Network), a.Id)
}

// Bech32Custom encodes the address under a caller supplied prefix. It fails
// with ErrNetworkMismatch when the address is bound to a well known network
// and the requested prefix differs.
func (a Address) Bech32Custom(hrp string) (string, error) {
	if a.Network.IsKnown() && string(a.Network) != hrp {
		return "", fmt.Errorf("%w: address is bound to %q, refusing to encode as %q",
			ErrNetworkMismatch, a.Network, hrp)
	}
	return encodeBech32(hrp, a.Id)
}

// AddressFromBech32 decodes a bech32 account address, recovering both the
// id and the network it was encoded for.
func AddressFromBech32(s string) (Address, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrMalformedAccountId, err)
	}
	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrMalformedAccountId, err)
	}
	id, err := AccountIdFromBytes(payload)
	if err != nil {
		return Address{}, err
	}
	return Address{Id: id, Network: NetworkId(hrp)}, nil
}

func encodeBech32(hrp string, id AccountId) (string, error) {
	conv, err := bech32.ConvertBits(id.Bytes(), 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedAccountId, err)
	}
	s, err := bech32.Encode(hrp, conv)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedAccountId, err)
	}
	return s, nil
}
