package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordHexRoundTrip(t *testing.T) {
	w := WordFromUint64(1, 0xffffffffffffffff, 42, 7)

	s := w.Hex()
	require.Len(t, s, 2+WordHexChars)
	decoded, err := ParseWord(s)
	require.NoError(t, err)
	assert.Equal(t, w, decoded)

	// The unprefixed form parses too; it is what the store persists.
	decoded, err = ParseWord(w.UnprefixedHex())
	require.NoError(t, err)
	assert.Equal(t, w, decoded)

	_, err = ParseWord("0x1234")
	assert.ErrorIs(t, err, ErrMalformedWord)
}

func TestWordBytesRoundTrip(t *testing.T) {
	w := WordFromUint64(0x0102030405060708, 0, 1, 0xaabbccdd)
	decoded, err := WordFromBytes(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, w, decoded)

	_, err = WordFromBytes([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrMalformedWord)
}

func TestWordCBORRoundTrip(t *testing.T) {
	w := WordFromUint64(5, 6, 7, 8)
	encoded, err := w.MarshalCBOR()
	require.NoError(t, err)

	var decoded Word
	require.NoError(t, decoded.UnmarshalCBOR(encoded))
	assert.Equal(t, w, decoded)
}

func TestNullifierPrefix16(t *testing.T) {
	n := Nullifier(WordFromUint64(0, 0, 0, 0xabcd_0000_0000_0000))
	assert.Equal(t, uint16(0xabcd), n.Prefix16())
}

func TestMerklePathRoot(t *testing.T) {
	h := NewTestHasher()
	leaves := []Word{
		WordFromUint64(0, 0, 0, 0),
		WordFromUint64(1, 0, 0, 0),
		WordFromUint64(2, 0, 0, 0),
		WordFromUint64(3, 0, 0, 0),
	}
	n01 := h.MergeWords(leaves[0], leaves[1])
	n23 := h.MergeWords(leaves[2], leaves[3])
	root := h.MergeWords(n01, n23)

	// Left leaning and right leaning paths must both reproduce the root.
	path0 := MerklePath{leaves[1], n23}
	assert.Equal(t, root, path0.Root(h, 0, leaves[0]))

	path3 := MerklePath{leaves[2], n01}
	assert.Equal(t, root, path3.Root(h, 3, leaves[3]))
}
