package types

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// WordBytes is the canonical byte length of a word: 4 u64 limbs.
	WordBytes = 32

	// WordHexChars is the length of the unprefixed lowercase hex form used
	// as a content address in persistent storage.
	WordHexChars = 64
)

var ErrMalformedWord = errors.New("malformed word")

// Word is a 4-element digest. It is the unit of commitment throughout the
// rollup: block hashes, note ids, nullifiers, account commitments and MMR
// nodes are all words.
//
// The canonical byte form is the little endian encoding of each limb in
// order. The canonical hex form is the lowercase hex of the canonical bytes.
type Word [4]Felt

// WordFromUint64 builds a word from four raw limb values.
func WordFromUint64(a, b, c, d uint64) Word {
	return Word{Felt(a), Felt(b), Felt(c), Felt(d)}
}

// Bytes returns the canonical 32 byte form.
func (w Word) Bytes() []byte {
	b := make([]byte, WordBytes)
	for i, limb := range w {
		binary.LittleEndian.PutUint64(b[i*8:], uint64(limb))
	}
	return b
}

// WordFromBytes decodes the canonical 32 byte form.
func WordFromBytes(b []byte) (Word, error) {
	if len(b) != WordBytes {
		return Word{}, fmt.Errorf("%w: want %d bytes, got %d", ErrMalformedWord, WordBytes, len(b))
	}
	var w Word
	for i := range w {
		w[i] = Felt(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return w, nil
}

// Hex returns the user visible "0x" prefixed hex form.
func (w Word) Hex() string {
	return "0x" + w.UnprefixedHex()
}

// UnprefixedHex returns the 64 character lowercase hex form used as a
// content address in the store.
func (w Word) UnprefixedHex() string {
	return hex.EncodeToString(w.Bytes())
}

// String implements fmt.Stringer with the user visible form.
func (w Word) String() string { return w.Hex() }

// ParseWord decodes either hex form.
func ParseWord(s string) (Word, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s) != WordHexChars {
		return Word{}, fmt.Errorf("%w: want %d hex chars, got %d", ErrMalformedWord, WordHexChars, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Word{}, fmt.Errorf("%w: %v", ErrMalformedWord, err)
	}
	return WordFromBytes(b)
}

// IsZero reports whether every limb is zero.
func (w Word) IsZero() bool {
	return w == Word{}
}

// Elements returns the limbs as field elements.
func (w Word) Elements() []Felt {
	return []Felt{w[0], w[1], w[2], w[3]}
}

// MarshalCBOR encodes the word as its canonical byte string.
func (w Word) MarshalCBOR() ([]byte, error) {
	// 32 byte strings encode as 0x58 0x20 <bytes> in CBOR.
	out := make([]byte, 2, 2+WordBytes)
	out[0] = 0x58
	out[1] = WordBytes
	return append(out, w.Bytes()...), nil
}

// UnmarshalCBOR decodes the canonical byte string form.
func (w *Word) UnmarshalCBOR(data []byte) error {
	if len(data) != 2+WordBytes || data[0] != 0x58 || data[1] != WordBytes {
		return fmt.Errorf("%w: unexpected cbor framing", ErrMalformedWord)
	}
	decoded, err := WordFromBytes(data[2:])
	if err != nil {
		return err
	}
	*w = decoded
	return nil
}
