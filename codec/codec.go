// Package codec provides the canonical CBOR encoding the store uses for its
// structured blobs: procedure and note id lists, note metadata, inclusion
// proofs, block headers and peak snapshots. Account modules, storage slots
// and vault assets are already bytes and are stored as given, without this
// codec. Encoding is deterministic so
// that equal values always produce equal bytes, which the content addressed
// tables rely on.
package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Codec pairs a deterministic encode mode with a strict decode mode.
type Codec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// New creates a codec with canonical encode options and strict decoding.
func New() (Codec, error) {
	enc, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return Codec{}, fmt.Errorf("creating cbor encode mode: %w", err)
	}
	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}
	dec, err := decOpts.DecMode()
	if err != nil {
		return Codec{}, fmt.Errorf("creating cbor decode mode: %w", err)
	}
	return Codec{enc: enc, dec: dec}, nil
}

// MustNew is New for contexts where the fixed options are known good.
func MustNew() Codec {
	c, err := New()
	if err != nil {
		panic(err)
	}
	return c
}

// Marshal encodes v canonically.
func (c Codec) Marshal(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

// Unmarshal decodes data into v.
func (c Codec) Unmarshal(data []byte, v any) error {
	return c.dec.Unmarshal(data, v)
}
