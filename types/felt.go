// Package types holds the domain model shared by every component of the
// client: field elements, 4-word digests, account and note identifiers, block
// headers and merkle paths, together with the Hasher abstraction through
// which all digest computation is delegated.
//
// The package deliberately implements no field arithmetic and no hash
// permutation. A Felt is a transparent carrier for a canonical u64 value and
// a Word is four of them; the cryptographic backend that produced them is
// supplied by the embedding application via the Hasher interface.
package types

// Felt is a single field element in canonical u64 form.
type Felt uint64

// FeltsFromUint64 converts a slice of raw values into field elements.
func FeltsFromUint64(vs ...uint64) []Felt {
	fs := make([]Felt, len(vs))
	for i, v := range vs {
		fs[i] = Felt(v)
	}
	return fs
}
