package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteIdDerivation(t *testing.T) {
	h := NewTestHasher()
	recipient := WordFromUint64(1, 2, 3, 4)
	assets := WordFromUint64(5, 6, 7, 8)

	id := NoteIdFrom(h, recipient, assets)
	assert.Equal(t, id, NoteIdFrom(h, recipient, assets))
	assert.NotEqual(t, id, NoteIdFrom(h, assets, recipient))
}

func TestNoteInclusionProofVerify(t *testing.T) {
	h := NewTestHasher()
	leaf := WordFromUint64(1, 0, 0, 0)
	sibling := WordFromUint64(2, 0, 0, 0)
	root := h.MergeWords(leaf, sibling)

	proof := NoteInclusionProof{
		BlockNum:  3,
		NoteRoot:  root,
		NoteIndex: 0,
		Path:      MerklePath{sibling},
	}
	assert.True(t, proof.Verify(h, leaf))
	assert.False(t, proof.Verify(h, sibling))
}

func TestNoteTagSourceRoundTrip(t *testing.T) {
	accountId := NewAccountId(1, 2, AccountTypeRegularImmutable, StoragePrivate, 0)
	noteId := NoteId(WordFromUint64(3, 4, 5, 6))

	tests := []struct {
		name   string
		source NoteTagSource
	}{
		{"user", UserTagSource()},
		{"account", AccountTagSource(accountId)},
		{"note", NoteTagSourceForNote(noteId)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseNoteTagSource(tt.source.Type, tt.source.SourceId())
			require.NoError(t, err)
			assert.Equal(t, tt.source, parsed)
		})
	}

	_, err := ParseNoteTagSource(NoteTagSourceType(9), "")
	assert.ErrorIs(t, err, ErrMalformedNoteTag)
}
