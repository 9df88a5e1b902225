package store

import "github.com/meridian-zk/go-meridian-client/types"

// NoteFilterKind enumerates the note query shapes the store understands.
type NoteFilterKind uint8

const (
	NoteFilterAll NoteFilterKind = iota
	NoteFilterCommitted
	NoteFilterConsumed
	NoteFilterExpected
	NoteFilterProcessing
	NoteFilterUnique
	NoteFilterList
)

// NoteFilter selects notes by status or by id. Use the constructors; the
// zero value selects everything.
type NoteFilter struct {
	Kind NoteFilterKind
	Ids  []types.NoteId
}

// FilterAll selects every note.
func FilterAll() NoteFilter { return NoteFilter{Kind: NoteFilterAll} }

// FilterCommitted selects committed notes.
func FilterCommitted() NoteFilter { return NoteFilter{Kind: NoteFilterCommitted} }

// FilterConsumed selects consumed notes.
func FilterConsumed() NoteFilter { return NoteFilter{Kind: NoteFilterConsumed} }

// FilterExpected selects expected notes.
func FilterExpected() NoteFilter { return NoteFilter{Kind: NoteFilterExpected} }

// FilterProcessing selects notes referenced by an in flight transaction.
func FilterProcessing() NoteFilter { return NoteFilter{Kind: NoteFilterProcessing} }

// FilterUnique selects a single note by id.
func FilterUnique(id types.NoteId) NoteFilter {
	return NoteFilter{Kind: NoteFilterUnique, Ids: []types.NoteId{id}}
}

// FilterList selects the given set of notes.
func FilterList(ids []types.NoteId) NoteFilter {
	return NoteFilter{Kind: NoteFilterList, Ids: ids}
}
