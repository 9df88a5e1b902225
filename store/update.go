package store

import (
	"github.com/meridian-zk/go-meridian-client/mmr"
	"github.com/meridian-zk/go-meridian-client/types"
)

// ConsumedNote marks a tracked note whose nullifier was observed on chain.
type ConsumedNote struct {
	Nullifier types.Nullifier
	BlockNum  uint32
}

// AccountUpdate is a refreshed full state of a tracked public account.
type AccountUpdate struct {
	Account types.Account
}

// AccountMismatch is a private account whose on chain commitment diverged
// from the local state; applying it locks the account.
type AccountMismatch struct {
	AccountId          types.AccountId
	ObservedCommitment types.Word
}

// TransactionCommit marks a pending transaction as committed at a block.
type TransactionCommit struct {
	TransactionId types.TransactionId
	BlockNum      uint32
}

// TransactionDiscard marks a pending transaction as discarded, carrying the
// speculative account state that must be rolled back.
type TransactionDiscard struct {
	TransactionId     types.TransactionId
	Reason            string
	FinalAccountState types.Word
}

// StateSyncUpdate is everything one sync step learned, applied to the
// store in a single write transaction. Mutation order inside the
// transaction is fixed: block header and MMR nodes, then notes, then
// accounts, then transactions, then tags, then the sync cursor.
type StateSyncUpdate struct {
	BlockHeader    types.BlockHeader
	HasClientNotes bool
	NewPeaks       mmr.MmrPeaks
	NewAuthNodes   []mmr.AuthNode

	// NewInputNotes are freshly classified relevant notes, already
	// Committed with their inclusion proofs.
	NewInputNotes []InputNoteRecord
	// CommittedNotes carries inclusion proofs for notes the client
	// already tracked as Expected (or Processing, left as is).
	CommittedNotes []CommittedNote
	// ConsumedNotes marks tracked notes whose nullifiers appeared.
	ConsumedNotes []ConsumedNote

	UpdatedAccounts    []AccountUpdate
	MismatchedAccounts []AccountMismatch

	CommittedTransactions []TransactionCommit
	DiscardedTransactions []TransactionDiscard

	// TagsToRemove are tag records satisfied by this update, such as
	// note-sourced tags whose note has now committed.
	TagsToRemove []NoteTagRecord
}

// CommittedNote attaches an inclusion proof to an already tracked note.
type CommittedNote struct {
	NoteId         types.NoteId
	InclusionProof types.NoteInclusionProof
}
