package store

import (
	"github.com/meridian-zk/go-meridian-client/types"
)

// AuthScheme names the signature scheme an account authenticates with.
type AuthScheme uint8

const (
	AuthSchemeFalcon512 AuthScheme = 0
)

// AuthInfo carries an account's authentication material. The key bytes are
// opaque to the client; the signing backend that produced them interprets
// them.
type AuthInfo struct {
	Scheme AuthScheme
	Key    []byte
}

// AccountRecord is one stored account state plus its local bookkeeping.
type AccountRecord struct {
	Account types.Account
	// Seed is present only for accounts created locally and not yet
	// registered on chain.
	Seed *types.Word
	// Locked is set when the on chain commitment of a private account
	// diverged from the local state. The record still carries the last
	// known good state.
	Locked bool
	// LockedCommitment is the observed on chain commitment that caused
	// the lock.
	LockedCommitment *types.Word
}

// NoteStatus is the lifecycle state of a tracked input note. Transitions
// only ever advance Expected -> Committed -> Processing -> Consumed, except
// that a discarded transaction reverts Processing to Committed.
type NoteStatus string

const (
	NoteStatusExpected   NoteStatus = "expected"
	NoteStatusCommitted  NoteStatus = "committed"
	NoteStatusProcessing NoteStatus = "processing"
	NoteStatusConsumed   NoteStatus = "consumed"
)

// InputNoteRecord is a note the client may consume.
type InputNoteRecord struct {
	Id              types.NoteId
	Recipient       types.Word
	AssetCommitment types.Word
	SerialNumber    types.Word
	Nullifier       types.Nullifier
	Metadata        types.NoteMetadata
	InclusionProof  *types.NoteInclusionProof
	Status          NoteStatus
	// ConsumerTransaction is the local transaction consuming the note,
	// set while the note is Processing or Consumed by our own spend.
	ConsumerTransaction *types.TransactionId
	// BlockNum is the block in which the note was committed (or consumed,
	// once Consumed).
	BlockNum *uint32
}

// OutputNoteRecord is a note produced by one of the client's transactions.
type OutputNoteRecord struct {
	Id              types.NoteId
	Recipient       types.Word
	AssetCommitment types.Word
	Metadata        types.NoteMetadata
	InclusionProof  *types.NoteInclusionProof
	BlockNum        *uint32
}

// TransactionStatus is the fate of a submitted transaction.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCommitted TransactionStatus = "committed"
	TransactionStatusDiscarded TransactionStatus = "discarded"
)

// TransactionRecord tracks a submitted transaction from submission to its
// commit or discard.
type TransactionRecord struct {
	Id            types.TransactionId
	AccountId     types.AccountId
	InputNoteIds  []types.NoteId
	OutputNoteIds []types.NoteId
	ScriptRoot    types.Word
	// FinalAccountState is the commitment of the account state the
	// transaction produced speculatively; used to roll it back on
	// discard.
	FinalAccountState types.Word
	SubmitBlockNum    uint32
	CommitBlockNum    *uint32
	DiscardReason     *string
}

// Status derives the record's state from its commit and discard columns.
func (r TransactionRecord) Status() TransactionStatus {
	switch {
	case r.DiscardReason != nil:
		return TransactionStatusDiscarded
	case r.CommitBlockNum != nil:
		return TransactionStatusCommitted
	default:
		return TransactionStatusPending
	}
}

// NoteTagRecord is one tracked (tag, source) pair.
type NoteTagRecord struct {
	Tag    types.NoteTag
	Source types.NoteTagSource
}

// BlockHeaderRecord is a stored block header plus whether any of the
// client's notes live in it (which makes its leaf worth tracking in the
// chain MMR).
type BlockHeaderRecord struct {
	Header         types.BlockHeader
	HasClientNotes bool
}
