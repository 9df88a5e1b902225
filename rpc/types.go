// Package rpc is the typed surface of the remote node: the request and
// response domain types, the NodeClient interface the sync engine consumes,
// and a client implementation speaking the node's length prefixed binary
// protocol over a caller supplied transport.
//
// The transport itself (tcp, websocket, whatever carries the frames) stays
// outside this module; so does retry policy, which belongs to the caller.
package rpc

import (
	"github.com/meridian-zk/go-meridian-client/mmr"
	"github.com/meridian-zk/go-meridian-client/types"
)

// SyncStateRequest asks the node for everything relevant that happened
// after BlockNum. NullifierPrefixes are 16 bit prefixes of tracked
// nullifiers; the node answers with every nullifier matching any prefix,
// trading bandwidth for false positives the client filters out.
type SyncStateRequest struct {
	BlockNum          uint32
	AccountIds        []types.AccountId
	Tags              []types.NoteTag
	NullifierPrefixes []uint16
	// MaxBlocks is a soft cap hint: the node may answer with a block
	// further than BlockNum+MaxBlocks but tries not to.
	MaxBlocks uint32
}

// CommittedNoteRecord is one note the node matched against the request's
// tags, with the merkle path locating it under the response block's note
// root.
type CommittedNoteRecord struct {
	NoteId          types.NoteId
	NoteIndex       uint64
	Recipient       types.Word
	AssetCommitment types.Word
	Metadata        types.NoteMetadata
	MerklePath      types.MerklePath
}

// NullifierUpdate reports a nullifier published at a block.
type NullifierUpdate struct {
	Nullifier types.Nullifier
	BlockNum  uint32
}

// TransactionSummary reports a transaction committed at a block.
type TransactionSummary struct {
	TransactionId types.TransactionId
	AccountId     types.AccountId
	BlockNum      uint32
}

// AccountHashUpdate reports the current on chain commitment of a tracked
// account.
type AccountHashUpdate struct {
	AccountId  types.AccountId
	Commitment types.Word
}

// SyncStateResponse is one step of incremental sync: the next relevant
// block (not necessarily adjacent to the request block), the delta
// bridging the chain MMR to it, and everything that happened in between.
type SyncStateResponse struct {
	ChainTip    uint32
	BlockHeader types.BlockHeader
	MmrDelta    mmr.MmrDelta
	// BlockPath proves the response block's own hash within the extended
	// accumulator, so the client can track it.
	BlockPath    types.MerklePath
	Accounts     []AccountHashUpdate
	Notes        []CommittedNoteRecord
	Nullifiers   []NullifierUpdate
	Transactions []TransactionSummary
}

// SyncNotesRequest asks only for note commitments matching the tags, with
// no account or nullifier reconciliation.
type SyncNotesRequest struct {
	BlockNum uint32
	Tags     []types.NoteTag
}

// SyncNotesResponse carries the notes found after the request block.
type SyncNotesResponse struct {
	ChainTip    uint32
	BlockHeader types.BlockHeader
	Notes       []CommittedNoteRecord
}

// NoteDetails is the full public content of a note, fetched by id.
type NoteDetails struct {
	NoteId          types.NoteId
	Recipient       types.Word
	AssetCommitment types.Word
	SerialNumber    types.Word
	Metadata        types.NoteMetadata
	InclusionProof  *types.NoteInclusionProof
}

// MmrProof is an inclusion proof for a block hash in the chain MMR.
type MmrProof struct {
	Forest  uint64
	LeafPos uint64
	Path    types.MerklePath
}

// ProvenTransaction is a transaction with its proof already generated,
// ready for submission. Proof generation is the prover's business; the
// client treats the proof as opaque bytes.
type ProvenTransaction struct {
	Id                  types.TransactionId
	AccountId           types.AccountId
	InitialAccountState types.Word
	FinalAccountState   types.Word
	InputNoteIds        []types.NoteId
	OutputNoteIds       []types.NoteId
	ScriptRoot          types.Word
	BlockRef            uint32
	Proof               []byte
}
