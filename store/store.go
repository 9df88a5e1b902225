// Package store defines the persistence abstraction the rest of the client
// is generic over, together with the record types and typed errors every
// backend shares. Two backends implement it: the sqlite store in
// sqlitestore, and (outside this module) a browser key value adapter.
//
// All operations are fallible with the sentinel errors of this package and
// every mutating operation is atomic: either the whole mutation is visible
// afterwards or none of it is.
package store

import (
	"context"

	"github.com/meridian-zk/go-meridian-client/mmr"
	"github.com/meridian-zk/go-meridian-client/types"
)

// Store is the client's transactional persistence layer.
type Store interface {
	// --- accounts ---

	// GetAccounts returns the latest stored state of every account.
	GetAccounts(ctx context.Context) ([]AccountRecord, error)

	// GetAccount returns the stored state of the account with the largest
	// nonce. ErrNotFound if the id is unknown.
	GetAccount(ctx context.Context, id types.AccountId) (AccountRecord, error)

	// GetAccountHistory returns every stored state of the account in
	// strictly increasing nonce order.
	GetAccountHistory(ctx context.Context, id types.AccountId) ([]AccountRecord, error)

	// InsertAccount persists a new account state together with its
	// content addressed components and auth material, in one write
	// transaction. Re-inserting the same (id, nonce) fails with
	// ErrAccountStateAlreadyExists.
	InsertAccount(ctx context.Context, account types.Account, seed *types.Word, auth AuthInfo) error

	// GetAccountAuth returns the account's authentication material.
	GetAccountAuth(ctx context.Context, id types.AccountId) (AuthInfo, error)

	// GetAccountAuths returns the authentication material of every
	// tracked account.
	GetAccountAuths(ctx context.Context) ([]AuthInfo, error)

	// LockAccountOnUnexpectedCommitment marks a private account as
	// diverged from its latest local state.
	LockAccountOnUnexpectedCommitment(ctx context.Context, id types.AccountId, observed types.Word) error

	// UndoAccountStates deletes account states whose commitment matches
	// any of the given set. Used to revert states produced speculatively
	// by transactions that were later discarded.
	UndoAccountStates(ctx context.Context, commitments []types.Word) error

	// --- notes ---

	GetInputNotes(ctx context.Context, filter NoteFilter) ([]InputNoteRecord, error)
	GetOutputNotes(ctx context.Context, filter NoteFilter) ([]OutputNoteRecord, error)

	// InsertInputNote upserts a note the client wants to track.
	InsertInputNote(ctx context.Context, note InputNoteRecord) error

	// InsertOutputNote upserts a note produced by a local transaction.
	InsertOutputNote(ctx context.Context, note OutputNoteRecord) error

	// GetUnspentNullifiers returns the nullifiers of tracked notes that
	// are not yet consumed.
	GetUnspentNullifiers(ctx context.Context) ([]types.Nullifier, error)

	// MarkNotesProcessing moves Committed notes to Processing under the
	// given consumer transaction.
	MarkNotesProcessing(ctx context.Context, txId types.TransactionId, ids []types.NoteId) error

	// --- transactions ---

	GetTransactions(ctx context.Context) ([]TransactionRecord, error)
	GetPendingTransactions(ctx context.Context) ([]TransactionRecord, error)
	InsertTransaction(ctx context.Context, record TransactionRecord) error

	// --- chain data ---

	// GetBlockHeader returns a stored header. ErrNotFound if absent.
	GetBlockHeader(ctx context.Context, blockNum uint32) (BlockHeaderRecord, error)

	// GetTrackedBlockNums returns the numbers of stored blocks containing
	// client notes, ascending.
	GetTrackedBlockNums(ctx context.Context) ([]uint32, error)

	// GetMmrPeaks returns the peak snapshot persisted with the given
	// block's header. ErrNotFound if the header is absent.
	GetMmrPeaks(ctx context.Context, blockNum uint32) (mmr.MmrPeaks, error)

	// GetChainMmrNodes returns every stored authentication node.
	GetChainMmrNodes(ctx context.Context) (map[mmr.InOrderIndex]types.Word, error)

	// --- note tags ---

	GetNoteTags(ctx context.Context) ([]NoteTagRecord, error)

	// AddNoteTag records a tag; returns false if the (tag, source) pair
	// already exists.
	AddNoteTag(ctx context.Context, record NoteTagRecord) (bool, error)

	// RemoveNoteTag removes a (tag, source) pair, returning the number of
	// records removed.
	RemoveNoteTag(ctx context.Context, record NoteTagRecord) (int, error)

	// --- sync ---

	// GetSyncHeight returns the last synced block number.
	GetSyncHeight(ctx context.Context) (uint32, error)

	// ApplyStateSync applies one sync step's update atomically.
	ApplyStateSync(ctx context.Context, update StateSyncUpdate) error

	// Close releases the underlying database handle.
	Close() error
}
