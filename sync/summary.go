package sync

import "github.com/meridian-zk/go-meridian-client/types"

// Summary reports what a SyncState run changed. One run may cover several
// steps when the client is many blocks behind the chain tip.
type Summary struct {
	// BlockNum is the block the client is synced to after the run.
	BlockNum uint32
	// Steps is the number of request/apply rounds the run took.
	Steps int

	NewNotes       []types.NoteId
	CommittedNotes []types.NoteId
	ConsumedNotes  []types.NoteId

	UpdatedAccounts []types.AccountId
	LockedAccounts  []types.AccountId

	CommittedTransactions []types.TransactionId
	DiscardedTransactions []types.TransactionId
}
