package sync

import (
	"fmt"

	"github.com/meridian-zk/go-meridian-client/rpc"
	"github.com/meridian-zk/go-meridian-client/store"
	"github.com/meridian-zk/go-meridian-client/types"
)

// DefaultDiscardGrace is how many blocks after submission a pending
// transaction survives its input nullifiers being spent by someone else
// before it is considered discarded. The window absorbs propagation skew:
// the nullifier the client observes may be its own spend still on its way
// into a commit report.
const DefaultDiscardGrace uint32 = 20

// TransactionTracker reconciles the fate of submitted transactions against
// sync responses.
type TransactionTracker struct {
	discardGrace uint32
}

// NewTransactionTracker creates a tracker. grace 0 selects the default
// window.
func NewTransactionTracker(grace uint32) *TransactionTracker {
	if grace == 0 {
		grace = DefaultDiscardGrace
	}
	return &TransactionTracker{discardGrace: grace}
}

// Reconcile decides commits and discards for the pending set.
//
// A transaction commits iff the response reports it with a block number. It
// is discarded iff any of its input note nullifiers was spent on chain,
// it is not reported committed, and the response block is more than the
// grace window past its submission. Anything else stays pending.
//
// noteNullifiers maps the client's tracked note ids to their nullifiers so
// input notes can be checked against the consumed set.
func (t *TransactionTracker) Reconcile(
	pending []store.TransactionRecord,
	reported []rpc.TransactionSummary,
	consumed map[types.Nullifier]struct{},
	noteNullifiers map[types.NoteId]types.Nullifier,
	responseBlock uint32,
) (commits []store.TransactionCommit, discards []store.TransactionDiscard) {

	reportedAt := make(map[types.TransactionId]uint32, len(reported))
	for _, summary := range reported {
		reportedAt[summary.TransactionId] = summary.BlockNum
	}

	for _, tx := range pending {
		if blockNum, ok := reportedAt[tx.Id]; ok {
			commits = append(commits, store.TransactionCommit{
				TransactionId: tx.Id,
				BlockNum:      blockNum,
			})
			continue
		}

		if responseBlock <= tx.SubmitBlockNum+t.discardGrace {
			continue
		}
		for _, noteId := range tx.InputNoteIds {
			nullifier, ok := noteNullifiers[noteId]
			if !ok {
				continue
			}
			if _, spent := consumed[nullifier]; !spent {
				continue
			}
			discards = append(discards, store.TransactionDiscard{
				TransactionId: tx.Id,
				Reason: fmt.Sprintf(
					"input note %s consumed at or before block %d without a commit", noteId, responseBlock),
				FinalAccountState: tx.FinalAccountState,
			})
			break
		}
	}
	return commits, discards
}
