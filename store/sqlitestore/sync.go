package sqlitestore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/meridian-zk/go-meridian-client/store"
	"github.com/meridian-zk/go-meridian-client/types"
)

// GetSyncHeight returns the last synced block number.
func (s *SqliteStore) GetSyncHeight(ctx context.Context) (uint32, error) {
	var blockNum int64
	if err := s.db.GetContext(ctx, &blockNum, `SELECT block_num FROM state_sync WHERE id = 1`); err != nil {
		return 0, mapErr(err)
	}
	return uint32(blockNum), nil
}

// ApplyStateSync applies one sync step in a single write transaction, in
// the fixed order: block header and MMR nodes, notes, accounts,
// transactions, tags, sync cursor. Every statement is an upsert keyed by
// content or primary id, so re-applying the same update is a no-op.
func (s *SqliteStore) ApplyStateSync(ctx context.Context, update store.StateSyncUpdate) error {
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		// 1. block header and its peak snapshot, then the new
		// authentication nodes.
		if err := s.insertBlockHeader(tx, update.BlockHeader, update.HasClientNotes, update.NewPeaks); err != nil {
			return err
		}
		if err := s.insertChainMmrNodes(tx, update.NewAuthNodes); err != nil {
			return err
		}

		// 2. notes: new relevant notes, proof arrivals, consumptions.
		for _, note := range update.NewInputNotes {
			if err := s.upsertInputNote(tx, note); err != nil {
				return err
			}
		}
		for _, committed := range update.CommittedNotes {
			if err := s.applyCommittedNote(tx, committed); err != nil {
				return err
			}
		}
		for _, consumed := range update.ConsumedNotes {
			if _, err := tx.Exec(
				`UPDATE input_notes SET status = ?, block_num = ? WHERE nullifier = ?`,
				string(store.NoteStatusConsumed), int64(consumed.BlockNum),
				types.Word(consumed.Nullifier).UnprefixedHex()); err != nil {
				return mapErr(err)
			}
		}

		// 3. accounts: public refreshes and private locks.
		for _, updated := range update.UpdatedAccounts {
			if err := s.upsertAccountState(tx, updated.Account, nil); err != nil {
				return err
			}
		}
		for _, mismatch := range update.MismatchedAccounts {
			if err := lockAccount(tx, mismatch.AccountId, mismatch.ObservedCommitment); err != nil {
				return err
			}
		}

		// 4. transactions: commits, then discards with their account
		// state rollbacks.
		for _, commit := range update.CommittedTransactions {
			if err := markTransactionCommitted(tx, commit.TransactionId, commit.BlockNum); err != nil {
				return err
			}
		}
		var rollbacks []types.Word
		for _, discard := range update.DiscardedTransactions {
			if err := markTransactionDiscarded(tx, discard.TransactionId, discard.Reason); err != nil {
				return err
			}
			if !discard.FinalAccountState.IsZero() {
				rollbacks = append(rollbacks, discard.FinalAccountState)
			}
		}
		if len(rollbacks) > 0 {
			if err := undoAccountStates(tx, rollbacks); err != nil {
				return err
			}
		}

		// 5. tags satisfied by this update.
		for _, tag := range update.TagsToRemove {
			if _, err := removeNoteTag(tx, tag); err != nil {
				return err
			}
		}

		// 6. the sync cursor.
		peakBytes, err := s.marshalPeaks(peaksDTO{
			Forest: update.NewPeaks.Forest(),
			Peaks:  update.NewPeaks.All(),
		})
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			`UPDATE state_sync SET block_num = ?, peaks = ? WHERE id = 1`,
			int64(update.BlockHeader.BlockNum), peakBytes); err != nil {
			return mapErr(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("applying state sync for block %d: %w", update.BlockHeader.BlockNum, err)
	}
	s.log.Infow("state sync applied",
		"block", update.BlockHeader.BlockNum,
		"new_notes", len(update.NewInputNotes),
		"consumed", len(update.ConsumedNotes),
		"auth_nodes", len(update.NewAuthNodes))
	return nil
}

// applyCommittedNote attaches an inclusion proof to a tracked note.
// Expected notes advance to Committed; Processing notes keep their status
// so a local spend in flight is not demoted.
func (s *SqliteStore) applyCommittedNote(tx *sqlx.Tx, committed store.CommittedNote) error {
	proof, err := s.marshalProof(&committed.InclusionProof)
	if err != nil {
		return err
	}
	_, err = tx.Exec(
		`UPDATE input_notes SET
			inclusion_proof = ?,
			block_num = ?,
			status = CASE WHEN status = ? THEN ? ELSE status END
		 WHERE note_id = ?`,
		proof, int64(committed.InclusionProof.BlockNum),
		string(store.NoteStatusExpected), string(store.NoteStatusCommitted),
		types.Word(committed.NoteId).UnprefixedHex())
	return mapErr(err)
}
