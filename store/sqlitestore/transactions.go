package sqlitestore

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/meridian-zk/go-meridian-client/store"
	"github.com/meridian-zk/go-meridian-client/types"
)

type transactionRow struct {
	Id                string  `db:"id"`
	AccountId         string  `db:"account_id"`
	InputNoteIds      []byte  `db:"input_note_ids"`
	OutputNoteIds     []byte  `db:"output_note_ids"`
	ScriptRoot        string  `db:"script_root"`
	FinalAccountState string  `db:"final_account_state"`
	SubmitBlockNum    int64   `db:"submit_block_num"`
	CommitBlockNum    *int64  `db:"commit_block_num"`
	DiscardReason     *string `db:"discard_reason"`
}

const selectTransactions = `
SELECT id, account_id, input_note_ids, output_note_ids, script_root,
       final_account_state, submit_block_num, commit_block_num, discard_reason
FROM transactions`

// GetTransactions returns every stored transaction record.
func (s *SqliteStore) GetTransactions(ctx context.Context) ([]store.TransactionRecord, error) {
	var rows []transactionRow
	if err := s.db.SelectContext(ctx, &rows, selectTransactions+` ORDER BY submit_block_num, id`); err != nil {
		return nil, mapErr(err)
	}
	return s.transactionsFromRows(rows)
}

// GetPendingTransactions returns transactions that are neither committed
// nor discarded.
func (s *SqliteStore) GetPendingTransactions(ctx context.Context) ([]store.TransactionRecord, error) {
	var rows []transactionRow
	query := selectTransactions + `
		WHERE commit_block_num IS NULL AND discard_reason IS NULL
		ORDER BY submit_block_num, id`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, mapErr(err)
	}
	return s.transactionsFromRows(rows)
}

func (s *SqliteStore) transactionsFromRows(rows []transactionRow) ([]store.TransactionRecord, error) {
	records := make([]store.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		id, err := parseWordColumn(row.Id)
		if err != nil {
			return nil, err
		}
		accountId, err := parseAccountIdColumn(row.AccountId)
		if err != nil {
			return nil, err
		}
		inputIds, err := s.unmarshalNoteIds(row.InputNoteIds)
		if err != nil {
			return nil, err
		}
		outputIds, err := s.unmarshalNoteIds(row.OutputNoteIds)
		if err != nil {
			return nil, err
		}
		scriptRoot, err := parseWordColumn(row.ScriptRoot)
		if err != nil {
			return nil, err
		}
		finalState, err := parseWordColumn(row.FinalAccountState)
		if err != nil {
			return nil, err
		}

		record := store.TransactionRecord{
			Id:                types.TransactionId(id),
			AccountId:         accountId,
			InputNoteIds:      inputIds,
			OutputNoteIds:     outputIds,
			ScriptRoot:        scriptRoot,
			FinalAccountState: finalState,
			SubmitBlockNum:    uint32(row.SubmitBlockNum),
			DiscardReason:     row.DiscardReason,
		}
		if row.CommitBlockNum != nil {
			commit := uint32(*row.CommitBlockNum)
			record.CommitBlockNum = &commit
		}
		records = append(records, record)
	}
	return records, nil
}

// InsertTransaction records a newly submitted transaction as pending.
func (s *SqliteStore) InsertTransaction(ctx context.Context, record store.TransactionRecord) error {
	inputIds, err := s.marshalNoteIds(record.InputNoteIds)
	if err != nil {
		return err
	}
	outputIds, err := s.marshalNoteIds(record.OutputNoteIds)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO transactions
				(id, account_id, input_note_ids, output_note_ids, script_root,
				 final_account_state, submit_block_num, commit_block_num, discard_reason)
			 VALUES (?, ?, ?, ?, ?, ?, ?, NULL, NULL)
			 ON CONFLICT (id) DO NOTHING`,
			types.Word(record.Id).UnprefixedHex(),
			record.AccountId.Hex(),
			inputIds, outputIds,
			record.ScriptRoot.UnprefixedHex(),
			record.FinalAccountState.UnprefixedHex(),
			int64(record.SubmitBlockNum))
		return mapErr(err)
	})
}

// markTransactionCommitted records a commit; a transaction already
// discarded stays discarded.
func markTransactionCommitted(tx *sqlx.Tx, id types.TransactionId, blockNum uint32) error {
	_, err := tx.Exec(
		`UPDATE transactions SET commit_block_num = ?
		 WHERE id = ? AND discard_reason IS NULL`,
		int64(blockNum), types.Word(id).UnprefixedHex())
	return mapErr(err)
}

// markTransactionDiscarded records a discard and reverts the transaction's
// Processing notes to Committed.
func markTransactionDiscarded(tx *sqlx.Tx, id types.TransactionId, reason string) error {
	key := types.Word(id).UnprefixedHex()
	if _, err := tx.Exec(
		`UPDATE transactions SET discard_reason = ?
		 WHERE id = ? AND commit_block_num IS NULL`, reason, key); err != nil {
		return mapErr(err)
	}
	_, err := tx.Exec(
		`UPDATE input_notes SET status = ?, consumer_transaction = NULL
		 WHERE consumer_transaction = ? AND status = ?`,
		string(store.NoteStatusCommitted), key, string(store.NoteStatusProcessing))
	return mapErr(err)
}
