package sqlitestore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/meridian-zk/go-meridian-client/store"
	"github.com/meridian-zk/go-meridian-client/types"
)

type inputNoteRow struct {
	NoteId              string  `db:"note_id"`
	Recipient           string  `db:"recipient"`
	AssetCommitment     string  `db:"asset_commitment"`
	SerialNumber        string  `db:"serial_number"`
	Nullifier           string  `db:"nullifier"`
	Metadata            []byte  `db:"metadata"`
	InclusionProof      []byte  `db:"inclusion_proof"`
	Status              string  `db:"status"`
	ConsumerTransaction *string `db:"consumer_transaction"`
	BlockNum            *int64  `db:"block_num"`
}

type outputNoteRow struct {
	NoteId          string `db:"note_id"`
	Recipient       string `db:"recipient"`
	AssetCommitment string `db:"asset_commitment"`
	Metadata        []byte `db:"metadata"`
	InclusionProof  []byte `db:"inclusion_proof"`
	BlockNum        *int64 `db:"block_num"`
}

// metadataDTO is the CBOR form of note metadata.
type metadataDTO struct {
	SenderPrefix  uint64 `cbor:"1,keyasint"`
	SenderSuffix  uint64 `cbor:"2,keyasint"`
	Tag           uint32 `cbor:"3,keyasint"`
	ExecutionHint uint8  `cbor:"4,keyasint"`
	Aux           uint64 `cbor:"5,keyasint"`
}

// proofDTO is the CBOR form of a note inclusion proof.
type proofDTO struct {
	BlockNum  uint32       `cbor:"1,keyasint"`
	SubHash   types.Word   `cbor:"2,keyasint"`
	NoteRoot  types.Word   `cbor:"3,keyasint"`
	NoteIndex uint64       `cbor:"4,keyasint"`
	Path      []types.Word `cbor:"5,keyasint"`
}

func (s *SqliteStore) marshalMetadata(m types.NoteMetadata) ([]byte, error) {
	b, err := s.codec.Marshal(metadataDTO{
		SenderPrefix:  uint64(m.Sender.Prefix),
		SenderSuffix:  uint64(m.Sender.Suffix),
		Tag:           uint32(m.Tag),
		ExecutionHint: uint8(m.ExecutionHint),
		Aux:           uint64(m.Aux),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrSerialization, err)
	}
	return b, nil
}

func (s *SqliteStore) unmarshalMetadata(b []byte) (types.NoteMetadata, error) {
	var dto metadataDTO
	if err := s.codec.Unmarshal(b, &dto); err != nil {
		return types.NoteMetadata{}, fmt.Errorf("%w: note metadata: %v", store.ErrSerialization, err)
	}
	return types.NoteMetadata{
		Sender:        types.AccountId{Prefix: types.Felt(dto.SenderPrefix), Suffix: types.Felt(dto.SenderSuffix)},
		Tag:           types.NoteTag(dto.Tag),
		ExecutionHint: types.NoteExecutionHint(dto.ExecutionHint),
		Aux:           types.Felt(dto.Aux),
	}, nil
}

func (s *SqliteStore) marshalProof(p *types.NoteInclusionProof) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	b, err := s.codec.Marshal(proofDTO{
		BlockNum:  p.BlockNum,
		SubHash:   p.SubHash,
		NoteRoot:  p.NoteRoot,
		NoteIndex: p.NoteIndex,
		Path:      p.Path,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrSerialization, err)
	}
	return b, nil
}

func (s *SqliteStore) unmarshalProof(b []byte) (*types.NoteInclusionProof, error) {
	if b == nil {
		return nil, nil
	}
	var dto proofDTO
	if err := s.codec.Unmarshal(b, &dto); err != nil {
		return nil, fmt.Errorf("%w: inclusion proof: %v", store.ErrSerialization, err)
	}
	return &types.NoteInclusionProof{
		BlockNum:  dto.BlockNum,
		SubHash:   dto.SubHash,
		NoteRoot:  dto.NoteRoot,
		NoteIndex: dto.NoteIndex,
		Path:      dto.Path,
	}, nil
}

// noteFilterClause renders a filter into a WHERE clause and arguments.
func noteFilterClause(filter store.NoteFilter) (string, []any, error) {
	switch filter.Kind {
	case store.NoteFilterAll:
		return "", nil, nil
	case store.NoteFilterCommitted:
		return " WHERE status = ?", []any{string(store.NoteStatusCommitted)}, nil
	case store.NoteFilterConsumed:
		return " WHERE status = ?", []any{string(store.NoteStatusConsumed)}, nil
	case store.NoteFilterExpected:
		return " WHERE status = ?", []any{string(store.NoteStatusExpected)}, nil
	case store.NoteFilterProcessing:
		return " WHERE status = ?", []any{string(store.NoteStatusProcessing)}, nil
	case store.NoteFilterUnique, store.NoteFilterList:
		ids := make([]any, len(filter.Ids))
		for i, id := range filter.Ids {
			ids[i] = types.Word(id).UnprefixedHex()
		}
		query, args, err := sqlx.In(" WHERE note_id IN (?)", ids)
		if err != nil {
			return "", nil, mapErr(err)
		}
		return query, args, nil
	default:
		return "", nil, fmt.Errorf("unknown note filter kind %d", filter.Kind)
	}
}

// GetInputNotes returns the input notes selected by the filter. A Unique
// filter for an unknown note is ErrNotFound.
func (s *SqliteStore) GetInputNotes(ctx context.Context, filter store.NoteFilter) ([]store.InputNoteRecord, error) {
	clause, args, err := noteFilterClause(filter)
	if err != nil {
		return nil, err
	}
	var rows []inputNoteRow
	query := `SELECT note_id, recipient, asset_commitment, serial_number, nullifier, metadata,
	                 inclusion_proof, status, consumer_transaction, block_num
	          FROM input_notes` + clause + ` ORDER BY note_id`
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapErr(err)
	}
	if filter.Kind == store.NoteFilterUnique && len(rows) == 0 {
		return nil, fmt.Errorf("%w: input note %s", store.ErrNotFound, filter.Ids[0])
	}

	notes := make([]store.InputNoteRecord, 0, len(rows))
	for _, row := range rows {
		note, err := s.inputNoteFromRow(row)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, nil
}

func (s *SqliteStore) inputNoteFromRow(row inputNoteRow) (store.InputNoteRecord, error) {
	id, err := parseWordColumn(row.NoteId)
	if err != nil {
		return store.InputNoteRecord{}, err
	}
	recipient, err := parseWordColumn(row.Recipient)
	if err != nil {
		return store.InputNoteRecord{}, err
	}
	assets, err := parseWordColumn(row.AssetCommitment)
	if err != nil {
		return store.InputNoteRecord{}, err
	}
	serial, err := parseWordColumn(row.SerialNumber)
	if err != nil {
		return store.InputNoteRecord{}, err
	}
	nullifier, err := parseWordColumn(row.Nullifier)
	if err != nil {
		return store.InputNoteRecord{}, err
	}
	metadata, err := s.unmarshalMetadata(row.Metadata)
	if err != nil {
		return store.InputNoteRecord{}, err
	}
	proof, err := s.unmarshalProof(row.InclusionProof)
	if err != nil {
		return store.InputNoteRecord{}, err
	}

	note := store.InputNoteRecord{
		Id:              types.NoteId(id),
		Recipient:       recipient,
		AssetCommitment: assets,
		SerialNumber:    serial,
		Nullifier:       types.Nullifier(nullifier),
		Metadata:        metadata,
		InclusionProof:  proof,
		Status:          store.NoteStatus(row.Status),
	}
	if row.ConsumerTransaction != nil {
		txId, err := parseWordColumn(*row.ConsumerTransaction)
		if err != nil {
			return store.InputNoteRecord{}, err
		}
		consumer := types.TransactionId(txId)
		note.ConsumerTransaction = &consumer
	}
	if row.BlockNum != nil {
		blockNum := uint32(*row.BlockNum)
		note.BlockNum = &blockNum
	}
	return note, nil
}

// InsertInputNote upserts a tracked note. The upsert keeps status
// transitions monotonic: an existing note's status is never moved back to
// an earlier stage, so a Consumed note is never demoted.
func (s *SqliteStore) InsertInputNote(ctx context.Context, note store.InputNoteRecord) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		return s.upsertInputNote(tx, note)
	})
}

func (s *SqliteStore) upsertInputNote(tx *sqlx.Tx, note store.InputNoteRecord) error {
	metadata, err := s.marshalMetadata(note.Metadata)
	if err != nil {
		return err
	}
	proof, err := s.marshalProof(note.InclusionProof)
	if err != nil {
		return err
	}
	var consumer *string
	if note.ConsumerTransaction != nil {
		v := types.Word(*note.ConsumerTransaction).UnprefixedHex()
		consumer = &v
	}
	var blockNum *int64
	if note.BlockNum != nil {
		v := int64(*note.BlockNum)
		blockNum = &v
	}
	_, err = tx.Exec(
		`INSERT INTO input_notes
			(note_id, recipient, asset_commitment, serial_number, nullifier, metadata,
			 inclusion_proof, status, consumer_transaction, block_num)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (note_id) DO UPDATE SET
			inclusion_proof = excluded.inclusion_proof,
			status = CASE
				WHEN input_notes.status = 'consumed' THEN input_notes.status
				WHEN input_notes.status = 'processing' AND excluded.status IN ('expected', 'committed') THEN input_notes.status
				WHEN input_notes.status = 'committed' AND excluded.status = 'expected' THEN input_notes.status
				ELSE excluded.status END,
			block_num = excluded.block_num`,
		types.Word(note.Id).UnprefixedHex(),
		note.Recipient.UnprefixedHex(),
		note.AssetCommitment.UnprefixedHex(),
		note.SerialNumber.UnprefixedHex(),
		types.Word(note.Nullifier).UnprefixedHex(),
		metadata, proof, string(note.Status), consumer, blockNum)
	return mapErr(err)
}

// GetOutputNotes returns the output notes selected by the filter. Status
// filters other than All and Committed do not apply to output notes and
// yield an empty result.
func (s *SqliteStore) GetOutputNotes(ctx context.Context, filter store.NoteFilter) ([]store.OutputNoteRecord, error) {
	clause := ""
	var args []any
	switch filter.Kind {
	case store.NoteFilterAll:
	case store.NoteFilterCommitted:
		clause = " WHERE block_num IS NOT NULL"
	case store.NoteFilterUnique, store.NoteFilterList:
		var err error
		clause, args, err = noteFilterClause(filter)
		if err != nil {
			return nil, err
		}
	default:
		return nil, nil
	}

	var rows []outputNoteRow
	query := `SELECT note_id, recipient, asset_commitment, metadata, inclusion_proof, block_num
	          FROM output_notes` + clause + ` ORDER BY note_id`
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapErr(err)
	}
	if filter.Kind == store.NoteFilterUnique && len(rows) == 0 {
		return nil, fmt.Errorf("%w: output note %s", store.ErrNotFound, filter.Ids[0])
	}

	notes := make([]store.OutputNoteRecord, 0, len(rows))
	for _, row := range rows {
		id, err := parseWordColumn(row.NoteId)
		if err != nil {
			return nil, err
		}
		recipient, err := parseWordColumn(row.Recipient)
		if err != nil {
			return nil, err
		}
		assets, err := parseWordColumn(row.AssetCommitment)
		if err != nil {
			return nil, err
		}
		metadata, err := s.unmarshalMetadata(row.Metadata)
		if err != nil {
			return nil, err
		}
		proof, err := s.unmarshalProof(row.InclusionProof)
		if err != nil {
			return nil, err
		}
		note := store.OutputNoteRecord{
			Id:              types.NoteId(id),
			Recipient:       recipient,
			AssetCommitment: assets,
			Metadata:        metadata,
			InclusionProof:  proof,
		}
		if row.BlockNum != nil {
			blockNum := uint32(*row.BlockNum)
			note.BlockNum = &blockNum
		}
		notes = append(notes, note)
	}
	return notes, nil
}

// InsertOutputNote upserts a note produced by a local transaction.
func (s *SqliteStore) InsertOutputNote(ctx context.Context, note store.OutputNoteRecord) error {
	metadata, err := s.marshalMetadata(note.Metadata)
	if err != nil {
		return err
	}
	proof, err := s.marshalProof(note.InclusionProof)
	if err != nil {
		return err
	}
	var blockNum *int64
	if note.BlockNum != nil {
		v := int64(*note.BlockNum)
		blockNum = &v
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO output_notes (note_id, recipient, asset_commitment, metadata, inclusion_proof, block_num)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (note_id) DO UPDATE SET
				inclusion_proof = excluded.inclusion_proof,
				block_num = excluded.block_num`,
			types.Word(note.Id).UnprefixedHex(),
			note.Recipient.UnprefixedHex(),
			note.AssetCommitment.UnprefixedHex(),
			metadata, proof, blockNum)
		return mapErr(err)
	})
}

// GetUnspentNullifiers returns the nullifiers of tracked notes that are
// not yet consumed.
func (s *SqliteStore) GetUnspentNullifiers(ctx context.Context) ([]types.Nullifier, error) {
	var rows []string
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT nullifier FROM input_notes WHERE status != ? ORDER BY nullifier`,
		string(store.NoteStatusConsumed)); err != nil {
		return nil, mapErr(err)
	}
	nullifiers := make([]types.Nullifier, 0, len(rows))
	for _, row := range rows {
		w, err := parseWordColumn(row)
		if err != nil {
			return nil, err
		}
		nullifiers = append(nullifiers, types.Nullifier(w))
	}
	return nullifiers, nil
}

// MarkNotesProcessing moves Committed notes to Processing under the given
// consumer transaction.
func (s *SqliteStore) MarkNotesProcessing(ctx context.Context, txId types.TransactionId, ids []types.NoteId) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]any, len(ids))
	for i, id := range ids {
		keys[i] = types.Word(id).UnprefixedHex()
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := sqlx.In(
			`UPDATE input_notes SET status = ?, consumer_transaction = ?
			 WHERE note_id IN (?) AND status = ?`,
			string(store.NoteStatusProcessing), types.Word(txId).UnprefixedHex(), keys,
			string(store.NoteStatusCommitted))
		if err != nil {
			return mapErr(err)
		}
		_, err = tx.Exec(query, args...)
		return mapErr(err)
	})
}
