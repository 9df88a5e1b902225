package sqlitestore

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/meridian-zk/go-meridian-client/store"
	"github.com/meridian-zk/go-meridian-client/types"
)

// GetNoteTags returns every tracked (tag, source) pair.
func (s *SqliteStore) GetNoteTags(ctx context.Context) ([]store.NoteTagRecord, error) {
	var rows []struct {
		Tag        int64  `db:"tag"`
		SourceType uint8  `db:"source_type"`
		SourceId   string `db:"source_id"`
	}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT tag, source_type, source_id FROM note_tags ORDER BY tag, source_type, source_id`); err != nil {
		return nil, mapErr(err)
	}
	records := make([]store.NoteTagRecord, 0, len(rows))
	for _, row := range rows {
		source, err := types.ParseNoteTagSource(types.NoteTagSourceType(row.SourceType), row.SourceId)
		if err != nil {
			return nil, err
		}
		records = append(records, store.NoteTagRecord{
			Tag:    types.NoteTag(row.Tag),
			Source: source,
		})
	}
	return records, nil
}

// AddNoteTag records a tag, returning false when the (tag, source) pair is
// already tracked.
func (s *SqliteStore) AddNoteTag(ctx context.Context, record store.NoteTagRecord) (bool, error) {
	var added bool
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.Exec(
			`INSERT INTO note_tags (tag, source_type, source_id) VALUES (?, ?, ?)
			 ON CONFLICT (tag, source_type, source_id) DO NOTHING`,
			int64(record.Tag), uint8(record.Source.Type), record.Source.SourceId())
		if err != nil {
			return mapErr(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return mapErr(err)
		}
		added = n > 0
		return nil
	})
	return added, err
}

// RemoveNoteTag removes a (tag, source) pair, returning the number of
// records removed.
func (s *SqliteStore) RemoveNoteTag(ctx context.Context, record store.NoteTagRecord) (int, error) {
	var removed int
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		n, err := removeNoteTag(tx, record)
		removed = n
		return err
	})
	return removed, err
}

func removeNoteTag(tx *sqlx.Tx, record store.NoteTagRecord) (int, error) {
	res, err := tx.Exec(
		`DELETE FROM note_tags WHERE tag = ? AND source_type = ? AND source_id = ?`,
		int64(record.Tag), uint8(record.Source.Type), record.Source.SourceId())
	if err != nil {
		return 0, mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapErr(err)
	}
	return int(n), nil
}
