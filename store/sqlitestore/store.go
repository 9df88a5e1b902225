// Package sqlitestore is the native filesystem backend of the store
// abstraction: a single sqlite database whose schema encodes the rollup
// state model with referential invariants, accessed through sqlx.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/meridian-zk/go-meridian-client/codec"
	"github.com/meridian-zk/go-meridian-client/store"
	"github.com/meridian-zk/go-meridian-client/types"
)

const headerCacheSize = 256

// SqliteStore implements store.Store over a local sqlite database.
type SqliteStore struct {
	db     *sqlx.DB
	hasher types.Hasher
	codec  codec.Codec
	log    *zap.SugaredLogger

	// Headers are immutable once written, so a small read cache never
	// goes stale.
	headerCache *lru.Cache[uint32, store.BlockHeaderRecord]
}

var _ store.Store = (*SqliteStore)(nil)

// Open opens (creating if necessary) the database at path and migrates the
// schema. Writes are serialized behind a single connection, which is what
// gives every mutating operation its one-writer transactional semantics.
func Open(path string, hasher types.Hasher, logger *zap.SugaredLogger) (*SqliteStore, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	db, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	c, err := codec.New()
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &SqliteStore{db: db, hasher: hasher, codec: c, log: logger}
	s.headerCache, _ = lru.New[uint32, store.BlockHeaderRecord](headerCacheSize)

	if err := s.seedSyncRow(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Infow("store opened", "path", path)
	return s, nil
}

// Close releases the database handle.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

// seedSyncRow ensures the singleton sync cursor exists, starting at the
// genesis block with an empty accumulator.
func (s *SqliteStore) seedSyncRow() error {
	peaks, err := s.marshalPeaks(peaksDTO{})
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO state_sync (id, block_num, peaks) VALUES (1, ?, ?) ON CONFLICT (id) DO NOTHING`,
		types.GenesisBlockNum, peaks)
	if err != nil {
		return fmt.Errorf("seeding sync cursor: %w", err)
	}
	return nil
}

// inTx runs fn inside one write transaction, rolling back in full on any
// error.
func (s *SqliteStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapErr(err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.log.Errorw("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapErr(err)
	}
	return nil
}

// mapErr translates driver errors into the store's typed errors.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	msg := err.Error()
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy") {
		return fmt.Errorf("%w: %v", store.ErrConcurrency, err)
	}
	return err
}

// parseWordColumn decodes a stored hex root, mapping malformed values to
// the serialization error class.
func parseWordColumn(s string) (types.Word, error) {
	w, err := types.ParseWord(s)
	if err != nil {
		return types.Word{}, fmt.Errorf("%w: %v", store.ErrSerialization, err)
	}
	return w, nil
}

func parseAccountIdColumn(s string) (types.AccountId, error) {
	id, err := types.AccountIdFromHex(s)
	if err != nil {
		return types.AccountId{}, fmt.Errorf("%w: %v", store.ErrSerialization, err)
	}
	return id, nil
}

// wordList is the CBOR form for stored id lists.
type wordList struct {
	Words []types.Word `cbor:"1,keyasint"`
}

func (s *SqliteStore) marshalNoteIds(ids []types.NoteId) ([]byte, error) {
	words := make([]types.Word, len(ids))
	for i, id := range ids {
		words[i] = types.Word(id)
	}
	b, err := s.codec.Marshal(wordList{Words: words})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrSerialization, err)
	}
	return b, nil
}

func (s *SqliteStore) unmarshalNoteIds(b []byte) ([]types.NoteId, error) {
	var wl wordList
	if err := s.codec.Unmarshal(b, &wl); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrSerialization, err)
	}
	ids := make([]types.NoteId, len(wl.Words))
	for i, w := range wl.Words {
		ids[i] = types.NoteId(w)
	}
	return ids, nil
}
