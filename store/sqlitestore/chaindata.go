package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/meridian-zk/go-meridian-client/mmr"
	"github.com/meridian-zk/go-meridian-client/store"
	"github.com/meridian-zk/go-meridian-client/types"
)

// headerDTO is the CBOR form of a block header.
type headerDTO struct {
	BlockNum      uint32     `cbor:"1,keyasint"`
	Version       uint32     `cbor:"2,keyasint"`
	PrevHash      types.Word `cbor:"3,keyasint"`
	ChainRoot     types.Word `cbor:"4,keyasint"`
	AccountRoot   types.Word `cbor:"5,keyasint"`
	NoteRoot      types.Word `cbor:"6,keyasint"`
	NullifierRoot types.Word `cbor:"7,keyasint"`
	Timestamp     uint64     `cbor:"8,keyasint"`
}

// peaksDTO is the CBOR form of a peak snapshot.
type peaksDTO struct {
	Forest uint64       `cbor:"1,keyasint"`
	Peaks  []types.Word `cbor:"2,keyasint"`
}

func (s *SqliteStore) marshalHeader(h types.BlockHeader) ([]byte, error) {
	b, err := s.codec.Marshal(headerDTO{
		BlockNum:      h.BlockNum,
		Version:       h.Version,
		PrevHash:      h.PrevHash,
		ChainRoot:     h.ChainRoot,
		AccountRoot:   h.AccountRoot,
		NoteRoot:      h.NoteRoot,
		NullifierRoot: h.NullifierRoot,
		Timestamp:     h.Timestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrSerialization, err)
	}
	return b, nil
}

func (s *SqliteStore) unmarshalHeader(b []byte) (types.BlockHeader, error) {
	var dto headerDTO
	if err := s.codec.Unmarshal(b, &dto); err != nil {
		return types.BlockHeader{}, fmt.Errorf("%w: block header: %v", store.ErrSerialization, err)
	}
	return types.BlockHeader{
		BlockNum:      dto.BlockNum,
		Version:       dto.Version,
		PrevHash:      dto.PrevHash,
		ChainRoot:     dto.ChainRoot,
		AccountRoot:   dto.AccountRoot,
		NoteRoot:      dto.NoteRoot,
		NullifierRoot: dto.NullifierRoot,
		Timestamp:     dto.Timestamp,
	}, nil
}

func (s *SqliteStore) marshalPeaks(dto peaksDTO) ([]byte, error) {
	b, err := s.codec.Marshal(dto)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrSerialization, err)
	}
	return b, nil
}

func (s *SqliteStore) unmarshalPeaks(b []byte) (mmr.MmrPeaks, error) {
	var dto peaksDTO
	if err := s.codec.Unmarshal(b, &dto); err != nil {
		return mmr.MmrPeaks{}, fmt.Errorf("%w: peak snapshot: %v", store.ErrSerialization, err)
	}
	peaks, err := mmr.NewMmrPeaks(dto.Forest, dto.Peaks)
	if err != nil {
		return mmr.MmrPeaks{}, fmt.Errorf("%w: %v", store.ErrDataInconsistency, err)
	}
	return peaks, nil
}

// GetBlockHeader returns a stored header.
func (s *SqliteStore) GetBlockHeader(ctx context.Context, blockNum uint32) (store.BlockHeaderRecord, error) {
	if record, ok := s.headerCache.Get(blockNum); ok {
		return record, nil
	}
	var row struct {
		Header         []byte `db:"header"`
		HasClientNotes bool   `db:"has_client_notes"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT header, has_client_notes FROM block_headers WHERE block_num = ?`, int64(blockNum))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.BlockHeaderRecord{}, fmt.Errorf("%w: block header %d", store.ErrNotFound, blockNum)
		}
		return store.BlockHeaderRecord{}, mapErr(err)
	}
	header, err := s.unmarshalHeader(row.Header)
	if err != nil {
		return store.BlockHeaderRecord{}, err
	}
	record := store.BlockHeaderRecord{Header: header, HasClientNotes: row.HasClientNotes}
	s.headerCache.Add(blockNum, record)
	return record, nil
}

// GetTrackedBlockNums returns the numbers of stored blocks containing
// client notes, ascending. These are exactly the chain MMR leaves whose
// authentication paths the store maintains.
func (s *SqliteStore) GetTrackedBlockNums(ctx context.Context) ([]uint32, error) {
	var rows []int64
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT block_num FROM block_headers WHERE has_client_notes = 1 ORDER BY block_num`); err != nil {
		return nil, mapErr(err)
	}
	nums := make([]uint32, len(rows))
	for i, row := range rows {
		nums[i] = uint32(row)
	}
	return nums, nil
}

// GetMmrPeaks returns the peak snapshot persisted with a block's header.
func (s *SqliteStore) GetMmrPeaks(ctx context.Context, blockNum uint32) (mmr.MmrPeaks, error) {
	var raw []byte
	err := s.db.GetContext(ctx, &raw,
		`SELECT chain_mmr_peaks FROM block_headers WHERE block_num = ?`, int64(blockNum))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mmr.MmrPeaks{}, fmt.Errorf("%w: peaks for block %d", store.ErrNotFound, blockNum)
		}
		return mmr.MmrPeaks{}, mapErr(err)
	}
	return s.unmarshalPeaks(raw)
}

// GetChainMmrNodes returns every stored authentication node.
func (s *SqliteStore) GetChainMmrNodes(ctx context.Context) (map[mmr.InOrderIndex]types.Word, error) {
	var rows []struct {
		Index int64  `db:"in_order_index"`
		Node  string `db:"node"`
	}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT in_order_index, node FROM chain_mmr_nodes`); err != nil {
		return nil, mapErr(err)
	}
	nodes := make(map[mmr.InOrderIndex]types.Word, len(rows))
	for _, row := range rows {
		digest, err := parseWordColumn(row.Node)
		if err != nil {
			return nil, err
		}
		nodes[mmr.InOrderIndex(row.Index)] = digest
	}
	return nodes, nil
}

// insertBlockHeader writes a header with its peak snapshot; re-insertion
// of the same block is idempotent.
func (s *SqliteStore) insertBlockHeader(tx *sqlx.Tx, header types.BlockHeader, hasClientNotes bool, peaks mmr.MmrPeaks) error {
	headerBytes, err := s.marshalHeader(header)
	if err != nil {
		return err
	}
	peakBytes, err := s.marshalPeaks(peaksDTO{Forest: peaks.Forest(), Peaks: peaks.All()})
	if err != nil {
		return err
	}
	_, err = tx.Exec(
		`INSERT INTO block_headers (block_num, header, has_client_notes, chain_mmr_peaks)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (block_num) DO UPDATE SET
			has_client_notes = block_headers.has_client_notes OR excluded.has_client_notes`,
		int64(header.BlockNum), headerBytes, hasClientNotes, peakBytes)
	if err != nil {
		return mapErr(err)
	}
	s.headerCache.Remove(header.BlockNum)
	return nil
}

// insertChainMmrNodes stores authentication nodes; conflicts are success
// because a node digest at a given index never changes.
func (s *SqliteStore) insertChainMmrNodes(tx *sqlx.Tx, nodes []mmr.AuthNode) error {
	for _, node := range nodes {
		if _, err := tx.Exec(
			`INSERT INTO chain_mmr_nodes (in_order_index, node) VALUES (?, ?)
			 ON CONFLICT (in_order_index) DO NOTHING`,
			int64(node.Index), node.Digest.UnprefixedHex()); err != nil {
			return mapErr(err)
		}
	}
	return nil
}
