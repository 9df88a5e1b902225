package client

import (
	"context"
	"fmt"

	"github.com/meridian-zk/go-meridian-client/mmr"
	"github.com/meridian-zk/go-meridian-client/store"
	"github.com/meridian-zk/go-meridian-client/types"
)

// GetSyncHeight returns the block the client is synced to.
func (c *Client) GetSyncHeight(ctx context.Context) (uint32, error) {
	return c.store.GetSyncHeight(ctx)
}

// GetBlockHeader returns a locally stored block header.
func (c *Client) GetBlockHeader(ctx context.Context, blockNum uint32) (store.BlockHeaderRecord, error) {
	return c.store.GetBlockHeader(ctx, blockNum)
}

// BuildPartialMmr assembles a partial accumulator proving the inclusion of
// the given blocks, from the stored peaks and authentication nodes. This
// is what transaction construction feeds to the prover: the minimal
// authenticated view covering the notes being consumed.
func (c *Client) BuildPartialMmr(ctx context.Context, blockNums []uint32) (*mmr.PartialMmr, error) {
	lastBlock, err := c.store.GetSyncHeight(ctx)
	if err != nil {
		return nil, err
	}
	peaks, err := c.store.GetMmrPeaks(ctx, lastBlock)
	if err != nil {
		return nil, err
	}
	nodes, err := c.store.GetChainMmrNodes(ctx)
	if err != nil {
		return nil, err
	}

	partial := mmr.FromPeaks(c.hasher, peaks)
	for _, blockNum := range blockNums {
		record, err := c.store.GetBlockHeader(ctx, blockNum)
		if err != nil {
			return nil, err
		}
		leaf := record.Header.Hash(c.hasher)

		// Walk the stored sibling nodes up to the peak; a gap means the
		// block was never tracked.
		_, height, _, ok := mmr.PeakOfLeaf(peaks.Forest(), uint64(blockNum))
		if !ok {
			return nil, fmt.Errorf("%w: block %d beyond forest %d", mmr.ErrLeafOutOfRange, blockNum, peaks.Forest())
		}
		idx := mmr.LeafIndex(uint64(blockNum))
		path := make(types.MerklePath, 0, height)
		for d := uint64(0); d < height; d++ {
			sibling, ok := nodes[idx.Sibling()]
			if !ok {
				return nil, fmt.Errorf("%w: block %d", mmr.ErrUntrackedLeaf, blockNum)
			}
			path = append(path, sibling)
			idx = idx.Parent()
		}
		if _, err := partial.Add(uint64(blockNum), leaf, path); err != nil {
			return nil, err
		}
	}
	return partial, nil
}
