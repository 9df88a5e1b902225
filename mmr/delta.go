package mmr

import "github.com/meridian-zk/go-meridian-client/types"

// MmrDelta bridges an accumulator from one forest to a larger one. Data
// holds exactly one digest per block of the canonical LeafBlocks
// decomposition of the appended range [BaseForest, Forest), in ascending
// position order: the root of each appended aligned subtree.
//
// Carrying the base forest explicitly makes staleness a cheap equality
// check instead of a failed hash verification deep inside Apply.
type MmrDelta struct {
	BaseForest uint64
	Forest     uint64
	Data       []types.Word
}

// IsEmpty reports whether the delta appends nothing.
func (d MmrDelta) IsEmpty() bool { return d.Forest == d.BaseForest }

// AuthNode is one authentication node: a digest at its in-order index.
// Apply and Add return the nodes they newly recorded so the caller can
// persist them.
type AuthNode struct {
	Index  InOrderIndex
	Digest types.Word
}
