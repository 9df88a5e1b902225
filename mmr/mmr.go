package mmr

import (
	"fmt"

	"github.com/meridian-zk/go-meridian-client/types"
)

// Mmr is a complete in-memory accumulator holding every node. The partial
// accumulator is what ships in the client; the full one exists to produce
// deltas, reference proofs and fixtures - a mock node in miniature. It
// follows the same back fill approach as the flat-storage variant: adding a
// leaf immediately completes every subtree the leaf closes.
type Mmr struct {
	hasher types.Hasher
	leaves []types.Word
	nodes  map[InOrderIndex]types.Word
}

// NewMmr creates an empty accumulator.
func NewMmr(h types.Hasher) *Mmr {
	return &Mmr{hasher: h, nodes: make(map[InOrderIndex]types.Word)}
}

// Forest returns the leaf count.
func (m *Mmr) Forest() uint64 { return uint64(len(m.leaves)) }

// AddLeaf appends a leaf, back filling every interior node the new leaf
// completes, and returns the leaf's position.
func (m *Mmr) AddLeaf(leaf types.Word) uint64 {
	pos := uint64(len(m.leaves))
	m.leaves = append(m.leaves, leaf)
	m.nodes[LeafIndex(pos)] = leaf

	// Every trailing zero bit of the new leaf count closes one more
	// subtree ending at this leaf.
	count := pos + 1
	for h := uint64(1); count&(1<<h-1) == 0; h++ {
		start := count - 1<<h
		left := m.nodes[SubtreeRootIndex(start, h-1)]
		right := m.nodes[SubtreeRootIndex(start+1<<(h-1), h-1)]
		m.nodes[SubtreeRootIndex(start, h)] = m.hasher.MergeWords(left, right)
	}
	return pos
}

// Node returns the digest stored at an in-order index.
func (m *Mmr) Node(idx InOrderIndex) (types.Word, bool) {
	w, ok := m.nodes[idx]
	return w, ok
}

// Peaks returns the snapshot at the current forest.
func (m *Mmr) Peaks() MmrPeaks {
	peaks, _ := m.PeaksAt(m.Forest())
	return peaks
}

// PeaksAt returns the snapshot the accumulator had when it held forest
// leaves. Works for any past forest because completed subtrees are never
// rewritten.
func (m *Mmr) PeaksAt(forest uint64) (MmrPeaks, error) {
	if forest > m.Forest() {
		return MmrPeaks{}, fmt.Errorf("%w: forest %d exceeds %d", ErrLeafOutOfRange, forest, m.Forest())
	}
	peaks := make([]types.Word, 0, NumPeaks(forest))
	start := uint64(0)
	for _, h := range PeakHeights(forest) {
		peaks = append(peaks, m.nodes[SubtreeRootIndex(start, h)])
		start += uint64(1) << h
	}
	return MmrPeaks{forest: forest, peaks: peaks}, nil
}

// OpenAt returns the merkle path for the leaf at pos against the snapshot
// at the given forest.
func (m *Mmr) OpenAt(forest, pos uint64) (types.MerklePath, error) {
	_, height, _, ok := PeakOfLeaf(forest, pos)
	if !ok {
		return nil, fmt.Errorf("%w: leaf %d, forest %d", ErrLeafOutOfRange, pos, forest)
	}
	idx := LeafIndex(pos)
	path := make(types.MerklePath, 0, height)
	for d := uint64(0); d < height; d++ {
		path = append(path, m.nodes[idx.Sibling()])
		idx = idx.Parent()
	}
	return path, nil
}

// Open returns the merkle path for the leaf at pos against the current
// forest.
func (m *Mmr) Open(pos uint64) (types.MerklePath, error) {
	return m.OpenAt(m.Forest(), pos)
}

// DeltaFrom produces the delta bridging baseForest to the current forest:
// the canonical block decomposition of the appended range with one subtree
// root per block.
func (m *Mmr) DeltaFrom(baseForest uint64) (MmrDelta, error) {
	if baseForest > m.Forest() {
		return MmrDelta{}, fmt.Errorf("%w: base forest %d exceeds %d", ErrLeafOutOfRange, baseForest, m.Forest())
	}
	blocks := LeafBlocks(baseForest, m.Forest())
	data := make([]types.Word, len(blocks))
	for i, b := range blocks {
		data[i] = m.nodes[SubtreeRootIndex(b.StartLeaf, b.Height)]
	}
	return MmrDelta{BaseForest: baseForest, Forest: m.Forest(), Data: data}, nil
}

// DeltaBetween produces the delta bridging baseForest to newForest, both of
// which must be at or below the current forest.
func (m *Mmr) DeltaBetween(baseForest, newForest uint64) (MmrDelta, error) {
	if newForest > m.Forest() || baseForest > newForest {
		return MmrDelta{}, fmt.Errorf(
			"%w: delta %d -> %d, forest %d", ErrLeafOutOfRange, baseForest, newForest, m.Forest())
	}
	blocks := LeafBlocks(baseForest, newForest)
	data := make([]types.Word, len(blocks))
	for i, b := range blocks {
		data[i] = m.nodes[SubtreeRootIndex(b.StartLeaf, b.Height)]
	}
	return MmrDelta{BaseForest: baseForest, Forest: newForest, Data: data}, nil
}
