package mmr

import (
	"fmt"
	"sort"

	"github.com/meridian-zk/go-meridian-client/types"
)

// PartialMmr is the selective accumulator described in the package
// documentation: current peaks plus the sibling paths of tracked leaves.
// All operations are pure in-memory computation; persistence of the peaks
// and authentication nodes is the store's business.
type PartialMmr struct {
	hasher  types.Hasher
	forest  uint64
	peaks   []types.Word
	nodes   map[InOrderIndex]types.Word
	tracked map[uint64]struct{}
}

// FromPeaks initializes an accumulator at the given snapshot with no
// tracked leaves.
func FromPeaks(h types.Hasher, peaks MmrPeaks) *PartialMmr {
	return &PartialMmr{
		hasher:  h,
		forest:  peaks.forest,
		peaks:   peaks.All(),
		nodes:   make(map[InOrderIndex]types.Word),
		tracked: make(map[uint64]struct{}),
	}
}

// Restore rebuilds an accumulator from persisted parts: a peak snapshot,
// the stored authentication nodes and the positions of tracked leaves.
func Restore(h types.Hasher, peaks MmrPeaks, nodes map[InOrderIndex]types.Word, trackedLeaves []uint64) *PartialMmr {
	m := FromPeaks(h, peaks)
	for idx, digest := range nodes {
		m.nodes[idx] = digest
	}
	for _, pos := range trackedLeaves {
		if pos < m.forest {
			m.tracked[pos] = struct{}{}
		}
	}
	return m
}

// Forest returns the current leaf count.
func (m *PartialMmr) Forest() uint64 { return m.forest }

// Peaks returns a snapshot of the current peaks.
func (m *PartialMmr) Peaks() MmrPeaks {
	cp := make([]types.Word, len(m.peaks))
	copy(cp, m.peaks)
	return MmrPeaks{forest: m.forest, peaks: cp}
}

// IsTracked reports whether the leaf at pos is tracked.
func (m *PartialMmr) IsTracked(pos uint64) bool {
	_, ok := m.tracked[pos]
	return ok
}

// TrackedLeaves returns the tracked leaf positions in ascending order.
func (m *PartialMmr) TrackedLeaves() []uint64 {
	out := make([]uint64, 0, len(m.tracked))
	for pos := range m.tracked {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Add records leafHash at leafPos as tracked, verifying path against the
// current peaks and absorbing its siblings into the authentication node
// map. It returns the nodes that were newly recorded.
//
// The path must run from the leaf to the root of the peak tree containing
// it, so its length must equal that tree's height.
func (m *PartialMmr) Add(leafPos uint64, leafHash types.Word, path types.MerklePath) ([]AuthNode, error) {
	peakIndex, height, _, ok := PeakOfLeaf(m.forest, leafPos)
	if !ok {
		return nil, fmt.Errorf("%w: leaf %d, forest %d", ErrLeafOutOfRange, leafPos, m.forest)
	}
	if uint64(len(path)) != height {
		return nil, fmt.Errorf(
			"%w: leaf %d needs a path of %d nodes, got %d", ErrInvalidProof, leafPos, height, len(path))
	}

	root := path.Root(m.hasher, leafPos, leafHash)
	if root != m.peaks[peakIndex] {
		return nil, fmt.Errorf("%w: leaf %d", ErrInvalidProof, leafPos)
	}

	var added []AuthNode
	record := func(idx InOrderIndex, digest types.Word) {
		if existing, ok := m.nodes[idx]; ok && existing == digest {
			return
		}
		m.nodes[idx] = digest
		added = append(added, AuthNode{Index: idx, Digest: digest})
	}

	idx := LeafIndex(leafPos)
	record(idx, leafHash)
	for _, sibling := range path {
		record(idx.Sibling(), sibling)
		idx = idx.Parent()
	}

	m.tracked[leafPos] = struct{}{}
	return added, nil
}

// Apply extends the accumulator with a delta. It verifies the delta is
// anchored at the current forest and shaped like the canonical block
// decomposition, records every authentication node newly required by
// tracked leaves, and replaces the peaks. The recorded nodes are returned
// for persistence.
func (m *PartialMmr) Apply(delta MmrDelta) ([]AuthNode, error) {
	if delta.BaseForest != m.forest || delta.Forest < m.forest {
		return nil, fmt.Errorf(
			"%w: delta %d -> %d, accumulator at %d", ErrStaleDelta, delta.BaseForest, delta.Forest, m.forest)
	}
	if delta.Forest == m.forest {
		if len(delta.Data) != 0 {
			return nil, fmt.Errorf("%w: empty extension carries %d nodes", ErrInconsistentDelta, len(delta.Data))
		}
		return nil, nil
	}

	blocks := LeafBlocks(m.forest, delta.Forest)
	if len(delta.Data) != len(blocks) {
		return nil, fmt.Errorf(
			"%w: range [%d,%d) decomposes into %d blocks, delta carries %d nodes",
			ErrInconsistentDelta, m.forest, delta.Forest, len(blocks), len(delta.Data))
	}

	type subtree struct {
		startLeaf uint64
		height    uint64
		digest    types.Word
	}

	// Seed the merge stack with the current peaks.
	var stack []subtree
	start := uint64(0)
	for _, h := range PeakHeights(m.forest) {
		stack = append(stack, subtree{startLeaf: start, height: h, digest: m.peaks[len(stack)]})
		start += uint64(1) << h
	}

	var added []AuthNode
	record := func(idx InOrderIndex, digest types.Word) {
		if existing, ok := m.nodes[idx]; ok && existing == digest {
			return
		}
		m.nodes[idx] = digest
		added = append(added, AuthNode{Index: idx, Digest: digest})
	}

	// Push each appended block, carrying merges like binary addition. Each
	// merge pairs two sibling subtrees; the side sheltering a tracked leaf
	// needs the other side on its path.
	for i, block := range blocks {
		stack = append(stack, subtree{startLeaf: block.StartLeaf, height: block.Height, digest: delta.Data[i]})
		for len(stack) >= 2 && stack[len(stack)-1].height == stack[len(stack)-2].height {
			right := stack[len(stack)-1]
			left := stack[len(stack)-2]
			stack = stack[:len(stack)-2]

			if m.trackedIn(left.startLeaf, left.height) {
				record(SubtreeRootIndex(right.startLeaf, right.height), right.digest)
			}
			if m.trackedIn(right.startLeaf, right.height) {
				record(SubtreeRootIndex(left.startLeaf, left.height), left.digest)
			}

			stack = append(stack, subtree{
				startLeaf: left.startLeaf,
				height:    left.height + 1,
				digest:    m.hasher.MergeWords(left.digest, right.digest),
			})
		}
	}

	if len(stack) != NumPeaks(delta.Forest) {
		return nil, fmt.Errorf(
			"%w: merge produced %d peaks, forest %d needs %d",
			ErrInconsistentDelta, len(stack), delta.Forest, NumPeaks(delta.Forest))
	}

	peaks := make([]types.Word, len(stack))
	for i, st := range stack {
		peaks[i] = st.digest
	}
	m.peaks = peaks
	m.forest = delta.Forest
	return added, nil
}

// Open assembles the inclusion proof of a leaf from the stored
// authentication nodes, returning the leaf digest and the path to the
// current peak committing it. Any leaf whose digest and sibling path are
// held opens, including an untracked leaf stored as a tracked leaf's
// sibling; otherwise Open fails with ErrUntrackedLeaf.
func (m *PartialMmr) Open(leafPos uint64) (types.Word, types.MerklePath, error) {
	_, height, _, ok := PeakOfLeaf(m.forest, leafPos)
	if !ok {
		return types.Word{}, nil, fmt.Errorf("%w: leaf %d, forest %d", ErrLeafOutOfRange, leafPos, m.forest)
	}

	idx := LeafIndex(leafPos)
	leaf, ok := m.nodes[idx]
	if !ok {
		return types.Word{}, nil, fmt.Errorf("%w: leaf %d", ErrUntrackedLeaf, leafPos)
	}

	path := make(types.MerklePath, 0, height)
	for d := uint64(0); d < height; d++ {
		sibling, ok := m.nodes[idx.Sibling()]
		if !ok {
			return types.Word{}, nil, fmt.Errorf(
				"%w: leaf %d is missing the sibling at index %d", ErrUntrackedLeaf, leafPos, idx.Sibling())
		}
		path = append(path, sibling)
		idx = idx.Parent()
	}
	return leaf, path, nil
}

// trackedIn reports whether any tracked leaf lies in the aligned block of
// 2^height leaves starting at startLeaf.
func (m *PartialMmr) trackedIn(startLeaf, height uint64) bool {
	end := startLeaf + uint64(1)<<height
	for pos := range m.tracked {
		if pos >= startLeaf && pos < end {
			return true
		}
	}
	return false
}
