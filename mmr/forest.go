package mmr

import "math/bits"

// The forest is just the leaf count. Its binary decomposition gives the
// peak trees directly: one perfect tree of 2^h leaves per set bit h,
// ordered highest first, left to right. All the shape questions below are
// answered by walking those bits.

// NumPeaks returns the number of peak trees in a forest.
func NumPeaks(forest uint64) int {
	return bits.OnesCount64(forest)
}

// PeakHeights returns the heights of the peak trees, highest (leftmost)
// first.
func PeakHeights(forest uint64) []uint64 {
	heights := make([]uint64, 0, bits.OnesCount64(forest))
	for h := 63; h >= 0; h-- {
		if forest&(1<<uint(h)) != 0 {
			heights = append(heights, uint64(h))
		}
	}
	return heights
}

// PeakOfLeaf locates the peak tree containing the given leaf position.
// It returns the peak's index into the peak list, the tree's height (which
// is also the length of the leaf's path to the peak root) and the position
// of the tree's leftmost leaf.
func PeakOfLeaf(forest, pos uint64) (peakIndex int, height uint64, startLeaf uint64, ok bool) {
	if pos >= forest {
		return 0, 0, 0, false
	}
	start := uint64(0)
	index := 0
	for h := 63; h >= 0; h-- {
		if forest&(1<<uint(h)) == 0 {
			continue
		}
		size := uint64(1) << uint(h)
		if pos < start+size {
			return index, uint64(h), start, true
		}
		start += size
		index++
	}
	// unreachable: pos < forest guarantees a containing tree
	return 0, 0, 0, false
}

// LeafBlock is one aligned power-of-two run of leaves.
type LeafBlock struct {
	StartLeaf uint64
	Height    uint64
}

// LeafBlocks decomposes the leaf range [from, to) into the maximal aligned
// power-of-two blocks, in ascending position order. This is the canonical
// decomposition a delta's data follows: one subtree root per block.
//
// For example [1, 8) decomposes into blocks of 1, 2 and 4 leaves starting
// at 1, 2 and 4 respectively.
func LeafBlocks(from, to uint64) []LeafBlock {
	var blocks []LeafBlock
	for from < to {
		h := uint64(bits.TrailingZeros64(from))
		if from == 0 {
			h = 63
		}
		for uint64(1)<<h > to-from {
			h--
		}
		blocks = append(blocks, LeafBlock{StartLeaf: from, Height: h})
		from += uint64(1) << h
	}
	return blocks
}
