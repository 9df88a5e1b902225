package mmr

import (
	"fmt"

	"github.com/meridian-zk/go-meridian-client/types"
)

// MmrPeaks is a snapshot of an accumulator: the forest (leaf count) and the
// root digest of each peak tree, highest tree first.
type MmrPeaks struct {
	forest uint64
	peaks  []types.Word
}

// NewMmrPeaks validates that the peak list matches the forest shape: one
// digest per set bit.
func NewMmrPeaks(forest uint64, peaks []types.Word) (MmrPeaks, error) {
	if len(peaks) != NumPeaks(forest) {
		return MmrPeaks{}, fmt.Errorf(
			"%w: forest %d needs %d peaks, got %d", ErrInvalidPeaks, forest, NumPeaks(forest), len(peaks))
	}
	cp := make([]types.Word, len(peaks))
	copy(cp, peaks)
	return MmrPeaks{forest: forest, peaks: cp}, nil
}

// EmptyPeaks is the snapshot of an accumulator with no leaves.
func EmptyPeaks() MmrPeaks {
	return MmrPeaks{}
}

// Forest returns the leaf count.
func (p MmrPeaks) Forest() uint64 { return p.forest }

// NumLeaves returns the leaf count.
func (p MmrPeaks) NumLeaves() uint64 { return p.forest }

// NumPeaks returns the number of peak trees.
func (p MmrPeaks) NumPeaks() int { return len(p.peaks) }

// All returns a copy of the peak digests, highest tree first.
func (p MmrPeaks) All() []types.Word {
	cp := make([]types.Word, len(p.peaks))
	copy(cp, p.peaks)
	return cp
}

// Get returns the i-th peak digest.
func (p MmrPeaks) Get(i int) types.Word { return p.peaks[i] }

// HashPeaks flattens the peaks into a single commitment.
func (p MmrPeaks) HashPeaks(h types.Hasher) types.Word {
	elements := make([]types.Felt, 0, 4*len(p.peaks)+1)
	elements = append(elements, types.Felt(p.forest))
	for _, peak := range p.peaks {
		elements = append(elements, peak.Elements()...)
	}
	return h.HashElements(elements)
}
