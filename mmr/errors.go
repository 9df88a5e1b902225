package mmr

import "errors"

var (
	// ErrInvalidPeaks is returned when a peak set does not match the shape
	// implied by its forest.
	ErrInvalidPeaks = errors.New("peak count does not match the forest")

	// ErrStaleDelta is returned when a delta was produced against a forest
	// other than the accumulator's current one.
	ErrStaleDelta = errors.New("delta base forest does not match the accumulator")

	// ErrInconsistentDelta is returned when a delta's data cannot bridge
	// the old peaks to the claimed new forest.
	ErrInconsistentDelta = errors.New("delta data is inconsistent with the claimed forest")

	// ErrUntrackedLeaf is returned by Open when the sibling path for the
	// requested leaf is not held locally.
	ErrUntrackedLeaf = errors.New("leaf is not tracked")

	// ErrInvalidProof is returned by Add when the supplied path does not
	// hash to an existing peak.
	ErrInvalidProof = errors.New("merkle path does not hash to a current peak")

	// ErrLeafOutOfRange is returned when a leaf position lies beyond the
	// current forest.
	ErrLeafOutOfRange = errors.New("leaf position is outside the forest")
)
