package sync

import (
	"sort"

	"github.com/meridian-zk/go-meridian-client/rpc"
	"github.com/meridian-zk/go-meridian-client/store"
	"github.com/meridian-zk/go-meridian-client/types"
)

// NullifierPrefixes computes the deduplicated 16 bit prefixes of the
// tracked nullifiers, sorted for request stability. Zero nullifiers mark
// notes whose details are not known yet and are skipped: their spend
// cannot be observed anyway.
func NullifierPrefixes(nullifiers []types.Nullifier) []uint16 {
	seen := make(map[uint16]struct{}, len(nullifiers))
	for _, n := range nullifiers {
		if types.Word(n).IsZero() {
			continue
		}
		seen[n.Prefix16()] = struct{}{}
	}
	prefixes := make([]uint16, 0, len(seen))
	for p := range seen {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool { return prefixes[i] < prefixes[j] })
	return prefixes
}

// MatchNullifiers filters the response's nullifier updates down to exact
// matches against the tracked set. Prefix-only matches are the expected
// false positives of the bandwidth reduction scheme and are dropped
// silently.
func MatchNullifiers(tracked []types.Nullifier, updates []rpc.NullifierUpdate) []store.ConsumedNote {
	trackedSet := make(map[types.Nullifier]struct{}, len(tracked))
	for _, n := range tracked {
		trackedSet[n] = struct{}{}
	}
	var consumed []store.ConsumedNote
	for _, update := range updates {
		if _, ok := trackedSet[update.Nullifier]; !ok {
			continue
		}
		consumed = append(consumed, store.ConsumedNote{
			Nullifier: update.Nullifier,
			BlockNum:  update.BlockNum,
		})
	}
	return consumed
}
