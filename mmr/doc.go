// Package mmr implements the partial Merkle Mountain Range the client keeps
// over block hashes.
//
// # Why a partial accumulator
//
// The chain MMR grows by one leaf per block, forever. A light client cannot
// (and does not want to) hold the whole structure: it needs the current
// peaks, which commit the entire history in O(log n) digests, plus just
// enough interior nodes to open inclusion proofs for the handful of blocks
// it actually cares about - the blocks that contain its notes. Everything
// else is dead weight.
//
// PartialMmr therefore keeps three things:
//
//   - forest: the leaf count, whose binary decomposition describes the
//     shape of the peak forest
//   - peaks: one digest per set bit of forest, highest tree first
//   - nodes: a sparse map from in-order index to digest holding the sibling
//     paths of tracked leaves
//
// # In-order indexing
//
// Every node is addressed by its index in the in-order traversal of an
// infinite binary tree. A leaf at 0 based position p sits at index 2p, so
// leaves always land on even indices:
//
//	2                3
//	               /   \
//	              /     \
//	1            1       5        9
//	            / \     / \      / \
//	0          0   2   4   6    8   10
//	leaf pos   0   1   2   3    4   5
//
// The payoff is that a node's height, sibling and parent are pure bit
// arithmetic on its index, independent of the forest size:
//
//   - the height of index i is the number of trailing one bits of i
//   - a node at height h is a left child iff bit h+1 of i is clear
//   - the sibling is i +/- 2^(h+1), the parent i +/- 2^h
//
// This is why the authentication node map is keyed by in-order index rather
// than by (leaf, depth): the key never changes as the forest grows, so
// nodes recorded years apart compose into one path with no translation.
//
// # Growing the forest
//
// Appending leaves only ever merges trees "to the right": when a delta
// extends the forest, the appended leaf range decomposes into aligned
// power-of-two blocks, each block's root is one delta datum, and the blocks
// fold into the existing peaks with the same carry propagation as binary
// addition. Every merge pairs two sibling subtrees; whichever side shelters
// a tracked leaf records the other side as a new authentication node. That
// single rule keeps the path-completeness invariant - every tracked leaf
// has its full sibling path - across arbitrary extensions.
//
// The accumulator is strictly append only. There is no reorg handling here:
// leaves are never removed or rewritten.
package mmr
