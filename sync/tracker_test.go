package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridian-zk/go-meridian-client/rpc"
	"github.com/meridian-zk/go-meridian-client/store"
	"github.com/meridian-zk/go-meridian-client/types"
)

func trackerFixture() (store.TransactionRecord, map[types.NoteId]types.Nullifier) {
	noteId := types.NoteId(types.WordFromUint64(1, 0, 0, 0))
	nullifier := types.Nullifier(types.WordFromUint64(2, 0, 0, 0))
	tx := store.TransactionRecord{
		Id:             types.TransactionId(types.WordFromUint64(3, 0, 0, 0)),
		InputNoteIds:   []types.NoteId{noteId},
		SubmitBlockNum: 10,
	}
	return tx, map[types.NoteId]types.Nullifier{noteId: nullifier}
}

func TestTrackerCommits(t *testing.T) {
	tx, nullifiers := trackerFixture()
	tracker := NewTransactionTracker(0)

	commits, discards := tracker.Reconcile(
		[]store.TransactionRecord{tx},
		[]rpc.TransactionSummary{{TransactionId: tx.Id, BlockNum: 12}},
		nil, nullifiers, 12)

	assert.Len(t, commits, 1)
	assert.Equal(t, uint32(12), commits[0].BlockNum)
	assert.Empty(t, discards)
}

func TestTrackerDiscardsAfterGrace(t *testing.T) {
	tx, nullifiers := trackerFixture()
	tracker := NewTransactionTracker(0)
	consumed := map[types.Nullifier]struct{}{
		nullifiers[tx.InputNoteIds[0]]: {},
	}

	// Inside the window: still pending.
	commits, discards := tracker.Reconcile(
		[]store.TransactionRecord{tx}, nil, consumed, nullifiers, tx.SubmitBlockNum+DefaultDiscardGrace)
	assert.Empty(t, commits)
	assert.Empty(t, discards)

	// One block past the window: discarded.
	_, discards = tracker.Reconcile(
		[]store.TransactionRecord{tx}, nil, consumed, nullifiers, tx.SubmitBlockNum+DefaultDiscardGrace+1)
	assert.Len(t, discards, 1)
	assert.Equal(t, tx.Id, discards[0].TransactionId)
}

func TestTrackerLeavesUntouchedInputsPending(t *testing.T) {
	tx, nullifiers := trackerFixture()
	tracker := NewTransactionTracker(0)

	// No consumed nullifiers at all: pending forever, however late.
	commits, discards := tracker.Reconcile(
		[]store.TransactionRecord{tx}, nil, nil, nullifiers, tx.SubmitBlockNum+100)
	assert.Empty(t, commits)
	assert.Empty(t, discards)
}

func TestNullifierPrefixes(t *testing.T) {
	n1 := types.Nullifier(types.WordFromUint64(0, 0, 0, 0xaaaa_0000_0000_0000))
	n2 := types.Nullifier(types.WordFromUint64(1, 0, 0, 0xaaaa_0000_0000_0000))
	n3 := types.Nullifier(types.WordFromUint64(0, 0, 0, 0x1111_0000_0000_0000))

	prefixes := NullifierPrefixes([]types.Nullifier{n1, n2, n3, {}})
	assert.Equal(t, []uint16{0x1111, 0xaaaa}, prefixes)
}

func TestMatchNullifiersDropsFalsePositives(t *testing.T) {
	tracked := types.Nullifier(types.WordFromUint64(5, 0, 0, 0xaaaa_0000_0000_0000))
	falsePositive := types.Nullifier(types.WordFromUint64(6, 0, 0, 0xaaaa_0000_0000_0000))

	consumed := MatchNullifiers(
		[]types.Nullifier{tracked},
		[]rpc.NullifierUpdate{
			{Nullifier: falsePositive, BlockNum: 4},
			{Nullifier: tracked, BlockNum: 4},
		})
	assert.Len(t, consumed, 1)
	assert.Equal(t, tracked, consumed[0].Nullifier)
}
