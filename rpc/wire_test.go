package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-zk/go-meridian-client/mmr"
	"github.com/meridian-zk/go-meridian-client/types"
)

func testAccountId(n uint64) types.AccountId {
	return types.NewAccountId(n, n+1, types.AccountTypeRegularImmutable, types.StoragePublic, 0)
}

func TestSyncStateRequestRoundTrip(t *testing.T) {
	req := SyncStateRequest{
		BlockNum:          17,
		MaxBlocks:         64,
		AccountIds:        []types.AccountId{testAccountId(1), testAccountId(9)},
		Tags:              []types.NoteTag{42, 7},
		NullifierPrefixes: []uint16{0x0001, 0xffee},
	}
	decoded, err := DecodeSyncStateRequest(encodeSyncStateRequest(req))
	require.NoError(t, err)
	assert.Equal(t, req, decoded)
}

func TestSyncStateResponseRoundTrip(t *testing.T) {
	resp := SyncStateResponse{
		ChainTip: 30,
		BlockHeader: types.BlockHeader{
			BlockNum:      21,
			Version:       1,
			PrevHash:      types.WordFromUint64(1, 2, 3, 4),
			ChainRoot:     types.WordFromUint64(5, 6, 7, 8),
			AccountRoot:   types.WordFromUint64(9, 10, 11, 12),
			NoteRoot:      types.WordFromUint64(13, 14, 15, 16),
			NullifierRoot: types.WordFromUint64(17, 18, 19, 20),
			Timestamp:     1700000000,
		},
		MmrDelta: mmr.MmrDelta{
			BaseForest: 20,
			Forest:     22,
			Data:       []types.Word{types.WordFromUint64(1, 1, 1, 1), types.WordFromUint64(2, 2, 2, 2)},
		},
		BlockPath: types.MerklePath{types.WordFromUint64(3, 3, 3, 3)},
		Accounts: []AccountHashUpdate{
			{AccountId: testAccountId(5), Commitment: types.WordFromUint64(4, 4, 4, 4)},
		},
		Notes: []CommittedNoteRecord{
			{
				NoteId:          types.NoteId(types.WordFromUint64(6, 6, 6, 6)),
				NoteIndex:       3,
				Recipient:       types.WordFromUint64(7, 7, 7, 7),
				AssetCommitment: types.WordFromUint64(8, 8, 8, 8),
				Metadata: types.NoteMetadata{
					Sender:        testAccountId(2),
					Tag:           99,
					ExecutionHint: types.NoteExecutionHintAlways,
					Aux:           5,
				},
				MerklePath: types.MerklePath{types.WordFromUint64(9, 9, 9, 9)},
			},
		},
		Nullifiers: []NullifierUpdate{
			{Nullifier: types.Nullifier(types.WordFromUint64(10, 10, 10, 10)), BlockNum: 21},
		},
		Transactions: []TransactionSummary{
			{
				TransactionId: types.TransactionId(types.WordFromUint64(11, 11, 11, 11)),
				AccountId:     testAccountId(5),
				BlockNum:      21,
			},
		},
	}
	decoded, err := decodeSyncStateResponse(EncodeSyncStateResponse(resp))
	require.NoError(t, err)
	assert.Equal(t, resp, decoded)
}

func TestProvenTransactionRoundTrip(t *testing.T) {
	tx := ProvenTransaction{
		Id:                  types.TransactionId(types.WordFromUint64(1, 2, 3, 4)),
		AccountId:           testAccountId(3),
		InitialAccountState: types.WordFromUint64(5, 5, 5, 5),
		FinalAccountState:   types.WordFromUint64(6, 6, 6, 6),
		InputNoteIds:        []types.NoteId{types.NoteId(types.WordFromUint64(7, 7, 7, 7))},
		OutputNoteIds:       []types.NoteId{types.NoteId(types.WordFromUint64(8, 8, 8, 8))},
		ScriptRoot:          types.WordFromUint64(9, 9, 9, 9),
		BlockRef:            12,
		Proof:               []byte{0xde, 0xad, 0xbe, 0xef},
	}
	decoded, err := DecodeProvenTransaction(encodeProvenTransaction(tx))
	require.NoError(t, err)
	assert.Equal(t, tx, decoded)
}

func TestNoteDetailsOptionalProof(t *testing.T) {
	notes := []NoteDetails{
		{
			NoteId:          types.NoteId(types.WordFromUint64(1, 1, 1, 1)),
			Recipient:       types.WordFromUint64(2, 2, 2, 2),
			AssetCommitment: types.WordFromUint64(3, 3, 3, 3),
			SerialNumber:    types.WordFromUint64(4, 4, 4, 4),
			Metadata:        types.NoteMetadata{Sender: testAccountId(1), Tag: 1},
		},
		{
			NoteId:          types.NoteId(types.WordFromUint64(5, 5, 5, 5)),
			Recipient:       types.WordFromUint64(6, 6, 6, 6),
			AssetCommitment: types.WordFromUint64(7, 7, 7, 7),
			SerialNumber:    types.WordFromUint64(8, 8, 8, 8),
			Metadata:        types.NoteMetadata{Sender: testAccountId(2), Tag: 2},
			InclusionProof: &types.NoteInclusionProof{
				BlockNum:  9,
				SubHash:   types.WordFromUint64(10, 10, 10, 10),
				NoteRoot:  types.WordFromUint64(11, 11, 11, 11),
				NoteIndex: 1,
				Path:      types.MerklePath{types.WordFromUint64(12, 12, 12, 12)},
			},
		},
	}
	decoded, err := decodeNoteDetailsList(EncodeNoteDetailsList(notes))
	require.NoError(t, err)
	assert.Equal(t, notes, decoded)
}

func TestDecodeTruncatedPayload(t *testing.T) {
	body := EncodeSyncStateResponse(SyncStateResponse{ChainTip: 5})
	_, err := decodeSyncStateResponse(body[:len(body)-3])
	assert.ErrorIs(t, err, ErrMalformedPayload)
}
