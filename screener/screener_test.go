package screener

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-zk/go-meridian-client/rpc"
	"github.com/meridian-zk/go-meridian-client/store"
	"github.com/meridian-zk/go-meridian-client/store/sqlitestore"
	"github.com/meridian-zk/go-meridian-client/types"
)

type staticRecipients []types.Word

func (r staticRecipients) RecipientDigests(context.Context) ([]types.Word, error) {
	return r, nil
}

func openStore(t *testing.T) *sqlitestore.SqliteStore {
	t.Helper()
	s, err := sqlitestore.Open(filepath.Join(t.TempDir(), "client.db"), types.NewTestHasher(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func candidate(tag types.NoteTag) rpc.CommittedNoteRecord {
	return rpc.CommittedNoteRecord{
		NoteId:          types.NoteId(types.WordFromUint64(1, 2, 3, 4)),
		Recipient:       types.WordFromUint64(5, 6, 7, 8),
		AssetCommitment: types.WordFromUint64(9, 10, 11, 12),
		Metadata:        types.NoteMetadata{Tag: tag},
	}
}

func TestClassifyUserTag(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.AddNoteTag(ctx, store.NoteTagRecord{Tag: 42, Source: types.UserTagSource()})
	require.NoError(t, err)

	scr := New(s, nil, nil)
	verdict, err := scr.Classify(ctx, candidate(42))
	require.NoError(t, err)
	assert.Equal(t, Relevant, verdict)

	verdict, err = scr.Classify(ctx, candidate(43))
	require.NoError(t, err)
	assert.Equal(t, Ignored, verdict)
}

func TestClassifyRecipientKeyMatch(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	note := candidate(1)
	scr := New(s, staticRecipients{note.Recipient}, nil)
	verdict, err := scr.Classify(ctx, note)
	require.NoError(t, err)
	assert.Equal(t, Relevant, verdict)

	scr = New(s, staticRecipients{types.WordFromUint64(0xff, 0, 0, 0)}, nil)
	verdict, err = scr.Classify(ctx, note)
	require.NoError(t, err)
	assert.Equal(t, Ignored, verdict)
}

func TestClassifyExpectedNoteTag(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	note := candidate(9)
	_, err := s.AddNoteTag(ctx, store.NoteTagRecord{
		Tag:    9,
		Source: types.NoteTagSourceForNote(note.NoteId),
	})
	require.NoError(t, err)

	scr := New(s, nil, nil)
	verdict, err := scr.Classify(ctx, note)
	require.NoError(t, err)
	assert.Equal(t, Relevant, verdict)

	// Same tag, different note id: not ours.
	other := candidate(9)
	other.NoteId = types.NoteId(types.WordFromUint64(0xdead, 0, 0, 0))
	verdict, err = scr.Classify(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, Ignored, verdict)
}

func TestClassifyAccountTagNeedsTrackedAccount(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	accountId := types.NewAccountId(1, 2, types.AccountTypeRegularImmutable, types.StoragePrivate, 0)
	_, err := s.AddNoteTag(ctx, store.NoteTagRecord{
		Tag:    types.NoteTagForAccount(accountId),
		Source: types.AccountTagSource(accountId),
	})
	require.NoError(t, err)

	scr := New(s, nil, nil)

	// Tag present but the account is not stored: ignored.
	verdict, err := scr.Classify(ctx, candidate(types.NoteTagForAccount(accountId)))
	require.NoError(t, err)
	assert.Equal(t, Ignored, verdict)

	account := types.Account{
		Id:      accountId,
		Code:    types.AccountCode{Root: types.WordFromUint64(1, 0, 0, 0)},
		Storage: types.AccountStorage{Root: types.WordFromUint64(2, 0, 0, 0)},
		Vault:   types.AccountVault{Root: types.WordFromUint64(3, 0, 0, 0)},
	}
	auth := store.AuthInfo{Scheme: store.AuthSchemeFalcon512, Key: []byte("k")}
	require.NoError(t, s.InsertAccount(ctx, account, nil, auth))

	verdict, err = scr.Classify(ctx, candidate(types.NoteTagForAccount(accountId)))
	require.NoError(t, err)
	assert.Equal(t, Relevant, verdict)
}
