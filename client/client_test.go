package client

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-zk/go-meridian-client/rpc"
	"github.com/meridian-zk/go-meridian-client/store"
	"github.com/meridian-zk/go-meridian-client/store/sqlitestore"
	"github.com/meridian-zk/go-meridian-client/types"
)

// stubNode answers the minimum the facade needs.
type stubNode struct {
	submitted []rpc.ProvenTransaction
	chainTip  uint32
}

var _ rpc.NodeClient = (*stubNode)(nil)

func (s *stubNode) SyncState(_ context.Context, req rpc.SyncStateRequest) (rpc.SyncStateResponse, error) {
	return rpc.SyncStateResponse{
		ChainTip:    s.chainTip,
		BlockHeader: types.BlockHeader{BlockNum: req.BlockNum},
	}, nil
}

func (s *stubNode) SyncNotes(_ context.Context, _ rpc.SyncNotesRequest) (rpc.SyncNotesResponse, error) {
	return rpc.SyncNotesResponse{ChainTip: s.chainTip}, nil
}

func (s *stubNode) SubmitProvenTransaction(_ context.Context, tx rpc.ProvenTransaction) error {
	s.submitted = append(s.submitted, tx)
	return nil
}

func (s *stubNode) GetBlockHeaderByNumber(_ context.Context, blockNum uint32, _ bool) (types.BlockHeader, *rpc.MmrProof, error) {
	return types.BlockHeader{BlockNum: blockNum}, nil, nil
}

func (s *stubNode) GetAccountDetails(_ context.Context, _ types.AccountId) (types.Account, error) {
	return types.Account{}, nil
}

func (s *stubNode) GetNotesById(_ context.Context, _ []types.NoteId) ([]rpc.NoteDetails, error) {
	return nil, nil
}

// stubKeys hands out deterministic key material.
type stubKeys struct{}

func (stubKeys) NewKey() (store.AuthInfo, types.Word, error) {
	return store.AuthInfo{Scheme: store.AuthSchemeFalcon512, Key: []byte("sk")},
		types.WordFromUint64(1, 2, 3, 4), nil
}

func (stubKeys) RecipientDigests(context.Context) ([]types.Word, error) {
	return []types.Word{types.WordFromUint64(9, 9, 9, 9)}, nil
}

func newTestClient(t *testing.T) (*Client, *stubNode) {
	t.Helper()
	hasher := types.NewTestHasher()
	s, err := sqlitestore.Open(filepath.Join(t.TempDir(), "client.db"), hasher, nil)
	require.NoError(t, err)
	node := &stubNode{}
	c, err := New(DefaultConfig(), s, node, stubKeys{}, hasher, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, node
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 30*time.Second, cfg.RpcTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.toml")
	content := `
[store]
path = "/tmp/meridian.db"

[rpc]
endpoint = "node.meridian.example:9090"
timeout_ms = 5000

[sync]
max_blocks_per_request = 128
discard_grace_blocks = 30
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/meridian.db", cfg.StorePath)
	assert.Equal(t, "node.meridian.example:9090", cfg.RpcEndpoint)
	assert.Equal(t, 5*time.Second, cfg.RpcTimeout)
	assert.Equal(t, uint32(128), cfg.MaxBlocksPerRequest)
	assert.Equal(t, uint32(30), cfg.DiscardGraceBlocks)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestNewAccountPersistsAndSubscribes(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	record, err := c.NewAccount(ctx, AccountTemplate{
		Type:        types.AccountTypeRegularImmutable,
		StorageMode: types.StoragePrivate,
		Code: types.AccountCode{
			Root:   types.WordFromUint64(1, 1, 1, 1),
			Module: []byte("wallet module"),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, record.Seed)
	assert.Equal(t, types.StoragePrivate, record.Account.Id.StorageMode())

	stored, err := c.GetAccount(ctx, record.Account.Id)
	require.NoError(t, err)
	assert.Equal(t, record.Account, stored.Account)

	tags, err := c.GetNoteTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, types.NoteTagForAccount(record.Account.Id), tags[0].Tag)
	assert.Equal(t, types.NoteTagSourceAccount, tags[0].Source.Type)
}

func TestSubmitTransactionReservesNotes(t *testing.T) {
	c, node := newTestClient(t)
	ctx := context.Background()

	account, err := c.NewAccount(ctx, AccountTemplate{
		Type:        types.AccountTypeRegularImmutable,
		StorageMode: types.StoragePrivate,
		Code:        types.AccountCode{Root: types.WordFromUint64(1, 1, 1, 1)},
	})
	require.NoError(t, err)

	note := store.InputNoteRecord{
		Id:              types.NoteId(types.WordFromUint64(2, 0, 0, 0)),
		Recipient:       types.WordFromUint64(3, 0, 0, 0),
		AssetCommitment: types.WordFromUint64(4, 0, 0, 0),
		SerialNumber:    types.WordFromUint64(5, 0, 0, 0),
		Nullifier:       types.Nullifier(types.WordFromUint64(6, 0, 0, 0)),
		Metadata:        types.NoteMetadata{Sender: account.Account.Id, Tag: 1},
		Status:          store.NoteStatusCommitted,
	}
	require.NoError(t, c.ImportInputNote(ctx, note))

	tx := rpc.ProvenTransaction{
		Id:                types.TransactionId(types.WordFromUint64(7, 0, 0, 0)),
		AccountId:         account.Account.Id,
		FinalAccountState: types.WordFromUint64(8, 0, 0, 0),
		InputNoteIds:      []types.NoteId{note.Id},
		ScriptRoot:        types.WordFromUint64(9, 0, 0, 0),
		Proof:             []byte("proof"),
	}
	require.NoError(t, c.SubmitTransaction(ctx, tx))
	require.Len(t, node.submitted, 1)

	processing, err := c.GetInputNotes(ctx, store.FilterProcessing())
	require.NoError(t, err)
	require.Len(t, processing, 1)
	assert.Equal(t, note.Id, processing[0].Id)

	txs, err := c.GetTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, store.TransactionStatusPending, txs[0].Status())
}

func TestImportExpectedNoteAddsNoteTag(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	note := store.InputNoteRecord{
		Id:              types.NoteId(types.WordFromUint64(11, 0, 0, 0)),
		Recipient:       types.WordFromUint64(12, 0, 0, 0),
		AssetCommitment: types.WordFromUint64(13, 0, 0, 0),
		SerialNumber:    types.WordFromUint64(14, 0, 0, 0),
		Nullifier:       types.Nullifier(types.WordFromUint64(15, 0, 0, 0)),
		Metadata:        types.NoteMetadata{Tag: 42},
	}
	require.NoError(t, c.ImportInputNote(ctx, note))

	imported, err := c.GetInputNote(ctx, note.Id)
	require.NoError(t, err)
	assert.Equal(t, store.NoteStatusExpected, imported.Status)

	tags, err := c.GetNoteTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, types.NoteTag(42), tags[0].Tag)
	assert.Equal(t, types.NoteTagSourceNote, tags[0].Source.Type)
	assert.Equal(t, note.Id, tags[0].Source.NoteId)

	tracked, err := c.IsNoteTracked(ctx, note.Id)
	require.NoError(t, err)
	assert.True(t, tracked)
}

func TestSyncStateNoOp(t *testing.T) {
	c, _ := newTestClient(t)
	summary, err := c.SyncState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(0), summary.BlockNum)
	assert.Equal(t, 0, summary.Steps)
}
