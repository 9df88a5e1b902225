// Package client is the top level facade: construction and configuration,
// account and note management, tag subscriptions, transaction submission
// and state sync, all delegating retrieval to the store and mutation to
// the sync engine.
package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meridian-zk/go-meridian-client/rpc"
	"github.com/meridian-zk/go-meridian-client/screener"
	"github.com/meridian-zk/go-meridian-client/store"
	"github.com/meridian-zk/go-meridian-client/sync"
	"github.com/meridian-zk/go-meridian-client/types"
)

// KeyProvider is the signing backend: it creates account keys and exposes
// the recipient digests derivable from them, which the screener matches
// incoming notes against. Key generation and signature algorithms live
// outside this module.
type KeyProvider interface {
	// NewKey generates a fresh key pair, returning the auth material to
	// persist and the public key digest the account commits to.
	NewKey() (store.AuthInfo, types.Word, error)

	// RecipientDigests lists the recipient digests of locally held keys.
	RecipientDigests(ctx context.Context) ([]types.Word, error)
}

// Client is the light client facade.
type Client struct {
	store  store.Store
	node   rpc.NodeClient
	keys   KeyProvider
	hasher types.Hasher
	engine *sync.Engine
	cfg    Config
	log    *zap.SugaredLogger
}

// New assembles a client from its collaborators. The store and node are
// owned by the caller for construction but managed by the client
// afterwards; Close releases the store only.
func New(cfg Config, s store.Store, node rpc.NodeClient, keys KeyProvider, hasher types.Hasher, logger *zap.SugaredLogger) (*Client, error) {
	if s == nil || node == nil || hasher == nil {
		return nil, errors.New("store, node and hasher are all required")
	}
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	var recipients screener.RecipientSource
	if keys != nil {
		recipients = recipientSource{keys: keys}
	}
	scr := screener.New(s, recipients, logger)

	engine := sync.NewEngine(sync.EngineParams{
		Store:               s,
		Node:                node,
		Screener:            scr,
		Hasher:              hasher,
		DiscardGrace:        cfg.DiscardGraceBlocks,
		MaxBlocksPerRequest: cfg.MaxBlocksPerRequest,
		Logger:              logger,
	})

	return &Client{
		store:  s,
		node:   node,
		keys:   keys,
		hasher: hasher,
		engine: engine,
		cfg:    cfg,
		log:    logger,
	}, nil
}

// recipientSource adapts a KeyProvider to the screener's interface.
type recipientSource struct {
	keys KeyProvider
}

func (r recipientSource) RecipientDigests(ctx context.Context) ([]types.Word, error) {
	return r.keys.RecipientDigests(ctx)
}

// Close releases the store.
func (c *Client) Close() error {
	return c.store.Close()
}

// SyncState synchronizes the local state with the node's chain tip.
// Transient transport failures are retried with exponential backoff; every
// other error surfaces unchanged. The engine itself never retries - the
// policy lives here, at the caller.
func (c *Client) SyncState(ctx context.Context) (sync.Summary, error) {
	runId := uuid.NewString()
	c.log.Infow("sync started", "run", runId)

	var summary sync.Summary
	operation := func() error {
		var err error
		summary, err = c.engine.SyncState(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, rpc.ErrRpc) {
			c.log.Warnw("transient rpc failure, will retry", "run", runId, "error", err)
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return summary, err
	}
	c.log.Infow("sync finished",
		"run", runId,
		"block", summary.BlockNum,
		"steps", summary.Steps,
		"new_notes", len(summary.NewNotes),
		"consumed_notes", len(summary.ConsumedNotes))
	return summary, nil
}

// SubmitTransaction submits an already proven transaction, records it as
// pending and moves its input notes to Processing. Proof generation is the
// prover's business; the transaction arrives here complete.
func (c *Client) SubmitTransaction(ctx context.Context, tx rpc.ProvenTransaction) error {
	lastBlock, err := c.store.GetSyncHeight(ctx)
	if err != nil {
		return err
	}

	if err := c.node.SubmitProvenTransaction(ctx, tx); err != nil {
		return fmt.Errorf("submitting transaction %s: %w", tx.Id, err)
	}

	record := store.TransactionRecord{
		Id:                tx.Id,
		AccountId:         tx.AccountId,
		InputNoteIds:      tx.InputNoteIds,
		OutputNoteIds:     tx.OutputNoteIds,
		ScriptRoot:        tx.ScriptRoot,
		FinalAccountState: tx.FinalAccountState,
		SubmitBlockNum:    lastBlock,
	}
	if err := c.store.InsertTransaction(ctx, record); err != nil {
		return err
	}
	if err := c.store.MarkNotesProcessing(ctx, tx.Id, tx.InputNoteIds); err != nil {
		return err
	}
	c.log.Infow("transaction submitted", "tx", tx.Id, "account", tx.AccountId, "block", lastBlock)
	return nil
}

// GetTransactions returns every tracked transaction record.
func (c *Client) GetTransactions(ctx context.Context) ([]store.TransactionRecord, error) {
	return c.store.GetTransactions(ctx)
}
