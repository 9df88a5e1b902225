// Package sync implements the state sync engine: the loop that pulls
// incremental updates from the node, reconciles note, account and
// transaction state, extends the chain MMR and commits each step to the
// store in a single write transaction.
package sync

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/meridian-zk/go-meridian-client/mmr"
	"github.com/meridian-zk/go-meridian-client/rpc"
	"github.com/meridian-zk/go-meridian-client/screener"
	"github.com/meridian-zk/go-meridian-client/store"
	"github.com/meridian-zk/go-meridian-client/types"
)

// EngineParams collects the engine's collaborators and knobs.
type EngineParams struct {
	Store    store.Store
	Node     rpc.NodeClient
	Screener *screener.Screener
	Hasher   types.Hasher
	// DiscardGrace overrides the default discard window; 0 keeps it.
	DiscardGrace uint32
	// MaxBlocksPerRequest is a soft cap hint forwarded to the node; 0
	// means no hint.
	MaxBlocksPerRequest uint32
	Logger              *zap.SugaredLogger
}

// Engine orchestrates incremental sync. It holds no state of its own
// between steps: everything authoritative lives in the store, and the
// in-memory accumulator is rehydrated per step.
type Engine struct {
	store     store.Store
	node      rpc.NodeClient
	screener  *screener.Screener
	hasher    types.Hasher
	tracker   *TransactionTracker
	maxBlocks uint32
	log       *zap.SugaredLogger
}

// NewEngine wires an engine from its parts.
func NewEngine(params EngineParams) *Engine {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{
		store:     params.Store,
		node:      params.Node,
		screener:  params.Screener,
		hasher:    params.Hasher,
		tracker:   NewTransactionTracker(params.DiscardGrace),
		maxBlocks: params.MaxBlocksPerRequest,
		log:       logger,
	}
}

// SyncState drives sync steps until the node's chain tip equals the last
// block applied, then returns a summary of everything that changed.
//
// Mutations happen only inside each step's final ApplyStateSync, so
// cancelling the context between suspension points leaves the store
// unchanged.
func (e *Engine) SyncState(ctx context.Context) (Summary, error) {
	var summary Summary
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		done, err := e.step(ctx, &summary)
		if err != nil {
			return summary, err
		}
		if done {
			return summary, nil
		}
	}
}

// step performs one request/reconcile/apply round. It returns true when
// the client has reached the chain tip.
func (e *Engine) step(ctx context.Context, summary *Summary) (bool, error) {
	lastBlock, err := e.store.GetSyncHeight(ctx)
	if err != nil {
		return false, err
	}
	summary.BlockNum = lastBlock

	tagRecords, err := e.store.GetNoteTags(ctx)
	if err != nil {
		return false, err
	}
	accounts, err := e.store.GetAccounts(ctx)
	if err != nil {
		return false, err
	}
	trackedNullifiers, err := e.store.GetUnspentNullifiers(ctx)
	if err != nil {
		return false, err
	}

	req := rpc.SyncStateRequest{
		BlockNum:          lastBlock,
		AccountIds:        accountIds(accounts),
		Tags:              uniqueTags(tagRecords),
		NullifierPrefixes: NullifierPrefixes(trackedNullifiers),
		MaxBlocks:         e.maxBlocks,
	}
	resp, err := e.node.SyncState(ctx, req)
	if err != nil {
		return false, fmt.Errorf("sync request from block %d: %w", lastBlock, err)
	}

	// Nothing newer: the no-op round trip that ends every sync.
	if resp.ChainTip <= lastBlock || resp.BlockHeader.BlockNum <= lastBlock {
		if resp.ChainTip > lastBlock {
			e.log.Warnw("node returned a stale block for a non-stale tip",
				"block", resp.BlockHeader.BlockNum, "tip", resp.ChainTip, "synced", lastBlock)
		}
		summary.BlockNum = lastBlock
		return true, nil
	}

	summary.Steps++
	update, err := e.reconcile(ctx, lastBlock, tagRecords, accounts, trackedNullifiers, resp, summary)
	if err != nil {
		return false, err
	}

	if err := e.store.ApplyStateSync(ctx, update); err != nil {
		return false, err
	}
	summary.BlockNum = resp.BlockHeader.BlockNum
	e.log.Infow("sync step applied", "block", resp.BlockHeader.BlockNum, "tip", resp.ChainTip)

	return resp.ChainTip <= resp.BlockHeader.BlockNum, nil
}

// reconcile turns one response into the atomic store update.
func (e *Engine) reconcile(
	ctx context.Context,
	lastBlock uint32,
	tagRecords []store.NoteTagRecord,
	accounts []store.AccountRecord,
	trackedNullifiers []types.Nullifier,
	resp rpc.SyncStateResponse,
	summary *Summary,
) (store.StateSyncUpdate, error) {

	update := store.StateSyncUpdate{BlockHeader: resp.BlockHeader}

	// Notes: classify, split into new arrivals and proof deliveries for
	// notes already tracked.
	knownNotes, err := e.store.GetInputNotes(ctx, store.FilterAll())
	if err != nil {
		return store.StateSyncUpdate{}, err
	}
	knownById := make(map[types.NoteId]store.InputNoteRecord, len(knownNotes))
	noteNullifiers := make(map[types.NoteId]types.Nullifier, len(knownNotes))
	for _, note := range knownNotes {
		knownById[note.Id] = note
		noteNullifiers[note.Id] = note.Nullifier
	}

	var newRelevant []rpc.CommittedNoteRecord
	for _, note := range resp.Notes {
		verdict, err := e.screener.Classify(ctx, note)
		if err != nil {
			return store.StateSyncUpdate{}, err
		}
		if verdict != screener.Relevant {
			continue
		}
		proof := types.NoteInclusionProof{
			BlockNum:  resp.BlockHeader.BlockNum,
			SubHash:   resp.BlockHeader.SubHash(e.hasher),
			NoteRoot:  resp.BlockHeader.NoteRoot,
			NoteIndex: note.NoteIndex,
			Path:      note.MerklePath,
		}
		if _, tracked := knownById[note.NoteId]; tracked {
			update.CommittedNotes = append(update.CommittedNotes, store.CommittedNote{
				NoteId:         note.NoteId,
				InclusionProof: proof,
			})
			summary.CommittedNotes = append(summary.CommittedNotes, note.NoteId)
		} else {
			newRelevant = append(newRelevant, note)
		}
		update.TagsToRemove = append(update.TagsToRemove, satisfiedNoteTags(tagRecords, note.NoteId)...)
	}

	if len(newRelevant) > 0 {
		records, err := e.buildNewInputNotes(ctx, newRelevant, resp.BlockHeader)
		if err != nil {
			return store.StateSyncUpdate{}, err
		}
		update.NewInputNotes = records
		for _, record := range records {
			noteNullifiers[record.Id] = record.Nullifier
			summary.NewNotes = append(summary.NewNotes, record.Id)
		}
	}
	update.HasClientNotes = len(update.NewInputNotes) > 0 || len(update.CommittedNotes) > 0

	// A note can arrive and be spent within the same response; its fresh
	// nullifier takes part in the match so the final state is Consumed.
	for _, record := range update.NewInputNotes {
		if !types.Word(record.Nullifier).IsZero() {
			trackedNullifiers = append(trackedNullifiers, record.Nullifier)
		}
	}

	// Nullifiers: exact matches only; prefix false positives drop here.
	consumedNotes := MatchNullifiers(trackedNullifiers, resp.Nullifiers)
	consumedSet := make(map[types.Nullifier]struct{}, len(consumedNotes))
	for _, consumed := range consumedNotes {
		consumedSet[consumed.Nullifier] = struct{}{}
	}

	// Accounts: refresh public, lock diverged private.
	localById := make(map[types.AccountId]store.AccountRecord, len(accounts))
	for _, record := range accounts {
		localById[record.Account.Id] = record
	}
	for _, observed := range resp.Accounts {
		local, tracked := localById[observed.AccountId]
		if !tracked {
			continue
		}
		if observed.AccountId.IsPublic() {
			refreshed, err := e.node.GetAccountDetails(ctx, observed.AccountId)
			if err != nil {
				return store.StateSyncUpdate{}, fmt.Errorf(
					"refreshing account %s after block %d: %w", observed.AccountId, lastBlock, err)
			}
			update.UpdatedAccounts = append(update.UpdatedAccounts, store.AccountUpdate{Account: refreshed})
			summary.UpdatedAccounts = append(summary.UpdatedAccounts, observed.AccountId)
			continue
		}
		if observed.Commitment != local.Account.Commitment(e.hasher) && !local.Locked {
			e.log.Warnw("locking diverged private account",
				"account", observed.AccountId, "observed", observed.Commitment, "cause", store.ErrAccountMismatch)
			update.MismatchedAccounts = append(update.MismatchedAccounts, store.AccountMismatch{
				AccountId:          observed.AccountId,
				ObservedCommitment: observed.Commitment,
			})
			summary.LockedAccounts = append(summary.LockedAccounts, observed.AccountId)
		}
	}

	// Transactions: commits reported by the node, discards inferred from
	// foreign spends of our inputs.
	pending, err := e.store.GetPendingTransactions(ctx)
	if err != nil {
		return store.StateSyncUpdate{}, err
	}
	commits, discards := e.tracker.Reconcile(
		pending, resp.Transactions, consumedSet, noteNullifiers, resp.BlockHeader.BlockNum)
	update.CommittedTransactions = commits
	update.DiscardedTransactions = discards
	for _, commit := range commits {
		summary.CommittedTransactions = append(summary.CommittedTransactions, commit.TransactionId)
	}
	for _, discard := range discards {
		summary.DiscardedTransactions = append(summary.DiscardedTransactions, discard.TransactionId)
	}

	// A nullifier that triggered a discard marks a spend that never
	// became our commit: the note returns to Committed instead of
	// Consumed, so it is usable again once the discard is applied.
	discardedNullifiers := discardedInputNullifiers(pending, discards, noteNullifiers)
	for _, consumed := range consumedNotes {
		if _, reverted := discardedNullifiers[consumed.Nullifier]; reverted {
			continue
		}
		update.ConsumedNotes = append(update.ConsumedNotes, consumed)
		for id, nullifier := range noteNullifiers {
			if nullifier == consumed.Nullifier {
				summary.ConsumedNotes = append(summary.ConsumedNotes, id)
			}
		}
	}

	// Chain MMR: rehydrate, extend with the delta, then track the
	// response block itself.
	partial, err := e.currentPartialMmr(ctx, lastBlock)
	if err != nil {
		return store.StateSyncUpdate{}, err
	}
	deltaNodes, err := partial.Apply(resp.MmrDelta)
	if err != nil {
		return store.StateSyncUpdate{}, fmt.Errorf("extending chain mmr past block %d: %w", lastBlock, err)
	}
	blockNodes, err := partial.Add(
		uint64(resp.BlockHeader.BlockNum), resp.BlockHeader.Hash(e.hasher), resp.BlockPath)
	if err != nil {
		return store.StateSyncUpdate{}, fmt.Errorf("tracking block %d: %w", resp.BlockHeader.BlockNum, err)
	}
	update.NewAuthNodes = append(deltaNodes, blockNodes...)
	update.NewPeaks = partial.Peaks()

	return update, nil
}

// currentPartialMmr rebuilds the accumulator from the persisted peaks,
// authentication nodes and tracked block set. A store that never synced
// starts from the empty accumulator.
func (e *Engine) currentPartialMmr(ctx context.Context, lastBlock uint32) (*mmr.PartialMmr, error) {
	peaks, err := e.store.GetMmrPeaks(ctx, lastBlock)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		peaks = mmr.EmptyPeaks()
	}
	nodes, err := e.store.GetChainMmrNodes(ctx)
	if err != nil {
		return nil, err
	}
	trackedBlocks, err := e.store.GetTrackedBlockNums(ctx)
	if err != nil {
		return nil, err
	}
	tracked := make([]uint64, len(trackedBlocks))
	for i, blockNum := range trackedBlocks {
		tracked[i] = uint64(blockNum)
	}
	return mmr.Restore(e.hasher, peaks, nodes, tracked), nil
}

// buildNewInputNotes fetches the public details of freshly relevant notes
// so they are stored with their serial numbers and nullifiers. Notes the
// node cannot detail are stored with zero serials; their nullifiers become
// observable once details are imported.
func (e *Engine) buildNewInputNotes(
	ctx context.Context,
	notes []rpc.CommittedNoteRecord,
	header types.BlockHeader,
) ([]store.InputNoteRecord, error) {

	ids := make([]types.NoteId, len(notes))
	for i, note := range notes {
		ids[i] = note.NoteId
	}
	details, err := e.node.GetNotesById(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching details for %d notes at block %d: %w", len(ids), header.BlockNum, err)
	}
	detailById := make(map[types.NoteId]rpc.NoteDetails, len(details))
	for _, d := range details {
		detailById[d.NoteId] = d
	}

	blockNum := header.BlockNum
	records := make([]store.InputNoteRecord, 0, len(notes))
	for _, note := range notes {
		record := store.InputNoteRecord{
			Id:              note.NoteId,
			Recipient:       note.Recipient,
			AssetCommitment: note.AssetCommitment,
			Metadata:        note.Metadata,
			Status:          store.NoteStatusCommitted,
			InclusionProof: &types.NoteInclusionProof{
				BlockNum:  header.BlockNum,
				SubHash:   header.SubHash(e.hasher),
				NoteRoot:  header.NoteRoot,
				NoteIndex: note.NoteIndex,
				Path:      note.MerklePath,
			},
			BlockNum: &blockNum,
		}
		if detail, ok := detailById[note.NoteId]; ok {
			record.SerialNumber = detail.SerialNumber
			record.Nullifier = types.NullifierFrom(e.hasher, detail.SerialNumber, detail.Recipient)
		}
		records = append(records, record)
	}
	return records, nil
}

// discardedInputNullifiers collects the nullifiers of the input notes of
// every transaction being discarded in this step.
func discardedInputNullifiers(
	pending []store.TransactionRecord,
	discards []store.TransactionDiscard,
	noteNullifiers map[types.NoteId]types.Nullifier,
) map[types.Nullifier]struct{} {

	discarded := make(map[types.TransactionId]struct{}, len(discards))
	for _, discard := range discards {
		discarded[discard.TransactionId] = struct{}{}
	}
	nullifiers := make(map[types.Nullifier]struct{})
	for _, tx := range pending {
		if _, ok := discarded[tx.Id]; !ok {
			continue
		}
		for _, noteId := range tx.InputNoteIds {
			if nullifier, ok := noteNullifiers[noteId]; ok {
				nullifiers[nullifier] = struct{}{}
			}
		}
	}
	return nullifiers
}

// satisfiedNoteTags returns the tag records whose source is the given
// note: once the note commits, the subscription served its purpose.
func satisfiedNoteTags(tagRecords []store.NoteTagRecord, noteId types.NoteId) []store.NoteTagRecord {
	var satisfied []store.NoteTagRecord
	for _, record := range tagRecords {
		if record.Source.Type == types.NoteTagSourceNote && record.Source.NoteId == noteId {
			satisfied = append(satisfied, record)
		}
	}
	return satisfied
}

func accountIds(records []store.AccountRecord) []types.AccountId {
	ids := make([]types.AccountId, len(records))
	for i, record := range records {
		ids[i] = record.Account.Id
	}
	return ids
}

func uniqueTags(records []store.NoteTagRecord) []types.NoteTag {
	seen := make(map[types.NoteTag]struct{}, len(records))
	var tags []types.NoteTag
	for _, record := range records {
		if _, ok := seen[record.Tag]; ok {
			continue
		}
		seen[record.Tag] = struct{}{}
		tags = append(tags, record.Tag)
	}
	return tags
}
