package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meridian-zk/go-meridian-client/types"
)

var (
	// ErrRpc marks a transport level failure. The engine never retries
	// these; the caller owns the retry and backoff policy.
	ErrRpc = errors.New("rpc transport failure")

	// ErrMalformedPayload marks an undecodable response. Fatal.
	ErrMalformedPayload = errors.New("malformed rpc payload")

	// ErrNodeRejected marks a request the node answered with an error
	// status.
	ErrNodeRejected = errors.New("request rejected by the node")
)

// OpCode identifies an operation on the wire.
type OpCode uint8

const (
	OpSyncState OpCode = iota + 1
	OpSyncNotes
	OpSubmitProvenTransaction
	OpGetBlockHeaderByNumber
	OpGetAccountDetails
	OpGetNotesById
)

// NodeClient is the node API the rest of the client is generic over. A
// mock implementation drives the engine in tests; the production
// implementation is Client below.
type NodeClient interface {
	SyncState(ctx context.Context, req SyncStateRequest) (SyncStateResponse, error)
	SyncNotes(ctx context.Context, req SyncNotesRequest) (SyncNotesResponse, error)
	SubmitProvenTransaction(ctx context.Context, tx ProvenTransaction) error
	GetBlockHeaderByNumber(ctx context.Context, blockNum uint32, includeMmrProof bool) (types.BlockHeader, *MmrProof, error)
	GetAccountDetails(ctx context.Context, id types.AccountId) (types.Account, error)
	GetNotesById(ctx context.Context, ids []types.NoteId) ([]NoteDetails, error)
}

// Conn is the framed transport a Client speaks over. Call sends one opaque
// request frame for the operation and returns the node's response frame.
type Conn interface {
	Call(ctx context.Context, op OpCode, payload []byte) ([]byte, error)
	Close() error
}

// Client implements NodeClient over a Conn using the node's binary
// protocol.
type Client struct {
	conn    Conn
	timeout time.Duration
}

var _ NodeClient = (*Client)(nil)

// NewClient wraps a transport. timeout bounds every call; zero means no
// per-call deadline beyond the caller's context.
func NewClient(conn Conn, timeout time.Duration) *Client {
	return &Client{conn: conn, timeout: timeout}
}

// Close releases the transport.
func (c *Client) Close() error { return c.conn.Close() }

// call frames a request, sends it and unwraps the response status.
func (c *Client) call(ctx context.Context, op OpCode, payload []byte) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := c.conn.Call(ctx, op, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: op %d: %v", ErrRpc, op, err)
	}
	dec := newDecoder(resp)
	status := dec.u8()
	if dec.err != nil {
		return nil, fmt.Errorf("%w: truncated response for op %d", ErrMalformedPayload, op)
	}
	if status != 0 {
		msg := dec.str()
		if dec.err != nil {
			msg = "unspecified"
		}
		return nil, fmt.Errorf("%w: op %d: %s", ErrNodeRejected, op, msg)
	}
	return dec.rest(), nil
}

// SyncState performs one incremental sync step.
func (c *Client) SyncState(ctx context.Context, req SyncStateRequest) (SyncStateResponse, error) {
	body, err := c.call(ctx, OpSyncState, encodeSyncStateRequest(req))
	if err != nil {
		return SyncStateResponse{}, err
	}
	resp, err := decodeSyncStateResponse(body)
	if err != nil {
		return SyncStateResponse{}, err
	}
	return resp, nil
}

// SyncNotes fetches note commitments only.
func (c *Client) SyncNotes(ctx context.Context, req SyncNotesRequest) (SyncNotesResponse, error) {
	body, err := c.call(ctx, OpSyncNotes, encodeSyncNotesRequest(req))
	if err != nil {
		return SyncNotesResponse{}, err
	}
	return decodeSyncNotesResponse(body)
}

// SubmitProvenTransaction submits a proven transaction.
func (c *Client) SubmitProvenTransaction(ctx context.Context, tx ProvenTransaction) error {
	_, err := c.call(ctx, OpSubmitProvenTransaction, encodeProvenTransaction(tx))
	return err
}

// GetBlockHeaderByNumber fetches a header, optionally with the MMR proof
// of its hash.
func (c *Client) GetBlockHeaderByNumber(ctx context.Context, blockNum uint32, includeMmrProof bool) (types.BlockHeader, *MmrProof, error) {
	enc := newEncoder()
	enc.u32(blockNum)
	enc.bool(includeMmrProof)
	body, err := c.call(ctx, OpGetBlockHeaderByNumber, enc.bytes())
	if err != nil {
		return types.BlockHeader{}, nil, err
	}
	return decodeBlockHeaderResponse(body)
}

// GetAccountDetails fetches the full state of a public account.
func (c *Client) GetAccountDetails(ctx context.Context, id types.AccountId) (types.Account, error) {
	enc := newEncoder()
	enc.accountId(id)
	body, err := c.call(ctx, OpGetAccountDetails, enc.bytes())
	if err != nil {
		return types.Account{}, err
	}
	return decodeAccountDetails(body)
}

// GetNotesById fetches full note contents by id.
func (c *Client) GetNotesById(ctx context.Context, ids []types.NoteId) ([]NoteDetails, error) {
	enc := newEncoder()
	enc.u32(uint32(len(ids)))
	for _, id := range ids {
		enc.word(types.Word(id))
	}
	body, err := c.call(ctx, OpGetNotesById, enc.bytes())
	if err != nil {
		return nil, err
	}
	return decodeNoteDetailsList(body)
}
