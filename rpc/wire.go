package rpc

import (
	"encoding/binary"
	"fmt"

	"github.com/meridian-zk/go-meridian-client/types"
)

// The wire format is a plain length prefixed binary layout: integers are
// little endian, digests are the 4xu64 canonical word form, account ids
// are (u64 prefix, u64 suffix), variable length sequences carry a u32
// count, and optional fields a single present byte.

type encoder struct {
	buf []byte
}

func newEncoder() *encoder { return &encoder{} }

func (e *encoder) bytes() []byte { return e.buf }

func (e *encoder) u8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) u16(v uint16) { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }
func (e *encoder) u32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }
func (e *encoder) u64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }

func (e *encoder) bool(v bool) {
	if v {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

func (e *encoder) word(w types.Word) { e.buf = append(e.buf, w.Bytes()...) }

func (e *encoder) accountId(id types.AccountId) {
	e.u64(uint64(id.Prefix))
	e.u64(uint64(id.Suffix))
}

func (e *encoder) raw(b []byte) {
	e.u32(uint32(len(b)))
	e.buf = append(e.buf, b...)
}

func (e *encoder) str(s string) { e.raw([]byte(s)) }

func (e *encoder) path(p types.MerklePath) {
	e.u32(uint32(len(p)))
	for _, w := range p {
		e.word(w)
	}
}

func (e *encoder) metadata(m types.NoteMetadata) {
	e.accountId(m.Sender)
	e.u32(uint32(m.Tag))
	e.u8(uint8(m.ExecutionHint))
	e.u64(uint64(m.Aux))
}

func (e *encoder) header(h types.BlockHeader) {
	e.u32(h.BlockNum)
	e.u32(h.Version)
	e.word(h.PrevHash)
	e.word(h.ChainRoot)
	e.word(h.AccountRoot)
	e.word(h.NoteRoot)
	e.word(h.NullifierRoot)
	e.u64(h.Timestamp)
}

type decoder struct {
	buf []byte
	off int
	err error
}

func newDecoder(b []byte) *decoder { return &decoder{buf: b} }

func (d *decoder) fail() {
	if d.err == nil {
		d.err = fmt.Errorf("%w: truncated at offset %d", ErrMalformedPayload, d.off)
	}
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if d.off+n > len(d.buf) {
		d.fail()
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) rest() []byte { return d.buf[d.off:] }

func (d *decoder) u8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) u16() uint16 {
	b := d.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (d *decoder) u32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *decoder) u64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *decoder) bool() bool { return d.u8() != 0 }

func (d *decoder) word() types.Word {
	b := d.take(types.WordBytes)
	if b == nil {
		return types.Word{}
	}
	w, err := types.WordFromBytes(b)
	if err != nil {
		d.err = fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		return types.Word{}
	}
	return w
}

func (d *decoder) accountId() types.AccountId {
	prefix := d.u64()
	suffix := d.u64()
	return types.AccountId{Prefix: types.Felt(prefix), Suffix: types.Felt(suffix)}
}

func (d *decoder) raw() []byte {
	n := d.u32()
	if d.err != nil {
		return nil
	}
	b := d.take(int(n))
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (d *decoder) str() string { return string(d.raw()) }

func (d *decoder) path() types.MerklePath {
	n := d.u32()
	if d.err != nil {
		return nil
	}
	path := make(types.MerklePath, 0, n)
	for i := uint32(0); i < n && d.err == nil; i++ {
		path = append(path, d.word())
	}
	if d.err != nil {
		return nil
	}
	return path
}

func (d *decoder) metadata() types.NoteMetadata {
	sender := d.accountId()
	tag := d.u32()
	hint := d.u8()
	aux := d.u64()
	return types.NoteMetadata{
		Sender:        sender,
		Tag:           types.NoteTag(tag),
		ExecutionHint: types.NoteExecutionHint(hint),
		Aux:           types.Felt(aux),
	}
}

func (d *decoder) header() types.BlockHeader {
	return types.BlockHeader{
		BlockNum:      d.u32(),
		Version:       d.u32(),
		PrevHash:      d.word(),
		ChainRoot:     d.word(),
		AccountRoot:   d.word(),
		NoteRoot:      d.word(),
		NullifierRoot: d.word(),
		Timestamp:     d.u64(),
	}
}

// --- message codecs ---

func encodeSyncStateRequest(req SyncStateRequest) []byte {
	e := newEncoder()
	e.u32(req.BlockNum)
	e.u32(req.MaxBlocks)
	e.u32(uint32(len(req.AccountIds)))
	for _, id := range req.AccountIds {
		e.accountId(id)
	}
	e.u32(uint32(len(req.Tags)))
	for _, tag := range req.Tags {
		e.u32(uint32(tag))
	}
	e.u32(uint32(len(req.NullifierPrefixes)))
	for _, p := range req.NullifierPrefixes {
		e.u16(p)
	}
	return e.bytes()
}

// DecodeSyncStateRequest is the server side of encodeSyncStateRequest,
// exported for mock nodes and protocol tooling.
func DecodeSyncStateRequest(b []byte) (SyncStateRequest, error) {
	d := newDecoder(b)
	var req SyncStateRequest
	req.BlockNum = d.u32()
	req.MaxBlocks = d.u32()
	for i, n := uint32(0), d.u32(); i < n && d.err == nil; i++ {
		req.AccountIds = append(req.AccountIds, d.accountId())
	}
	for i, n := uint32(0), d.u32(); i < n && d.err == nil; i++ {
		req.Tags = append(req.Tags, types.NoteTag(d.u32()))
	}
	for i, n := uint32(0), d.u32(); i < n && d.err == nil; i++ {
		req.NullifierPrefixes = append(req.NullifierPrefixes, d.u16())
	}
	return req, d.err
}

// EncodeSyncStateResponse frames a response body (without the status
// byte), exported for mock nodes and protocol tooling.
func EncodeSyncStateResponse(resp SyncStateResponse) []byte {
	e := newEncoder()
	e.u32(resp.ChainTip)
	e.header(resp.BlockHeader)

	e.u64(resp.MmrDelta.BaseForest)
	e.u64(resp.MmrDelta.Forest)
	e.u32(uint32(len(resp.MmrDelta.Data)))
	for _, w := range resp.MmrDelta.Data {
		e.word(w)
	}
	e.path(resp.BlockPath)

	e.u32(uint32(len(resp.Accounts)))
	for _, a := range resp.Accounts {
		e.accountId(a.AccountId)
		e.word(a.Commitment)
	}
	e.u32(uint32(len(resp.Notes)))
	for _, n := range resp.Notes {
		e.word(types.Word(n.NoteId))
		e.u64(n.NoteIndex)
		e.word(n.Recipient)
		e.word(n.AssetCommitment)
		e.metadata(n.Metadata)
		e.path(n.MerklePath)
	}
	e.u32(uint32(len(resp.Nullifiers)))
	for _, n := range resp.Nullifiers {
		e.word(types.Word(n.Nullifier))
		e.u32(n.BlockNum)
	}
	e.u32(uint32(len(resp.Transactions)))
	for _, t := range resp.Transactions {
		e.word(types.Word(t.TransactionId))
		e.accountId(t.AccountId)
		e.u32(t.BlockNum)
	}
	return e.bytes()
}

func decodeSyncStateResponse(b []byte) (SyncStateResponse, error) {
	d := newDecoder(b)
	var resp SyncStateResponse
	resp.ChainTip = d.u32()
	resp.BlockHeader = d.header()

	resp.MmrDelta.BaseForest = d.u64()
	resp.MmrDelta.Forest = d.u64()
	for i, n := uint32(0), d.u32(); i < n && d.err == nil; i++ {
		resp.MmrDelta.Data = append(resp.MmrDelta.Data, d.word())
	}
	resp.BlockPath = d.path()

	for i, n := uint32(0), d.u32(); i < n && d.err == nil; i++ {
		resp.Accounts = append(resp.Accounts, AccountHashUpdate{
			AccountId:  d.accountId(),
			Commitment: d.word(),
		})
	}
	for i, n := uint32(0), d.u32(); i < n && d.err == nil; i++ {
		resp.Notes = append(resp.Notes, CommittedNoteRecord{
			NoteId:          types.NoteId(d.word()),
			NoteIndex:       d.u64(),
			Recipient:       d.word(),
			AssetCommitment: d.word(),
			Metadata:        d.metadata(),
			MerklePath:      d.path(),
		})
	}
	for i, n := uint32(0), d.u32(); i < n && d.err == nil; i++ {
		resp.Nullifiers = append(resp.Nullifiers, NullifierUpdate{
			Nullifier: types.Nullifier(d.word()),
			BlockNum:  d.u32(),
		})
	}
	for i, n := uint32(0), d.u32(); i < n && d.err == nil; i++ {
		resp.Transactions = append(resp.Transactions, TransactionSummary{
			TransactionId: types.TransactionId(d.word()),
			AccountId:     d.accountId(),
			BlockNum:      d.u32(),
		})
	}
	return resp, d.err
}

func encodeSyncNotesRequest(req SyncNotesRequest) []byte {
	e := newEncoder()
	e.u32(req.BlockNum)
	e.u32(uint32(len(req.Tags)))
	for _, tag := range req.Tags {
		e.u32(uint32(tag))
	}
	return e.bytes()
}

// DecodeSyncNotesRequest decodes the SyncNotes request body.
func DecodeSyncNotesRequest(b []byte) (SyncNotesRequest, error) {
	d := newDecoder(b)
	var req SyncNotesRequest
	req.BlockNum = d.u32()
	for i, n := uint32(0), d.u32(); i < n && d.err == nil; i++ {
		req.Tags = append(req.Tags, types.NoteTag(d.u32()))
	}
	return req, d.err
}

// EncodeSyncNotesResponse frames a SyncNotes response body.
func EncodeSyncNotesResponse(resp SyncNotesResponse) []byte {
	e := newEncoder()
	e.u32(resp.ChainTip)
	e.header(resp.BlockHeader)
	e.u32(uint32(len(resp.Notes)))
	for _, n := range resp.Notes {
		e.word(types.Word(n.NoteId))
		e.u64(n.NoteIndex)
		e.word(n.Recipient)
		e.word(n.AssetCommitment)
		e.metadata(n.Metadata)
		e.path(n.MerklePath)
	}
	return e.bytes()
}

func decodeSyncNotesResponse(b []byte) (SyncNotesResponse, error) {
	d := newDecoder(b)
	var resp SyncNotesResponse
	resp.ChainTip = d.u32()
	resp.BlockHeader = d.header()
	for i, n := uint32(0), d.u32(); i < n && d.err == nil; i++ {
		resp.Notes = append(resp.Notes, CommittedNoteRecord{
			NoteId:          types.NoteId(d.word()),
			NoteIndex:       d.u64(),
			Recipient:       d.word(),
			AssetCommitment: d.word(),
			Metadata:        d.metadata(),
			MerklePath:      d.path(),
		})
	}
	return resp, d.err
}

func encodeProvenTransaction(tx ProvenTransaction) []byte {
	e := newEncoder()
	e.word(types.Word(tx.Id))
	e.accountId(tx.AccountId)
	e.word(tx.InitialAccountState)
	e.word(tx.FinalAccountState)
	e.u32(uint32(len(tx.InputNoteIds)))
	for _, id := range tx.InputNoteIds {
		e.word(types.Word(id))
	}
	e.u32(uint32(len(tx.OutputNoteIds)))
	for _, id := range tx.OutputNoteIds {
		e.word(types.Word(id))
	}
	e.word(tx.ScriptRoot)
	e.u32(tx.BlockRef)
	e.raw(tx.Proof)
	return e.bytes()
}

// DecodeProvenTransaction decodes a submitted transaction body.
func DecodeProvenTransaction(b []byte) (ProvenTransaction, error) {
	d := newDecoder(b)
	var tx ProvenTransaction
	tx.Id = types.TransactionId(d.word())
	tx.AccountId = d.accountId()
	tx.InitialAccountState = d.word()
	tx.FinalAccountState = d.word()
	for i, n := uint32(0), d.u32(); i < n && d.err == nil; i++ {
		tx.InputNoteIds = append(tx.InputNoteIds, types.NoteId(d.word()))
	}
	for i, n := uint32(0), d.u32(); i < n && d.err == nil; i++ {
		tx.OutputNoteIds = append(tx.OutputNoteIds, types.NoteId(d.word()))
	}
	tx.ScriptRoot = d.word()
	tx.BlockRef = d.u32()
	tx.Proof = d.raw()
	return tx, d.err
}

// EncodeBlockHeaderResponse frames a GetBlockHeaderByNumber response body.
func EncodeBlockHeaderResponse(header types.BlockHeader, proof *MmrProof) []byte {
	e := newEncoder()
	e.header(header)
	if proof == nil {
		e.bool(false)
		return e.bytes()
	}
	e.bool(true)
	e.u64(proof.Forest)
	e.u64(proof.LeafPos)
	e.path(proof.Path)
	return e.bytes()
}

func decodeBlockHeaderResponse(b []byte) (types.BlockHeader, *MmrProof, error) {
	d := newDecoder(b)
	header := d.header()
	var proof *MmrProof
	if d.bool() {
		proof = &MmrProof{
			Forest:  d.u64(),
			LeafPos: d.u64(),
			Path:    d.path(),
		}
	}
	return header, proof, d.err
}

// EncodeAccountDetails frames a GetAccountDetails response body.
func EncodeAccountDetails(account types.Account) []byte {
	e := newEncoder()
	e.accountId(account.Id)
	e.u64(account.Nonce)
	e.word(account.Code.Root)
	e.u32(uint32(len(account.Code.Procedures)))
	for _, p := range account.Code.Procedures {
		e.word(p)
	}
	e.raw(account.Code.Module)
	e.word(account.Storage.Root)
	e.raw(account.Storage.Slots)
	e.word(account.Vault.Root)
	e.raw(account.Vault.Assets)
	return e.bytes()
}

func decodeAccountDetails(b []byte) (types.Account, error) {
	d := newDecoder(b)
	var account types.Account
	account.Id = d.accountId()
	account.Nonce = d.u64()
	account.Code.Root = d.word()
	for i, n := uint32(0), d.u32(); i < n && d.err == nil; i++ {
		account.Code.Procedures = append(account.Code.Procedures, d.word())
	}
	account.Code.Module = d.raw()
	account.Storage.Root = d.word()
	account.Storage.Slots = d.raw()
	account.Vault.Root = d.word()
	account.Vault.Assets = d.raw()
	return account, d.err
}

// EncodeNoteDetailsList frames a GetNotesById response body.
func EncodeNoteDetailsList(notes []NoteDetails) []byte {
	e := newEncoder()
	e.u32(uint32(len(notes)))
	for _, n := range notes {
		e.word(types.Word(n.NoteId))
		e.word(n.Recipient)
		e.word(n.AssetCommitment)
		e.word(n.SerialNumber)
		e.metadata(n.Metadata)
		if n.InclusionProof == nil {
			e.bool(false)
			continue
		}
		e.bool(true)
		e.u32(n.InclusionProof.BlockNum)
		e.word(n.InclusionProof.SubHash)
		e.word(n.InclusionProof.NoteRoot)
		e.u64(n.InclusionProof.NoteIndex)
		e.path(n.InclusionProof.Path)
	}
	return e.bytes()
}

func decodeNoteDetailsList(b []byte) ([]NoteDetails, error) {
	d := newDecoder(b)
	var notes []NoteDetails
	for i, n := uint32(0), d.u32(); i < n && d.err == nil; i++ {
		note := NoteDetails{
			NoteId:          types.NoteId(d.word()),
			Recipient:       d.word(),
			AssetCommitment: d.word(),
			SerialNumber:    d.word(),
			Metadata:        d.metadata(),
		}
		if d.bool() {
			note.InclusionProof = &types.NoteInclusionProof{
				BlockNum:  d.u32(),
				SubHash:   d.word(),
				NoteRoot:  d.word(),
				NoteIndex: d.u64(),
				Path:      d.path(),
			}
		}
		notes = append(notes, note)
	}
	return notes, d.err
}
