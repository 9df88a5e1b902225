package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/meridian-zk/go-meridian-client/store"
	"github.com/meridian-zk/go-meridian-client/types"
)

// GetInputNotes returns input notes selected by the filter.
func (c *Client) GetInputNotes(ctx context.Context, filter store.NoteFilter) ([]store.InputNoteRecord, error) {
	return c.store.GetInputNotes(ctx, filter)
}

// GetInputNote returns a single input note by id.
func (c *Client) GetInputNote(ctx context.Context, id types.NoteId) (store.InputNoteRecord, error) {
	notes, err := c.store.GetInputNotes(ctx, store.FilterUnique(id))
	if err != nil {
		return store.InputNoteRecord{}, err
	}
	if len(notes) == 0 {
		return store.InputNoteRecord{}, fmt.Errorf("%w: input note %s", store.ErrNotFound, id)
	}
	return notes[0], nil
}

// GetOutputNotes returns output notes selected by the filter.
func (c *Client) GetOutputNotes(ctx context.Context, filter store.NoteFilter) ([]store.OutputNoteRecord, error) {
	return c.store.GetOutputNotes(ctx, filter)
}

// GetOutputNote returns a single output note by id.
func (c *Client) GetOutputNote(ctx context.Context, id types.NoteId) (store.OutputNoteRecord, error) {
	notes, err := c.store.GetOutputNotes(ctx, store.FilterUnique(id))
	if err != nil {
		return store.OutputNoteRecord{}, err
	}
	if len(notes) == 0 {
		return store.OutputNoteRecord{}, fmt.Errorf("%w: output note %s", store.ErrNotFound, id)
	}
	return notes[0], nil
}

// ImportInputNote starts tracking a note the client learned about out of
// band, before its inclusion proof has arrived. A note without a status
// enters Expected; a status set by the caller is kept. For an Expected
// note a note-sourced tag subscription is added so sync picks up its
// commitment; the tag is removed automatically once the note commits.
func (c *Client) ImportInputNote(ctx context.Context, note store.InputNoteRecord) error {
	if note.Status == "" {
		note.Status = store.NoteStatusExpected
	}
	if err := c.store.InsertInputNote(ctx, note); err != nil {
		return err
	}
	if note.Status == store.NoteStatusExpected {
		tag := store.NoteTagRecord{
			Tag:    note.Metadata.Tag,
			Source: types.NoteTagSourceForNote(note.Id),
		}
		if _, err := c.store.AddNoteTag(ctx, tag); err != nil {
			return err
		}
	}
	c.log.Infow("input note imported", "note", note.Id, "status", note.Status)
	return nil
}

// ConsumableNotes returns the committed notes that are not already
// reserved by an in flight transaction.
func (c *Client) ConsumableNotes(ctx context.Context) ([]store.InputNoteRecord, error) {
	return c.store.GetInputNotes(ctx, store.FilterCommitted())
}

// IsNoteTracked reports whether the note id is known to the store.
func (c *Client) IsNoteTracked(ctx context.Context, id types.NoteId) (bool, error) {
	_, err := c.GetInputNote(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return false, err
}
