package client

import (
	"context"

	"github.com/meridian-zk/go-meridian-client/store"
)

// GetNoteTags returns every tracked (tag, source) pair.
func (c *Client) GetNoteTags(ctx context.Context) ([]store.NoteTagRecord, error) {
	return c.store.GetNoteTags(ctx)
}

// AddNoteTag subscribes to a tag. Returns false if the identical
// (tag, source) pair is already tracked.
func (c *Client) AddNoteTag(ctx context.Context, record store.NoteTagRecord) (bool, error) {
	added, err := c.store.AddNoteTag(ctx, record)
	if err != nil {
		return false, err
	}
	if added {
		c.log.Infow("note tag added", "tag", record.Tag, "source", record.Source.Type)
	}
	return added, nil
}

// RemoveNoteTag drops a subscription, returning how many records were
// removed.
func (c *Client) RemoveNoteTag(ctx context.Context, record store.NoteTagRecord) (int, error) {
	return c.store.RemoveNoteTag(ctx, record)
}
