// Package screener classifies incoming notes. Sync responses contain every
// note matching any subscribed tag, which over-approximates what the user
// actually cares about; the screener decides which of them the client
// should start tracking.
package screener

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/meridian-zk/go-meridian-client/rpc"
	"github.com/meridian-zk/go-meridian-client/store"
	"github.com/meridian-zk/go-meridian-client/types"
)

// Classification is the screener's verdict on a note.
type Classification uint8

const (
	Ignored Classification = iota
	Relevant
)

func (c Classification) String() string {
	if c == Relevant {
		return "relevant"
	}
	return "ignored"
}

// RecipientSource exposes the recipient digests derivable from locally
// held account keys. The derivation itself is the signing backend's
// business.
type RecipientSource interface {
	RecipientDigests(ctx context.Context) ([]types.Word, error)
}

// Screener classifies notes against the store's tag subscriptions, the
// tracked account set and the locally derivable recipients.
type Screener struct {
	store      store.Store
	recipients RecipientSource
	log        *zap.SugaredLogger
}

// New creates a screener. recipients may be nil when no key material is
// available locally, which disables the secret key rule.
func New(s store.Store, recipients RecipientSource, logger *zap.SugaredLogger) *Screener {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Screener{store: s, recipients: recipients, log: logger}
}

// Classify decides whether a note from a sync response is relevant. A note
// is relevant when any of the following holds:
//
//   - its tag matches a user subscribed tag
//   - its recipient is derivable from a locally held account key
//   - its tag is tracked on behalf of a locally tracked account
//   - its tag is tracked for an expected note with the note's id
func (s *Screener) Classify(ctx context.Context, note rpc.CommittedNoteRecord) (Classification, error) {
	tags, err := s.store.GetNoteTags(ctx)
	if err != nil {
		return Ignored, err
	}
	for _, record := range tags {
		if record.Tag != note.Metadata.Tag {
			continue
		}
		switch record.Source.Type {
		case types.NoteTagSourceUser:
			s.log.Debugw("note relevant", "note", note.NoteId, "rule", "user tag", "tag", record.Tag)
			return Relevant, nil
		case types.NoteTagSourceAccount:
			tracked, err := s.isAccountTracked(ctx, record.Source.AccountId)
			if err != nil {
				return Ignored, err
			}
			if tracked {
				s.log.Debugw("note relevant", "note", note.NoteId, "rule", "account tag", "account", record.Source.AccountId)
				return Relevant, nil
			}
		case types.NoteTagSourceNote:
			if record.Source.NoteId == note.NoteId {
				s.log.Debugw("note relevant", "note", note.NoteId, "rule", "expected note tag")
				return Relevant, nil
			}
		}
	}

	if s.recipients != nil {
		digests, err := s.recipients.RecipientDigests(ctx)
		if err != nil {
			return Ignored, err
		}
		for _, digest := range digests {
			if digest == note.Recipient {
				s.log.Debugw("note relevant", "note", note.NoteId, "rule", "recipient key match")
				return Relevant, nil
			}
		}
	}

	s.log.Debugw("note ignored", "note", note.NoteId, "tag", note.Metadata.Tag)
	return Ignored, nil
}

func (s *Screener) isAccountTracked(ctx context.Context, id types.AccountId) (bool, error) {
	_, err := s.store.GetAccount(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return false, err
}
