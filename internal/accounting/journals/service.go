package journals

import (
	"context"
	"errors"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/audit"
	internalshared "github.com/odyssey-erp/odyssey-gl/internal/shared"
)

// Service runs ledger operations in their own store transaction.
type Service struct {
	store  Store
	ledger *Ledger
	audit  *audit.Emitter
}

// NewService constructs the ledger service.
func NewService(store Store, ledger *Ledger, emitter *audit.Emitter) *Service {
	return &Service{store: store, ledger: ledger, audit: emitter}
}

// PostJournal persists a manual or integration journal. A duplicate returns
// the existing id alongside the DuplicatePostingError.
func (s *Service) PostJournal(ctx context.Context, actor internalshared.Actor, input PostingInput) (JournalEntry, error) {
	var entry JournalEntry
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = s.ledger.Post(ctx, tx, actor, input)
		return err
	})
	if err != nil {
		var dup *shared.DuplicatePostingError
		if errors.As(err, &dup) {
			return JournalEntry{ID: dup.JournalID}, err
		}
		return JournalEntry{}, err
	}
	s.audit.Emit(ctx, actor, "journal.post", "journal_entry", entry.ID, map[string]any{
		"source_type": input.SourceType,
		"source_id":   input.SourceID.String(),
		"ref_type":    input.RefType,
		"ref_id":      input.RefID,
		"entry_date":  entry.EntryDate.Format(shared.DateLayout),
	})
	return entry, nil
}

// GetJournal returns a header with ordered lines.
func (s *Service) GetJournal(ctx context.Context, actor internalshared.Actor, journalID int64) (JournalEntry, error) {
	var entry JournalEntry
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = s.ledger.Get(ctx, tx, actor.CompanyID, journalID)
		return err
	})
	return entry, err
}

// ReverseJournal creates the mirror entry of journalID.
func (s *Service) ReverseJournal(ctx context.Context, actor internalshared.Actor, journalID int64, reason string) (JournalEntry, error) {
	var reversal JournalEntry
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		reversal, err = s.ledger.Reverse(ctx, tx, actor, journalID, reason)
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.audit.Emit(ctx, actor, "journal.reverse", "journal_entry", journalID, map[string]any{
		"reversal_id": reversal.ID,
		"reason":      reason,
	})
	return reversal, nil
}
