package journals

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	internalshared "github.com/odyssey-erp/odyssey-gl/internal/shared"
)

// Reverse posts a mirror of journalID dated today with every line's sides
// swapped, then marks the original reversed. The mirror is subject to the
// lock check on its own date only. State that depended on the original being
// active (bank matches, posted markers) is unlinked in the same transaction.
func (l *Ledger) Reverse(ctx context.Context, tx TxRepository, actor internalshared.Actor, journalID int64, reason string) (JournalEntry, error) {
	if err := actor.Validate(); err != nil {
		return JournalEntry{}, err
	}
	if journalID <= 0 {
		return JournalEntry{}, shared.Invalid("journal_id", "required")
	}
	original, err := tx.GetJournalWithLines(ctx, actor.CompanyID, journalID, true)
	if err != nil {
		return JournalEntry{}, err
	}
	if original.Reversed {
		return JournalEntry{}, &shared.AlreadyReversedError{JournalID: original.ID}
	}
	if original.ReversalOfID != nil {
		return JournalEntry{}, shared.Invalid("journal_id", "reversal entries cannot be reversed")
	}
	originalID := original.ID
	mirror := PostingInput{
		EntryDate:    l.Today(),
		Reference:    reversalReference(original),
		Description:  defaultReversalMemo(reason, original.ID),
		Module:       original.Module,
		RefType:      original.RefType,
		RefID:        original.RefID,
		SourceType:   SourceReversal,
		SourceID:     SourceKey(SourceReversal, original.ID),
		Lines:        reverseLines(original.Lines),
		ReversalOfID: &originalID,
	}
	reversal, err := l.Post(ctx, tx, actor, mirror)
	if err != nil {
		return JournalEntry{}, err
	}
	if err := tx.MarkJournalReversed(ctx, actor.CompanyID, original.ID); err != nil {
		return JournalEntry{}, err
	}
	if err := tx.ClearJournalReferences(ctx, actor.CompanyID, original.ID); err != nil {
		return JournalEntry{}, err
	}
	return reversal, nil
}

func reverseLines(lines []JournalLine) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{
			AccountCode: line.AccountCode,
			Description: line.Description,
			Debit:       line.Credit,
			Credit:      line.Debit,
		})
	}
	return out
}

func reversalReference(original JournalEntry) string {
	if original.Reference == "" {
		return fmt.Sprintf("REV-%d", original.ID)
	}
	return "REV-" + original.Reference
}

func defaultReversalMemo(memo string, id int64) string {
	if memo != "" {
		return memo
	}
	return fmt.Sprintf("Reversal of JE %d", id)
}
