package journals

import (
	"context"
	"sort"
	"time"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/locks"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	internalshared "github.com/odyssey-erp/odyssey-gl/internal/shared"
)

// Ledger is the append-only, balance-checked journal store. Its methods run
// inside a transaction owned by the caller.
type Ledger struct {
	oracle *locks.Oracle
	now    func() time.Time
}

// NewLedger constructs the ledger.
func NewLedger(oracle *locks.Oracle) *Ledger {
	if oracle == nil {
		oracle = locks.NewOracle()
	}
	return &Ledger{oracle: oracle, now: time.Now}
}

// WithNow overrides the clock for testing.
func (l *Ledger) WithNow(now func() time.Time) {
	if now != nil {
		l.now = now
	}
}

// Today returns the current civil date.
func (l *Ledger) Today() time.Time {
	return shared.DateOf(l.now())
}

// Post validates and persists a new journal entry. An active entry for the
// same (source type, source id, ref type) yields a DuplicatePostingError
// carrying the existing id and writes nothing, even once the date is locked.
func (l *Ledger) Post(ctx context.Context, tx TxRepository, actor internalshared.Actor, in PostingInput) (JournalEntry, error) {
	if err := actor.Validate(); err != nil {
		return JournalEntry{}, err
	}
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	debit, credit := in.Totals()
	if debit != credit {
		return JournalEntry{}, &shared.ImbalancedEntryError{Debit: debit, Credit: credit}
	}
	existing, found, err := tx.FindActiveJournalBySource(ctx, actor.CompanyID, in.SourceType, in.SourceID, in.RefType)
	if err != nil {
		return JournalEntry{}, err
	}
	if found {
		return JournalEntry{}, &shared.DuplicatePostingError{JournalID: existing}
	}
	if err := l.oracle.Ensure(ctx, tx, actor.CompanyID, in.EntryDate); err != nil {
		return JournalEntry{}, err
	}
	if err := l.ensureAccounts(ctx, tx, actor.CompanyID, in.Lines); err != nil {
		return JournalEntry{}, err
	}

	entry := JournalEntry{
		CompanyID:    actor.CompanyID,
		EntryDate:    shared.DateOf(in.EntryDate),
		Reference:    in.Reference,
		Description:  in.Description,
		Module:       in.Module,
		RefType:      in.RefType,
		RefID:        in.RefID,
		SourceType:   in.SourceType,
		SourceID:     in.SourceID,
		CreatedBy:    actor.UserID,
		CreatedAt:    l.now(),
		ReversalOfID: in.ReversalOfID,
	}
	inserted, err := tx.InsertJournalEntry(ctx, entry)
	if err != nil {
		return JournalEntry{}, err
	}
	lines := toJournalLines(inserted.ID, in.Lines)
	if err := tx.InsertJournalLines(ctx, inserted.ID, lines); err != nil {
		return JournalEntry{}, err
	}
	inserted.Lines = lines
	return inserted, nil
}

// Get fetches a header with its ordered lines.
func (l *Ledger) Get(ctx context.Context, tx TxRepository, companyID, journalID int64) (JournalEntry, error) {
	if journalID <= 0 {
		return JournalEntry{}, shared.Invalid("journal_id", "required")
	}
	return tx.GetJournalWithLines(ctx, companyID, journalID, false)
}

func (l *Ledger) ensureAccounts(ctx context.Context, tx TxRepository, companyID int64, lines []LineInput) error {
	seen := make(map[string]struct{}, len(lines))
	codes := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.AccountCode]; ok {
			continue
		}
		seen[line.AccountCode] = struct{}{}
		codes = append(codes, line.AccountCode)
	}
	active, err := tx.ActiveAccountCodes(ctx, companyID, codes)
	if err != nil {
		return err
	}
	var missing []string
	for _, code := range codes {
		if !active[code] {
			missing = append(missing, code)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &shared.UnknownAccountError{Codes: missing}
	}
	return nil
}

func toJournalLines(journalID int64, lines []LineInput) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for idx, line := range lines {
		out = append(out, JournalLine{
			JournalID:   journalID,
			LineNo:      idx + 1,
			AccountCode: line.AccountCode,
			Description: line.Description,
			Debit:       line.Debit,
			Credit:      line.Credit,
		})
	}
	return out
}
