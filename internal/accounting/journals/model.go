package journals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/locks"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

// SourceReversal is the source type of mirror entries built by Reverse.
const SourceReversal = "reversal"

// JournalEntry captures posting metadata. Header fields never change after
// insert except Reversed, which Reverse sets exactly once.
type JournalEntry struct {
	ID           int64
	CompanyID    int64
	EntryDate    time.Time
	Reference    string
	Description  string
	Module       string
	RefType      string
	RefID        int64
	SourceType   string
	SourceID     uuid.UUID
	CreatedBy    int64
	CreatedAt    time.Time
	Reversed     bool
	ReversalOfID *int64
	Lines        []JournalLine
}

// Totals sums the debit and credit sides.
func (e JournalEntry) Totals() (debit, credit shared.Money) {
	for _, l := range e.Lines {
		debit += l.Debit
		credit += l.Credit
	}
	return debit, credit
}

// JournalLine stores a debit or credit amount for an account.
type JournalLine struct {
	ID          int64
	JournalID   int64
	LineNo      int
	AccountCode string
	Description string
	Debit       shared.Money
	Credit      shared.Money
}

// LineInput describes a journal line for a posting request.
type LineInput struct {
	AccountCode string
	Description string
	Debit       shared.Money
	Credit      shared.Money
}

// Debit builds a debit line.
func Debit(code string, amount shared.Money, description string) LineInput {
	return LineInput{AccountCode: code, Debit: amount, Description: description}
}

// Credit builds a credit line.
func Credit(code string, amount shared.Money, description string) LineInput {
	return LineInput{AccountCode: code, Credit: amount, Description: description}
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	EntryDate   time.Time
	Reference   string
	Description string
	Module      string
	RefType     string
	RefID       int64
	SourceType  string
	SourceID    uuid.UUID
	Lines       []LineInput
	// ReversalOfID is only set by Reverse.
	ReversalOfID *int64
}

// SourceKey derives the deterministic posting key of a business event.
func SourceKey(sourceType string, id int64) uuid.UUID {
	return uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("%s:%d", sourceType, id)))
}

// Validate ensures posting input is well formed.
func (in PostingInput) Validate() error {
	if in.EntryDate.IsZero() {
		return shared.Invalid("entry_date", "required")
	}
	if in.SourceType == "" || in.SourceID == uuid.Nil {
		return shared.Invalid("source", "type and id required")
	}
	if len(in.Lines) == 0 {
		return shared.Invalid("lines", "at least one line required")
	}
	for idx, line := range in.Lines {
		field := fmt.Sprintf("lines[%d]", idx)
		if line.AccountCode == "" {
			return shared.Invalid(field, "missing account")
		}
		if line.Debit < 0 || line.Credit < 0 {
			return shared.Invalid(field, "negative amount")
		}
		if line.Debit != 0 && line.Credit != 0 {
			return shared.Invalid(field, "cannot be both debit and credit")
		}
		if line.Debit == 0 && line.Credit == 0 {
			return shared.Invalid(field, "amount required")
		}
	}
	return nil
}

// Totals sums both sides of the input.
func (in PostingInput) Totals() (debit, credit shared.Money) {
	for _, l := range in.Lines {
		debit += l.Debit
		credit += l.Credit
	}
	return debit, credit
}

// TxRepository exposes the transactional operations the ledger needs.
type TxRepository interface {
	locks.Reader
	ActiveAccountCodes(ctx context.Context, companyID int64, codes []string) (map[string]bool, error)
	FindActiveJournalBySource(ctx context.Context, companyID int64, sourceType string, sourceID uuid.UUID, refType string) (int64, bool, error)
	InsertJournalEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	InsertJournalLines(ctx context.Context, journalID int64, lines []JournalLine) error
	GetJournalWithLines(ctx context.Context, companyID, journalID int64, forUpdate bool) (JournalEntry, error)
	MarkJournalReversed(ctx context.Context, companyID, journalID int64) error
	// ClearJournalReferences unlinks bank matches, documents and payments
	// that point at a journal which is no longer active.
	ClearJournalReferences(ctx context.Context, companyID, journalID int64) error
}

// Store opens store transactions scoped to the ledger.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}
