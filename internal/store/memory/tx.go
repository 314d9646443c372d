package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/locks"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/assets"
	"github.com/odyssey-erp/odyssey-gl/internal/banking"
	"github.com/odyssey-erp/odyssey-gl/internal/posting"
	"github.com/odyssey-erp/odyssey-gl/internal/subledger"
	"github.com/odyssey-erp/odyssey-gl/internal/vat"
)

// Tx is a single in-memory transaction.
type Tx struct {
	st *state
}

var (
	_ locks.TxRepository     = (*Tx)(nil)
	_ journals.TxRepository  = (*Tx)(nil)
	_ subledger.TxRepository = (*Tx)(nil)
	_ banking.TxRepository   = (*Tx)(nil)
	_ vat.TxRepository       = (*Tx)(nil)
	_ assets.TxRepository    = (*Tx)(nil)
	_ posting.TxRepository   = (*Tx)(nil)
)

// LockHorizon implements locks.Reader.
func (t *Tx) LockHorizon(ctx context.Context, companyID int64) (*time.Time, error) {
	var h *time.Time
	for _, l := range t.st.locks {
		if l.CompanyID != companyID || !l.Active {
			continue
		}
		if h == nil || l.LockDate.After(*h) {
			d := l.LockDate
			h = &d
		}
	}
	return h, nil
}

func (t *Tx) InsertPeriodLock(ctx context.Context, lock locks.PeriodLock) (locks.PeriodLock, error) {
	lock.ID = t.st.nextID()
	t.st.locks[lock.ID] = lock
	return lock, nil
}

func (t *Tx) DeactivatePeriodLock(ctx context.Context, companyID, lockID, actorID int64, at time.Time) error {
	l, ok := t.st.locks[lockID]
	if !ok || l.CompanyID != companyID || !l.Active {
		return shared.NotFound("period lock", lockID)
	}
	l.Active = false
	l.DeletedBy = &actorID
	l.DeletedAt = &at
	t.st.locks[lockID] = l
	return nil
}

func (t *Tx) ActiveAccountCodes(ctx context.Context, companyID int64, codes []string) (map[string]bool, error) {
	want := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		want[c] = struct{}{}
	}
	out := make(map[string]bool, len(codes))
	for _, a := range t.st.accounts {
		if a.CompanyID != companyID || !a.IsActive {
			continue
		}
		if _, ok := want[a.Code]; ok {
			out[a.Code] = true
		}
	}
	return out, nil
}

func (t *Tx) FindActiveJournalBySource(ctx context.Context, companyID int64, sourceType string, sourceID uuid.UUID, refType string) (int64, bool, error) {
	for _, e := range t.st.journals {
		if e.CompanyID == companyID && !e.Reversed && e.SourceType == sourceType && e.SourceID == sourceID && e.RefType == refType {
			return e.ID, true, nil
		}
	}
	return 0, false, nil
}

// InsertJournalEntry enforces the same active-source uniqueness as the
// partial unique index in Postgres.
func (t *Tx) InsertJournalEntry(ctx context.Context, entry journals.JournalEntry) (journals.JournalEntry, error) {
	if id, found, _ := t.FindActiveJournalBySource(ctx, entry.CompanyID, entry.SourceType, entry.SourceID, entry.RefType); found {
		return journals.JournalEntry{}, &shared.DuplicatePostingError{JournalID: id}
	}
	entry.ID = t.st.nextID()
	entry.Lines = nil
	t.st.journals[entry.ID] = entry
	return entry, nil
}

func (t *Tx) InsertJournalLines(ctx context.Context, journalID int64, lines []journals.JournalLine) error {
	e, ok := t.st.journals[journalID]
	if !ok {
		return shared.NotFound("journal entry", journalID)
	}
	stored := make([]journals.JournalLine, len(lines))
	for i, l := range lines {
		l.ID = t.st.nextID()
		l.JournalID = journalID
		stored[i] = l
	}
	e.Lines = stored
	t.st.journals[journalID] = e
	return nil
}

func (t *Tx) GetJournalWithLines(ctx context.Context, companyID, journalID int64, forUpdate bool) (journals.JournalEntry, error) {
	e, ok := t.st.journals[journalID]
	if !ok || e.CompanyID != companyID {
		return journals.JournalEntry{}, shared.NotFound("journal entry", journalID)
	}
	e.Lines = append([]journals.JournalLine(nil), e.Lines...)
	sort.Slice(e.Lines, func(i, j int) bool { return e.Lines[i].LineNo < e.Lines[j].LineNo })
	return e, nil
}

func (t *Tx) MarkJournalReversed(ctx context.Context, companyID, journalID int64) error {
	e, ok := t.st.journals[journalID]
	if !ok || e.CompanyID != companyID {
		return shared.NotFound("journal entry", journalID)
	}
	if e.Reversed {
		return &shared.AlreadyReversedError{JournalID: journalID}
	}
	e.Reversed = true
	t.st.journals[journalID] = e
	return nil
}

func (t *Tx) ClearJournalReferences(ctx context.Context, companyID, journalID int64) error {
	for id, b := range t.st.bankTxns {
		if b.CompanyID == companyID && b.JournalID != nil && *b.JournalID == journalID {
			b.Matched = false
			b.JournalID = nil
			b.RuleID = nil
			t.st.bankTxns[id] = b
		}
	}
	for id, d := range t.st.documents {
		if d.CompanyID == companyID && d.JournalID != nil && *d.JournalID == journalID {
			d.JournalID = nil
			t.st.documents[id] = d
		}
	}
	for id, p := range t.st.payments {
		if p.CompanyID == companyID && p.JournalID != nil && *p.JournalID == journalID {
			p.JournalID = nil
			t.st.payments[id] = p
		}
	}
	for id, a := range t.st.assets {
		if a.CompanyID == companyID && a.DisposalJournal != nil && *a.DisposalJournal == journalID {
			a.DisposalJournal = nil
			a.DisposedOn = nil
			t.st.assets[id] = a
		}
	}
	return nil
}

func (t *Tx) InsertDocument(ctx context.Context, doc subledger.Document) (subledger.Document, error) {
	doc.ID = t.st.nextID()
	t.st.documents[doc.ID] = doc
	return doc, nil
}

func (t *Tx) GetDocument(ctx context.Context, companyID, id int64, forUpdate bool) (subledger.Document, error) {
	d, ok := t.st.documents[id]
	if !ok || d.CompanyID != companyID {
		return subledger.Document{}, shared.NotFound("document", id)
	}
	return d, nil
}

func (t *Tx) UpdateDocumentBalance(ctx context.Context, doc subledger.Document) error {
	d, ok := t.st.documents[doc.ID]
	if !ok || d.CompanyID != doc.CompanyID {
		return shared.NotFound("document", doc.ID)
	}
	d.BalanceDue = doc.BalanceDue
	d.PaidAt = doc.PaidAt
	t.st.documents[doc.ID] = d
	return nil
}

func (t *Tx) SetDocumentJournal(ctx context.Context, companyID, id, journalID int64) error {
	d, ok := t.st.documents[id]
	if !ok || d.CompanyID != companyID {
		return shared.NotFound("document", id)
	}
	d.JournalID = &journalID
	t.st.documents[id] = d
	return nil
}

func (t *Tx) CancelDocument(ctx context.Context, companyID, id int64) error {
	d, ok := t.st.documents[id]
	if !ok || d.CompanyID != companyID {
		return shared.NotFound("document", id)
	}
	d.Cancelled = true
	t.st.documents[id] = d
	return nil
}

func (t *Tx) InsertPayment(ctx context.Context, p subledger.Payment) (subledger.Payment, error) {
	p.ID = t.st.nextID()
	t.st.payments[p.ID] = p
	return p, nil
}

func (t *Tx) GetPayment(ctx context.Context, companyID, id int64, forUpdate bool) (subledger.Payment, error) {
	p, ok := t.st.payments[id]
	if !ok || p.CompanyID != companyID {
		return subledger.Payment{}, shared.NotFound("payment", id)
	}
	return p, nil
}

func (t *Tx) UpdatePaymentAmount(ctx context.Context, companyID, id int64, amount shared.Money) error {
	p, ok := t.st.payments[id]
	if !ok || p.CompanyID != companyID {
		return shared.NotFound("payment", id)
	}
	p.Amount = amount
	t.st.payments[id] = p
	return nil
}

func (t *Tx) SetPaymentJournal(ctx context.Context, companyID, id, journalID int64) error {
	p, ok := t.st.payments[id]
	if !ok || p.CompanyID != companyID {
		return shared.NotFound("payment", id)
	}
	p.JournalID = &journalID
	t.st.payments[id] = p
	return nil
}

func (t *Tx) InsertAllocation(ctx context.Context, a subledger.Allocation) (subledger.Allocation, error) {
	a.ID = t.st.nextID()
	t.st.allocations[a.ID] = a
	return a, nil
}

func (t *Tx) ListAllocationsBySource(ctx context.Context, companyID int64, kind subledger.SourceKind, sourceID int64) ([]subledger.Allocation, error) {
	var out []subledger.Allocation
	for _, a := range t.st.allocations {
		if a.CompanyID == companyID && a.SourceKind == kind && a.SourceID == sourceID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *Tx) DeleteAllocationsBySource(ctx context.Context, companyID int64, kind subledger.SourceKind, sourceID int64) error {
	for id, a := range t.st.allocations {
		if a.CompanyID == companyID && a.SourceKind == kind && a.SourceID == sourceID {
			delete(t.st.allocations, id)
		}
	}
	return nil
}

func (t *Tx) SumAllocationsForDocument(ctx context.Context, companyID, documentID int64) (shared.Money, error) {
	var sum shared.Money
	for _, a := range t.st.allocations {
		if a.CompanyID == companyID && a.DocumentID == documentID {
			sum += a.Amount
		}
	}
	return sum, nil
}

func (t *Tx) SumAllocationsBySource(ctx context.Context, companyID int64, kind subledger.SourceKind, sourceID int64) (shared.Money, error) {
	var sum shared.Money
	for _, a := range t.st.allocations {
		if a.CompanyID == companyID && a.SourceKind == kind && a.SourceID == sourceID {
			sum += a.Amount
		}
	}
	return sum, nil
}

func (t *Tx) ListUnmatchedTransactions(ctx context.Context, companyID int64) ([]banking.Transaction, error) {
	var out []banking.Transaction
	for _, b := range t.st.bankTxns {
		if b.CompanyID == companyID && !b.Matched {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TxDate.Equal(out[j].TxDate) {
			return out[i].TxDate.Before(out[j].TxDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *Tx) GetTransaction(ctx context.Context, companyID, id int64, forUpdate bool) (banking.Transaction, error) {
	b, ok := t.st.bankTxns[id]
	if !ok || b.CompanyID != companyID {
		return banking.Transaction{}, shared.NotFound("bank transaction", id)
	}
	return b, nil
}

func (t *Tx) GetBankAccount(ctx context.Context, companyID, id int64) (banking.BankAccount, error) {
	a, ok := t.st.bankAccounts[id]
	if !ok || a.CompanyID != companyID {
		return banking.BankAccount{}, shared.NotFound("bank account", id)
	}
	return a, nil
}

func (t *Tx) ListActiveRules(ctx context.Context, companyID int64) ([]banking.Rule, error) {
	var out []banking.Rule
	for _, r := range t.st.rules {
		if r.CompanyID == companyID && r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *Tx) MarkTransactionMatched(ctx context.Context, companyID, id, journalID int64, ruleID *int64) error {
	b, ok := t.st.bankTxns[id]
	if !ok || b.CompanyID != companyID {
		return shared.NotFound("bank transaction", id)
	}
	b.Matched = true
	b.JournalID = &journalID
	b.RuleID = ruleID
	t.st.bankTxns[id] = b
	return nil
}

func (t *Tx) ClearTransactionMatch(ctx context.Context, companyID, id int64) error {
	b, ok := t.st.bankTxns[id]
	if !ok || b.CompanyID != companyID {
		return shared.NotFound("bank transaction", id)
	}
	b.Matched = false
	b.JournalID = nil
	b.RuleID = nil
	t.st.bankTxns[id] = b
	return nil
}

func (t *Tx) InsertVATPeriod(ctx context.Context, p vat.Period) (vat.Period, error) {
	p.ID = t.st.nextID()
	t.st.vatPeriods[p.ID] = p
	return p, nil
}

func (t *Tx) GetVATPeriod(ctx context.Context, companyID, id int64, forUpdate bool) (vat.Period, error) {
	p, ok := t.st.vatPeriods[id]
	if !ok || p.CompanyID != companyID {
		return vat.Period{}, shared.NotFound("vat period", id)
	}
	return p, nil
}

func (t *Tx) FindOverlappingVATPeriod(ctx context.Context, companyID int64, start, end time.Time) (int64, bool, error) {
	for _, p := range t.st.vatPeriods {
		if p.CompanyID == companyID && !p.PeriodStart.After(end) && !start.After(p.PeriodEnd) {
			return p.ID, true, nil
		}
	}
	return 0, false, nil
}

func (t *Tx) UpdateVATPeriod(ctx context.Context, p vat.Period) error {
	cur, ok := t.st.vatPeriods[p.ID]
	if !ok || cur.CompanyID != p.CompanyID {
		return shared.NotFound("vat period", p.ID)
	}
	t.st.vatPeriods[p.ID] = p
	return nil
}

func (t *Tx) SumAccountMovement(ctx context.Context, companyID int64, code string, start, end time.Time) (shared.Money, shared.Money, error) {
	var debit, credit shared.Money
	for _, e := range t.st.journals {
		if e.CompanyID != companyID || e.EntryDate.Before(start) || e.EntryDate.After(end) {
			continue
		}
		for _, l := range e.Lines {
			if l.AccountCode == code {
				debit += l.Debit
				credit += l.Credit
			}
		}
	}
	return debit, credit, nil
}

func (t *Tx) InsertAsset(ctx context.Context, a assets.Asset) (assets.Asset, error) {
	a.ID = t.st.nextID()
	t.st.assets[a.ID] = a
	return a, nil
}

func (t *Tx) GetAsset(ctx context.Context, companyID, id int64, forUpdate bool) (assets.Asset, error) {
	a, ok := t.st.assets[id]
	if !ok || a.CompanyID != companyID {
		return assets.Asset{}, shared.NotFound("asset", id)
	}
	a.Accumulated = t.accumulated(a.ID)
	return a, nil
}

func (t *Tx) ListDepreciableAssets(ctx context.Context, companyID int64, asOf time.Time) ([]assets.Asset, error) {
	var out []assets.Asset
	for _, a := range t.st.assets {
		if a.CompanyID != companyID || a.Disposed() || a.AcquiredOn.After(asOf) {
			continue
		}
		a.Accumulated = t.accumulated(a.ID)
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *Tx) InsertDepreciationCharges(ctx context.Context, companyID, journalID int64, period time.Time, charges []assets.Charge) error {
	for _, c := range charges {
		t.st.charges = append(t.st.charges, depreciationCharge{
			companyID: companyID,
			journalID: journalID,
			assetID:   c.AssetID,
			period:    period,
			amount:    c.Amount,
		})
	}
	return nil
}

func (t *Tx) MarkAssetDisposed(ctx context.Context, companyID, id int64, on time.Time, journalID int64) error {
	a, ok := t.st.assets[id]
	if !ok || a.CompanyID != companyID {
		return shared.NotFound("asset", id)
	}
	a.DisposedOn = &on
	a.DisposalJournal = &journalID
	t.st.assets[id] = a
	return nil
}

// accumulated sums charges whose journal is still active.
func (t *Tx) accumulated(assetID int64) shared.Money {
	var sum shared.Money
	for _, c := range t.st.charges {
		if c.assetID != assetID {
			continue
		}
		if e, ok := t.st.journals[c.journalID]; ok && !e.Reversed {
			sum += c.amount
		}
	}
	return sum
}
