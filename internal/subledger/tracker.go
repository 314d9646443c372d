package subledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/locks"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	internalshared "github.com/odyssey-erp/odyssey-gl/internal/shared"
)

// Tracker owns document balances. All methods run inside the caller's
// transaction.
type Tracker struct {
	oracle *locks.Oracle
	now    func() time.Time
}

// NewTracker constructs a Tracker.
func NewTracker(oracle *locks.Oracle) *Tracker {
	if oracle == nil {
		oracle = locks.NewOracle()
	}
	return &Tracker{oracle: oracle, now: time.Now}
}

// WithNow overrides the clock for testing.
func (t *Tracker) WithNow(now func() time.Time) {
	if now != nil {
		t.now = now
	}
}

// RegisterDocument stores a new, unposted document with a full balance.
func (t *Tracker) RegisterDocument(ctx context.Context, tx TxRepository, actor internalshared.Actor, doc Document) (Document, error) {
	if err := actor.Validate(); err != nil {
		return Document{}, err
	}
	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	if err := t.oracle.Ensure(ctx, tx, actor.CompanyID, doc.DocDate); err != nil {
		return Document{}, err
	}
	doc.ID = 0
	doc.CompanyID = actor.CompanyID
	doc.DocDate = shared.DateOf(doc.DocDate)
	doc.BalanceDue = doc.Total
	doc.Cancelled = false
	doc.JournalID = nil
	doc.PaidAt = nil
	doc.CreatedBy = actor.UserID
	doc.CreatedAt = t.now()
	return tx.InsertDocument(ctx, doc)
}

// RegisterPayment stores a new, unposted payment.
func (t *Tracker) RegisterPayment(ctx context.Context, tx TxRepository, actor internalshared.Actor, p Payment) (Payment, error) {
	if err := actor.Validate(); err != nil {
		return Payment{}, err
	}
	if err := p.Validate(); err != nil {
		return Payment{}, err
	}
	if err := t.oracle.Ensure(ctx, tx, actor.CompanyID, p.PaymentDate); err != nil {
		return Payment{}, err
	}
	p.ID = 0
	p.CompanyID = actor.CompanyID
	p.PaymentDate = shared.DateOf(p.PaymentDate)
	p.JournalID = nil
	p.CreatedBy = actor.UserID
	p.CreatedAt = t.now()
	return tx.InsertPayment(ctx, p)
}

// Cancel marks an unposted document without allocations as cancelled.
func (t *Tracker) Cancel(ctx context.Context, tx TxRepository, actor internalshared.Actor, documentID int64) (Document, error) {
	if err := actor.Validate(); err != nil {
		return Document{}, err
	}
	doc, err := tx.GetDocument(ctx, actor.CompanyID, documentID, true)
	if err != nil {
		return Document{}, err
	}
	if doc.Cancelled {
		return doc, nil
	}
	if doc.Posted() {
		return Document{}, shared.Invalid("document", "posted documents must be reversed before cancelling")
	}
	if err := t.oracle.Ensure(ctx, tx, actor.CompanyID, doc.DocDate); err != nil {
		return Document{}, err
	}
	applied, err := t.applied(ctx, tx, doc)
	if err != nil {
		return Document{}, err
	}
	if applied > 0 {
		return Document{}, shared.Invalid("document", "has active allocations")
	}
	if err := tx.CancelDocument(ctx, actor.CompanyID, doc.ID); err != nil {
		return Document{}, err
	}
	doc.Cancelled = true
	return doc, nil
}

// Allocate applies amount from a payment or credit to a document and
// returns the recomputed document.
func (t *Tracker) Allocate(ctx context.Context, tx TxRepository, actor internalshared.Actor, in AllocationInput) (Document, error) {
	if err := actor.Validate(); err != nil {
		return Document{}, err
	}
	if in.Amount <= 0 {
		return Document{}, shared.Invalid("amount", "must be positive")
	}
	source, err := t.loadSource(ctx, tx, actor.CompanyID, in.SourceKind, in.SourceID)
	if err != nil {
		return Document{}, err
	}
	date := in.Date
	if date.IsZero() {
		date = source.date
	}
	if err := t.oracle.Ensure(ctx, tx, actor.CompanyID, date); err != nil {
		return Document{}, err
	}
	doc, err := t.loadTarget(ctx, tx, actor.CompanyID, in.DocumentID, source.settles)
	if err != nil {
		return Document{}, err
	}
	applied, err := tx.SumAllocationsForDocument(ctx, actor.CompanyID, doc.ID)
	if err != nil {
		return Document{}, err
	}
	if applied+in.Amount > doc.Total {
		return Document{}, shared.Invalid("amount", fmt.Sprintf("exceeds outstanding %s on document %d", (doc.Total - applied).String(), doc.ID))
	}
	used, err := tx.SumAllocationsBySource(ctx, actor.CompanyID, in.SourceKind, in.SourceID)
	if err != nil {
		return Document{}, err
	}
	if used+in.Amount > source.amount {
		return Document{}, shared.Invalid("amount", fmt.Sprintf("exceeds unapplied %s on %s %d", (source.amount - used).String(), in.SourceKind, in.SourceID))
	}
	if _, err := tx.InsertAllocation(ctx, Allocation{
		CompanyID:  actor.CompanyID,
		SourceKind: in.SourceKind,
		SourceID:   in.SourceID,
		DocumentID: doc.ID,
		Amount:     in.Amount,
		AllocDate:  shared.DateOf(date),
		CreatedBy:  actor.UserID,
		CreatedAt:  t.now(),
	}); err != nil {
		return Document{}, err
	}
	if source.credit != nil {
		if _, err := t.refresh(ctx, tx, *source.credit, date); err != nil {
			return Document{}, err
		}
	}
	return t.refresh(ctx, tx, doc, date)
}

// Reallocate atomically replaces the allocation set of a payment: prior
// allocations are added back, deleted, and the new set applied. The payment
// amount follows the new total. The ledger side is handled by the caller.
func (t *Tracker) Reallocate(ctx context.Context, tx TxRepository, actor internalshared.Actor, in ReallocationInput) (Payment, error) {
	if err := actor.Validate(); err != nil {
		return Payment{}, err
	}
	if err := in.Validate(); err != nil {
		return Payment{}, err
	}
	payment, err := tx.GetPayment(ctx, actor.CompanyID, in.PaymentID, true)
	if err != nil {
		return Payment{}, err
	}
	if err := t.oracle.Ensure(ctx, tx, actor.CompanyID, payment.PaymentDate); err != nil {
		return Payment{}, err
	}
	previous, err := tx.ListAllocationsBySource(ctx, actor.CompanyID, SourcePayment, payment.ID)
	if err != nil {
		return Payment{}, err
	}
	if err := tx.DeleteAllocationsBySource(ctx, actor.CompanyID, SourcePayment, payment.ID); err != nil {
		return Payment{}, err
	}
	touched := make(map[int64]struct{}, len(previous))
	for _, a := range previous {
		touched[a.DocumentID] = struct{}{}
	}
	for _, id := range sortedIDs(touched) {
		doc, err := tx.GetDocument(ctx, actor.CompanyID, id, true)
		if err != nil {
			return Payment{}, err
		}
		if _, err := t.refresh(ctx, tx, doc, payment.PaymentDate); err != nil {
			return Payment{}, err
		}
	}

	perDoc := make(map[int64]shared.Money, len(in.Allocations))
	var total shared.Money
	for _, a := range in.Allocations {
		perDoc[a.DocumentID] += a.Amount
		total += a.Amount
	}
	for _, id := range sortedIDs(perDoc) {
		doc, err := t.loadTarget(ctx, tx, actor.CompanyID, id, payment.Kind.Settles())
		if err != nil {
			return Payment{}, err
		}
		applied, err := tx.SumAllocationsForDocument(ctx, actor.CompanyID, id)
		if err != nil {
			return Payment{}, err
		}
		if applied+perDoc[id] > doc.Total {
			return Payment{}, shared.Invalid("allocations", fmt.Sprintf("exceeds outstanding %s on document %d", (doc.Total - applied).String(), id))
		}
	}

	if total != payment.Amount {
		if err := tx.UpdatePaymentAmount(ctx, actor.CompanyID, payment.ID, total); err != nil {
			return Payment{}, err
		}
		payment.Amount = total
	}
	for _, a := range in.Allocations {
		if _, err := tx.InsertAllocation(ctx, Allocation{
			CompanyID:  actor.CompanyID,
			SourceKind: SourcePayment,
			SourceID:   payment.ID,
			DocumentID: a.DocumentID,
			Amount:     a.Amount,
			AllocDate:  payment.PaymentDate,
			CreatedBy:  actor.UserID,
			CreatedAt:  t.now(),
		}); err != nil {
			return Payment{}, err
		}
	}
	for _, id := range sortedIDs(perDoc) {
		current, err := tx.GetDocument(ctx, actor.CompanyID, id, false)
		if err != nil {
			return Payment{}, err
		}
		if _, err := t.refresh(ctx, tx, current, payment.PaymentDate); err != nil {
			return Payment{}, err
		}
	}
	return payment, nil
}

type allocationSource struct {
	date    time.Time
	amount  shared.Money
	settles DocumentKind
	credit  *Document
}

func (t *Tracker) loadSource(ctx context.Context, tx TxRepository, companyID int64, kind SourceKind, id int64) (allocationSource, error) {
	switch kind {
	case SourcePayment:
		p, err := tx.GetPayment(ctx, companyID, id, true)
		if err != nil {
			return allocationSource{}, err
		}
		if p.JournalID == nil {
			return allocationSource{}, shared.Invalid("source", "payment is not posted")
		}
		return allocationSource{date: p.PaymentDate, amount: p.Amount, settles: p.Kind.Settles()}, nil
	case SourceCredit:
		c, err := tx.GetDocument(ctx, companyID, id, true)
		if err != nil {
			return allocationSource{}, err
		}
		if !c.Kind.IsCredit() {
			return allocationSource{}, shared.Invalid("source", "document is not a credit")
		}
		if c.Cancelled {
			return allocationSource{}, shared.Invalid("source", "credit is cancelled")
		}
		if !c.Posted() {
			return allocationSource{}, shared.Invalid("source", "credit is not posted")
		}
		settles := KindInvoice
		if c.Kind == KindVendorCredit {
			settles = KindBill
		}
		return allocationSource{date: c.DocDate, amount: c.Total, settles: settles, credit: &c}, nil
	default:
		return allocationSource{}, shared.Invalid("source_kind", "unknown source kind")
	}
}

func (t *Tracker) loadTarget(ctx context.Context, tx TxRepository, companyID, id int64, want DocumentKind) (Document, error) {
	doc, err := tx.GetDocument(ctx, companyID, id, true)
	if err != nil {
		return Document{}, err
	}
	if doc.Kind != want {
		return Document{}, shared.Invalid("document", fmt.Sprintf("document %d is a %s, expected %s", id, doc.Kind, want))
	}
	if doc.Cancelled {
		return Document{}, shared.Invalid("document", "document is cancelled")
	}
	if !doc.Posted() {
		return Document{}, shared.Invalid("document", "document is not posted")
	}
	return doc, nil
}

func (t *Tracker) applied(ctx context.Context, tx TxRepository, doc Document) (shared.Money, error) {
	if doc.Kind.IsCredit() {
		return tx.SumAllocationsBySource(ctx, doc.CompanyID, SourceCredit, doc.ID)
	}
	return tx.SumAllocationsForDocument(ctx, doc.CompanyID, doc.ID)
}

func (t *Tracker) refresh(ctx context.Context, tx TxRepository, doc Document, at time.Time) (Document, error) {
	applied, err := t.applied(ctx, tx, doc)
	if err != nil {
		return Document{}, err
	}
	next := Recompute(doc, applied, at)
	if err := tx.UpdateDocumentBalance(ctx, next); err != nil {
		return Document{}, err
	}
	return next, nil
}

func sortedIDs[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
