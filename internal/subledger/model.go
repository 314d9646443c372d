// Package subledger tracks receivable and payable documents, the payments
// and credits applied against them, and the balances that result.
package subledger

import (
	"context"
	"time"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/locks"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

// DocumentKind enumerates receivable and payable documents.
type DocumentKind string

const (
	KindInvoice      DocumentKind = "invoice"
	KindBill         DocumentKind = "bill"
	KindCreditNote   DocumentKind = "credit_note"
	KindVendorCredit DocumentKind = "vendor_credit"
)

// Valid reports whether k is a known kind.
func (k DocumentKind) Valid() bool {
	switch k {
	case KindInvoice, KindBill, KindCreditNote, KindVendorCredit:
		return true
	}
	return false
}

// IsCredit reports whether the document is a credit that is applied against
// other documents rather than settled by them.
func (k DocumentKind) IsCredit() bool {
	return k == KindCreditNote || k == KindVendorCredit
}

// Status is derived from the balance, never stored.
type Status string

const (
	StatusOpen      Status = "open"
	StatusPartPaid  Status = "part_paid"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// Document is the receivable/payable abstraction shared by invoices, bills
// and credits. JournalID is the canonical posted marker.
type Document struct {
	ID         int64
	CompanyID  int64
	Kind       DocumentKind
	Number     string
	PartyID    int64
	DocDate    time.Time
	Subtotal   shared.Money
	Tax        shared.Money
	Total      shared.Money
	BalanceDue shared.Money
	// AccountID optionally overrides the revenue or expense account.
	AccountID *int64
	Cancelled bool
	JournalID *int64
	PaidAt    *time.Time
	CreatedBy int64
	CreatedAt time.Time
}

// Status derives the lifecycle state from the current balance.
func (d Document) Status() Status {
	switch {
	case d.Cancelled:
		return StatusCancelled
	case d.BalanceDue <= shared.Epsilon:
		return StatusPaid
	case d.BalanceDue < d.Total:
		return StatusPartPaid
	default:
		return StatusOpen
	}
}

// Posted reports whether an active journal backs the document.
func (d Document) Posted() bool {
	return d.JournalID != nil
}

// Validate checks a document before registration.
func (d Document) Validate() error {
	if !d.Kind.Valid() {
		return shared.Invalid("kind", "unknown document kind")
	}
	if d.DocDate.IsZero() {
		return shared.Invalid("doc_date", "required")
	}
	if d.Subtotal < 0 || d.Tax < 0 {
		return shared.Invalid("amount", "must not be negative")
	}
	if d.Total <= 0 {
		return shared.Invalid("total", "must be positive")
	}
	// A total inside the settlement tolerance would read as paid on creation.
	if d.Total <= shared.Epsilon {
		return shared.Invalid("total", "must exceed "+shared.Epsilon.String())
	}
	if d.Total != d.Subtotal+d.Tax {
		return shared.Invalid("total", "must equal subtotal plus tax")
	}
	return nil
}

// Recompute derives balance and paidAt after the applied amount changed.
// The balance is clamped to [0, total]; paidAt is stamped with at on the
// transition into paid and cleared on the way out.
func Recompute(doc Document, applied shared.Money, at time.Time) Document {
	balance := doc.Total - applied
	if balance < 0 {
		balance = 0
	}
	if balance > doc.Total {
		balance = doc.Total
	}
	wasPaid := doc.PaidAt != nil
	doc.BalanceDue = balance
	if doc.Status() == StatusPaid {
		if !wasPaid {
			paid := shared.DateOf(at)
			doc.PaidAt = &paid
		}
	} else {
		doc.PaidAt = nil
	}
	return doc
}

// PaymentKind distinguishes money received from money paid out.
type PaymentKind string

const (
	PaymentReceipt      PaymentKind = "receipt"
	PaymentDisbursement PaymentKind = "disbursement"
)

// Payment is a customer receipt or supplier disbursement.
type Payment struct {
	ID            int64
	CompanyID     int64
	Kind          PaymentKind
	PartyID       int64
	PaymentDate   time.Time
	Amount        shared.Money
	Reference     string
	BankAccountID *int64
	JournalID     *int64
	CreatedBy     int64
	CreatedAt     time.Time
}

// Validate checks a payment before registration.
func (p Payment) Validate() error {
	if p.Kind != PaymentReceipt && p.Kind != PaymentDisbursement {
		return shared.Invalid("kind", "unknown payment kind")
	}
	if p.PaymentDate.IsZero() {
		return shared.Invalid("payment_date", "required")
	}
	if p.Amount <= 0 {
		return shared.Invalid("amount", "must be positive")
	}
	return nil
}

// Settles reports the document kind a payment kind may be applied to.
func (k PaymentKind) Settles() DocumentKind {
	if k == PaymentDisbursement {
		return KindBill
	}
	return KindInvoice
}

// SourceKind identifies what an allocation draws from.
type SourceKind string

const (
	SourcePayment SourceKind = "payment"
	SourceCredit  SourceKind = "credit"
)

// Allocation applies part of a payment or credit to one document.
type Allocation struct {
	ID         int64
	CompanyID  int64
	SourceKind SourceKind
	SourceID   int64
	DocumentID int64
	Amount     shared.Money
	AllocDate  time.Time
	CreatedBy  int64
	CreatedAt  time.Time
}

// AllocationInput requests a single allocation.
type AllocationInput struct {
	SourceKind SourceKind
	SourceID   int64
	DocumentID int64
	Amount     shared.Money
	// Date defaults to the source's own date.
	Date time.Time
}

// Target is one line of a reallocation.
type Target struct {
	DocumentID int64
	Amount     shared.Money
}

// ReallocationInput replaces the full allocation set of a payment.
type ReallocationInput struct {
	PaymentID   int64
	Allocations []Target
}

// Validate rejects empty sets and non-positive amounts.
func (in ReallocationInput) Validate() error {
	if in.PaymentID <= 0 {
		return shared.Invalid("payment_id", "required")
	}
	if len(in.Allocations) == 0 {
		return shared.Invalid("allocations", "at least one allocation required")
	}
	for _, a := range in.Allocations {
		if a.DocumentID <= 0 {
			return shared.Invalid("allocations", "document required")
		}
		if a.Amount <= 0 {
			return shared.Invalid("allocations", "amount must be positive")
		}
	}
	return nil
}

// TxRepository is the transactional surface of the tracker.
type TxRepository interface {
	locks.Reader
	InsertDocument(ctx context.Context, doc Document) (Document, error)
	GetDocument(ctx context.Context, companyID, id int64, forUpdate bool) (Document, error)
	UpdateDocumentBalance(ctx context.Context, doc Document) error
	SetDocumentJournal(ctx context.Context, companyID, id, journalID int64) error
	CancelDocument(ctx context.Context, companyID, id int64) error
	InsertPayment(ctx context.Context, p Payment) (Payment, error)
	GetPayment(ctx context.Context, companyID, id int64, forUpdate bool) (Payment, error)
	UpdatePaymentAmount(ctx context.Context, companyID, id int64, amount shared.Money) error
	SetPaymentJournal(ctx context.Context, companyID, id, journalID int64) error
	InsertAllocation(ctx context.Context, a Allocation) (Allocation, error)
	ListAllocationsBySource(ctx context.Context, companyID int64, kind SourceKind, sourceID int64) ([]Allocation, error)
	DeleteAllocationsBySource(ctx context.Context, companyID int64, kind SourceKind, sourceID int64) error
	SumAllocationsForDocument(ctx context.Context, companyID, documentID int64) (shared.Money, error)
	SumAllocationsBySource(ctx context.Context, companyID int64, kind SourceKind, sourceID int64) (shared.Money, error)
}

// Store opens store transactions scoped to the tracker.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}
