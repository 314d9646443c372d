package posting

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	internalshared "github.com/odyssey-erp/odyssey-gl/internal/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/subledger"
)

// documentCodes are the three accounts a document journal touches.
type documentCodes struct {
	control string // AR or AP
	base    string // revenue or expense
	tax     string // VAT output or input
}

type documentRule struct {
	posting    string
	kind       subledger.DocumentKind
	controlKey string
	baseKey    string
	taxKey     string
	module     string
	lines      func(doc subledger.Document, c documentCodes) []journals.LineInput
}

var (
	invoiceRule = documentRule{
		posting:    KindInvoice,
		kind:       subledger.KindInvoice,
		controlKey: accounts.KeyAR,
		baseKey:    accounts.KeySalesRevenue,
		taxKey:     accounts.KeyVATOutput,
		module:     "AR",
		lines: func(doc subledger.Document, c documentCodes) []journals.LineInput {
			return omitZero(
				journals.Debit(c.control, doc.Total, "Accounts receivable"),
				journals.Credit(c.base, doc.Subtotal, "Revenue"),
				journals.Credit(c.tax, doc.Tax, "VAT output"),
			)
		},
	}
	billRule = documentRule{
		posting:    KindAPBill,
		kind:       subledger.KindBill,
		controlKey: accounts.KeyAP,
		baseKey:    accounts.KeyPurchaseExpense,
		taxKey:     accounts.KeyVATInput,
		module:     "AP",
		lines: func(doc subledger.Document, c documentCodes) []journals.LineInput {
			return omitZero(
				journals.Debit(c.base, doc.Subtotal, "Expense"),
				journals.Debit(c.tax, doc.Tax, "VAT input"),
				journals.Credit(c.control, doc.Total, "Accounts payable"),
			)
		},
	}
	creditNoteRule = documentRule{
		posting:    KindCreditNote,
		kind:       subledger.KindCreditNote,
		controlKey: accounts.KeyAR,
		baseKey:    accounts.KeySalesRevenue,
		taxKey:     accounts.KeyVATOutput,
		module:     "AR",
		lines: func(doc subledger.Document, c documentCodes) []journals.LineInput {
			return omitZero(
				journals.Debit(c.base, doc.Subtotal, "Revenue reversal"),
				journals.Debit(c.tax, doc.Tax, "VAT output reversal"),
				journals.Credit(c.control, doc.Total, "Accounts receivable"),
			)
		},
	}
	vendorCreditRule = documentRule{
		posting:    KindVendorCredit,
		kind:       subledger.KindVendorCredit,
		controlKey: accounts.KeyAP,
		baseKey:    accounts.KeyPurchaseExpense,
		taxKey:     accounts.KeyVATInput,
		module:     "AP",
		lines: func(doc subledger.Document, c documentCodes) []journals.LineInput {
			return omitZero(
				journals.Debit(c.control, doc.Total, "Accounts payable"),
				journals.Credit(c.base, doc.Subtotal, "Expense reversal"),
				journals.Credit(c.tax, doc.Tax, "VAT input reversal"),
			)
		},
	}
)

// RegisterDocument records a new receivable or payable document.
func (s *Service) RegisterDocument(ctx context.Context, actor internalshared.Actor, doc subledger.Document) (subledger.Document, error) {
	var out subledger.Document
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		out, err = s.tracker.RegisterDocument(ctx, tx, actor, doc)
		return err
	})
	if err != nil {
		return subledger.Document{}, err
	}
	s.audit.Emit(ctx, actor, "document.register", string(out.Kind), out.ID, map[string]any{
		"number": out.Number,
		"total":  out.Total.String(),
	})
	return out, nil
}

// PostInvoice posts Dr AR total, Cr revenue subtotal, Cr VAT output tax.
func (s *Service) PostInvoice(ctx context.Context, actor internalshared.Actor, documentID int64) (Result, error) {
	return s.postDocument(ctx, actor, invoiceRule, documentID, nil)
}

// PostAPBill posts Dr expense subtotal, Dr VAT input tax, Cr AP total.
func (s *Service) PostAPBill(ctx context.Context, actor internalshared.Actor, documentID int64) (Result, error) {
	return s.postDocument(ctx, actor, billRule, documentID, nil)
}

// PostCreditNote posts the credit note and applies it to the listed invoices.
func (s *Service) PostCreditNote(ctx context.Context, actor internalshared.Actor, documentID int64, allocations []subledger.Target) (Result, error) {
	return s.postDocument(ctx, actor, creditNoteRule, documentID, allocations)
}

// PostVendorCredit posts the vendor credit and applies it to the listed bills.
func (s *Service) PostVendorCredit(ctx context.Context, actor internalshared.Actor, documentID int64, allocations []subledger.Target) (Result, error) {
	return s.postDocument(ctx, actor, vendorCreditRule, documentID, allocations)
}

func (s *Service) postDocument(ctx context.Context, actor internalshared.Actor, rule documentRule, documentID int64, allocations []subledger.Target) (Result, error) {
	if err := actor.Validate(); err != nil {
		return Result{}, err
	}
	codes, err := s.documentCodes(ctx, actor.CompanyID, rule)
	if err != nil {
		s.finish(ctx, actor, rule.posting, string(rule.kind), documentID, Result{}, err, nil)
		return Result{}, err
	}
	var res Result
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err := tx.GetDocument(ctx, actor.CompanyID, documentID, true)
		if err != nil {
			return err
		}
		if doc.Kind != rule.kind {
			return shared.Invalid("document", fmt.Sprintf("document %d is a %s, not a %s", doc.ID, doc.Kind, rule.kind))
		}
		if doc.Posted() {
			res = Result{JournalID: *doc.JournalID, AlreadyPosted: true}
			return nil
		}
		if doc.Cancelled {
			return shared.Invalid("document", "document is cancelled")
		}
		if doc.Total != doc.Subtotal+doc.Tax {
			return shared.Invalid("total", "must equal subtotal plus tax")
		}
		docCodes := codes
		if doc.AccountID != nil {
			if docCodes.base, err = s.accounts.GetByID(ctx, actor.CompanyID, *doc.AccountID); err != nil {
				return err
			}
		}
		res, err = s.post(ctx, tx, actor, documentPosting(rule, doc, docCodes))
		if err != nil || res.AlreadyPosted {
			return err
		}
		if err := tx.SetDocumentJournal(ctx, actor.CompanyID, doc.ID, res.JournalID); err != nil {
			return err
		}
		for _, a := range allocations {
			if _, err := s.tracker.Allocate(ctx, tx, actor, subledger.AllocationInput{
				SourceKind: subledger.SourceCredit,
				SourceID:   doc.ID,
				DocumentID: a.DocumentID,
				Amount:     a.Amount,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	s.finish(ctx, actor, rule.posting, string(rule.kind), documentID, res, err, map[string]any{
		"allocations": len(allocations),
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (s *Service) documentCodes(ctx context.Context, companyID int64, rule documentRule) (documentCodes, error) {
	codes, err := s.resolve(ctx, companyID, rule.controlKey, rule.baseKey, rule.taxKey)
	if err != nil {
		return documentCodes{}, err
	}
	return documentCodes{control: codes[rule.controlKey], base: codes[rule.baseKey], tax: codes[rule.taxKey]}, nil
}

func documentPosting(rule documentRule, doc subledger.Document, c documentCodes) journals.PostingInput {
	return journals.PostingInput{
		EntryDate:   doc.DocDate,
		Reference:   doc.Number,
		Description: fmt.Sprintf("%s %s", rule.kind, doc.Number),
		Module:      rule.module,
		RefType:     string(rule.kind),
		RefID:       doc.ID,
		SourceType:  string(rule.kind),
		SourceID:    journals.SourceKey(string(rule.kind), doc.ID),
		Lines:       rule.lines(doc, c),
	}
}

// CancelDocument reverses the document's journal, if any, and cancels it.
// Documents with active allocations cannot be cancelled.
func (s *Service) CancelDocument(ctx context.Context, actor internalshared.Actor, documentID int64, reason string) (subledger.Document, error) {
	if err := actor.Validate(); err != nil {
		return subledger.Document{}, err
	}
	var (
		doc      subledger.Document
		reversal int64
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetDocument(ctx, actor.CompanyID, documentID, true)
		if err != nil {
			return err
		}
		if current.Posted() {
			mirror, err := s.ledger.Reverse(ctx, tx, actor, *current.JournalID, reason)
			if err != nil {
				return err
			}
			reversal = mirror.ID
		}
		doc, err = s.tracker.Cancel(ctx, tx, actor, documentID)
		return err
	})
	if err != nil {
		return subledger.Document{}, err
	}
	s.audit.Emit(ctx, actor, "document.cancel", string(doc.Kind), doc.ID, map[string]any{
		"reversal_id": reversal,
		"reason":      reason,
	})
	return doc, nil
}

func omitZero(lines ...journals.LineInput) []journals.LineInput {
	out := lines[:0]
	for _, l := range lines {
		if l.Debit != 0 || l.Credit != 0 {
			out = append(out, l)
		}
	}
	return out
}
