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

// RegisterPayment records a new receipt or disbursement.
func (s *Service) RegisterPayment(ctx context.Context, actor internalshared.Actor, p subledger.Payment) (subledger.Payment, error) {
	var out subledger.Payment
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		out, err = s.tracker.RegisterPayment(ctx, tx, actor, p)
		return err
	})
	if err != nil {
		return subledger.Payment{}, err
	}
	s.audit.Emit(ctx, actor, "payment.register", string(out.Kind), out.ID, map[string]any{
		"amount": out.Amount.String(),
	})
	return out, nil
}

// PostCustomerPayment posts Dr bank, Cr AR and applies the receipt to the
// listed invoices.
func (s *Service) PostCustomerPayment(ctx context.Context, actor internalshared.Actor, paymentID int64, allocations []subledger.Target) (Result, error) {
	return s.postPayment(ctx, actor, KindCustomerPayment, subledger.PaymentReceipt, paymentID, allocations)
}

// PostSupplierPayment posts Dr AP, Cr bank and applies the disbursement to
// the listed bills.
func (s *Service) PostSupplierPayment(ctx context.Context, actor internalshared.Actor, paymentID int64, allocations []subledger.Target) (Result, error) {
	return s.postPayment(ctx, actor, KindSupplierPayment, subledger.PaymentDisbursement, paymentID, allocations)
}

func (s *Service) postPayment(ctx context.Context, actor internalshared.Actor, kind string, want subledger.PaymentKind, paymentID int64, allocations []subledger.Target) (Result, error) {
	if err := actor.Validate(); err != nil {
		return Result{}, err
	}
	control, err := s.accounts.Get(ctx, actor.CompanyID, controlKey(want))
	if err != nil {
		s.finish(ctx, actor, kind, sourcePayment, paymentID, Result{}, err, nil)
		return Result{}, err
	}
	var res Result
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetPayment(ctx, actor.CompanyID, paymentID, true)
		if err != nil {
			return err
		}
		if p.Kind != want {
			return shared.Invalid("payment", fmt.Sprintf("payment %d is a %s, not a %s", p.ID, p.Kind, want))
		}
		if p.JournalID != nil {
			res = Result{JournalID: *p.JournalID, AlreadyPosted: true}
			return nil
		}
		bank, err := s.bankCode(ctx, tx, actor.CompanyID, p.BankAccountID)
		if err != nil {
			return err
		}
		res, err = s.post(ctx, tx, actor, paymentPosting(p, bank, control))
		if err != nil || res.AlreadyPosted {
			return err
		}
		if err := tx.SetPaymentJournal(ctx, actor.CompanyID, p.ID, res.JournalID); err != nil {
			return err
		}
		for _, a := range allocations {
			if _, err := s.tracker.Allocate(ctx, tx, actor, subledger.AllocationInput{
				SourceKind: subledger.SourcePayment,
				SourceID:   p.ID,
				DocumentID: a.DocumentID,
				Amount:     a.Amount,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	s.finish(ctx, actor, kind, sourcePayment, paymentID, res, err, map[string]any{
		"allocations": len(allocations),
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Allocate applies part of a posted payment or credit to a document.
func (s *Service) Allocate(ctx context.Context, actor internalshared.Actor, in subledger.AllocationInput) (subledger.Document, error) {
	var doc subledger.Document
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc, err = s.tracker.Allocate(ctx, tx, actor, in)
		return err
	})
	if err != nil {
		return subledger.Document{}, err
	}
	s.audit.Emit(ctx, actor, "allocation.create", string(doc.Kind), doc.ID, map[string]any{
		"source_kind": string(in.SourceKind),
		"source_id":   in.SourceID,
		"amount":      in.Amount.String(),
		"balance_due": doc.BalanceDue.String(),
		"status":      string(doc.Status()),
	})
	return doc, nil
}

// Reallocate replaces a payment's allocations and brings the ledger in line:
// the prior payment journal is reversed before the new one is posted, all in
// one transaction.
func (s *Service) Reallocate(ctx context.Context, actor internalshared.Actor, in subledger.ReallocationInput) (Result, error) {
	if err := actor.Validate(); err != nil {
		return Result{}, err
	}
	var res Result
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := s.tracker.Reallocate(ctx, tx, actor, in)
		if err != nil {
			return err
		}
		control, err := s.accounts.Get(ctx, actor.CompanyID, controlKey(p.Kind))
		if err != nil {
			return err
		}
		bank, err := s.bankCode(ctx, tx, actor.CompanyID, p.BankAccountID)
		if err != nil {
			return err
		}
		if p.JournalID != nil {
			if _, err := s.ledger.Reverse(ctx, tx, actor, *p.JournalID, fmt.Sprintf("Reallocation of payment %d", p.ID)); err != nil {
				return err
			}
		}
		entry, err := s.ledger.Post(ctx, tx, actor, paymentPosting(p, bank, control))
		if err != nil {
			return err
		}
		res = Result{JournalID: entry.ID}
		return tx.SetPaymentJournal(ctx, actor.CompanyID, p.ID, entry.ID)
	})
	s.finish(ctx, actor, KindReallocation, sourcePayment, in.PaymentID, res, err, map[string]any{
		"allocations": len(in.Allocations),
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func controlKey(kind subledger.PaymentKind) string {
	if kind == subledger.PaymentDisbursement {
		return accounts.KeyAP
	}
	return accounts.KeyAR
}

func (s *Service) bankCode(ctx context.Context, tx TxRepository, companyID int64, bankAccountID *int64) (string, error) {
	if bankAccountID == nil {
		return s.accounts.Get(ctx, companyID, accounts.KeyBank)
	}
	account, err := tx.GetBankAccount(ctx, companyID, *bankAccountID)
	if err != nil {
		return "", err
	}
	if account.GLAccountID == nil {
		return s.accounts.Get(ctx, companyID, accounts.KeyBank)
	}
	return s.accounts.GetByID(ctx, companyID, *account.GLAccountID)
}

func paymentPosting(p subledger.Payment, bank, control string) journals.PostingInput {
	desc := fmt.Sprintf("%s %d", p.Kind, p.ID)
	lines := []journals.LineInput{
		journals.Debit(bank, p.Amount, desc),
		journals.Credit(control, p.Amount, desc),
	}
	module := "AR"
	if p.Kind == subledger.PaymentDisbursement {
		lines = []journals.LineInput{
			journals.Debit(control, p.Amount, desc),
			journals.Credit(bank, p.Amount, desc),
		}
		module = "AP"
	}
	return journals.PostingInput{
		EntryDate:   p.PaymentDate,
		Reference:   p.Reference,
		Description: desc,
		Module:      module,
		RefType:     sourcePayment,
		RefID:       p.ID,
		SourceType:  sourcePayment,
		SourceID:    journals.SourceKey(sourcePayment, p.ID),
		Lines:       lines,
	}
}
