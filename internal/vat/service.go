package vat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/locks"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/audit"
	internalshared "github.com/odyssey-erp/odyssey-gl/internal/shared"
)

// Service runs the VAT period state machine.
type Service struct {
	store    Store
	ledger   *journals.Ledger
	oracle   *locks.Oracle
	accounts Accounts
	audit    *audit.Emitter
	now      func() time.Time
}

// NewService wires the aggregator.
func NewService(store Store, ledger *journals.Ledger, oracle *locks.Oracle, accts Accounts, emitter *audit.Emitter) *Service {
	if oracle == nil {
		oracle = locks.NewOracle()
	}
	return &Service{store: store, ledger: ledger, oracle: oracle, accounts: accts, audit: emitter, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreatePeriod opens a period; ranges of one company never overlap.
func (s *Service) CreatePeriod(ctx context.Context, actor internalshared.Actor, start, end time.Time) (Period, error) {
	if err := actor.Validate(); err != nil {
		return Period{}, err
	}
	if start.IsZero() || end.IsZero() {
		return Period{}, shared.Invalid("period", "start and end required")
	}
	start, end = shared.DateOf(start), shared.DateOf(end)
	if start.After(end) {
		return Period{}, shared.Invalid("period", "start after end")
	}
	var period Period
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, found, err := tx.FindOverlappingVATPeriod(ctx, actor.CompanyID, start, end)
		if err != nil {
			return err
		}
		if found {
			return &OverlapError{ExistingID: existing}
		}
		period, err = tx.InsertVATPeriod(ctx, Period{
			CompanyID:   actor.CompanyID,
			PeriodStart: start,
			PeriodEnd:   end,
			Status:      StatusOpen,
			CreatedBy:   actor.UserID,
			CreatedAt:   s.now(),
		})
		return err
	})
	if err != nil {
		return Period{}, err
	}
	s.audit.Emit(ctx, actor, "vat.create_period", "vat_period", period.ID, map[string]any{
		"start": start.Format(shared.DateLayout),
		"end":   end.Format(shared.DateLayout),
	})
	return period, nil
}

// Prepare computes the period totals from the ledger and closes the books
// through the period end.
func (s *Service) Prepare(ctx context.Context, actor internalshared.Actor, periodID int64) (Period, error) {
	if err := actor.Validate(); err != nil {
		return Period{}, err
	}
	codes, err := s.codes(ctx, actor.CompanyID)
	if err != nil {
		return Period{}, err
	}
	var period Period
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetVATPeriod(ctx, actor.CompanyID, periodID, true)
		if err != nil {
			return err
		}
		if p.Status != StatusOpen {
			return &TransitionError{From: p.Status, Action: "prepare"}
		}
		outDebit, outCredit, err := tx.SumAccountMovement(ctx, actor.CompanyID, codes.Output, p.PeriodStart, p.PeriodEnd)
		if err != nil {
			return err
		}
		inDebit, inCredit, err := tx.SumAccountMovement(ctx, actor.CompanyID, codes.Input, p.PeriodStart, p.PeriodEnd)
		if err != nil {
			return err
		}
		now := s.now()
		p.OutputVAT = outCredit - outDebit
		p.InputVAT = inDebit - inCredit
		p.NetVAT = p.OutputVAT - p.InputVAT
		p.Status = StatusPrepared
		p.PreparedBy = &actor.UserID
		p.PreparedAt = &now
		if err := tx.UpdateVATPeriod(ctx, p); err != nil {
			return err
		}
		if _, err := s.oracle.EnsureLockedThrough(ctx, tx, actor, p.PeriodEnd, lockReason(p, "prepared")); err != nil {
			return err
		}
		period = p
		return nil
	})
	if err != nil {
		return Period{}, err
	}
	s.audit.Emit(ctx, actor, "vat.prepare", "vat_period", period.ID, map[string]any{
		"output_vat": period.OutputVAT.String(),
		"input_vat":  period.InputVAT.String(),
		"net_vat":    period.NetVAT.String(),
	})
	return period, nil
}

// File finalises a prepared or adjusted period. The lock through the period
// end is installed only when the horizon does not already cover it.
func (s *Service) File(ctx context.Context, actor internalshared.Actor, periodID int64) (Period, error) {
	if err := actor.Validate(); err != nil {
		return Period{}, err
	}
	var period Period
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetVATPeriod(ctx, actor.CompanyID, periodID, true)
		if err != nil {
			return err
		}
		if p.Status != StatusPrepared && p.Status != StatusAdjusted {
			return &TransitionError{From: p.Status, Action: "file"}
		}
		now := s.now()
		p.Status = StatusFiled
		p.FiledBy = &actor.UserID
		p.FiledAt = &now
		if err := tx.UpdateVATPeriod(ctx, p); err != nil {
			return err
		}
		if _, err := s.oracle.EnsureLockedThrough(ctx, tx, actor, p.PeriodEnd, lockReason(p, "filed")); err != nil {
			return err
		}
		period = p
		return nil
	})
	if err != nil {
		return Period{}, err
	}
	s.audit.Emit(ctx, actor, "vat.file", "vat_period", period.ID, map[string]any{
		"net_vat": period.NetVAT.String(),
	})
	return period, nil
}

// Adjust posts one journal dated today moving output or input VAT against
// the VAT control account and updates the period totals by the same deltas.
func (s *Service) Adjust(ctx context.Context, actor internalshared.Actor, periodID int64, lines []AdjustmentLine) (Period, int64, error) {
	if err := actor.Validate(); err != nil {
		return Period{}, 0, err
	}
	if len(lines) == 0 {
		return Period{}, 0, shared.Invalid("lines", "at least one adjustment required")
	}
	codes, err := s.codes(ctx, actor.CompanyID)
	if err != nil {
		return Period{}, 0, err
	}
	var (
		period    Period
		journalID int64
	)
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetVATPeriod(ctx, actor.CompanyID, periodID, true)
		if err != nil {
			return err
		}
		if p.Status == StatusFiled {
			return &TransitionError{From: p.Status, Action: "adjust"}
		}
		in, outDelta, inDelta, err := adjustmentPosting(p, codes, lines, shared.DateOf(s.now()))
		if err != nil {
			return err
		}
		entry, err := s.ledger.Post(ctx, tx, actor, in)
		if err != nil {
			return err
		}
		p.OutputVAT += outDelta
		p.InputVAT += inDelta
		p.NetVAT = p.OutputVAT - p.InputVAT
		p.Adjustments++
		p.Status = StatusAdjusted
		if err := tx.UpdateVATPeriod(ctx, p); err != nil {
			return err
		}
		period, journalID = p, entry.ID
		return nil
	})
	if err != nil {
		return Period{}, 0, err
	}
	s.audit.Emit(ctx, actor, "vat.adjust", "vat_period", period.ID, map[string]any{
		"journal_id": journalID,
		"net_vat":    period.NetVAT.String(),
	})
	return period, journalID, nil
}

func (s *Service) codes(ctx context.Context, companyID int64) (Codes, error) {
	var (
		c   Codes
		err error
	)
	if c.Output, err = s.accounts.Get(ctx, companyID, accounts.KeyVATOutput); err != nil {
		return Codes{}, err
	}
	if c.Input, err = s.accounts.Get(ctx, companyID, accounts.KeyVATInput); err != nil {
		return Codes{}, err
	}
	if c.Control, err = s.accounts.Get(ctx, companyID, accounts.KeyVATControl); err != nil {
		return Codes{}, err
	}
	return c, nil
}

// adjustmentPosting builds the journal of one adjustment. Raising output VAT
// credits the output account; raising input VAT debits the input account.
// The VAT control account takes the net offset.
func adjustmentPosting(p Period, codes Codes, lines []AdjustmentLine, today time.Time) (journals.PostingInput, shared.Money, shared.Money, error) {
	var (
		out      []journals.LineInput
		outDelta shared.Money
		inDelta  shared.Money
	)
	for idx, l := range lines {
		if l.Amount == 0 {
			return journals.PostingInput{}, 0, 0, shared.Invalid(fmt.Sprintf("lines[%d]", idx), "amount required")
		}
		amount := l.Amount.Abs()
		switch l.Kind {
		case KindOutput:
			outDelta += l.Amount
			if l.Amount > 0 {
				out = append(out, journals.Credit(codes.Output, amount, l.Description))
			} else {
				out = append(out, journals.Debit(codes.Output, amount, l.Description))
			}
		case KindInput:
			inDelta += l.Amount
			if l.Amount > 0 {
				out = append(out, journals.Debit(codes.Input, amount, l.Description))
			} else {
				out = append(out, journals.Credit(codes.Input, amount, l.Description))
			}
		default:
			return journals.PostingInput{}, 0, 0, shared.Invalid(fmt.Sprintf("lines[%d]", idx), "kind must be output or input")
		}
	}
	// Debit-positive net of the control offset.
	control := outDelta - inDelta
	switch {
	case control > 0:
		out = append(out, journals.Debit(codes.Control, control, "VAT control"))
	case control < 0:
		out = append(out, journals.Credit(codes.Control, control.Abs(), "VAT control"))
	}
	seq := p.Adjustments + 1
	return journals.PostingInput{
		EntryDate:   today,
		Reference:   fmt.Sprintf("VAT-%d-ADJ%d", p.ID, seq),
		Description: fmt.Sprintf("VAT adjustment %s..%s", p.PeriodStart.Format(shared.DateLayout), p.PeriodEnd.Format(shared.DateLayout)),
		Module:      "VAT",
		RefType:     "vat_period",
		RefID:       p.ID,
		SourceType:  SourceAdjustment,
		SourceID:    uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("%s:%d:%d", SourceAdjustment, p.ID, seq))),
		Lines:       out,
	}, outDelta, inDelta, nil
}

func lockReason(p Period, action string) string {
	return fmt.Sprintf("VAT period %s..%s %s", p.PeriodStart.Format(shared.DateLayout), p.PeriodEnd.Format(shared.DateLayout), action)
}
