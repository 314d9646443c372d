// Package posting turns business events into balanced journals and keeps
// subsidiary state in step with the ledger. Every operation runs in exactly
// one store transaction.
package posting

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/assets"
	"github.com/odyssey-erp/odyssey-gl/internal/audit"
	"github.com/odyssey-erp/odyssey-gl/internal/banking"
	internalshared "github.com/odyssey-erp/odyssey-gl/internal/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/subledger"
)

// Posting kinds, used for metrics and audit actions.
const (
	KindInvoice          = "invoice"
	KindAPBill           = "ap_bill"
	KindCreditNote       = "credit_note"
	KindVendorCredit     = "vendor_credit"
	KindCustomerPayment  = "customer_payment"
	KindSupplierPayment  = "supplier_payment"
	KindDepreciationRun  = "depreciation_run"
	KindAssetDisposal    = "asset_disposal"
	KindBankMatch        = "bank_match"
	KindReallocation     = "reallocation"
	sourcePayment        = "payment"
	outcomePosted        = "posted"
	outcomeAlreadyPosted = "already_posted"
	outcomeEmpty         = "empty"
	outcomeFailed        = "failed"
)

// TxRepository is the composite transactional surface the orchestrator
// drives. One concrete store transaction satisfies every component.
type TxRepository interface {
	journals.TxRepository
	subledger.TxRepository
	banking.TxRepository
	assets.TxRepository
}

// Store opens orchestrator transactions.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// Accounts resolves account roles and explicit account ids.
type Accounts interface {
	Get(ctx context.Context, companyID int64, key string) (string, error)
	GetByID(ctx context.Context, companyID, accountID int64) (string, error)
}

// Recorder receives posting outcomes for metrics.
type Recorder interface {
	RecordPosting(kind, outcome string)
}

// Result reports the journal backing a posted event. AlreadyPosted is set
// when the event had been posted before and nothing was written.
type Result struct {
	JournalID     int64
	AlreadyPosted bool
}

// Service is the posting façade.
type Service struct {
	store    Store
	ledger   *journals.Ledger
	tracker  *subledger.Tracker
	bank     *banking.Service
	accounts Accounts
	recorder Recorder
	audit    *audit.Emitter
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the orchestrator.
func NewService(store Store, ledger *journals.Ledger, tracker *subledger.Tracker, bank *banking.Service, accts Accounts, emitter *audit.Emitter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		ledger:   ledger,
		tracker:  tracker,
		bank:     bank,
		accounts: accts,
		audit:    emitter,
		logger:   logger,
		now:      time.Now,
	}
}

// WithRecorder attaches a metrics recorder.
func (s *Service) WithRecorder(r Recorder) {
	s.recorder = r
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// resolve maps each role key to its account code.
func (s *Service) resolve(ctx context.Context, companyID int64, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		code, err := s.accounts.Get(ctx, companyID, key)
		if err != nil {
			return nil, err
		}
		out[key] = code
	}
	return out, nil
}

// post runs a ledger post and maps a duplicate to the non-fatal result.
func (s *Service) post(ctx context.Context, tx TxRepository, actor internalshared.Actor, in journals.PostingInput) (Result, error) {
	entry, err := s.ledger.Post(ctx, tx, actor, in)
	if err != nil {
		var dup *shared.DuplicatePostingError
		if errors.As(err, &dup) {
			return Result{JournalID: dup.JournalID, AlreadyPosted: true}, nil
		}
		return Result{}, err
	}
	return Result{JournalID: entry.ID}, nil
}

// finish records metrics and, on success, the audit entry.
func (s *Service) finish(ctx context.Context, actor internalshared.Actor, kind, entity string, entityID int64, res Result, err error, meta map[string]any) {
	outcome := outcomePosted
	switch {
	case err != nil:
		outcome = outcomeFailed
	case res.AlreadyPosted:
		outcome = outcomeAlreadyPosted
	case res.JournalID == 0:
		outcome = outcomeEmpty
	}
	if s.recorder != nil {
		s.recorder.RecordPosting(kind, outcome)
	}
	if err != nil {
		s.logger.Debug("posting rejected",
			slog.String("kind", kind),
			slog.Int64("company_id", actor.CompanyID),
			slog.Int64("entity_id", entityID),
			slog.Any("error", err))
		return
	}
	if outcome != outcomePosted {
		return
	}
	if meta == nil {
		meta = make(map[string]any, 1)
	}
	meta["journal_id"] = res.JournalID
	s.audit.Emit(ctx, actor, "posting."+kind, entity, entityID, meta)
}
