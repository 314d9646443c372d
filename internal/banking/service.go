package banking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/locks"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/audit"
	internalshared "github.com/odyssey-erp/odyssey-gl/internal/shared"
)

// Config tunes batch behaviour.
type Config struct {
	// PerTransaction runs every bank transaction of a batch in its own store
	// transaction; failures are counted instead of aborting the batch.
	PerTransaction bool
}

// Service applies rules and manual matches.
type Service struct {
	store    Store
	ledger   *journals.Ledger
	oracle   *locks.Oracle
	accounts Accounts
	cfg      Config
	recorder Recorder
	audit    *audit.Emitter
	logger   *slog.Logger
}

// NewService wires the matcher.
func NewService(store Store, ledger *journals.Ledger, oracle *locks.Oracle, accts Accounts, cfg Config, emitter *audit.Emitter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if oracle == nil {
		oracle = locks.NewOracle()
	}
	return &Service{store: store, ledger: ledger, oracle: oracle, accounts: accts, cfg: cfg, audit: emitter, logger: logger}
}

// WithRecorder attaches a metrics recorder.
func (s *Service) WithRecorder(r Recorder) {
	s.recorder = r
}

// ApplyRules matches every unmatched, unlocked transaction of the company
// against the active rules. By default the whole batch commits or rolls back
// as one. Zero-amount lines are never posted and count as unmatched.
func (s *Service) ApplyRules(ctx context.Context, actor internalshared.Actor) (ApplySummary, error) {
	if err := actor.Validate(); err != nil {
		return ApplySummary{}, err
	}
	var (
		summary ApplySummary
		err     error
	)
	if s.cfg.PerTransaction {
		summary, err = s.applyEach(ctx, actor)
	} else {
		summary, err = s.applyBatch(ctx, actor)
	}
	if err != nil {
		return ApplySummary{}, err
	}
	if s.recorder != nil {
		s.recorder.RecordBankRules(summary)
	}
	s.audit.Emit(ctx, actor, "bank.apply_rules", "company", actor.CompanyID, map[string]any{
		"matched":   summary.Matched,
		"unmatched": summary.Unmatched,
		"locked":    summary.Locked,
		"failed":    summary.Failed,
	})
	return summary, nil
}

func (s *Service) applyBatch(ctx context.Context, actor internalshared.Actor) (ApplySummary, error) {
	var summary ApplySummary
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		summary = ApplySummary{}
		txns, rules, err := s.load(ctx, tx, actor.CompanyID)
		if err != nil {
			return err
		}
		targets := make(map[int64]string)
		for _, t := range txns {
			locked, err := s.oracle.IsLocked(ctx, tx, actor.CompanyID, t.TxDate)
			if err != nil {
				return err
			}
			if locked {
				summary.Locked++
				continue
			}
			if t.Amount == 0 {
				summary.Unmatched++
				continue
			}
			rule, ok := FirstMatch(rules, t)
			if !ok {
				summary.Unmatched++
				continue
			}
			code, err := s.targetCode(ctx, actor.CompanyID, rule, targets)
			if err != nil {
				return err
			}
			ruleID := rule.ID
			if _, err := s.match(ctx, tx, actor, t, code, &ruleID); err != nil {
				return fmt.Errorf("bank transaction %d: %w", t.ID, err)
			}
			summary.Matched++
		}
		return nil
	})
	return summary, err
}

func (s *Service) applyEach(ctx context.Context, actor internalshared.Actor) (ApplySummary, error) {
	var (
		txns  []Transaction
		rules []Rule
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		txns, rules, err = s.load(ctx, tx, actor.CompanyID)
		return err
	})
	if err != nil {
		return ApplySummary{}, err
	}
	var summary ApplySummary
	targets := make(map[int64]string)
	for _, t := range txns {
		if t.Amount == 0 {
			summary.Unmatched++
			continue
		}
		rule, ok := FirstMatch(rules, t)
		if !ok {
			summary.Unmatched++
			continue
		}
		err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			current, err := tx.GetTransaction(ctx, actor.CompanyID, t.ID, true)
			if err != nil {
				return err
			}
			if current.Matched {
				return errAlreadyMatched
			}
			if err := s.oracle.Ensure(ctx, tx, actor.CompanyID, current.TxDate); err != nil {
				return err
			}
			code, err := s.targetCode(ctx, actor.CompanyID, rule, targets)
			if err != nil {
				return err
			}
			ruleID := rule.ID
			_, err = s.match(ctx, tx, actor, current, code, &ruleID)
			return err
		})
		switch {
		case err == nil:
			summary.Matched++
		case errors.Is(err, errAlreadyMatched):
		case errors.Is(err, shared.ErrPeriodLocked):
			summary.Locked++
		default:
			summary.Failed++
			s.logger.Warn("bank rule match failed",
				slog.Int64("company_id", actor.CompanyID),
				slog.Int64("bank_tx_id", t.ID),
				slog.Int64("rule_id", rule.ID),
				slog.Any("error", err))
		}
	}
	return summary, nil
}

var errAlreadyMatched = shared.Invalid("bank_tx", "already matched")

// ManualMatch posts one transaction against an operator-chosen account.
func (s *Service) ManualMatch(ctx context.Context, actor internalshared.Actor, bankTxID int64, accountCode string) (MatchResult, error) {
	if err := actor.Validate(); err != nil {
		return MatchResult{}, err
	}
	if accountCode == "" {
		return MatchResult{}, shared.Invalid("account_code", "required")
	}
	var result MatchResult
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		t, err := tx.GetTransaction(ctx, actor.CompanyID, bankTxID, true)
		if err != nil {
			return err
		}
		if t.Matched {
			return errAlreadyMatched
		}
		result, err = s.match(ctx, tx, actor, t, accountCode, nil)
		return err
	})
	if err != nil {
		return MatchResult{}, err
	}
	s.audit.Emit(ctx, actor, "bank.match", "bank_transaction", bankTxID, map[string]any{
		"journal_id":   result.JournalID,
		"account_code": accountCode,
	})
	return result, nil
}

// UndoMatch reverses the match journal and clears the transaction. Both the
// transaction date and the journal date must be unlocked.
func (s *Service) UndoMatch(ctx context.Context, actor internalshared.Actor, bankTxID int64) (int64, error) {
	if err := actor.Validate(); err != nil {
		return 0, err
	}
	var reversalID int64
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		t, err := tx.GetTransaction(ctx, actor.CompanyID, bankTxID, true)
		if err != nil {
			return err
		}
		if !t.Matched || t.JournalID == nil {
			return shared.Invalid("bank_tx", "not matched")
		}
		if err := s.oracle.Ensure(ctx, tx, actor.CompanyID, t.TxDate); err != nil {
			return err
		}
		entry, err := tx.GetJournalWithLines(ctx, actor.CompanyID, *t.JournalID, false)
		if err != nil {
			return err
		}
		if err := s.oracle.Ensure(ctx, tx, actor.CompanyID, entry.EntryDate); err != nil {
			return err
		}
		mirror, err := s.ledger.Reverse(ctx, tx, actor, entry.ID, fmt.Sprintf("Undo bank match %d", t.ID))
		if err != nil {
			return err
		}
		reversalID = mirror.ID
		return tx.ClearTransactionMatch(ctx, actor.CompanyID, t.ID)
	})
	if err != nil {
		return 0, err
	}
	s.audit.Emit(ctx, actor, "bank.undo_match", "bank_transaction", bankTxID, map[string]any{
		"reversal_id": reversalID,
	})
	return reversalID, nil
}

// Match posts and links a single transaction inside tx. It is exported for
// callers that compose a match into a larger transaction.
func (s *Service) Match(ctx context.Context, tx TxRepository, actor internalshared.Actor, bankTxID int64, accountCode string) (MatchResult, error) {
	t, err := tx.GetTransaction(ctx, actor.CompanyID, bankTxID, true)
	if err != nil {
		return MatchResult{}, err
	}
	if t.Matched {
		return MatchResult{}, errAlreadyMatched
	}
	return s.match(ctx, tx, actor, t, accountCode, nil)
}

func (s *Service) load(ctx context.Context, tx TxRepository, companyID int64) ([]Transaction, []Rule, error) {
	txns, err := tx.ListUnmatchedTransactions(ctx, companyID)
	if err != nil {
		return nil, nil, err
	}
	rules, err := tx.ListActiveRules(ctx, companyID)
	if err != nil {
		return nil, nil, err
	}
	return txns, SortRules(rules), nil
}

func (s *Service) targetCode(ctx context.Context, companyID int64, rule Rule, cache map[int64]string) (string, error) {
	if code, ok := cache[rule.TargetAccountID]; ok {
		return code, nil
	}
	code, err := s.accounts.GetByID(ctx, companyID, rule.TargetAccountID)
	if err != nil {
		return "", fmt.Errorf("rule %d: %w", rule.ID, err)
	}
	cache[rule.TargetAccountID] = code
	return code, nil
}

func (s *Service) bankCode(ctx context.Context, tx TxRepository, t Transaction) (string, error) {
	account, err := tx.GetBankAccount(ctx, t.CompanyID, t.BankAccountID)
	if err != nil {
		return "", err
	}
	if account.GLAccountID != nil {
		return s.accounts.GetByID(ctx, t.CompanyID, *account.GLAccountID)
	}
	return s.accounts.Get(ctx, t.CompanyID, accounts.KeyBank)
}

func (s *Service) match(ctx context.Context, tx TxRepository, actor internalshared.Actor, t Transaction, target string, ruleID *int64) (MatchResult, error) {
	if t.Amount == 0 {
		return MatchResult{}, shared.Invalid("amount", "zero amount transactions cannot be matched")
	}
	bank, err := s.bankCode(ctx, tx, t)
	if err != nil {
		return MatchResult{}, err
	}
	entry, err := s.ledger.Post(ctx, tx, actor, MatchPosting(t, bank, target))
	journalID := entry.ID
	if err != nil {
		var dup *shared.DuplicatePostingError
		if !errors.As(err, &dup) {
			return MatchResult{}, err
		}
		journalID = dup.JournalID
	}
	if err := tx.MarkTransactionMatched(ctx, actor.CompanyID, t.ID, journalID, ruleID); err != nil {
		return MatchResult{}, err
	}
	return MatchResult{TransactionID: t.ID, JournalID: journalID, RuleID: ruleID}, nil
}

// MatchPosting builds the two-line journal of a match. Inflows debit the
// bank; outflows credit it.
func MatchPosting(t Transaction, bankCode, targetCode string) journals.PostingInput {
	amount := t.Amount.Abs()
	desc := t.Description
	lines := []journals.LineInput{
		journals.Debit(bankCode, amount, desc),
		journals.Credit(targetCode, amount, desc),
	}
	if t.Amount < 0 {
		lines = []journals.LineInput{
			journals.Debit(targetCode, amount, desc),
			journals.Credit(bankCode, amount, desc),
		}
	}
	return journals.PostingInput{
		EntryDate:   t.TxDate,
		Reference:   t.Reference,
		Description: fmt.Sprintf("Bank match %d", t.ID),
		Module:      "BANK",
		RefType:     SourceBankTransaction,
		RefID:       t.ID,
		SourceType:  SourceBankTransaction,
		SourceID:    journals.SourceKey(SourceBankTransaction, t.ID),
		Lines:       lines,
	}
}
