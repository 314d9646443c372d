// Package banking matches imported bank transactions to GL accounts, either
// by ordered rules or by an operator's manual choice.
package banking

import (
	"context"
	"time"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

// SourceBankTransaction is the posting source type of bank matches.
const SourceBankTransaction = "bank_transaction"

// BankAccount links a bank feed to its GL cash account.
type BankAccount struct {
	ID        int64
	CompanyID int64
	Name      string
	// GLAccountID is optional; the company bank_account mapping applies
	// when it is nil.
	GLAccountID *int64
}

// Transaction is one signed bank statement line.
type Transaction struct {
	ID            int64
	CompanyID     int64
	BankAccountID int64
	TxDate        time.Time
	Description   string
	Reference     string
	Counterparty  string
	Amount        shared.Money
	Matched       bool
	JournalID     *int64
	RuleID        *int64
}

// MatchField names the transaction attribute a rule inspects.
type MatchField string

const (
	FieldDescription  MatchField = "description"
	FieldReference    MatchField = "reference"
	FieldCounterparty MatchField = "counterparty"
)

// MatchOperator is the comparison a rule applies.
type MatchOperator string

const (
	OpContains   MatchOperator = "contains"
	OpStartsWith MatchOperator = "starts_with"
	OpEquals     MatchOperator = "equals"
)

// Rule is an externally authored matching rule. Lower Priority wins.
type Rule struct {
	ID              int64
	CompanyID       int64
	Name            string
	MatchField      MatchField
	MatchOperator   MatchOperator
	MatchValue      string
	TargetAccountID int64
	Priority        int
	Active          bool
}

// ApplySummary counts the outcome of one ApplyRules batch.
type ApplySummary struct {
	Matched   int
	Unmatched int
	Locked    int
	Failed    int
}

// MatchResult describes a single matched transaction.
type MatchResult struct {
	TransactionID int64
	JournalID     int64
	RuleID        *int64
}

// TxRepository is the transactional surface of the matcher. It embeds the
// ledger's so matches post in the same transaction.
type TxRepository interface {
	journals.TxRepository
	ListUnmatchedTransactions(ctx context.Context, companyID int64) ([]Transaction, error)
	GetTransaction(ctx context.Context, companyID, id int64, forUpdate bool) (Transaction, error)
	GetBankAccount(ctx context.Context, companyID, id int64) (BankAccount, error)
	ListActiveRules(ctx context.Context, companyID int64) ([]Rule, error)
	MarkTransactionMatched(ctx context.Context, companyID, id, journalID int64, ruleID *int64) error
	ClearTransactionMatch(ctx context.Context, companyID, id int64) error
}

// Store opens store transactions scoped to the matcher.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// Accounts resolves GL codes for bank and rule targets.
type Accounts interface {
	Get(ctx context.Context, companyID int64, key string) (string, error)
	GetByID(ctx context.Context, companyID, accountID int64) (string, error)
}

// Recorder receives batch outcomes for metrics.
type Recorder interface {
	RecordBankRules(summary ApplySummary)
}
