package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/banking"
)

const bankTxColumns = `id, company_id, bank_account_id, tx_date, description, reference, counterparty, amount, matched, journal_id, rule_id`

func scanBankTx(row pgx.Row) (banking.Transaction, error) {
	var t banking.Transaction
	err := row.Scan(&t.ID, &t.CompanyID, &t.BankAccountID, &t.TxDate, &t.Description, &t.Reference, &t.Counterparty,
		&t.Amount, &t.Matched, &t.JournalID, &t.RuleID)
	t.TxDate = shared.DateOf(t.TxDate)
	return t, err
}

func (r *Tx) ListUnmatchedTransactions(ctx context.Context, companyID int64) ([]banking.Transaction, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+bankTxColumns+` FROM bank_transactions
WHERE company_id=$1 AND NOT matched ORDER BY tx_date, id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []banking.Transaction
	for rows.Next() {
		t, err := scanBankTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Tx) GetTransaction(ctx context.Context, companyID, id int64, lock bool) (banking.Transaction, error) {
	t, err := scanBankTx(r.tx.QueryRow(ctx, `SELECT `+bankTxColumns+` FROM bank_transactions
WHERE company_id=$1 AND id=$2`+forUpdate(lock), companyID, id))
	if err != nil {
		if notFound(err) {
			return banking.Transaction{}, shared.NotFound("bank transaction", id)
		}
		return banking.Transaction{}, err
	}
	return t, nil
}

func (r *Tx) GetBankAccount(ctx context.Context, companyID, id int64) (banking.BankAccount, error) {
	var a banking.BankAccount
	err := r.tx.QueryRow(ctx, `SELECT id, company_id, name, gl_account_id FROM bank_accounts WHERE company_id=$1 AND id=$2`,
		companyID, id).Scan(&a.ID, &a.CompanyID, &a.Name, &a.GLAccountID)
	if err != nil {
		if notFound(err) {
			return banking.BankAccount{}, shared.NotFound("bank account", id)
		}
		return banking.BankAccount{}, err
	}
	return a, nil
}

func (r *Tx) ListActiveRules(ctx context.Context, companyID int64) ([]banking.Rule, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, company_id, name, match_field, match_operator, match_value, target_account_id, priority, active
FROM bank_rules WHERE company_id=$1 AND active ORDER BY priority, id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []banking.Rule
	for rows.Next() {
		var rule banking.Rule
		if err := rows.Scan(&rule.ID, &rule.CompanyID, &rule.Name, &rule.MatchField, &rule.MatchOperator, &rule.MatchValue,
			&rule.TargetAccountID, &rule.Priority, &rule.Active); err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *Tx) MarkTransactionMatched(ctx context.Context, companyID, id, journalID int64, ruleID *int64) error {
	return r.execOne(ctx, "bank transaction", id, `UPDATE bank_transactions SET matched=TRUE, journal_id=$3, rule_id=$4
WHERE company_id=$1 AND id=$2`, companyID, id, journalID, ruleID)
}

func (r *Tx) ClearTransactionMatch(ctx context.Context, companyID, id int64) error {
	return r.execOne(ctx, "bank transaction", id, `UPDATE bank_transactions SET matched=FALSE, journal_id=NULL, rule_id=NULL
WHERE company_id=$1 AND id=$2`, companyID, id)
}
