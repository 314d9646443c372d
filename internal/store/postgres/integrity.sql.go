package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/integrity"
)

func (r *Tx) CompanyIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.tx.Query(ctx, `SELECT company_id FROM accounts UNION SELECT company_id FROM journal_entries ORDER BY 1`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (r *Tx) UnbalancedJournals(ctx context.Context, companyID int64) ([]integrity.Finding, error) {
	rows, err := r.tx.Query(ctx, `SELECT e.id, (COALESCE(SUM(l.debit),0) - COALESCE(SUM(l.credit),0))::BIGINT, COUNT(l.id)
FROM journal_entries e LEFT JOIN journal_lines l ON l.journal_id = e.id
WHERE e.company_id=$1
GROUP BY e.id
HAVING COALESCE(SUM(l.debit),0) <> COALESCE(SUM(l.credit),0) OR COUNT(l.id) = 0
ORDER BY e.id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []integrity.Finding
	for rows.Next() {
		var (
			id    int64
			diff  shared.Money
			count int64
		)
		if err := rows.Scan(&id, &diff, &count); err != nil {
			return nil, err
		}
		detail := "debits differ from credits"
		if count == 0 {
			detail = "journal has no lines"
		}
		out = append(out, integrity.Finding{Kind: integrity.KindUnbalancedJournal, CompanyID: companyID, EntityID: id, Amount: diff, Detail: detail})
	}
	return out, rows.Err()
}

func (r *Tx) DanglingBankMatches(ctx context.Context, companyID int64) ([]integrity.Finding, error) {
	rows, err := r.tx.Query(ctx, `SELECT t.id, t.amount, CASE
  WHEN t.journal_id IS NULL THEN 'matched without journal'
  WHEN e.id IS NULL THEN 'journal missing'
  ELSE 'journal reversed' END
FROM bank_transactions t LEFT JOIN journal_entries e ON e.id = t.journal_id AND e.company_id = t.company_id
WHERE t.company_id=$1 AND t.matched AND (t.journal_id IS NULL OR e.id IS NULL OR e.reversed)
ORDER BY t.id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []integrity.Finding
	for rows.Next() {
		f := integrity.Finding{Kind: integrity.KindDanglingBankMatch, CompanyID: companyID}
		if err := rows.Scan(&f.EntityID, &f.Amount, &f.Detail); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DocumentBalanceDrift compares the stored balance against the clamped
// total minus active allocations.
func (r *Tx) DocumentBalanceDrift(ctx context.Context, companyID int64) ([]integrity.Finding, error) {
	rows, err := r.tx.Query(ctx, `SELECT d.id, d.balance_due,
  GREATEST(0, LEAST(d.total, d.total - COALESCE(SUM(a.amount),0)))::BIGINT
FROM documents d LEFT JOIN allocations a ON a.document_id = d.id AND a.company_id = d.company_id
WHERE d.company_id=$1 AND NOT d.cancelled
GROUP BY d.id
HAVING d.balance_due <> GREATEST(0, LEAST(d.total, d.total - COALESCE(SUM(a.amount),0)))
ORDER BY d.id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []integrity.Finding
	for rows.Next() {
		var (
			id               int64
			stored, expected shared.Money
		)
		if err := rows.Scan(&id, &stored, &expected); err != nil {
			return nil, err
		}
		out = append(out, integrity.Finding{
			Kind: integrity.KindDocumentDrift, CompanyID: companyID, EntityID: id,
			Amount: stored - expected, Detail: "balance due disagrees with allocations",
		})
	}
	return out, rows.Err()
}
