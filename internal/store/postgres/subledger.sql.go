package postgres

import (
	"context"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/subledger"
)

const documentColumns = `id, company_id, kind, number, party_id, doc_date, subtotal, tax, total, balance_due,
account_id, cancelled, journal_id, paid_at, created_by, created_at`

const paymentColumns = `id, company_id, kind, party_id, payment_date, amount, reference, bank_account_id, journal_id, created_by, created_at`

func (r *Tx) InsertDocument(ctx context.Context, d subledger.Document) (subledger.Document, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO documents
(company_id, kind, number, party_id, doc_date, subtotal, tax, total, balance_due, account_id, cancelled, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13) RETURNING id`,
		d.CompanyID, d.Kind, d.Number, d.PartyID, d.DocDate, d.Subtotal, d.Tax, d.Total, d.BalanceDue,
		d.AccountID, d.Cancelled, d.CreatedBy, d.CreatedAt).Scan(&d.ID)
	if err != nil {
		return subledger.Document{}, err
	}
	return d, nil
}

func (r *Tx) GetDocument(ctx context.Context, companyID, id int64, lock bool) (subledger.Document, error) {
	var d subledger.Document
	err := r.tx.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE company_id=$1 AND id=$2`+forUpdate(lock), companyID, id).
		Scan(&d.ID, &d.CompanyID, &d.Kind, &d.Number, &d.PartyID, &d.DocDate, &d.Subtotal, &d.Tax, &d.Total, &d.BalanceDue,
			&d.AccountID, &d.Cancelled, &d.JournalID, &d.PaidAt, &d.CreatedBy, &d.CreatedAt)
	if err != nil {
		if notFound(err) {
			return subledger.Document{}, shared.NotFound("document", id)
		}
		return subledger.Document{}, err
	}
	d.DocDate = shared.DateOf(d.DocDate)
	return d, nil
}

func (r *Tx) UpdateDocumentBalance(ctx context.Context, d subledger.Document) error {
	tag, err := r.tx.Exec(ctx, `UPDATE documents SET balance_due=$3, paid_at=$4 WHERE company_id=$1 AND id=$2`,
		d.CompanyID, d.ID, d.BalanceDue, d.PaidAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("document", d.ID)
	}
	return nil
}

func (r *Tx) SetDocumentJournal(ctx context.Context, companyID, id, journalID int64) error {
	return r.execOne(ctx, "document", id, `UPDATE documents SET journal_id=$3 WHERE company_id=$1 AND id=$2`, companyID, id, journalID)
}

func (r *Tx) CancelDocument(ctx context.Context, companyID, id int64) error {
	return r.execOne(ctx, "document", id, `UPDATE documents SET cancelled=TRUE WHERE company_id=$1 AND id=$2`, companyID, id)
}

func (r *Tx) InsertPayment(ctx context.Context, p subledger.Payment) (subledger.Payment, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO payments
(company_id, kind, party_id, payment_date, amount, reference, bank_account_id, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		p.CompanyID, p.Kind, p.PartyID, p.PaymentDate, p.Amount, p.Reference, p.BankAccountID, p.CreatedBy, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		return subledger.Payment{}, err
	}
	return p, nil
}

func (r *Tx) GetPayment(ctx context.Context, companyID, id int64, lock bool) (subledger.Payment, error) {
	var p subledger.Payment
	err := r.tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE company_id=$1 AND id=$2`+forUpdate(lock), companyID, id).
		Scan(&p.ID, &p.CompanyID, &p.Kind, &p.PartyID, &p.PaymentDate, &p.Amount, &p.Reference, &p.BankAccountID,
			&p.JournalID, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		if notFound(err) {
			return subledger.Payment{}, shared.NotFound("payment", id)
		}
		return subledger.Payment{}, err
	}
	p.PaymentDate = shared.DateOf(p.PaymentDate)
	return p, nil
}

func (r *Tx) UpdatePaymentAmount(ctx context.Context, companyID, id int64, amount shared.Money) error {
	return r.execOne(ctx, "payment", id, `UPDATE payments SET amount=$3 WHERE company_id=$1 AND id=$2`, companyID, id, amount)
}

func (r *Tx) SetPaymentJournal(ctx context.Context, companyID, id, journalID int64) error {
	return r.execOne(ctx, "payment", id, `UPDATE payments SET journal_id=$3 WHERE company_id=$1 AND id=$2`, companyID, id, journalID)
}

func (r *Tx) InsertAllocation(ctx context.Context, a subledger.Allocation) (subledger.Allocation, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO allocations (company_id, source_kind, source_id, document_id, amount, alloc_date, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		a.CompanyID, a.SourceKind, a.SourceID, a.DocumentID, a.Amount, a.AllocDate, a.CreatedBy, a.CreatedAt).Scan(&a.ID)
	if err != nil {
		return subledger.Allocation{}, err
	}
	return a, nil
}

func (r *Tx) ListAllocationsBySource(ctx context.Context, companyID int64, kind subledger.SourceKind, sourceID int64) ([]subledger.Allocation, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, company_id, source_kind, source_id, document_id, amount, alloc_date, created_by, created_at
FROM allocations WHERE company_id=$1 AND source_kind=$2 AND source_id=$3 ORDER BY id`, companyID, kind, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []subledger.Allocation
	for rows.Next() {
		var a subledger.Allocation
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.SourceKind, &a.SourceID, &a.DocumentID, &a.Amount, &a.AllocDate, &a.CreatedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Tx) DeleteAllocationsBySource(ctx context.Context, companyID int64, kind subledger.SourceKind, sourceID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM allocations WHERE company_id=$1 AND source_kind=$2 AND source_id=$3`, companyID, kind, sourceID)
	return err
}

func (r *Tx) SumAllocationsForDocument(ctx context.Context, companyID, documentID int64) (shared.Money, error) {
	var sum shared.Money
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount),0)::BIGINT FROM allocations WHERE company_id=$1 AND document_id=$2`,
		companyID, documentID).Scan(&sum)
	return sum, err
}

func (r *Tx) SumAllocationsBySource(ctx context.Context, companyID int64, kind subledger.SourceKind, sourceID int64) (shared.Money, error) {
	var sum shared.Money
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount),0)::BIGINT FROM allocations WHERE company_id=$1 AND source_kind=$2 AND source_id=$3`,
		companyID, kind, sourceID).Scan(&sum)
	return sum, err
}

// execOne runs an update that must touch exactly one tenant row.
func (r *Tx) execOne(ctx context.Context, entity string, id int64, sql string, args ...any) error {
	tag, err := r.tx.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound(entity, id)
	}
	return nil
}
