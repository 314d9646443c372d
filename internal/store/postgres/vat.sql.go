package postgres

import (
	"context"
	"time"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/vat"
)

func (r *Tx) InsertVATPeriod(ctx context.Context, p vat.Period) (vat.Period, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO vat_periods (company_id, period_start, period_end, status, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`, p.CompanyID, p.PeriodStart, p.PeriodEnd, p.Status, p.CreatedBy, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		return vat.Period{}, err
	}
	return p, nil
}

func (r *Tx) GetVATPeriod(ctx context.Context, companyID, id int64, lock bool) (vat.Period, error) {
	var p vat.Period
	err := r.tx.QueryRow(ctx, `SELECT id, company_id, period_start, period_end, status, output_vat, input_vat, net_vat, adjustments,
prepared_by, prepared_at, filed_by, filed_at, created_by, created_at
FROM vat_periods WHERE company_id=$1 AND id=$2`+forUpdate(lock), companyID, id).
		Scan(&p.ID, &p.CompanyID, &p.PeriodStart, &p.PeriodEnd, &p.Status, &p.OutputVAT, &p.InputVAT, &p.NetVAT, &p.Adjustments,
			&p.PreparedBy, &p.PreparedAt, &p.FiledBy, &p.FiledAt, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		if notFound(err) {
			return vat.Period{}, shared.NotFound("vat period", id)
		}
		return vat.Period{}, err
	}
	p.PeriodStart, p.PeriodEnd = shared.DateOf(p.PeriodStart), shared.DateOf(p.PeriodEnd)
	return p, nil
}

// FindOverlappingVATPeriod locks the company's periods so concurrent
// creations serialize on the overlap check.
func (r *Tx) FindOverlappingVATPeriod(ctx context.Context, companyID int64, start, end time.Time) (int64, bool, error) {
	if _, err := r.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('vat_periods'), $1::int)`, companyID); err != nil {
		return 0, false, err
	}
	var id int64
	err := r.tx.QueryRow(ctx, `SELECT id FROM vat_periods
WHERE company_id=$1 AND period_start <= $3 AND $2 <= period_end ORDER BY period_start LIMIT 1`, companyID, start, end).Scan(&id)
	if err != nil {
		if notFound(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return id, true, nil
}

func (r *Tx) UpdateVATPeriod(ctx context.Context, p vat.Period) error {
	return r.execOne(ctx, "vat period", p.ID, `UPDATE vat_periods SET status=$3, output_vat=$4, input_vat=$5, net_vat=$6, adjustments=$7,
prepared_by=$8, prepared_at=$9, filed_by=$10, filed_at=$11 WHERE company_id=$1 AND id=$2`,
		p.CompanyID, p.ID, p.Status, p.OutputVAT, p.InputVAT, p.NetVAT, p.Adjustments,
		p.PreparedBy, p.PreparedAt, p.FiledBy, p.FiledAt)
}

func (r *Tx) SumAccountMovement(ctx context.Context, companyID int64, code string, start, end time.Time) (shared.Money, shared.Money, error) {
	var debit, credit shared.Money
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(l.debit),0)::BIGINT, COALESCE(SUM(l.credit),0)::BIGINT
FROM journal_lines l JOIN journal_entries e ON e.id = l.journal_id
WHERE e.company_id=$1 AND l.account_code=$2 AND e.entry_date BETWEEN $3 AND $4`, companyID, code, start, end).Scan(&debit, &credit)
	return debit, credit, err
}
