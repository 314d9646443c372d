package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/assets"
)

// Accumulated depreciation only counts charges whose journal is still active.
const assetSelect = `SELECT a.id, a.company_id, a.code, a.name, a.acquired_on, a.cost, a.salvage, a.useful_life_months, a.method,
COALESCE((SELECT SUM(c.amount) FROM depreciation_charges c JOIN journal_entries e ON e.id = c.journal_id
          WHERE c.asset_id = a.id AND NOT e.reversed),0)::BIGINT,
a.disposed_on, a.disposal_journal_id, a.created_by, a.created_at
FROM fixed_assets a`

func scanAsset(row pgx.Row) (assets.Asset, error) {
	var a assets.Asset
	err := row.Scan(&a.ID, &a.CompanyID, &a.Code, &a.Name, &a.AcquiredOn, &a.Cost, &a.Salvage, &a.UsefulLifeMonths, &a.Method,
		&a.Accumulated, &a.DisposedOn, &a.DisposalJournal, &a.CreatedBy, &a.CreatedAt)
	a.AcquiredOn = shared.DateOf(a.AcquiredOn)
	return a, err
}

func (r *Tx) InsertAsset(ctx context.Context, a assets.Asset) (assets.Asset, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO fixed_assets (company_id, code, name, acquired_on, cost, salvage, useful_life_months, method, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		a.CompanyID, a.Code, a.Name, a.AcquiredOn, a.Cost, a.Salvage, a.UsefulLifeMonths, a.Method, a.CreatedBy, a.CreatedAt).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err, "uq_fixed_assets_code") {
			return assets.Asset{}, shared.Invalid("code", "already registered")
		}
		return assets.Asset{}, err
	}
	return a, nil
}

func (r *Tx) GetAsset(ctx context.Context, companyID, id int64, lock bool) (assets.Asset, error) {
	suffix := ""
	if lock {
		suffix = " FOR UPDATE OF a"
	}
	a, err := scanAsset(r.tx.QueryRow(ctx, assetSelect+` WHERE a.company_id=$1 AND a.id=$2`+suffix, companyID, id))
	if err != nil {
		if notFound(err) {
			return assets.Asset{}, shared.NotFound("asset", id)
		}
		return assets.Asset{}, err
	}
	return a, nil
}

func (r *Tx) ListDepreciableAssets(ctx context.Context, companyID int64, asOf time.Time) ([]assets.Asset, error) {
	rows, err := r.tx.Query(ctx, assetSelect+` WHERE a.company_id=$1 AND a.disposal_journal_id IS NULL AND a.acquired_on <= $2
ORDER BY a.id FOR UPDATE OF a`, companyID, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []assets.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Tx) InsertDepreciationCharges(ctx context.Context, companyID, journalID int64, period time.Time, charges []assets.Charge) error {
	batch := &pgx.Batch{}
	for _, c := range charges {
		batch.Queue(`INSERT INTO depreciation_charges (company_id, journal_id, asset_id, period, amount) VALUES ($1,$2,$3,$4,$5)`,
			companyID, journalID, c.AssetID, period, c.Amount)
	}
	return r.tx.SendBatch(ctx, batch).Close()
}

func (r *Tx) MarkAssetDisposed(ctx context.Context, companyID, id int64, on time.Time, journalID int64) error {
	return r.execOne(ctx, "asset", id, `UPDATE fixed_assets SET disposed_on=$3, disposal_journal_id=$4 WHERE company_id=$1 AND id=$2`,
		companyID, id, on, journalID)
}
