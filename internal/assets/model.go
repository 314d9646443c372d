// Package assets computes depreciation charges and disposal entries for
// fixed assets.
package assets

import (
	"context"
	"time"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

// Method selects the depreciation policy.
type Method string

const (
	StraightLine     Method = "straight_line"
	DecliningBalance Method = "declining_balance"
)

// Asset is a depreciable fixed asset. Accumulated is derived from the
// depreciation charges whose journals are still active.
type Asset struct {
	ID               int64
	CompanyID        int64
	Code             string
	Name             string
	AcquiredOn       time.Time
	Cost             shared.Money
	Salvage          shared.Money
	UsefulLifeMonths int
	Method           Method
	Accumulated      shared.Money
	DisposedOn       *time.Time
	DisposalJournal  *int64
	CreatedBy        int64
	CreatedAt        time.Time
}

// BookValue is cost less accumulated depreciation.
func (a Asset) BookValue() shared.Money {
	return a.Cost - a.Accumulated
}

// Disposed reports whether an active disposal journal exists.
func (a Asset) Disposed() bool {
	return a.DisposalJournal != nil
}

// Validate checks an asset before registration.
func (a Asset) Validate() error {
	if a.Code == "" {
		return shared.Invalid("code", "required")
	}
	if a.AcquiredOn.IsZero() {
		return shared.Invalid("acquired_on", "required")
	}
	if a.Cost <= 0 {
		return shared.Invalid("cost", "must be positive")
	}
	if a.Salvage < 0 || a.Salvage > a.Cost {
		return shared.Invalid("salvage", "must be between zero and cost")
	}
	if a.UsefulLifeMonths <= 0 {
		return shared.Invalid("useful_life_months", "must be positive")
	}
	if a.Method != StraightLine && a.Method != DecliningBalance {
		return shared.Invalid("method", "unknown depreciation method")
	}
	return nil
}

// Charge is one asset's depreciation for a run.
type Charge struct {
	AssetID int64
	Code    string
	Amount  shared.Money
}

// TxRepository is the transactional surface for asset postings.
type TxRepository interface {
	InsertAsset(ctx context.Context, a Asset) (Asset, error)
	GetAsset(ctx context.Context, companyID, id int64, forUpdate bool) (Asset, error)
	// ListDepreciableAssets returns undisposed assets acquired on or before asOf.
	ListDepreciableAssets(ctx context.Context, companyID int64, asOf time.Time) ([]Asset, error)
	InsertDepreciationCharges(ctx context.Context, companyID, journalID int64, period time.Time, charges []Charge) error
	MarkAssetDisposed(ctx context.Context, companyID, id int64, on time.Time, journalID int64) error
}
