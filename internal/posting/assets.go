package posting

import (
	"context"
	"time"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/assets"
	internalshared "github.com/odyssey-erp/odyssey-gl/internal/shared"
)

// DepreciationInput selects the month to depreciate.
type DepreciationInput struct {
	// Period is any date within the month; the journal is dated at its end.
	Period  time.Time
	Itemize bool
}

// DisposalInput describes the sale or scrapping of an asset.
type DisposalInput struct {
	AssetID  int64
	Date     time.Time
	Proceeds shared.Money
}

// RegisterAsset records a new fixed asset.
func (s *Service) RegisterAsset(ctx context.Context, actor internalshared.Actor, a assets.Asset) (assets.Asset, error) {
	if err := actor.Validate(); err != nil {
		return assets.Asset{}, err
	}
	if err := a.Validate(); err != nil {
		return assets.Asset{}, err
	}
	a.CompanyID = actor.CompanyID
	a.AcquiredOn = shared.DateOf(a.AcquiredOn)
	a.Accumulated = 0
	a.DisposedOn = nil
	a.DisposalJournal = nil
	a.CreatedBy = actor.UserID
	a.CreatedAt = s.now()
	var out assets.Asset
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		out, err = tx.InsertAsset(ctx, a)
		return err
	})
	if err != nil {
		return assets.Asset{}, err
	}
	s.audit.Emit(ctx, actor, "asset.register", "asset", out.ID, map[string]any{
		"code": out.Code,
		"cost": out.Cost.String(),
	})
	return out, nil
}

// PostDepreciationRun posts one journal for the month's charges across all
// depreciable assets. A month with nothing to charge writes nothing.
func (s *Service) PostDepreciationRun(ctx context.Context, actor internalshared.Actor, in DepreciationInput) (Result, error) {
	if err := actor.Validate(); err != nil {
		return Result{}, err
	}
	if in.Period.IsZero() {
		return Result{}, shared.Invalid("period", "required")
	}
	end := assets.PeriodEnd(in.Period)
	codes, err := s.resolve(ctx, actor.CompanyID, accounts.KeyDepreciationExpense, accounts.KeyAccumulatedDepreciation)
	if err != nil {
		s.finish(ctx, actor, KindDepreciationRun, "company", actor.CompanyID, Result{}, err, nil)
		return Result{}, err
	}
	return s.runDepreciation(ctx, actor, in, end, codes[accounts.KeyDepreciationExpense], codes[accounts.KeyAccumulatedDepreciation])
}

func (s *Service) runDepreciation(ctx context.Context, actor internalshared.Actor, in DepreciationInput, end time.Time, expense, accum string) (Result, error) {
	var (
		res     Result
		charges []assets.Charge
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		list, err := tx.ListDepreciableAssets(ctx, actor.CompanyID, end)
		if err != nil {
			return err
		}
		charges = assets.Charges(list)
		if len(charges) == 0 {
			return nil
		}
		res, err = s.post(ctx, tx, actor, assets.RunPosting(actor.CompanyID, end, charges, expense, accum, in.Itemize))
		if err != nil || res.AlreadyPosted {
			return err
		}
		return tx.InsertDepreciationCharges(ctx, actor.CompanyID, res.JournalID, end, charges)
	})
	s.finish(ctx, actor, KindDepreciationRun, "company", actor.CompanyID, res, err, map[string]any{
		"period": end.Format("2006-01"),
		"assets": len(charges),
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// PostAssetDisposal posts the disposal journal and marks the asset disposed.
func (s *Service) PostAssetDisposal(ctx context.Context, actor internalshared.Actor, in DisposalInput) (Result, error) {
	if err := actor.Validate(); err != nil {
		return Result{}, err
	}
	if in.Date.IsZero() {
		return Result{}, shared.Invalid("date", "required")
	}
	if in.Proceeds < 0 {
		return Result{}, shared.Invalid("proceeds", "must not be negative")
	}
	codes, err := s.disposalCodes(ctx, actor.CompanyID)
	if err != nil {
		s.finish(ctx, actor, KindAssetDisposal, "asset", in.AssetID, Result{}, err, nil)
		return Result{}, err
	}
	var res Result
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		a, err := tx.GetAsset(ctx, actor.CompanyID, in.AssetID, true)
		if err != nil {
			return err
		}
		if a.Disposed() {
			res = Result{JournalID: *a.DisposalJournal, AlreadyPosted: true}
			return nil
		}
		on := shared.DateOf(in.Date)
		if on.Before(a.AcquiredOn) {
			return shared.Invalid("date", "before acquisition")
		}
		res, err = s.post(ctx, tx, actor, assets.DisposalPosting(a, on, in.Proceeds, codes))
		if err != nil || res.AlreadyPosted {
			return err
		}
		return tx.MarkAssetDisposed(ctx, actor.CompanyID, a.ID, on, res.JournalID)
	})
	s.finish(ctx, actor, KindAssetDisposal, "asset", in.AssetID, res, err, map[string]any{
		"proceeds": in.Proceeds.String(),
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (s *Service) disposalCodes(ctx context.Context, companyID int64) (assets.DisposalCodes, error) {
	codes, err := s.resolve(ctx, companyID,
		accounts.KeyBank,
		accounts.KeyFixedAsset,
		accounts.KeyAccumulatedDepreciation,
		accounts.KeyDisposalGain,
		accounts.KeyDisposalLoss,
	)
	if err != nil {
		return assets.DisposalCodes{}, err
	}
	return assets.DisposalCodes{
		Bank:        codes[accounts.KeyBank],
		Cost:        codes[accounts.KeyFixedAsset],
		Accumulated: codes[accounts.KeyAccumulatedDepreciation],
		Gain:        codes[accounts.KeyDisposalGain],
		Loss:        codes[accounts.KeyDisposalLoss],
	}, nil
}
