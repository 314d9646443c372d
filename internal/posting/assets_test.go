package posting_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/assets"
	"github.com/odyssey-erp/odyssey-gl/internal/posting"
)

func registerVan(t *testing.T, f *fixture) assets.Asset {
	t.Helper()
	a, err := f.svc.RegisterAsset(context.Background(), actor, assets.Asset{
		Code:             "VAN-01",
		Name:             "Delivery van",
		AcquiredOn:       shared.MustDate("2024-01-01"),
		Cost:             shared.MustMoney("12000.00"),
		UsefulLifeMonths: 12,
		Method:           assets.StraightLine,
	})
	require.NoError(t, err)
	return a
}

func TestDepreciationRunIsIdempotentPerMonth(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-20")
	registerVan(t, f)

	empty, err := f.svc.PostDepreciationRun(ctx, actor, posting.DepreciationInput{Period: shared.MustDate("2023-12-15")})
	require.NoError(t, err)
	require.Zero(t, empty.JournalID)

	jan, err := f.svc.PostDepreciationRun(ctx, actor, posting.DepreciationInput{Period: shared.MustDate("2024-01-10")})
	require.NoError(t, err)
	entry, err := f.journals.GetJournal(ctx, actor, jan.JournalID)
	require.NoError(t, err)
	require.Equal(t, shared.MustDate("2024-01-31"), entry.EntryDate)

	feb, err := f.svc.PostDepreciationRun(ctx, actor, posting.DepreciationInput{Period: shared.MustDate("2024-02-01")})
	require.NoError(t, err)
	again, err := f.svc.PostDepreciationRun(ctx, actor, posting.DepreciationInput{Period: shared.MustDate("2024-02-29")})
	require.NoError(t, err)
	require.True(t, again.AlreadyPosted)
	require.Equal(t, feb.JournalID, again.JournalID)

	balances := f.mem.Balances(actor.CompanyID)
	require.Equal(t, shared.MustMoney("2000.00"), balances["6100"])
	require.Equal(t, shared.MustMoney("-2000.00"), balances["1590"])
	require.Equal(t, []string{"empty", "posted", "posted", "already_posted"}, f.metrics.outcomes[posting.KindDepreciationRun])
}

func TestDepreciationRerunAfterReversal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-20")
	registerVan(t, f)
	for _, month := range []string{"2024-01-31", "2024-02-29"} {
		_, err := f.svc.PostDepreciationRun(ctx, actor, posting.DepreciationInput{Period: shared.MustDate(month)})
		require.NoError(t, err)
	}
	feb := f.mem.Journals(actor.CompanyID)[1]
	_, err := f.journals.ReverseJournal(ctx, actor, feb.ID, "wrong rate")
	require.NoError(t, err)
	require.Equal(t, shared.MustMoney("1000.00"), f.mem.Balances(actor.CompanyID)["6100"])

	rerun, err := f.svc.PostDepreciationRun(ctx, actor, posting.DepreciationInput{Period: shared.MustDate("2024-02-29")})
	require.NoError(t, err)
	require.False(t, rerun.AlreadyPosted)
	require.NotEqual(t, feb.ID, rerun.JournalID)
	require.Equal(t, shared.MustMoney("2000.00"), f.mem.Balances(actor.CompanyID)["6100"])
}

func TestAssetDisposalWithGain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-20")
	van := registerVan(t, f)
	for _, month := range []string{"2024-01-31", "2024-02-29"} {
		_, err := f.svc.PostDepreciationRun(ctx, actor, posting.DepreciationInput{Period: shared.MustDate(month)})
		require.NoError(t, err)
	}

	res, err := f.svc.PostAssetDisposal(ctx, actor, posting.DisposalInput{
		AssetID:  van.ID,
		Date:     shared.MustDate("2024-03-15"),
		Proceeds: shared.MustMoney("11000.00"),
	})
	require.NoError(t, err)

	balances := f.mem.Balances(actor.CompanyID)
	require.Equal(t, shared.MustMoney("11000.00"), balances["1010"])
	require.Zero(t, balances["1590"])
	require.Equal(t, shared.MustMoney("-12000.00"), balances["1500"])
	require.Equal(t, shared.MustMoney("-1000.00"), balances["4910"])
	requireBalanced(t, f.mem)

	again, err := f.svc.PostAssetDisposal(ctx, actor, posting.DisposalInput{
		AssetID: van.ID, Date: shared.MustDate("2024-03-16"), Proceeds: 1,
	})
	require.NoError(t, err)
	require.True(t, again.AlreadyPosted)
	require.Equal(t, res.JournalID, again.JournalID)

	march, err := f.svc.PostDepreciationRun(ctx, actor, posting.DepreciationInput{Period: shared.MustDate("2024-03-31")})
	require.NoError(t, err)
	require.Zero(t, march.JournalID, "disposed assets stop depreciating")
}

func TestAssetDisposalValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-20")
	van := registerVan(t, f)

	_, err := f.svc.PostAssetDisposal(ctx, actor, posting.DisposalInput{AssetID: van.ID, Date: shared.MustDate("2023-12-31")})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = f.svc.PostAssetDisposal(ctx, actor, posting.DisposalInput{AssetID: van.ID, Date: shared.MustDate("2024-02-01"), Proceeds: -1})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = f.svc.PostAssetDisposal(ctx, actor, posting.DisposalInput{AssetID: 9999, Date: shared.MustDate("2024-02-01")})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, f.mem.Journals(actor.CompanyID))
}
