package assets

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

func TestMonthlyChargeStraightLine(t *testing.T) {
	a := Asset{Cost: shared.MustMoney("12000"), UsefulLifeMonths: 12, Method: StraightLine}
	require.Equal(t, shared.MustMoney("1000"), MonthlyCharge(a))

	a.Salvage = shared.MustMoney("1200")
	require.Equal(t, shared.MustMoney("900"), MonthlyCharge(a))

	a.Accumulated = shared.MustMoney("10500")
	require.Equal(t, shared.MustMoney("300"), MonthlyCharge(a), "capped at the remaining depreciable amount")

	a.Accumulated = shared.MustMoney("10800")
	require.Zero(t, MonthlyCharge(a))
}

func TestMonthlyChargeRoundsToCents(t *testing.T) {
	a := Asset{Cost: shared.MustMoney("1000"), UsefulLifeMonths: 3, Method: StraightLine}
	require.Equal(t, shared.MustMoney("333.33"), MonthlyCharge(a))
}

func TestMonthlyChargeDecliningBalance(t *testing.T) {
	a := Asset{Cost: shared.MustMoney("12000"), UsefulLifeMonths: 24, Method: DecliningBalance}
	require.Equal(t, shared.MustMoney("1000"), MonthlyCharge(a))

	a.Accumulated = shared.MustMoney("6000")
	require.Equal(t, shared.MustMoney("500"), MonthlyCharge(a), "rate applies to current book value")

	a.Salvage = shared.MustMoney("5800")
	require.Equal(t, shared.MustMoney("200"), MonthlyCharge(a), "book never drops below salvage")
}

func TestChargesSkipsFullyDepreciatedAndDisposed(t *testing.T) {
	journalID := int64(3)
	list := []Asset{
		{ID: 1, Code: "FA-1", Cost: 1200, UsefulLifeMonths: 12, Method: StraightLine},
		{ID: 2, Code: "FA-2", Cost: 1200, Accumulated: 1200, UsefulLifeMonths: 12, Method: StraightLine},
		{ID: 3, Code: "FA-3", Cost: 1200, UsefulLifeMonths: 12, Method: StraightLine, DisposalJournal: &journalID},
	}
	charges := Charges(list)
	require.Equal(t, []Charge{{AssetID: 1, Code: "FA-1", Amount: 100}}, charges)
}

func TestRunPostingItemizedAndAggregated(t *testing.T) {
	charges := []Charge{{AssetID: 1, Code: "FA-1", Amount: 100}, {AssetID: 2, Code: "FA-2", Amount: 250}}
	period := shared.MustDate("2024-02-10")

	itemized := RunPosting(1, period, charges, "6100", "1590", true)
	require.Len(t, itemized.Lines, 4)
	require.Equal(t, shared.MustDate("2024-02-29"), itemized.EntryDate)
	require.NoError(t, itemized.Validate())

	aggregated := RunPosting(1, period, charges, "6100", "1590", false)
	require.Len(t, aggregated.Lines, 2)
	require.Equal(t, shared.Money(350), aggregated.Lines[0].Debit)
	require.Equal(t, itemized.SourceID, aggregated.SourceID, "one key per company and month")
	require.NotEqual(t, RunKey(2, period), aggregated.SourceID)
}

func TestDisposalPostingGainAndLoss(t *testing.T) {
	codes := DisposalCodes{Bank: "1010", Cost: "1500", Accumulated: "1590", Gain: "4910", Loss: "6910"}
	a := Asset{ID: 4, Code: "FA-4", Cost: 100000, Accumulated: 60000}
	on := shared.MustDate("2024-05-31")

	gain := DisposalPosting(a, on, 50000, codes)
	debit, credit := gain.Totals()
	require.Equal(t, debit, credit)
	require.Len(t, gain.Lines, 4)
	require.Equal(t, "4910", gain.Lines[2].AccountCode)
	require.Equal(t, shared.Money(10000), gain.Lines[2].Credit)

	loss := DisposalPosting(a, on, 30000, codes)
	require.Equal(t, "6910", loss.Lines[2].AccountCode)
	require.Equal(t, shared.Money(10000), loss.Lines[2].Debit)

	scrapped := DisposalPosting(Asset{ID: 5, Code: "FA-5", Cost: 100000}, on, 0, codes)
	require.Len(t, scrapped.Lines, 2, "zero proceeds and zero accumulated lines are omitted")
	debit, credit = scrapped.Totals()
	require.Equal(t, debit, credit)

	atBook := DisposalPosting(a, on, 40000, codes)
	require.Len(t, atBook.Lines, 3)
}
