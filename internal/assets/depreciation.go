package assets

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

const (
	SourceDepreciation = "depreciation_run"
	SourceDisposal     = "asset_disposal"
)

// MonthlyCharge returns the depreciation of one month for the asset, capped
// so book value never drops below salvage. Fully depreciated assets yield 0.
func MonthlyCharge(a Asset) shared.Money {
	remaining := a.Cost - a.Salvage - a.Accumulated
	if remaining <= 0 || a.UsefulLifeMonths <= 0 {
		return 0
	}
	life := decimal.NewFromInt(int64(a.UsefulLifeMonths))
	var charge shared.Money
	switch a.Method {
	case DecliningBalance:
		rate := decimal.NewFromInt(2).Div(life)
		charge = shared.FromDecimal(a.BookValue().Decimal().Mul(rate))
	default:
		charge = shared.FromDecimal((a.Cost - a.Salvage).Decimal().Div(life))
	}
	if charge > remaining {
		charge = remaining
	}
	if charge < 0 {
		return 0
	}
	return charge
}

// Charges computes the run's charges, skipping zero amounts.
func Charges(list []Asset) []Charge {
	out := make([]Charge, 0, len(list))
	for _, a := range list {
		if a.Disposed() {
			continue
		}
		if amt := MonthlyCharge(a); amt > 0 {
			out = append(out, Charge{AssetID: a.ID, Code: a.Code, Amount: amt})
		}
	}
	return out
}

// RunKey derives the posting key of a company's run for the month of period.
func RunKey(companyID int64, period time.Time) uuid.UUID {
	return uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("%s:%d:%s", SourceDepreciation, companyID, period.Format("2006-01"))))
}

// PeriodEnd returns the last day of the month containing t.
func PeriodEnd(t time.Time) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, -1)
}

// RunPosting builds the journal of a depreciation run dated at the period
// end. Itemized runs emit a pair of lines per asset.
func RunPosting(companyID int64, period time.Time, charges []Charge, expenseCode, accumCode string, itemize bool) journals.PostingInput {
	end := PeriodEnd(period)
	var lines []journals.LineInput
	if itemize {
		for _, c := range charges {
			desc := "Depreciation " + c.Code
			lines = append(lines,
				journals.Debit(expenseCode, c.Amount, desc),
				journals.Credit(accumCode, c.Amount, desc))
		}
	} else {
		var total shared.Money
		for _, c := range charges {
			total += c.Amount
		}
		if total > 0 {
			desc := fmt.Sprintf("Depreciation %d assets", len(charges))
			lines = append(lines,
				journals.Debit(expenseCode, total, desc),
				journals.Credit(accumCode, total, desc))
		}
	}
	return journals.PostingInput{
		EntryDate:   end,
		Reference:   "DEP-" + end.Format("2006-01"),
		Description: "Depreciation run " + end.Format("2006-01"),
		Module:      "FA",
		RefType:     SourceDepreciation,
		SourceType:  SourceDepreciation,
		SourceID:    RunKey(companyID, end),
		Lines:       lines,
	}
}

// DisposalCodes are the accounts a disposal touches.
type DisposalCodes struct {
	Bank        string
	Cost        string
	Accumulated string
	Gain        string
	Loss        string
}

// DisposalPosting builds the single disposal journal. Zero lines are
// omitted; the proceeds/book difference lands on gain or loss.
func DisposalPosting(a Asset, on time.Time, proceeds shared.Money, codes DisposalCodes) journals.PostingInput {
	desc := "Disposal " + a.Code
	var lines []journals.LineInput
	if proceeds > 0 {
		lines = append(lines, journals.Debit(codes.Bank, proceeds, desc))
	}
	if a.Accumulated > 0 {
		lines = append(lines, journals.Debit(codes.Accumulated, a.Accumulated, desc))
	}
	switch diff := proceeds - a.BookValue(); {
	case diff > 0:
		lines = append(lines, journals.Credit(codes.Gain, diff, desc))
	case diff < 0:
		lines = append(lines, journals.Debit(codes.Loss, diff.Abs(), desc))
	}
	lines = append(lines, journals.Credit(codes.Cost, a.Cost, desc))
	return journals.PostingInput{
		EntryDate:   on,
		Reference:   "DISP-" + a.Code,
		Description: desc,
		Module:      "FA",
		RefType:     "asset",
		RefID:       a.ID,
		SourceType:  SourceDisposal,
		SourceID:    journals.SourceKey(SourceDisposal, a.ID),
		Lines:       lines,
	}
}
