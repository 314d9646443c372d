package memory

import (
	"context"
	"sort"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/integrity"
)

var _ integrity.Repository = (*Tx)(nil)

func (t *Tx) CompanyIDs(ctx context.Context) ([]int64, error) {
	seen := make(map[int64]struct{})
	for _, a := range t.st.accounts {
		seen[a.CompanyID] = struct{}{}
	}
	for _, e := range t.st.journals {
		seen[e.CompanyID] = struct{}{}
	}
	out := make([]int64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (t *Tx) UnbalancedJournals(ctx context.Context, companyID int64) ([]integrity.Finding, error) {
	var out []integrity.Finding
	for _, e := range t.st.journals {
		if e.CompanyID != companyID {
			continue
		}
		debit, credit := e.Totals()
		switch {
		case len(e.Lines) == 0:
			out = append(out, integrity.Finding{Kind: integrity.KindUnbalancedJournal, CompanyID: companyID, EntityID: e.ID, Detail: "journal has no lines"})
		case debit != credit:
			out = append(out, integrity.Finding{Kind: integrity.KindUnbalancedJournal, CompanyID: companyID, EntityID: e.ID,
				Amount: debit - credit, Detail: "debits differ from credits"})
		}
	}
	sortFindings(out)
	return out, nil
}

func (t *Tx) DanglingBankMatches(ctx context.Context, companyID int64) ([]integrity.Finding, error) {
	var out []integrity.Finding
	for _, b := range t.st.bankTxns {
		if b.CompanyID != companyID || !b.Matched {
			continue
		}
		detail := ""
		if b.JournalID == nil {
			detail = "matched without journal"
		} else if e, ok := t.st.journals[*b.JournalID]; !ok || e.CompanyID != companyID {
			detail = "journal missing"
		} else if e.Reversed {
			detail = "journal reversed"
		}
		if detail != "" {
			out = append(out, integrity.Finding{Kind: integrity.KindDanglingBankMatch, CompanyID: companyID, EntityID: b.ID, Amount: b.Amount, Detail: detail})
		}
	}
	sortFindings(out)
	return out, nil
}

func (t *Tx) DocumentBalanceDrift(ctx context.Context, companyID int64) ([]integrity.Finding, error) {
	applied := make(map[int64]shared.Money)
	for _, a := range t.st.allocations {
		if a.CompanyID == companyID {
			applied[a.DocumentID] += a.Amount
		}
	}
	var out []integrity.Finding
	for _, d := range t.st.documents {
		if d.CompanyID != companyID || d.Cancelled {
			continue
		}
		expected := min(max(d.Total-applied[d.ID], 0), d.Total)
		if d.BalanceDue != expected {
			out = append(out, integrity.Finding{Kind: integrity.KindDocumentDrift, CompanyID: companyID, EntityID: d.ID,
				Amount: d.BalanceDue - expected, Detail: "balance due disagrees with allocations"})
		}
	}
	sortFindings(out)
	return out, nil
}

func sortFindings(f []integrity.Finding) {
	sort.Slice(f, func(i, j int) bool { return f[i].EntityID < f[j].EntityID })
}
