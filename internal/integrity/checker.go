// Package integrity audits stored ledger state for drift that the posting
// path should never produce: unbalanced journals, bank transactions matched
// to a missing or reversed journal, and document balances that disagree
// with their allocations.
package integrity

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	jobmetrics "github.com/odyssey-erp/odyssey-gl/internal/jobs"
)

// Kind classifies a finding.
type Kind string

const (
	KindUnbalancedJournal Kind = "unbalanced_journal"
	KindDanglingBankMatch Kind = "dangling_bank_match"
	KindDocumentDrift     Kind = "document_balance_drift"
)

// Finding is one inconsistency. Amount carries the imbalance or drift.
type Finding struct {
	Kind      Kind
	CompanyID int64
	EntityID  int64
	Amount    shared.Money
	Detail    string
}

// Repository exposes the read queries the checker needs.
type Repository interface {
	CompanyIDs(ctx context.Context) ([]int64, error)
	UnbalancedJournals(ctx context.Context, companyID int64) ([]Finding, error)
	DanglingBankMatches(ctx context.Context, companyID int64) ([]Finding, error)
	DocumentBalanceDrift(ctx context.Context, companyID int64) ([]Finding, error)
}

// Store runs a read transaction.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
}

// Report summarises one company's check.
type Report struct {
	CompanyID int64
	CheckedAt time.Time
	Findings  []Finding
}

// Clean reports whether no finding was raised.
func (r Report) Clean() bool { return len(r.Findings) == 0 }

// Count returns the number of findings of kind.
func (r Report) Count(kind Kind) int {
	n := 0
	for _, f := range r.Findings {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Checker runs the integrity queries.
type Checker struct {
	store   Store
	metrics *jobmetrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewChecker constructs a Checker. metrics may be nil.
func NewChecker(store Store, metrics *jobmetrics.Metrics, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{store: store, metrics: metrics, logger: logger, now: time.Now}
}

// WithNow overrides the clock stamped on reports.
func (c *Checker) WithNow(now func() time.Time) *Checker {
	c.now = now
	return c
}

// Run checks a single company.
func (c *Checker) Run(ctx context.Context, companyID int64) (Report, error) {
	if companyID <= 0 {
		return Report{}, shared.Invalid("company_id", "required")
	}
	report := Report{CompanyID: companyID, CheckedAt: c.now().UTC()}
	err := c.store.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		findings, err := collect(ctx, repo, companyID)
		report.Findings = findings
		return err
	})
	if err != nil {
		return Report{}, fmt.Errorf("integrity check company %d: %w", companyID, err)
	}
	c.record(report)
	return report, nil
}

// RunAll checks every company known to the store. A failing company is
// logged and skipped; the first such error is returned after all ran.
func (c *Checker) RunAll(ctx context.Context) ([]Report, error) {
	tracker := c.metrics.Track("gl_integrity")
	var ids []int64
	err := c.store.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		ids, err = repo.CompanyIDs(ctx)
		return err
	})
	if err != nil {
		return nil, tracker.End(err)
	}
	var (
		reports  []Report
		firstErr error
	)
	for _, id := range ids {
		report, err := c.Run(ctx, id)
		if err != nil {
			c.logger.Error("gl integrity check failed", slog.Int64("company_id", id), slog.Any("error", err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		reports = append(reports, report)
	}
	return reports, tracker.End(firstErr)
}

func collect(ctx context.Context, repo Repository, companyID int64) ([]Finding, error) {
	queries := []func(context.Context, int64) ([]Finding, error){
		repo.UnbalancedJournals,
		repo.DanglingBankMatches,
		repo.DocumentBalanceDrift,
	}
	var out []Finding
	for _, q := range queries {
		found, err := q(ctx, companyID)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

func (c *Checker) record(report Report) {
	counts := make(map[Kind]int)
	for _, f := range report.Findings {
		counts[f.Kind]++
		c.logger.Warn("gl integrity finding",
			slog.String("kind", string(f.Kind)),
			slog.Int64("company_id", f.CompanyID),
			slog.Int64("entity_id", f.EntityID),
			slog.String("amount", f.Amount.String()),
			slog.String("detail", f.Detail))
	}
	for kind, n := range counts {
		c.metrics.AddFindings(string(kind), strconv.FormatInt(report.CompanyID, 10), n)
	}
	if report.Clean() {
		c.logger.Info("gl integrity check clean", slog.Int64("company_id", report.CompanyID))
	}
}
