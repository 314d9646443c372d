package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
	// MaxExportRows caps a single CSV export.
	MaxExportRows = 10000
)

// Repository reads stored audit records.
type Repository interface {
	Timeline(ctx context.Context, q TimelineQuery) ([]TimelineRow, error)
}

// Service serves the audit trail of posted ledger activity.
type Service struct {
	repo Repository
}

// NewService builds an audit timeline service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of audit records, newest first.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s == nil || s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	q, err := toQuery(filters)
	if err != nil {
		return Result{}, err
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	q.Offset = (page - 1) * pageSize
	q.Limit = pageSize + 1

	rows, err := s.repo.Timeline(ctx, q)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export returns every matching record up to MaxExportRows.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	q, err := toQuery(filters)
	if err != nil {
		return nil, err
	}
	q.Limit = MaxExportRows
	return s.repo.Timeline(ctx, q)
}

func toQuery(f TimelineFilters) (TimelineQuery, error) {
	if f.CompanyID <= 0 {
		return TimelineQuery{}, shared.Invalid("company_id", "required")
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return TimelineQuery{}, shared.Invalid("from", "after to")
	}
	return TimelineQuery{
		CompanyID: f.CompanyID,
		From:      f.From,
		To:        f.To,
		ActorID:   f.ActorID,
		Entity:    strings.TrimSpace(f.Entity),
		EntityID:  strings.TrimSpace(f.EntityID),
		Action:    strings.TrimSpace(f.Action),
	}, nil
}
