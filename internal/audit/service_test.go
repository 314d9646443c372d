package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

type stubTimelineRepo struct {
	rows []TimelineRow
	last TimelineQuery
}

func (s *stubTimelineRepo) Timeline(ctx context.Context, q TimelineQuery) ([]TimelineRow, error) {
	s.last = q
	if q.Limit > 0 && len(s.rows) > q.Limit {
		return s.rows[:q.Limit], nil
	}
	return s.rows, nil
}

func rowsN(n int) []TimelineRow {
	out := make([]TimelineRow, n)
	for i := range out {
		out[i] = TimelineRow{Action: "journal.post", Entity: "journal_entry", EntityID: "1"}
	}
	return out
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{rows: rowsN(3)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{CompanyID: 7, Page: 2, PageSize: 2, Entity: " journal_entry "})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	require.Equal(t, PagingInfo{Page: 2, PageSize: 2, HasNext: true, PrevPage: 1, NextPage: 3}, result.Paging)
	require.Equal(t, TimelineQuery{CompanyID: 7, Entity: "journal_entry", Offset: 2, Limit: 3}, repo.last)
}

func TestServiceTimelineClampsPageSize(t *testing.T) {
	repo := &stubTimelineRepo{}
	_, err := NewService(repo).Timeline(context.Background(), TimelineFilters{CompanyID: 1, PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, maxPageSize+1, repo.last.Limit)
	require.Zero(t, repo.last.Offset)
}

func TestServiceRejectsInvalidFilters(t *testing.T) {
	svc := NewService(&stubTimelineRepo{})

	_, err := svc.Timeline(context.Background(), TimelineFilters{})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Export(context.Background(), TimelineFilters{
		CompanyID: 1,
		From:      time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		To:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestServiceExportCapsRows(t *testing.T) {
	repo := &stubTimelineRepo{rows: rowsN(4)}
	rows, err := NewService(repo).Export(context.Background(), TimelineFilters{CompanyID: 3, ActorID: 9})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, MaxExportRows, repo.last.Limit)
	require.Equal(t, int64(9), repo.last.ActorID)
}

func TestTimelineSQLBindsFiltersInOrder(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	sql, args := timelineSQL(TimelineQuery{CompanyID: 2, From: from, Entity: "document", Action: "document.cancel", Limit: 21, Offset: 20})
	require.Equal(t, `SELECT event_id, occurred_at, actor_id, action, entity, entity_id, meta FROM audit_logs WHERE company_id=$1`+
		` AND occurred_at >= $2 AND entity = $3 AND action = $4 ORDER BY occurred_at DESC, id DESC LIMIT $5 OFFSET $6`, sql)
	require.Equal(t, []any{int64(2), from, "document", "document.cancel", 21, 20}, args)
}
