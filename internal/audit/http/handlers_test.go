package audithttp

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-gl/internal/audit"
	"github.com/odyssey-erp/odyssey-gl/internal/shared"
)

type stubTimelineService struct {
	result      audit.Result
	exportRows  []audit.TimelineRow
	lastFilters audit.TimelineFilters
}

func (s *stubTimelineService) Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error) {
	s.lastFilters = filters
	return s.result, nil
}

func (s *stubTimelineService) Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error) {
	s.lastFilters = filters
	return s.exportRows, nil
}

func newAuditRouter(service *stubTimelineService) http.Handler {
	handler := NewHandler(nil, service)
	handler.now = func() time.Time { return time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Test-Anonymous") == "" {
				r = r.WithContext(shared.ContextWithActor(r.Context(), shared.Actor{CompanyID: 4, UserID: 11}))
			}
			next.ServeHTTP(w, r)
		})
	})
	handler.MountRoutes(r)
	return r
}

func TestTimelineScopesToActorCompany(t *testing.T) {
	service := &stubTimelineService{result: audit.Result{
		Rows:   []audit.TimelineRow{{At: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), ActorID: 11, Action: "journal.reverse", Entity: "journal_entry", EntityID: "5"}},
		Paging: audit.PagingInfo{Page: 1, PageSize: 20},
	}}
	rr := httptest.NewRecorder()
	newAuditRouter(service).ServeHTTP(rr, httptest.NewRequest(http.MethodGet,
		"/audit?from=2025-03-01&to=2025-03-10&entity=journal_entry&entity_id=5&page=2&page_size=10&actor_id=11", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"action":"journal.reverse"`)
	require.Equal(t, audit.TimelineFilters{
		CompanyID: 4,
		From:      time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		To:        time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
		ActorID:   11,
		Entity:    "journal_entry",
		EntityID:  "5",
		Page:      2,
		PageSize:  10,
	}, service.lastFilters)
}

func TestTimelineDefaultsWindow(t *testing.T) {
	service := &stubTimelineService{}
	rr := httptest.NewRecorder()
	newAuditRouter(service).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC), service.lastFilters.To)
	require.Equal(t, time.Date(2025, 2, 13, 0, 0, 0, 0, time.UTC), service.lastFilters.From)
}

func TestTimelineRejectsBadFilters(t *testing.T) {
	cases := map[string]string{
		"bad date":   "/audit?from=03/01/2025",
		"reversed":   "/audit?from=2025-03-10&to=2025-03-01",
		"too wide":   "/audit?from=2023-01-01&to=2025-03-01",
		"bad page":   "/audit?page=0",
		"bad actor":  "/audit?actor_id=abc",
		"bad export": "/audit/export.csv?page_size=-1",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			newAuditRouter(&stubTimelineService{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
			require.Equal(t, http.StatusBadRequest, rr.Code)
			require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		})
	}
}

func TestTimelineRequiresActor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/audit", nil)
	req.Header.Set("X-Test-Anonymous", "1")
	rr := httptest.NewRecorder()
	newAuditRouter(&stubTimelineService{}).ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestExportWritesCSV(t *testing.T) {
	service := &stubTimelineService{exportRows: []audit.TimelineRow{{
		EventID:  "evt-1",
		At:       time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		ActorID:  11,
		Action:   "document.post",
		Entity:   "document",
		EntityID: "42",
		Meta:     map[string]any{"journal_id": 9},
	}}}
	rr := httptest.NewRecorder()
	newAuditRouter(service).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit/export.csv?entity=document", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	records, err := csv.NewReader(strings.NewReader(rr.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"at", "actor_id", "action", "entity", "entity_id", "event_id", "meta"},
		{"2025-03-10T09:00:00Z", "11", "document.post", "document", "42", "evt-1", `{"journal_id":9}`},
	}, records)
	require.Equal(t, "document", service.lastFilters.Entity)
}
