package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-gl/internal/audit"
	audithttp "github.com/odyssey-erp/odyssey-gl/internal/audit/http"
	"github.com/odyssey-erp/odyssey-gl/internal/observability"
	postinghttp "github.com/odyssey-erp/odyssey-gl/internal/posting/http"
)

func TestRouterHealthAndSecurityHeaders(t *testing.T) {
	router := NewRouter(RouterParams{Logger: NewLogger(nil), Config: &Config{AppEnv: "test"}, Metrics: observability.NewMetrics()})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestRouterRequiresActorOnAPI(t *testing.T) {
	handler := postinghttp.NewHandler(nil, nil, nil, nil, nil)
	router := NewRouter(RouterParams{Logger: NewLogger(nil), Config: &Config{AppEnv: "test"}, PostingHandler: handler})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/gl/bank/rules/apply", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestRouterMountsAuditTrail(t *testing.T) {
	router := NewRouter(RouterParams{
		Logger:       NewLogger(nil),
		Config:       &Config{AppEnv: "test"},
		AuditHandler: audithttp.NewHandler(nil, audit.NewService(emptyAuditRepo{})),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/gl/audit", nil)
	req.Header.Set(HeaderCompanyID, "1")
	req.Header.Set(HeaderUserID, "2")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"rows":[],"paging":{"page":1,"page_size":20,"has_next":false}}`, rr.Body.String())
}

type emptyAuditRepo struct{}

func (emptyAuditRepo) Timeline(context.Context, audit.TimelineQuery) ([]audit.TimelineRow, error) {
	return nil, nil
}
