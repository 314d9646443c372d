package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-gl/internal/shared"
)

func TestActorFromHeaders(t *testing.T) {
	var got shared.Actor
	handler := ActorFromHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = shared.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderCompanyID, "12")
	req.Header.Set(HeaderUserID, " 7 ")
	req.Header.Set(HeaderRole, "controller")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, shared.Actor{CompanyID: 12, UserID: 7, Role: "controller"}, got)

	for _, headers := range []map[string]string{
		{},
		{HeaderCompanyID: "12"},
		{HeaderCompanyID: "abc", HeaderUserID: "7"},
		{HeaderCompanyID: "0", HeaderUserID: "7"},
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusUnauthorized, rr.Code, "%v", headers)
	}
}
