package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	internalshared "github.com/odyssey-erp/odyssey-gl/internal/shared"
)

func TestRespondErrorMapsTaxonomy(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		slug   string
	}{
		{"validation", shared.Invalid("lines", "required"), http.StatusBadRequest, "validation"},
		{"imbalanced", &shared.ImbalancedEntryError{Debit: 100, Credit: 90}, http.StatusUnprocessableEntity, "imbalanced-entry"},
		{"locked", fmt.Errorf("post: %w", &shared.LockedPeriodError{}), http.StatusConflict, "period-locked"},
		{"duplicate", &shared.DuplicatePostingError{JournalID: 4}, http.StatusConflict, "duplicate-posting"},
		{"mapping", &shared.MissingAccountMappingError{Key: "ar_account"}, http.StatusUnprocessableEntity, "missing-account-mapping"},
		{"unknown account", &shared.UnknownAccountError{Codes: []string{"9999"}}, http.StatusUnprocessableEntity, "unknown-account"},
		{"reversed", &shared.AlreadyReversedError{JournalID: 3}, http.StatusConflict, "already-reversed"},
		{"not found", shared.NotFound("document", 8), http.StatusNotFound, "not-found"},
		{"actor", internalshared.ErrActorRequired, http.StatusUnauthorized, "unauthorized"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RespondError(rr, tc.err)
			require.Equal(t, tc.status, rr.Code)
			require.Equal(t, tc.status, StatusFor(tc.err))

			var body ProblemDetail
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			require.Equal(t, ProblemTypeBase+tc.slug, body.Type)
			require.Equal(t, tc.err.Error(), body.Detail)
		})
	}
}

func TestRespondErrorHidesUnknownErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, errors.New("pq: connection refused"))
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Empty(t, body.Detail)
	require.Equal(t, "Internal Error", body.Title)
}
