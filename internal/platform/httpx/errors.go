// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	internalshared "github.com/odyssey-erp/odyssey-gl/internal/shared"
)

// Sentinel errors for the transport layer.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("malformed request")
)

type problemType struct {
	status int
	title  string
	slug   string
}

// Order matters: the first matching sentinel wins.
var problemTypes = []struct {
	target error
	problemType
}{
	{shared.ErrNotFound, problemType{http.StatusNotFound, "Not Found", "not-found"}},
	{shared.ErrDuplicatePosting, problemType{http.StatusConflict, "Already Posted", "duplicate-posting"}},
	{shared.ErrAlreadyReversed, problemType{http.StatusConflict, "Already Reversed", "already-reversed"}},
	{shared.ErrPeriodLocked, problemType{http.StatusConflict, "Period Locked", "period-locked"}},
	{shared.ErrUnbalanced, problemType{http.StatusUnprocessableEntity, "Imbalanced Entry", "imbalanced-entry"}},
	{shared.ErrUnknownAccount, problemType{http.StatusUnprocessableEntity, "Unknown Account", "unknown-account"}},
	{shared.ErrMappingNotFound, problemType{http.StatusUnprocessableEntity, "Missing Account Mapping", "missing-account-mapping"}},
	{shared.ErrValidation, problemType{http.StatusBadRequest, "Validation Failed", "validation"}},
	{ErrBadRequest, problemType{http.StatusBadRequest, "Bad Request", "bad-request"}},
	{internalshared.ErrActorRequired, problemType{http.StatusUnauthorized, "Unauthorized", "unauthorized"}},
	{ErrUnauthorized, problemType{http.StatusUnauthorized, "Unauthorized", "unauthorized"}},
}

// ProblemTypeBase prefixes the RFC7807 type URI.
const ProblemTypeBase = "https://odyssey.local/problems/"

// StatusFor returns the HTTP status an error maps to.
func StatusFor(err error) int {
	if pt, ok := classify(err); ok {
		return pt.status
	}
	return http.StatusInternalServerError
}

func classify(err error) (problemType, bool) {
	for _, p := range problemTypes {
		if errors.Is(err, p.target) {
			return p.problemType, true
		}
	}
	return problemType{}, false
}

// RespondError maps domain errors to HTTP responses using RFC7807. Unknown
// errors become a 500 without detail.
func RespondError(w http.ResponseWriter, err error) {
	pt, ok := classify(err)
	if !ok {
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	JSON(w, pt.status, ProblemDetail{
		Type:   ProblemTypeBase + pt.slug,
		Title:  pt.title,
		Status: pt.status,
		Detail: err.Error(),
	})
}
