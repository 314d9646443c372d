package postinghttp

import (
	"context"
	"net/http"
	"time"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/locks"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	internalshared "github.com/odyssey-erp/odyssey-gl/internal/shared"
)

// LockService is satisfied by *locks.Service.
type LockService interface {
	Horizon(ctx context.Context, actor internalshared.Actor) (*time.Time, error)
	Lock(ctx context.Context, actor internalshared.Actor, date time.Time, reason string) (locks.PeriodLock, error)
	Release(ctx context.Context, actor internalshared.Actor, lockID int64) error
}

// WithLocks enables the period lock endpoints.
func (h *Handler) WithLocks(svc LockService) *Handler {
	h.locks = svc
	return h
}

type lockRequest struct {
	LockDate string `json:"lock_date" validate:"required,datetime=2006-01-02"`
	Reason   string `json:"reason" validate:"max=200"`
}

type lockResponse struct {
	ID        int64  `json:"id"`
	LockDate  string `json:"lock_date"`
	Reason    string `json:"reason,omitempty"`
	CreatedBy int64  `json:"created_by"`
}

type horizonResponse struct {
	Horizon *string `json:"horizon"`
}

func (h *Handler) handleLockHorizon(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.begin(w, r, false)
	if !ok {
		return
	}
	horizon, err := h.locks.Horizon(r.Context(), actor)
	var body horizonResponse
	if horizon != nil {
		s := horizon.Format(shared.DateLayout)
		body.Horizon = &s
	}
	h.respond(w, r, http.StatusOK, body, err)
}

func (h *Handler) handleLockPeriod(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.begin(w, r, false)
	var req lockRequest
	if !ok || !h.decode(w, r, &req) {
		return
	}
	date, err := parseDate("lock_date", req.LockDate)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	lock, err := h.locks.Lock(r.Context(), actor, date, req.Reason)
	h.respond(w, r, http.StatusCreated, lockResponse{
		ID:        lock.ID,
		LockDate:  lock.LockDate.Format(shared.DateLayout),
		Reason:    lock.Reason,
		CreatedBy: lock.CreatedBy,
	}, err)
}

func (h *Handler) handleReleaseLock(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.begin(w, r, true)
	if !ok {
		return
	}
	if err := h.locks.Release(r.Context(), actor, id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
