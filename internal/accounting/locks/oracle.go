// Package locks answers whether a date is closed to new postings.
//
// A company's horizon is the latest lock date among its active locks and a
// date is locked iff date <= horizon. Every write path applies this one rule.
package locks

import (
	"context"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	internalshared "github.com/odyssey-erp/odyssey-gl/internal/shared"
)

// Oracle evaluates and maintains period locks.
type Oracle struct {
	now func() time.Time
}

// NewOracle constructs an Oracle.
func NewOracle() *Oracle {
	return &Oracle{now: time.Now}
}

// WithNow overrides the clock for testing.
func (o *Oracle) WithNow(now func() time.Time) {
	if now != nil {
		o.now = now
	}
}

// Horizon returns the effective lock horizon or nil when nothing is locked.
func (o *Oracle) Horizon(ctx context.Context, r Reader, companyID int64) (*time.Time, error) {
	h, err := r.LockHorizon(ctx, companyID)
	if err != nil || h == nil {
		return nil, err
	}
	d := shared.DateOf(*h)
	return &d, nil
}

// IsLocked reports whether date is on or before the company's horizon.
func (o *Oracle) IsLocked(ctx context.Context, r Reader, companyID int64, date time.Time) (bool, error) {
	h, err := o.Horizon(ctx, r, companyID)
	if err != nil {
		return false, err
	}
	return locked(h, date), nil
}

// Ensure returns a LockedPeriodError when date is locked.
func (o *Oracle) Ensure(ctx context.Context, r Reader, companyID int64, date time.Time) error {
	h, err := o.Horizon(ctx, r, companyID)
	if err != nil {
		return err
	}
	if locked(h, date) {
		return &shared.LockedPeriodError{Date: shared.DateOf(date), Horizon: *h}
	}
	return nil
}

// Lock inserts an active lock at date.
func (o *Oracle) Lock(ctx context.Context, tx TxRepository, actor internalshared.Actor, date time.Time, reason string) (PeriodLock, error) {
	if date.IsZero() {
		return PeriodLock{}, shared.Invalid("lock_date", "required")
	}
	return tx.InsertPeriodLock(ctx, PeriodLock{
		CompanyID: actor.CompanyID,
		LockDate:  shared.DateOf(date),
		Reason:    strings.TrimSpace(reason),
		Active:    true,
		CreatedBy: actor.UserID,
		CreatedAt: o.now(),
	})
}

// EnsureLockedThrough installs a lock at date unless the horizon already
// covers it. It reports whether a lock was inserted.
func (o *Oracle) EnsureLockedThrough(ctx context.Context, tx TxRepository, actor internalshared.Actor, date time.Time, reason string) (bool, error) {
	h, err := o.Horizon(ctx, tx, actor.CompanyID)
	if err != nil {
		return false, err
	}
	if locked(h, date) {
		return false, nil
	}
	if _, err := o.Lock(ctx, tx, actor, date, reason); err != nil {
		return false, err
	}
	return true, nil
}

// Release deactivates a lock; the horizon falls back to the remaining locks.
func (o *Oracle) Release(ctx context.Context, tx TxRepository, actor internalshared.Actor, lockID int64) error {
	if lockID <= 0 {
		return shared.Invalid("lock_id", "required")
	}
	return tx.DeactivatePeriodLock(ctx, actor.CompanyID, lockID, actor.UserID, o.now())
}

func locked(horizon *time.Time, date time.Time) bool {
	if horizon == nil {
		return false
	}
	return !shared.DateOf(date).After(*horizon)
}
