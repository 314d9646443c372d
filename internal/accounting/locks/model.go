package locks

import (
	"context"
	"time"
)

// PeriodLock closes the books of a company through LockDate inclusive.
type PeriodLock struct {
	ID        int64
	CompanyID int64
	LockDate  time.Time
	Reason    string
	Active    bool
	CreatedBy int64
	CreatedAt time.Time
	DeletedBy *int64
	DeletedAt *time.Time
}

// Reader answers horizon queries inside the caller's transaction.
type Reader interface {
	// LockHorizon returns max(lock_date) over active locks, or nil without locks.
	LockHorizon(ctx context.Context, companyID int64) (*time.Time, error)
}

// TxRepository adds lock maintenance to Reader.
type TxRepository interface {
	Reader
	InsertPeriodLock(ctx context.Context, lock PeriodLock) (PeriodLock, error)
	DeactivatePeriodLock(ctx context.Context, companyID, lockID, actorID int64, at time.Time) error
}

// Store runs lock maintenance in one transaction.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}
