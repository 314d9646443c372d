package locks

import (
	"context"
	"time"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/audit"
	internalshared "github.com/odyssey-erp/odyssey-gl/internal/shared"
)

// Service exposes period close and reopen to administrators.
type Service struct {
	store  Store
	oracle *Oracle
	audit  *audit.Emitter
}

// NewService constructs the period lock service.
func NewService(store Store, oracle *Oracle, emitter *audit.Emitter) *Service {
	return &Service{store: store, oracle: oracle, audit: emitter}
}

// Horizon reports the company's current lock horizon.
func (s *Service) Horizon(ctx context.Context, actor internalshared.Actor) (*time.Time, error) {
	var h *time.Time
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		h, err = s.oracle.Horizon(ctx, tx, actor.CompanyID)
		return err
	})
	return h, err
}

// Lock closes the books through date.
func (s *Service) Lock(ctx context.Context, actor internalshared.Actor, date time.Time, reason string) (PeriodLock, error) {
	if err := actor.Validate(); err != nil {
		return PeriodLock{}, err
	}
	var lock PeriodLock
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		lock, err = s.oracle.Lock(ctx, tx, actor, date, reason)
		return err
	})
	if err != nil {
		return PeriodLock{}, err
	}
	s.audit.Emit(ctx, actor, "period.lock", "period_lock", lock.ID, map[string]any{
		"lock_date": lock.LockDate.Format(shared.DateLayout),
		"reason":    lock.Reason,
	})
	return lock, nil
}

// Release reopens the books down to the next remaining lock.
func (s *Service) Release(ctx context.Context, actor internalshared.Actor, lockID int64) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return s.oracle.Release(ctx, tx, actor, lockID)
	})
	if err != nil {
		return err
	}
	s.audit.Emit(ctx, actor, "period.release", "period_lock", lockID, nil)
	return nil
}
