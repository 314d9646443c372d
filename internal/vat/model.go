// Package vat aggregates VAT postings per return period and drives the
// period through preparation, adjustment and filing.
package vat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/locks"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

// SourceAdjustment is the posting source type of VAT adjustments.
const SourceAdjustment = "vat_adjustment"

// Status enumerates the return lifecycle.
type Status string

const (
	StatusOpen     Status = "open"
	StatusPrepared Status = "prepared"
	StatusAdjusted Status = "adjusted"
	StatusFiled    Status = "filed"
)

var (
	// ErrInvalidTransition indicates the period is in the wrong state.
	ErrInvalidTransition = errors.New("vat: invalid status transition")
	// ErrPeriodOverlap indicates the range intersects an existing period.
	ErrPeriodOverlap = errors.New("vat: period overlaps an existing period")
)

// TransitionError is returned when an action is not allowed from From.
type TransitionError struct {
	From   Status
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("vat: cannot %s a period in status %s", e.Action, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition || target == shared.ErrValidation
}

// OverlapError points at the conflicting period.
type OverlapError struct {
	ExistingID int64
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("vat: period overlaps period %d", e.ExistingID)
}

func (e *OverlapError) Is(target error) bool {
	return target == ErrPeriodOverlap || target == shared.ErrValidation
}

// Period is one VAT return period for a company.
type Period struct {
	ID          int64
	CompanyID   int64
	PeriodStart time.Time
	PeriodEnd   time.Time
	Status      Status
	OutputVAT   shared.Money
	InputVAT    shared.Money
	NetVAT      shared.Money
	Adjustments int
	PreparedBy  *int64
	PreparedAt  *time.Time
	FiledBy     *int64
	FiledAt     *time.Time
	CreatedBy   int64
	CreatedAt   time.Time
}

// Kind selects which VAT account an adjustment line moves.
type Kind string

const (
	KindOutput Kind = "output"
	KindInput  Kind = "input"
)

// AdjustmentLine changes output or input VAT by a signed amount.
type AdjustmentLine struct {
	Kind        Kind
	Amount      shared.Money
	Description string
}

// Codes are the GL accounts VAT is read from and adjusted against.
type Codes struct {
	Output  string
	Input   string
	Control string
}

// TxRepository is the transactional surface of the aggregator.
type TxRepository interface {
	journals.TxRepository
	locks.TxRepository
	InsertVATPeriod(ctx context.Context, p Period) (Period, error)
	GetVATPeriod(ctx context.Context, companyID, id int64, forUpdate bool) (Period, error)
	FindOverlappingVATPeriod(ctx context.Context, companyID int64, start, end time.Time) (int64, bool, error)
	UpdateVATPeriod(ctx context.Context, p Period) error
	// SumAccountMovement totals debits and credits on code for entries
	// dated within [start, end].
	SumAccountMovement(ctx context.Context, companyID int64, code string, start, end time.Time) (debit, credit shared.Money, err error)
}

// Store opens store transactions scoped to the aggregator.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// Accounts resolves the VAT account roles.
type Accounts interface {
	Get(ctx context.Context, companyID int64, key string) (string, error)
}
