package shared

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrValidation indicates malformed input rejected before any write.
	ErrValidation = errors.New("accounting: validation failed")
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = errors.New("accounting: journal lines must balance")
	// ErrPeriodLocked indicates the date falls on or before the lock horizon.
	ErrPeriodLocked = errors.New("accounting: period locked")
	// ErrDuplicatePosting indicates an active journal already exists for the source.
	ErrDuplicatePosting = errors.New("accounting: source already posted")
	// ErrMappingNotFound indicates account mapping missing.
	ErrMappingNotFound = errors.New("accounting: account mapping not found")
	// ErrUnknownAccount indicates a line references an account that is absent or inactive.
	ErrUnknownAccount = errors.New("accounting: unknown account")
	// ErrAlreadyReversed indicates the journal was reversed before.
	ErrAlreadyReversed = errors.New("accounting: journal already reversed")
	// ErrNotFound indicates a missing or cross-tenant record.
	ErrNotFound = errors.New("accounting: not found")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ImbalancedEntryError carries the offending totals.
type ImbalancedEntryError struct {
	Debit  Money
	Credit Money
}

func (e *ImbalancedEntryError) Error() string {
	return fmt.Sprintf("journal does not balance: debit %s, credit %s", e.Debit, e.Credit)
}

func (e *ImbalancedEntryError) Is(target error) bool { return target == ErrUnbalanced }

// LockedPeriodError surfaces the rejected date and the active horizon.
type LockedPeriodError struct {
	Date    time.Time
	Horizon time.Time
}

func (e *LockedPeriodError) Error() string {
	return fmt.Sprintf("period locked: %s is on or before lock date %s",
		e.Date.Format(DateLayout), e.Horizon.Format(DateLayout))
}

func (e *LockedPeriodError) Is(target error) bool { return target == ErrPeriodLocked }

// DuplicatePostingError is non-fatal and points at the journal that already exists.
type DuplicatePostingError struct {
	JournalID int64
}

func (e *DuplicatePostingError) Error() string {
	return fmt.Sprintf("already posted as journal %d", e.JournalID)
}

func (e *DuplicatePostingError) Is(target error) bool { return target == ErrDuplicatePosting }

// MissingAccountMappingError names the account role that could not be resolved.
type MissingAccountMappingError struct {
	Key string
}

func (e *MissingAccountMappingError) Error() string {
	return fmt.Sprintf("no account configured for %s", e.Key)
}

func (e *MissingAccountMappingError) Is(target error) bool { return target == ErrMappingNotFound }

// UnknownAccountError lists codes that do not resolve to an active account.
type UnknownAccountError struct {
	Codes []string
}

func (e *UnknownAccountError) Error() string {
	return "unknown or inactive account: " + strings.Join(e.Codes, ", ")
}

func (e *UnknownAccountError) Is(target error) bool { return target == ErrUnknownAccount }

// AlreadyReversedError identifies the journal that cannot be reversed again.
type AlreadyReversedError struct {
	JournalID int64
}

func (e *AlreadyReversedError) Error() string {
	return fmt.Sprintf("journal %d already reversed", e.JournalID)
}

func (e *AlreadyReversedError) Is(target error) bool { return target == ErrAlreadyReversed }

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound builds a NotFoundError.
func NotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}
