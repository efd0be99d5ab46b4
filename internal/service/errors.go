package service

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/halpe-hal/pizza-course-manager-app/internal/clock"
	"github.com/halpe-hal/pizza-course-manager-app/internal/repository"
)

// ErrNotFound is returned when a reservation, course, item or progress row
// does not exist.
var ErrNotFound = repository.ErrNotFound

// ErrDuplicate is returned when a course name is already taken.
var ErrDuplicate = repository.ErrDuplicate

// ErrInUse is returned when a course still has reservations and so cannot
// be deleted.
var ErrInUse = repository.ErrInUse

// ValidationError reports bad input. Nothing was written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports that the table is already taken in a neighbouring
// slot. Nothing was written.
type ConflictError struct {
	TableNo    string
	ReservedAt time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("table %s already has a reservation overlapping %s",
		e.TableNo, e.ReservedAt.In(clock.JST).Format("2006-01-02 15:04"))
}

// PersistenceError reports a datastore failure. When Committed is set the
// operation was partially applied: Committed names what was written and
// Failed what was not.
type PersistenceError struct {
	Op        string
	Committed string
	Failed    string
	Err       error
}

func (e *PersistenceError) Error() string {
	if e.Committed != "" {
		return fmt.Sprintf("%s: %s saved but %s failed: %v", e.Op, e.Committed, e.Failed, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Partial reports whether part of the operation was committed.
func (e *PersistenceError) Partial() bool { return e.Committed != "" }

// persistence wraps a store error. Not-found, duplicate and in-use
// sentinels pass through so callers can still match them.
func persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrDuplicate) ||
		errors.Is(err, repository.ErrInUse) {
		return errors.Wrap(err, op)
	}
	return &PersistenceError{Op: op, Err: errors.WithStack(err)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// IsPersistence reports whether err is a PersistenceError.
func IsPersistence(err error) bool {
	var p *PersistenceError
	return errors.As(err, &p)
}
