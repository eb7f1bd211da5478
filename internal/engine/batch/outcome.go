package batch

import (
	"errors"
	"fmt"
)

// Outcome is the result of running the worker for the item at Index.
// Exactly one of Value or Err is meaningful: Err is nil on success.
type Outcome[R any] struct {
	// Index is the item's position in the input slice.
	Index int

	// Value is the worker's result. It is the zero value when Err is set.
	Value R

	// Err is the recorded failure, always an *ItemError when non-nil.
	Err error
}

// OK reports whether the item succeeded.
func (o Outcome[R]) OK() bool {
	return o.Err == nil
}

// ItemError records the failure of a single item.
type ItemError struct {
	Index int
	Err   error
}

// Error implements the error interface.
func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d failed: %v", e.Index, e.Err)
}

// Unwrap returns the worker's error.
func (e *ItemError) Unwrap() error {
	return e.Err
}

// Values returns the success values in input order, skipping failed items.
func Values[R any](outcomes []Outcome[R]) []R {
	values := make([]R, 0, len(outcomes))
	for _, o := range outcomes {
		if o.OK() {
			values = append(values, o.Value)
		}
	}
	return values
}

// Failures returns the recorded item errors in input order.
func Failures[R any](outcomes []Outcome[R]) []*ItemError {
	var failures []*ItemError
	for _, o := range outcomes {
		if o.OK() {
			continue
		}
		var itemErr *ItemError
		if errors.As(o.Err, &itemErr) {
			failures = append(failures, itemErr)
		} else {
			failures = append(failures, &ItemError{Index: o.Index, Err: o.Err})
		}
	}
	return failures
}

// Errs joins every item failure into one error, or returns nil when all items succeeded.
func Errs[R any](outcomes []Outcome[R]) error {
	var errs []error
	for _, f := range Failures(outcomes) {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// Filter returns the items for which keep returns true, preserving order.
// A nil keep returns items unchanged.
func Filter[T any](items []T, keep func(T) bool) []T {
	if keep == nil {
		return items
	}
	kept := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			kept = append(kept, item)
		}
	}
	return kept
}
