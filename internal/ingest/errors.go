package ingest

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/fortuna/goalfeed/internal/ingest/fetch"
)

// PartialError reports that some upstream calls of a fetch cycle failed while
// others produced items. The items are still usable.
type PartialError struct {
	Count int
	Last  error
}

func (e *PartialError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("%d upstream calls failed", e.Count)
	}
	return fmt.Sprintf("%d upstream calls failed, last: %v", e.Count, e.Last)
}

func (e *PartialError) Unwrap() error {
	return e.Last
}

// Failures collects failed fetch results over a cycle.
type Failures struct {
	count int
	last  error
}

// Observe records res when it failed and reports whether it did.
func (f *Failures) Observe(res fetch.Result, what string) bool {
	if !res.Failed() {
		return false
	}
	f.count++
	err := res.Err
	if err == nil {
		err = errors.Newf("%s: %s", what, res.Kind)
	} else {
		err = errors.Wrapf(err, "%s (%s)", what, res.Kind)
	}
	f.last = err
	return true
}

// Add records a failure that did not come from a fetch.
func (f *Failures) Add(err error) {
	f.count++
	f.last = err
}

// Count returns the number of failures seen.
func (f *Failures) Count() int {
	return f.count
}

// Err returns a *PartialError, or nil when nothing failed.
func (f *Failures) Err() error {
	if f.count == 0 {
		return nil
	}
	return &PartialError{Count: f.count, Last: f.last}
}
