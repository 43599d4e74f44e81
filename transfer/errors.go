package transfer

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// ErrChecksumUnavailable means validation was requested for a digest the
// service did not report.
var ErrChecksumUnavailable = errors.New("transfer: checksum unavailable")

// IntegrityError reports a checksum mismatch after reassembly. The
// destination must not be treated as complete.
type IntegrityError struct {
	Algorithm string
	Want      string
	Got       string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("transfer: %s mismatch: got %s, want %s", e.Algorithm, e.Got, e.Want)
}

// PartFailure is one part's terminal error.
type PartFailure struct {
	Index int
	Err   error
}

// PartialError aggregates a partially-failed transfer: one entry per part
// whose retry budget was exhausted or whose error was terminal, plus the
// indices that succeeded or were never started, so callers can resume.
type PartialError struct {
	Direction string // "upload" or "download"
	Failed    []PartFailure
	Succeeded []int
	Skipped   []int
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("transfer: %s failed for %d of %d parts: %v",
		e.Direction, len(e.Failed), len(e.Failed)+len(e.Succeeded)+len(e.Skipped), e.combined())
}

// Unwrap exposes the per-part causes to errors.Is/As.
func (e *PartialError) Unwrap() error { return e.combined() }

func (e *PartialError) combined() error {
	var errs []error
	for _, f := range e.Failed {
		errs = append(errs, fmt.Errorf("part %d: %w", f.Index, f.Err))
	}
	return multierr.Combine(errs...)
}

// FailedIndices lists the failed part indices in ascending order.
func (e *PartialError) FailedIndices() []int {
	out := make([]int, 0, len(e.Failed))
	for _, f := range e.Failed {
		out = append(out, f.Index)
	}
	return out
}
