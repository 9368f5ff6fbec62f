package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")

	// ErrInvalidPlacement rejects a manual entry that would not pre-date the
	// first summarized entry.
	ErrInvalidPlacement = fmt.Errorf("%w: invalid history entry placement", ErrValidation)

	// ErrNotDeletable rejects deletion of anything but a manual layer-0 entry.
	ErrNotDeletable = fmt.Errorf("%w: history entry cannot be deleted", ErrValidation)
)

// SummaryLongerThanOriginalError reports a compaction that grew its input.
type SummaryLongerThanOriginalError struct {
	OriginalTokens int
	SummaryTokens  int
}

func (e *SummaryLongerThanOriginalError) Error() string {
	return fmt.Sprintf("summary (%d tokens) is longer than the original (%d tokens)", e.SummaryTokens, e.OriginalTokens)
}

// UnregeneratableEntryError is returned when a history entry has no source
// range to summarize again.
type UnregeneratableEntryError struct {
	ID     string
	Reason string
}

func (e *UnregeneratableEntryError) Error() string {
	return fmt.Sprintf("history entry %s cannot be regenerated: %s", e.ID, e.Reason)
}
