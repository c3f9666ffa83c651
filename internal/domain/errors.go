package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the job control surface.
var (
	// ErrJobNotFound means the job id is neither in the registry nor the store.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotCompleted means results were requested before the job completed.
	ErrJobNotCompleted = errors.New("job not completed yet")

	// ErrJobFinished means an operation targeted a job in a terminal state.
	ErrJobFinished = errors.New("job already finished")
)

// ValidationError rejects a submission before any job state is created.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid config: " + e.Reason
	}
	return fmt.Sprintf("invalid config: %s %s", e.Field, e.Reason)
}

// CapacityError rejects a submission because the concurrency bound is
// reached. There is no queue; callers must retry later.
type CapacityError struct {
	Limit int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("service at capacity: maximum %d concurrent jobs allowed", e.Limit)
}

// SourceError wraps a fatal failure to fetch, probe or open a video source.
// It transitions the owning job to failed.
type SourceError struct {
	Locator string
	Err     error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Locator, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
