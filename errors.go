package sched

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrNoTasks is returned by New when the supplied Config declares no
	// tasks; there is nothing for task 0 to be.
	ErrNoTasks = errors.New("sched: config declares no tasks")

	// ErrNilHost is returned by New when Config.Host is nil.
	ErrNilHost = errors.New("sched: config has a nil Host")

	// ErrAlreadyRunning is returned by Run if called a second time on a
	// Scheduler that is already running.
	ErrAlreadyRunning = errors.New("sched: scheduler is already running")

	// ErrInvalidTask is wrapped and panicked (not returned: every entry
	// point that takes a TaskID is called from task code with no recovery
	// path) when a TaskID is out of range for the Scheduler it's used
	// with. New has no TaskIDs to check (a Config holds none); every
	// TaskID is checked by Scheduler.Validate each time it is used.
	ErrInvalidTask = errors.New("sched: invalid task id")

	// ErrDeadlineOutOfWindow exists for host integrations that opt into
	// Config.StrictDeadlines; by default an out-of-window WaitDeadline
	// argument is undefined behavior rather than a checked error, matching
	// the embedded original.
	ErrDeadlineOutOfWindow = errors.New("sched: deadline outside the representable wrap window")
)

// StackOverflowError is built by checkGuard the moment a stack guard
// trips and handed to Host.StackOverflow, carrying enough context for a
// test (or a real host's fault handler) to identify which task's guard
// tripped, and the corrupted guard region's contents at the time of the
// check.
type StackOverflowError struct {
	Task  TaskID
	Words []uintptr
}

func (e *StackOverflowError) Error() string {
	return fmt.Sprintf("sched: stack overflow detected on task %d", e.Task)
}

// wrapf is the package's internal helper for attaching context to a
// sentinel error without discarding it from errors.Is/As chains,
// mirroring the teacher package's WrapError helper.
func wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel)
}

// invalidTaskErr builds the ErrInvalidTask-wrapping error panicked by
// TaskID accessors given an out-of-range index.
func invalidTaskErr(id TaskID, n int) error {
	return wrapf(ErrInvalidTask, "id %d (scheduler has %d tasks)", id, n)
}
