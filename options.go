package sched

import "math/bits"

// Tick is the constraint a scheduler's tick/deadline type must satisfy:
// any unsigned integer width the embedder's target can represent in a
// single register. Wider types buy a longer wrap period at the cost of
// more expensive atomic loads on narrow targets; the choice is the
// embedder's, made by picking the concrete type argument.
type Tick interface {
	~uint16 | ~uint32 | ~uint64
}

// TaskID addresses a task within a Scheduler by its position in the
// fixed task table built at New. Unlike the embedded original's
// compile-time task enumeration, Go generics can't enumerate a closed
// set of tasks at the type level, so TaskID is a plain runtime index,
// validated against the owning Scheduler's task count at each use.
type TaskID int

// TaskFn is a task's entry point. It must eventually return (at which
// point the scheduler parks it permanently) or block forever inside a
// Wait/Sleep/Yield call.
type TaskFn func()

// RunnableFn reports whether a task is presently eligible to run. The
// scheduler calls it from the round-robin scan, which runs on whichever
// task goroutine is suspending (or on Run's goroutine before the first
// switch), each time it needs to decide whether a waiting task has
// become runnable. Two package-level sentinels, RunnableAlways and
// RunnableNever, cover the unconditional cases; the scheduler only ever
// calls them, it never compares RunnableFn values.
type RunnableFn func() bool

// RunnableAlways is the RunnableFn of a task that may run now: the
// initial state of every task, set by Start and Yield, set by Tick when it
// fires a task's deadline, and substituted for a nil cond by Wait (which
// then returns immediately).
func RunnableAlways() bool { return true }

// RunnableNever is the RunnableFn of a task that may not run: set by Stop
// and when a task returns, and used as the cond of Sleep/Delay and of a
// WaitTicks/WaitDeadline given a nil cond, so that only the deadline (or
// a later Start) makes the task runnable again.
func RunnableNever() bool { return false }

// Period expresses a ratio of seconds per Tick as a fraction, avoiding
// any dependency on floating point (the embedded original's Us<N>/Ms<N>
// are constexpr integer ratios for the same reason). Den must be
// nonzero; Num and Den are both in Hz-denominator form, i.e. the tick
// period is Num/Den seconds.
type Period struct {
	Num, Den uint64
}

// Us returns the smallest tick count whose duration is at least n
// microseconds at this Period, rounding up. Panics on Den == 0 or on
// overflow of the uint64 intermediate; callers that need a build-time
// guarantee should call this from a package-level var initializer (see
// MustUs).
func (p Period) Us(n uint64) uint64 {
	return p.ceilDiv(n, 1_000_000)
}

// Ms returns the smallest tick count whose duration is at least n
// milliseconds at this Period, rounding up.
func (p Period) Ms(n uint64) uint64 {
	return p.ceilDiv(n, 1_000)
}

// MustUs is Us, intended for use in a package-level var initializer so
// that a misconfigured Period fails at program init rather than deep
// inside a running task.
func (p Period) MustUs(n uint64) uint64 { return p.Us(n) }

// MustMs is Ms, intended for use in a package-level var initializer.
func (p Period) MustMs(n uint64) uint64 { return p.Ms(n) }

// ceilDiv computes ceil((n / unitsPerSecond) / (Num/Den)) ==
// ceil(n * Den / (Num * unitsPerSecond)) without floating point, where
// unitsPerSecond converts n's unit (us or ms) into seconds.
func (p Period) ceilDiv(n, unitsPerSecond uint64) uint64 {
	if p.Den == 0 {
		panic("sched: Period has zero Den")
	}
	hi, num := bits.Mul64(n, p.Den)
	dhi, den := bits.Mul64(p.Num, unitsPerSecond)
	if hi != 0 || dhi != 0 {
		panic("sched: Period conversion overflows uint64")
	}
	if den == 0 {
		panic("sched: Period has zero Num")
	}
	q := num / den
	if num%den != 0 {
		q++
	}
	return q
}

// TaskDef describes one task at configuration time: its accounting
// stack (see package guard for why this is not the goroutine's real
// execution stack) and its entry point.
type TaskDef[T Tick] struct {
	// Stack backs this task's stack guard. Pass nil or a buffer shorter
	// than StackGuardCount words to leave the guard disabled for this
	// task specifically.
	Stack []byte
	// Run is the task's entry point, launched on its own goroutine by
	// Start and executed with interrupts enabled.
	Run TaskFn
}

// Config assembles the fixed, compile-time-known configuration a
// Scheduler is built from.
type Config[T Tick] struct {
	// Host supplies the platform primitives (interrupt flag, sleep,
	// stack-overflow reporting). Required.
	Host Host

	// TicksPeriod is the real-world duration of one Tick, used by
	// Period-based Wait/Sleep helpers. Required (Den must be nonzero).
	TicksPeriod Period

	// StackGuardCount is the number of sentinel words placed at each
	// task's stack extremum. Zero disables guard checking entirely.
	StackGuardCount int

	// InterruptStack, if non-nil, is also guarded, the same way the
	// embedded original optionally guards the interrupt stack.
	InterruptStack []byte

	// Tasks is the fixed task table. Must be non-empty.
	Tasks []TaskDef[T]

	// Logger receives scheduler lifecycle and diagnostic events. Defaults
	// to a no-op logger if nil.
	Logger Logger

	// TraceLen sizes the ring buffer backing Scheduler.Events(); must be a
	// power of two. Zero disables event tracing.
	TraceLen int

	// StrictDeadlines, when true, makes WaitDeadline validate that the
	// given deadline is reachable within the tick type's wrap window,
	// returning ErrDeadlineOutOfWindow instead of the embedded original's
	// undefined behavior for an out-of-window deadline.
	StrictDeadlines bool
}

// validate checks the invariants New depends on, returning a wrapped
// sentinel on the first violation found.
func (c *Config[T]) validate() error {
	if c.Host == nil {
		return ErrNilHost
	}
	if len(c.Tasks) == 0 {
		return ErrNoTasks
	}
	if c.TicksPeriod.Den == 0 {
		return wrapf(ErrDeadlineOutOfWindow, "zero-Den TicksPeriod")
	}
	return nil
}

// halfRange returns the boundary wrap-safe deadline comparisons are
// defined relative to: a delta of exactly 2^(W-1) ticks must still
// classify as "future" (spec boundary B1), matching the original's
// deadline-currentTime-1 > TicksMax/2 test, which is false (i.e. still
// future) at delta == 2^(W-1). TicksMax/2 + 1 == 2^(W-1) itself, so the
// comparison in before (delta < halfRange) needs one more than that.
func halfRange[T Tick]() T {
	var zero T
	zero-- // all-ones: the type's maximum value
	return zero/2 + 2
}
