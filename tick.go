package sched

import (
	"sync"
	"sync/atomic"
)

// isrState holds the fields Tick updates and Run/Wait read, all of which
// are logically "interrupt-shared": on real hardware these would be
// accessed with interrupts disabled; here, because hostsim's simulated
// timer genuinely runs on its own goroutine, currentTime is kept in an
// atomic.Uint64 and the (nextWake, nextWakeValid) pair — which must
// change as one unit — is guarded by a small mutex rather than packed
// into a single atomic word.
type isrState[T Tick] struct {
	currentTime atomic.Uint64

	mu            sync.Mutex
	nextWake      T
	nextWakeValid bool
}

func (st *isrState[T]) now() T {
	return T(st.currentTime.Load())
}

// setNextWake records the earliest deadline any waiting task currently
// cares about, which TickRequired reports on. Tick itself does not read
// nextWake: it walks the whole task table on every call.
func (st *isrState[T]) setNextWake(deadline T, valid bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !valid {
		st.nextWakeValid = false
		return
	}
	if !st.nextWakeValid || before(deadline, st.nextWake) {
		st.nextWake = deadline
		st.nextWakeValid = true
	}
}

// recomputeNextWake rescans every task's wakeDeadline and replaces
// nextWake with the earliest one found, called by Tick after a task is
// woken (so its deadline no longer applies) and by TickRequired (so a
// deadline dropped by Stop or Start is no longer counted).
func (st *isrState[T]) recomputeNextWake(tasks []*task[T]) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.nextWakeValid = false
	for _, t := range tasks {
		if t.hasDeadline {
			if !st.nextWakeValid || before(t.wakeDeadline, st.nextWake) {
				st.nextWake = t.wakeDeadline
				st.nextWakeValid = true
			}
		}
	}
}

// before reports whether a is strictly before b in wrap-safe arithmetic:
// treating the tick type's range as a circle, a is "before" b if the
// forward distance from a to b is nonzero and at most half the
// representable range (2^(W-1)). This is the same half-range wraparound rule the embedded
// original uses for its deadline comparisons, so a deadline up to
// MaxT/2 ticks in the future is always ordered correctly regardless of
// where currentTime itself has wrapped to.
func before[T Tick](a, b T) bool {
	if a == b {
		return false
	}
	return T(b-a) < halfRange[T]()
}

// reached reports whether now has reached or passed deadline, under the
// same half-range wraparound rule as before.
func reached[T Tick](now, deadline T) bool {
	return now == deadline || before(deadline, now)
}

// Tick advances the scheduler's notion of current time by one tick and
// wakes any task whose deadline has been reached. It is the one
// Scheduler method meant to be called from interrupt-like context
// (hostsim's Clock goroutine in tests) concurrently with task code.
//
// Per invariant P4, Tick never itself performs a context switch: it only
// flips a woken task's runnable flag, leaving the actual switch to the
// next cooperative suspension point (exactly like the embedded original,
// which cannot safely switch stacks from inside an ISR either).
func (s *Scheduler[T]) Tick() {
	s.isr.currentTime.Add(1)
	s.metrics.Ticks.Add(1)
	now := s.isr.now()

	s.irqMu.Lock()
	defer s.irqMu.Unlock()

	woke := false
	for _, t := range s.tasks {
		if t.hasDeadline && reached(now, t.wakeDeadline) {
			t.hasDeadline = false
			t.runnable = RunnableAlways
			woke = true
			s.metrics.Wakes.Add(1)
		}
	}
	if woke {
		s.isr.recomputeNextWake(s.tasks)
	}
}

// TickRequired reports whether the scheduler currently has any task
// waiting on a deadline, letting a host skip arming its timer interrupt
// entirely when every task is either running or waiting with no
// deadline (Sleep/Delay-forever, or Wait(cond) with no timeout) — the
// "tickless" half of this package's tickless-capable design.
func (s *Scheduler[T]) TickRequired() bool {
	s.irqMu.Lock()
	defer s.irqMu.Unlock()
	s.isr.recomputeNextWake(s.tasks)
	s.isr.mu.Lock()
	defer s.isr.mu.Unlock()
	return s.isr.nextWakeValid
}

// CurrentTime returns the scheduler's current tick count.
func (s *Scheduler[T]) CurrentTime() T {
	return s.isr.now()
}
