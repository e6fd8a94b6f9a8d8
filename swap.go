package sched

// taskSwap transfers control from the currently running task to next,
// blocking the caller's goroutine until it is next resumed. It is the
// sole context-switch primitive every suspension point (Yield, Wait,
// Sleep, WaitDeadline) and the trampoline funnel through.
//
// The embedded original saves/restores a raw stack pointer under
// interrupts disabled; Go has nothing equivalent to hand to a generic
// goroutine, so the hand-off is expressed as a pair of single-use
// channels: the outgoing task installs a fresh "resume" channel of its
// own, wakes the incoming task by closing the incoming task's resume
// channel, and then does nothing but block on its own, so that only one
// task goroutine runs scheduler or task code at a time, the same
// single-logical-thread invariant P1 the original enforces by
// construction.
func (s *Scheduler[T]) taskSwap(next *task[T]) {
	prev := s.current
	s.checkGuard(prev)

	if prev == next {
		s.metrics.Switches.Add(1)
		return // Yield() with nothing else runnable: a no-op round trip
	}

	s.current = next
	s.logf(LevelDebug, "switch", next.id, true, nil, "switching from task %d", prev.id)

	myResume := make(chan struct{})
	prev.resume = myResume
	close(next.resume)

	s.metrics.Switches.Add(1)
	<-myResume
}

// checkGuard runs t's stack guard check (and the shared interrupt-stack
// guard, if configured), invoking Host.StackOverflow on the first
// corrupted word found. Called before every switch away from t, mirroring
// the original's "check on every context switch, not just at points of
// suspicion" policy.
//
// A task whose guard already tripped once is skipped on later calls:
// StackOverflow is documented to never return, but hostsim's test double
// panics instead of resetting the MCU, and runTrampoline recovers that
// panic so the rest of the scheduler survives it. Re-checking the same
// permanently corrupted guard on the retired task's way out would just
// fire the host callback a second time for the same event.
func (s *Scheduler[T]) checkGuard(t *task[T]) {
	if t.guardTripped {
		return
	}
	s.metrics.GuardChecks.Add(1)
	overflow := func() {
		t.guardTripped = true
		s.metrics.Overflows.Add(1)
		s.logf(LevelError, "guard", t.id, true, nil, "stack guard corrupted")
		s.host.StackOverflow(&StackOverflowError{Task: t.id, Words: t.stackGuard.Words()})
	}
	t.stackGuard.Check(overflow)
	if s.interruptGuard.Len() > 0 {
		s.interruptGuard.Check(func() {
			t.guardTripped = true
			s.metrics.Overflows.Add(1)
			s.logf(LevelError, "guard", t.id, true, nil, "interrupt stack guard corrupted")
			s.host.StackOverflow(&StackOverflowError{Task: t.id, Words: s.interruptGuard.Words()})
		})
	}
}

// runTrampoline is the goroutine body Start launches for a task. It
// blocks on the task's initial resume token, enables interrupts (the
// embedded original's tasks always begin running with interrupts
// enabled), runs the task body, and then performs the same swap-away
// sequence a suspension point would, permanently, since a task that
// returns never runs again.
//
// Unlike Start/Stop/setWait's narrow irq.Disable-guarded critical
// sections, this is a one-way fact about the task's starting state, not
// a scope with a matching restore point: the task's own body is free to
// run for an arbitrarily long time (even forever), so there is nothing
// for an irq.State held open across the whole call to meaningfully
// restore to. Flipping the host flag directly here, rather than going
// through irq.Enable, also keeps this call from colliding with the
// scoped Disable calls those three methods make while the task is
// running (an irq.State's scope must not outlive a single critical
// section, see irq.ErrDoubleSnapshot).
//
// Host.StackOverflow is documented to never return (on real hardware it
// resets the MCU); hostsim's implementation simulates that by panicking.
// A panic on a goroutine other than the one running Run would otherwise
// take the whole process down, which has no analogue in the embedded
// original (there, a reset is the only "rest of the system", whereas
// here every other task's goroutine is still alive). The recover below
// lets Run keep servicing the remaining tasks; the failed task itself
// never resumes.
func (s *Scheduler[T]) runTrampoline(t *task[T]) {
	<-t.resume

	s.host.SetInterruptsEnabled(true)
	defer func() {
		if r := recover(); r != nil {
			s.logf(LevelError, "lifecycle", t.id, true, nil, "task %d terminated fatally: %v", t.id, r)
			s.irqMu.Lock()
			t.done = true
			t.runnable = RunnableNever
			s.irqMu.Unlock()
			s.swapAway(t)
		}
	}()

	t.run()

	s.irqMu.Lock()
	t.done = true
	t.runnable = RunnableNever
	s.irqMu.Unlock()

	s.logf(LevelInfo, "lifecycle", t.id, true, nil, "task returned")

	s.swapAway(t)
	// swapAway returns here only after Abort (or if a later Start picks
	// this finished task again); the goroutine parks for good.
	select {}
}
