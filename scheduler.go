package sched

import (
	"sync"
	"sync/atomic"

	"github.com/toasterllc/toastbox-sched/guard"
	"github.com/toasterllc/toastbox-sched/internal/ring"
	"github.com/toasterllc/toastbox-sched/irq"
)

// Scheduler is a cooperative, tickless-capable scheduler over a fixed set
// of tasks, built once by New and driven by one goroutine calling Run
// plus, concurrently, whatever calls Tick.
type Scheduler[T Tick] struct {
	host            Host
	ticksPeriod     Period
	strictDeadlines bool

	tasks    []*task[T]
	current  *task[T]
	hostTask *task[T] // synthetic, never part of the round-robin ring; Run's own "task"

	isr            isrState[T]
	irqMu          sync.Mutex // serializes task-table mutation outside Tick
	interruptGuard guard.Guard

	logger  Logger
	metrics Metrics
	trace   *ring.Buffer[TraceEntry]

	running   atomic.Bool
	runnerDie chan struct{}

	ctxMu  sync.Mutex
	ctxVal []any
}

// TraceEntry is one entry in the bounded scheduler-event trace exposed by
// Events(). Kept intentionally small (two words plus a string) so that a
// TraceLen-sized ring of them stays cheap even on a constrained host.
type TraceEntry struct {
	Tick     uint64
	Task     TaskID
	Category string
}

// New builds a Scheduler from cfg. The task table, stack guards, and
// trace buffer are all allocated here, once. The steady-state path is not
// allocation-free: every task switch allocates a fresh resume channel
// for the outgoing task (see taskSwap).
func New[T Tick](cfg Config[T]) (*Scheduler[T], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = NewNoOpLogger()
	}

	s := &Scheduler[T]{
		host:            cfg.Host,
		ticksPeriod:     cfg.TicksPeriod,
		strictDeadlines: cfg.StrictDeadlines,
		tasks:           newTaskTable(cfg.Tasks, cfg.StackGuardCount),
		interruptGuard:  guard.New(cfg.InterruptStack, cfg.StackGuardCount),
		logger:          logger,
		runnerDie:       make(chan struct{}),
	}
	s.ctxVal = make([]any, len(s.tasks))
	if cfg.TraceLen > 0 {
		s.trace = ring.New[TraceEntry](cfg.TraceLen)
	}
	for _, t := range s.tasks {
		t.stackGuard.Fill()
	}
	s.interruptGuard.Fill()
	s.hostTask = &task[T]{id: -1, runnable: RunnableNever, resume: make(chan struct{})}
	s.current = s.hostTask
	return s, nil
}

// Metrics returns a point-in-time snapshot of the scheduler's counters.
func (s *Scheduler[T]) Metrics() Snapshot { return s.metrics.snapshot() }

// Events returns the retained scheduler-event trace, oldest first, or
// nil if Config.TraceLen was 0.
func (s *Scheduler[T]) Events() []TraceEntry {
	if s.trace == nil {
		return nil
	}
	return s.trace.Slice()
}

func (s *Scheduler[T]) traceEvent(category string, id TaskID) {
	if s.trace == nil {
		return
	}
	s.trace.Push(TraceEntry{Tick: s.isr.currentTime.Load(), Task: id, Category: category})
}

// Current returns the TaskID of the task presently running. Valid only
// when called from task context.
func (s *Scheduler[T]) Current() TaskID { return s.current.id }

// Running reports whether the task addressed by id has been started and
// has not yet returned.
func (s *Scheduler[T]) Running(id TaskID) bool {
	t := s.taskByID(id)
	s.irqMu.Lock()
	defer s.irqMu.Unlock()
	return t.started && !t.done
}

// Ctx returns the per-task user context value last set by SetCtx for the
// currently running task, or nil if never set. It is the Go replacement
// for the embedded original's opaque void*-sized scratch word per task.
func (s *Scheduler[T]) Ctx() any {
	s.ctxMu.Lock()
	defer s.ctxMu.Unlock()
	return s.ctxVal[s.current.id]
}

// SetCtx sets the per-task user context value for the currently running
// task.
func (s *Scheduler[T]) SetCtx(v any) {
	s.ctxMu.Lock()
	defer s.ctxMu.Unlock()
	s.ctxVal[s.current.id] = v
}

// Start launches task id's trampoline goroutine (first call) or marks a
// previously Stop'd task runnable again without relaunching it (later
// calls on a task whose goroutine is still parked). Starting an already-
// running task is a no-op.
func (s *Scheduler[T]) Start(id TaskID) {
	t := s.taskByID(id)

	s.irqMu.Lock()
	restore := irq.Disable(s.host)
	irq.AssertDisabled(s.host)
	alreadyStarted := t.started
	t.started = true
	t.done = false
	t.runnable = RunnableAlways
	t.hasDeadline = false
	restore.Restore()
	s.irqMu.Unlock()

	s.logf(LevelInfo, "lifecycle", id, true, nil, "task started")
	s.traceEvent("start", id)

	if !alreadyStarted {
		go s.runTrampoline(t)
	} else {
		close(t.resume)
		t.resume = make(chan struct{})
	}
}

// Stop marks task id as not runnable. A stopped task is skipped by the
// round-robin search in Run/swapAway until a later Start; it is not
// re-entered mid-function, matching the original's restriction that Stop
// only ever targets a task other than the caller (stopping yourself is a
// caller bug, since there would be nothing left to resume you).
func (s *Scheduler[T]) Stop(id TaskID) {
	t := s.taskByID(id)
	s.irqMu.Lock()
	restore := irq.Disable(s.host)
	irq.AssertDisabled(s.host)
	t.runnable = RunnableNever
	t.hasDeadline = false
	restore.Restore()
	s.irqMu.Unlock()
	s.logf(LevelInfo, "lifecycle", id, true, nil, "task stopped")
	s.traceEvent("stop", id)
}

// Abort stops Run from outside task context, causing it to return nil
// the next time it checks for shutdown (at most one pickNext scan later).
// Intended for tests and hostsim demos; production embedders normally
// never return from Run at all.
func (s *Scheduler[T]) Abort() {
	s.running.Store(false)
	close(s.runnerDie)
}

// isRunnable reports whether t may currently be picked to run, taking
// both its sticky RunnableFn flag and, for tasks waiting on a caller
// condition via Wait(cond), the condition itself into account.
func (t *task[T]) isRunnable() bool {
	return t.runnable != nil && t.runnable()
}

// pickNext performs the fixed round-robin scan spec'd for the task
// table: starting just after the current task, the first runnable task
// found is returned; if none are runnable, Run falls back to Host.Sleep
// and rescans, matching the "tickless" low-power idle loop.
func (s *Scheduler[T]) pickNext() *task[T] {
	if s.current == s.hostTask {
		// Before the very first switch, current isn't part of the ring at
		// all; scan the task table directly rather than following next
		// pointers that only ever link real tasks to each other.
		for _, t := range s.tasks {
			if t.isRunnable() {
				return t
			}
		}
		return nil
	}
	start := s.current
	t := start.next
	for t != start {
		if t.isRunnable() {
			return t
		}
		t = t.next
	}
	if start.isRunnable() {
		return start
	}
	return nil
}

// Run is the scheduler's main loop. It launches every task not yet
// explicitly Start'd, performs the one hand-off from Run's own goroutine
// into the task ring, and then blocks forever: ordinary operation never
// returns to Run's goroutine (hostTask is never part of the round-robin
// ring tasks switch between), so Run itself never returns either, except
// after Abort.
func (s *Scheduler[T]) Run() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	s.logf(LevelInfo, "lifecycle", 0, false, nil, "scheduler run starting")

	// Launch every task that hasn't been explicitly Start'd yet; the
	// embedded original begins all compile-time-declared tasks running
	// unless the embedder calls Stop from within main().
	for _, t := range s.tasks {
		s.irqMu.Lock()
		started := t.started
		s.irqMu.Unlock()
		if !started {
			s.Start(t.id)
		}
	}

	for {
		select {
		case <-s.runnerDie:
			return nil
		default:
		}
		next := s.pickNext()
		if next == nil {
			s.host.Sleep()
			continue
		}
		s.hostSwapIn(next)
		return nil
	}
}

// hostSwapIn performs the one-time switch from Run's own goroutine into
// next, and blocks until either something switches back into hostTask
// (never happens in ordinary operation, since hostTask is outside the
// ring) or Abort closes runnerDie.
func (s *Scheduler[T]) hostSwapIn(next *task[T]) {
	prev := s.hostTask
	s.current = next
	myResume := make(chan struct{})
	prev.resume = myResume
	close(next.resume)
	s.metrics.Switches.Add(1)
	select {
	case <-myResume:
	case <-s.runnerDie:
	}
}

// swapAway is called from a task's own goroutine, at every suspension
// point, to hand off to whatever the round-robin scan picks next. If
// nothing else is runnable and the caller itself no longer is either, its
// goroutine spins on Host.Sleep — playing the idle loop itself — until
// pickNext finds a candidate, the same tickless-idle behavior Run uses
// before the very first switch.
func (s *Scheduler[T]) swapAway(self *task[T]) {
	next := s.pickNext()
	for next == nil {
		select {
		case <-s.runnerDie:
			return
		default:
		}
		s.host.Sleep()
		next = s.pickNext()
	}
	s.taskSwap(next)
}

// Yield cooperatively relinquishes the CPU, allowing any other runnable
// task a turn, and resumes once the round robin comes back around.
func (s *Scheduler[T]) Yield() {
	s.setWait(RunnableAlways, 0, false)
	s.swapAway(s.current)
}

// Wait blocks the current task until cond reports true, with no timeout.
// cond is re-evaluated by every round-robin scan (each time some task
// suspends, and on each idle-loop wakeup from Host.Sleep). If cond is
// already true, Wait returns immediately without switching away.
func (s *Scheduler[T]) Wait(cond RunnableFn) {
	if cond == nil {
		cond = RunnableAlways
	}
	if cond() {
		return
	}
	s.setWait(cond, 0, false)
	s.swapAway(s.current)
}

// WaitTicks blocks the current task until cond reports true or ticks
// Tick calls have elapsed, whichever comes first, returning true if cond
// was what woke it. A nil cond behaves as Sleep(ticks).
func (s *Scheduler[T]) WaitTicks(ticks T, cond RunnableFn) bool {
	if cond == nil {
		cond = RunnableNever
	}
	if cond() {
		return true
	}
	t := s.current
	deadline := s.isr.now() + ticks
	s.setWait(cond, deadline, true)
	s.swapAway(t)
	return s.wokenByCond(t)
}

// WaitDeadline blocks the current task until cond reports true or the
// scheduler's tick count reaches deadline (in wrap-safe comparison),
// whichever comes first. If Config.StrictDeadlines is set and deadline
// already lies outside the representable half-range window ahead of the
// current time, it returns ErrDeadlineOutOfWindow instead of blocking
// (undefined behavior, left to the caller, otherwise).
func (s *Scheduler[T]) WaitDeadline(deadline T, cond RunnableFn) (bool, error) {
	if s.strictDeadlines && !before(s.isr.now(), deadline) {
		return false, ErrDeadlineOutOfWindow
	}
	if cond == nil {
		cond = RunnableNever
	}
	if cond() {
		return true, nil
	}
	t := s.current
	s.setWait(cond, deadline, true)
	s.swapAway(t)
	return s.wokenByCond(t), nil
}

// wokenByCond reports, for a task just resumed from a deadline-bearing
// wait, whether it was woken because cond became true rather than
// because its deadline was reached: Tick clears hasDeadline the moment
// it fires a timeout (see Tick), leaving it set in every other wake path.
// Snapshotting the field under irqMu, instead of re-invoking cond after
// the fact, matches spec.md §4.F's documented test ("wakeDeadline empty
// ⇒ timed out") and avoids calling a caller-supplied cond a second,
// unnecessary time — cond is only specified to be pure with respect to
// scheduler state, not idempotent or cheap to call twice.
func (s *Scheduler[T]) wokenByCond(t *task[T]) bool {
	s.irqMu.Lock()
	defer s.irqMu.Unlock()
	return t.hasDeadline
}

// Sleep blocks the current task for exactly ticks Tick calls, with no
// wake condition.
func (s *Scheduler[T]) Sleep(ticks T) {
	s.WaitTicks(ticks, nil)
}

// Delay blocks the current task for at least us microseconds, converted
// to ticks via the scheduler's configured TicksPeriod, rounding up, plus
// one tick for the part of the current tick period that has already
// elapsed. Panics if that tick count does not fit the tick type.
func (s *Scheduler[T]) Delay(us uint64) {
	ticks := s.ticksPeriod.Us(us)
	var maxTicks T
	maxTicks--
	if ticks >= uint64(maxTicks) {
		panic("sched: Delay duration overflows the tick type")
	}
	s.Sleep(T(ticks) + 1)
}

// setWait marks the current task waiting: runnable becomes cond (so
// pickNext's scan itself re-evaluates it), and if hasDeadline is set the
// tick engine additionally wakes it unconditionally once the deadline is
// reached, even if cond never becomes true, exactly matching the
// original's timed-wait semantics.
func (s *Scheduler[T]) setWait(cond RunnableFn, deadline T, hasDeadline bool) {
	t := s.current
	s.irqMu.Lock()
	restore := irq.Disable(s.host)
	irq.AssertDisabled(s.host)
	t.runnable = cond
	t.hasDeadline = hasDeadline
	t.wakeDeadline = deadline
	restore.Restore()
	s.irqMu.Unlock()
	if hasDeadline {
		s.isr.setNextWake(deadline, true)
	}
	s.traceEvent("wait", t.id)
}
