package sched

import (
	"github.com/toasterllc/toastbox-sched/guard"
	"github.com/toasterllc/toastbox-sched/irq"
)

// Host is the full set of platform primitives a Scheduler needs: the
// interrupt-enable flag (embedded from irq.Host so package irq can be
// used standalone against the same type), a low-power wait primitive
// invoked when no task is runnable, and a stack-overflow reporter that
// must not return.
type Host interface {
	irq.Host
	// Sleep is invoked when Run finds no runnable task; it should put the
	// CPU into its lowest-latency wait state and return as soon as
	// another interrupt (in practice, the next Tick) might have changed
	// runnability.
	Sleep()
	// StackOverflow is invoked by a tripped stack guard with the concrete
	// *StackOverflowError describing which task and what the corrupted
	// guard region held. It must not return; a Host that does return lets
	// Check fall through, which will very likely corrupt scheduler state
	// on the next switch. The parameter is typed error (rather than the
	// concrete *StackOverflowError) purely so host implementations outside
	// this module don't need to import it to satisfy the interface.
	StackOverflow(err error)
}

// task is one task's control block. Its fields are only ever touched by
// the single currently-running task goroutine or, for hasDeadline/
// runnable, by Tick under the scheduler's irqMu — never directly by any
// other task.
type task[T Tick] struct {
	id           TaskID
	run          TaskFn
	runnable     RunnableFn
	hasDeadline  bool
	wakeDeadline T
	resume       chan struct{} // closed by the switcher to wake this task
	stackGuard   guard.Guard
	next         *task[T]

	started      bool
	done         bool
	guardTripped bool // set once Host.StackOverflow has fired for this task, so a retry after recover doesn't re-report it
}

// newTaskTable builds the fixed task ring from defs, wiring each task's
// next pointer to the next task in round-robin order (wrapping back to
// task 0), matching the embedded original's single-owner circular list
// built once at construction.
func newTaskTable[T Tick](defs []TaskDef[T], guardWords int) []*task[T] {
	tasks := make([]*task[T], len(defs))
	for i, d := range defs {
		tasks[i] = &task[T]{
			id:         TaskID(i),
			run:        d.Run,
			runnable:   RunnableAlways,
			resume:     make(chan struct{}),
			stackGuard: guard.New(d.Stack, guardWords),
		}
	}
	for i, t := range tasks {
		t.next = tasks[(i+1)%len(tasks)]
	}
	return tasks
}

// Validate confirms id addresses a task of s. Panics (wrapping
// ErrInvalidTask) on an out-of-range id; callers in task code have no
// recovery path for a bad TaskID, the same way the embedded original has
// no recovery path for an invalid compile-time task reference.
func (s *Scheduler[T]) Validate(id TaskID) {
	if int(id) < 0 || int(id) >= len(s.tasks) {
		panic(invalidTaskErr(id, len(s.tasks)))
	}
}

func (s *Scheduler[T]) taskByID(id TaskID) *task[T] {
	s.Validate(id)
	return s.tasks[id]
}
