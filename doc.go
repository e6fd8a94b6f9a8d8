// Package sched implements a cooperative, tickless-capable, deterministic
// task scheduler for constrained targets, multiplexing a fixed,
// compile-time-known set of tasks onto a single logical thread of
// execution.
//
// # Architecture
//
// A [Scheduler] owns a fixed [task] table built once at [New] from the
// caller's [TaskDef] slice. Exactly one task is ever "current"; tasks
// cooperatively hand off control to each other by calling [Scheduler.Yield],
// [Scheduler.Wait], [Scheduler.Sleep], or by returning from their entry
// function. A simulated timer interrupt drives the wake-deadline engine
// via [Scheduler.Tick].
//
// Because Go provides no portable way to switch a raw machine stack, the
// context-switch primitive ([Scheduler] internals, see swap.go) is
// implemented as a goroutine hand-off: each task runs on its own
// goroutine, permanently parked on a resume token between switches, so
// that at any instant exactly one task goroutine is actually making
// progress — the same "single logical thread" guarantee the embedded
// original gets from switching a bare stack pointer under interrupts
// disabled.
//
// # Stack guards
//
// Each task (and, optionally, the interrupt stack) can be given a sentinel
// guard region (see package guard) checked before every context switch.
// Corruption invokes the host's StackOverflow primitive, which must not
// return.
//
// # Thread safety
//
// [Scheduler.Tick] is the one method meant to be called concurrently with
// task code — from whatever goroutine stands in for the hardware timer
// interrupt. All other exported methods are meant to be called from
// whichever task is currently running; calling them from any other
// goroutine is undefined, exactly as the embedded original restricts
// scheduler entry points to task context (or, for Tick, interrupt
// context).
//
// # Usage
//
//	cfg := sched.Config[uint32]{
//	    Host:            host,
//	    TicksPeriod:     sched.Period{Num: 1, Den: 1000}, // 1ms ticks
//	    StackGuardCount: 4,
//	    Tasks: []sched.TaskDef[uint32]{
//	        {Stack: make([]byte, 4096), Run: taskA},
//	        {Stack: make([]byte, 4096), Run: taskB},
//	    },
//	}
//	s, err := sched.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	s.Run() // never returns
package sched
