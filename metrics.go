package sched

import "sync/atomic"

// Metrics holds lock-free counters a Scheduler updates as it runs. All
// fields are safe to read concurrently with Run/Tick via Scheduler.Metrics.
type Metrics struct {
	// Switches counts completed taskSwap hand-offs, including the no-op
	// Yield-to-self case.
	Switches atomic.Uint64
	// Ticks counts calls to Tick.
	Ticks atomic.Uint64
	// Wakes counts tasks transitioned from waiting to runnable by Tick
	// firing their deadline; Start does not count here.
	Wakes atomic.Uint64
	// GuardChecks counts stack-guard checks performed before a switch.
	GuardChecks atomic.Uint64
	// Overflows counts guard checks that found a corrupted sentinel word
	// and invoked Host.StackOverflow.
	Overflows atomic.Uint64
}

// Snapshot is a point-in-time copy of Metrics, safe to pass by value
// (unlike Metrics itself, whose atomic fields must not be copied while
// live).
type Snapshot struct {
	Switches    uint64
	Ticks       uint64
	Wakes       uint64
	GuardChecks uint64
	Overflows   uint64
}

func (m *Metrics) snapshot() Snapshot {
	return Snapshot{
		Switches:    m.Switches.Load(),
		Ticks:       m.Ticks.Load(),
		Wakes:       m.Wakes.Load(),
		GuardChecks: m.GuardChecks.Load(),
		Overflows:   m.Overflows.Load(),
	}
}
