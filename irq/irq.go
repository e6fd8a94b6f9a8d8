// Package irq provides a scoped helper for the global interrupt-enable
// flag, mirroring the IntState RAII guard the embedded scheduler this
// package backs is derived from.
//
// Go has no destructors, so the "guaranteed restore on every exit path"
// contract becomes: construct a State, defer its Restore, and do not let
// the deferred call be skipped by an early return — including returns
// that pass through a task context switch. Restore always writes back
// whatever the flag was when the State was created, which is exactly
// what the original's destructor did.
package irq

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDoubleSnapshot is the panic value used when a scope's interrupt
// state is snapshotted twice before the first snapshot's Restore runs,
// matching the source's fatal abort on the same condition.
var ErrDoubleSnapshot = errors.New("irq: double snapshot of interrupt state")

// ErrUnarmedRestore is the panic value used when Restore is called on a
// State that was never returned by Disable, Enable, or Snapshot.
var ErrUnarmedRestore = errors.New("irq: restore called on an unarmed state")

// Host is the subset of host-provided primitives this package needs.
type Host interface {
	// SetInterruptsEnabled atomically sets the global interrupt-enable
	// flag and returns its previous value.
	SetInterruptsEnabled(enabled bool) (prev bool)
	// InterruptsEnabled reads the current flag without modifying it.
	InterruptsEnabled() bool
}

// State is a scoped snapshot of the interrupt-enable flag. The zero value
// is not usable; construct one with Disable, Enable, or Snapshot.
//
// A single State must not be snapshotted twice: calling Disable/Enable/
// Snapshot again on the same logical scope before the first State's
// Restore has run is a caller bug and panics, matching the source's
// "fatal abort on double-snapshot" behavior.
type State struct {
	host    Host
	prev    bool
	armed   bool
	scope   *scope
}

// scope tracks whether a given Host currently has a live, unrestored
// State outstanding, so that a second snapshot on the same host before
// the first is restored panics instead of silently clobbering the
// earlier snapshot's restore value.
type scope struct {
	held bool
}

// scopes associates a Host with its outstanding-snapshot tracker. Hosts
// are expected to be long-lived singletons (one per Scheduler), so a
// small map keyed by interface identity is cheap and avoids requiring
// Host implementations to embed any bookkeeping of their own.
var (
	scopesMu sync.Mutex
	scopes   = map[Host]*scope{}
)

func scopeFor(h Host) *scope {
	scopesMu.Lock()
	defer scopesMu.Unlock()
	s, ok := scopes[h]
	if !ok {
		s = &scope{}
		scopes[h] = s
	}
	return s
}

// Disable snapshots the current interrupt-enable flag and disables
// interrupts, mirroring IntState(false).
func Disable(h Host) State {
	return newState(h, false, true)
}

// Enable snapshots the current interrupt-enable flag and enables
// interrupts, mirroring IntState(true).
func Enable(h Host) State {
	return newState(h, true, true)
}

// Snapshot records the current interrupt-enable flag without changing
// it, mirroring the no-argument IntState() constructor. The caller is
// expected to later call Set on the returned State to make an explicit
// enable/disable decision before it goes out of scope.
func Snapshot(h Host) State {
	return newState(h, false, false)
}

func newState(h Host, en bool, set bool) State {
	sc := scopeFor(h)
	if sc.held {
		panic(ErrDoubleSnapshot)
	}
	sc.held = true
	var prev bool
	if set {
		prev = h.SetInterruptsEnabled(en)
	} else {
		prev = h.InterruptsEnabled()
	}
	return State{host: h, prev: prev, armed: true, scope: sc}
}

// Set explicitly enables or disables interrupts from within an
// already-snapshotted scope. Legal to call any number of times; only the
// original snapshot's value is restored.
func (s State) Set(enabled bool) {
	s.host.SetInterruptsEnabled(enabled)
}

// Restore writes back the interrupt-enable flag captured at snapshot
// time. Callers must defer this immediately after constructing a State.
// Restoring a zero-value State (never obtained from Disable/Enable/
// Snapshot) panics.
func (s State) Restore() {
	if !s.armed {
		panic(ErrUnarmedRestore)
	}
	s.host.SetInterruptsEnabled(s.prev)
	s.scope.held = false
}

// AssertDisabled panics if h currently reports interrupts enabled. It is
// the runtime check backing invariant P5 (ISR-shared/TCB state is only
// ever touched, outside of Tick, with interrupts disabled): call it from
// inside an active Disable scope, right before mutating such state, so a
// future call site that forgets to wrap itself in Disable is caught
// immediately instead of silently racing with Tick.
func AssertDisabled(h Host) {
	if h.InterruptsEnabled() {
		panic("irq: ISR-shared state accessed with interrupts enabled")
	}
}

// String supports %v/%s for diagnostics and test failure messages.
func (s State) String() string {
	if !s.armed {
		return "irq.State(unarmed)"
	}
	return fmt.Sprintf("irq.State(prev=%v)", s.prev)
}
