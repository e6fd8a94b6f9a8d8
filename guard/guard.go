// Package guard implements the stack-guard sentinel used to detect stack
// overflow at the extremum of a task's stack, and at the interrupt
// stack, mirroring the embedded scheduler's _StackGuard.
package guard

import "unsafe"

// Magic is the sentinel value written into every guard word. It matches
// the literal used by the original C++ scheduler (0xCAFEBABEBABECAFE),
// truncated to whatever width uintptr happens to be on the target.
const Magic = uintptr(0xCAFEBABEBABECAFE & uint64(^uintptr(0)))

// Guard is a contiguous run of pointer-sized sentinel words placed at a
// stack's extremum. A zero-length Guard (StackGuardCount == 0) disables
// the feature entirely: Fill and Check become no-ops that never touch
// memory, matching invariant B3.
type Guard struct {
	words []uintptr
}

// New carves a Guard of count pointer-sized words directly out of stack,
// at the low end for a growing-down stack (the convention this package
// assumes, matching every architecture spec.md names), or an empty Guard
// if count is 0.
//
// The supplied stack is not the goroutine's real execution stack (Go
// goroutine stacks are runtime-managed and not addressable); it is
// caller-owned accounting memory. words aliases stack's own backing
// array via unsafe.Slice, the same reinterpret-cast idiom used elsewhere
// in the corpus for viewing a []byte as a differently-typed window, so
// that a task that actually writes past the declared extent of its own
// TaskDef.Stack corrupts the same words Check reads back, rather than a
// disconnected copy.
func New(stack []byte, count int) Guard {
	wordSize := int(unsafe.Sizeof(uintptr(0)))
	if count <= 0 || len(stack) < count*wordSize {
		return Guard{}
	}
	p := (*uintptr)(unsafe.Pointer(unsafe.SliceData(stack)))
	return Guard{words: unsafe.Slice(p, count)}
}

// Len reports the number of guard words.
func (g Guard) Len() int { return len(g.words) }

// Words returns a snapshot copy of the guard region's current contents,
// for a caller that needs to report what a tripped guard held (e.g. to
// build a diagnostic error) without handing out the live, aliased slice.
func (g Guard) Words() []uintptr {
	return append([]uintptr(nil), g.words...)
}

// Fill writes Magic into every guard word. Called once per task (and
// once for the interrupt stack, if configured) at scheduler start.
func (g Guard) Fill() {
	for i := range g.words {
		g.words[i] = Magic
	}
}

// Corrupt overwrites a single guard word with an arbitrary value,
// provided only so tests can deliberately trip Check; production code
// has no legitimate reason to call this.
func (g Guard) Corrupt(index uintptr, value uintptr) {
	g.words[index] = value
}

// Check scans every guard word and invokes overflow if any word no
// longer holds Magic. overflow is expected never to return (it is the
// Host.StackOverflow primitive); Check does not itself loop or recover,
// so a test overflow implementation that does return will simply let
// Check fall through having reported the first (and only the first)
// corrupted word.
func (g Guard) Check(overflow func()) {
	for _, w := range g.words {
		if w != Magic {
			overflow()
			return
		}
	}
}
