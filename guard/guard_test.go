package guard

import "testing"

func TestFillThenCheckPasses(t *testing.T) {
	stack := make([]byte, 4*8)
	g := New(stack, 4)
	g.Fill()

	called := false
	g.Check(func() { called = true })
	if called {
		t.Fatal("Check should not invoke overflow on an intact guard")
	}
}

func TestCorruptedGuardInvokesOverflow(t *testing.T) {
	stack := make([]byte, 4*8)
	g := New(stack, 4)
	g.Fill()
	g.Corrupt(2, 0)

	called := false
	g.Check(func() { called = true })
	if !called {
		t.Fatal("Check should invoke overflow when a guard word is corrupted")
	}
}

func TestZeroCountDisablesGuard(t *testing.T) {
	stack := make([]byte, 0)
	g := New(stack, 0)
	if g.Len() != 0 {
		t.Fatalf("expected zero-length guard, got %d", g.Len())
	}
	// Fill/Check must be safe no-ops; Check must never call overflow.
	g.Fill()
	g.Check(func() { t.Fatal("overflow must not be called when guards are disabled") })
}

func TestUndersizedStackDisablesGuard(t *testing.T) {
	// Not enough bytes for the requested word count: New must degrade to
	// a disabled guard rather than panic or read out of bounds.
	g := New(make([]byte, 3), 4)
	if g.Len() != 0 {
		t.Fatalf("expected disabled guard for undersized stack, got len %d", g.Len())
	}
}

func TestGuardAliasesCallerStack(t *testing.T) {
	// The whole point of carving words out of stack rather than a
	// disconnected copy: a write through the original []byte, the way a
	// real overflowing task would clobber its own stack extremum, must
	// be visible to Check without going through Corrupt at all.
	stack := make([]byte, 4*8)
	g := New(stack, 4)
	g.Fill()

	for i := range stack {
		stack[i] = 0xAA
	}

	called := false
	g.Check(func() { called = true })
	if !called {
		t.Fatal("a write through the original stack buffer should trip Check")
	}
}
