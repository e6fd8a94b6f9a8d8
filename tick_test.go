package sched

import "testing"

func TestBeforeWrapSafeComparison(t *testing.T) {
	cases := []struct {
		a, b uint16
		want bool
	}{
		{0, 1, true},
		{1, 0, false},
		{0, 0, false},
		// Just inside the half-range window: b is "ahead" of a.
		{0, 0x7FFF, true},
		// Exactly at the half-range boundary (delta == 2^(W-1)): spec
		// boundary B1 classifies this as still future/before, matching
		// the original's deadline-currentTime-1 > TicksMax/2 test, which
		// is false (not past) at this exact delta.
		{0, 0x8000, true},
		// One past the boundary: now classified as not before (the
		// window has wrapped to the "past" side).
		{0, 0x8001, false},
		// Wraparound: a huge value is "before" a small one that is really
		// just ahead of it modulo 2^16.
		{0xFFFF, 0, true},
	}
	for _, c := range cases {
		if got := before(c.a, c.b); got != c.want {
			t.Errorf("before(%#x, %#x) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestReachedBoundary(t *testing.T) {
	if !reached[uint16](10, 10) {
		t.Error("reached(10, 10) should be true: deadline equals now")
	}
	if !reached[uint16](11, 10) {
		t.Error("reached(11, 10) should be true: now has passed deadline")
	}
	if reached[uint16](9, 10) {
		t.Error("reached(9, 10) should be false: deadline still ahead")
	}
}

func TestPeriodUsMsCeilDivision(t *testing.T) {
	p := Period{Num: 1, Den: 1000} // 1ms ticks
	if got := p.Ms(1); got != 1 {
		t.Errorf("Ms(1) = %d, want 1", got)
	}
	if got := p.Us(1500); got != 2 {
		t.Errorf("Us(1500) = %d, want 2 (ceiling division)", got)
	}
	if got := p.Us(1000); got != 1 {
		t.Errorf("Us(1000) = %d, want 1", got)
	}
}

func TestPeriodZeroDenPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for zero Den")
		}
	}()
	Period{}.Ms(1)
}

func TestHalfRange(t *testing.T) {
	// halfRange is TicksMax/2 + 2, one more than 2^(W-1), so that
	// before's delta < halfRange test still classifies a delta of
	// exactly 2^(W-1) as future (boundary B1).
	if got := halfRange[uint16](); got != 0x8001 {
		t.Errorf("halfRange[uint16]() = %#x, want 0x8001", got)
	}
	if got := halfRange[uint32](); got != 0x80000001 {
		t.Errorf("halfRange[uint32]() = %#x, want 0x80000001", got)
	}
}
