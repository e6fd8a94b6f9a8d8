package irq

import "testing"

type fakeHost struct {
	enabled bool
}

func (h *fakeHost) SetInterruptsEnabled(enabled bool) bool {
	prev := h.enabled
	h.enabled = enabled
	return prev
}

func (h *fakeHost) InterruptsEnabled() bool {
	return h.enabled
}

func TestDisableRestoresPreviousState(t *testing.T) {
	h := &fakeHost{enabled: true}

	s := Disable(h)
	if h.enabled {
		t.Fatal("Disable should have cleared the interrupt flag")
	}
	s.Restore()
	if !h.enabled {
		t.Fatal("Restore should have reinstated the previous (enabled) state")
	}
}

func TestEnableRestoresPreviousState(t *testing.T) {
	h := &fakeHost{enabled: false}

	s := Enable(h)
	if !h.enabled {
		t.Fatal("Enable should have set the interrupt flag")
	}
	s.Restore()
	if h.enabled {
		t.Fatal("Restore should have reinstated the previous (disabled) state")
	}
}

func TestSnapshotThenSet(t *testing.T) {
	h := &fakeHost{enabled: true}

	s := Snapshot(h)
	if !h.enabled {
		t.Fatal("Snapshot must not modify the flag")
	}
	s.Set(false)
	if h.enabled {
		t.Fatal("Set(false) should have disabled interrupts")
	}
	s.Restore()
	if !h.enabled {
		t.Fatal("Restore should reinstate the snapshotted (enabled) state")
	}
}

func TestSequentialScopesRestore(t *testing.T) {
	h := &fakeHost{enabled: true}

	outer := Disable(h)
	outer.Restore() // must fully vacate the scope before re-entering

	inner := Disable(h)
	inner.Restore()

	if !h.enabled {
		t.Fatal("expected interrupts enabled after both scopes restored")
	}
}

func TestDoubleSnapshotPanics(t *testing.T) {
	h := &fakeHost{enabled: true}

	s := Disable(h)
	defer s.Restore()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double snapshot")
		}
	}()
	_ = Disable(h)
}

func TestRestoreUnarmedPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic restoring an unarmed State")
		}
	}()
	var zero State
	zero.Restore()
}
