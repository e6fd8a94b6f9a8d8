package sched

import "testing"

type fakeHost struct{}

func (fakeHost) SetInterruptsEnabled(bool) bool { return true }
func (fakeHost) InterruptsEnabled() bool        { return true }
func (fakeHost) Sleep()                         {}
func (fakeHost) StackOverflow(err error)        { panic(err) }

func TestConfigValidateRejectsNilHost(t *testing.T) {
	cfg := Config[uint32]{Tasks: []TaskDef[uint32]{{Run: func() {}}}, TicksPeriod: Period{Num: 1, Den: 1}}
	if err := cfg.validate(); err != ErrNilHost {
		t.Fatalf("validate() = %v, want ErrNilHost", err)
	}
}

func TestConfigValidateRejectsNoTasks(t *testing.T) {
	cfg := Config[uint32]{Host: fakeHost{}, TicksPeriod: Period{Num: 1, Den: 1}}
	if err := cfg.validate(); err != ErrNoTasks {
		t.Fatalf("validate() = %v, want ErrNoTasks", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	if _, err := New[uint32](Config[uint32]{}); err == nil {
		t.Fatal("New() with zero-value Config should fail")
	}
}

func TestNewBuildsRoundRobinRing(t *testing.T) {
	cfg := Config[uint32]{
		Host:        fakeHost{},
		TicksPeriod: Period{Num: 1, Den: 1000},
		Tasks: []TaskDef[uint32]{
			{Run: func() {}},
			{Run: func() {}},
			{Run: func() {}},
		},
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.tasks[0].next != s.tasks[1] || s.tasks[1].next != s.tasks[2] || s.tasks[2].next != s.tasks[0] {
		t.Fatal("task ring is not wired round robin")
	}
}
