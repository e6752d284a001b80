package sched

import (
	"testing"

	"corekernel/internal/arch/arm64"
)

func init() {
	// The real switch stub is assembly that ERETs into the restored
	// process; unit tests only exercise the scheduler's bookkeeping.
	switchFn = func(from, to *arm64.Context) {}
}

func TestSpawnAssignsIncreasingPIDs(t *testing.T) {
	s := New()
	p1, err := s.Spawn()
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	p2, err := s.Spawn()
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if p2.PID <= p1.PID {
		t.Fatalf("expected increasing PIDs, got %d then %d", p1.PID, p2.PID)
	}
	if p1.State != StateReady || p2.State != StateReady {
		t.Fatal("newly spawned processes should be READY")
	}
}

func TestSpawnExhaustsSlots(t *testing.T) {
	s := New()
	for i := 0; i < MaxProcesses; i++ {
		if _, err := s.Spawn(); err != nil {
			t.Fatalf("Spawn %d: %v", i, err)
		}
	}
	if _, err := s.Spawn(); err == nil {
		t.Fatal("expected error once process table is full")
	}
}

func TestSpawnReclaimsStoppedSlotWhenFull(t *testing.T) {
	s := New()
	var firstPID uint16
	for i := 0; i < MaxProcesses; i++ {
		p, err := s.Spawn()
		if err != nil {
			t.Fatalf("Spawn %d: %v", i, err)
		}
		if i == 0 {
			firstPID = p.PID
		}
	}

	s.Stop(firstPID, 0)

	p, err := s.Spawn()
	if err != nil {
		t.Fatalf("Spawn after stopping one process should reclaim its slot, got: %v", err)
	}
	if p.PID == firstPID {
		t.Fatal("reclaimed slot should get a fresh PID, not reuse the old one")
	}
	if s.Find(firstPID) != nil {
		t.Fatal("the stopped process should have been reaped, not merely left STOPPED")
	}
}

func TestSwitchRoundRobin(t *testing.T) {
	s := New()
	for i := 0; i < 3; i++ {
		if _, err := s.Spawn(); err != nil {
			t.Fatalf("Spawn: %v", err)
		}
	}

	seen := make(map[uint16]bool)
	for i := 0; i < 3; i++ {
		if err := s.Switch(); err != nil {
			t.Fatalf("Switch: %v", err)
		}
		seen[s.Current().PID] = true
		s.Current().State = StateReady
	}
	if len(seen) != 3 {
		t.Fatalf("round robin visited %d distinct processes, want 3", len(seen))
	}
}

func TestSwitchWithNoReadyProcessFails(t *testing.T) {
	s := New()
	if err := s.Switch(); err == nil {
		t.Fatal("expected ErrNoReadyProcess with an empty process table")
	}
}

func TestSleepAndWakeExpired(t *testing.T) {
	s := New()
	if _, err := s.Spawn(); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := s.Switch(); err != nil {
		t.Fatalf("Switch: %v", err)
	}
	pid := s.Current().PID

	s.Sleep(1000)
	if s.Current().State != StateBlocked {
		t.Fatal("expected current process to be BLOCKED after Sleep")
	}

	deadline, ok := s.NextDeadline()
	if !ok || deadline != 1000 {
		t.Fatalf("NextDeadline = %d, %v; want 1000, true", deadline, ok)
	}

	s.WakeExpired(999)
	if s.Find(pid).State != StateBlocked {
		t.Fatal("process should still be blocked before its deadline")
	}

	s.WakeExpired(1000)
	if s.Find(pid).State != StateReady {
		t.Fatal("process should be READY once its deadline has passed")
	}
	if _, ok := s.NextDeadline(); ok {
		t.Fatal("sleep table should be empty after waking the only sleeper")
	}
}

func TestStopAndReap(t *testing.T) {
	s := New()
	if _, err := s.Spawn(); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	pid := s.processes[0].PID

	s.Stop(pid, 7)
	p := s.Find(pid)
	if p == nil {
		t.Fatal("Stop should not remove the slot, only mark it STOPPED")
	}
	if p.State != StateStopped || p.ExitCode != 7 {
		t.Fatalf("got state=%v exitCode=%d, want STOPPED/7", p.State, p.ExitCode)
	}

	s.Reap(pid)
	if s.Find(pid) != nil {
		t.Fatal("Reap should free the slot")
	}
}
