package sched

import (
	"corekernel/internal/arch/arm64"
	kerrors "corekernel/internal/kernel/errors"
)

// Scheduler owns the process table and drives round-robin context
// switches. There is exactly one per core, and this core never runs more
// than one; every method assumes the caller already disabled IRQs, same
// as every other shared structure in this tree.
type Scheduler struct {
	processes [MaxProcesses]*Process
	live      [MaxProcesses]bool
	current   int // slot index, -1 before the first switch

	sleepers [MaxProcesses]sleepRecord
	nextPID  uint16
}

type sleepRecord struct {
	valid    bool
	slot     int
	deadline uint64 // monotonic microseconds
}

// New returns an empty scheduler with no live processes.
func New() *Scheduler {
	return &Scheduler{current: -1}
}

// switchFn performs the actual register save/restore and ERET. It is a
// package variable so tests can swap in a no-op without linking the real
// assembly switch stub, the same pattern gopheros uses to keep its page
// table tests off real hardware.
var switchFn = arm64.Switch

// Spawn allocates a process-table slot, assigns a monotonically
// increasing PID and marks it READY. If every slot is live it first
// tries to reclaim the slot of a STOPPED process (one whose exit has
// already run through Stop) via Reap, per spec.md §3's "slot-reused
// after a process exits"; only once no slot is either free or STOPPED
// does it return ErrNoResources.
func (s *Scheduler) Spawn() (*Process, error) {
	slot := s.findFreeSlot()
	if slot == -1 {
		slot = s.reclaimStoppedSlot()
	}
	if slot == -1 {
		return nil, kerrors.ErrNoResources
	}

	s.nextPID++
	p := newProcess(s.nextPID)
	p.State = StateReady
	s.processes[slot] = p
	s.live[slot] = true
	return p, nil
}

func (s *Scheduler) findFreeSlot() int {
	for i := 0; i < MaxProcesses; i++ {
		if !s.live[i] {
			return i
		}
	}
	return -1
}

// reclaimStoppedSlot finds the first STOPPED process, reaps it and
// returns the slot index it freed up, or -1 if nothing is STOPPED.
func (s *Scheduler) reclaimStoppedSlot() int {
	for i := 0; i < MaxProcesses; i++ {
		if s.live[i] && s.processes[i].State == StateStopped {
			pid := s.processes[i].PID
			s.Reap(pid)
			return i
		}
	}
	return -1
}

// Current returns the process in the running slot, or nil before the
// first switch has happened.
func (s *Scheduler) Current() *Process {
	if s.current < 0 {
		return nil
	}
	return s.processes[s.current]
}

// pickNext returns the slot index of the next READY process, starting
// the round from (current+1) mod MaxProcesses. Returns -1 if nothing is
// READY.
func (s *Scheduler) pickNext() int {
	start := s.current
	if start < 0 {
		start = MaxProcesses - 1 // so the loop below starts scanning at slot 0
	}
	for i := 1; i <= MaxProcesses; i++ {
		slot := (start + i) % MaxProcesses
		if s.live[slot] && s.processes[slot].State == StateReady {
			return slot
		}
	}
	return -1
}

// Switch picks the next READY process and performs a full context
// switch into it. There is always at least a kernel idle process
// occupying slot 0 in READY state, so finding nothing ready is a fatal
// invariant violation rather than a condition callers should handle.
func (s *Scheduler) Switch() error {
	next := s.pickNext()
	if next == -1 {
		return kerrors.ErrNoReadyProcess
	}

	var from *arm64.Context
	if s.current >= 0 {
		cur := s.processes[s.current]
		if cur.State == StateRunning {
			cur.State = StateReady
		}
		from = &cur.Ctx
	}

	nextProc := s.processes[next]
	nextProc.State = StateRunning
	s.current = next

	switchFn(from, &nextProc.Ctx)
	return nil
}

// Sleep marks the current process BLOCKED until deadline (an absolute
// monotonic microsecond value) and records it in the sleep table so the
// virtual-timer handler can wake it. The caller is expected to call
// Switch immediately after, since the current process is no longer
// READY.
func (s *Scheduler) Sleep(deadline uint64) {
	if s.current < 0 {
		return
	}
	s.processes[s.current].State = StateBlocked

	for i := range s.sleepers {
		if !s.sleepers[i].valid {
			s.sleepers[i] = sleepRecord{valid: true, slot: s.current, deadline: deadline}
			return
		}
	}
}

// NextDeadline returns the earliest wake deadline among all sleeping
// processes and whether any exist, so the caller can reprogram the
// virtual timer compare register.
func (s *Scheduler) NextDeadline() (uint64, bool) {
	var (
		min   uint64
		found bool
	)
	for _, rec := range s.sleepers {
		if !rec.valid {
			continue
		}
		if !found || rec.deadline < min {
			min = rec.deadline
			found = true
		}
	}
	return min, found
}

// WakeExpired flips every sleeper whose deadline has passed back to
// READY and clears its sleep-table entry. Called from the virtual-timer
// IRQ handler with now the current monotonic microsecond reading.
func (s *Scheduler) WakeExpired(now uint64) {
	for i := range s.sleepers {
		rec := &s.sleepers[i]
		if rec.valid && rec.deadline <= now {
			if s.live[rec.slot] {
				s.processes[rec.slot].State = StateReady
			}
			rec.valid = false
		}
	}
}

// Stop frees a process's resources and marks it STOPPED; the slot stays
// occupied (so the exit code can still be read) until Reap, or Spawn's
// reclaim of STOPPED slots, frees it. The
// caller (internal/vfs, for open FDs; internal/mm, for owned frames) is
// responsible for releasing anything the scheduler itself doesn't own;
// Stop only touches the parts of a Process this package defined.
func (s *Scheduler) Stop(pid uint16, exitCode int32) {
	for i := 0; i < MaxProcesses; i++ {
		if s.live[i] && s.processes[i].PID == pid {
			p := s.processes[i]
			p.ExitCode = exitCode
			p.State = StateStopped
			p.Ctx = arm64.Context{}
			p.OutputWritten = 0
			p.Input = NewRing[Keypress](inputBufferCapacity)
			p.Events = NewRing[Event](eventBufferCapacity)
			p.Packet = NewRing[Packet](packetBufferCapacity)
			return
		}
	}
}

// Reap clears a STOPPED process's slot so it can be reused by a future
// Spawn, once its exit code has been consumed (e.g. via /proc/<pid>/state).
func (s *Scheduler) Reap(pid uint16) {
	for i := 0; i < MaxProcesses; i++ {
		if s.live[i] && s.processes[i].PID == pid && s.processes[i].State == StateStopped {
			s.live[i] = false
			s.processes[i] = nil
			return
		}
	}
}

// Find returns the process with the given PID, or nil.
func (s *Scheduler) Find(pid uint16) *Process {
	for i := 0; i < MaxProcesses; i++ {
		if s.live[i] && s.processes[i].PID == pid {
			return s.processes[i]
		}
	}
	return nil
}
