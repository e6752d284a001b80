// Package trap owns the exception vector table and the synchronous
// exception handler that backs both the syscall ABI and EL0 fault
// handling. The core installs 16 vector slots (4 sources x 4 kinds);
// only the synchronous-from-EL0 and IRQ slots do anything beyond
// counting and, for everything else, panicking.
package trap

import (
	"corekernel/internal/arch/arm64"
	"corekernel/internal/kfmt"
	"corekernel/internal/mm/pmm"
	"corekernel/internal/sched"
)

// entryDepth counts nested entries into the synchronous handler so a
// syscall that itself blocks (sleep, halt) never resumes into a stale
// "current" process on the way back out.
var entryDepth int

// HandleSync is called by the vector-table assembly stub with the saved
// exception frame for a synchronous exception (SVC or a fault). It is
// the single entry point spec.md's §4.4 describes.
func (d *Dispatcher) HandleSync(frame *arm64.ExceptionFrame, fromEL0 bool) {
	entryDepth++
	defer func() { entryDepth-- }()

	esr := arm64.DecodeESR(frame.ESR)

	switch esr.EC {
	case arm64.ECSVC64:
		d.dispatchSyscall(frame)
	default:
		d.handleFault(frame, esr, fromEL0)
	}
}

// HandleIRQ is called for every IRQ vector slot. The only IRQ source
// this core cares about is the virtual timer, so every IRQ is handled as
// a timer tick: sleepers whose deadline has passed are woken. The
// interrupt source is neither read nor acknowledged here, since the
// individual peripheral drivers that would care are out of scope.
func (d *Dispatcher) HandleIRQ() {
	now := d.Clock.NowMicros()
	d.Sched.WakeExpired(now)
}

// HandleUnexpected handles FIQ/SError and any synchronous exception
// taken from EL1 itself: a fault in kernel code is always a kernel bug,
// never something to recover from.
func HandleUnexpected(source string, frame *arm64.ExceptionFrame) {
	kfmt.Printf("unexpected exception from %s: ESR=%x ELR=%x FAR=%x\n", source, frame.ESR, frame.ELR, frame.FAR)
	kfmt.Panic("trap", "unrecoverable exception at EL1")
}

// exitCodeForEC derives a process exit code from the exception class
// that killed it, so a crash log and /proc/<pid>/state both have a
// stable, inspectable number instead of always reporting -1.
func exitCodeForEC(ec uint32) int32 {
	return -int32(ec) - 1
}

// exitProcess is the one path every way a process dies (HALT, an
// EL0 fault) funnels through: mark it STOPPED, close its open files,
// and return its owned frames to the allocator, per spec.md §3 ("at
// that point all owned frames are returned to the frame allocator and
// all FDs it opened are closed"). The slot itself is reclaimed later,
// lazily, by Scheduler.Spawn once a STOPPED process's exit code has had
// a chance to be read back via /proc/<pid>/state.
func (d *Dispatcher) exitProcess(p *sched.Process, exitCode int32) {
	pid := p.PID
	stackVA, stackSize := p.StackVA, p.StackSize
	heapVA := p.HeapVA

	d.Sched.Stop(pid, exitCode)
	d.Files.CloseAll(pid)

	if d.Frames == nil {
		return
	}
	if stackVA != 0 && stackSize != 0 {
		d.Frames.Free(stackVA, stackSize)
	}
	if heapVA != 0 {
		d.Frames.Free(heapVA, pmm.PageSize)
	}
}
