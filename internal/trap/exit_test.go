package trap

import (
	"testing"

	"corekernel/internal/mm/pmm"
	"corekernel/internal/sched"
	"corekernel/internal/vfs"
)

// noopMapper satisfies pmm.Mapper without touching any real page table,
// the same role fakeMapper plays in the pmm package's own tests.
type noopMapper struct{}

func (noopMapper) RegisterDeviceMemory(va, pa uintptr) error { return nil }

func (noopMapper) RegisterProcMemory(va, pa uintptr, attrs pmm.Attrs, level pmm.Level) error {
	return nil
}

func newTestDispatcher(t *testing.T, pages uint64) (*Dispatcher, *sched.Scheduler, *pmm.Allocator) {
	t.Helper()
	words := (pages + 63) / 64
	frames := pmm.New(0, uintptr(pages)*pmm.PageSize, make([]uint64, words), noopMapper{})
	scheduler := sched.New()
	files := vfs.NewRegistry()
	return &Dispatcher{Sched: scheduler, Files: files, Frames: frames}, scheduler, frames
}

func TestExitProcessFreesStackAndHeapFrames(t *testing.T) {
	d, scheduler, frames := newTestDispatcher(t, 8)

	p, err := scheduler.Spawn()
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	stackVA, err := frames.Alloc(2*pmm.PageSize, pmm.LevelUser, pmm.Attrs{RW: true}, true)
	if err != nil {
		t.Fatalf("Alloc stack: %v", err)
	}
	p.StackVA, p.StackSize = stackVA, 2*pmm.PageSize

	// full=true: this allocator's frame addresses are unbacked test
	// offsets starting at 0, not real memory, so a subpage-header write
	// (what full=false would trigger) would be an invalid dereference.
	heapVA, err := frames.Alloc(pmm.PageSize, pmm.LevelUser, pmm.Attrs{RW: true}, true)
	if err != nil {
		t.Fatalf("Alloc heap: %v", err)
	}
	p.HeapVA = heapVA

	before := frames.FreeFrames()

	d.exitProcess(p, 9)

	after := frames.FreeFrames()
	if after != before+3 {
		t.Fatalf("FreeFrames after exitProcess = %d, want %d (stack 2 + heap 1 returned)", after, before+3)
	}

	got := scheduler.Find(p.PID)
	if got == nil || got.State != sched.StateStopped || got.ExitCode != 9 {
		t.Fatalf("process should be STOPPED with exit code 9, got %+v", got)
	}
}

func TestExitProcessWithoutFramesDoesNotPanic(t *testing.T) {
	scheduler := sched.New()
	files := vfs.NewRegistry()
	d := &Dispatcher{Sched: scheduler, Files: files}

	p, err := scheduler.Spawn()
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	d.exitProcess(p, 1)

	if got := scheduler.Find(p.PID); got == nil || got.State != sched.StateStopped {
		t.Fatal("process should still be marked STOPPED even with no frame allocator wired")
	}
}
