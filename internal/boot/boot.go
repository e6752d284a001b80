// Package boot sequences the core's init flow: timer and page allocator,
// then the MMU, then the module registry, then the scheduler, then the
// syscall dispatcher, then the modules the core itself mounts. Grounded
// on gopheros's kmain.Kmain, which runs the same kind of linear,
// panic-on-first-error bootstrap; unlike Kmain this is split into named
// stages so each one is unit-testable without real hardware underneath
// it.
package boot

import (
	"corekernel/internal/coremods"
	kerrors "corekernel/internal/kernel/errors"
	"corekernel/internal/kfmt"
	"corekernel/internal/mm/pmm"
	"corekernel/internal/mm/vmm"
	"corekernel/internal/sched"
	"corekernel/internal/splash"
	"corekernel/internal/timer"
	"corekernel/internal/trap"
	"corekernel/internal/vfs"
)

// Hardware collects the board-specific seams boot needs but does not own
// the concrete implementation of: the monotonic counter, RAM extents for
// the frame allocator, a bitmap storage slice sized for that RAM, the
// console transport, and (optionally) a framebuffer for the boot splash.
// cmd/kernel fills this in with real hardware; tests fill it with fakes.
type Hardware struct {
	Counter       timer.Counter
	RAMStart      uintptr
	RAMEnd        uintptr
	BitmapStorage []uint64

	Console coremods.LineIO

	// Framebuffer is nil on a board with no display attached; when
	// non-nil it must be at least 4*FBWidth*FBHeight bytes, BGRX8888.
	Framebuffer       []byte
	FBWidth, FBHeight int
	// FontData is an embedded TrueType font for the splash label; a nil
	// slice draws the splash without a label rather than failing boot.
	FontData []byte
}

// Kernel is everything the boot sequence assembles, handed back so
// cmd/kernel can install the vector table and enter the scheduler loop.
type Kernel struct {
	Clock      *timer.Clock
	Frames     *pmm.Allocator
	KernelMap  *vmm.Table
	Scheduler  *sched.Scheduler
	Files      *vfs.Registry
	Dispatcher *trap.Dispatcher
	Palette    splash.Palette
}

// deferredMapper sits between pmm.New (which demands a Mapper up front)
// and the AddressSpace it maps through (whose own Kernel table has to be
// allocated by that same frame allocator first). Calls made before inner
// is installed are no-ops: the only frames allocated that early are the
// kernel table's own levels, which are reachable by physical address
// alone until EnableMMU runs, so nothing is lost by not recording them.
type deferredMapper struct {
	inner pmm.Mapper
}

func (d *deferredMapper) RegisterDeviceMemory(va, pa uintptr) error {
	if d.inner == nil {
		return nil
	}
	return d.inner.RegisterDeviceMemory(va, pa)
}

func (d *deferredMapper) RegisterProcMemory(va, pa uintptr, attrs pmm.Attrs, level pmm.Level) error {
	if d.inner == nil {
		return nil
	}
	return d.inner.RegisterProcMemory(va, pa, attrs, level)
}

// Run executes every stage in order and halts via kfmt.Panic at the
// first failure, the same contract spec.md §2 describes for the core's
// init flow ("a failure at any stage halts with a panic screen rather
// than continuing with partial initialization"). On success it returns
// the assembled Kernel for cmd/kernel to hand off to the scheduler.
func Run(hw Hardware) *Kernel {
	clock := timer.New(hw.Counter)

	mapper := &deferredMapper{}
	frames, err := initFrameAllocator(hw, mapper)
	if err != nil {
		panicStage("pmm", err)
	}

	kernelTable, addrSpace, err := initMMU(frames)
	if err != nil {
		panicStage("vmm", err)
	}
	mapper.inner = addrSpace

	files := vfs.NewRegistry()
	scheduler := sched.New()

	dispatcher := &trap.Dispatcher{
		Sched:  scheduler,
		Files:  files,
		Clock:  clock,
		Frames: frames,
		Mem:    trap.NewDirectMemory(),
	}

	palette := splash.DefaultPalette
	if err := drawSplash(hw, palette); err != nil {
		panicStage("splash", err)
	}

	if err := mountCoreModules(files, scheduler, dispatcher, hw, palette); err != nil {
		panicStage("vfs", err)
	}

	return &Kernel{
		Clock:      clock,
		Frames:     frames,
		KernelMap:  kernelTable,
		Scheduler:  scheduler,
		Files:      files,
		Dispatcher: dispatcher,
		Palette:    palette,
	}
}

func panicStage(stage string, err error) {
	kfmt.Printf("boot: %s stage failed: %s\n", stage, err.Error())
	kfmt.Panic("boot", stage+" initialization failed")
}

// initFrameAllocator builds the single page-frame allocator covering the
// board's RAM window, backed by mapper so the frames it hands out for
// the kernel table (built next, by initMMU) eventually get recorded once
// that table exists.
func initFrameAllocator(hw Hardware, mapper pmm.Mapper) (*pmm.Allocator, error) {
	if hw.RAMEnd <= hw.RAMStart {
		return nil, kerrors.ErrInvalidParam
	}
	return pmm.New(hw.RAMStart, hw.RAMEnd, hw.BitmapStorage, mapper), nil
}

// initMMU allocates the shared kernel table (TTBR1) and wraps it in an
// AddressSpace with no per-process table yet, matching spec.md §3: the
// kernel table exists before the first process does.
func initMMU(frames *pmm.Allocator) (*vmm.Table, *vmm.AddressSpace, error) {
	kernelTable, err := vmm.NewTable(frames)
	if err != nil {
		return nil, nil, err
	}
	return kernelTable, &vmm.AddressSpace{Kernel: kernelTable}, nil
}

// drawSplash renders the boot splash into hw.Framebuffer if one is
// attached; a board with no display (headless QEMU, a serial-only Pi
// config) skips this entirely rather than failing boot over a cosmetic
// feature.
func drawSplash(hw Hardware, palette splash.Palette) error {
	if hw.Framebuffer == nil {
		return nil
	}

	canvas := splash.NewCanvas(hw.FBWidth, hw.FBHeight, palette)

	if len(hw.FontData) > 0 {
		face, err := splash.LoadLabelFace(hw.FontData, 18)
		if err != nil {
			return err
		}
		canvas.DrawBootSplash("booting", face)
	} else {
		canvas.DrawBootSplash("", nil)
	}

	splash.FlushToBGRX(hw.Framebuffer, canvas.RGBA())
	return nil
}

// mountCoreModules loads the four modules the core itself owns, per
// spec.md §6: the console line driver, per-process /proc entries, the
// /theme palette surface and /random. Wiring kfmt's output sink to the
// console here means every Printf issued before this point stays
// buffered and is flushed the moment the console becomes available, per
// kfmt's own documented contract.
func mountCoreModules(files *vfs.Registry, scheduler *sched.Scheduler, dispatcher *trap.Dispatcher, hw Hardware, palette splash.Palette) error {
	if hw.Console != nil {
		kfmt.SetOutputSink(coremods.ConsoleSink{IO: hw.Console})
		if err := files.Load(coremods.NewConsole(hw.Console)); err != nil {
			return err
		}
		dispatcher.Output = func(pid uint16, data []byte) int {
			return hw.Console.WriteLine(data)
		}
	}

	if err := files.Load(coremods.NewProcFS(scheduler, dispatcher.Mem)); err != nil {
		return err
	}
	if err := files.Load(coremods.NewTheme(palette)); err != nil {
		return err
	}
	if err := files.Load(coremods.NewRandom(dispatcher.Clock)); err != nil {
		return err
	}
	return nil
}
