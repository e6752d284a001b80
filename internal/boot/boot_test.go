package boot

import (
	"testing"

	"corekernel/internal/mm/pmm"
	"corekernel/internal/sched"
	"corekernel/internal/splash"
	"corekernel/internal/trap"
	"corekernel/internal/vfs"
)

func TestInitFrameAllocatorRejectsEmptyRAMWindow(t *testing.T) {
	_, err := initFrameAllocator(Hardware{RAMStart: 0x1000, RAMEnd: 0x1000}, &deferredMapper{})
	if err == nil {
		t.Fatal("expected an error for RAMEnd <= RAMStart")
	}
}

func TestInitFrameAllocatorAcceptsValidWindow(t *testing.T) {
	a, err := initFrameAllocator(Hardware{RAMStart: 0, RAMEnd: 64 * pmm.PageSize, BitmapStorage: make([]uint64, 1)}, &deferredMapper{})
	if err != nil {
		t.Fatalf("initFrameAllocator: %v", err)
	}
	if a == nil {
		t.Fatal("expected a non-nil allocator")
	}
}

func TestDeferredMapperNoopsBeforeInnerIsSet(t *testing.T) {
	d := &deferredMapper{}
	if err := d.RegisterDeviceMemory(0x1000, 0x1000); err != nil {
		t.Fatalf("RegisterDeviceMemory before inner set: %v", err)
	}
	if err := d.RegisterProcMemory(0x1000, 0x1000, pmm.Attrs{RW: true}, pmm.LevelKernel); err != nil {
		t.Fatalf("RegisterProcMemory before inner set: %v", err)
	}
}

type recordingMapper struct {
	deviceCalls int
	procCalls   int
}

func (r *recordingMapper) RegisterDeviceMemory(va, pa uintptr) error {
	r.deviceCalls++
	return nil
}

func (r *recordingMapper) RegisterProcMemory(va, pa uintptr, attrs pmm.Attrs, level pmm.Level) error {
	r.procCalls++
	return nil
}

func TestDeferredMapperForwardsOnceInnerIsSet(t *testing.T) {
	inner := &recordingMapper{}
	d := &deferredMapper{}
	d.inner = inner

	if err := d.RegisterDeviceMemory(0x2000, 0x2000); err != nil {
		t.Fatalf("RegisterDeviceMemory: %v", err)
	}
	if err := d.RegisterProcMemory(0x3000, 0x3000, pmm.Attrs{RW: true}, pmm.LevelUser); err != nil {
		t.Fatalf("RegisterProcMemory: %v", err)
	}
	if inner.deviceCalls != 1 || inner.procCalls != 1 {
		t.Fatalf("inner calls = (%d,%d), want (1,1)", inner.deviceCalls, inner.procCalls)
	}
}

func TestDrawSplashSkipsWithNoFramebuffer(t *testing.T) {
	if err := drawSplash(Hardware{}, splash.DefaultPalette); err != nil {
		t.Fatalf("drawSplash with no framebuffer: %v", err)
	}
}

func TestDrawSplashFillsFramebuffer(t *testing.T) {
	hw := Hardware{
		Framebuffer: make([]byte, 16*16*4),
		FBWidth:     16,
		FBHeight:    16,
	}
	if err := drawSplash(hw, splash.DefaultPalette); err != nil {
		t.Fatalf("drawSplash: %v", err)
	}
	bg := splash.DefaultPalette.Background
	if hw.Framebuffer[0] != bg.B || hw.Framebuffer[1] != bg.G || hw.Framebuffer[2] != bg.R {
		t.Fatalf("corner pixel = %v, want BGR(%d,%d,%d)", hw.Framebuffer[0:3], bg.B, bg.G, bg.R)
	}
}

func TestDrawSplashPropagatesBadFontData(t *testing.T) {
	hw := Hardware{
		Framebuffer: make([]byte, 8*8*4),
		FBWidth:     8,
		FBHeight:    8,
		FontData:    []byte("not a font"),
	}
	if err := drawSplash(hw, splash.DefaultPalette); err == nil {
		t.Fatal("expected an error from bad font data")
	}
}

type fakeLineIO struct{ lines [][]byte }

func (f *fakeLineIO) WriteLine(data []byte) int {
	f.lines = append(f.lines, append([]byte(nil), data...))
	return len(data)
}

func (f *fakeLineIO) ReadByte() (byte, bool) { return 0, false }

func TestMountCoreModulesLoadsAllFour(t *testing.T) {
	files := vfs.NewRegistry()
	scheduler := sched.New()
	dispatcher := &trap.Dispatcher{
		Sched: scheduler,
		Files: files,
		Mem:   trap.NewDirectMemory(),
	}
	console := &fakeLineIO{}
	hw := Hardware{Console: console}

	if err := mountCoreModules(files, scheduler, dispatcher, hw, splash.DefaultPalette); err != nil {
		t.Fatalf("mountCoreModules: %v", err)
	}

	if _, err := files.Open(1, "/dev/console"); err != nil {
		t.Fatalf("opening /dev/console: %v", err)
	}
	if _, err := files.Open(1, "/theme"); err != nil {
		t.Fatalf("opening /theme: %v", err)
	}
	if _, err := files.Open(1, "/random"); err != nil {
		t.Fatalf("opening /random: %v", err)
	}

	p, err := scheduler.Spawn()
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if _, err := files.Open(1, "/proc/"+itoa(uint64(p.PID))+"/state"); err != nil {
		t.Fatalf("opening /proc/<pid>/state: %v", err)
	}
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
