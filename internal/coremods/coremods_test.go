package coremods

import (
	"testing"

	"corekernel/internal/sched"
	"corekernel/internal/splash"
	"corekernel/internal/vfs"
)

// --- console ---

type fakeLineIO struct {
	written [][]byte
	inbox   []byte
}

func (f *fakeLineIO) WriteLine(data []byte) int {
	cp := append([]byte(nil), data...)
	f.written = append(f.written, cp)
	return len(data)
}

func (f *fakeLineIO) ReadByte() (byte, bool) {
	if len(f.inbox) == 0 {
		return 0, false
	}
	b := f.inbox[0]
	f.inbox = f.inbox[1:]
	return b, true
}

func TestConsoleWritePassesThroughToLineIO(t *testing.T) {
	io := &fakeLineIO{}
	m := NewConsole(io)
	f := &vfs.File{ID: 1}
	n, err := m.Write(f, []byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if len(io.written) != 1 || string(io.written[0]) != "hello" {
		t.Fatalf("unexpected writes: %v", io.written)
	}
}

func TestConsoleReadStopsWhenInboxEmpty(t *testing.T) {
	io := &fakeLineIO{inbox: []byte("ab")}
	m := NewConsole(io)
	f := &vfs.File{ID: 1}
	buf := make([]byte, 8)
	n, err := m.Read(f, buf)
	if err != nil || n != 2 || string(buf[:2]) != "ab" {
		t.Fatalf("Read = %d, %q, %v", n, buf[:n], err)
	}
}

func TestConsoleSinkReturnsErrorOnShortWrite(t *testing.T) {
	io := &fakeLineIO{}
	sink := ConsoleSink{IO: shortLineIO{io}}
	_, err := sink.Write([]byte("abc"))
	if err == nil {
		t.Fatal("expected an error for a short write")
	}
}

type shortLineIO struct{ *fakeLineIO }

func (s shortLineIO) WriteLine(data []byte) int {
	s.fakeLineIO.WriteLine(data)
	return len(data) - 1
}

// --- procfs ---

type fakeMemory struct {
	backing [256]byte
}

func (m *fakeMemory) Read(ptr uintptr, n uint32) []byte {
	return append([]byte(nil), m.backing[ptr:ptr+uintptr(n)]...)
}

func (m *fakeMemory) Write(ptr uintptr, data []byte) uint32 {
	return uint32(copy(m.backing[ptr:], data))
}

func newTestProcess(s *sched.Scheduler) *sched.Process {
	p, err := s.Spawn()
	if err != nil {
		panic(err)
	}
	p.OutputVA = 0
	p.OutputSize = 64
	return p
}

func TestProcFSRoundTripsOutput(t *testing.T) {
	s := sched.New()
	p := newTestProcess(s)
	mem := &fakeMemory{}
	m := NewProcFS(s, mem)

	wf := &vfs.File{ID: 1}
	path := "/" + itoa(uint64(p.PID)) + "/out"
	if err := m.Open(path, wf); err != nil {
		t.Fatalf("Open(write side) = %v", err)
	}
	n, err := m.Write(wf, []byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("Write = %d, %v", n, err)
	}

	rf := &vfs.File{ID: 2}
	if err := m.Open(path, rf); err != nil {
		t.Fatalf("Open(read side) = %v", err)
	}
	buf := make([]byte, 5)
	n, err = m.Read(rf, buf)
	if err != nil || n != 5 || string(buf) != "hello" {
		t.Fatalf("Read = %d, %q, %v", n, buf[:n], err)
	}
}

func TestProcFSOutputWriteClampsToCapacity(t *testing.T) {
	s := sched.New()
	p := newTestProcess(s)
	p.OutputSize = 3
	mem := &fakeMemory{}
	m := NewProcFS(s, mem)

	wf := &vfs.File{ID: 1}
	path := "/" + itoa(uint64(p.PID)) + "/out"
	if err := m.Open(path, wf); err != nil {
		t.Fatalf("Open = %v", err)
	}
	n, err := m.Write(wf, []byte("abcdef"))
	if err != nil || n != 3 {
		t.Fatalf("Write = %d, %v, want 3, nil", n, err)
	}
}

func TestProcFSStateReportsFields(t *testing.T) {
	s := sched.New()
	p := newTestProcess(s)
	p.ExitCode = -7
	mem := &fakeMemory{}
	m := NewProcFS(s, mem)

	f := &vfs.File{ID: 1}
	path := "/" + itoa(uint64(p.PID)) + "/state"
	if err := m.Open(path, f); err != nil {
		t.Fatalf("Open = %v", err)
	}
	buf := make([]byte, 64)
	n, err := m.Read(f, buf)
	if err != nil {
		t.Fatalf("Read = %v", err)
	}
	got := string(buf[:n])
	if got == "" {
		t.Fatal("expected non-empty state line")
	}
}

func TestProcFSOpenUnknownPIDFails(t *testing.T) {
	s := sched.New()
	mem := &fakeMemory{}
	m := NewProcFS(s, mem)
	f := &vfs.File{ID: 1}
	if err := m.Open("/999/out", f); err == nil {
		t.Fatal("expected an error opening an unknown pid")
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

// --- theme ---

func TestThemeEncodesFourColorQuads(t *testing.T) {
	m := NewTheme(splash.DefaultPalette)
	f := &vfs.File{ID: 1}
	if err := m.Open("", f); err != nil {
		t.Fatalf("Open = %v", err)
	}
	if f.Size != 16 {
		t.Fatalf("Size = %d, want 16", f.Size)
	}
	buf := make([]byte, 16)
	n, err := m.Read(f, buf)
	if err != nil || n != 16 {
		t.Fatalf("Read = %d, %v", n, err)
	}
	bg := splash.DefaultPalette.Background
	if buf[0] != bg.R || buf[1] != bg.G || buf[2] != bg.B || buf[3] != bg.A {
		t.Fatalf("first quad = %v, want background %v", buf[:4], bg)
	}
}

func TestThemeReaddirListsSlotNames(t *testing.T) {
	m := NewTheme(splash.DefaultPalette)
	names, err := m.Readdir("")
	if err != nil {
		t.Fatalf("Readdir = %v", err)
	}
	if len(names) != 4 {
		t.Fatalf("got %d names, want 4", len(names))
	}
}

// --- random ---

type fixedClock struct{ t uint64 }

func (c fixedClock) NowMicros() uint64 { return c.t }

func TestRandomFillsEntireBuffer(t *testing.T) {
	m := NewRandom(fixedClock{t: 12345})
	f := &vfs.File{ID: 1}
	if err := m.Open("", f); err != nil {
		t.Fatalf("Open = %v", err)
	}
	buf := make([]byte, 37)
	n, err := m.Read(f, buf)
	if err != nil || n != 37 {
		t.Fatalf("Read = %d, %v", n, err)
	}
}

func TestRandomDiffersAcrossSeeds(t *testing.T) {
	a := NewRandom(fixedClock{t: 1})
	b := NewRandom(fixedClock{t: 2})

	fa, fb := &vfs.File{ID: 1}, &vfs.File{ID: 2}
	a.Open("", fa)
	b.Open("", fb)

	bufA, bufB := make([]byte, 16), make([]byte, 16)
	a.Read(fa, bufA)
	b.Read(fb, bufB)

	same := true
	for i := range bufA {
		if bufA[i] != bufB[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("expected different seeds to produce different output")
	}
}
