package trap

import (
	"corekernel/internal/arch/arm64"
	"corekernel/internal/kfmt"
	"corekernel/internal/mm/pmm"
	"corekernel/internal/sched"
	"corekernel/internal/timer"
	"corekernel/internal/vfs"
)

// Syscall numbers, stable across the life of the ABI. Handlers below are
// a flat table lookup; there is no default pass-through for an
// unrecognized number.
const (
	SysMalloc         = 0
	SysFree           = 1
	SysPrintl         = 3
	SysReadKey        = 5
	SysFileOpen       = 10
	SysFileRead       = 11
	SysFileWrite      = 12
	SysFileClose      = 13
	SysDirList        = 14
	SysSocketCreate   = 15
	SysRequestDrawCtx = 20
	SysGPUFlush       = 21
	SysSleep          = 30
	SysYield          = 31
	SysHalt           = 33
	SysGetTime        = 40
)

const errENOSYS = -38

// Dispatcher wires the syscall table to the subsystems each handler
// needs. It holds no state of its own beyond these references.
type Dispatcher struct {
	Sched  *sched.Scheduler
	Files  *vfs.Registry
	Clock  *timer.Clock
	Frames *pmm.Allocator
	Mem    UserMemory

	// Output is invoked by PRINTL with the calling process's id and the
	// bytes to emit; boot wires it to the console line driver only, so
	// PRINTL output is not appended to the process's /proc/<pid>/out
	// store. A nil Output silently discards writes.
	Output func(pid uint16, data []byte) int
}

func (d *Dispatcher) memory() UserMemory {
	if d.Mem != nil {
		return d.Mem
	}
	return directMemory{}
}

type syscallHandler func(d *Dispatcher, p *sched.Process, frame *arm64.ExceptionFrame) uint64

var syscallTable = map[uint64]syscallHandler{
	SysMalloc:         sysMalloc,
	SysFree:           sysFree,
	SysPrintl:         sysPrintl,
	SysReadKey:        sysReadKey,
	SysFileOpen:       sysFileOpen,
	SysFileRead:       sysFileRead,
	SysFileWrite:      sysFileWrite,
	SysFileClose:      sysFileClose,
	SysDirList:        sysDirList,
	SysSocketCreate:   sysSocketCreate,
	SysRequestDrawCtx: sysRequestDrawCtx,
	SysGPUFlush:       sysGPUFlush,
	SysSleep:          sysSleep,
	SysYield:          sysYield,
	SysHalt:           sysHalt,
	SysGetTime:        sysGetTime,
}

// dispatchSyscall decodes the SVC immediate from ISS, looks it up in
// the flat syscall table, and stores the handler's return value into
// the calling process's x0 slot.
func (d *Dispatcher) dispatchSyscall(frame *arm64.ExceptionFrame) {
	esr := arm64.DecodeESR(frame.ESR)
	num := uint64(esr.ISS)

	handler, ok := syscallTable[num]
	if !ok {
		kfmt.Panic("trap", "unknown syscall number")
		return
	}

	p := d.Sched.Current()
	frame.X[0] = handler(d, p, frame)
}

func sysMalloc(d *Dispatcher, p *sched.Process, frame *arm64.ExceptionFrame) uint64 {
	size := frame.X[0]
	if p == nil || d.Frames == nil {
		return 0
	}
	if p.HeapVA == 0 {
		heap, err := d.Frames.Alloc(pmm.PageSize, pmm.LevelUser, pmm.Attrs{RW: true}, false)
		if err != nil {
			return 0
		}
		p.HeapVA = heap
	}
	ptr, err := d.Frames.AllocSub(p.HeapVA, size, 16)
	if err != nil {
		return 0
	}
	return uint64(ptr)
}

func sysFree(d *Dispatcher, p *sched.Process, frame *arm64.ExceptionFrame) uint64 {
	if p == nil || d.Frames == nil || p.HeapVA == 0 {
		return 0
	}
	d.Frames.FreeSub(p.HeapVA, uintptr(frame.X[0]), frame.X[1])
	return 0
}

func sysPrintl(d *Dispatcher, p *sched.Process, frame *arm64.ExceptionFrame) uint64 {
	ptr, length := uintptr(frame.X[0]), uint32(frame.X[1])
	data := d.memory().Read(ptr, length)
	if d.Output == nil || p == nil {
		return 0
	}
	return uint64(d.Output(p.PID, data))
}

func sysReadKey(d *Dispatcher, p *sched.Process, frame *arm64.ExceptionFrame) uint64 {
	if p == nil {
		return ^uint64(0) // -1
	}
	kp, ok := p.Input.Pop()
	if !ok {
		return ^uint64(0)
	}
	return uint64(kp.Code)
}

func sysFileOpen(d *Dispatcher, p *sched.Process, frame *arm64.ExceptionFrame) uint64 {
	if p == nil {
		return uint64(int64(-1))
	}
	path := string(d.memory().Read(uintptr(frame.X[0]), uint32(frame.X[1])))
	f, err := d.Files.Open(p.PID, path)
	if err != nil {
		return uint64(int64(-1))
	}
	return f.ID
}

func sysFileRead(d *Dispatcher, p *sched.Process, frame *arm64.ExceptionFrame) uint64 {
	if p == nil {
		return uint64(int64(-1))
	}
	fdID, ptr, length := frame.X[0], uintptr(frame.X[1]), uint32(frame.X[2])
	buf := make([]byte, length)
	n, err := d.Files.Read(p.PID, fdID, buf)
	if err != nil {
		return uint64(int64(-1))
	}
	d.memory().Write(ptr, buf[:n])
	return uint64(n)
}

func sysFileWrite(d *Dispatcher, p *sched.Process, frame *arm64.ExceptionFrame) uint64 {
	if p == nil {
		return uint64(int64(-1))
	}
	fdID, ptr, length := frame.X[0], uintptr(frame.X[1]), uint32(frame.X[2])
	data := d.memory().Read(ptr, length)
	n, err := d.Files.Write(p.PID, fdID, data)
	if err != nil {
		return uint64(int64(-1))
	}
	return uint64(n)
}

func sysFileClose(d *Dispatcher, p *sched.Process, frame *arm64.ExceptionFrame) uint64 {
	if p == nil {
		return uint64(int64(-1))
	}
	if err := d.Files.Close(p.PID, frame.X[0]); err != nil {
		return uint64(int64(-1))
	}
	return 0
}

func sysDirList(d *Dispatcher, p *sched.Process, frame *arm64.ExceptionFrame) uint64 {
	if p == nil {
		return uint64(int64(-1))
	}
	pathPtr, pathLen := uintptr(frame.X[0]), uint32(frame.X[1])
	bufPtr, bufLen := uintptr(frame.X[2]), uint32(frame.X[3])

	path := string(d.memory().Read(pathPtr, pathLen))
	buf := make([]byte, bufLen)
	n, err := d.Files.ListDirectory(path, buf)
	if err != nil {
		return uint64(int64(-1))
	}
	d.memory().Write(bufPtr, buf[:n])
	return uint64(n)
}

// sysSocketCreate is a stub: networking is out of scope for the core,
// so this exists only to satisfy the ABI with a stable error.
func sysSocketCreate(d *Dispatcher, p *sched.Process, frame *arm64.ExceptionFrame) uint64 {
	return uint64(int64(errENOSYS))
}

// sysRequestDrawCtx and sysGPUFlush are stubs for the same reason: the
// GPU driver that would back a real window handle is out of scope.
func sysRequestDrawCtx(d *Dispatcher, p *sched.Process, frame *arm64.ExceptionFrame) uint64 {
	return uint64(int64(errENOSYS))
}

func sysGPUFlush(d *Dispatcher, p *sched.Process, frame *arm64.ExceptionFrame) uint64 {
	return uint64(int64(errENOSYS))
}

func sysSleep(d *Dispatcher, p *sched.Process, frame *arm64.ExceptionFrame) uint64 {
	if p == nil {
		return 0
	}
	ms := frame.X[0]
	deadline := d.Clock.NowMicros() + ms*1000
	d.Sched.Sleep(deadline)
	d.Sched.Switch()
	return 0
}

func sysYield(d *Dispatcher, p *sched.Process, frame *arm64.ExceptionFrame) uint64 {
	d.Sched.Switch()
	return 0
}

// sysHalt stops the calling process and switches away; like a real
// exit() it never returns to the caller that issued it.
func sysHalt(d *Dispatcher, p *sched.Process, frame *arm64.ExceptionFrame) uint64 {
	if p == nil {
		return 0
	}
	d.exitProcess(p, int32(frame.X[0]))
	d.Sched.Switch()
	return 0
}

func sysGetTime(d *Dispatcher, p *sched.Process, frame *arm64.ExceptionFrame) uint64 {
	kind := frame.X[0]
	var us int64
	if kind == 1 {
		us = d.Clock.WallMicros()
	} else {
		us = int64(d.Clock.NowMicros())
	}
	frame.X[1] = uint64(us >> 32)
	return uint64(uint32(us))
}
