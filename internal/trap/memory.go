package trap

import "unsafe"

// UserMemory gives syscall handlers access to the calling process's
// address space. The default implementation dereferences pointers
// directly, which is safe because a syscall handler runs at EL1 with
// the faulting process's own TTBR0 still installed; it is an interface
// purely so tests can substitute a bounds-checked fake instead of
// poking real memory.
type UserMemory interface {
	Read(ptr uintptr, n uint32) []byte
	Write(ptr uintptr, data []byte) uint32
}

type directMemory struct{}

func (directMemory) Read(ptr uintptr, n uint32) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n)
}

func (directMemory) Write(ptr uintptr, data []byte) uint32 {
	dst := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), len(data))
	return uint32(copy(dst, data))
}

// NewDirectMemory returns the same raw-pointer UserMemory implementation
// a Dispatcher falls back to when Mem is nil, exported so other packages
// needing the identical (ptr, n) -> []byte seam (internal/boot wiring
// /proc/<pid>/out) don't have to redeclare it.
func NewDirectMemory() UserMemory { return directMemory{} }
