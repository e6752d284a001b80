// Package vmm walks and builds the AArch64 4-level page tables: creating
// and tearing down leaf mappings, and the permission/attribute encoding
// that implements the core's memory-ownership model.
package vmm

import (
	"unsafe"

	"corekernel/internal/arch/arm64"
	kerrors "corekernel/internal/kernel/errors"
	"corekernel/internal/mm/pmm"
)

// FrameSource allocates the physical frames backing new page-table
// levels. Kept as an interface so tests can supply a fake allocator
// instead of carving real memory.
type FrameSource interface {
	Alloc(size uint64, level pmm.Level, attrs pmm.Attrs, full bool) (uintptr, error)
}

// Table is one AArch64 translation table root. The core keeps one shared
// Table for TTBR1 and one per process for TTBR0.
type Table struct {
	Root   uintptr
	frames FrameSource
}

// NewTable allocates a fresh, zeroed L0 table backed by frames.
func NewTable(frames FrameSource) (*Table, error) {
	root, err := frames.Alloc(arm64.PageSize, pmm.LevelKernel, pmm.Attrs{RW: true}, true)
	if err != nil {
		return nil, err
	}
	zeroPage(root)
	return &Table{Root: root, frames: frames}, nil
}

func zeroPage(addr uintptr) {
	p := (*[arm64.PageSize]byte)(unsafe.Pointer(addr))
	for i := range p {
		p[i] = 0
	}
}

func entryPtr(table uintptr, idx uint64) *uint64 {
	return (*uint64)(unsafe.Pointer(table + uintptr(idx)*arm64.PTESize))
}

func levelIndex(va uintptr, shift uint) uint64 {
	return (uint64(va) >> shift) & arm64.VAIndexMask
}

// walk locates (allocating as needed when alloc is true) the L3 entry
// address for va, returning an error if a required level is missing and
// alloc is false.
func (t *Table) walk(va uintptr, alloc bool) (*uint64, error) {
	l0 := entryPtr(t.Root, levelIndex(va, arm64.L0Shift))
	l1Table, err := t.descend(l0, alloc)
	if err != nil {
		return nil, err
	}

	l1 := entryPtr(l1Table, levelIndex(va, arm64.L1Shift))
	l2Table, err := t.descend(l1, alloc)
	if err != nil {
		return nil, err
	}

	l2 := entryPtr(l2Table, levelIndex(va, arm64.L2Shift))
	l3Table, err := t.descend(l2, alloc)
	if err != nil {
		return nil, err
	}

	return entryPtr(l3Table, levelIndex(va, arm64.L3Shift)), nil
}

// descend returns the address of the next-level table a table-descriptor
// entry points to, allocating and installing one if the entry is empty
// and alloc is true. An entry that is already valid but is a block leaf
// rather than a table descriptor (an L2 2MB mapping the walk is passing
// through on the way to a 4KB leaf) is a different-granule conflict and
// is refused rather than overwritten.
func (t *Table) descend(entry *uint64, alloc bool) (uintptr, error) {
	if *entry&arm64.PTEValid != 0 {
		if *entry&arm64.PTETable == 0 {
			return 0, kerrors.ErrWrongGranule
		}
		return uintptr(*entry &^ (arm64.PageSize - 1)), nil
	}
	if !alloc {
		return 0, kerrors.ErrNotFound
	}

	next, err := t.frames.Alloc(arm64.PageSize, pmm.LevelKernel, pmm.Attrs{RW: true}, true)
	if err != nil {
		return 0, err
	}
	zeroPage(next)
	*entry = uint64(next) | arm64.PTEValid | arm64.PTETable
	return next, nil
}

// leafPTE builds an L3 page descriptor for pa with the given MAIR index
// and access-permission bits, plus UXN/PXN as requested.
func leafPTE(pa uintptr, mairIdx uint64, ap uint64, uxn, pxn bool) uint64 {
	entry := uint64(pa) | arm64.PTEValid | arm64.PTETable | arm64.PTEAF | mairIdx | ap | arm64.ShareInner
	if uxn {
		entry |= arm64.PTEUXN
	}
	if pxn {
		entry |= arm64.PTEPXN
	}
	return entry
}

// Map4KB installs a single 4KB leaf mapping. Overwriting an existing leaf
// at a different granule (a block entry found partway down the walk)
// returns ErrWrongGranule and leaves the table untouched; overwriting an
// identical existing leaf mapping is a no-op success, matching a driver
// re-probing a region it already mapped.
func (t *Table) Map4KB(va, pa uintptr, mairIdx uint64, ap uint64, uxn, pxn bool) error {
	pte, err := t.walk(va, true)
	if err != nil {
		return err
	}
	if *pte&arm64.PTEValid != 0 {
		existing := leafPTE(pa, mairIdx, ap, uxn, pxn)
		if *pte == existing {
			return nil
		}
		return kerrors.ErrAlreadyMapped
	}
	*pte = leafPTE(pa, mairIdx, ap, uxn, pxn)
	arm64.FlushTLBPage(va)
	return nil
}

// Map2MB installs an L2 block mapping, used for large kernel windows
// (framebuffers, the identity-mapped RAM window) where per-4KB leaves
// would cost too many frames on page tables.
func (t *Table) Map2MB(va, pa uintptr, mairIdx uint64) error {
	l0 := entryPtr(t.Root, levelIndex(va, arm64.L0Shift))
	l1Table, err := t.descend(l0, true)
	if err != nil {
		return err
	}
	l1 := entryPtr(l1Table, levelIndex(va, arm64.L1Shift))
	l2Table, err := t.descend(l1, true)
	if err != nil {
		return err
	}

	l2 := entryPtr(l2Table, levelIndex(va, arm64.L2Shift))
	if *l2&arm64.PTEValid != 0 {
		return kerrors.ErrAlreadyMapped
	}
	*l2 = uint64(pa) | arm64.PTEValid | arm64.PTEAF | mairIdx | arm64.APKernRW | arm64.ShareInner
	arm64.FlushTLBPage(va)
	return nil
}

// Unmap zeros the leaf PTE covering va and flushes the stale translation.
// It is not an error to unmap a va with no mapping.
func (t *Table) Unmap(va uintptr) error {
	pte, err := t.walk(va, false)
	if err != nil {
		if err == kerrors.ErrNotFound {
			return nil
		}
		return err
	}
	*pte = 0
	arm64.FlushTLBPage(va)
	return nil
}

// Translate walks the table read-only and returns the physical address
// backing va, or ErrNotFound if no leaf is mapped.
func (t *Table) Translate(va uintptr) (uintptr, error) {
	pte, err := t.walk(va, false)
	if err != nil {
		return 0, err
	}
	if *pte&arm64.PTEValid == 0 {
		return 0, kerrors.ErrNotFound
	}
	// Output address bits [47:12]; the upper attribute bits (UXN, PXN, ...)
	// are not part of the physical address.
	return uintptr(*pte & 0x0000_FFFF_FFFF_F000), nil
}
