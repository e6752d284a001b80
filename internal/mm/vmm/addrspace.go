package vmm

import (
	"corekernel/internal/arch/arm64"
	"corekernel/internal/mm/pmm"
)

// AddressSpace pairs a process's TTBR0 table with the shared TTBR1
// kernel table and implements pmm.Mapper, so the frame allocator can
// install mappings for the frames it hands out without importing vmm
// back into pmm.
type AddressSpace struct {
	User   *Table // nil for the kernel's own address space
	Kernel *Table
}

// RegisterDeviceMemory maps va->pa as Device-nGnRnE, read/write, kernel
// only. Every MMIO window (UART, GIC, mailbox, VirtIO transport bars)
// goes through this path.
func (as *AddressSpace) RegisterDeviceMemory(va, pa uintptr) error {
	return as.Kernel.Map4KB(va, pa, arm64.AttrDevice, arm64.APKernRW, true, true)
}

// RegisterProcMemory maps va->pa as Normal memory with the permission
// encoding from the core's ownership model:
//
//	KERNEL / RW:       kernel-RW, user-no-access, UXN=1, PXN=0
//	USER   / RO+EXEC:  kernel-RO, user-RO,        UXN=0, PXN=1
//	USER   / RW:       kernel-RW, user-RW,        UXN=1, PXN=1
//	SHARED:            USER encoding with the EXEC bit taken from attrs
func (as *AddressSpace) RegisterProcMemory(va, pa uintptr, attrs pmm.Attrs, level pmm.Level) error {
	var ap uint64
	var uxn, pxn bool

	switch {
	case level == pmm.LevelKernel:
		ap = arm64.APKernRW
		uxn, pxn = true, false
	case !attrs.RW && attrs.Exec:
		ap = arm64.APUserRO
		uxn, pxn = false, true
	default:
		ap = arm64.APUserRW
		uxn, pxn = true, true
		if attrs.Exec {
			uxn = false
		}
	}

	table := as.Kernel
	if level == pmm.LevelUser && as.User != nil {
		table = as.User
	}
	return table.Map4KB(va, pa, arm64.AttrNormal, ap, uxn, pxn)
}
