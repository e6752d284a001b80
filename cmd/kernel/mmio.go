package main

import "corekernel/internal/arch/arm64/reg"

// directMMIO satisfies every narrow register-access interface in this
// tree (hw.MMIO, hw.RegWriter, virtio.Notifier) with a plain absolute
// MMIO read/write, the same one-seam-everywhere discipline
// internal/arch/arm64/reg documents.
type directMMIO struct{}

func (directMMIO) Read32(addr uintptr) uint32       { return reg.Read32(addr) }
func (directMMIO) Write32(addr uintptr, val uint32) { reg.Write32(addr, val) }

// pciConfigSpace implements virtio.ConfigSpace over one PCI function's
// slice of the ECAM window: base already points at the bus/device/function
// the caller selected.
type pciConfigSpace struct{ base uintptr }

func (c pciConfigSpace) Read32(offset uint8) uint32       { return reg.Read32(c.base + uintptr(offset)) }
func (c pciConfigSpace) Write32(offset uint8, val uint32) { reg.Write32(c.base+uintptr(offset), val) }

// commonCfgMMIO implements virtio.CommonCfg over a device's mapped Common
// Configuration capability region.
type commonCfgMMIO struct{ base uintptr }

func (c commonCfgMMIO) Read8(offset uint32) uint8 {
	word := reg.Read32(c.base + uintptr(offset&^0x3))
	return uint8(word >> ((offset & 0x3) * 8))
}

func (c commonCfgMMIO) Read16(offset uint32) uint16 {
	word := reg.Read32(c.base + uintptr(offset&^0x3))
	return uint16(word >> ((offset & 0x3) * 8))
}

func (c commonCfgMMIO) Read32(offset uint32) uint32 { return reg.Read32(c.base + uintptr(offset)) }

func (c commonCfgMMIO) Write8(offset uint32, val uint8) {
	addr := c.base + uintptr(offset&^0x3)
	shift := (offset & 0x3) * 8
	word := reg.Read32(addr)
	word = (word &^ (0xFF << shift)) | uint32(val)<<shift
	reg.Write32(addr, word)
}

func (c commonCfgMMIO) Write16(offset uint32, val uint16) {
	addr := c.base + uintptr(offset&^0x3)
	shift := (offset & 0x3) * 8
	word := reg.Read32(addr)
	word = (word &^ (0xFFFF << shift)) | uint32(val)<<shift
	reg.Write32(addr, word)
}

func (c commonCfgMMIO) Write32(offset uint32, val uint32) { reg.Write32(c.base+uintptr(offset), val) }
