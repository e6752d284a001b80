// Package virtio implements the "modern" (1.x) VirtIO-over-PCI transport
// the core's block/net/GPU/audio/9P drivers build on: capability walk,
// feature negotiation, virtqueue setup and a synchronous
// submit-and-wait primitive. Grounded on the teacher's pci_qemu.go
// (capability/BAR walk) and virtio_gpu.go (common-config register
// layout, device-status sequencing); generalized from the teacher's
// single hard-coded bochs-display/GPU device into a transport any
// VirtIO device type can sit on top of, per spec.md §4.7.
package virtio

// PCI configuration-space offsets and capability-list constants, Arm
// Generic PCI Express Base Specification + the VirtIO 1.x PCI binding
// (virtio-v1.1, §4.1.4).
const (
	pciCommand      = 0x04
	pciBAR0         = 0x10
	pciCapabilities = 0x34

	pciCommandIOSpace     = 1 << 0
	pciCommandMemSpace    = 1 << 1
	pciCommandBusMaster   = 1 << 2
	pciCommandEnableAll   = pciCommandIOSpace | pciCommandMemSpace | pciCommandBusMaster
)

// VirtIO PCI capability cfg_type values (virtio-v1.1 §4.1.4).
const (
	CapCommon = 1
	CapNotify = 2
	CapISR    = 3
	CapDevice = 4
)

const pciCapVendorSpecific = 0x09

// ConfigSpace is the PCI configuration-space access seam for one
// function. The real implementation reads/writes through the ECAM
// window (internal/hw supplies the base); tests supply an in-memory
// fake so the capability walk is host-testable.
type ConfigSpace interface {
	Read32(offset uint8) uint32
	Write32(offset uint8, val uint32)
}

func read8(cfg ConfigSpace, offset uint8) uint8 {
	word := cfg.Read32(offset &^ 0x3)
	shift := (offset & 0x3) * 8
	return uint8(word >> shift)
}

// FindCapability walks the PCI capability linked list starting at the
// pointer stored at offset 0x34, stopping at the first vendor-specific
// (0x09) entry whose cfg_type byte (byte 3 of the entry) matches capType.
// Returns 0 if not found, matching the teacher's pciFindCapability
// sentinel.
func FindCapability(cfg ConfigSpace, capType uint8) uint8 {
	capPtr := read8(cfg, pciCapabilities)
	if capPtr == 0 || capPtr == 0xFF {
		return 0
	}

	const maxIterations = 32 // a malformed or cyclic list must not hang the probe
	current := capPtr
	for i := 0; i < maxIterations && current != 0; i++ {
		if read8(cfg, current) == pciCapVendorSpecific && read8(cfg, current+3) == capType {
			return current
		}
		next := read8(cfg, current+1)
		if next == 0 {
			break
		}
		current = next
	}
	return 0
}

// CapInfo is the decoded body of one VirtIO PCI capability: which BAR it
// lives in and at what offset.
type CapInfo struct {
	Offset      uint8
	Bar         uint8
	OffsetInBar uint32
	Found       bool
}

func readCap(cfg ConfigSpace, capType uint8) CapInfo {
	offset := FindCapability(cfg, capType)
	if offset == 0 {
		return CapInfo{}
	}
	bar := read8(cfg, offset+4)
	offsetInBar := cfg.Read32(offset+8) &^ 0x3
	return CapInfo{Offset: offset, Bar: bar, OffsetInBar: offsetInBar, Found: true}
}

// Capabilities collects the four VirtIO PCI capability types the
// transport cares about. Common and Notify are required by the VirtIO
// spec; ISR and Device are optional (a device with no extra config
// space, like some RNG implementations, omits Device).
type Capabilities struct {
	Common, Notify, ISR, Device CapInfo
}

// FindVirtIOCapabilities walks cfg's capability list once per VirtIO
// capability type and decodes all four. ok is false if either of the two
// required capabilities (Common, Notify) is missing — per spec.md §4.7,
// that is fatal for the device being probed.
func FindVirtIOCapabilities(cfg ConfigSpace) (Capabilities, bool) {
	var caps Capabilities
	caps.Common = readCap(cfg, CapCommon)
	caps.Notify = readCap(cfg, CapNotify)
	caps.ISR = readCap(cfg, CapISR)
	caps.Device = readCap(cfg, CapDevice)
	return caps, caps.Common.Found && caps.Notify.Found
}

// EnableDevice sets the PCI command register's I/O space, memory space
// and bus-master bits, the three the device needs before its BARs or
// capability MMIO regions can be touched.
func EnableDevice(cfg ConfigSpace) {
	cmd := cfg.Read32(pciCommand)
	cfg.Write32(pciCommand, cmd|pciCommandEnableAll)
}

// BAR reads BAR n's raw value and masks off the low type/flag bits,
// matching the teacher's `bar & 0xFFFFFFF0` pattern. The core identity-
// maps every PCI MMIO BAR, so the masked value doubles as the base
// address callers map as device memory.
func BAR(cfg ConfigSpace, n uint8) uint32 {
	offset := uint8(pciBAR0 + n*4)
	return cfg.Read32(offset) &^ 0xF
}
