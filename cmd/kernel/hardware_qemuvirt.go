//go:build qemuvirt

package main

import (
	"corekernel/internal/arch/arm64"
	"corekernel/internal/boot"
	"corekernel/internal/hw"
	"corekernel/internal/kfmt"
	"corekernel/internal/virtio"
)

const qemuVirtUARTClockHz = 24_000_000

// setupHardware builds the boot.Hardware value for QEMU's `virt` machine
// type: fixed MMIO bases (no MIDR probe needed, the board is selected by
// this build tag per spec.md §6), a PL011 console, and a PCI bus scan
// that logs any VirtIO device it finds without driving one, since
// individual device drivers are out of scope.
func setupHardware() boot.Hardware {
	bases := hw.Bases(hw.BoardQEMUVirt)

	uart := hw.NewPL011(bases.UART, directMMIO{})
	uart.Init(qemuVirtUARTClockHz, 115200)

	scanPCIForVirtIO(bases.PCIECAM)

	frameCount := (bases.RAMEnd - bases.RAMStart) / arm64.PageSize
	bitmap := make([]uint64, (frameCount+63)/64)

	return boot.Hardware{
		Counter:       cpu,
		RAMStart:      bases.RAMStart,
		RAMEnd:        bases.RAMEnd,
		BitmapStorage: bitmap,
		Console:       uart,
	}
}

// scanPCIForVirtIO walks bus 0's 32 device slots looking for the VirtIO
// vendor ID, per spec.md §6's "on the virtualized path PCI is enumerated
// to find VirtIO devices." It only logs what it finds; handing the
// device to a driver is out of this core's scope.
func scanPCIForVirtIO(ecamBase uintptr) {
	if ecamBase == 0 {
		return
	}
	const virtioVendorID = 0x1AF4

	for device := uintptr(0); device < 32; device++ {
		funcBase := ecamBase + (device << 15)
		cfg := pciConfigSpace{base: funcBase}

		idReg := cfg.Read32(0)
		vendor := idReg & 0xFFFF
		if vendor != virtioVendorID {
			continue
		}
		devID := idReg >> 16

		virtio.EnableDevice(cfg)
		caps, ok := virtio.FindVirtIOCapabilities(cfg)
		kfmt.Printf("pci: found virtio device %x at slot %d (required caps present: %t)\n", devID, device, ok)
		_ = caps
	}
}
