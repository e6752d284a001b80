//go:build rpi4

package main

import (
	"unsafe"

	"corekernel/internal/arch/arm64"
	"corekernel/internal/boot"
	"corekernel/internal/hw"
	"corekernel/internal/kfmt"
)

// unsafeFramebufferBytes views the firmware-allocated framebuffer as a
// byte slice so splash.FlushToBGRX can write into it directly; the
// memory is identity-mapped device memory the GPU already owns, not
// something this core's allocator tracks.
func unsafeFramebufferBytes(fb hw.FramebufferInfo) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(fb.Addr)), fb.Size)
}

const rpi4UARTClockHz = 24_000_000

// setupHardware builds the boot.Hardware value for the Raspberry Pi 4:
// MIDR_EL1-based board confirmation, the GPIO pull-up/down reset sequence
// before the UART pins go live, a mailbox-firmware framebuffer request,
// and the BCM2711 low-peripheral-mode MMIO bases.
func setupHardware() boot.Hardware {
	board := hw.DetectFromMIDR(cpu.MIDR())
	if board != hw.BoardRaspberryPi4 {
		kfmt.Panic("hw", "MIDR_EL1 did not identify a Raspberry Pi 4 Cortex-A72 core")
	}
	bases := hw.Bases(board)

	hw.GPIOEnableUART(bases.GPIO, directMMIO{}, busyDelay)

	uart := hw.NewPL011(bases.UART, directMMIO{})
	uart.Init(rpi4UARTClockHz, 115200)

	mailbox := hw.NewMailbox(bases.Mailbox, directMMIO{})
	var framebuffer []byte
	var fbWidth, fbHeight int
	if fb, err := mailbox.RequestFramebuffer(1024, 768); err == nil {
		framebuffer = unsafeFramebufferBytes(fb)
		fbWidth, fbHeight = int(fb.Width), int(fb.Height)
	} else {
		kfmt.Printf("hw: framebuffer request failed, booting headless\n")
	}

	frameCount := (bases.RAMEnd - bases.RAMStart) / arm64.PageSize
	bitmap := make([]uint64, (frameCount+63)/64)

	return boot.Hardware{
		Counter:       cpu,
		RAMStart:      bases.RAMStart,
		RAMEnd:        bases.RAMEnd,
		BitmapStorage: bitmap,
		Console:       uart,
		Framebuffer:   framebuffer,
		FBWidth:       fbWidth,
		FBHeight:      fbHeight,
	}
}
