package hw

// GPIO register offsets from the Raspberry Pi's GPIO base (BCM2711 ARM
// Peripherals, §5). Only the pull-up/down control pair the UART init
// sequence needs is modeled; the core does not drive any other pin.
const (
	gpioGPPUDOffset    = 0x94
	gpioGPPUDCLK0Offset = 0x98
)

// uartGPIOPins is the bitmask for GPIO14 (TXD0) and GPIO15 (RXD0), the
// two pins the PL011 UART is multiplexed onto.
const uartGPIOPins = (1 << 14) | (1 << 15)

// gpioSettleCycles is the fixed delay the BCM2835/2711 datasheet's GPIO
// pull-up/down sequence requires between each step; the real hardware
// has no interrupt or status bit for "the control signal has settled",
// only a documented cycle count.
const gpioSettleCycles = 150

// RegWriter is the narrow MMIO seam GPIOEnableUART writes through, so
// the sequencing logic is testable without real hardware: a test
// supplies a fake that just records offsets and values.
type RegWriter interface {
	Write32(addr uintptr, val uint32)
}

// Delay is called with the number of cycles to wait; production wiring
// passes a busy-loop, tests pass a call counter.
type Delay func(cycles int)

// GPIOEnableUART runs the Raspberry Pi GPIO pull-up/down disable
// sequence for the UART TX/RX pins (spec.md §6): write 0 to GPPUD to
// disable pull-up/down control, wait the documented settle time, assert
// the clock bits for GPIO14/15 in GPPUDCLK0, wait again, then clear the
// clock bits and the control register to latch the change.
func GPIOEnableUART(base uintptr, w RegWriter, delay Delay) {
	w.Write32(base+gpioGPPUDOffset, 0)
	delay(gpioSettleCycles)

	w.Write32(base+gpioGPPUDCLK0Offset, uartGPIOPins)
	delay(gpioSettleCycles)

	w.Write32(base+gpioGPPUDCLK0Offset, 0)
	w.Write32(base+gpioGPPUDOffset, 0)
}
