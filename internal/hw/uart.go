package hw

// PL011 register offsets (ARM PrimeCell UART, §3.3), the same layout the
// teacher's uart_qemu.go hard-codes for the QEMU virt machine's UART and
// the Raspberry Pi 4 multiplexes onto GPIO14/15 via GPIOEnableUART.
const (
	uartDR   = 0x00
	uartFR   = 0x18
	uartIBRD = 0x24
	uartFBRD = 0x28
	uartLCRH = 0x2C
	uartCR   = 0x30
	uartIMSC = 0x38
	uartICR  = 0x44

	uartFRTXFF = 1 << 5 // transmit FIFO full
	uartFRRXFE = 1 << 4 // receive FIFO empty

	uartLCRHFEN  = 1 << 4 // enable FIFOs
	uartLCRHWLEN = 3 << 5 // 8 data bits

	uartCRUARTEN = 1 << 0
	uartCRTXE    = 1 << 8
	uartCRRXE    = 1 << 9
)

// MMIO is the read/write seam PL011 operates through; production code
// wires it to arch/arm64/reg, tests supply an in-memory fake.
type MMIO interface {
	Read32(addr uintptr) uint32
	Write32(addr uintptr, val uint32)
}

// PL011 drives one ARM PrimeCell UART instance. It implements
// coremods.LineIO by structural match (WriteLine/ReadByte) without this
// package importing coremods, same reasoning internal/coremods used to
// avoid importing internal/trap back.
type PL011 struct {
	base uintptr
	mmio MMIO
}

// NewPL011 returns a driver for the UART at base. Init must be called
// once before use.
func NewPL011(base uintptr, mmio MMIO) *PL011 {
	return &PL011{base: base, mmio: mmio}
}

// Init disables the UART, programs the baud-rate divisors (integer and
// fractional, per the PL011 TRM's formula baudDiv = UARTCLK / (16 *
// baud)), selects 8N1 with FIFOs enabled, then re-enables the UART for
// TX and RX. uartClockHz is the PL011's reference clock (24MHz on both
// supported boards); baud is the desired line rate.
func (u *PL011) Init(uartClockHz, baud uint32) {
	u.mmio.Write32(u.base+uartCR, 0)

	divTimes64 := uint64(uartClockHz) * 4 / uint64(baud)
	intDiv := uint32(divTimes64 >> 6)
	fracDiv := uint32(divTimes64 & 0x3F)

	u.mmio.Write32(u.base+uartIBRD, intDiv)
	u.mmio.Write32(u.base+uartFBRD, fracDiv)
	u.mmio.Write32(u.base+uartLCRH, uartLCRHFEN|uartLCRHWLEN)
	u.mmio.Write32(u.base+uartIMSC, 0)
	u.mmio.Write32(u.base+uartCR, uartCRUARTEN|uartCRTXE|uartCRRXE)
}

// WriteLine blocks on the TX FIFO-full flag for each byte in turn and
// always writes the whole buffer, matching coremods.LineIO's contract.
func (u *PL011) WriteLine(data []byte) int {
	for _, b := range data {
		for u.mmio.Read32(u.base+uartFR)&uartFRTXFF != 0 {
		}
		u.mmio.Write32(u.base+uartDR, uint32(b))
	}
	return len(data)
}

// ReadByte returns the next received byte without blocking; ok is false
// if the receive FIFO is currently empty.
func (u *PL011) ReadByte() (byte, bool) {
	if u.mmio.Read32(u.base+uartFR)&uartFRRXFE != 0 {
		return 0, false
	}
	return byte(u.mmio.Read32(u.base + uartDR)), true
}
