// Package arm64 collects the AArch64 bit-level constants, system-register
// accessors and context-switch primitives the rest of the core builds on:
// the MMU, the trap vectors and the scheduler all depend on this package
// and nothing in it depends back on them.
package arm64

// CPU holds the handful of boot-time values every other subsystem needs
// read access to: the vector table base and the two page-table roots.
type CPU struct {
	VBAR  uintptr
	TTBR0 uintptr
	TTBR1 uintptr
}

// defined in cpu_arm64.s
func readCNTVCT() uint64
func readCNTFRQ() uint64
func readMPIDR() uint64
func readMIDR() uint64
func readCurrentEL() uint64

func writeTTBR0(addr uintptr)
func writeTTBR1(addr uintptr)
func writeVBAR(addr uintptr)
func writeTCR(val uint64)
func writeMAIR(val uint64)
func writeSCTLR(val uint64)
func readSCTLR() uint64

func invalidateTLBAll()
func invalidateTLBVA(va uintptr)
func dsbISH()
func isb()
func dmbISH()
func wfi()
func enableIRQs()
func disableIRQs()
func irqsEnabled() bool

// MonotonicCounter reads the free-running virtual counter (CNTVCT_EL0).
func (c *CPU) MonotonicCounter() uint64 { return readCNTVCT() }

// CounterFrequency reads CNTFRQ_EL0, the counter's tick rate in Hz.
func (c *CPU) CounterFrequency() uint64 { return readCNTFRQ() }

// CoreID extracts Aff0 from MPIDR_EL1.
func (c *CPU) CoreID() uint64 { return readMPIDR() & 0xFF }

// MIDR reads MIDR_EL1, the implementer/part-number identification
// register the Raspberry Pi boot path decodes to tell a Cortex-A72 core
// apart from QEMU's emulated one.
func (c *CPU) MIDR() uint64 { return readMIDR() }

// CurrentEL returns the current exception level, 1 or 2.
func (c *CPU) CurrentEL() int { return int(readCurrentEL()>>2) & 0x3 }

// SetTTBR0 installs the process address space root. The caller must
// already hold IRQs disabled; a context switch that changes TTBR0 without
// also invalidating stale TLB entries for the outgoing ASID will alias.
func (c *CPU) SetTTBR0(phys uintptr) {
	c.TTBR0 = phys
	writeTTBR0(phys)
	isb()
}

// SetTTBR1 installs the shared kernel address space root. Called once
// during boot; the kernel mapping never changes after that.
func (c *CPU) SetTTBR1(phys uintptr) {
	c.TTBR1 = phys
	writeTTBR1(phys)
	isb()
}

// SetVBAR installs the exception vector table base address. Must be
// 2KB-aligned.
func (c *CPU) SetVBAR(addr uintptr) {
	if addr&0x7FF != 0 {
		panic("arm64: VBAR not 2KB aligned")
	}
	c.VBAR = addr
	writeVBAR(addr)
	isb()
}

// EnableMMU programs TCR_EL1/MAIR_EL1 and sets SCTLR_EL1.M, turning on
// stage-1 translation. TTBR0/TTBR1 must already point at valid L0 tables.
func EnableMMU(tcr, mair uint64) {
	writeTCR(tcr)
	writeMAIR(mair)
	isb()
	sctlr := readSCTLR()
	writeSCTLR(sctlr | 1) // SCTLR_EL1.M
	isb()
}

// FlushTLBAll invalidates every stage-1 TLB entry for the current ASID
// space and drains the pipeline. Called after remapping kernel-shared
// ranges, where a stale translation anywhere would be a correctness bug
// rather than a performance one.
func FlushTLBAll() {
	dsbISH()
	invalidateTLBAll()
	dsbISH()
	isb()
}

// FlushTLBPage invalidates the single translation covering va. Used after
// a targeted Map/Unmap instead of the coarser FlushTLBAll.
func FlushTLBPage(va uintptr) {
	dsbISH()
	invalidateTLBVA(va)
	dsbISH()
	isb()
}

// Barrier is exposed for code paths (mailbox, VirtIO notify) that need a
// plain data memory barrier without a TLB flush attached.
func Barrier() { dmbISH() }

// WaitForInterrupt parks the core in low power until the next interrupt,
// used by the scheduler's idle loop when no process is ready.
func WaitForInterrupt() { wfi() }

// EnableIRQs unmasks IRQs at the current exception level (clears
// PSTATE.I). Returns whether IRQs were already enabled beforehand.
func EnableIRQs() bool {
	was := irqsEnabled()
	enableIRQs()
	return was
}

// DisableIRQs masks IRQs and returns whether they were enabled beforehand.
// The scheduler and sleep-queue code bracket every shared-state mutation
// with DisableIRQs/RestoreIRQs instead of a lock, since this core never
// runs more than one hart.
func DisableIRQs() bool {
	was := irqsEnabled()
	disableIRQs()
	return was
}

// RestoreIRQs re-enables IRQs only if they were enabled when the matching
// DisableIRQs ran, so nested disable/restore pairs compose correctly.
func RestoreIRQs(wasEnabled bool) {
	if wasEnabled {
		enableIRQs()
	}
}
