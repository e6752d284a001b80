package trap

import (
	"corekernel/internal/arch/arm64"
	"corekernel/internal/kfmt"
)

// handleFault deals with every synchronous exception that isn't an
// SVC: data aborts, instruction aborts, alignment faults, and anything
// the EC decode doesn't recognize. A fault taken from EL1 is always a
// kernel bug, since EL1 code is the core itself and never runs
// untrusted input through an unchecked pointer; a fault from EL0 logs
// and kills the offending process instead.
func (d *Dispatcher) handleFault(frame *arm64.ExceptionFrame, esr arm64.ESR, fromEL0 bool) {
	if !fromEL0 {
		kfmt.Printf("EL1 fault: EC=%x ISS=%x ELR=%x FAR=%x\n", esr.EC, esr.ISS, frame.ELR, frame.FAR)
		kfmt.Panic("trap", "fault taken from EL1")
		return
	}

	cur := d.Sched.Current()
	pid := uint16(0)
	if cur != nil {
		pid = cur.PID
	}

	switch esr.EC {
	case arm64.ECDataAbortLow:
		da := arm64.DecodeDataAbortISS(esr.ISS)
		kfmt.Printf("pid %d: data abort at %x (write=%t, dfsc=%x)\n", pid, frame.FAR, da.WnR, da.DFSC)
	case arm64.ECPrefetchAbortLow:
		kfmt.Printf("pid %d: instruction abort at %x (elr=%x)\n", pid, frame.FAR, frame.ELR)
	default:
		kfmt.Printf("pid %d: unhandled EC=%x ISS=%x elr=%x far=%x\n", pid, esr.EC, esr.ISS, frame.ELR, frame.FAR)
	}

	if cur != nil {
		d.exitProcess(cur, exitCodeForEC(esr.EC))
	}
}
