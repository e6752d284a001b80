package arm64

// ESR_EL1 exception class (EC) values, bits [31:26]. Armv8-A Architecture
// Reference Manual, D13.2.37.
const (
	ECUnknown          = 0b000000
	ECTrapWFx          = 0b000001
	ECTrapMRSMSR       = 0b011000
	ECSVC64            = 0b010101 // SVC from AArch64 EL0/EL1
	ECPrefetchAbortLow = 0b100000 // instruction abort from a lower EL
	ECPrefetchAbortCur = 0b100001 // instruction abort, same EL
	ECDataAbortLow     = 0b100100 // data abort from a lower EL
	ECDataAbortCur     = 0b100101 // data abort, same EL
	ECBreakpointLow    = 0b110000
	ECSoftwareStepLow  = 0b110010
	ECWatchpointLow    = 0b110100
	ECSError           = 0b101111
)

// ESR returns the decoded fields of an ESR_EL1 value: exception class and
// instruction-specific syndrome.
type ESR struct {
	EC  uint32
	ISS uint32
	IL  bool // instruction length, true = 32-bit instruction trapped
}

// DecodeESR splits a raw ESR_EL1 register value into its fields.
func DecodeESR(raw uint64) ESR {
	return ESR{
		EC:  uint32(raw>>26) & 0x3F,
		IL:  raw&(1<<25) != 0,
		ISS: uint32(raw) & 0x1FF_FFFF,
	}
}

// DataAbortISS decodes the instruction-specific syndrome of a data-abort
// exception class. WnR is true when the faulting access was a write.
type DataAbortISS struct {
	DFSC uint32 // data fault status code, bits [5:0]
	WnR  bool
}

func DecodeDataAbortISS(iss uint32) DataAbortISS {
	return DataAbortISS{
		DFSC: iss & 0x3F,
		WnR:  iss&(1<<6) != 0,
	}
}

// ExceptionFrame is the register save area built by the vector-table stub
// before it calls into Go. Field order matches the stp/ldp pairs the
// assembly stub uses, so this struct must stay binary-compatible with the
// layout in vectors_arm64.s.
type ExceptionFrame struct {
	X      [31]uint64 // x0-x30
	SPEL0  uint64
	ELR    uint64
	SPSR   uint64
	ESR    uint64
	FAR    uint64
}
