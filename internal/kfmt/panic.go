package kfmt

// haltFn is swapped out by tests; in the real kernel it points at the
// arch-specific WFI spin loop.
var haltFn = func() {
	for {
	}
}

// SetHaltFunc installs the CPU halt primitive. Called once from
// cmd/kernel's main with the arch package's WFI loop; tests can install a
// function that just returns.
func SetHaltFunc(fn func()) { haltFn = fn }

// Panic prints a banner plus the supplied message and halts. Every EL1
// fault and every kernel invariant violation routes through here so there
// is exactly one place that decides what a fatal error looks like on the
// console.
func Panic(module, message string) {
	Printf("\n-----------------------------------\n")
	Printf("[%s] unrecoverable error: %s\n", module, message)
	Printf("*** kernel panic: system halted ***\n")
	Printf("-----------------------------------\n")
	haltFn()
}
