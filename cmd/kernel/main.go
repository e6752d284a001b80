package main

import (
	"corekernel/internal/arch/arm64"
	"corekernel/internal/boot"
	"corekernel/internal/kfmt"
)

// cpu is the one CPU value this uniprocessor core ever needs; every
// register-level operation (TTBR/VBAR installs, the counter readings
// internal/timer wraps) goes through it.
var cpu = &arm64.CPU{}

// busyDelay spins for roughly n cycles; passed to hw.GPIOEnableUART's
// delay parameter, which has no status bit to poll instead.
func busyDelay(n int) {
	for i := 0; i < n; i++ {
		arm64.Barrier()
	}
}

// setupHardware is implemented per board in hardware_qemuvirt.go and
// hardware_rpi4.go, selected by build tag.

func main() {
	kfmt.SetHaltFunc(func() {
		for {
			arm64.WaitForInterrupt()
		}
	})

	hw := setupHardware()
	kernel := boot.Run(hw)

	cpu.SetVBAR(arm64.VectorTableBase())
	cpu.SetTTBR1(kernel.KernelMap.Root)

	kfmt.Printf("core: boot complete, entering scheduler\n")

	idle, err := kernel.Scheduler.Spawn()
	if err != nil {
		kfmt.Panic("main", "failed to spawn idle process")
	}
	_ = idle

	arm64.EnableIRQs()
	if err := kernel.Scheduler.Switch(); err != nil {
		kfmt.Panic("main", "scheduler had nothing ready to run")
	}

	// Switch only returns here if the assembly ERET stub itself returns,
	// which never happens on real hardware; parked as a safety net.
	for {
		arm64.WaitForInterrupt()
	}
}
