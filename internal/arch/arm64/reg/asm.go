package reg

// Yield executes a YIELD hint instruction, letting the core drop priority
// for one cycle while spin-polling a register.
//
// defined in reg_arm64.s
func Yield()
