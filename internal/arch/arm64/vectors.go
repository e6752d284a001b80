package arm64

// defined in vectors_arm64.s: sixteen 128-byte aligned stubs (4 sources x
// 4 kinds) that save the exception frame and tail-call into
// internal/trap's Dispatcher methods, the same split the teacher's own
// vector_table.s keeps between assembly framing and Go handling.
func vectorTableBase() uintptr

// VectorTableBase returns the address cmd/kernel installs via
// CPU.SetVBAR once boot has built the Dispatcher the stubs call into.
func VectorTableBase() uintptr { return vectorTableBase() }
