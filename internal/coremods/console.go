// Package coremods builds the vfs.Module instances the core itself
// mounts, as opposed to the out-of-scope device drivers spec.md §6
// only reserves a path prefix for: the console line driver, the
// per-process /proc entries, the /theme palette surface and the
// /random generator. Grounded on original_source/kernel/dev/
// module_loader.c's module table for which of these the kernel proper
// owns versus leaves to a driver.
package coremods

import (
	kerrors "corekernel/internal/kernel/errors"
	"corekernel/internal/vfs"
)

// LineIO is the narrow seam the console module reads/writes through.
// The real implementation is the PL011 UART driver (wired in
// cmd/kernel); tests supply an in-memory fake.
type LineIO interface {
	WriteLine(data []byte) int
	ReadByte() (byte, bool)
}

// NewConsole mounts /dev/console: PRINTL and any process writing
// directly to the descriptor go out over io, and reads pull whatever
// bytes are available rather than blocking (blocking input goes through
// READ_KEY against a process's own input ring, not this module).
func NewConsole(io LineIO) *vfs.Module {
	return &vfs.Module{
		Name:  "console",
		Mount: "/dev/console",
		Open: func(subpath string, f *vfs.File) error {
			f.Size = 0 // a character stream has no fixed length
			return nil
		},
		Read: func(f *vfs.File, buf []byte) (int, error) {
			n := 0
			for n < len(buf) {
				b, ok := io.ReadByte()
				if !ok {
					break
				}
				buf[n] = b
				n++
			}
			return n, nil
		},
		Write: func(f *vfs.File, buf []byte) (int, error) {
			return io.WriteLine(buf), nil
		},
	}
}

// ConsoleSink adapts a LineIO into an io.Writer so it can be installed
// as kfmt's output sink (kfmt.SetOutputSink), letting Printf diagnostics
// and the console module share the same wire.
type ConsoleSink struct{ IO LineIO }

func (c ConsoleSink) Write(p []byte) (int, error) {
	n := c.IO.WriteLine(p)
	if n < len(p) {
		return n, kerrors.ErrNoResources
	}
	return n, nil
}
