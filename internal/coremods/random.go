package coremods

import "corekernel/internal/vfs"

// MonotonicSource is the one piece of entropy available this early in
// boot: the free-running counter internal/timer already wraps. There is
// no hardware RNG driver in scope, so /random is seeded from this and
// nothing else.
type MonotonicSource interface {
	NowMicros() uint64
}

// xorshiftState implements xorshift64 (Marsaglia). It is a fast,
// non-cryptographic stream: good enough for window placement jitter or
// a process asking for a throwaway token, unsuitable for anything a
// security boundary depends on. spec.md §6 leaves /random's quality
// unspecified beyond "bytes", so this resolves that silence in favor of
// the simplest generator the teacher's dependency-light style would use
// rather than pulling in a CSPRNG for a monolithic, single-address-space
// kernel with no adversarial process isolation to begin with.
type xorshiftState uint64

func (s *xorshiftState) next() uint64 {
	x := uint64(*s)
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	*s = xorshiftState(x)
	return x
}

// NewRandom mounts /random: each Read fills buf with xorshift64 output,
// reseeded on every Read from the monotonic clock mixed with the
// descriptor's cursor. Write is unsupported.
func NewRandom(clock MonotonicSource) *vfs.Module {
	return &vfs.Module{
		Name:  "random",
		Mount: "/random",
		Open: func(subpath string, f *vfs.File) error {
			f.Size = 0
			return nil
		},
		Read: func(f *vfs.File, buf []byte) (int, error) {
			seed := clock.NowMicros() ^ 0x9E3779B97F4A7C15 ^ (f.Cursor << 1)
			if seed == 0 {
				seed = 0xDEADBEEFCAFEBABE
			}
			state := xorshiftState(seed)

			n := 0
			for n < len(buf) {
				v := state.next()
				for i := 0; i < 8 && n < len(buf); i++ {
					buf[n] = byte(v)
					v >>= 8
					n++
				}
			}
			f.Cursor += uint64(n)
			return n, nil
		},
	}
}
