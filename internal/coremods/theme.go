package coremods

import (
	"corekernel/internal/splash"
	"corekernel/internal/vfs"
)

// encodeTheme packs the four palette slots as R,G,B,A bytes each, in the
// fixed order background, foreground, accent, panic, so a reader needs
// no schema beyond "four RGBA quads in that order".
func encodeTheme(p splash.Palette) []byte {
	buf := make([]byte, 0, 16)
	for _, c := range [4]struct{ R, G, B, A byte }{
		{p.Background.R, p.Background.G, p.Background.B, p.Background.A},
		{p.Foreground.R, p.Foreground.G, p.Foreground.B, p.Foreground.A},
		{p.Accent.R, p.Accent.G, p.Accent.B, p.Accent.A},
		{p.Panic.R, p.Panic.G, p.Panic.B, p.Panic.A},
	} {
		buf = append(buf, c.R, c.G, c.B, c.A)
	}
	return buf
}

// NewTheme mounts /theme: the exact palette the boot splash drew with,
// so a later window manager process can match its own chrome to what
// already appeared on screen at boot instead of guessing at colors.
// Read-only; there is no Write hook because the palette is fixed for
// the lifetime of one boot, per spec.md §4.9.
func NewTheme(palette splash.Palette) *vfs.Module {
	data := encodeTheme(palette)

	return &vfs.Module{
		Name:  "theme",
		Mount: "/theme",
		Open: func(subpath string, f *vfs.File) error {
			f.Size = uint64(len(data))
			return nil
		},
		Read: func(f *vfs.File, buf []byte) (int, error) {
			if f.Cursor >= uint64(len(data)) {
				return 0, nil
			}
			n := copy(buf, data[f.Cursor:])
			f.Cursor += uint64(n)
			return n, nil
		},
		Readdir: func(subpath string) ([]string, error) {
			return []string{"background", "foreground", "accent", "panic"}, nil
		},
	}
}
