// Package splash owns the shared framebuffer page during early boot,
// before any window-manager process exists to claim it: a small vector
// boot splash drawn with github.com/fogleman/gg, and the palette that
// /theme later hands to every process so a real window manager's colors
// match what booted on screen. Grounded on the teacher's
// gg_circle_qemu.go (same library, same "draw a circle into an RGBA
// backbuffer, flush into the BGRX hardware framebuffer" shape) and
// pci_qemu.go's documented note that bochs-display framebuffers are
// byte-order BGR, not RGB.
package splash

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
)

// Palette is the small fixed set of colors the core and, later, the
// window manager agree on. /theme (internal/coremods) serves exactly
// this struct over the file interface.
type Palette struct {
	Background color.RGBA
	Foreground color.RGBA
	Accent     color.RGBA
	Panic      color.RGBA
}

// DefaultPalette is used until a theme is explicitly installed. The
// Panic color intentionally reuses no other slot's hue, so the panic
// screen (spec.md §7) is unmistakable even to someone who has never
// seen this kernel boot before.
var DefaultPalette = Palette{
	Background: color.RGBA{R: 0x10, G: 0x12, B: 0x18, A: 0xFF},
	Foreground: color.RGBA{R: 0xE8, G: 0xE8, B: 0xE8, A: 0xFF},
	Accent:     color.RGBA{R: 0x4A, G: 0x9E, B: 0xD9, A: 0xFF},
	Panic:      color.RGBA{R: 0xC0, G: 0x1C, B: 0x28, A: 0xFF},
}

// Canvas wraps a gg.Context sized to the framebuffer the boot splash
// draws into. The core never retains the mapping past the one draw this
// type performs; see spec.md §9's framebuffer-ownership design note.
type Canvas struct {
	ctx     *gg.Context
	palette Palette
}

// NewCanvas allocates an in-memory RGBA backbuffer of the given
// dimensions to draw into.
func NewCanvas(width, height int, palette Palette) *Canvas {
	return &Canvas{ctx: gg.NewContext(width, height), palette: palette}
}

// Palette returns the palette this canvas was built with, the same
// value /theme serves.
func (c *Canvas) Palette() Palette { return c.palette }

func setColor(ctx *gg.Context, c color.RGBA) {
	ctx.SetRGBA255(int(c.R), int(c.G), int(c.B), int(c.A))
}

// DrawBootSplash clears the canvas to Background, draws a filled Accent
// circle centered on the canvas, and, if face is non-nil, labels it
// below in Foreground. face comes from LoadLabelFace; a nil face skips
// the label entirely rather than drawing with a missing font.
func (c *Canvas) DrawBootSplash(label string, face font.Face) {
	setColor(c.ctx, c.palette.Background)
	c.ctx.Clear()

	w, h := float64(c.ctx.Width()), float64(c.ctx.Height())
	cx, cy := w/2, h/2
	radius := h / 6
	if w/6 < radius {
		radius = w / 6
	}

	setColor(c.ctx, c.palette.Accent)
	c.ctx.DrawCircle(cx, cy, radius)
	c.ctx.Fill()

	if face == nil || label == "" {
		return
	}
	c.ctx.SetFontFace(face)
	setColor(c.ctx, c.palette.Foreground)
	c.ctx.DrawStringAnchored(label, cx, cy+radius+24, 0.5, 0.5)
}

// DrawPanicScreen fills the whole canvas with the Panic color, per
// spec.md §7's panic path ("switches the screen to the panic color").
func (c *Canvas) DrawPanicScreen() {
	setColor(c.ctx, c.palette.Panic)
	c.ctx.Clear()
}

// RGBA returns the drawn backbuffer.
func (c *Canvas) RGBA() *image.RGBA {
	return c.ctx.Image().(*image.RGBA)
}

// LoadLabelFace parses TrueType font bytes (typically a go:embed'd asset
// wired in cmd/kernel, since there is no filesystem this early in boot)
// and returns a font.Face sized in points, for the one piece of label
// text the boot splash draws.
func LoadLabelFace(fontData []byte, points float64) (font.Face, error) {
	parsed, err := truetype.Parse(fontData)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(parsed, &truetype.Options{Size: points}), nil
}

// FlushToBGRX copies an RGBA backbuffer into a BGRX8888 hardware
// framebuffer, swapping the red and blue channels per the teacher's
// documented bochs-display byte order. dst must be at least
// 4*img.Bounds().Dx()*img.Bounds().Dy() bytes.
func FlushToBGRX(dst []byte, img *image.RGBA) int {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	written := 0
	for y := 0; y < h; y++ {
		rowOff := img.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		row := img.Pix[rowOff : rowOff+w*4]
		dstRow := dst[written : written+w*4]
		for x := 0; x < w; x++ {
			r, g, b, a := row[x*4], row[x*4+1], row[x*4+2], row[x*4+3]
			dstRow[x*4+0] = b
			dstRow[x*4+1] = g
			dstRow[x*4+2] = r
			dstRow[x*4+3] = a
		}
		written += w * 4
	}
	return written
}
