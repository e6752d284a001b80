package splash

import (
	"image/color"
	"testing"
)

func TestDefaultPaletteSlotsAreDistinct(t *testing.T) {
	seen := map[color.RGBA]string{}
	slots := map[string]color.RGBA{
		"background": DefaultPalette.Background,
		"foreground": DefaultPalette.Foreground,
		"accent":     DefaultPalette.Accent,
		"panic":      DefaultPalette.Panic,
	}
	for name, c := range slots {
		if other, dup := seen[c]; dup {
			t.Fatalf("palette slots %q and %q share the same color %v", name, other, c)
		}
		seen[c] = name
	}
}

func TestNewCanvasReportsPalette(t *testing.T) {
	c := NewCanvas(64, 32, DefaultPalette)
	if c.Palette() != DefaultPalette {
		t.Fatalf("Palette() = %v, want %v", c.Palette(), DefaultPalette)
	}
}

func TestDrawBootSplashWithoutFaceDoesNotPanic(t *testing.T) {
	c := NewCanvas(64, 32, DefaultPalette)
	c.DrawBootSplash("booting", nil)

	img := c.RGBA()
	bg := DefaultPalette.Background
	r, g, b, a := img.At(0, 0).RGBA()
	wantR, wantG, wantB, wantA := color.RGBA{R: bg.R, G: bg.G, B: bg.B, A: bg.A}.RGBA()
	if r != wantR || g != wantG || b != wantB || a != wantA {
		t.Fatalf("corner pixel = (%d,%d,%d,%d), want background (%d,%d,%d,%d)", r, g, b, a, wantR, wantG, wantB, wantA)
	}
}

func TestDrawBootSplashPaintsAccentAtCenter(t *testing.T) {
	c := NewCanvas(64, 64, DefaultPalette)
	c.DrawBootSplash("", nil)

	img := c.RGBA()
	r, g, b, _ := img.At(32, 32).RGBA()
	accent := DefaultPalette.Accent
	wantR, wantG, wantB, _ := color.RGBA{R: accent.R, G: accent.G, B: accent.B, A: accent.A}.RGBA()
	if r != wantR || g != wantG || b != wantB {
		t.Fatalf("center pixel = (%d,%d,%d), want accent (%d,%d,%d)", r, g, b, wantR, wantG, wantB)
	}
}

func TestDrawPanicScreenFillsWithPanicColor(t *testing.T) {
	c := NewCanvas(16, 16, DefaultPalette)
	c.DrawPanicScreen()

	img := c.RGBA()
	panicColor := DefaultPalette.Panic
	wantR, wantG, wantB, wantA := color.RGBA{R: panicColor.R, G: panicColor.G, B: panicColor.B, A: panicColor.A}.RGBA()
	for _, pt := range [][2]int{{0, 0}, {15, 15}, {8, 8}} {
		r, g, b, a := img.At(pt[0], pt[1]).RGBA()
		if r != wantR || g != wantG || b != wantB || a != wantA {
			t.Fatalf("pixel %v = (%d,%d,%d,%d), want panic color (%d,%d,%d,%d)", pt, r, g, b, a, wantR, wantG, wantB, wantA)
		}
	}
}

func TestLoadLabelFaceRejectsGarbageData(t *testing.T) {
	_, err := LoadLabelFace([]byte("not a font"), 12)
	if err == nil {
		t.Fatal("expected an error parsing non-font bytes, got nil")
	}
}

func TestFlushToBGRXSwapsRedAndBlue(t *testing.T) {
	c := NewCanvas(2, 2, Palette{
		Background: color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xFF},
		Foreground: DefaultPalette.Foreground,
		Accent:     color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xFF}, // same as Background, so the circle's edge leaves pixel 0 unchanged
		Panic:      DefaultPalette.Panic,
	})
	c.DrawBootSplash("", nil)

	dst := make([]byte, 2*2*4)
	n := FlushToBGRX(dst, c.RGBA())
	if n != len(dst) {
		t.Fatalf("FlushToBGRX wrote %d bytes, want %d", n, len(dst))
	}
	if dst[0] != 0x30 || dst[1] != 0x20 || dst[2] != 0x10 || dst[3] != 0xFF {
		t.Fatalf("pixel 0 = %v, want BGRX(0x30,0x20,0x10,0xFF)", dst[0:4])
	}
}
