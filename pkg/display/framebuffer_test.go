package display

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestFramebuffer_DrawTwiceCollides(t *testing.T) {
	f := New()
	sprite := []byte{0xF0, 0x90, 0xF0}

	if f.Draw(10, 5, sprite) {
		t.Errorf("first draw on a cleared screen reported a collision")
	}
	if !f.Pixel(10, 5) || !f.Pixel(13, 5) || f.Pixel(14, 5) {
		t.Errorf("first draw did not light the expected pixels")
	}
	if f.Pixel(11, 6) {
		t.Errorf("pixel (11,6) should be off for row 0x90")
	}

	if !f.Draw(10, 5, sprite) {
		t.Errorf("second draw should report a collision")
	}
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if f.Pixel(x, y) {
				t.Fatalf("pixel (%d,%d) still lit after XOR redraw", x, y)
			}
		}
	}
}

func TestFramebuffer_DrawWrapsPerPixel(t *testing.T) {
	f := New()
	f.Draw(62, 31, []byte{0xFF, 0x80})

	for _, p := range [][2]int{{62, 31}, {63, 31}, {0, 31}, {5, 31}, {62, 0}} {
		if !f.Pixel(p[0], p[1]) {
			t.Errorf("pixel (%d,%d) should be lit by the wrapped sprite", p[0], p[1])
		}
	}
	if f.Pixel(6, 31) {
		t.Errorf("pixel (6,31) should be off")
	}
	if f.Pixel(63, 0) {
		t.Errorf("pixel (63,0) should be off: row 2 only has the MSB set")
	}
}

func TestFramebuffer_CollisionAnyPixel(t *testing.T) {
	f := New()
	f.Draw(0, 0, []byte{0x80})
	// Only the first pixel overlaps; later pixels turn on. The flag must
	// still be reported.
	if !f.Draw(0, 0, []byte{0xFF}) {
		t.Errorf("expected collision when the first pixel turns off")
	}
	if f.Pixel(0, 0) {
		t.Errorf("pixel (0,0) should be off")
	}
	if !f.Pixel(7, 0) {
		t.Errorf("pixel (7,0) should be on")
	}
}

func TestFramebuffer_Clear(t *testing.T) {
	f := New()
	f.Draw(0, 0, []byte{0xFF, 0xFF})
	f.MarkClean()
	f.Clear()
	if !f.Dirty() {
		t.Errorf("Clear should mark the screen dirty")
	}
	if f.Pixel(0, 0) || f.Pixel(7, 1) {
		t.Errorf("Clear left pixels lit")
	}
}

func TestFramebuffer_StateRoundTrip(t *testing.T) {
	f := New()
	f.Draw(3, 7, []byte{0xA5, 0x5A})
	f.Draw(60, 30, []byte{0xFF, 0xFF, 0xFF})

	g := New()
	if err := g.LoadState(f.SaveState()); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if g.pixels != f.pixels {
		t.Errorf("pixels differ after round trip")
	}

	if err := g.LoadState([]byte{1, 2, 3}); err == nil {
		t.Errorf("LoadState accepted a short payload")
	}
}

func TestFramebuffer_RGBA(t *testing.T) {
	f := New()
	f.Draw(1, 0, []byte{0x80})
	pix := f.RGBA()
	if len(pix) != Width*Height*4 {
		t.Fatalf("RGBA length = %d; want %d", len(pix), Width*Height*4)
	}
	if pix[0] != DefaultOff.R || pix[4] != DefaultOn.R || pix[7] != 0xFF {
		t.Errorf("unexpected colours: off=%v on=%v", pix[0:4], pix[4:8])
	}
}

func TestFramebuffer_SaveScreenshot(t *testing.T) {
	f := New()
	f.Draw(0, 0, []byte{0x80})
	path := filepath.Join(t.TempDir(), "shot.png")

	if err := f.SaveScreenshot(path, 4); err != nil {
		t.Fatalf("SaveScreenshot: %v", err)
	}

	in, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer in.Close()
	img, err := png.Decode(in)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != Width*4 || b.Dy() != Height*4 {
		t.Errorf("screenshot size = %dx%d; want %dx%d", b.Dx(), b.Dy(), Width*4, Height*4)
	}
	r, _, _, _ := img.At(3, 3).RGBA()
	if uint8(r>>8) != DefaultOn.R {
		t.Errorf("scaled pixel (3,3) should carry the lit colour")
	}
	r, _, _, _ = img.At(4, 0).RGBA()
	if uint8(r>>8) != DefaultOff.R {
		t.Errorf("scaled pixel (4,0) should carry the unlit colour")
	}
}
