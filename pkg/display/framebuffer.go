// Package display implements the 64x32 monochrome CHIP-8 screen.
package display

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	xdraw "golang.org/x/image/draw"

	"gochip8/pkg/grid"
)

const (
	Width  = 64
	Height = 32
)

// stateSize is the packed size of the screen, one bit per pixel.
const stateSize = Width * Height / 8

// Default colours for lit and unlit pixels.
var (
	DefaultOn  = color.RGBA{R: 0xFF, G: 0xF1, B: 0xE8, A: 0xFF}
	DefaultOff = color.RGBA{R: 0x1D, G: 0x2B, B: 0x53, A: 0xFF}
)

// Framebuffer holds the screen pixels and renders them to RGBA.
type Framebuffer struct {
	pixels [Width * Height]bool

	On  color.RGBA
	Off color.RGBA

	dirty bool
}

func New() *Framebuffer {
	return &Framebuffer{On: DefaultOn, Off: DefaultOff, dirty: true}
}

// Clear turns every pixel off.
func (f *Framebuffer) Clear() {
	f.pixels = [Width * Height]bool{}
	f.dirty = true
}

// Draw XORs each sprite row onto the screen at (x, y), MSB leftmost. Every
// pixel coordinate wraps around the screen edges. It reports whether any
// pixel went from on to off.
func (f *Framebuffer) Draw(x, y uint8, sprite []byte) bool {
	collision := false
	for row, bits := range sprite {
		py := grid.Wrap(int(y)+row, Height)
		for bit := 0; bit < 8; bit++ {
			if bits&(0x80>>bit) == 0 {
				continue
			}
			px := grid.Wrap(int(x)+bit, Width)
			idx := grid.Index(px, py, Width)
			if f.pixels[idx] {
				collision = true
			}
			f.pixels[idx] = !f.pixels[idx]
		}
	}
	f.dirty = true
	return collision
}

// Pixel reports whether the pixel at (x, y) is lit. Coordinates wrap.
func (f *Framebuffer) Pixel(x, y int) bool {
	return f.pixels[grid.Index(grid.Wrap(x, Width), grid.Wrap(y, Height), Width)]
}

// Dirty reports whether the screen changed since the last MarkClean.
func (f *Framebuffer) Dirty() bool { return f.dirty }

func (f *Framebuffer) MarkClean() { f.dirty = false }

// RGBA returns the screen as Width*Height RGBA8888 pixels.
func (f *Framebuffer) RGBA() []byte {
	pix := make([]byte, Width*Height*4)
	for i, lit := range f.pixels {
		c := f.Off
		if lit {
			c = f.On
		}
		pix[i*4+0] = c.R
		pix[i*4+1] = c.G
		pix[i*4+2] = c.B
		pix[i*4+3] = c.A
	}
	return pix
}

// Image returns the screen as an *image.RGBA.
func (f *Framebuffer) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    f.RGBA(),
		Stride: Width * 4,
		Rect:   image.Rect(0, 0, Width, Height),
	}
}

// Scaled returns the screen enlarged by scale with hard pixel edges.
func (f *Framebuffer) Scaled(scale int) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	src := f.Image()
	dst := image.NewRGBA(image.Rect(0, 0, Width*scale, Height*scale))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// SaveScreenshot encodes the screen, enlarged by scale, as a PNG file.
func (f *Framebuffer) SaveScreenshot(filename string, scale int) error {
	img := f.Scaled(scale)
	out, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// SaveState packs the pixels into bytes, eight pixels per byte, MSB first.
func (f *Framebuffer) SaveState() []byte {
	data := make([]byte, stateSize)
	for i, lit := range f.pixels {
		if lit {
			data[i/8] |= 0x80 >> (i % 8)
		}
	}
	return data
}

// LoadState restores pixels packed by SaveState.
func (f *Framebuffer) LoadState(data []byte) error {
	if len(data) != stateSize {
		return fmt.Errorf("display.LoadState: need %d bytes, got %d", stateSize, len(data))
	}
	for i := range f.pixels {
		f.pixels[i] = data[i/8]&(0x80>>(i%8)) != 0
	}
	f.dirty = true
	return nil
}
