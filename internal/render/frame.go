// Package render turns lattice models into images: single frames, side by
// side montages and MJPEG movies.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Bigbadasianboy2/Complex-system-playground/internal/core"
)

// MaxLevels is the palette size used when a model cannot report how many
// distinct states it has.
const MaxLevels = 256

const (
	captionHeight = 20
	captionPad    = 4
)

// leveled is implemented by models that know their number of distinct
// states, so each state gets its own palette entry.
type leveled interface {
	Levels(maxLevels int) int
}

// Palette picks the palette for sim.
func Palette(sim core.Sim) []color.RGBA {
	n := MaxLevels
	if l, ok := sim.(leveled); ok {
		if levels := l.Levels(MaxLevels); levels > 0 {
			n = levels
		}
	}
	return Viridis(n)
}

// Frame draws sim with every cell scaled to scale×scale pixels. A non-empty
// caption is written on a strip below the lattice.
func Frame(sim core.Sim, scale int, caption string) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	size := sim.Size()

	shades := make([]float64, size.W*size.H)
	for y := 0; y < size.H; y++ {
		for x := 0; x < size.W; x++ {
			shades[y*size.W+x] = sim.Shade(x, y)
		}
	}
	cells := image.NewRGBA(image.Rect(0, 0, size.W, size.H))
	fillShadeRGBA(cells.Pix, shades, Palette(sim))

	h := size.H * scale
	if caption != "" {
		h += captionHeight
	}
	img := image.NewRGBA(image.Rect(0, 0, size.W*scale, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	xdraw.NearestNeighbor.Scale(img, image.Rect(0, 0, size.W*scale, size.H*scale), cells, cells.Bounds(), draw.Src, nil)

	if caption != "" {
		addLabel(img, captionPad, size.H*scale+captionHeight-captionPad-2, caption, color.Black)
	}
	return img
}

// addLabel draws a text label with its baseline at (x, y).
func addLabel(img *image.RGBA, x, y int, label string, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(label)
}

// Montage places frames left to right, gap pixels apart, on a white
// background. Frames of different heights are top aligned.
func Montage(frames []*image.RGBA, gap int) *image.RGBA {
	w, h := 0, 0
	for i, f := range frames {
		b := f.Bounds()
		if i > 0 {
			w += gap
		}
		w += b.Dx()
		h = max(h, b.Dy())
	}
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	x := 0
	for _, f := range frames {
		b := f.Bounds()
		draw.Draw(out, image.Rect(x, 0, x+b.Dx(), b.Dy()), f, b.Min, draw.Src)
		x += b.Dx() + gap
	}
	return out
}

// WritePNG encodes img to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
