package render

import (
	"image/color"
	"math"
)

// fillShadeRGBA converts cell shades in [0, 1) into RGBA pixels using a
// palette. When the palette is empty the buffer is cleared to transparent
// black.
func fillShadeRGBA(buf []byte, shades []float64, palette []color.RGBA) {
	if len(palette) == 0 {
		clear(buf[:4*len(shades)])
		return
	}

	for i, s := range shades {
		col := palette[paletteIndex(s, len(palette))]
		base := i * 4
		buf[base+0] = col.R
		buf[base+1] = col.G
		buf[base+2] = col.B
		buf[base+3] = col.A
	}
}

// paletteIndex maps a shade onto one of n palette entries. Shades of the
// form k/n land exactly on entry k.
func paletteIndex(shade float64, n int) int {
	idx := int(math.Floor(shade*float64(n) + 1e-9))
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

// viridisStops samples the viridis colour map at nine evenly spaced points.
var viridisStops = [...]color.RGBA{
	{68, 1, 84, 255},
	{71, 44, 122, 255},
	{59, 81, 139, 255},
	{44, 113, 142, 255},
	{33, 144, 141, 255},
	{39, 173, 129, 255},
	{92, 200, 99, 255},
	{170, 220, 50, 255},
	{253, 231, 37, 255},
}

// Viridis returns n colours spread evenly over the viridis map, from dark
// purple to yellow.
func Viridis(n int) []color.RGBA {
	if n <= 0 {
		return nil
	}
	out := make([]color.RGBA, n)
	if n == 1 {
		out[0] = viridisStops[0]
		return out
	}
	segments := float64(len(viridisStops) - 1)
	for i := range out {
		pos := float64(i) / float64(n-1) * segments
		lo := int(pos)
		if lo >= len(viridisStops)-1 {
			out[i] = viridisStops[len(viridisStops)-1]
			continue
		}
		out[i] = lerp(viridisStops[lo], viridisStops[lo+1], pos-float64(lo))
	}
	return out
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 255}
}
