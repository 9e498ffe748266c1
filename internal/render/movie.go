package render

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/icza/mjpeg"
)

// Movie writes frames of a fixed size into an MJPEG AVI file.
type Movie struct {
	w      mjpeg.AviWriter
	bounds image.Rectangle
	buf    bytes.Buffer
	opts   jpeg.Options
	frames int
	closed bool
}

// NewMovie creates path for width×height frames played at fps.
func NewMovie(path string, width, height, fps int) (*Movie, error) {
	if width <= 0 || height <= 0 || fps <= 0 {
		return nil, fmt.Errorf("movie: invalid geometry %dx%d at %d fps", width, height, fps)
	}
	w, err := mjpeg.New(path, int32(width), int32(height), int32(fps))
	if err != nil {
		return nil, fmt.Errorf("movie: %w", err)
	}
	return &Movie{
		w:      w,
		bounds: image.Rect(0, 0, width, height),
		opts:   jpeg.Options{Quality: 90},
	}, nil
}

// AddFrame appends img. Its size must match the movie.
func (m *Movie) AddFrame(img image.Image) error {
	if m.closed {
		return fmt.Errorf("movie: add frame after close")
	}
	if b := img.Bounds(); b.Dx() != m.bounds.Dx() || b.Dy() != m.bounds.Dy() {
		return fmt.Errorf("movie: frame is %dx%d, want %dx%d", b.Dx(), b.Dy(), m.bounds.Dx(), m.bounds.Dy())
	}
	m.buf.Reset()
	if err := jpeg.Encode(&m.buf, img, &m.opts); err != nil {
		return fmt.Errorf("movie: encode frame %d: %w", m.frames, err)
	}
	if err := m.w.AddFrame(m.buf.Bytes()); err != nil {
		return fmt.Errorf("movie: add frame %d: %w", m.frames, err)
	}
	m.frames++
	return nil
}

// Frames reports how many frames were written.
func (m *Movie) Frames() int { return m.frames }

// Close finalises the AVI index. Closing twice is a no-op.
func (m *Movie) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return m.w.Close()
}
