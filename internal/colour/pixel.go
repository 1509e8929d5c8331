// Package colour provides colour quantisation using parallel k-means
// clustering over an image's colour histogram.
package colour

import (
	"errors"
	"fmt"
)

// Channels is the number of 8-bit channels per pixel in a Buffer.
const Channels = 4

var (
	// ErrInvalidBuffer is returned when a Buffer's extents do not match its data.
	ErrInvalidBuffer = errors.New("invalid pixel buffer")

	// ErrInvalidK is returned when the requested colour count cannot be
	// satisfied by the image.
	ErrInvalidK = errors.New("invalid colour count")

	// ErrTaskFailed wraps a failure raised by a parallel quantisation task.
	ErrTaskFailed = errors.New("quantisation task failed")
)

// Pixel is a colour with four 8-bit channels, normally R, G, B and A.
type Pixel [Channels]uint8

// Less orders pixels lexicographically by channel. Cluster centers are kept in
// this order, and nearest-center ties go to the first center.
func (p Pixel) Less(o Pixel) bool {
	for i := range Channels {
		if p[i] != o[i] {
			return p[i] < o[i]
		}
	}
	return false
}

// Compare returns -1, 0 or +1 following Less.
func (p Pixel) Compare(o Pixel) int {
	switch {
	case p.Less(o):
		return -1
	case o.Less(p):
		return 1
	default:
		return 0
	}
}

// Distance returns the squared Euclidean distance over all four channels.
func (p Pixel) Distance(o Pixel) uint64 {
	var d uint64
	for i := range Channels {
		diff := int64(p[i]) - int64(o[i])
		d += uint64(diff * diff)
	}
	return d
}

// packed returns the channels as a single 32-bit value.
func (p Pixel) packed() uint32 {
	return uint32(p[0])<<24 | uint32(p[1])<<16 | uint32(p[2])<<8 | uint32(p[3])
}

// String returns the pixel in the format "rgba(r, g, b, a)".
func (p Pixel) String() string {
	return fmt.Sprintf("rgba(%d, %d, %d, %d)", p[0], p[1], p[2], p[3])
}

// Hex returns "#rrggbb" for opaque pixels and "#rrggbbaa" otherwise.
func (p Pixel) Hex() string {
	if p[3] == 255 {
		return fmt.Sprintf("#%02x%02x%02x", p[0], p[1], p[2])
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", p[0], p[1], p[2], p[3])
}

// Buffer is a row-major pixel buffer with Channels bytes per pixel.
type Buffer struct {
	Rows int
	Cols int
	Pix  []uint8
}

// NewBuffer allocates a zeroed buffer of the given extents.
func NewBuffer(rows, cols int) *Buffer {
	return &Buffer{
		Rows: rows,
		Cols: cols,
		Pix:  make([]uint8, rows*cols*Channels),
	}
}

// Validate checks that the extents are positive and match the data length.
func (b *Buffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: buffer is nil", ErrInvalidBuffer)
	}
	if b.Rows <= 0 || b.Cols <= 0 {
		return fmt.Errorf("%w: extents must be positive, got %dx%d", ErrInvalidBuffer, b.Rows, b.Cols)
	}
	if want := b.Rows * b.Cols * Channels; len(b.Pix) != want {
		return fmt.Errorf("%w: expected %d bytes for %dx%d, got %d", ErrInvalidBuffer, want, b.Rows, b.Cols, len(b.Pix))
	}
	return nil
}

// Len returns the number of pixels.
func (b *Buffer) Len() int {
	return b.Rows * b.Cols
}

// Row returns the bytes of one row.
func (b *Buffer) Row(row int) []uint8 {
	stride := b.Cols * Channels
	return b.Pix[row*stride : (row+1)*stride]
}

// At returns the pixel at (row, col).
func (b *Buffer) At(row, col int) Pixel {
	i := (row*b.Cols + col) * Channels
	return Pixel(b.Pix[i : i+Channels])
}

// Set writes p at (row, col).
func (b *Buffer) Set(row, col int, p Pixel) {
	i := (row*b.Cols + col) * Channels
	copy(b.Pix[i:i+Channels], p[:])
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &Buffer{Rows: b.Rows, Cols: b.Cols, Pix: pix}
}
