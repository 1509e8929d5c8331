package image

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmylchreest/kquant/internal/colour"
)

// ToBuffer converts img to a non-premultiplied 8-bit RGBA buffer. Greyscale
// sources become grey pixels with opaque alpha, and 16-bit sources are
// narrowed to 8 bits per channel.
func ToBuffer(img image.Image) *colour.Buffer {
	bounds := img.Bounds()

	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Rect.Min != (image.Point{}) || nrgba.Stride != bounds.Dx()*colour.Channels {
		nrgba = image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(nrgba, nrgba.Rect, img, bounds.Min, draw.Src)
	}

	buf := colour.NewBuffer(bounds.Dy(), bounds.Dx())
	copy(buf.Pix, nrgba.Pix)
	return buf
}

// FromBuffer wraps a copy of buf as an NRGBA image.
func FromBuffer(buf *colour.Buffer) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, buf.Cols, buf.Rows))
	copy(img.Pix, buf.Pix)
	return img
}

// SavePNG encodes buf as a PNG file at path, creating parent directories as
// needed.
func SavePNG(path string, buf *colour.Buffer) error {
	if err := buf.Validate(); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(path) // #nosec G304 - User-specified output path
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := png.Encode(file, FromBuffer(buf)); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// OutputPath returns the default output file for input quantised to k
// colours: <dir>/<stem>_quantized_<k>.png.
func OutputPath(input string, k int) string {
	dir := filepath.Dir(input)
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, fmt.Sprintf("%s_quantized_%d.png", stem, k))
}
