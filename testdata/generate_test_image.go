//go:build ignore

// Test image generator for quantisation runs. It writes a block image with
// eight base colours, each block carrying slight per-pixel noise, so the image
// has many distinct colours that cluster cleanly:
//
//	go run testdata/generate_test_image.go
package main

import (
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"os"
)

func main() {
	width := 400
	height := 400
	img := image.NewNRGBA(image.Rect(0, 0, width, height))

	colors := []color.NRGBA{
		{R: 255, G: 0, B: 0, A: 255},     // Red
		{R: 0, G: 255, B: 0, A: 255},     // Green
		{R: 0, G: 0, B: 255, A: 255},     // Blue
		{R: 255, G: 255, B: 0, A: 255},   // Yellow
		{R: 255, G: 0, B: 255, A: 255},   // Magenta
		{R: 0, G: 255, B: 255, A: 255},   // Cyan
		{R: 128, G: 128, B: 128, A: 255}, // Gray
		{R: 255, G: 128, B: 0, A: 255},   // Orange
	}

	rng := rand.New(rand.NewPCG(1, 2))
	jitter := func(v uint8) uint8 {
		n := int(v) + rng.IntN(17) - 8
		return uint8(min(max(n, 0), 255))
	}

	// 2x4 grid of blocks
	blockWidth := width / 2
	blockHeight := height / 4
	for y := range height {
		for x := range width {
			c := colors[(y/blockHeight)*2+x/blockWidth]
			img.SetNRGBA(x, y, color.NRGBA{R: jitter(c.R), G: jitter(c.G), B: jitter(c.B), A: 255})
		}
	}

	file, err := os.Create("testdata/sample.png")
	if err != nil {
		panic(err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		panic(err)
	}

	println("Test image created: testdata/sample.png")
}
