package colour

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Palette is the set of representative colours produced by a quantisation
// run, optionally with the share of pixels each colour covers.
type Palette struct {
	Colours []Pixel
	Weights []float64
}

// NewPalette creates a new Palette with the given colours.
func NewPalette(colours []Pixel) *Palette {
	return &Palette{
		Colours: colours,
	}
}

// NewPaletteWithWeights creates a Palette whose colours carry pixel shares.
// Weights are ignored when their count does not match the colours.
func NewPaletteWithWeights(colours []Pixel, weights []float64) *Palette {
	p := NewPalette(colours)
	if len(weights) == len(colours) {
		p.Weights = weights
	}
	return p
}

// Len returns the number of colours in the palette.
func (p *Palette) Len() int {
	return len(p.Colours)
}

// Weight returns the pixel share of colour i, or 0 when weights are unknown.
func (p *Palette) Weight(i int) float64 {
	if i < 0 || i >= len(p.Weights) {
		return 0
	}
	return p.Weights[i]
}

// ToHex converts the palette colours to hex strings.
func (p *Palette) ToHex() []string {
	hexColours := make([]string, len(p.Colours))
	for i, c := range p.Colours {
		hexColours[i] = c.Hex()
	}
	return hexColours
}

// RGBA is the JSON form of a pixel.
type RGBA struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// ColourJSON represents a colour in JSON output format.
type ColourJSON struct {
	Hex    string  `json:"hex"`
	RGBA   RGBA    `json:"rgba"`
	Weight float64 `json:"weight,omitempty"`
}

// PaletteJSON represents the palette in JSON format.
type PaletteJSON struct {
	Count   int          `json:"count"`
	Colours []ColourJSON `json:"colours"`
}

// JSON returns the palette in its JSON form.
func (p *Palette) JSON() PaletteJSON {
	colours := make([]ColourJSON, len(p.Colours))
	for i, c := range p.Colours {
		colours[i] = ColourJSON{
			Hex:    c.Hex(),
			RGBA:   RGBA{R: c[0], G: c[1], B: c[2], A: c[3]},
			Weight: p.Weight(i),
		}
	}
	return PaletteJSON{
		Count:   len(p.Colours),
		Colours: colours,
	}
}

// ToJSON converts the palette to indented JSON.
func (p *Palette) ToJSON() ([]byte, error) {
	return json.MarshalIndent(p.JSON(), "", "  ")
}

// String returns a human-readable string representation of the palette.
func (p *Palette) String() string {
	if len(p.Colours) == 0 {
		return "Empty palette"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Palette with %d colours:\n", len(p.Colours))
	for i, c := range p.Colours {
		if len(p.Weights) == len(p.Colours) {
			fmt.Fprintf(&sb, "  %2d: %s (%s) %5.1f%%\n", i+1, c.Hex(), c.String(), p.Weights[i]*100)
			continue
		}
		fmt.Fprintf(&sb, "  %2d: %s (%s)\n", i+1, c.Hex(), c.String())
	}
	return sb.String()
}
