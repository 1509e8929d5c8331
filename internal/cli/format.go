package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jmylchreest/kquant/internal/colour"
)

const previewWidth = 8

var paletteFormats = []string{"hex", "rgb", "json"}

func isPaletteFormat(format string) bool {
	return slices.Contains(paletteFormats, format)
}

// imageReport is the JSON form of one quantised image.
type imageReport struct {
	Image      string             `json:"image"`
	Output     string             `json:"output,omitempty"`
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	Unique     int                `json:"unique_colours"`
	Iterations int                `json:"iterations"`
	Converged  bool               `json:"converged"`
	Palette    colour.PaletteJSON `json:"palette"`
}

// writePalettes prints the palette of every result in input order. Text
// formats get a header line per image when there is more than one.
func writePalettes(w io.Writer, results []imageResult, format string, showPreview bool) error {
	if format == "json" {
		return writeJSON(w, results)
	}

	var sb strings.Builder
	for i, r := range results {
		if len(results) > 1 {
			if i > 0 {
				sb.WriteString("\n")
			}
			fmt.Fprintf(&sb, "# %s\n", r.Input)
		}
		output, err := formatPalette(r.Result.Palette(), format, showPreview)
		if err != nil {
			return err
		}
		sb.WriteString(output)
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("failed to write palette: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, results []imageResult) error {
	reports := make([]imageReport, len(results))
	for i, r := range results {
		reports[i] = imageReport{
			Image:      r.Input,
			Output:     r.Output,
			Width:      r.Width,
			Height:     r.Height,
			Unique:     r.Result.UniqueColours,
			Iterations: r.Result.Iterations,
			Converged:  r.Result.Converged,
			Palette:    r.Result.Palette().JSON(),
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		return fmt.Errorf("failed to write palette: %w", err)
	}
	return nil
}

// formatPalette formats the palette according to the specified format.
func formatPalette(palette *colour.Palette, format string, showPreview bool) (string, error) {
	switch format {
	case "hex":
		return formatHex(palette, showPreview), nil
	case "rgb":
		return formatRGB(palette, showPreview), nil
	case "json":
		jsonBytes, err := palette.ToJSON()
		if err != nil {
			return "", fmt.Errorf("failed to convert to JSON: %w", err)
		}
		return string(jsonBytes) + "\n", nil
	default:
		return "", fmt.Errorf("unsupported format: %s (supported: %s)", format, strings.Join(paletteFormats, ", "))
	}
}

// formatHex formats the palette as hex colour codes.
func formatHex(palette *colour.Palette, showPreview bool) string {
	var sb strings.Builder
	for _, c := range palette.Colours {
		if showPreview {
			sb.WriteString(colour.FormatColourWithPreview(c, previewWidth))
		} else {
			sb.WriteString(c.Hex())
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatRGB formats the palette as rgba() values with pixel shares.
func formatRGB(palette *colour.Palette, showPreview bool) string {
	var sb strings.Builder
	for i, c := range palette.Colours {
		if showPreview {
			sb.WriteString(colour.ColourPreview(c, previewWidth) + "  ")
		}
		sb.WriteString(c.String())
		if len(palette.Weights) == palette.Len() {
			fmt.Fprintf(&sb, "  %5.1f%%", palette.Weight(i)*100)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
