package colour

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// ANSI escape codes for terminal colours.
const (
	ansiReset    = "\033[0m"
	ansiBgPrefix = "\033[48;2;"
	ansiSuffix   = "m"
	defaultWidth = 8
)

// ColourPreview returns an ANSI-coloured block for a colour. Alpha is ignored
// since terminals cannot show it.
func ColourPreview(c Pixel, width int) string {
	if width <= 0 {
		width = defaultWidth
	}

	bgColour := fmt.Sprintf("%s%d;%d;%d%s", ansiBgPrefix, c[0], c[1], c[2], ansiSuffix)
	return bgColour + strings.Repeat(" ", width) + ansiReset
}

// FormatColourWithPreview formats a colour with its preview and hex code.
func FormatColourWithPreview(c Pixel, width int) string {
	return fmt.Sprintf("%s %s", ColourPreview(c, width), c.Hex())
}

// SupportsANSIColours reports whether stdout is a terminal that should
// receive colour escapes. NO_COLOR and TERM=dumb disable colour.
func SupportsANSIColours() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}
