package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/term"
)

// newLogger builds the command's logger. KQUANT_LOG_LEVEL sets the level
// unless --verbose or --quiet is given.
func newLogger(opts *globalOptions, w io.Writer) (hclog.Logger, error) {
	level := hclog.Info
	if v, ok := os.LookupEnv(envLogLevel); ok && v != "" {
		level = hclog.LevelFromString(v)
		if level == hclog.NoLevel {
			return nil, fmt.Errorf("invalid %s: %q", envLogLevel, v)
		}
	}
	switch {
	case opts.verbose:
		level = hclog.Debug
	case opts.quiet:
		level = hclog.Error
	}

	var jsonFormat bool
	switch opts.logFormat {
	case "text", "":
	case "json":
		jsonFormat = true
	default:
		return nil, fmt.Errorf("unsupported log format: %s (supported: text, json)", opts.logFormat)
	}

	colorOpt := hclog.ColorOff
	if f, ok := w.(*os.File); ok && !jsonFormat && term.IsTerminal(int(f.Fd())) {
		colorOpt = hclog.AutoColor
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       "kquant",
		Output:     w,
		Level:      level,
		JSONFormat: jsonFormat,
		Color:      colorOpt,
	}), nil
}
