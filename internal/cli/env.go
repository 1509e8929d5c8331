package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// Environment variables that provide flag defaults.
const (
	envWorkers  = "KQUANT_WORKERS"
	envSeed     = "KQUANT_SEED"
	envLogLevel = "KQUANT_LOG_LEVEL"
)

// envBinding maps an environment variable to the flag it sets.
type envBinding struct {
	env  string
	flag string
}

// applyEnvDefaults sets each bound flag from its environment variable unless
// the flag was given on the command line.
func applyEnvDefaults(flags *pflag.FlagSet, bindings []envBinding) error {
	for _, b := range bindings {
		value, ok := os.LookupEnv(b.env)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		f := flags.Lookup(b.flag)
		if f == nil || f.Changed {
			continue
		}
		if err := flags.Set(b.flag, strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("invalid %s: %w", b.env, err)
		}
	}
	return nil
}
