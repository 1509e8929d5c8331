// Package cli provides the command-line interface for kquant.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jmylchreest/kquant/internal/version"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	verbose   bool
	quiet     bool
	logFormat string
}

// NewRootCmd builds the kquant command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "kquant",
		Short: "Parallel k-means colour quantisation",
		Long: `kquant reduces the colour palette of an image to a fixed number of
representative colours using k-means clustering over the image's colour
histogram. Clustering runs in parallel on a pool of worker goroutines.

The quantised image is written as PNG next to the input, and the resulting
palette is printed to stdout.`,
		Version:      version.Short(),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)
	rootCmd.SetVersionTemplate(version.String() + "\n")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newQuantizeCmd(opts))

	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// normalizeFlagName lets users write --max_iterations for --max-iterations.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including build date, commit hash, and Go version.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
