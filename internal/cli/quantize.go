package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/kquant/internal/colour"
	"github.com/jmylchreest/kquant/internal/image"
)

// quantizeOptions holds the quantize command flags.
type quantizeOptions struct {
	colours       int
	workers       int
	seed          uint64
	maxIterations int
	tolerance     float64
	queueSize     int
	output        string
	format        string
	preview       bool
	jobs          int
	dryRun        bool
}

// imageResult is the outcome of quantising one input file.
type imageResult struct {
	Input  string
	Output string
	Width  int
	Height int
	Result *colour.Result
}

func newQuantizeCmd(global *globalOptions) *cobra.Command {
	opts := &quantizeOptions{}
	defaults := colour.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "quantize <image|dir>...",
		Short: "Reduce an image to k colours",
		Long: `Reduce each image to k representative colours with parallel k-means.

Every argument is an image file or a directory; directories are scanned for
images without recursing. Each quantised image is written as PNG to
<dir>/<name>_quantized_<k>.png unless --output or --dry-run is given, and the
palette is printed to stdout.

Supported image formats: JPEG, PNG, GIF, WebP, BMP, TIFF

Environment:
  KQUANT_WORKERS    default for --workers
  KQUANT_SEED       default for --seed
  KQUANT_LOG_LEVEL  log level (trace, debug, info, warn, error)

Examples:
  # Reduce an image to 8 colours
  kquant quantize -k 8 photo.jpg

  # Print the palette as JSON without writing an image
  kquant quantize -k 16 --dry-run --format json photo.jpg

  # Quantise a directory, two images at a time, on 4 workers each
  kquant quantize -k 12 -j 2 -w 4 wallpapers/`,
		Aliases: []string{"quantise"},
		Args:    cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return applyEnvDefaults(cmd.Flags(), []envBinding{
				{env: envWorkers, flag: "workers"},
				{env: envSeed, flag: "seed"},
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuantize(cmd, global, opts, args)
		},
	}

	cmd.Flags().IntVarP(&opts.colours, "colours", "k", 0, "number of colours in the output (at least 2)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "worker goroutines per image (default: number of CPUs)")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "seed for the initial center selection")
	cmd.Flags().IntVar(&opts.maxIterations, "max-iterations", defaults.MaxIterations, "maximum k-means rounds (0 for no limit)")
	cmd.Flags().Float64Var(&opts.tolerance, "tolerance", defaults.Tolerance, "relative distortion change treated as converged")
	cmd.Flags().IntVar(&opts.queueSize, "queue-size", 0, "task queue capacity of the worker pool (default 32)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output PNG path (single input only)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "hex", "palette output format (hex, rgb, json)")
	cmd.Flags().BoolVar(&opts.preview, "preview", false, "show colour previews in terminal")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 1, "number of images processed concurrently")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the palette without writing images")
	_ = cmd.MarkFlagRequired("colours")
	cmd.MarkFlagsMutuallyExclusive("output", "dry-run")

	return cmd
}

// runQuantize executes the quantize command.
func runQuantize(cmd *cobra.Command, global *globalOptions, opts *quantizeOptions, args []string) error {
	logger, err := newLogger(global, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if opts.jobs < 1 {
		return fmt.Errorf("invalid configuration: jobs must be at least 1, got %d", opts.jobs)
	}
	if !isPaletteFormat(opts.format) {
		return fmt.Errorf("unsupported format: %s (supported: hex, rgb, json)", opts.format)
	}

	cfg := colour.Config{
		K:             opts.colours,
		Workers:       opts.workers,
		TaskQueueSize: opts.queueSize,
		Seed:          opts.seed,
		MaxIterations: opts.maxIterations,
		Tolerance:     opts.tolerance,
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	files, err := image.ExpandPaths(args)
	if err != nil {
		return err
	}
	if opts.output != "" && len(files) > 1 {
		return fmt.Errorf("--output requires a single input image, got %d", len(files))
	}
	logger.Debug("quantising images", "count", len(files), "k", cfg.K, "jobs", opts.jobs)

	results := make([]imageResult, len(files))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(opts.jobs)
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := quantizeFile(path, cfg, opts, logger.With("image", filepath.Base(path)))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	showPreview := opts.preview && colour.SupportsANSIColours()
	if opts.preview && !showPreview {
		logger.Debug("colour previews disabled, stdout is not a colour terminal")
	}
	if err := writePalettes(cmd.OutOrStdout(), results, opts.format, showPreview); err != nil {
		return err
	}

	if len(results) > 1 && !global.quiet {
		if _, err := summaryTable(results).WriteTo(cmd.ErrOrStderr()); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	return nil
}

// quantizeFile loads, quantises and (unless dry-run) saves a single image.
func quantizeFile(path string, cfg colour.Config, opts *quantizeOptions, logger hclog.Logger) (imageResult, error) {
	img, err := image.NewFileLoader().Load(path)
	if err != nil {
		return imageResult{}, fmt.Errorf("failed to load image: %w", err)
	}
	buf := image.ToBuffer(img)
	logger.Debug("image loaded", "width", buf.Cols, "height", buf.Rows)

	cfg.Logger = logger
	q, err := colour.NewQuantizer(cfg)
	if err != nil {
		return imageResult{}, fmt.Errorf("invalid configuration: %w", err)
	}
	res, err := q.Quantize(buf)
	if err != nil {
		return imageResult{}, err
	}

	out := imageResult{Input: path, Width: buf.Cols, Height: buf.Rows, Result: res}
	if opts.dryRun {
		return out, nil
	}

	out.Output = opts.output
	if out.Output == "" {
		out.Output = image.OutputPath(path, cfg.K)
	}
	if err := image.SavePNG(out.Output, res.Output); err != nil {
		return imageResult{}, fmt.Errorf("failed to save image: %w", err)
	}
	logger.Info("wrote quantised image", "output", out.Output)
	return out, nil
}

func summaryTable(results []imageResult) *Table {
	table := NewTable("IMAGE", "SIZE", "UNIQUE", "ITERATIONS", "CONVERGED", "ELAPSED", "OUTPUT")
	table.AlignRight(2, 3, 5)
	for _, r := range results {
		output := r.Output
		if output == "" {
			output = "-"
		}
		table.AddRow(
			filepath.Base(r.Input),
			fmt.Sprintf("%dx%d", r.Width, r.Height),
			strconv.Itoa(r.Result.UniqueColours),
			strconv.Itoa(r.Result.Iterations),
			strconv.FormatBool(r.Result.Converged),
			r.Result.Elapsed.Round(time.Millisecond).String(),
			output,
		)
	}
	return table
}
