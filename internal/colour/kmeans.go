package colour

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/kquant/internal/pool"
)

// Seed colours placed in every center set before random sampling.
var (
	seedBlack = Pixel{0, 0, 0, 0}
	seedWhite = Pixel{255, 255, 255, 255}
)

// Config holds the settings for a Quantizer.
type Config struct {
	// K is the number of colours in the output. It must be at least 2.
	K int

	// Workers is the size of the worker pool. Zero uses the host's parallelism.
	Workers int

	// TaskQueueSize bounds the pool's task queue. Zero uses the pool default.
	TaskQueueSize int

	// Seed drives the random choice of initial centers. Equal seeds give
	// identical output for the same image.
	Seed uint64

	// MaxIterations caps the number of k-means rounds. Zero means no cap.
	MaxIterations int

	// Tolerance is the relative change in total distortion between rounds
	// below which the clustering is considered stable.
	Tolerance float64

	// Logger receives diagnostics. Nil disables logging.
	Logger hclog.Logger
}

// DefaultConfig returns the default quantizer configuration.
func DefaultConfig() Config {
	return Config{
		K:             16,
		MaxIterations: 300,
		Tolerance:     1e-6,
	}
}

// Validate validates the quantizer configuration.
func (c Config) Validate() error {
	if c.K < 2 {
		return fmt.Errorf("%w: k must be at least 2, got %d", ErrInvalidK, c.K)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.TaskQueueSize < 0 {
		return fmt.Errorf("task queue size must be >= 0, got %d", c.TaskQueueSize)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("max iterations must be >= 0, got %d", c.MaxIterations)
	}
	if c.Tolerance < 0 || math.IsNaN(c.Tolerance) {
		return fmt.Errorf("tolerance must be a non-negative number, got %v", c.Tolerance)
	}
	return nil
}

// Result is the outcome of a quantisation run.
type Result struct {
	// Output has the same extents as the input, with every pixel replaced by
	// its cluster's colour.
	Output *Buffer

	// UniqueColours is the number of distinct colours in the input.
	UniqueColours int

	// InitialCenters and Centers are the cluster centers before the first
	// round and after convergence.
	InitialCenters []Pixel
	Centers        []Pixel

	// Weights[i] is the share of pixels mapped to Centers[i].
	Weights []float64

	// Distortions holds the total distortion of each round.
	Distortions []uint64

	Iterations int
	Converged  bool
	Elapsed    time.Duration
}

// Palette returns the final centers as a weighted palette.
func (r *Result) Palette() *Palette {
	return NewPaletteWithWeights(r.Centers, r.Weights)
}

// Quantizer reduces an image to K colours with k-means clustering. The
// histogram build and every assignment round run on a worker pool that lives
// for the duration of one Quantize call.
type Quantizer struct {
	cfg    Config
	logger hclog.Logger
}

// NewQuantizer creates a Quantizer after validating cfg.
func NewQuantizer(cfg Config) (*Quantizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Quantizer{cfg: cfg, logger: logger.Named("kmeans")}, nil
}

// Quantize clusters the colours of buf and returns the remapped image. Invalid
// input is reported before any clustering work starts, and buf is never
// modified.
func (q *Quantizer) Quantize(buf *Buffer) (*Result, error) {
	start := time.Now()

	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if q.cfg.K >= buf.Len() {
		return nil, fmt.Errorf("%w: k=%d must be smaller than the pixel count %d", ErrInvalidK, q.cfg.K, buf.Len())
	}

	opts := []pool.Option{pool.WithLogger(q.logger.Named("pool"))}
	if q.cfg.Workers > 0 {
		opts = append(opts, pool.WithWorkers(q.cfg.Workers))
	}
	if q.cfg.TaskQueueSize > 0 {
		opts = append(opts, pool.WithTaskQueueSize(q.cfg.TaskQueueSize))
	}
	p, err := pool.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer p.Close()

	s := &session{cfg: q.cfg, pool: p, logger: q.logger, src: buf}
	res, err := s.run()
	if err != nil {
		return nil, err
	}

	res.Elapsed = time.Since(start)
	q.logger.Info("quantisation complete",
		"iterations", res.Iterations,
		"converged", res.Converged,
		"elapsed", res.Elapsed,
	)
	q.logger.Info("final cluster centers", "centers", formatCenters(res.Centers))
	return res, nil
}

// session holds the state of a single Quantize call.
type session struct {
	cfg    Config
	pool   *pool.Pool
	logger hclog.Logger
	src    *Buffer

	// Read-only after the histogram phase.
	colours []Pixel
	counts  []uint64
}

// assignment is one colour's nearest center, written by exactly one task.
type assignment struct {
	slot int
	dist uint64
}

func (s *session) run() (*Result, error) {
	hist, err := s.buildHistogram()
	if err != nil {
		return nil, err
	}
	s.colours, s.counts = hist.Colours()
	s.logger.Info("histogram built",
		"rows", s.src.Rows,
		"cols", s.src.Cols,
		"unique_colours", len(s.colours),
	)

	if s.cfg.K > len(s.colours) {
		return nil, fmt.Errorf("%w: k=%d exceeds the %d unique colours in the image", ErrInvalidK, s.cfg.K, len(s.colours))
	}

	rng := rand.New(rand.NewPCG(s.cfg.Seed, s.cfg.Seed^0x9e3779b97f4a7c15))
	set := newCenterSet(seedCenters(s.colours, s.cfg.K, rng))
	initial := set.Snapshot()
	s.logger.Info("initial cluster centers", "centers", formatCenters(initial))

	res := &Result{
		UniqueColours:  len(s.colours),
		InitialCenters: initial,
	}

	conv := convergence{tolerance: s.cfg.Tolerance}
	for {
		centers := set.Snapshot()
		results, err := s.assign(centers)
		if err != nil {
			return nil, err
		}

		acc, distortion := s.reduce(results, len(centers))
		set.Replace(acc.centroids(centers))

		res.Iterations++
		res.Distortions = append(res.Distortions, distortion)
		s.logger.Debug("iterating", "round", res.Iterations, "distortion", distortion)

		if conv.done(distortion) {
			res.Converged = true
			break
		}
		if s.cfg.MaxIterations > 0 && res.Iterations >= s.cfg.MaxIterations {
			s.logger.Warn("iteration limit reached before convergence", "limit", s.cfg.MaxIterations)
			break
		}
	}

	res.Centers = set.Snapshot()
	mapping, weights, err := s.finalAssignment(res.Centers)
	if err != nil {
		return nil, err
	}
	res.Weights = weights

	out, err := s.remap(mapping)
	if err != nil {
		return nil, err
	}
	res.Output = out
	return res, nil
}

// buildHistogram schedules one task per row. Each task counts its row locally
// and merges the counts into the shared histogram once.
func (s *session) buildHistogram() (*Histogram, error) {
	hist := NewHistogram()
	for row := range s.src.Rows {
		err := s.pool.Schedule(func() error {
			local := make(map[Pixel]uint64)
			pix := s.src.Row(row)
			for i := 0; i < len(pix); i += Channels {
				local[Pixel(pix[i:i+Channels])]++
			}
			hist.Merge(local)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to schedule histogram row %d: %w", row, err)
		}
	}
	if err := s.pool.BlockUntilIdle(); err != nil {
		return nil, fmt.Errorf("%w: histogram: %w", ErrTaskFailed, err)
	}
	return hist, nil
}

// assign finds the nearest center for every distinct colour, one task per
// colour. Each task writes only its own result cell.
func (s *session) assign(centers []Pixel) ([]assignment, error) {
	results := make([]assignment, len(s.colours))
	for i := range s.colours {
		err := s.pool.Schedule(func() error {
			results[i].slot, results[i].dist = nearest(s.colours[i], centers)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to schedule assignment: %w", err)
		}
	}
	if err := s.pool.BlockUntilIdle(); err != nil {
		return nil, fmt.Errorf("%w: assignment: %w", ErrTaskFailed, err)
	}
	return results, nil
}

// reduce folds the per-colour results into a fresh accumulator and returns
// the round's total distortion.
func (s *session) reduce(results []assignment, k int) (*accumulator, uint64) {
	acc := newAccumulator(k)
	var distortion uint64
	for i, r := range results {
		acc.add(r.slot, s.colours[i], s.counts[i])
		distortion += r.dist
	}
	return acc, distortion
}

// finalAssignment maps every distinct colour to its final center and returns
// the share of pixels held by each center.
func (s *session) finalAssignment(centers []Pixel) (map[Pixel]Pixel, []float64, error) {
	results, err := s.assign(centers)
	if err != nil {
		return nil, nil, err
	}

	mapping := make(map[Pixel]Pixel, len(s.colours))
	pixels := make([]uint64, len(centers))
	var total uint64
	for i, r := range results {
		mapping[s.colours[i]] = centers[r.slot]
		pixels[r.slot] += s.counts[i]
		total += s.counts[i]
	}

	weights := make([]float64, len(centers))
	for i, n := range pixels {
		weights[i] = float64(n) / float64(total)
	}
	return mapping, weights, nil
}

// remap writes the output image, one task per row.
func (s *session) remap(mapping map[Pixel]Pixel) (*Buffer, error) {
	out := NewBuffer(s.src.Rows, s.src.Cols)
	for row := range s.src.Rows {
		err := s.pool.Schedule(func() error {
			src, dst := s.src.Row(row), out.Row(row)
			for i := 0; i < len(src); i += Channels {
				c, ok := mapping[Pixel(src[i:i+Channels])]
				if !ok {
					return fmt.Errorf("colour %v at row %d has no cluster", Pixel(src[i:i+Channels]), row)
				}
				copy(dst[i:i+Channels], c[:])
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to schedule remap row %d: %w", row, err)
		}
	}
	if err := s.pool.BlockUntilIdle(); err != nil {
		return nil, fmt.Errorf("%w: remap: %w", ErrTaskFailed, err)
	}
	return out, nil
}

// nearest returns the index of the closest center and its squared distance.
// Ties go to the lowest index.
func nearest(c Pixel, centers []Pixel) (int, uint64) {
	best, bestDist := 0, uint64(math.MaxUint64)
	for i, center := range centers {
		if d := c.Distance(center); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

// seedCenters picks the initial k centers. When every distinct colour is
// needed each becomes its own center. Otherwise the set starts from black and
// white and is filled from a random permutation of the histogram colours.
func seedCenters(colours []Pixel, k int, rng *rand.Rand) []Pixel {
	if k == len(colours) {
		return slices.Clone(colours)
	}

	chosen := make(map[Pixel]struct{}, k)
	centers := make([]Pixel, 0, k)
	add := func(p Pixel) {
		if _, ok := chosen[p]; ok || len(centers) == k {
			return
		}
		chosen[p] = struct{}{}
		centers = append(centers, p)
	}

	add(seedBlack)
	add(seedWhite)
	for _, i := range rng.Perm(len(colours)) {
		if len(centers) == k {
			break
		}
		add(colours[i])
	}
	return centers
}

// accumulator sums the colours assigned to each center slot, weighted by
// pixel count.
type accumulator struct {
	count []uint64
	sum   [][Channels]uint64
}

func newAccumulator(k int) *accumulator {
	return &accumulator{
		count: make([]uint64, k),
		sum:   make([][Channels]uint64, k),
	}
}

func (a *accumulator) add(slot int, c Pixel, n uint64) {
	a.count[slot] += n
	for ch := range Channels {
		a.sum[slot][ch] += uint64(c[ch]) * n
	}
}

// centroids returns the next center for every slot: the per-channel mean
// rounded up. A slot that attracted no pixels keeps its previous center.
func (a *accumulator) centroids(prev []Pixel) []Pixel {
	next := make([]Pixel, len(prev))
	for slot := range prev {
		n := a.count[slot]
		if n == 0 {
			next[slot] = prev[slot]
			continue
		}
		for ch := range Channels {
			next[slot][ch] = ceilMean(a.sum[slot][ch], n)
		}
	}
	return next
}

func ceilMean(sum, count uint64) uint8 {
	return uint8((sum + count - 1) / count)
}

// convergence decides when the total distortion has stopped changing.
type convergence struct {
	tolerance float64
	started   bool
	prev      uint64
}

// done records the distortion of the latest round and reports whether the
// clustering is stable. A zero distortion means every colour sits on its
// center, which no further round can change.
func (c *convergence) done(distortion uint64) bool {
	if distortion == 0 {
		return true
	}
	if !c.started {
		c.started = true
		c.prev = distortion
		return false
	}

	prev := float64(c.prev)
	c.prev = distortion
	return math.Abs(prev-float64(distortion)) <= c.tolerance*prev
}

func formatCenters(centers []Pixel) string {
	parts := make([]string, len(centers))
	for i, c := range centers {
		parts[i] = fmt.Sprintf("%d %d %d %d", c[0], c[1], c[2], c[3])
	}
	return strings.Join(parts, ", ")
}
