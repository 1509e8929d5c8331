package colour

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bufferFrom builds a buffer from rows of pixels.
func bufferFrom(t *testing.T, rows [][]Pixel) *Buffer {
	t.Helper()
	buf := NewBuffer(len(rows), len(rows[0]))
	for r, row := range rows {
		require.Len(t, row, buf.Cols)
		for c, p := range row {
			buf.Set(r, c, p)
		}
	}
	return buf
}

// blockImage builds a rows x cols image from well separated base colours,
// each jittered by a few levels so the histogram holds many distinct colours.
func blockImage(rows, cols int, bases []Pixel, seed uint64) *Buffer {
	rng := rand.New(rand.NewPCG(seed, seed))
	buf := NewBuffer(rows, cols)
	for r := range rows {
		for c := range cols {
			base := bases[(r*len(bases))/rows]
			var p Pixel
			for ch := range 3 {
				p[ch] = base[ch] + uint8(rng.IntN(4))
			}
			p[3] = 255
			buf.Set(r, c, p)
		}
	}
	return buf
}

func newTestQuantizer(t *testing.T, mutate func(*Config)) *Quantizer {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = 4
	if mutate != nil {
		mutate(&cfg)
	}
	q, err := NewQuantizer(cfg)
	require.NoError(t, err)
	return q
}

func TestQuantize_TwoByTwoBlackWhite(t *testing.T) {
	black := Pixel{0, 0, 0, 255}
	white := Pixel{255, 255, 255, 255}
	buf := bufferFrom(t, [][]Pixel{
		{black, black},
		{white, white},
	})

	q := newTestQuantizer(t, func(c *Config) { c.K = 2 })
	res, err := q.Quantize(buf)
	require.NoError(t, err)

	assert.Equal(t, 2, res.UniqueColours)
	assert.Equal(t, []Pixel{black, white}, res.Centers)
	assert.Equal(t, 1, res.Iterations)
	assert.True(t, res.Converged)
	assert.Equal(t, []uint64{0}, res.Distortions)
	assert.Equal(t, buf.Pix, res.Output.Pix)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, res.Weights, 1e-9)
}

func TestQuantize_KEqualsUniqueColoursIsIdentity(t *testing.T) {
	colours := []Pixel{
		{10, 20, 30, 255},
		{200, 10, 10, 255},
		{10, 200, 10, 128},
		{0, 0, 0, 0},
		{90, 90, 90, 255},
	}
	rows := make([][]Pixel, 4)
	for r := range rows {
		rows[r] = make([]Pixel, 5)
		for c := range rows[r] {
			rows[r][c] = colours[(r+c)%len(colours)]
		}
	}
	buf := bufferFrom(t, rows)

	q := newTestQuantizer(t, func(c *Config) { c.K = len(colours) })
	res, err := q.Quantize(buf)
	require.NoError(t, err)

	assert.Equal(t, buf.Pix, res.Output.Pix)
	assert.Len(t, res.Centers, len(colours))
	assert.True(t, res.Converged)
}

func TestQuantize_InvalidK(t *testing.T) {
	// 3x3 image with 3 distinct colours.
	a, b, c := Pixel{1, 1, 1, 255}, Pixel{2, 2, 2, 255}, Pixel{3, 3, 3, 255}
	buf := bufferFrom(t, [][]Pixel{
		{a, b, c},
		{a, b, c},
		{a, b, c},
	})

	tests := []struct {
		name string
		k    int
	}{
		{name: "more than unique colours", k: 4},
		{name: "equal to pixel count", k: 9},
		{name: "above pixel count", k: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newTestQuantizer(t, func(c *Config) { c.K = tt.k })
			res, err := q.Quantize(buf)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, ErrInvalidK), "got %v", err)
		})
	}
}

func TestNewQuantizer_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		isK    bool
	}{
		{name: "k zero", mutate: func(c *Config) { c.K = 0 }, isK: true},
		{name: "k one", mutate: func(c *Config) { c.K = 1 }, isK: true},
		{name: "negative k", mutate: func(c *Config) { c.K = -4 }, isK: true},
		{name: "negative workers", mutate: func(c *Config) { c.Workers = -1 }},
		{name: "negative tolerance", mutate: func(c *Config) { c.Tolerance = -0.1 }},
		{name: "negative iterations", mutate: func(c *Config) { c.MaxIterations = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			q, err := NewQuantizer(cfg)
			require.Error(t, err)
			assert.Nil(t, q)
			assert.Equal(t, tt.isK, errors.Is(err, ErrInvalidK))
		})
	}
}

func TestQuantize_InvalidBuffer(t *testing.T) {
	q := newTestQuantizer(t, nil)

	_, err := q.Quantize(nil)
	assert.ErrorIs(t, err, ErrInvalidBuffer)

	_, err = q.Quantize(&Buffer{Rows: 2, Cols: 2, Pix: make([]uint8, 3)})
	assert.ErrorIs(t, err, ErrInvalidBuffer)
}

func TestQuantize_SeparatedPaletteConverges(t *testing.T) {
	bases := []Pixel{
		{200, 30, 30, 255},
		{30, 200, 30, 255},
		{30, 30, 200, 255},
		{120, 120, 120, 255},
	}
	buf := blockImage(40, 30, bases, 7)

	q := newTestQuantizer(t, func(c *Config) {
		c.K = len(bases)
		c.Seed = 42
		c.MaxIterations = 100
	})
	res, err := q.Quantize(buf)
	require.NoError(t, err)

	assert.True(t, res.Converged, "did not converge in %d rounds", res.Iterations)
	assert.Less(t, res.Iterations, 100)
	require.NotEmpty(t, res.Distortions)
	assert.LessOrEqual(t, res.Distortions[len(res.Distortions)-1], res.Distortions[0])

	assert.Len(t, res.Centers, len(bases))
	assertDistinct(t, res.Centers)
	assert.Len(t, res.InitialCenters, len(bases))
	assert.Contains(t, res.InitialCenters, seedBlack)
	assert.Contains(t, res.InitialCenters, seedWhite)

	// Every output pixel is one of the centers.
	for r := range res.Output.Rows {
		for c := range res.Output.Cols {
			assert.Contains(t, res.Centers, res.Output.At(r, c))
		}
	}

	var total float64
	for _, w := range res.Weights {
		total += w
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestQuantize_Deterministic(t *testing.T) {
	bases := []Pixel{{250, 0, 0, 255}, {0, 250, 0, 255}, {0, 0, 250, 255}, {250, 250, 0, 255}, {60, 60, 60, 255}}
	buf := blockImage(25, 25, bases, 3)

	run := func(workers int) *Result {
		q := newTestQuantizer(t, func(c *Config) {
			c.K = 6
			c.Seed = 99
			c.Workers = workers
		})
		res, err := q.Quantize(buf)
		require.NoError(t, err)
		return res
	}

	first := run(1)
	second := run(4)
	third := run(4)

	assert.Equal(t, first.Output.Pix, second.Output.Pix)
	assert.Equal(t, second.Output.Pix, third.Output.Pix)
	assert.Equal(t, first.Centers, third.Centers)
	assert.Equal(t, first.Distortions, third.Distortions)
}

func TestQuantize_DoesNotModifyInput(t *testing.T) {
	buf := blockImage(10, 10, []Pixel{{10, 10, 10, 255}, {240, 240, 240, 255}}, 1)
	orig := buf.Clone()

	q := newTestQuantizer(t, func(c *Config) { c.K = 3 })
	_, err := q.Quantize(buf)
	require.NoError(t, err)

	assert.Equal(t, orig.Pix, buf.Pix)
}

func TestQuantize_IterationLimit(t *testing.T) {
	buf := blockImage(30, 30, []Pixel{{200, 30, 30, 255}, {30, 200, 30, 255}, {30, 30, 200, 255}}, 11)

	q := newTestQuantizer(t, func(c *Config) {
		c.K = 5
		c.MaxIterations = 1
		c.Tolerance = 0
	})
	res, err := q.Quantize(buf)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Iterations)
	assert.Len(t, res.Distortions, 1)
	assert.Len(t, res.Centers, 5)
}

func TestSeedCenters(t *testing.T) {
	colours := make([]Pixel, 50)
	for i := range colours {
		colours[i] = Pixel{uint8(i * 5), uint8(i), 100, 255}
	}

	t.Run("fills to k with extremes", func(t *testing.T) {
		got := seedCenters(colours, 10, rand.New(rand.NewPCG(1, 2)))
		assert.Len(t, got, 10)
		assert.Contains(t, got, seedBlack)
		assert.Contains(t, got, seedWhite)
		assertDistinct(t, got)
		for _, p := range got {
			if p == seedBlack || p == seedWhite {
				continue
			}
			assert.Contains(t, colours, p)
		}
	})

	t.Run("same seed same centers", func(t *testing.T) {
		a := seedCenters(colours, 12, rand.New(rand.NewPCG(5, 5)))
		b := seedCenters(colours, 12, rand.New(rand.NewPCG(5, 5)))
		assert.Equal(t, a, b)
	})

	t.Run("k equals unique colours", func(t *testing.T) {
		got := seedCenters(colours, len(colours), rand.New(rand.NewPCG(1, 1)))
		assert.Equal(t, colours, got)
	})

	t.Run("extremes already present", func(t *testing.T) {
		withExtremes := append([]Pixel{seedBlack}, colours...)
		withExtremes = append(withExtremes, seedWhite)
		got := seedCenters(withExtremes, 5, rand.New(rand.NewPCG(3, 3)))
		assert.Len(t, got, 5)
		assertDistinct(t, got)
	})
}

func TestNearest_TieGoesToFirst(t *testing.T) {
	centers := []Pixel{{0, 0, 0, 0}, {2, 0, 0, 0}, {4, 0, 0, 0}}

	slot, dist := nearest(Pixel{1, 0, 0, 0}, centers)
	assert.Equal(t, 0, slot)
	assert.Equal(t, uint64(1), dist)

	slot, dist = nearest(Pixel{3, 0, 0, 0}, centers)
	assert.Equal(t, 1, slot)
	assert.Equal(t, uint64(1), dist)

	slot, dist = nearest(Pixel{4, 0, 0, 0}, centers)
	assert.Equal(t, 2, slot)
	assert.Zero(t, dist)
}

func TestAccumulatorCentroids(t *testing.T) {
	prev := []Pixel{{0, 0, 0, 0}, {50, 50, 50, 50}, {255, 255, 255, 255}}
	acc := newAccumulator(len(prev))

	acc.add(0, Pixel{1, 2, 3, 4}, 2)
	acc.add(0, Pixel{2, 2, 2, 2}, 1)
	acc.add(2, Pixel{200, 100, 0, 255}, 5)

	next := acc.centroids(prev)

	// Slot 0: sums (4,6,8,10) over 3 pixels, rounded up.
	assert.Equal(t, Pixel{2, 2, 3, 4}, next[0])
	// Slot 1 attracted nothing and keeps its center.
	assert.Equal(t, prev[1], next[1])
	assert.Equal(t, Pixel{200, 100, 0, 255}, next[2])
}

func TestCeilMean(t *testing.T) {
	tests := []struct {
		sum, count uint64
		want       uint8
	}{
		{sum: 9, count: 3, want: 3},
		{sum: 10, count: 3, want: 4},
		{sum: 11, count: 3, want: 4},
		{sum: 0, count: 7, want: 0},
		{sum: 255 * 7, count: 7, want: 255},
		{sum: 1, count: 1000, want: 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ceilMean(tt.sum, tt.count), "ceilMean(%d, %d)", tt.sum, tt.count)
	}
}

func TestConvergence(t *testing.T) {
	t.Run("zero distortion converges immediately", func(t *testing.T) {
		c := convergence{tolerance: 1e-6}
		assert.True(t, c.done(0))
	})

	t.Run("first round never converges", func(t *testing.T) {
		c := convergence{tolerance: 1}
		assert.False(t, c.done(100))
	})

	t.Run("stable distortion converges", func(t *testing.T) {
		c := convergence{tolerance: 1e-6}
		assert.False(t, c.done(1000))
		assert.False(t, c.done(900))
		assert.True(t, c.done(900))
	})

	t.Run("relative tolerance", func(t *testing.T) {
		c := convergence{tolerance: 0.01}
		assert.False(t, c.done(1000))
		assert.True(t, c.done(995))
		assert.False(t, c.done(900))
	})
}

func assertDistinct(t *testing.T, pixels []Pixel) {
	t.Helper()
	sorted := slices.Clone(pixels)
	slices.SortFunc(sorted, Pixel.Compare)
	assert.Equal(t, len(sorted), len(slices.Compact(sorted)), "pixels are not distinct: %v", pixels)
}
