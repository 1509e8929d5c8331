package colour

import (
	"slices"
	"sync"
)

const (
	histogramShardBits = 5
	histogramShards    = 1 << histogramShardBits
)

type histogramShard struct {
	mu     sync.Mutex
	counts map[Pixel]uint64
}

// Histogram counts how many pixels have each distinct colour. It is split into
// shards keyed by a hash of the colour, each with its own lock, so concurrent
// row tasks rarely contend.
type Histogram struct {
	shards [histogramShards]histogramShard
}

// NewHistogram returns an empty histogram.
func NewHistogram() *Histogram {
	h := &Histogram{}
	for i := range h.shards {
		h.shards[i].counts = make(map[Pixel]uint64)
	}
	return h
}

func shardIndex(p Pixel) int {
	// Fibonacci hashing spreads neighbouring colours across shards.
	return int((p.packed() * 2654435769) >> (32 - histogramShardBits))
}

// Add increments the count of p by n.
func (h *Histogram) Add(p Pixel, n uint64) {
	s := &h.shards[shardIndex(p)]
	s.mu.Lock()
	s.counts[p] += n
	s.mu.Unlock()
}

// Merge adds every count in local, taking each shard lock once.
func (h *Histogram) Merge(local map[Pixel]uint64) {
	var buckets [histogramShards][]Pixel
	for p := range local {
		i := shardIndex(p)
		buckets[i] = append(buckets[i], p)
	}

	for i, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		s := &h.shards[i]
		s.mu.Lock()
		for _, p := range bucket {
			s.counts[p] += local[p]
		}
		s.mu.Unlock()
	}
}

// Count returns the number of pixels with colour p.
func (h *Histogram) Count(p Pixel) uint64 {
	s := &h.shards[shardIndex(p)]
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[p]
}

// Len returns the number of distinct colours.
func (h *Histogram) Len() int {
	n := 0
	for i := range h.shards {
		s := &h.shards[i]
		s.mu.Lock()
		n += len(s.counts)
		s.mu.Unlock()
	}
	return n
}

// Total returns the number of pixels counted.
func (h *Histogram) Total() uint64 {
	var total uint64
	for i := range h.shards {
		s := &h.shards[i]
		s.mu.Lock()
		for _, c := range s.counts {
			total += c
		}
		s.mu.Unlock()
	}
	return total
}

// Colours returns the distinct colours in ascending Less order together with
// their counts.
func (h *Histogram) Colours() ([]Pixel, []uint64) {
	colours := make([]Pixel, 0, h.Len())
	for i := range h.shards {
		s := &h.shards[i]
		s.mu.Lock()
		for p := range s.counts {
			colours = append(colours, p)
		}
		s.mu.Unlock()
	}
	slices.SortFunc(colours, Pixel.Compare)

	counts := make([]uint64, len(colours))
	for i, p := range colours {
		counts[i] = h.Count(p)
	}
	return colours, counts
}
