package colour

import (
	"slices"
	"sync"
)

// CenterSet holds the k distinct cluster centers in ascending Less order.
//
// Readers take a Snapshot for the duration of an assignment round. Replace
// swaps in the next generation under the write lock, so the set is never
// observed with a size other than k.
type CenterSet struct {
	mu      sync.RWMutex
	centers []Pixel
}

func newCenterSet(initial []Pixel) *CenterSet {
	centers := slices.Clone(initial)
	slices.SortFunc(centers, Pixel.Compare)
	return &CenterSet{centers: centers}
}

// Len returns the number of centers.
func (s *CenterSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.centers)
}

// Snapshot returns a copy of the centers in iteration order.
func (s *CenterSet) Snapshot() []Pixel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.centers)
}

// Replace installs next, where next[i] replaces the i-th center of the
// current snapshot. Slots whose new value would duplicate another center keep
// their old value, so the set stays at k distinct members.
func (s *CenterSet) Replace(next []Pixel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resolved := resolveCollisions(s.centers, next)
	slices.SortFunc(resolved, Pixel.Compare)
	s.centers = resolved
}

// resolveCollisions returns next with duplicates reverted to their old
// values. old must be distinct and the same length as next. Each pass reverts
// at least one slot, and reverting every slot yields old itself, so the loop
// terminates.
func resolveCollisions(old, next []Pixel) []Pixel {
	out := slices.Clone(next)
	reverted := make([]bool, len(out))

	for {
		changed := false
		owner := make(map[Pixel]int, len(out))
		for i, p := range out {
			j, taken := owner[p]
			if !taken {
				owner[p] = i
				continue
			}

			// The first slot keeps the colour unless it is a moved center
			// colliding with a slot that already fell back to its old value.
			victim := i
			if reverted[i] && !reverted[j] {
				victim = j
				owner[p] = i
			}
			out[victim] = old[victim]
			reverted[victim] = true
			changed = true
		}
		if !changed {
			return out
		}
	}
}
