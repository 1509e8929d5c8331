package pool

import "github.com/jmylchreest/kquant/internal/queue"

// idleSlots is the free list of idle workers. A worker releases its own slot
// before it parks, and the scheduler acquires exactly one slot per task so
// that only that worker is woken.
type idleSlots struct {
	q *queue.Bounded[int]
}

func newIdleSlots(n int) (*idleSlots, error) {
	q, err := queue.New[int](n)
	if err != nil {
		return nil, err
	}
	return &idleSlots{q: q}, nil
}

// release marks slot as idle. It never blocks because each slot is released
// at most once between acquisitions.
func (s *idleSlots) release(slot int) {
	s.q.Push(slot)
}

// acquire blocks until some worker is idle and returns its slot.
func (s *idleSlots) acquire() (int, bool) {
	slot, st := s.q.Pop()
	return slot, st == queue.StatusSuccess
}

// all reports whether every worker is idle.
func (s *idleSlots) all() bool {
	return s.q.IsFull()
}

func (s *idleSlots) count() int {
	return s.q.Len()
}

func (s *idleSlots) close() {
	s.q.Close()
	s.q.Clear()
}
