package pool

import "sync/atomic"

// Stats is a point-in-time snapshot of pool counters.
type Stats struct {
	// Workers is the fixed size of the pool.
	Workers int
	// Idle is the number of workers waiting for a task.
	Idle int
	// Queued is the number of tasks waiting to be picked up.
	Queued int
	// Scheduled counts tasks accepted by Schedule.
	Scheduled uint64
	// Completed counts tasks that finished, including failed ones.
	Completed uint64
	// Failed counts tasks that returned an error or panicked.
	Failed uint64
	// Rejected counts Schedule calls refused because the pool was shutting down.
	Rejected uint64
	// Terminated counts workers that have exited.
	Terminated int
}

type poolMetrics struct {
	scheduled atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	rejected  atomic.Uint64
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	terminated := p.terminated
	p.mu.Unlock()

	return Stats{
		Workers:    len(p.workers),
		Idle:       p.idle.count(),
		Queued:     p.tasks.Len(),
		Scheduled:  p.metrics.scheduled.Load(),
		Completed:  p.metrics.completed.Load(),
		Failed:     p.metrics.failed.Load(),
		Rejected:   p.metrics.rejected.Load(),
		Terminated: terminated,
	}
}
