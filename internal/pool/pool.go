// Package pool implements a fixed-size worker pool with targeted wake-ups.
//
// Every worker owns a private wake channel. Idle workers record their slot in
// a bounded idle-slot queue, and Schedule wakes exactly one named worker per
// task instead of letting every idle worker race on a shared condition. The
// pool also offers BlockUntilIdle, a barrier that returns once all scheduled
// work has finished, which lets callers split an algorithm into phases.
//
// Basic usage:
//
//	p, err := pool.New(pool.WithWorkers(4))
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	for _, row := range rows {
//	    if err := p.Schedule(func() error { return process(row) }); err != nil {
//	        return err
//	    }
//	}
//	if err := p.BlockUntilIdle(); err != nil {
//	    return err
//	}
package pool

import (
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/kquant/internal/queue"
)

// Task is a unit of work run by the pool. A returned error, or a panic, is
// captured as a *TaskError and reported by the next barrier.
type Task func() error

// State is the lifecycle state of a Pool.
type State int

const (
	// StateOpen accepts new tasks.
	StateOpen State = iota
	// StateDraining rejects new tasks while queued work finishes.
	StateDraining
	// StateShutdown means all work has finished; the pool can only be closed.
	StateShutdown
	// StateClosed means every worker has exited.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateDraining:
		return "draining"
	case StateShutdown:
		return "shutdown"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Pool is a fixed set of long-lived workers fed from a bounded task queue.
type Pool struct {
	config  Config
	logger  hclog.Logger
	workers []*worker

	tasks *queue.Bounded[Task]
	idle  *idleSlots

	// mu guards the fields below and is the lock for idleCond.
	mu         sync.Mutex
	idleCond   *sync.Cond
	state      State
	scheduling int
	terminated int
	failure    error

	metrics poolMetrics
}

// New creates a pool and starts its workers. Without options the pool has one
// worker per usable CPU.
func New(opts ...Option) (*Pool, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	tasks, err := queue.New[Task](cfg.TaskQueueSize)
	if err != nil {
		return nil, err
	}
	idle, err := newIdleSlots(cfg.Workers)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		config:  cfg,
		logger:  cfg.Logger,
		workers: make([]*worker, cfg.Workers),
		tasks:   tasks,
		idle:    idle,
	}
	p.idleCond = sync.NewCond(&p.mu)

	for i := range p.workers {
		p.workers[i] = newWorker(i, p)
		go p.workers[i].run()
	}

	p.logger.Debug("pool started", "workers", cfg.Workers, "task_queue", cfg.TaskQueueSize)
	return p, nil
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// State returns the current lifecycle state.
func (p *Pool) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// IsShutdown reports whether Shutdown has been requested.
func (p *Pool) IsShutdown() bool {
	return p.State() != StateOpen
}

// Schedule queues task and wakes one idle worker to run it. It blocks while
// the task queue is full or no worker is idle. Once the pool has begun
// shutting down, Schedule returns ErrPoolShutdown and the task is dropped.
func (p *Pool) Schedule(task Task) error {
	if task == nil {
		return ErrNilTask
	}

	p.mu.Lock()
	if p.state != StateOpen {
		p.mu.Unlock()
		p.metrics.rejected.Add(1)
		return ErrPoolShutdown
	}
	p.scheduling++
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.scheduling--
		p.idleCond.Broadcast()
		p.mu.Unlock()
	}()

	if st := p.tasks.Push(task); st != queue.StatusSuccess {
		p.metrics.rejected.Add(1)
		return ErrPoolShutdown
	}
	p.metrics.scheduled.Add(1)

	slot, ok := p.idle.acquire()
	if !ok {
		return ErrPoolShutdown
	}
	p.workers[slot].wake <- wakeRun
	return nil
}

// BlockUntilIdle waits until the task queue is empty and every worker is idle.
// It returns the first task failure recorded since the previous barrier, then
// clears it. It must not be called from inside a task.
func (p *Pool) BlockUntilIdle() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.waitIdleLocked()
	err := p.failure
	p.failure = nil
	return err
}

// Shutdown stops the pool from accepting tasks and waits for queued work to
// finish. It returns the barrier's task failure, if any. Further calls have no
// effect and return nil.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateOpen {
		return nil
	}
	p.state = StateDraining
	p.logger.Debug("pool draining")

	p.waitIdleLocked()
	if p.state == StateDraining {
		p.state = StateShutdown
	}
	err := p.failure
	p.failure = nil
	return err
}

// Close shuts the pool down if needed, then terminates the workers one at a
// time and waits for each to exit. It is safe to call more than once.
func (p *Pool) Close() error {
	err := p.Shutdown()

	p.mu.Lock()
	if p.state == StateClosed {
		p.mu.Unlock()
		return err
	}
	// Another goroutine may still be inside Shutdown.
	p.waitIdleLocked()
	p.state = StateClosed
	p.mu.Unlock()

	for range p.workers {
		slot, ok := p.idle.acquire()
		if !ok {
			break
		}
		w := p.workers[slot]
		w.wake <- wakeTerminate
		<-w.done
	}

	p.tasks.Close()
	p.tasks.Clear()
	p.idle.close()

	p.logger.Debug("pool closed", "terminated", p.Stats().Terminated)
	return err
}

// waitIdleLocked must be called with p.mu held. A closed pool has no workers
// left to wait for.
func (p *Pool) waitIdleLocked() {
	for p.state != StateClosed && !(p.scheduling == 0 && p.idle.all() && p.tasks.IsEmpty()) {
		p.idleCond.Wait()
	}
}

func (p *Pool) notifyIdle() {
	p.mu.Lock()
	p.idleCond.Broadcast()
	p.mu.Unlock()
}

func (p *Pool) nextTask() (Task, bool) {
	task, st := p.tasks.Pop()
	return task, st == queue.StatusSuccess
}

func (p *Pool) recordFailure(err error) {
	p.mu.Lock()
	if p.failure == nil {
		p.failure = err
	}
	p.mu.Unlock()
}

func (p *Pool) workerExited(slot int) {
	p.mu.Lock()
	p.terminated++
	p.mu.Unlock()
	p.logger.Trace("worker exited", "slot", slot)
}
