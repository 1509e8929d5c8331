package pool

import (
	"fmt"
	"runtime/debug"
)

type wakeSignal int

const (
	wakeRun wakeSignal = iota
	wakeTerminate
)

// worker owns a private wake channel so the scheduler can wake it alone
// instead of broadcasting to every idle worker.
type worker struct {
	slot int
	pool *Pool
	wake chan wakeSignal
	done chan struct{}
}

func newWorker(slot int, p *Pool) *worker {
	return &worker{
		slot: slot,
		pool: p,
		wake: make(chan wakeSignal, 1),
		done: make(chan struct{}),
	}
}

// run is the worker loop: park as idle, wait for a targeted wake, then either
// exit or take one task from the shared queue.
func (w *worker) run() {
	defer close(w.done)
	p := w.pool

	for {
		p.idle.release(w.slot)
		p.notifyIdle()

		if sig := <-w.wake; sig == wakeTerminate {
			p.workerExited(w.slot)
			return
		}

		// A task was pushed before this worker was woken, so Pop only waits
		// if another woken worker took it first.
		task, ok := p.nextTask()
		if !ok {
			continue
		}
		w.execute(task)
	}
}

func (w *worker) execute(task Task) {
	p := w.pool
	defer p.metrics.completed.Add(1)

	if err := w.safeCall(task); err != nil {
		p.metrics.failed.Add(1)
		p.logger.Error("task failed", "slot", w.slot, "error", err)
		p.recordFailure(err)
	}
}

func (w *worker) safeCall(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if h := w.pool.config.PanicHandler; h != nil {
				h(w.slot, r)
			}
			err = &TaskError{
				Slot:  w.slot,
				Err:   fmt.Errorf("panic: %v", r),
				Panic: r,
				Stack: debug.Stack(),
			}
		}
	}()

	if terr := task(); terr != nil {
		return &TaskError{Slot: w.slot, Err: terr}
	}
	return nil
}
