/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package pool provides the worker pool used to run asynchronous sub-flow invocations.
//
// Workers are reused in FILO order: the most recently idle worker serves the
// next task, and workers idle longer than MaxIdleWorkerDuration are retired.
package pool

import (
	"errors"
	"runtime"
	"sync"
	"time"
)

var (
	// ErrPoolExhausted is returned by Submit when every worker is busy and MaxWorkersCount is reached.
	ErrPoolExhausted = errors.New("no idle workers")
	// ErrPoolStopped is returned by Submit after Stop.
	ErrPoolStopped = errors.New("worker pool stopped")
)

// DefaultMaxIdleWorkerDuration is used when MaxIdleWorkerDuration is not set.
const DefaultMaxIdleWorkerDuration = 10 * time.Second

// WorkerPool runs submitted functions on a bounded set of reusable goroutines.
//
//	wp := &WorkerPool{MaxWorkersCount: 100}
//	wp.Start()
//	defer wp.Stop()
//	err := wp.Submit(func() { ... })
type WorkerPool struct {
	// MaxWorkersCount is the maximum number of concurrently running workers.
	MaxWorkersCount int
	// MaxIdleWorkerDuration is how long an idle worker is kept before it exits.
	MaxIdleWorkerDuration time.Duration

	lock      sync.Mutex
	running   int
	stopped   bool
	idle      []*worker
	stopCh    chan struct{}
	startOnce sync.Once
	workers   sync.Pool
}

type worker struct {
	lastUse time.Time
	tasks   chan func()
}

// capacity of a worker's task channel; unbuffered on a single CPU so the
// submitter hands off directly.
var workerCap = func() int {
	if runtime.GOMAXPROCS(0) == 1 {
		return 0
	}
	return 1
}()

// Start launches the idle-worker reaper. Calling it more than once is a no-op.
func (wp *WorkerPool) Start() {
	wp.startOnce.Do(func() {
		wp.lock.Lock()
		wp.stopCh = make(chan struct{})
		wp.stopped = false
		stopCh := wp.stopCh
		wp.lock.Unlock()
		wp.workers.New = func() interface{} {
			return &worker{tasks: make(chan func(), workerCap)}
		}
		go wp.reap(stopCh)
	})
}

// Stop retires idle workers and rejects further submissions.
// Busy workers exit after finishing their current task.
func (wp *WorkerPool) Stop() {
	wp.lock.Lock()
	defer wp.lock.Unlock()
	if wp.stopped || wp.stopCh == nil {
		return
	}
	wp.stopped = true
	close(wp.stopCh)
	for i, w := range wp.idle {
		w.tasks <- nil
		wp.idle[i] = nil
	}
	wp.idle = wp.idle[:0]
}

// Release implements the pool contract and is equivalent to Stop.
func (wp *WorkerPool) Release() {
	wp.Stop()
}

// Submit schedules fn on an idle or new worker.
func (wp *WorkerPool) Submit(fn func()) error {
	w, err := wp.acquire()
	if err != nil {
		return err
	}
	w.tasks <- fn
	return nil
}

// Running returns the number of live workers.
func (wp *WorkerPool) Running() int {
	wp.lock.Lock()
	defer wp.lock.Unlock()
	return wp.running
}

func (wp *WorkerPool) idleDuration() time.Duration {
	if wp.MaxIdleWorkerDuration <= 0 {
		return DefaultMaxIdleWorkerDuration
	}
	return wp.MaxIdleWorkerDuration
}

func (wp *WorkerPool) reap(stopCh chan struct{}) {
	ticker := time.NewTicker(wp.idleDuration())
	defer ticker.Stop()
	var expired []*worker
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			expired = wp.expire(expired[:0])
			for i, w := range expired {
				w.tasks <- nil
				expired[i] = nil
			}
		}
	}
}

// expire detaches workers idle since before the cutoff. The idle slice is
// ordered by lastUse, oldest first.
func (wp *WorkerPool) expire(into []*worker) []*worker {
	cutoff := time.Now().Add(-wp.idleDuration())
	wp.lock.Lock()
	defer wp.lock.Unlock()
	n := 0
	for n < len(wp.idle) && wp.idle[n].lastUse.Before(cutoff) {
		n++
	}
	if n == 0 {
		return into
	}
	into = append(into, wp.idle[:n]...)
	m := copy(wp.idle, wp.idle[n:])
	for i := m; i < len(wp.idle); i++ {
		wp.idle[i] = nil
	}
	wp.idle = wp.idle[:m]
	return into
}

func (wp *WorkerPool) acquire() (*worker, error) {
	wp.lock.Lock()
	if wp.stopped {
		wp.lock.Unlock()
		return nil, ErrPoolStopped
	}
	if n := len(wp.idle); n > 0 {
		w := wp.idle[n-1]
		wp.idle[n-1] = nil
		wp.idle = wp.idle[:n-1]
		wp.lock.Unlock()
		return w, nil
	}
	if wp.MaxWorkersCount > 0 && wp.running >= wp.MaxWorkersCount {
		wp.lock.Unlock()
		return nil, ErrPoolExhausted
	}
	wp.running++
	wp.lock.Unlock()

	v := wp.workers.Get()
	w, ok := v.(*worker)
	if !ok {
		w = &worker{tasks: make(chan func(), workerCap)}
	}
	go func() {
		wp.serve(w)
		wp.workers.Put(w)
	}()
	return w, nil
}

func (wp *WorkerPool) park(w *worker) bool {
	w.lastUse = time.Now()
	wp.lock.Lock()
	defer wp.lock.Unlock()
	if wp.stopped {
		return false
	}
	wp.idle = append(wp.idle, w)
	return true
}

func (wp *WorkerPool) serve(w *worker) {
	for fn := range w.tasks {
		if fn == nil {
			break
		}
		fn()
		if !wp.park(w) {
			break
		}
	}
	wp.lock.Lock()
	wp.running--
	wp.lock.Unlock()
}
