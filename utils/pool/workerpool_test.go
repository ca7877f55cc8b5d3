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

package pool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rulego/beanflow/test/assert"
)

func TestWorkerPool(t *testing.T) {
	wp := &WorkerPool{MaxWorkersCount: 200000}
	wp.Start()
	defer wp.Stop()

	var n int32
	var wg sync.WaitGroup
	wg.Add(10000)
	for i := 0; i < 10000; i++ {
		if err := wp.Submit(func() {
			atomic.AddInt32(&n, 1)
			wg.Done()
		}); err != nil {
			t.Fatalf("cannot submit function #%d: %v", i, err)
		}
	}
	wg.Wait()
	assert.Equal(t, int32(10000), atomic.LoadInt32(&n))

	wp.Release()
	assert.Equal(t, ErrPoolStopped, wp.Submit(func() {}))
}

func TestWorkerPoolExhausted(t *testing.T) {
	wp := &WorkerPool{MaxWorkersCount: 1}
	wp.Start()
	defer wp.Stop()

	block := make(chan struct{})
	assert.Nil(t, wp.Submit(func() { <-block }))
	assert.Equal(t, ErrPoolExhausted, wp.Submit(func() {}))
	close(block)

	// the single worker becomes idle again
	deadline := time.Now().Add(time.Second)
	for {
		if err := wp.Submit(func() {}); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("worker was not released")
		}
		time.Sleep(time.Millisecond * 5)
	}
}

func TestWorkerPoolIdleWorkersExpire(t *testing.T) {
	wp := &WorkerPool{MaxWorkersCount: 10, MaxIdleWorkerDuration: time.Millisecond * 50}
	wp.Start()
	defer wp.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	assert.Nil(t, wp.Submit(wg.Done))
	wg.Wait()

	deadline := time.Now().Add(time.Second)
	for wp.Running() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("idle worker still running: %d", wp.Running())
		}
		time.Sleep(time.Millisecond * 10)
	}
}

func TestWorkerPoolWithDoubleStart(*testing.T) {
	wp := &WorkerPool{MaxWorkersCount: 200000, MaxIdleWorkerDuration: time.Second * 10}
	wp.Start()
	wp.Start()
	defer wp.Stop()
}
