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

package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rulego/beanflow/api/types"
)

// Semaphore bounds the number of concurrent holders of a flow or a step.
// Acquirers that find no free slot wait for one, at most MaxWaiters of them at a time.
type Semaphore struct {
	// Max is the number of slots.
	Max int64
	// Timeout is how long an acquirer waits for a slot. Zero waits until the context
	// is done, a negative value fails immediately.
	Timeout time.Duration
	// MaxWaiters bounds the number of blocked acquirers, zero is unbounded.
	MaxWaiters int64
	// ForceFree releases a ticket held longer than this, zero never does.
	ForceFree time.Duration

	tokens  chan struct{}
	waiters int64
}

// NewSemaphore creates a semaphore from a limiter definition. It returns nil when the
// definition is missing or allows no slot limit.
func NewSemaphore(dsl *types.LimiterDsl) *Semaphore {
	if dsl == nil || dsl.Max <= 0 {
		return nil
	}
	return &Semaphore{
		Max:        int64(dsl.Max),
		Timeout:    dsl.Timeout,
		MaxWaiters: int64(dsl.MaxWaiters),
		ForceFree:  dsl.ForceFree,
		tokens:     make(chan struct{}, dsl.Max),
	}
}

// Ticket is a held slot.
type Ticket struct {
	s     *Semaphore
	once  sync.Once
	timer atomic.Pointer[time.Timer]
}

// Release frees the slot. Calling it more than once has no effect.
func (t *Ticket) Release() {
	t.once.Do(func() {
		if timer := t.timer.Load(); timer != nil {
			timer.Stop()
		}
		<-t.s.tokens
	})
}

// Acquire takes a slot, waiting up to Timeout or until ctx is done when Timeout is zero.
// It fails with ErrConcurrencyLimitReached when no slot frees up in time or too many
// acquirers are already waiting, and with ctx.Err() when ctx ends first.
func (s *Semaphore) Acquire(ctx context.Context) (*Ticket, error) {
	select {
	case s.tokens <- struct{}{}:
		return s.ticket(), nil
	default:
	}
	if s.Timeout < 0 {
		return nil, types.ErrConcurrencyLimitReached
	}
	for {
		current := atomic.LoadInt64(&s.waiters)
		if s.MaxWaiters > 0 && current >= s.MaxWaiters {
			return nil, types.ErrConcurrencyLimitReached
		}
		if atomic.CompareAndSwapInt64(&s.waiters, current, current+1) {
			break
		}
	}
	defer atomic.AddInt64(&s.waiters, -1)

	var expired <-chan time.Time
	if s.Timeout > 0 {
		timer := time.NewTimer(s.Timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case s.tokens <- struct{}{}:
		return s.ticket(), nil
	case <-expired:
		return nil, types.ErrConcurrencyLimitReached
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Semaphore) ticket() *Ticket {
	t := &Ticket{s: s}
	if s.ForceFree > 0 {
		t.timer.Store(time.AfterFunc(s.ForceFree, t.Release))
	}
	return t
}

// InUse returns the number of held slots.
func (s *Semaphore) InUse() int {
	return len(s.tokens)
}

// Waiting returns the number of blocked acquirers.
func (s *Semaphore) Waiting() int {
	return int(atomic.LoadInt64(&s.waiters))
}
