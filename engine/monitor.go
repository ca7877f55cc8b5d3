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
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rulego/beanflow/api/types"
)

var _ types.Monitor = (*DefaultMonitor)(nil)
var _ types.ResumeWaiter = (*DefaultMonitor)(nil)

// DefaultMonitor is the monitor used when an invocation is started without one.
// Stop and Cancel are final; Suspend blocks the invocation at its next step until Resume.
type DefaultMonitor struct {
	id string

	mu        sync.Mutex
	suspended bool
	stopped   bool
	canceled  bool
	resume    chan struct{}
	flow      string
	startTime time.Time
	step      string
}

// NewMonitor creates a monitor with a random id.
func NewMonitor() *DefaultMonitor {
	return &DefaultMonitor{id: uuid.Must(uuid.NewV4()).String()}
}

func (m *DefaultMonitor) Id() string {
	return m.id
}

func (m *DefaultMonitor) Suspend() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.suspended && !m.stopped {
		m.suspended = true
		m.resume = make(chan struct{})
	}
}

func (m *DefaultMonitor) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wake()
}

func (m *DefaultMonitor) wake() {
	if m.suspended {
		m.suspended = false
		close(m.resume)
	}
}

func (m *DefaultMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	m.wake()
}

// Cancel stops the invocation and marks it canceled.
func (m *DefaultMonitor) Cancel() {
	m.mu.Lock()
	m.canceled = true
	m.mu.Unlock()
	m.Stop()
}

func (m *DefaultMonitor) IsSuspended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suspended
}

func (m *DefaultMonitor) IsStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

func (m *DefaultMonitor) IsCanceled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canceled
}

func (m *DefaultMonitor) StartTime() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startTime
}

func (m *DefaultMonitor) CurrentStep() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step
}

// Flow returns the name of the first flow started under the monitor.
func (m *DefaultMonitor) Flow() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flow
}

func (m *DefaultMonitor) OnStart(flow string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startTime.IsZero() {
		m.flow = flow
		m.startTime = time.Now()
	}
}

func (m *DefaultMonitor) OnStep(step string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.step = step
}

// WaitResume blocks while the monitor is suspended.
func (m *DefaultMonitor) WaitResume(ctx context.Context) error {
	m.mu.Lock()
	if !m.suspended {
		m.mu.Unlock()
		return nil
	}
	ch := m.resume
	m.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
