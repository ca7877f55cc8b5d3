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
	"testing"
	"time"

	"github.com/rulego/beanflow/test/assert"
)

func TestMonitorState(t *testing.T) {
	m := NewMonitor()
	assert.NotEqual(t, "", m.Id())
	assert.NotEqual(t, m.Id(), NewMonitor().Id())
	assert.True(t, m.StartTime().IsZero())

	m.OnStart("outer")
	started := m.StartTime()
	m.OnStart("inner")
	assert.Equal(t, "outer", m.Flow())
	assert.Equal(t, started, m.StartTime())
	m.OnStep("s1")
	assert.Equal(t, "s1", m.CurrentStep())

	assert.Nil(t, m.WaitResume(context.Background()))
	m.Suspend()
	m.Suspend()
	assert.True(t, m.IsSuspended())
	resumed := make(chan error, 1)
	go func() {
		resumed <- m.WaitResume(context.Background())
	}()
	time.Sleep(10 * time.Millisecond)
	m.Resume()
	assert.Nil(t, <-resumed)
	assert.False(t, m.IsSuspended())

	m.Suspend()
	m.Cancel()
	assert.False(t, m.IsSuspended())
	assert.True(t, m.IsStopped())
	assert.True(t, m.IsCanceled())
	m.Suspend()
	assert.False(t, m.IsSuspended())
}
