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
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rulego/beanflow/api/types"
)

// AsyncContext tracks a sub-flow invocation dispatched by an asynchronous call step.
type AsyncContext struct {
	// Id identifies the dispatch.
	Id string
	// Flow is the name of the invoked flow.
	Flow string
	// Input is the input handed to the flow.
	Input any

	monitor *DefaultMonitor
	cancel  context.CancelFunc
	done    chan struct{}
	result  any
	err     error
}

func newAsyncContext(flow string, input any, cancel context.CancelFunc) *AsyncContext {
	return &AsyncContext{
		Id:      uuid.Must(uuid.NewV4()).String(),
		Flow:    flow,
		Input:   input,
		monitor: NewMonitor(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Done is closed when the invocation completed.
func (a *AsyncContext) Done() <-chan struct{} {
	return a.done
}

// Result returns the outcome of a completed invocation. ok is false while it is running.
func (a *AsyncContext) Result() (result any, ok bool, err error) {
	select {
	case <-a.done:
		return a.result, true, a.err
	default:
		return nil, false, nil
	}
}

// Wait blocks until the invocation completed or ctx is done.
func (a *AsyncContext) Wait(ctx context.Context) (any, error) {
	select {
	case <-a.done:
		return a.result, a.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel stops the invocation through its monitor and cancels its context.
func (a *AsyncContext) Cancel() {
	a.monitor.Cancel()
	a.cancel()
}

// Monitor returns the monitor of the invocation.
func (a *AsyncContext) Monitor() types.Monitor {
	return a.monitor
}

func (a *AsyncContext) complete(result any, err error) {
	if err == nil && a.monitor.IsCanceled() {
		err = types.ErrMonitorCanceled
	}
	a.result, a.err = result, err
	close(a.done)
}

// await waits up to timeout, forever when timeout is not positive. timedOut is set
// when the timeout elapsed first.
func (a *AsyncContext) await(ctx context.Context, timeout time.Duration) (result any, timedOut bool, err error) {
	if timeout <= 0 {
		result, err = a.Wait(ctx)
		return result, false, err
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-a.done:
		return a.result, false, a.err
	case <-timer.C:
		return nil, true, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// AsyncReply is the input of a callback flow.
type AsyncReply struct {
	// Id is the id of the AsyncContext.
	Id string
	// Flow is the name of the invoked flow.
	Flow string
	// Input is the input of the invoked flow.
	Input any
	// Output is its result.
	Output any
	// Err is the error it failed with.
	Err error
	// Attributes are resolved by the call step when dispatching.
	Attributes map[string]any
}
