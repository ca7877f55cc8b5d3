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

package types

import (
	"context"
	"time"
)

// Flow is an invocable flow instance handed out by a FlowFactory.
// Instances follow the create → invoke → end contract.
type Flow interface {
	// Name returns the definition name of the flow.
	Name() string
	// Invoke runs the flow synchronously on the caller's goroutine and returns the final step result.
	Invoke(ctx context.Context, input any, opts ...InvokeOption) (any, error)
	// End releases the instance.
	End()
}

// FlowFactory creates flow instances by name.
type FlowFactory interface {
	// CreateFlow returns the flow registered under name. caller is the name of the
	// invoking flow, empty for top level calls. When allowOverride is true the
	// factory may substitute a registered override for name.
	CreateFlow(name, caller string, allowOverride bool) (Flow, error)
	// ContainsFlow reports whether name, or an alias of it, is registered.
	ContainsFlow(name string) bool
}

// Monitor observes and controls one invocation from outside.
type Monitor interface {
	Id() string
	Suspend()
	Resume()
	Stop()
	Cancel()
	IsSuspended() bool
	IsStopped() bool
	IsCanceled() bool
	// StartTime returns when the flow body started, zero before that.
	StartTime() time.Time
	// CurrentStep returns the name of the last step that passed its monitor check.
	CurrentStep() string
	// OnStart is called by the driver when the flow body starts.
	OnStart(flow string)
	// OnStep is called by steps at their monitor check point.
	OnStep(step string)
}

// ResumeWaiter is implemented by monitors able to block until resumed.
// Monitors without it are polled.
type ResumeWaiter interface {
	WaitResume(ctx context.Context) error
}

// Journal receives step boundary events. It is a pure observer and must be safe for concurrent use.
type Journal interface {
	StartStep(flow, invocationId, step string)
	AddInfo(flow, invocationId, step, key string, value any)
	EndStep(flow, invocationId, step string, err error)
}

// Pool runs async units of work on separate goroutines.
type Pool interface {
	// Submit hands the task to a worker. It returns an error if the pool is saturated or stopped.
	Submit(task func()) error
	// Release stops the pool.
	Release()
}

// InvokeOptions carries per-call parameters of an invocation.
type InvokeOptions struct {
	// Monitor controls the invocation. A fresh monitor is used when nil.
	Monitor Monitor
	// Transaction forces a propagation policy on the callee, overriding its declared default.
	Transaction *TransactionInfo
	// Caller is the name of the calling flow, if any.
	Caller string
}

// InvokeOption configures an InvokeOptions value.
type InvokeOption func(*InvokeOptions)

// WithMonitor sets the monitor of the invocation.
func WithMonitor(monitor Monitor) InvokeOption {
	return func(o *InvokeOptions) {
		o.Monitor = monitor
	}
}

// WithTransaction forces a transaction propagation on the invoked flow.
func WithTransaction(info TransactionInfo) InvokeOption {
	return func(o *InvokeOptions) {
		o.Transaction = &info
	}
}

// WithCaller records the calling flow name.
func WithCaller(caller string) InvokeOption {
	return func(o *InvokeOptions) {
		o.Caller = caller
	}
}

// NewInvokeOptions applies opts to an empty InvokeOptions.
func NewInvokeOptions(opts ...InvokeOption) InvokeOptions {
	var o InvokeOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
