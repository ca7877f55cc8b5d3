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

	"github.com/rulego/beanflow/api/types"
)

// Outcome is the record a step leaves behind: the object it operated on, its result,
// and the loop control flags read by the nearest enclosing loop.
type Outcome struct {
	Target   any
	Result   any
	Continue bool
	Break    bool
}

// Context is the mutable state of one flow invocation. It is confined to the goroutine
// running the invocation; sub-flow calls get their own Context.
type Context struct {
	ctx          context.Context
	def          *Definition
	env          *Env
	invocationId string

	// Input is the invocation input.
	Input any

	inputs    map[string]any
	current   *Outcome
	outcomes  map[string]*Outcome
	vars      map[string]any
	resources types.ResourceManager
	monitor   types.Monitor
	// replies counts the async replies consumed per call step.
	replies map[string]int
}

func newContext(ctx context.Context, def *Definition, env *Env, input any, resources types.ResourceManager, monitor types.Monitor) *Context {
	ic := &Context{
		ctx:          ctx,
		def:          def,
		env:          env,
		invocationId: monitor.Id(),
		Input:        input,
		inputs:       make(map[string]any),
		current:      &Outcome{Target: input},
		outcomes:     make(map[string]*Outcome, len(def.StepNames)),
		vars:         make(map[string]any),
		resources:    resources,
		monitor:      monitor,
	}
	for _, name := range def.StepNames {
		ic.outcomes[name] = &Outcome{}
	}
	return ic
}

// Context returns the Go context of the invocation, carrying the transaction binding.
func (ic *Context) Context() context.Context {
	return ic.ctx
}

// FlowName returns the name of the running flow.
func (ic *Context) FlowName() string {
	return ic.def.Name
}

// InvocationId returns the id of the invocation, shared with its monitor.
func (ic *Context) InvocationId() string {
	return ic.invocationId
}

// Current returns the outcome of the step being evaluated. It is never nil.
func (ic *Context) Current() *Outcome {
	return ic.current
}

// SetCurrent moves the current step pointer. nil is ignored.
func (ic *Context) SetCurrent(out *Outcome) {
	if out != nil {
		ic.current = out
	}
}

// Outcome returns the outcome recorded under a step name.
func (ic *Context) Outcome(step string) (*Outcome, bool) {
	out, ok := ic.outcomes[step]
	return out, ok
}

// Record stores the outcome of a named step.
func (ic *Context) Record(step string, out *Outcome) {
	if step != "" && out != nil {
		ic.outcomes[step] = out
	}
}

// Var returns a flow variable.
func (ic *Context) Var(name string) (any, bool) {
	v, ok := ic.vars[name]
	return v, ok
}

// SetVar sets a flow variable.
func (ic *Context) SetVar(name string, value any) {
	ic.vars[name] = value
}

// Vars returns the flow variables. The map must not be modified.
func (ic *Context) Vars() map[string]any {
	return ic.vars
}

// InputValue returns a named input extracted at invocation start.
func (ic *Context) InputValue(name string) (any, bool) {
	v, ok := ic.inputs[name]
	return v, ok
}

// Resources returns the resource manager of the invocation, nil when the flow declares no resources.
func (ic *Context) Resources() types.ResourceManager {
	return ic.resources
}

// Resource returns a declared resource.
func (ic *Context) Resource(name string) (types.TransactionResource, error) {
	if ic.resources == nil {
		return nil, types.ErrNoResourceManager
	}
	return ic.resources.GetResource(name)
}

// Monitor returns the monitor of the invocation.
func (ic *Context) Monitor() types.Monitor {
	return ic.monitor
}

// Env returns the runtime environment of the flow.
func (ic *Context) Env() *Env {
	return ic.env
}

const suspendPollInterval = time.Millisecond * 20

// checkMonitor is the per step monitor check point: it records the step, fails with a
// MonitorStoppedError when stopped and blocks while suspended.
func (ic *Context) checkMonitor(step string) error {
	m := ic.monitor
	if m == nil {
		return nil
	}
	m.OnStep(step)
	for {
		if m.IsStopped() {
			return &types.MonitorStoppedError{Flow: ic.def.Name, Step: step}
		}
		if err := ic.ctx.Err(); err != nil {
			return err
		}
		if !m.IsSuspended() {
			return nil
		}
		if waiter, ok := m.(types.ResumeWaiter); ok {
			if err := waiter.WaitResume(ic.ctx); err != nil {
				return err
			}
			continue
		}
		select {
		case <-ic.ctx.Done():
		case <-time.After(suspendPollInterval):
		}
	}
}

// bindings returns the variables exposed to expressions: functions, flow variables
// by name, named inputs, then input, this and result. Later entries shadow earlier ones.
func (ic *Context) bindings(extra int) map[string]any {
	vars := make(map[string]any, len(ic.env.functions)+len(ic.vars)+len(ic.inputs)+3+extra)
	for k, v := range ic.env.functions {
		vars[k] = v
	}
	for k, v := range ic.vars {
		vars[k] = v
	}
	for k, v := range ic.inputs {
		vars[k] = v
	}
	vars[rootInput] = ic.Input
	vars[rootThis] = ic.current.Target
	vars[rootResult] = ic.current.Result
	return vars
}
