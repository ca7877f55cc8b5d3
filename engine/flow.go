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
	"fmt"

	"github.com/rulego/beanflow/api/types"
)

var _ types.Flow = (*Flow)(nil)

// Flow runs invocations of a definition.
type Flow struct {
	def *Definition
	env *Env
}

// NewFlow creates a flow running def in env.
func NewFlow(env *Env, def *Definition) *Flow {
	return &Flow{def: def, env: env}
}

func (f *Flow) Name() string {
	return f.def.Name
}

// Definition returns the compiled definition.
func (f *Flow) Definition() *Definition {
	return f.def
}

// End releases the instance. Flows hold no per caller state, so it does nothing.
func (f *Flow) End() {
}

// Invoke runs the flow on the calling goroutine and returns the result of the last
// executed step. Errors other than flow control errors are returned as *types.TargetError.
func (f *Flow) Invoke(ctx context.Context, input any, opts ...types.InvokeOption) (any, error) {
	if f.def.Empty() {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	o := types.NewInvokeOptions(opts...)
	monitor := o.Monitor
	if monitor == nil {
		monitor = NewMonitor()
	}
	bracket := &transactionBracket{
		flow:    f.def.Name,
		tm:      f.env.Config.TransactionManager,
		policy:  f.def.Propagation,
		timeout: f.def.TransactionTimeout,
		logger:  f.env.Logger(),
	}
	if tx := o.Transaction; tx != nil {
		bracket.policy = tx.Propagation
		if tx.Timeout > 0 {
			bracket.timeout = tx.Timeout
		}
		if tx.Manager != nil {
			bracket.tm = tx.Manager
		}
	}
	var result any
	err := bracket.run(ctx, func(ctx context.Context) error {
		transacted := bracket.tm != nil && bracket.tm.Current(ctx) != nil
		var err error
		result, err = f.execute(ctx, input, monitor, transacted)
		return err
	})
	if err != nil {
		return nil, normalize(f.def.Name, err)
	}
	return result, nil
}

// execute runs the body of an invocation inside its transaction context.
func (f *Flow) execute(ctx context.Context, input any, monitor types.Monitor, transacted bool) (result any, err error) {
	def := f.def
	if def.Limiter != nil {
		ticket, err := def.Limiter.Acquire(ctx)
		if err != nil {
			return nil, &types.UnavailableFlowError{Flow: def.Name, Err: err}
		}
		defer ticket.Release()
	}
	var resources types.ResourceManager
	if len(def.Resources) > 0 {
		resources = f.env.Config.ResourceManagerFactory.CreateResourceManager(ctx)
		for _, r := range def.Resources {
			if err := resources.AddResource(r.Name, r.Key, r.Factory, r.Transacted && transacted, r.Close); err != nil {
				return nil, &types.BeanControlError{Flow: def.Name, Err: err}
			}
		}
		defer func() {
			err = f.complete(resources, err)
		}()
	}
	defer func() {
		if r := recover(); r != nil {
			f.env.Logger().Printf("flow %s: recovered panic: %v", def.Name, r)
			err = &types.TargetError{Flow: def.Name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	ic := newContext(ctx, def, f.env, input, resources, monitor)
	monitor.OnStart(def.Name)
	if _, err := def.guard.run(ic, func() (*Outcome, error) {
		// named inputs are part of the guarded body: their failures reach catch and finally
		for _, in := range def.Inputs {
			v, err := in.Value.Resolve(ic)
			if err != nil {
				return nil, err
			}
			ic.inputs[in.Name] = v
		}
		return runSteps(ic, def.Steps)
	}); err != nil {
		return nil, err
	}
	return ic.current.Result, nil
}

// complete commits the resources when the invocation succeeded, rolls them back
// otherwise, then terminates the manager.
func (f *Flow) complete(resources types.ResourceManager, err error) error {
	if err == nil {
		if cerr := resources.CommitAll(); cerr != nil {
			err = &types.BeanControlError{Flow: f.def.Name, Err: cerr}
		}
	}
	if err != nil {
		if rerr := resources.RollbackAll(); rerr != nil {
			f.env.Logger().Printf("flow %s: resource rollback failed: %v", f.def.Name, rerr)
		}
	}
	if terr := resources.Terminate(); terr != nil {
		f.env.Logger().Printf("flow %s: resource termination failed: %v", f.def.Name, terr)
	}
	return err
}

// normalize strips reflection wrappers and wraps errors that are not flow control
// errors into a TargetError carrying the flow name.
func normalize(flow string, err error) error {
	err = types.UnwrapInvocation(err)
	switch err.(type) {
	case *types.UnavailableFlowError, *types.MonitorStoppedError, *types.AsyncTimeoutError,
		*types.TargetError, *types.BeanControlError:
		return err
	}
	return &types.TargetError{Flow: flow, Err: err}
}
