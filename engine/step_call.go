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
	"time"

	"github.com/rulego/beanflow/api/types"
	"github.com/rulego/beanflow/utils/cast"
	"github.com/rulego/beanflow/utils/el"
)

// Call modes.
const (
	// CallSync blocks until the sub-flow returns.
	CallSync = "sync"
	// CallPoll dispatches the sub-flow; a reply step collects its result.
	CallPoll = "poll"
	// CallCallback dispatches the sub-flow and invokes the callback flow with an AsyncReply.
	CallCallback = "callback"
	// CallFire dispatches the sub-flow and only logs its failure.
	CallFire = "fire"
)

// CallStepConfiguration configures a call step.
type CallStepConfiguration struct {
	// Flow is the name of the called flow.
	Flow string `mapstructure:"flow"`
	// Overrides are candidate flow names, ${} templates allowed. The last one that
	// names a registered flow replaces Flow.
	Overrides []string `mapstructure:"overrides"`
	// Args are resolved into the sub-flow input: nil, the single value, or a []any.
	Args []types.ValueDsl `mapstructure:"args"`
	// Transaction forces a propagation policy on the callee.
	Transaction        string        `mapstructure:"transaction"`
	TransactionTimeout time.Duration `mapstructure:"transactionTimeout"`
	// Mode is sync, poll, callback or fire. Defaults to sync.
	Mode string `mapstructure:"mode"`
	// Callback is the flow invoked in callback mode.
	Callback string `mapstructure:"callback"`
	// Attributes are resolved at dispatch time and handed to the callback.
	Attributes map[string]types.ValueDsl `mapstructure:"attributes"`
	// AllowOverride lets the factory substitute a registered override of the flow.
	AllowOverride bool `mapstructure:"allowOverride"`
}

type callStep struct {
	baseStep
	Config     CallStepConfiguration
	overrides  []el.Template
	args       []Value
	tx         *types.TransactionInfo
	attributes map[string]Value
}

func (s *callStep) Init(b *builder, dsl types.StepDsl) error {
	s.init(dsl)
	if err := decode(dsl.Configuration, &s.Config); err != nil {
		return err
	}
	if s.Config.Flow == "" {
		return fmt.Errorf("call step requires a flow")
	}
	switch s.Config.Mode {
	case "":
		s.Config.Mode = CallSync
	case CallSync, CallFire:
	case CallPoll:
		if s.name == "" {
			return fmt.Errorf("poll call requires a step name")
		}
	case CallCallback:
		if s.Config.Callback == "" {
			return fmt.Errorf("callback call requires a callback flow")
		}
	default:
		return fmt.Errorf("unknown call mode %q", s.Config.Mode)
	}
	for _, o := range s.Config.Overrides {
		t, err := el.NewTemplate(o)
		if err != nil {
			return fmt.Errorf("override %q: %w", o, err)
		}
		s.overrides = append(s.overrides, t)
	}
	var err error
	if s.args, err = b.values(s.Config.Args); err != nil {
		return err
	}
	if s.Config.Transaction != "" {
		p, err := types.ParsePropagation(s.Config.Transaction)
		if err != nil {
			return err
		}
		s.tx = &types.TransactionInfo{Propagation: p, Timeout: s.Config.TransactionTimeout}
	}
	if len(s.Config.Attributes) > 0 {
		s.attributes = make(map[string]Value, len(s.Config.Attributes))
		for k, dsl := range s.Config.Attributes {
			if s.attributes[k], err = b.value(dsl); err != nil {
				return err
			}
		}
	}
	return nil
}

// input resolves the arguments into the sub-flow input.
func (s *callStep) input(ic *Context) (any, error) {
	args, err := resolveAll(ic, s.args)
	if err != nil {
		return nil, err
	}
	switch len(args) {
	case 0:
		return nil, nil
	case 1:
		return args[0], nil
	default:
		return args, nil
	}
}

// target returns the flow name, replaced by the last override naming a registered flow.
func (s *callStep) target(ic *Context) (string, error) {
	if len(s.overrides) == 0 {
		return s.Config.Flow, nil
	}
	vars := ic.bindings(0)
	for i := len(s.overrides) - 1; i >= 0; i-- {
		v, err := s.overrides[i].Execute(vars)
		if err != nil {
			return "", err
		}
		if name := cast.ToString(v); name != "" && ic.env.Factory.ContainsFlow(name) {
			return name, nil
		}
	}
	return s.Config.Flow, nil
}

func (s *callStep) Execute(ic *Context) (*Outcome, error) {
	if err := ic.checkMonitor(s.name); err != nil {
		return nil, err
	}
	if ic.env.Factory == nil {
		return nil, fmt.Errorf("no flow factory to call %s", s.Config.Flow)
	}
	input, err := s.input(ic)
	if err != nil {
		return nil, err
	}
	name, err := s.target(ic)
	if err != nil {
		return nil, err
	}
	flow, err := ic.env.Factory.CreateFlow(name, ic.FlowName(), s.Config.AllowOverride)
	if err != nil {
		return nil, err
	}
	opts := []types.InvokeOption{types.WithCaller(ic.FlowName())}
	if s.tx != nil {
		opts = append(opts, types.WithTransaction(*s.tx))
	}
	if s.Config.Mode == CallSync {
		defer flow.End()
		res, err := flow.Invoke(ic.ctx, input, append(opts, types.WithMonitor(ic.monitor))...)
		if err != nil {
			return nil, err
		}
		return &Outcome{Target: input, Result: res}, nil
	}
	attributes := make(map[string]any, len(s.attributes))
	for k, v := range s.attributes {
		if attributes[k], err = v.Resolve(ic); err != nil {
			flow.End()
			return nil, err
		}
	}
	ac := s.dispatch(ic.env, flow, name, input, attributes, opts)
	if s.Config.Mode != CallPoll {
		return &Outcome{Target: input, Result: ac}, nil
	}
	var pending []*AsyncContext
	if prev, ok := ic.Outcome(s.name); ok {
		pending, _ = prev.Result.([]*AsyncContext)
	}
	return &Outcome{Target: input, Result: append(pending, ac)}, nil
}

// dispatch runs the flow on the environment pool under a fresh monitor and context.
func (s *callStep) dispatch(env *Env, flow types.Flow, name string, input any, attributes map[string]any, opts []types.InvokeOption) *AsyncContext {
	ctx, cancel := context.WithCancel(context.Background())
	ac := newAsyncContext(name, input, cancel)
	opts = append(opts, types.WithMonitor(ac.monitor))
	env.Submit(func() {
		defer cancel()
		res, err := invokeAndEnd(ctx, flow, input, opts)
		ac.complete(res, err)
		switch s.Config.Mode {
		case CallCallback:
			s.notify(env, ac, attributes)
		case CallFire:
			if err != nil {
				env.Logger().Printf("async flow %s (%s) failed: %v", name, ac.Id, err)
			}
		}
	})
	return ac
}

func invokeAndEnd(ctx context.Context, flow types.Flow, input any, opts []types.InvokeOption) (any, error) {
	defer flow.End()
	return flow.Invoke(ctx, input, opts...)
}

// notify invokes the callback flow with the reply of ac.
func (s *callStep) notify(env *Env, ac *AsyncContext, attributes map[string]any) {
	reply := &AsyncReply{Id: ac.Id, Flow: ac.Flow, Input: ac.Input, Output: ac.result, Err: ac.err, Attributes: attributes}
	callback, err := env.Factory.CreateFlow(s.Config.Callback, ac.Flow, false)
	if err != nil {
		env.Logger().Printf("callback flow %s for %s (%s): %v", s.Config.Callback, ac.Flow, ac.Id, err)
		return
	}
	if _, err := invokeAndEnd(context.Background(), callback, reply, nil); err != nil {
		env.Logger().Printf("callback flow %s for %s (%s) failed: %v", s.Config.Callback, ac.Flow, ac.Id, err)
	}
}
