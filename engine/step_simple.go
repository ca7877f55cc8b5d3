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
	"github.com/rulego/beanflow/api/types"
	"github.com/rulego/beanflow/utils/el"
)

// SimpleStepConfiguration configures a simple step.
type SimpleStepConfiguration struct {
	// Target is the object the step operates on, the invocation input when omitted.
	Target *types.ValueDsl `mapstructure:"target"`
	// Accessors are applied to the target in order.
	Accessors []types.AccessorDsl `mapstructure:"accessors"`
	// Result computes the step result. The target is the result when no result,
	// template or script is given.
	Result *types.ValueDsl `mapstructure:"result"`
	// Template renders the result with ${} expressions over the expression bindings.
	Template any `mapstructure:"template"`
	// Script computes the result with the evaluator of Language.
	Script   string `mapstructure:"script"`
	Language string `mapstructure:"language"`
	// Limiter bounds concurrent executions of the step.
	Limiter *types.LimiterDsl `mapstructure:"limiter"`
}

type simpleStep struct {
	baseStep
	Config    SimpleStepConfiguration
	target    Value
	accessors []*accessor
	result    Value
	template  el.Template
	limiter   *Semaphore
}

func (s *simpleStep) Init(b *builder, dsl types.StepDsl) error {
	s.init(dsl)
	if err := decode(dsl.Configuration, &s.Config); err != nil {
		return err
	}
	var err error
	if s.Config.Target != nil {
		if s.target, err = b.value(*s.Config.Target); err != nil {
			return err
		}
	}
	if s.accessors, err = b.accessors(s.Config.Accessors); err != nil {
		return err
	}
	switch {
	case s.Config.Result != nil:
		s.result, err = b.value(*s.Config.Result)
	case s.Config.Template != nil:
		s.template, err = el.NewTemplate(s.Config.Template)
	case s.Config.Script != "":
		s.result, err = b.newExpression(s.Config.Script, s.Config.Language)
	}
	if err != nil {
		return err
	}
	s.limiter = NewSemaphore(s.Config.Limiter)
	return nil
}

func (s *simpleStep) Execute(ic *Context) (*Outcome, error) {
	if err := ic.checkMonitor(s.name); err != nil {
		return nil, err
	}
	if s.limiter != nil {
		ticket, err := s.limiter.Acquire(ic.ctx)
		if err != nil {
			return nil, &types.UnavailableStepError{Flow: ic.FlowName(), Step: s.name, Err: err}
		}
		defer ticket.Release()
	}
	target := ic.Input
	if s.target != nil {
		var err error
		if target, err = s.target.Resolve(ic); err != nil {
			return nil, err
		}
	}
	out := &Outcome{Target: target}
	ic.current = out
	for _, a := range s.accessors {
		if _, err := a.apply(ic, target); err != nil {
			return nil, err
		}
	}
	switch {
	case s.result != nil:
		r, err := s.result.Resolve(ic)
		if err != nil {
			return nil, err
		}
		out.Result = r
	case s.template != nil:
		r, err := s.template.Execute(ic.bindings(0))
		if err != nil {
			return nil, err
		}
		out.Result = r
	default:
		out.Result = target
	}
	return out, nil
}
