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
	"fmt"

	"github.com/rulego/beanflow/api/types"
)

type breakStep struct {
	baseStep
}

func (s *breakStep) Init(_ *builder, dsl types.StepDsl) error {
	s.init(dsl)
	return nil
}

func (s *breakStep) Execute(ic *Context) (*Outcome, error) {
	out := ic.Current()
	out.Break = true
	return out, nil
}

type continueStep struct {
	baseStep
}

func (s *continueStep) Init(_ *builder, dsl types.StepDsl) error {
	s.init(dsl)
	return nil
}

func (s *continueStep) Execute(ic *Context) (*Outcome, error) {
	out := ic.Current()
	out.Continue = true
	return out, nil
}

// ReturnStepConfiguration configures a return step.
type ReturnStepConfiguration struct {
	// Value becomes the flow result. The current result is kept when omitted.
	Value *types.ValueDsl `mapstructure:"value"`
	// Null returns nil.
	Null bool `mapstructure:"null"`
}

type returnStep struct {
	baseStep
	Config ReturnStepConfiguration
	value  Value
}

func (s *returnStep) Init(b *builder, dsl types.StepDsl) error {
	s.init(dsl)
	if err := decode(dsl.Configuration, &s.Config); err != nil {
		return err
	}
	if s.Config.Value != nil && !s.Config.Null {
		var err error
		s.value, err = b.value(*s.Config.Value)
		return err
	}
	return nil
}

func (s *returnStep) Execute(ic *Context) (*Outcome, error) {
	current := ic.Current()
	out := &Outcome{Target: current.Target, Result: current.Result}
	switch {
	case s.Config.Null:
		out.Result = nil
	case s.value != nil:
		v, err := s.value.Resolve(ic)
		if err != nil {
			return nil, err
		}
		out.Result = v
	}
	ic.SetCurrent(out)
	ic.Record(s.name, out)
	return nil, nil
}

// ThrowStepConfiguration configures a throw step.
type ThrowStepConfiguration struct {
	// Var names a variable holding the error, such as one bound by a catch clause.
	Var string `mapstructure:"var"`
	// Value resolves the error to raise.
	Value *types.ValueDsl `mapstructure:"value"`
}

type throwStep struct {
	baseStep
	Config ThrowStepConfiguration
	value  Value
}

func (s *throwStep) Init(b *builder, dsl types.StepDsl) error {
	s.init(dsl)
	if err := decode(dsl.Configuration, &s.Config); err != nil {
		return err
	}
	switch {
	case s.Config.Var != "":
		return nil
	case s.Config.Value != nil:
		var err error
		s.value, err = b.value(*s.Config.Value)
		return err
	}
	return fmt.Errorf("throw step requires a var or a value")
}

func (s *throwStep) Execute(ic *Context) (*Outcome, error) {
	var v any
	if s.value != nil {
		var err error
		if v, err = s.value.Resolve(ic); err != nil {
			return nil, err
		}
	} else {
		v, _ = ic.Var(s.Config.Var)
	}
	err, ok := v.(error)
	if !ok || err == nil {
		return nil, fmt.Errorf("%w: %T", types.ErrNotThrowable, v)
	}
	return nil, err
}
