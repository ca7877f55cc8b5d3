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
	"github.com/rulego/beanflow/utils/cast"
)

// condition is a boolean test expression.
type condition struct {
	test *expressionValue
}

func (b *builder) condition(test, language string) (*condition, error) {
	if test == "" {
		return nil, fmt.Errorf("missing test expression")
	}
	x, err := b.newExpression(test, language)
	if err != nil {
		return nil, err
	}
	return &condition{test: x}, nil
}

func (c *condition) eval(ic *Context) (bool, error) {
	v, err := c.test.Resolve(ic)
	if err != nil {
		return false, err
	}
	ok, err := cast.ToBoolE(v)
	if err != nil {
		return false, fmt.Errorf("test %q: %w", c.test.Config.Expression, err)
	}
	return ok, nil
}

// IfStepConfiguration configures an if step. The nested steps run when Test is true.
type IfStepConfiguration struct {
	Test     string `mapstructure:"test"`
	Language string `mapstructure:"language"`
}

type ifStep struct {
	baseStep
	Config IfStepConfiguration
	cond   *condition
	steps  []Step
}

func (s *ifStep) Init(b *builder, dsl types.StepDsl) error {
	s.init(dsl)
	if err := decode(dsl.Configuration, &s.Config); err != nil {
		return err
	}
	var err error
	if s.cond, err = b.condition(s.Config.Test, s.Config.Language); err != nil {
		return err
	}
	s.steps, err = b.steps(dsl.Steps)
	return err
}

func (s *ifStep) Execute(ic *Context) (*Outcome, error) {
	ok, err := s.cond.eval(ic)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Outcome{}, nil
	}
	return runSteps(ic, s.steps)
}

// CaseDsl is a switch case.
type CaseDsl struct {
	Test     string          `mapstructure:"test"`
	Language string          `mapstructure:"language"`
	Steps    []types.StepDsl `mapstructure:"steps"`
}

// SwitchStepConfiguration configures a switch step.
type SwitchStepConfiguration struct {
	// Cases are tested in order, the first true case runs.
	Cases []CaseDsl `mapstructure:"cases"`
	// Default runs when no case is true.
	Default []types.StepDsl `mapstructure:"default"`
}

type switchCase struct {
	cond  *condition
	steps []Step
}

type switchStep struct {
	baseStep
	Config SwitchStepConfiguration
	cases  []switchCase
	deflt  []Step
}

func (s *switchStep) Init(b *builder, dsl types.StepDsl) error {
	s.init(dsl)
	if err := decode(dsl.Configuration, &s.Config); err != nil {
		return err
	}
	for i, c := range s.Config.Cases {
		cond, err := b.condition(c.Test, c.Language)
		if err != nil {
			return fmt.Errorf("case %d: %w", i, err)
		}
		steps, err := b.steps(c.Steps)
		if err != nil {
			return err
		}
		s.cases = append(s.cases, switchCase{cond: cond, steps: steps})
	}
	var err error
	s.deflt, err = b.steps(s.Config.Default)
	return err
}

func (s *switchStep) Execute(ic *Context) (*Outcome, error) {
	for _, c := range s.cases {
		ok, err := c.cond.eval(ic)
		if err != nil {
			return nil, err
		}
		if ok {
			return runSteps(ic, c.steps)
		}
	}
	return runSteps(ic, s.deflt)
}
