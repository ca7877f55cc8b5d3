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
)

// Step is an executable node of a flow definition.
//
// Execute returns the outcome of the step. A nil outcome with a nil error means the
// flow returns immediately; every step running nested steps propagates it.
type Step interface {
	// Name returns the step name, empty for anonymous steps.
	Name() string
	Execute(ic *Context) (*Outcome, error)
}

// stepNode is a step under construction.
type stepNode interface {
	Step
	// Init decodes the kind specific configuration and builds the nested steps and values.
	Init(b *builder, dsl types.StepDsl) error
}

// stepKinds maps a step kind to its constructor.
var stepKinds = map[string]func() stepNode{
	types.StepKindStep:     func() stepNode { return &simpleStep{} },
	types.StepKindIf:       func() stepNode { return &ifStep{} },
	types.StepKindSwitch:   func() stepNode { return &switchStep{} },
	types.StepKindFor:      func() stepNode { return &forStep{} },
	types.StepKindWhile:    func() stepNode { return &whileStep{} },
	types.StepKindDoWhile:  func() stepNode { return &whileStep{post: true} },
	types.StepKindCall:     func() stepNode { return &callStep{} },
	types.StepKindReply:    func() stepNode { return &replyStep{} },
	types.StepKindThrow:    func() stepNode { return &throwStep{} },
	types.StepKindReturn:   func() stepNode { return &returnStep{} },
	types.StepKindBreak:    func() stepNode { return &breakStep{} },
	types.StepKindContinue: func() stepNode { return &continueStep{} },
}

// baseStep carries the name shared by all step kinds.
type baseStep struct {
	name string
}

func (s *baseStep) Name() string {
	return s.name
}

func (s *baseStep) init(dsl types.StepDsl) {
	s.name = dsl.Name
}

// runSteps executes steps in order. It stops at the first error, at the first nil
// outcome and at the first outcome carrying a loop control flag.
func runSteps(ic *Context, steps []Step) (*Outcome, error) {
	out := &Outcome{}
	for _, step := range steps {
		o, err := runStep(ic, step)
		if err != nil {
			return nil, err
		}
		if o == nil {
			return nil, nil
		}
		ic.SetCurrent(o)
		ic.Record(step.Name(), o)
		if o.Break || o.Continue {
			return o, nil
		}
		out = o
	}
	return out, nil
}

// runStep executes one step between the journal start and end events.
func runStep(ic *Context, step Step) (*Outcome, error) {
	journal := ic.env.Config.Journal
	name := step.Name()
	if journal == nil || name == "" {
		return step.Execute(ic)
	}
	journal.StartStep(ic.def.Name, ic.invocationId, name)
	o, err := step.Execute(ic)
	journal.EndStep(ic.def.Name, ic.invocationId, name, err)
	return o, err
}

// guardedStep scopes catch and finally clauses to a single step.
type guardedStep struct {
	Step
	guard *guard
}

func (s *guardedStep) Execute(ic *Context) (*Outcome, error) {
	return s.guard.run(ic, func() (*Outcome, error) {
		return s.Step.Execute(ic)
	})
}
