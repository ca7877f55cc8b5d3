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

// catchClause runs its steps when the raised error matches its error class.
type catchClause struct {
	class   string
	match   types.ErrorMatcher
	varName string
	steps   []Step
}

// guard holds the catch clauses and finally steps protecting a step list.
type guard struct {
	catches []*catchClause
	finally []Step
}

func (b *builder) guard(catches []types.CatchDsl, finally []types.StepDsl) (*guard, error) {
	if len(catches) == 0 && len(finally) == 0 {
		return nil, nil
	}
	g := &guard{}
	for _, c := range catches {
		match, ok := b.env.Config.ErrorClass(c.Class)
		if !ok {
			return nil, fmt.Errorf("unknown error class %q", c.Class)
		}
		steps, err := b.steps(c.Steps)
		if err != nil {
			return nil, err
		}
		g.catches = append(g.catches, &catchClause{class: c.Class, match: match, varName: c.Var, steps: steps})
	}
	var err error
	if g.finally, err = b.steps(finally); err != nil {
		return nil, err
	}
	return g, nil
}

// run executes body. An error is handed to the first matching catch clause, whose
// outcome replaces the body outcome. Finally steps run exactly once afterwards; an
// error raised by them supersedes the pending one.
func (g *guard) run(ic *Context, body func() (*Outcome, error)) (*Outcome, error) {
	if g == nil {
		return body()
	}
	out, err := body()
	if err != nil {
		if c := g.find(err); c != nil {
			out, err = c.run(ic, err)
		}
	}
	if len(g.finally) == 0 {
		return out, err
	}
	current := ic.Current()
	fo, ferr := runSteps(ic, g.finally)
	if ferr != nil {
		return nil, ferr
	}
	if fo == nil {
		return nil, nil
	}
	ic.current = current
	return out, err
}

func (g *guard) find(err error) *catchClause {
	cause := types.UnwrapInvocation(err)
	for _, c := range g.catches {
		if c.match(cause) {
			return c
		}
	}
	return nil
}

func (c *catchClause) run(ic *Context, err error) (*Outcome, error) {
	if c.varName != "" {
		ic.SetVar(c.varName, types.UnwrapInvocation(err))
	}
	return runSteps(ic, c.steps)
}
