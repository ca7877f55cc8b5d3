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

// Package el evaluates expr-lang expressions and ${} templates.
package el

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rulego/beanflow/api/types"
)

// ExprEvaluator evaluates expr-lang expressions. Compiled programs are cached by
// expression text, so the evaluator is cheap to call repeatedly and safe for concurrent use.
type ExprEvaluator struct {
	programs sync.Map
}

var (
	_ types.Evaluator = (*ExprEvaluator)(nil)
	_ types.Compiler  = (*ExprEvaluator)(nil)
)

// NewExprEvaluator creates an expr-lang evaluator.
func NewExprEvaluator() *ExprEvaluator {
	return &ExprEvaluator{}
}

// Evaluate compiles expression, or reuses its cached program, and runs it against vars.
func (e *ExprEvaluator) Evaluate(expression string, vars map[string]any) (any, error) {
	c, err := e.compile(expression)
	if err != nil {
		return nil, err
	}
	return c.Eval(vars)
}

// Compile returns a reusable compiled expression.
func (e *ExprEvaluator) Compile(expression string) (types.CompiledExpression, error) {
	return e.compile(expression)
}

func (e *ExprEvaluator) compile(expression string) (*Program, error) {
	if p, ok := e.programs.Load(expression); ok {
		return p.(*Program), nil
	}
	p, err := NewProgram(expression)
	if err != nil {
		return nil, err
	}
	e.programs.Store(expression, p)
	return p, nil
}

// Program is a compiled expr-lang expression. Undefined variables evaluate to nil.
type Program struct {
	Source  string
	program *vm.Program
}

// NewProgram compiles expression.
func NewProgram(expression string) (*Program, error) {
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile expression %q: %w", expression, err)
	}
	return &Program{Source: expression, program: program}, nil
}

// Eval runs the program. Each call uses its own VM.
func (p *Program) Eval(vars map[string]any) (any, error) {
	if vars == nil {
		vars = map[string]any{}
	}
	return expr.Run(p.program, vars)
}
