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

// Package js provides the "js" expression language of the flow engine, backed by goja.
//
// Scripts are compiled once and cached by source text. Runtimes are pooled and
// every run is interrupted when it exceeds the configured execution time.
// The value of the last evaluated statement is the result of a script.
package js

import (
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/rulego/beanflow/api/types"
)

// GojaEvaluator evaluates JavaScript against variable bindings.
type GojaEvaluator struct {
	maxExecutionTime time.Duration
	logger           types.Logger
	functions        map[string]any
	programs         sync.Map
	vmPool           sync.Pool
}

var (
	_ types.Evaluator = (*GojaEvaluator)(nil)
	_ types.Compiler  = (*GojaEvaluator)(nil)
)

// NewGojaEvaluator creates an evaluator. functions are Go values (usually funcs) set as
// globals on every runtime. A maxExecutionTime of zero disables the interrupt.
func NewGojaEvaluator(config types.Config, functions map[string]any) *GojaEvaluator {
	g := &GojaEvaluator{
		maxExecutionTime: config.ScriptMaxExecutionTime,
		logger:           config.Logger,
		functions:        functions,
	}
	if g.logger == nil {
		g.logger = types.DiscardLogger()
	}
	g.vmPool.New = func() interface{} {
		return g.newVm()
	}
	return g
}

func (g *GojaEvaluator) newVm() *goja.Runtime {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	for k, v := range g.functions {
		if err := vm.Set(k, v); err != nil {
			g.logger.Printf("set js function %s error: %s", k, err.Error())
		}
	}
	return vm
}

// Evaluate runs script with vars bound as globals.
func (g *GojaEvaluator) Evaluate(script string, vars map[string]any) (any, error) {
	s, err := g.compile(script)
	if err != nil {
		return nil, err
	}
	return s.Eval(vars)
}

// Compile returns a reusable compiled script.
func (g *GojaEvaluator) Compile(script string) (types.CompiledExpression, error) {
	return g.compile(script)
}

func (g *GojaEvaluator) compile(script string) (*Script, error) {
	if s, ok := g.programs.Load(script); ok {
		return s.(*Script), nil
	}
	if _, err := goja.Compile("", script, true); err != nil {
		return nil, fmt.Errorf("compile js: %w", err)
	}
	s := &Script{owner: g, source: script}
	g.programs.Store(script, s)
	return s, nil
}

// sourceVar holds the script source while scopedRun evaluates it.
const sourceVar = "__beanflowSource"

// scopedRun evaluates the source with a strict direct eval inside a function. The
// declarations of a run live in the eval scope, so nothing survives on the pooled
// runtime, and the value of the last expression statement is the result.
var scopedRun = goja.MustCompile("scoped", "(function () { return eval("+sourceVar+"); })()", true)

// Script is a validated JavaScript source.
type Script struct {
	owner  *GojaEvaluator
	source string
}

// Eval runs the script on a pooled runtime.
func (s *Script) Eval(vars map[string]any) (out any, err error) {
	g := s.owner
	vm := g.vmPool.Get().(*goja.Runtime)
	defer func() {
		if caught := recover(); caught != nil {
			err = fmt.Errorf("js panic: %v", caught)
		}
		for k := range vars {
			_ = vm.GlobalObject().Delete(k)
		}
		_ = vm.GlobalObject().Delete(sourceVar)
		vm.ClearInterrupt()
		g.vmPool.Put(vm)
	}()

	for k, v := range vars {
		if err := vm.Set(k, v); err != nil {
			return nil, fmt.Errorf("set js variable %s: %w", k, err)
		}
	}
	if err := vm.Set(sourceVar, s.source); err != nil {
		return nil, err
	}
	if g.maxExecutionTime > 0 {
		timer := time.AfterFunc(g.maxExecutionTime, func() {
			vm.Interrupt("execution timeout")
		})
		defer timer.Stop()
	}
	res, err := vm.RunProgram(scopedRun)
	if err != nil {
		return nil, err
	}
	return res.Export(), nil
}
