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
	"time"

	"github.com/rulego/beanflow/api/types"
)

// Definition is the compiled, immutable form of a flow. It is shared by all
// invocations of the flow.
type Definition struct {
	Name        string
	Aliases     []string
	Description string
	// Propagation is the declared transaction policy, Supports when undeclared.
	Propagation        types.Propagation
	TransactionTimeout time.Duration
	// Limiter bounds concurrent invocations, nil when unlimited.
	Limiter   *Semaphore
	Inputs    []*InputDefinition
	Resources []*ResourceDefinition
	Steps     []Step
	// StepNames lists every named step of the tree, including nested ones.
	StepNames []string
	// Dsl is the source of the definition.
	Dsl types.FlowDsl

	guard *guard
}

// InputDefinition is a named value extracted when an invocation starts.
type InputDefinition struct {
	Name  string
	Value Value
}

// ResourceDefinition is a declared resource with its resolved backing service.
type ResourceDefinition struct {
	types.ResourceDsl
	Factory types.ResourceFactory
}

// Empty reports whether the flow has nothing to run.
func (d *Definition) Empty() bool {
	return len(d.Steps) == 0 && d.guard == nil
}

// Build compiles dsl against env. All failures are *types.DefinitionError.
func Build(env *Env, dsl types.FlowDsl) (*Definition, error) {
	if dsl.Name == "" {
		return nil, &types.DefinitionError{Err: fmt.Errorf("flow name is required")}
	}
	b := newBuilder(env, dsl.Name)
	def := &Definition{
		Name:               dsl.Name,
		Aliases:            dsl.Aliases,
		Description:        dsl.Description,
		Propagation:        types.PropagationSupports,
		TransactionTimeout: dsl.TransactionTimeout,
		Limiter:            NewSemaphore(dsl.Limiter),
		Dsl:                dsl,
	}
	if dsl.Transaction != "" {
		p, err := types.ParsePropagation(dsl.Transaction)
		if err != nil {
			return nil, b.fail(err)
		}
		def.Propagation = p
	}
	for _, r := range dsl.Resources {
		if r.Name == "" {
			return nil, b.fail(fmt.Errorf("resource name is required"))
		}
		if b.resources[r.Name] {
			return nil, b.fail(fmt.Errorf("duplicate resource %q", r.Name))
		}
		factory, ok := env.Config.ResourceFactories[r.Service]
		if !ok {
			return nil, b.fail(fmt.Errorf("resource %s: unknown service %q", r.Name, r.Service))
		}
		b.resources[r.Name] = true
		def.Resources = append(def.Resources, &ResourceDefinition{ResourceDsl: r, Factory: factory})
	}
	for _, in := range dsl.Inputs {
		if in.Name == "" {
			return nil, b.fail(fmt.Errorf("input name is required"))
		}
		v, err := b.value(in.Value)
		if err != nil {
			return nil, b.fail(fmt.Errorf("input %s: %w", in.Name, err))
		}
		b.inputs[in.Name] = true
		def.Inputs = append(def.Inputs, &InputDefinition{Name: in.Name, Value: v})
	}
	var err error
	if def.Steps, err = b.steps(dsl.Steps); err != nil {
		return nil, err
	}
	if def.guard, err = b.guard(dsl.Catch, dsl.Finally); err != nil {
		return nil, b.fail(err)
	}
	if err := b.checkRefs(); err != nil {
		return nil, err
	}
	def.StepNames = b.order
	return def, nil
}
