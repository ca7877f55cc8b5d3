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
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/rulego/beanflow/api/types"
	"github.com/rulego/beanflow/utils/maps"
	reflect2 "github.com/rulego/beanflow/utils/reflect"
)

var valueDslType = reflect.TypeOf(types.ValueDsl{})

// valueDslHook turns a bare value, or a map without a type, into a literal value definition.
func valueDslHook(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != valueDslType || data == nil {
		return data, nil
	}
	switch v := data.(type) {
	case map[string]interface{}:
		if _, ok := v["type"]; ok {
			return data, nil
		}
	case types.Configuration:
		if _, ok := v["type"]; ok {
			return data, nil
		}
	case types.ValueDsl, *types.ValueDsl:
		return data, nil
	}
	return map[string]interface{}{"type": types.ValueKindLiteral, "value": data}, nil
}

// decode decodes a definition map into a configuration struct.
func decode(input interface{}, output interface{}) error {
	return maps.Decode(input, output, mapstructure.DecodeHookFuncType(valueDslHook))
}

// builder compiles the definition of one flow.
type builder struct {
	env  *Env
	flow string
	// step is the name of the innermost named step being built.
	step      string
	names     map[string]bool
	order     []string
	refs      []string
	inputs    map[string]bool
	resources map[string]bool
}

func newBuilder(env *Env, flow string) *builder {
	return &builder{
		env:       env,
		flow:      flow,
		names:     make(map[string]bool),
		inputs:    make(map[string]bool),
		resources: make(map[string]bool),
	}
}

// fail wraps err into a DefinitionError naming the step being built.
func (b *builder) fail(err error) error {
	if _, ok := err.(*types.DefinitionError); ok {
		return err
	}
	return &types.DefinitionError{Flow: b.flow, Step: b.step, Err: err}
}

var reservedNames = map[string]bool{rootInput: true, rootThis: true, rootResult: true, rootVar: true}

func (b *builder) steps(list []types.StepDsl) ([]Step, error) {
	if len(list) == 0 {
		return nil, nil
	}
	out := make([]Step, 0, len(list))
	for _, dsl := range list {
		s, err := b.buildStep(dsl)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (b *builder) buildStep(dsl types.StepDsl) (Step, error) {
	if dsl.Name != "" {
		if reservedNames[dsl.Name] {
			return nil, b.fail(fmt.Errorf("step name %q is reserved", dsl.Name))
		}
		if b.names[dsl.Name] {
			return nil, b.fail(fmt.Errorf("duplicate step name %q", dsl.Name))
		}
		b.names[dsl.Name] = true
		b.order = append(b.order, dsl.Name)
		defer func(outer string) { b.step = outer }(b.step)
		b.step = dsl.Name
	}
	kind := dsl.Type
	if kind == "" {
		kind = types.StepKindStep
	}
	create, ok := stepKinds[kind]
	if !ok {
		return nil, b.fail(fmt.Errorf("unknown step type %q", kind))
	}
	node := create()
	if err := node.Init(b, dsl); err != nil {
		return nil, b.fail(fmt.Errorf("%s: %w", kind, err))
	}
	g, err := b.guard(dsl.Catch, dsl.Finally)
	if err != nil {
		return nil, b.fail(err)
	}
	if g != nil {
		return &guardedStep{Step: node, guard: g}, nil
	}
	return node, nil
}

func (b *builder) value(dsl types.ValueDsl) (Value, error) {
	if dsl.IsZero() {
		return nil, fmt.Errorf("missing value")
	}
	create, ok := valueKinds[dsl.Type]
	if !ok {
		return nil, fmt.Errorf("unknown value type %q", dsl.Type)
	}
	v := create()
	if err := v.Init(b, dsl.Configuration); err != nil {
		return nil, fmt.Errorf("%s value: %w", dsl.Type, err)
	}
	return v, nil
}

func (b *builder) values(list []types.ValueDsl) ([]Value, error) {
	if len(list) == 0 {
		return nil, nil
	}
	out := make([]Value, 0, len(list))
	for _, dsl := range list {
		v, err := b.value(dsl)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (b *builder) path(text string) (*reflect2.Path, error) {
	return reflect2.CompilePath(text)
}

// refer records a step reference, checked once every step is known.
func (b *builder) refer(step string) {
	b.refs = append(b.refs, step)
}

func (b *builder) checkRefs() error {
	for _, ref := range b.refs {
		if !b.names[ref] {
			return &types.DefinitionError{Flow: b.flow, Err: fmt.Errorf("reference to unknown step %q", ref)}
		}
	}
	return nil
}

func (b *builder) hasInput(name string) bool {
	return b.inputs[name]
}

func (b *builder) hasResource(name string) bool {
	return b.resources[name]
}
