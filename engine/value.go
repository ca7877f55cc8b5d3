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
	"strings"

	"github.com/rulego/beanflow/api/types"
	"github.com/rulego/beanflow/utils/cast"
	reflect2 "github.com/rulego/beanflow/utils/reflect"
)

// Value produces a value from the invocation context.
type Value interface {
	Resolve(ic *Context) (any, error)
}

// valueNode is a value resolver under construction.
type valueNode interface {
	Value
	// Init decodes the kind specific configuration.
	Init(b *builder, configuration types.Configuration) error
}

// valueKinds maps a value kind to its constructor.
var valueKinds = map[string]func() valueNode{
	types.ValueKindLiteral:      func() valueNode { return &literalValue{} },
	types.ValueKindInput:        func() valueNode { return &inputValue{} },
	types.ValueKindThis:         func() valueNode { return &thisValue{} },
	types.ValueKindVar:          func() valueNode { return &varValue{} },
	types.ValueKindStepRef:      func() valueNode { return &stepRefValue{} },
	types.ValueKindObject:       func() valueNode { return &objectValue{} },
	types.ValueKindField:        func() valueNode { return &fieldValue{} },
	types.ValueKindAttribute:    func() valueNode { return &attributeValue{} },
	types.ValueKindInvoke:       func() valueNode { return &invokeValue{} },
	types.ValueKindStaticField:  func() valueNode { return &staticFieldValue{} },
	types.ValueKindStaticInvoke: func() valueNode { return &staticInvokeValue{} },
	types.ValueKindResource:     func() valueNode { return &resourceValue{} },
	types.ValueKindExpression:   func() valueNode { return &expressionValue{} },
}

// Placeholder and expression binding roots.
const (
	rootInput  = "input"
	rootThis   = "this"
	rootResult = "result"
	rootVar    = "var"
)

// LiteralValueConfiguration configures a literal value.
type LiteralValueConfiguration struct {
	// Value is the literal. Text is converted when Class is set.
	Value any `mapstructure:"value"`
	// Class names the converter applied to the text of Value, e.g. "int64", "duration", "json".
	Class string `mapstructure:"class"`
	// Null makes the literal nil, independently of Value.
	Null bool `mapstructure:"null"`
}

type literalValue struct {
	Config LiteralValueConfiguration
	value  any
	// text is set for unconverted string literals; attribute accessors convert them to the property type.
	text bool
}

func (x *literalValue) Init(b *builder, configuration types.Configuration) error {
	if err := decode(configuration, &x.Config); err != nil {
		return err
	}
	if x.Config.Null {
		return nil
	}
	if x.Config.Class == "" {
		x.value = x.Config.Value
		_, x.text = x.Config.Value.(string)
		return nil
	}
	converter, ok := b.env.Config.Converters.Converter(x.Config.Class)
	if !ok {
		return fmt.Errorf("unknown literal class %q", x.Config.Class)
	}
	text := cast.ToString(x.Config.Value)
	if text == cast.NullText {
		return nil
	}
	v, err := converter(text)
	if err != nil {
		return fmt.Errorf("literal %q as %s: %w", text, x.Config.Class, err)
	}
	x.value = v
	return nil
}

func (x *literalValue) Resolve(*Context) (any, error) {
	return x.value, nil
}

// PropertyConfiguration is shared by the values reading a property path.
type PropertyConfiguration struct {
	// Name selects a named input or a variable.
	Name string `mapstructure:"name"`
	// Property is a property path applied to the selected value.
	Property string `mapstructure:"property"`
	// NullCheck fails with a NullPropertyError when the path meets nil.
	NullCheck bool `mapstructure:"nullCheck"`
}

type propertyReader struct {
	Config PropertyConfiguration
	path   *reflect2.Path
}

func (x *propertyReader) init(b *builder, configuration types.Configuration) error {
	if err := decode(configuration, &x.Config); err != nil {
		return err
	}
	var err error
	x.path, err = b.path(x.Config.Property)
	return err
}

func (x *propertyReader) read(root any) (any, error) {
	return x.path.Get(root, x.Config.NullCheck)
}

// inputValue reads the invocation input, or a named input when Name is set.
type inputValue struct {
	propertyReader
}

func (x *inputValue) Init(b *builder, configuration types.Configuration) error {
	if err := x.init(b, configuration); err != nil {
		return err
	}
	if x.Config.Name != "" && !b.hasInput(x.Config.Name) {
		return fmt.Errorf("undeclared input %q", x.Config.Name)
	}
	return nil
}

func (x *inputValue) Resolve(ic *Context) (any, error) {
	root := ic.Input
	if x.Config.Name != "" {
		root, _ = ic.InputValue(x.Config.Name)
	}
	return x.read(root)
}

// thisValue reads the target of the current step.
type thisValue struct {
	propertyReader
}

func (x *thisValue) Init(b *builder, configuration types.Configuration) error {
	return x.init(b, configuration)
}

func (x *thisValue) Resolve(ic *Context) (any, error) {
	return x.read(ic.Current().Target)
}

// resultValue reads the result of the current step. It backs the @result@ placeholder.
type resultValue struct {
	propertyReader
}

func (x *resultValue) Resolve(ic *Context) (any, error) {
	return x.read(ic.Current().Result)
}

// varValue reads a flow variable.
type varValue struct {
	propertyReader
}

func (x *varValue) Init(b *builder, configuration types.Configuration) error {
	if err := x.init(b, configuration); err != nil {
		return err
	}
	if x.Config.Name == "" {
		return fmt.Errorf("var value requires a name")
	}
	return nil
}

func (x *varValue) Resolve(ic *Context) (any, error) {
	v, _ := ic.Var(x.Config.Name)
	return x.read(v)
}

// StepRefValueConfiguration configures a step reference.
type StepRefValueConfiguration struct {
	// Ref is "step[.target|.result][.path]". The result is selected when neither is given.
	Ref       string `mapstructure:"ref"`
	NullCheck bool   `mapstructure:"nullCheck"`
}

type stepRefValue struct {
	Config StepRefValueConfiguration
	step   string
	target bool
	path   *reflect2.Path
}

func (x *stepRefValue) Init(b *builder, configuration types.Configuration) error {
	if err := decode(configuration, &x.Config); err != nil {
		return err
	}
	return x.parse(b, x.Config.Ref)
}

func (x *stepRefValue) parse(b *builder, ref string) error {
	step, rest := splitRoot(ref)
	if step == "" {
		return fmt.Errorf("invalid step reference %q", ref)
	}
	x.step = step
	rest = strings.TrimPrefix(rest, ".")
	part, tail := splitRoot(rest)
	switch part {
	case types.StepTarget:
		x.target = true
		rest = strings.TrimPrefix(tail, ".")
	case types.StepResult:
		rest = strings.TrimPrefix(tail, ".")
	}
	var err error
	if x.path, err = b.path(rest); err != nil {
		return err
	}
	b.refer(step)
	return nil
}

func (x *stepRefValue) Resolve(ic *Context) (any, error) {
	out, ok := ic.Outcome(x.step)
	if !ok {
		return nil, fmt.Errorf("step %s is not defined", x.step)
	}
	root := out.Result
	if x.target {
		root = out.Target
	}
	return x.path.Get(root, x.Config.NullCheck)
}

// splitRoot splits "a.b[0]" into "a" and ".b[0]".
func splitRoot(ref string) (string, string) {
	if i := strings.IndexAny(ref, ".[("); i >= 0 {
		return ref[:i], ref[i:]
	}
	return ref, ""
}

// ResourceValueConfiguration configures a resource reference.
type ResourceValueConfiguration struct {
	Name string `mapstructure:"name"`
	// Raw returns the TransactionResource itself instead of its object.
	Raw bool `mapstructure:"raw"`
}

type resourceValue struct {
	Config ResourceValueConfiguration
}

func (x *resourceValue) Init(b *builder, configuration types.Configuration) error {
	if err := decode(configuration, &x.Config); err != nil {
		return err
	}
	if !b.hasResource(x.Config.Name) {
		return fmt.Errorf("undeclared resource %q", x.Config.Name)
	}
	return nil
}

func (x *resourceValue) Resolve(ic *Context) (any, error) {
	r, err := ic.Resource(x.Config.Name)
	if err != nil {
		return nil, err
	}
	if x.Config.Raw {
		return r, nil
	}
	return r.Object(), nil
}

// resolveAll resolves values in order.
func resolveAll(ic *Context, values []Value) ([]any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]any, len(values))
	for i, v := range values {
		r, err := v.Resolve(ic)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}
