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

	"github.com/rulego/beanflow/api/types"
	"github.com/rulego/beanflow/utils/cast"
	reflect2 "github.com/rulego/beanflow/utils/reflect"
)

// defaultFactoryMethod is the static method used to construct objects with arguments.
const defaultFactoryMethod = "New"

// ObjectValueConfiguration configures the construction of an object.
type ObjectValueConfiguration struct {
	// Class is a registered type name. With Length it is the element type of an array.
	Class string `mapstructure:"class"`
	// Length makes an array of Class with the resolved length.
	Length *types.ValueDsl `mapstructure:"length"`
	// Factory is the static method of Class building the object from Args.
	Factory string `mapstructure:"factory"`
	Args    []types.ValueDsl `mapstructure:"args"`
	// Accessors are applied to the new object in order.
	Accessors []types.AccessorDsl `mapstructure:"accessors"`
}

type objectValue struct {
	Config    ObjectValueConfiguration
	class     reflect.Type
	length    Value
	factory   reflect.Value
	method    string
	args      []Value
	accessors []*accessor
}

func (x *objectValue) Init(b *builder, configuration types.Configuration) error {
	if err := decode(configuration, &x.Config); err != nil {
		return err
	}
	var err error
	if x.Config.Factory != "" || len(x.Config.Args) > 0 {
		method := x.Config.Factory
		if method == "" {
			method = defaultFactoryMethod
		}
		fn, ok := b.env.Config.Types.StaticMethod(x.Config.Class, method)
		if !ok {
			return fmt.Errorf("unknown factory %s.%s", x.Config.Class, method)
		}
		x.factory = fn
		x.method = x.Config.Class + "." + method
		if x.args, err = b.values(x.Config.Args); err != nil {
			return err
		}
	} else {
		t, ok := b.env.Config.Types.Type(x.Config.Class)
		if !ok {
			return fmt.Errorf("unknown class %q", x.Config.Class)
		}
		x.class = t
		if x.Config.Length != nil {
			if x.length, err = b.value(*x.Config.Length); err != nil {
				return err
			}
		}
	}
	x.accessors, err = b.accessors(x.Config.Accessors)
	return err
}

func (x *objectValue) Resolve(ic *Context) (any, error) {
	obj, err := x.create(ic)
	if err != nil {
		return nil, err
	}
	for _, a := range x.accessors {
		if _, err := a.apply(ic, obj); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

func (x *objectValue) create(ic *Context) (any, error) {
	if x.factory.IsValid() {
		args, err := resolveAll(ic, x.args)
		if err != nil {
			return nil, err
		}
		return reflect2.Call(x.factory, x.method, args)
	}
	if x.length != nil {
		v, err := x.length.Resolve(ic)
		if err != nil {
			return nil, err
		}
		n, err := cast.ToIntE(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid array length %v", v)
		}
		return reflect2.NewArray(x.class, n), nil
	}
	return reflect2.NewInstance(x.class), nil
}

// accessor sets a field, sets a property or invokes a method on a target.
type accessor struct {
	kind   string
	name   string
	value  Value
	args   []Value
	narrow bool
	// text is set when value is an unconverted string literal.
	text bool
}

func (b *builder) accessors(list []types.AccessorDsl) ([]*accessor, error) {
	out := make([]*accessor, 0, len(list))
	for _, dsl := range list {
		a, err := b.accessor(dsl)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (b *builder) accessor(dsl types.AccessorDsl) (*accessor, error) {
	a := &accessor{kind: dsl.Kind, name: dsl.Name, narrow: dsl.NarrowCast}
	if a.name == "" {
		return nil, fmt.Errorf("%s accessor requires a name", dsl.Kind)
	}
	var err error
	switch dsl.Kind {
	case types.AccessorField, types.AccessorAttribute, "":
		if a.kind == "" {
			a.kind = types.AccessorAttribute
		}
		valueDsl := dsl.Value
		if dsl.Class != "" && valueDsl.Type == types.ValueKindLiteral {
			valueDsl = withClass(valueDsl, dsl.Class)
		}
		if a.value, err = b.value(valueDsl); err != nil {
			return nil, err
		}
		if l, ok := a.value.(*literalValue); ok {
			a.text = l.text
		}
	case types.AccessorInvoke:
		if a.args, err = b.values(dsl.Args); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown accessor kind %q", dsl.Kind)
	}
	return a, nil
}

// withClass copies a literal definition with its converter class set.
func withClass(dsl types.ValueDsl, class string) types.ValueDsl {
	configuration := make(types.Configuration, len(dsl.Configuration)+1)
	for k, v := range dsl.Configuration {
		configuration[k] = v
	}
	if _, ok := configuration["class"]; !ok {
		configuration["class"] = class
	}
	return types.ValueDsl{Type: dsl.Type, Configuration: configuration}
}

// apply runs the accessor against target. Invocations return the method result.
func (a *accessor) apply(ic *Context, target any) (any, error) {
	switch a.kind {
	case types.AccessorInvoke:
		args, err := resolveAll(ic, a.args)
		if err != nil {
			return nil, err
		}
		return reflect2.Invoke(target, a.name, args)
	default:
		v, err := a.value.Resolve(ic)
		if err != nil {
			return nil, err
		}
		opts := reflect2.AssignOptions{NarrowCast: a.narrow, FromText: a.text, Converters: ic.env.Config.Converters}
		if a.kind == types.AccessorField {
			return nil, reflect2.SetField(target, a.name, v, opts)
		}
		return nil, reflect2.SetProperty(target, a.name, v, opts)
	}
}

// MemberValueConfiguration configures field, attribute and invoke values.
type MemberValueConfiguration struct {
	// Target defaults to the current step target.
	Target *types.ValueDsl `mapstructure:"target"`
	// Name is the field or attribute name.
	Name string `mapstructure:"name"`
	// Method and Args configure invoke values.
	Method string           `mapstructure:"method"`
	Args   []types.ValueDsl `mapstructure:"args"`
}

type member struct {
	Config MemberValueConfiguration
	target Value
}

func (x *member) init(b *builder, configuration types.Configuration) error {
	if err := decode(configuration, &x.Config); err != nil {
		return err
	}
	if x.Config.Target == nil {
		x.target = &thisValue{}
		return nil
	}
	var err error
	x.target, err = b.value(*x.Config.Target)
	return err
}

func (x *member) resolveTarget(ic *Context) (any, error) {
	return x.target.Resolve(ic)
}

// fieldValue reads a struct field or map entry.
type fieldValue struct {
	member
}

func (x *fieldValue) Init(b *builder, configuration types.Configuration) error {
	if err := x.init(b, configuration); err != nil {
		return err
	}
	if x.Config.Name == "" {
		return fmt.Errorf("field value requires a name")
	}
	return nil
}

func (x *fieldValue) Resolve(ic *Context) (any, error) {
	t, err := x.resolveTarget(ic)
	if err != nil {
		return nil, err
	}
	return reflect2.GetField(t, x.Config.Name)
}

// attributeValue reads a property through its getter.
type attributeValue struct {
	member
}

func (x *attributeValue) Init(b *builder, configuration types.Configuration) error {
	if err := x.init(b, configuration); err != nil {
		return err
	}
	if x.Config.Name == "" {
		return fmt.Errorf("attribute value requires a name")
	}
	return nil
}

func (x *attributeValue) Resolve(ic *Context) (any, error) {
	t, err := x.resolveTarget(ic)
	if err != nil {
		return nil, err
	}
	return reflect2.GetProperty(t, x.Config.Name)
}

// invokeValue calls a method of the target.
type invokeValue struct {
	member
	args []Value
}

func (x *invokeValue) Init(b *builder, configuration types.Configuration) error {
	if err := x.init(b, configuration); err != nil {
		return err
	}
	if x.Config.Method == "" {
		return fmt.Errorf("invoke value requires a method")
	}
	var err error
	x.args, err = b.values(x.Config.Args)
	return err
}

func (x *invokeValue) Resolve(ic *Context) (any, error) {
	t, err := x.resolveTarget(ic)
	if err != nil {
		return nil, err
	}
	args, err := resolveAll(ic, x.args)
	if err != nil {
		return nil, err
	}
	return reflect2.Invoke(t, x.Config.Method, args)
}

// StaticValueConfiguration configures static-field and static-invoke values.
type StaticValueConfiguration struct {
	Class  string           `mapstructure:"class"`
	Name   string           `mapstructure:"name"`
	Method string           `mapstructure:"method"`
	Args   []types.ValueDsl `mapstructure:"args"`
}

type staticFieldValue struct {
	Config StaticValueConfiguration
	field  reflect.Value
}

func (x *staticFieldValue) Init(b *builder, configuration types.Configuration) error {
	if err := decode(configuration, &x.Config); err != nil {
		return err
	}
	v, ok := b.env.Config.Types.StaticField(x.Config.Class, x.Config.Name)
	if !ok {
		return fmt.Errorf("unknown static field %s.%s", x.Config.Class, x.Config.Name)
	}
	x.field = v
	return nil
}

func (x *staticFieldValue) Resolve(*Context) (any, error) {
	return x.field.Interface(), nil
}

type staticInvokeValue struct {
	Config StaticValueConfiguration
	fn     reflect.Value
	args   []Value
}

func (x *staticInvokeValue) Init(b *builder, configuration types.Configuration) error {
	if err := decode(configuration, &x.Config); err != nil {
		return err
	}
	fn, ok := b.env.Config.Types.StaticMethod(x.Config.Class, x.Config.Method)
	if !ok {
		return fmt.Errorf("unknown static method %s.%s", x.Config.Class, x.Config.Method)
	}
	x.fn = fn
	var err error
	x.args, err = b.values(x.Config.Args)
	return err
}

func (x *staticInvokeValue) Resolve(ic *Context) (any, error) {
	args, err := resolveAll(ic, x.args)
	if err != nil {
		return nil, err
	}
	return reflect2.Call(x.fn, x.Config.Class+"."+x.Config.Method, args)
}
