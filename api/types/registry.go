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

package types

import "reflect"

// Evaluator evaluates expression text against variable bindings.
type Evaluator interface {
	Evaluate(expression string, vars map[string]any) (any, error)
}

// Compiler is implemented by evaluators able to precompile expressions.
type Compiler interface {
	Compile(expression string) (CompiledExpression, error)
}

// CompiledExpression is a precompiled expression.
type CompiledExpression interface {
	Eval(vars map[string]any) (any, error)
}

// Converter turns text into a typed value.
type Converter func(text string) (any, error)

// ConverterRegistry finds string converters by type name or by reflect.Type.
type ConverterRegistry interface {
	Converter(typeName string) (Converter, bool)
	ConverterFor(t reflect.Type) (Converter, bool)
}

// TypeRegistry resolves class names used in definitions.
type TypeRegistry interface {
	// Type returns the type registered under name.
	Type(name string) (reflect.Type, bool)
	// StaticField returns an addressable value registered as a static field of class.
	StaticField(class, name string) (reflect.Value, bool)
	// StaticMethod returns a function registered as a static method of class.
	StaticMethod(class, name string) (reflect.Value, bool)
}
