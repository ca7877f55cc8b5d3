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
	"github.com/rulego/beanflow/utils/str"
)

// ExpressionValueConfiguration configures an expression value.
type ExpressionValueConfiguration struct {
	// Expression may embed @path@ placeholders rooted at input, this, result, var.name or a step name.
	Expression string `mapstructure:"expression"`
	// Language selects the evaluator, the configured default when empty.
	Language string `mapstructure:"language"`
}

type expressionValue struct {
	Config       ExpressionValueConfiguration
	source       string
	evaluator    types.Evaluator
	compiled     types.CompiledExpression
	names        []string
	placeholders []Value
}

func (x *expressionValue) Init(b *builder, configuration types.Configuration) error {
	if err := decode(configuration, &x.Config); err != nil {
		return err
	}
	return x.compile(b, x.Config.Expression, x.Config.Language)
}

// compile rewrites the placeholders of text into variables and compiles the result
// when the evaluator supports it.
func (x *expressionValue) compile(b *builder, text, language string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("empty expression")
	}
	source, err := str.ReplaceDelimited(text, types.PlaceholderDelimiter, func(i int, inner string) (string, error) {
		v, err := b.placeholder(strings.TrimSpace(inner))
		if err != nil {
			return "", err
		}
		name := fmt.Sprintf("_p%d", i)
		x.names = append(x.names, name)
		x.placeholders = append(x.placeholders, v)
		return name, nil
	})
	if err != nil {
		return fmt.Errorf("expression %q: %w", text, err)
	}
	x.source = source
	if x.evaluator, err = b.env.Evaluator(language); err != nil {
		return err
	}
	if c, ok := x.evaluator.(types.Compiler); ok {
		if x.compiled, err = c.Compile(source); err != nil {
			return fmt.Errorf("expression %q: %w", text, err)
		}
	}
	return nil
}

func (x *expressionValue) Resolve(ic *Context) (any, error) {
	vars := ic.bindings(len(x.placeholders))
	for i, p := range x.placeholders {
		v, err := p.Resolve(ic)
		if err != nil {
			return nil, err
		}
		vars[x.names[i]] = v
	}
	if x.compiled != nil {
		return x.compiled.Eval(vars)
	}
	return x.evaluator.Evaluate(x.source, vars)
}

// newExpression compiles an expression used by a step, e.g. a loop test.
func (b *builder) newExpression(text, language string) (*expressionValue, error) {
	x := &expressionValue{Config: ExpressionValueConfiguration{Expression: text, Language: language}}
	if err := x.compile(b, text, language); err != nil {
		return nil, err
	}
	return x, nil
}

// placeholder builds the value read by a @path@ placeholder.
func (b *builder) placeholder(path string) (Value, error) {
	root, rest := splitRoot(path)
	property := strings.TrimPrefix(rest, ".")
	reader := func() (propertyReader, error) {
		p, err := b.path(property)
		return propertyReader{Config: PropertyConfiguration{Property: property}, path: p}, err
	}
	switch root {
	case "":
		return nil, fmt.Errorf("invalid placeholder %q", path)
	case rootInput:
		r, err := reader()
		return &inputValue{r}, err
	case rootThis:
		r, err := reader()
		return &thisValue{r}, err
	case rootResult:
		r, err := reader()
		return &resultValue{r}, err
	case rootVar:
		name, tail := splitRoot(property)
		if name == "" {
			return nil, fmt.Errorf("placeholder %q: missing variable name", path)
		}
		property = strings.TrimPrefix(tail, ".")
		r, err := reader()
		r.Config.Name = name
		return &varValue{r}, err
	default:
		ref := &stepRefValue{}
		return ref, ref.parse(b, path)
	}
}
