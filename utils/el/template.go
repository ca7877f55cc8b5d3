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

package el

import (
	"fmt"
	"strings"

	"github.com/rulego/beanflow/utils/cast"
)

const (
	varPrefix = "${"
	varSuffix = "}"
)

// Template renders text against variable bindings.
type Template interface {
	Execute(data map[string]any) (any, error)
	// HasVar reports whether the template contains ${} expressions.
	HasVar() bool
}

// NewTemplate compiles tmpl. Text that is exactly one ${expr} evaluates to the typed
// value of expr; text mixing literals and ${expr} renders to a string; other values
// are returned as they are.
func NewTemplate(tmpl any) (Template, error) {
	text, ok := tmpl.(string)
	if !ok {
		return &AnyTemplate{Tmpl: tmpl}, nil
	}
	parts, err := split(text)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return &AnyTemplate{Tmpl: text}, nil
	}
	trimmed := strings.TrimSpace(text)
	if len(parts) == 1 && parts[0].start == strings.Index(text, trimmed) && parts[0].end == strings.Index(text, trimmed)+len(trimmed) {
		return &ExprTemplate{Tmpl: text, program: parts[0].program}, nil
	}
	return &MixedTemplate{Tmpl: text, parts: parts}, nil
}

type part struct {
	start, end int
	program    *Program
}

// split locates every ${...} in text. Braces nested inside the expression are balanced
// so that object literals such as ${{"a": 1}} are accepted.
func split(text string) ([]part, error) {
	var parts []part
	offset := 0
	for {
		i := strings.Index(text[offset:], varPrefix)
		if i < 0 {
			return parts, nil
		}
		start := offset + i
		depth := 1
		end := -1
		for j := start + len(varPrefix); j < len(text); j++ {
			switch text[j] {
			case '{':
				depth++
			case '}':
				depth--
			}
			if depth == 0 {
				end = j + 1
				break
			}
		}
		if end < 0 {
			return nil, fmt.Errorf("template %q: unclosed %s at %d", text, varPrefix, start)
		}
		source := strings.TrimSpace(text[start+len(varPrefix) : end-len(varSuffix)])
		program, err := NewProgram(source)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part{start: start, end: end, program: program})
		offset = end
	}
}

// ExprTemplate is a template made of a single ${expr}; it returns the typed value of expr.
type ExprTemplate struct {
	Tmpl    string
	program *Program
}

func (t *ExprTemplate) Execute(data map[string]any) (any, error) {
	return t.program.Eval(data)
}

func (t *ExprTemplate) HasVar() bool {
	return true
}

// MixedTemplate renders literal text interleaved with ${expr} values, e.g. "order-${input.id}".
type MixedTemplate struct {
	Tmpl  string
	parts []part
}

func (t *MixedTemplate) Execute(data map[string]any) (any, error) {
	return t.ExecuteAsString(data)
}

// ExecuteAsString renders the template.
func (t *MixedTemplate) ExecuteAsString(data map[string]any) (string, error) {
	var sb strings.Builder
	last := 0
	for _, p := range t.parts {
		sb.WriteString(t.Tmpl[last:p.start])
		v, err := p.program.Eval(data)
		if err != nil {
			return "", err
		}
		sb.WriteString(cast.ToString(v))
		last = p.end
	}
	sb.WriteString(t.Tmpl[last:])
	return sb.String(), nil
}

func (t *MixedTemplate) HasVar() bool {
	return true
}

// AnyTemplate returns its value unchanged.
type AnyTemplate struct {
	Tmpl any
}

func (t *AnyTemplate) Execute(map[string]any) (any, error) {
	return t.Tmpl, nil
}

func (t *AnyTemplate) HasVar() bool {
	return false
}
